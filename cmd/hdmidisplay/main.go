package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"
	flag "github.com/spf13/pflag"

	"github.com/seccouser/hdmi-in-display/internal/capture"
	"github.com/seccouser/hdmi-in-display/internal/config"
	"github.com/seccouser/hdmi-in-display/internal/control"
	"github.com/seccouser/hdmi-in-display/internal/logging"
	"github.com/seccouser/hdmi-in-display/internal/render"
	"github.com/seccouser/hdmi-in-display/internal/v4l2"
)

var log = logging.DefaultLogger.WithTag("main")

// Populated via -ldflags="-X ...".
var GitRevisionId string
var GitTag string

// version displays information and exits successfully (GNU convention)
func version() {
	if GitTag != "" {
		fmt.Println("hdmidisplay", GitTag, GitRevisionId)
	} else {
		fmt.Println("hdmidisplay", GitRevisionId)
	}
}

func parseMatrix(s string) (render.Matrix, error) {
	switch s {
	case "bt601":
		return render.MatrixBT601, nil
	case "bt709":
		return render.MatrixBT709, nil
	}
	return 0, fmt.Errorf("unknown matrix %q", s)
}

func parseRange(s string) (render.Range, error) {
	switch s {
	case "limited":
		return render.RangeLimited, nil
	case "full":
		return render.RangeFull, nil
	}
	return 0, fmt.Errorf("unknown range %q", s)
}

func parsePixelFormat(s string) (uint32, error) {
	switch s {
	case "nv12":
		return v4l2.PixFmtNV12, nil
	case "nv16":
		return v4l2.PixFmtNV16, nil
	case "yuyv":
		return v4l2.PixFmtYUYV, nil
	case "uyvy":
		return v4l2.PixFmtUYVY, nil
	case "rgb24":
		return v4l2.PixFmtRGB24, nil
	case "bgr24":
		return v4l2.PixFmtBGR24, nil
	}
	return 0, fmt.Errorf("unknown pixel format %q", s)
}

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}
	if flagVersion {
		version()
		os.Exit(0)
	}

	matrix, err := parseMatrix(flagMatrix)
	if err != nil {
		log.Fatal("%v", err)
	}
	rng, err := parseRange(flagRange)
	if err != nil {
		log.Fatal("%v", err)
	}
	pixfmt, err := parsePixelFormat(flagInputFormat)
	if err != nil {
		log.Fatal("%v", err)
	}

	// A broken configuration must not black out the wall; fall back to
	// defaults and let the operator fix and reload at runtime.
	configPath := flagConfig
	if resolved, err := config.Resolve(configPath); err == nil {
		configPath = resolved
	}
	grid, err := config.Load(configPath)
	if err != nil {
		log.Warn("%v (using built-in defaults)", err)
		grid = config.Defaults()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	desired := v4l2.Format{
		Width:       uint32(flagWidth),
		Height:      uint32(flagHeight),
		PixelFormat: pixfmt,
	}
	sup := capture.New(func() (capture.Stream, error) {
		return capture.OpenDeviceStream(capture.DeviceConfig{
			Path:    flagDevice,
			Desired: desired,
		})
	}, capture.DefaultOptions())

	ocr := control.OCR{
		Program:    flagOCRProgram,
		ConfigPath: configPath,
		Key:        flagOCRKey,
	}

	bridge := render.New(sup, grid, render.Options{
		ConfigPath:   flagConfig,
		PatternPath:  flagPattern,
		SnapshotPath: flagSnapshot,
		Fullscreen:   flagFullscreen,
		Matrix:       matrix,
		Range:        rng,
		OnSnapshot:   ocr.InvokeAsync,
	})

	captureErr := make(chan error, 1)
	go func() {
		if err := sup.Run(ctx); err != nil {
			log.Error("capture: %v", err)
			captureErr <- err
			bridge.Ops() <- render.OpExit
		}
	}()

	if flagControlAddr != "" {
		srv := control.NewServer(flagControlAddr, sup, bridge.Ops())
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				log.Error("control: %v", err)
			}
		}()
	}

	// Shut the window down on SIGINT/SIGTERM too; the exit op is drained
	// by the next Update tick.
	go func() {
		<-ctx.Done()
		select {
		case bridge.Ops() <- render.OpExit:
		default:
		}
	}()

	ebiten.SetWindowTitle("hdmidisplay")
	ebiten.SetWindowSize(flagWidth, flagHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetFullscreen(flagFullscreen)

	if err := ebiten.RunGame(bridge); err != nil {
		log.Fatal("%v", err)
	}

	select {
	case <-captureErr:
		os.Exit(1)
	default:
	}
}
