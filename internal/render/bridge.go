// Package render owns the output surface. Everything graphics-side runs
// on the ebiten game goroutine; the capture side is only ever reached
// through the supervisor's atomics and frame copies.
package render

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/seccouser/hdmi-in-display/internal/capture"
	"github.com/seccouser/hdmi-in-display/internal/config"
	"github.com/seccouser/hdmi-in-display/internal/logging"
	"github.com/seccouser/hdmi-in-display/internal/tilegrid"
)

var log = logging.DefaultLogger.WithTag("render")

// Op is a runtime control operation, fed by the keyboard and the remote
// control surface alike.
type Op int

const (
	OpReload Op = iota
	OpMirrorH
	OpMirrorV
	OpRotate
	OpFullscreen
	OpSnapshot
	OpRecover
	OpExit
)

func (op Op) String() string {
	switch op {
	case OpReload:
		return "reload"
	case OpMirrorH:
		return "mirror_h"
	case OpMirrorV:
		return "mirror_v"
	case OpRotate:
		return "rotate"
	case OpFullscreen:
		return "fullscreen"
	case OpSnapshot:
		return "snapshot"
	case OpRecover:
		return "recover"
	case OpExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Options configure the bridge at startup.
type Options struct {
	ConfigPath   string // grid config file, reloaded by OpReload
	PatternPath  string // optional test pattern image
	SnapshotPath string // destination for snapshots
	Fullscreen   bool
	Matrix       Matrix
	Range        Range

	// OnSnapshot runs after a snapshot file is written, on the snapshot
	// worker goroutine. Used to kick the OCR helper.
	OnSnapshot func(path string)
}

// Bridge implements ebiten.Game. It uploads the latest decoded frame,
// drives the tile mapper per pixel, and reacts to control operations.
type Bridge struct {
	sup  *capture.Supervisor
	opts Options

	// ops receives control operations from other goroutines; drained once
	// per Update.
	ops chan Op

	grid    config.Grid
	offsets tilegrid.OffsetTable
	tf      tilegrid.Transform
	segment int

	frame     capture.Frame
	haveFrame bool

	out     *image.RGBA
	pattern image.Image

	fullscreen bool
}

// New builds the bridge with an initial configuration.
func New(sup *capture.Supervisor, grid config.Grid, opts Options) *Bridge {
	b := &Bridge{
		sup:        sup,
		opts:       opts,
		ops:        make(chan Op, 16),
		grid:       grid,
		segment:    1,
		fullscreen: opts.Fullscreen,
	}
	b.offsets = config.LoadOffsets(grid.OffsetPaths(), b.tableCapacity())

	if opts.PatternPath != "" {
		if img, err := LoadPattern(opts.PatternPath); err != nil {
			log.Warn("%v; using color bars", err)
		} else {
			b.pattern = img
			log.Info("test pattern loaded: %s", opts.PatternPath)
		}
	}
	return b
}

// Ops is the channel the control surface submits operations on.
func (b *Bridge) Ops() chan<- Op {
	return b.ops
}

func (b *Bridge) tableCapacity() int {
	return b.grid.Tile.TilesPerRow * b.grid.Tile.TilesPerColumn
}

// Update handles control input and pulls capture-side state. Never blocks
// on the capture thread.
func (b *Bridge) Update() error {
	for {
		select {
		case op := <-b.ops:
			if err := b.apply(op); err != nil {
				return err
			}
			continue
		default:
		}
		break
	}

	if err := b.keyboard(); err != nil {
		return err
	}

	// Resync is only ever raised after a verified recovery; the format
	// may have changed underneath us, so drop the stale frame and re-read.
	if b.sup.ResyncNeeded() {
		b.haveFrame = false
		b.frame = capture.Frame{}
		log.Info("graphics resync: format now %s", b.sup.Format())
		b.sup.AckResync()
	}

	if frame, ok := b.sup.LatestFrame(); ok && frame.Seq != b.frame.Seq {
		b.frame = frame
		b.haveFrame = true
	}
	return nil
}

func (b *Bridge) keyboard() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		return b.apply(OpReload)
	case inpututil.IsKeyJustPressed(ebiten.KeyH):
		return b.apply(OpMirrorH)
	case inpututil.IsKeyJustPressed(ebiten.KeyV):
		return b.apply(OpMirrorV)
	case inpututil.IsKeyJustPressed(ebiten.KeyT):
		return b.apply(OpRotate)
	case inpututil.IsKeyJustPressed(ebiten.KeyF):
		return b.apply(OpFullscreen)
	case inpututil.IsKeyJustPressed(ebiten.KeyS):
		return b.apply(OpSnapshot)
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		return b.apply(OpRecover)
	case inpututil.IsKeyJustPressed(ebiten.KeyQ),
		inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		return b.apply(OpExit)
	}

	// Digits select the active segment.
	for d := ebiten.KeyDigit1; d <= ebiten.KeyDigit9; d++ {
		if inpututil.IsKeyJustPressed(d) {
			n := int(d-ebiten.KeyDigit1) + 1
			if n <= b.grid.Tile.SegmentsX*b.grid.Tile.SegmentsY {
				b.segment = n
				log.Info("segment %d", n)
			}
		}
	}
	return nil
}

func (b *Bridge) apply(op Op) error {
	log.Debug("op: %s", op)
	switch op {
	case OpReload:
		b.reload()
	case OpMirrorH:
		b.tf.FlipH = !b.tf.FlipH
		log.Info("mirror horizontal: %v", b.tf.FlipH)
	case OpMirrorV:
		b.tf.FlipV = !b.tf.FlipV
		log.Info("mirror vertical: %v", b.tf.FlipV)
	case OpRotate:
		b.tf.StepRotation()
		log.Info("rotation: %d quarter turns", b.tf.Rotation)
	case OpFullscreen:
		b.fullscreen = !b.fullscreen
		ebiten.SetFullscreen(b.fullscreen)
	case OpSnapshot:
		b.snapshotAsync()
	case OpRecover:
		b.sup.ForceRecover()
	case OpExit:
		return ebiten.Termination
	}
	return nil
}

// reload re-reads the grid configuration and offset files. Capture state
// is untouched; the new parameters take effect on the next draw because
// the parameter block is rebuilt every frame anyway.
func (b *Bridge) reload() {
	path := b.opts.ConfigPath
	if resolved, err := config.Resolve(path); err == nil {
		path = resolved
	}

	grid, err := config.Load(path)
	if err != nil {
		log.Warn("reload: %v (keeping previous configuration)", err)
		return
	}
	b.grid = grid

	capacity := b.tableCapacity()
	if got := len(grid.Modules) * config.OffsetsPerFile; got > capacity {
		log.Warn("offset sources hold %d entries but the grid has %d tiles; extra tiles reuse the last entry", got, capacity)
	}
	b.offsets = config.LoadOffsets(grid.OffsetPaths(), capacity)
	if b.segment > grid.Tile.SegmentsX*grid.Tile.SegmentsY {
		b.segment = 1
	}
	log.Info("configuration reloaded: %dx%d tiles, %d gap rows, %d offset files",
		grid.Tile.TilesPerRow, grid.Tile.TilesPerColumn, grid.Gaps.Len(), len(grid.Modules))
}

// buildParams assembles the complete parameter block for this frame.
func (b *Bridge) buildParams() Params {
	return Params{
		Grid:    b.grid.Tile,
		Gaps:    b.grid.Gaps,
		Offsets: b.offsets,
		Tf:      b.tf,
		Segment: b.segment,
		Matrix:  b.opts.Matrix,
		Range:   b.opts.Range,
	}
}

// Draw renders the current state. Parameters are re-pushed and the whole
// surface re-evaluated every frame; staleness after a reload must never
// survive into the next frame.
func (b *Bridge) Draw(screen *ebiten.Image) {
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	if b.out == nil || b.out.Bounds().Dx() != w || b.out.Bounds().Dy() != h {
		b.out = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	if b.sup.Degraded() || !b.haveFrame {
		b.drawFallback()
	} else {
		params := b.buildParams()
		if err := b.drawFrame(&params); err != nil {
			log.Warn("draw: %v", err)
			b.drawFallback()
		}
	}

	screen.WritePixels(b.out.Pix)
}

// drawFrame evaluates the tile mapper for every output pixel and samples
// the decoded frame.
func (b *Bridge) drawFrame(params *Params) error {
	frame, err := NewFrameImage(b.frame.Data, b.frame.Format)
	if err != nil {
		return err
	}

	fw, fh := float64(frame.Width()), float64(frame.Height())
	w, h := b.out.Bounds().Dx(), b.out.Bounds().Dy()
	for y := 0; y < h; y++ {
		row := b.out.Pix[y*b.out.Stride : y*b.out.Stride+w*4]
		for x := 0; x < w; x++ {
			var r, g, bl uint8
			if s, ok := params.MapPixel(x, y); ok {
				r, g, bl = frame.RGBAt(int(s.U*fw), int(s.V*fh), params.Matrix, params.Range)
			}
			row[x*4+0] = r
			row[x*4+1] = g
			row[x*4+2] = bl
			row[x*4+3] = 255
		}
	}
	return nil
}

func (b *Bridge) drawFallback() {
	if b.pattern != nil {
		scalePattern(b.out, b.pattern)
		return
	}
	scalePattern(b.out, colorBars(b.out.Bounds().Dx(), b.out.Bounds().Dy()))
}

// Layout renders 1:1 with the window.
func (b *Bridge) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth < 1 {
		outsideWidth = 1
	}
	if outsideHeight < 1 {
		outsideHeight = 1
	}
	return outsideWidth, outsideHeight
}
