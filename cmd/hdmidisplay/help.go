package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagDevice      string
	flagConfig      string
	flagInputFormat string
	flagWidth       int
	flagHeight      int
	flagMatrix      string
	flagRange       string
	flagPattern     string
	flagSnapshot    string
	flagControlAddr string
	flagOCRProgram  string
	flagOCRKey      string
	flagFullscreen  bool
	flagHelp        bool
	flagVersion     bool
)

func init() {
	flag.StringVarP(&flagDevice, "video-device", "d", "/dev/video0", "Video capture device")
	flag.StringVarP(&flagConfig, "config", "c", "control_ini.txt", "Grid configuration file")
	flag.StringVarP(&flagInputFormat, "input-format", "", "nv12", "Requested capture pixel format")
	flag.IntVarP(&flagWidth, "width", "x", 1920, "Requested capture width")
	flag.IntVarP(&flagHeight, "height", "y", 1080, "Requested capture height")
	flag.StringVarP(&flagMatrix, "matrix", "", "bt709", "YCbCr conversion matrix")
	flag.StringVarP(&flagRange, "range", "", "limited", "YCbCr sample range")
	flag.StringVarP(&flagPattern, "test-pattern", "", "", "Fallback image while input is down")
	flag.StringVarP(&flagSnapshot, "snapshot", "", "display.png", "Snapshot destination")
	flag.StringVarP(&flagControlAddr, "control-addr", "", "", "Websocket control listen address")
	flag.StringVarP(&flagOCRProgram, "ocr-program", "", "", "External reader for snapshots")
	flag.StringVarP(&flagOCRKey, "ocr-key", "", "value", "Key passed to the reader")
	flag.BoolVarP(&flagFullscreen, "fullscreen", "f", false, "Start fullscreen")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `HDMI capture to segmented tile-wall display

Usage: hdmidisplay [OPTION]...

Capture:
  -d, --video-device=FILE Video capture device (default: /dev/video0)
      --input-format=STR  Requested pixel format: nv12, nv16, yuyv, uyvy,
                          rgb24 or bgr24 (default: nv12)
  -x, --width=NUM         Requested capture width (default: 1920)
  -y, --height=NUM        Requested capture height (default: 1080)

Display:
  -c, --config=FILE       Grid configuration, looked up next to the
                          executable and then in the working directory
                          (default: control_ini.txt)
      --matrix=STR        YCbCr conversion matrix: bt601 or bt709
                          (default: bt709)
      --range=STR         YCbCr sample range: limited or full
                          (default: limited)
      --test-pattern=FILE Image shown while the input is down; built-in
                          color bars when omitted
  -f, --fullscreen        Start fullscreen

Control:
      --control-addr=ADDR Websocket control listen address
                          (default: disabled)
      --snapshot=FILE     Snapshot destination (default: display.png)
      --ocr-program=FILE  External reader run against each snapshot
                          (default: disabled)
      --ocr-key=STR       Key passed to the reader (default: value)

Miscellaneous:
  -h, --help              Prints this help message and exits
  -v, --version           Prints version information and exits`

// Help information is printed and program exits
func help() {
	color.New(color.FgCyan).Println("hdmidisplay")
	fmt.Println(helpString)
}
