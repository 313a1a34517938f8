// Package config loads the grid/runtime configuration and the per-tile
// offset files. Everything here is reloadable at runtime without touching
// the capture side.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/seccouser/hdmi-in-display/internal/logging"
	"github.com/seccouser/hdmi-in-display/internal/tilegrid"
)

var log = logging.DefaultLogger.WithTag("config")

// Per-source offset files carry at most this many entries each.
const OffsetsPerFile = 50

// Grid is the parsed runtime configuration.
type Grid struct {
	Tile    tilegrid.Config
	Gaps    tilegrid.GapSet
	Modules []string // up to three module identifiers deriving offset file names
}

// Defaults returns the configuration used when no file is present.
func Defaults() Grid {
	return Grid{
		Tile: tilegrid.Config{
			TileWidth:      128,
			TileHeight:     64,
			SpacingX:       4,
			SpacingY:       4,
			MarginLeft:     0,
			TilesPerRow:    8,
			TilesPerColumn: 8,
			SegmentsX:      1,
			SegmentsY:      1,
			SubWidth:       1920,
			SubHeight:      1080,
			CanvasWidth:    1920,
			CanvasHeight:   1080,
			TopToBottom:    true,
		},
	}
}

// Load parses a key=value grid configuration file. Missing keys keep their
// defaults; unknown keys are ignored.
func Load(path string) (Grid, error) {
	g := Defaults()

	f, err := ini.Load(path)
	if err != nil {
		return g, errors.Wrap(err, "loading grid config")
	}
	s := f.Section("")

	t := &g.Tile
	t.CanvasWidth = s.Key("canvas_width").MustInt(t.CanvasWidth)
	t.CanvasHeight = s.Key("canvas_height").MustInt(t.CanvasHeight)
	t.SegmentsX = s.Key("segments_x").MustInt(t.SegmentsX)
	t.SegmentsY = s.Key("segments_y").MustInt(t.SegmentsY)
	t.SubWidth = s.Key("sub_width").MustInt(t.SubWidth)
	t.SubHeight = s.Key("sub_height").MustInt(t.SubHeight)
	t.TileWidth = s.Key("tile_width").MustInt(t.TileWidth)
	t.TileHeight = s.Key("tile_height").MustInt(t.TileHeight)
	t.SpacingX = s.Key("spacing_x").MustInt(t.SpacingX)
	t.SpacingY = s.Key("spacing_y").MustInt(t.SpacingY)
	t.MarginLeft = s.Key("margin_left").MustInt(t.MarginLeft)
	t.TilesPerRow = s.Key("tiles_per_row").MustInt(t.TilesPerRow)
	t.TilesPerColumn = s.Key("tiles_per_column").MustInt(t.TilesPerColumn)
	t.TopToBottom = s.Key("source_top_to_bottom").MustBool(t.TopToBottom)

	for _, part := range strings.Split(s.Key("gap_rows").String(), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		row, err := strconv.Atoi(part)
		if err != nil {
			log.Warn("ignoring malformed gap row %q", part)
			continue
		}
		g.Gaps.Add(row)
	}

	for _, key := range []string{"module1", "module2", "module3"} {
		if m := strings.TrimSpace(s.Key(key).String()); m != "" {
			g.Modules = append(g.Modules, m)
		}
	}

	return g, nil
}

// OffsetPaths derives the offset file names from the module identifiers
// and resolves each one.
func (g Grid) OffsetPaths() []string {
	var paths []string
	for _, m := range g.Modules {
		name := "offsets_" + m + ".txt"
		if p, err := Resolve(name); err == nil {
			paths = append(paths, p)
		} else {
			log.Warn("offset file %s not found", name)
		}
	}
	return paths
}

// Resolve searches for name in the executable's directory first, then the
// current working directory. First hit wins; no merging.
func Resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", err
		}
		return name, nil
	}

	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	dirs = append(dirs, ".")

	for _, dir := range dirs {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errors.Errorf("config: %s not found", name)
}
