package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadGrid(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "control_ini.txt", `
# wall geometry
canvas_width = 3840
canvas_height = 2160
segments_x = 2
segments_y = 2
sub_width = 1920
sub_height = 1080
tile_width = 96
tile_height = 48
spacing_x = 8
spacing_y = 6
margin_left = 12
tiles_per_row = 10
tiles_per_column = 15
source_top_to_bottom = false
gap_rows = 5, 10
module1 = alpha
module2 = beta
`)

	g, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 3840, g.Tile.CanvasWidth)
	assert.Equal(t, 2, g.Tile.SegmentsX)
	assert.Equal(t, 96, g.Tile.TileWidth)
	assert.Equal(t, 12, g.Tile.MarginLeft)
	assert.Equal(t, 15, g.Tile.TilesPerColumn)
	assert.False(t, g.Tile.TopToBottom)
	assert.Equal(t, 2, g.Gaps.Len())
	assert.True(t, g.Gaps.Collapsed(5))
	assert.True(t, g.Gaps.Collapsed(10))
	assert.Equal(t, []string{"alpha", "beta"}, g.Modules)
}

func TestLoadGridDefaultsForMissingKeys(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "control_ini.txt", "tile_width = 200\n")

	g, err := Load(p)
	require.NoError(t, err)

	def := Defaults()
	assert.Equal(t, 200, g.Tile.TileWidth)
	assert.Equal(t, def.Tile.TileHeight, g.Tile.TileHeight)
	assert.Equal(t, def.Tile.TilesPerRow, g.Tile.TilesPerRow)
	assert.True(t, g.Tile.TopToBottom)
	assert.Equal(t, 0, g.Gaps.Len())
	assert.Empty(t, g.Modules)
}

func TestLoadGridMissingFile(t *testing.T) {
	g, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
	// Defaults still usable for startup without a config file.
	assert.Equal(t, Defaults().Tile, g.Tile)
}

func TestLoadOffsetsWorkedExample(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "offsets_alpha.txt", "-3 5\n0 0\n2 -1\n")

	table := LoadOffsets([]string{p}, 6)
	require.Equal(t, 6, table.Len())

	assert.Equal(t, []int{-3, 0, 2, 0, 0, 0}, table.DX)
	assert.Equal(t, []int{5, 0, -1, 0, 0, 0}, table.DY)
}

func TestLoadOffsetsSkipsMalformedWithoutShifting(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "offsets.txt", `
# header comment
-3 5

garbage line
0 0
12 notanumber
2 -1
`)

	table := LoadOffsets([]string{p}, 4)

	// Valid entries fill consecutive slots; nothing shifted by the junk.
	assert.Equal(t, []int{-3, 0, 2, 0}, table.DX)
	assert.Equal(t, []int{5, 0, -1, 0}, table.DY)
}

func TestLoadOffsetsThreeFileBlocks(t *testing.T) {
	dir := t.TempDir()
	p1 := writeFile(t, dir, "a.txt", "1 1\n")
	p2 := writeFile(t, dir, "b.txt", "2 2\n")
	p3 := writeFile(t, dir, "c.txt", "3 3\n")

	table := LoadOffsets([]string{p1, p2, p3}, 150)
	require.Equal(t, 150, table.Len())

	// File f fills slots f*50 onward.
	assert.Equal(t, 1, table.DX[0])
	assert.Equal(t, 2, table.DX[50])
	assert.Equal(t, 3, table.DX[100])
	assert.Equal(t, 0, table.DX[1])
	assert.Equal(t, 0, table.DX[51])
}

func TestLoadOffsetsCapacityAlwaysExact(t *testing.T) {
	dir := t.TempDir()

	// 60 lines: entries beyond the 50-entry block are ignored.
	long := ""
	for i := 0; i < 60; i++ {
		long += "9 9\n"
	}
	p := writeFile(t, dir, "long.txt", long)

	table := LoadOffsets([]string{p}, 12)
	assert.Equal(t, 12, table.Len())

	table = LoadOffsets([]string{p}, 80)
	require.Equal(t, 80, table.Len())
	assert.Equal(t, 9, table.DX[49])
	assert.Equal(t, 0, table.DX[50]) // line 51 ignored, not spilled

	// Missing file: table still exactly capacity, zero-filled.
	table = LoadOffsets([]string{filepath.Join(dir, "missing.txt")}, 5)
	assert.Equal(t, []int{0, 0, 0, 0, 0}, table.DX)
}

func TestResolvePrefersExecutableDir(t *testing.T) {
	// The executable-relative directory is searched first; fall back to
	// cwd. Exercise the cwd branch, which is stable under 'go test'.
	dir := t.TempDir()
	writeFile(t, dir, "control_ini.txt", "tile_width = 1\n")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	p, err := Resolve("control_ini.txt")
	require.NoError(t, err)
	assert.FileExists(t, p)

	_, err = Resolve("definitely_not_here.txt")
	assert.Error(t, err)
}
