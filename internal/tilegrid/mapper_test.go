package tilegrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A 4x3 wall of 100x50 tiles over a 1920x1080 canvas split into 2x2
// segments. No gaps, no offsets unless a test says otherwise.
func testConfig() Config {
	return Config{
		TileWidth:      100,
		TileHeight:     50,
		SpacingX:       10,
		SpacingY:       6,
		MarginLeft:     20,
		TilesPerRow:    4,
		TilesPerColumn: 3,
		SegmentsX:      2,
		SegmentsY:      2,
		SubWidth:       960,
		SubHeight:      540,
		CanvasWidth:    1920,
		CanvasHeight:   1080,
		TopToBottom:    true,
	}
}

func emptyOffsets(cfg Config) OffsetTable {
	return NewOffsetTable(cfg.TilesPerRow * cfg.TilesPerColumn)
}

func TestRotationFourTimesIsIdentity(t *testing.T) {
	s := Sample{U: 0.21, V: 0.84}
	for r := 0; r < 4; r++ {
		tf := Transform{Rotation: r}
		got := s
		for i := 0; i < 4; i++ {
			got = tf.Apply(got)
		}
		assert.InDelta(t, s.U, got.U, 1e-12, "rotation %d", r)
		assert.InDelta(t, s.V, got.V, 1e-12, "rotation %d", r)
	}
}

func TestFlipTwiceIsIdentity(t *testing.T) {
	s := Sample{U: 0.3, V: 0.66}
	for _, tf := range []Transform{
		{FlipH: true},
		{FlipV: true},
		{FlipH: true, FlipV: true},
	} {
		got := tf.Apply(tf.Apply(s))
		assert.InDelta(t, s.U, got.U, 1e-12)
		assert.InDelta(t, s.V, got.V, 1e-12)
	}
}

func TestStepRotationWraps(t *testing.T) {
	var tf Transform
	for i := 1; i <= 4; i++ {
		tf.StepRotation()
		assert.Equal(t, i&3, tf.Rotation)
	}
}

func TestGridHeightGapFormula(t *testing.T) {
	cfg := testConfig()
	cfg.TilesPerColumn = 15

	base := GridHeight(cfg, GapSet{})
	assert.Equal(t, 15*cfg.TileHeight+14*cfg.SpacingY, base)

	// GapSet {5, 10} over 15 rows collapses exactly two spacings.
	gaps := NewGapSet(5, 10)
	assert.Equal(t, base-2*cfg.SpacingY, GridHeight(cfg, gaps))

	// Generally: height = sum of tile heights + spacing*(rows-1-|gaps|).
	assert.Equal(t,
		15*cfg.TileHeight+cfg.SpacingY*(15-1-gaps.Len()),
		GridHeight(cfg, gaps))
}

func TestGapSetCapacityAndDedup(t *testing.T) {
	var g GapSet
	for i := 1; i <= 12; i++ {
		g.Add(i)
	}
	assert.Equal(t, GapCapacity, g.Len())

	g2 := NewGapSet(3, 3, 3)
	assert.Equal(t, 1, g2.Len())
	assert.True(t, g2.Collapsed(3))
	assert.False(t, g2.Collapsed(4))
}

func TestMapFirstTileTopLeft(t *testing.T) {
	cfg := testConfig()

	// First pixel of tile (0,0) samples the segment origin.
	s, ok := Map(cfg.MarginLeft, 0, 1, cfg, GapSet{}, emptyOffsets(cfg), Transform{})
	require.True(t, ok)
	assert.InDelta(t, 0.5/float64(cfg.CanvasWidth), s.U, 1e-12)
	assert.InDelta(t, 0.5/float64(cfg.CanvasHeight), s.V, 1e-12)
}

func TestMapMarginAndSpacingNotCovered(t *testing.T) {
	cfg := testConfig()
	off := emptyOffsets(cfg)

	// Left margin.
	_, ok := Map(0, 0, 1, cfg, GapSet{}, off, Transform{})
	assert.False(t, ok)

	// Horizontal bezel between columns 0 and 1.
	_, ok = Map(cfg.MarginLeft+cfg.TileWidth+2, 0, 1, cfg, GapSet{}, off, Transform{})
	assert.False(t, ok)

	// Vertical bezel between rows 0 and 1.
	_, ok = Map(cfg.MarginLeft, cfg.TileHeight+1, 1, cfg, GapSet{}, off, Transform{})
	assert.False(t, ok)

	// Beyond the last column.
	right := cfg.MarginLeft + cfg.TilesPerRow*(cfg.TileWidth+cfg.SpacingX)
	_, ok = Map(right, 0, 1, cfg, GapSet{}, off, Transform{})
	assert.False(t, ok)

	// Below the last row.
	_, ok = Map(cfg.MarginLeft, GridHeight(cfg, GapSet{})+1, 1, cfg, GapSet{}, off, Transform{})
	assert.False(t, ok)
}

func TestMapOffsetShiftsDisplayRect(t *testing.T) {
	cfg := testConfig()
	off := emptyOffsets(cfg)

	// Tile slot 5 = row 1, column 1. Shift it by (-3, +5).
	off.DX[5], off.DY[5] = -3, 5

	nominalX := cfg.MarginLeft + 1*(cfg.TileWidth+cfg.SpacingX)
	nominalY := cfg.TileHeight + cfg.SpacingY

	// The nominal top edge is vacated by the downward shift and renders
	// background.
	_, ok := Map(nominalX, nominalY, 1, cfg, GapSet{}, off, Transform{})
	assert.False(t, ok)

	// So is the strip past the shifted right edge.
	_, ok = Map(nominalX+cfg.TileWidth-2, nominalY+5, 1, cfg, GapSet{}, off, Transform{})
	assert.False(t, ok)

	// A pixel inside the shifted rectangle samples relative to the shifted
	// origin: (nominalX, nominalY+5) is (3, 0) within the tile.
	s, ok := Map(nominalX, nominalY+5, 1, cfg, GapSet{}, off, Transform{})
	require.True(t, ok)
	wantX := float64(cfg.TileWidth*1+3) + 0.5
	wantY := float64(cfg.TileHeight*1) + 0.5
	assert.InDelta(t, wantX/float64(cfg.CanvasWidth), s.U, 1e-12)
	assert.InDelta(t, wantY/float64(cfg.CanvasHeight), s.V, 1e-12)
}

func TestMapGapCollapsesRowBoundary(t *testing.T) {
	cfg := testConfig()
	off := emptyOffsets(cfg)
	gaps := NewGapSet(1) // rows 1 and 2 sit flush

	// Without the gap, outY == TileHeight falls in the bezel. With the
	// boundary collapsed it is the first pixel of row 1.
	s, ok := Map(cfg.MarginLeft, cfg.TileHeight, 1, cfg, gaps, off, Transform{})
	require.True(t, ok)
	wantY := float64(cfg.TileHeight*1) + 0.5
	assert.InDelta(t, wantY/float64(cfg.CanvasHeight), s.V, 1e-12)
}

func TestMapBottomToTopSourceOrder(t *testing.T) {
	cfg := testConfig()
	cfg.TopToBottom = false
	off := emptyOffsets(cfg)

	// Display row 0 samples source row TilesPerColumn-1.
	s, ok := Map(cfg.MarginLeft, 0, 1, cfg, GapSet{}, off, Transform{})
	require.True(t, ok)
	wantY := float64(cfg.TileHeight*(cfg.TilesPerColumn-1)) + 0.5
	assert.InDelta(t, wantY/float64(cfg.CanvasHeight), s.V, 1e-12)
}

func TestMapSegmentOrigin(t *testing.T) {
	cfg := testConfig()
	off := emptyOffsets(cfg)

	// Segment 4 (row-major over 2x2) starts at (SubWidth, SubHeight).
	s, ok := Map(cfg.MarginLeft, 0, 4, cfg, GapSet{}, off, Transform{})
	require.True(t, ok)
	assert.InDelta(t, (float64(cfg.SubWidth)+0.5)/float64(cfg.CanvasWidth), s.U, 1e-12)
	assert.InDelta(t, (float64(cfg.SubHeight)+0.5)/float64(cfg.CanvasHeight), s.V, 1e-12)
}

func TestOffsetTableClampReusesLastSlot(t *testing.T) {
	// A grid larger than the table reuses the final entry rather than
	// failing.
	off := NewOffsetTable(3)
	off.DX[2], off.DY[2] = 7, -2

	dx, dy := off.At(2)
	assert.Equal(t, 7, dx)
	assert.Equal(t, -2, dy)

	dx, dy = off.At(99)
	assert.Equal(t, 7, dx)
	assert.Equal(t, -2, dy)
}

func TestMapRejectsDegenerateConfig(t *testing.T) {
	_, ok := Map(0, 0, 1, Config{}, GapSet{}, NewOffsetTable(1), Transform{})
	assert.False(t, ok)
}
