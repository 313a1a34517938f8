// Package tilegrid maps output pixels of a physically segmented display
// wall onto source sample coordinates. The mapping is pure arithmetic so
// it can run per-pixel on the render path and be verified on the host.
package tilegrid

// Config describes the tile wall geometry and how it addresses the source
// canvas.
type Config struct {
	TileWidth  int
	TileHeight int

	// Pixel spacing between neighboring tiles, modeling panel bezels.
	SpacingX int
	SpacingY int

	// Left margin before the first column.
	MarginLeft int

	TilesPerRow    int
	TilesPerColumn int

	// Coarse subdivision of the source canvas. One segment's sub-rectangle
	// feeds the whole tile grid; the active segment is selected at runtime.
	SegmentsX int
	SegmentsY int

	// Per-segment sub-rectangle size within the canvas.
	SubWidth  int
	SubHeight int

	// Full source canvas size.
	CanvasWidth  int
	CanvasHeight int

	// TopToBottom selects source-row ordering. When false, tile row r
	// samples source row (TilesPerColumn-1-r), decoupling where a tile
	// displays from where it samples.
	TopToBottom bool
}

// GapCapacity bounds the number of collapsible row boundaries.
const GapCapacity = 8

// GapSet holds 1-based row boundaries with no vertical spacing. Boundary g
// means rows g and g+1 sit flush, modeling a seamless physical seam.
type GapSet struct {
	rows [GapCapacity]int
	n    int
}

// NewGapSet builds a set from the given boundaries, ignoring duplicates
// and anything beyond capacity.
func NewGapSet(boundaries ...int) GapSet {
	var g GapSet
	for _, b := range boundaries {
		g.Add(b)
	}
	return g
}

// Add inserts a boundary. Silently ignored once the set is full.
func (g *GapSet) Add(boundary int) {
	if g.n >= GapCapacity || g.Collapsed(boundary) {
		return
	}
	g.rows[g.n] = boundary
	g.n++
}

// Collapsed reports whether the spacing below 1-based row boundary is
// removed.
func (g *GapSet) Collapsed(boundary int) bool {
	for i := 0; i < g.n; i++ {
		if g.rows[i] == boundary {
			return true
		}
	}
	return false
}

// Len reports the number of configured boundaries.
func (g *GapSet) Len() int {
	return g.n
}

// Rows returns the configured boundaries in insertion order.
func (g *GapSet) Rows() []int {
	return append([]int(nil), g.rows[:g.n]...)
}

// OffsetTable holds per-tile pixel shifts, one entry per tile slot in
// row-major order. Missing entries read as (0,0).
type OffsetTable struct {
	DX []int
	DY []int
}

// NewOffsetTable returns a zero-filled table with the given capacity.
func NewOffsetTable(capacity int) OffsetTable {
	if capacity < 1 {
		capacity = 1
	}
	return OffsetTable{
		DX: make([]int, capacity),
		DY: make([]int, capacity),
	}
}

// At returns the offset for a flat tile index. Indexes past capacity reuse
// the last slot; a grid configured larger than the table silently shares
// that entry. Known limitation, kept deliberately.
func (t OffsetTable) At(index int) (dx, dy int) {
	if len(t.DX) == 0 {
		return 0, 0
	}
	if index < 0 {
		index = 0
	}
	if index >= len(t.DX) {
		index = len(t.DX) - 1
	}
	return t.DX[index], t.DY[index]
}

// Len reports the table capacity.
func (t OffsetTable) Len() int {
	return len(t.DX)
}

// Transform is the runtime rotation/mirror state applied in sample space,
// to the source sampling rather than the destination.
type Transform struct {
	// Rotation in quarter turns, 0..3.
	Rotation int

	FlipH bool
	FlipV bool
}

// StepRotation advances the rotation one quarter turn.
func (tf *Transform) StepRotation() {
	tf.Rotation = (tf.Rotation + 1) & 3
}

// Apply rotates the sample about the center of unit space by the
// configured quarter turns, applies the mirrors, and clamps into [0,1].
func (tf Transform) Apply(s Sample) Sample {
	u, v := s.U, s.V
	for i := 0; i < tf.Rotation&3; i++ {
		u, v = 1-v, u
	}
	if tf.FlipH {
		u = 1 - u
	}
	if tf.FlipV {
		v = 1 - v
	}
	return Sample{U: clampFloat(u), V: clampFloat(v)}
}

// Sample is a source coordinate in unit sample space.
type Sample struct {
	U float64
	V float64
}

// GridWidth is the nominal width of the tile grid including margin and
// inter-tile spacing.
func GridWidth(cfg Config) int {
	if cfg.TilesPerRow < 1 {
		return 0
	}
	return cfg.MarginLeft + cfg.TilesPerRow*cfg.TileWidth + (cfg.TilesPerRow-1)*cfg.SpacingX
}

// GridHeight is the total grid height: the sum of all row heights plus
// vertical spacing, except at collapsed boundaries.
func GridHeight(cfg Config, gaps GapSet) int {
	h := 0
	for r := 0; r < cfg.TilesPerColumn; r++ {
		h += cfg.TileHeight
		if r < cfg.TilesPerColumn-1 && !gaps.Collapsed(r+1) {
			h += cfg.SpacingY
		}
	}
	return h
}
