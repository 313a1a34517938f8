package render

import (
	"github.com/seccouser/hdmi-in-display/internal/tilegrid"
)

// Params is the full per-frame parameter block handed to the tile mapper:
// grid geometry scalars, gap rows, the flat per-tile offset table,
// rotation/flip state, the active segment and the sample-decode modes.
//
// It is rebuilt from scratch every frame. After a runtime reload nothing
// stale can survive into the next draw, and surface reallocation after a
// recovery needs no separate invalidation protocol. Deliberate; see the
// design notes before adding caching here.
type Params struct {
	Grid    tilegrid.Config
	Gaps    tilegrid.GapSet
	Offsets tilegrid.OffsetTable
	Tf      tilegrid.Transform
	Segment int

	Matrix Matrix
	Range  Range
}

// MapPixel resolves one output pixel through the tile grid.
func (p *Params) MapPixel(x, y int) (tilegrid.Sample, bool) {
	return tilegrid.Map(x, y, p.Segment, p.Grid, p.Gaps, p.Offsets, p.Tf)
}
