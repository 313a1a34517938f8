package tilegrid

// Map resolves one output pixel to a source sample. The second return is
// false when the pixel is not covered by any tile (margins, bezels and the
// holes left by shifted tiles all render background, never interpolate).
//
// segment is 1-based, row-major over SegmentsX x SegmentsY.
func Map(outX, outY, segment int, cfg Config, gaps GapSet, offsets OffsetTable, tf Transform) (Sample, bool) {
	if cfg.TileWidth <= 0 || cfg.TileHeight <= 0 ||
		cfg.TilesPerRow <= 0 || cfg.TilesPerColumn <= 0 {
		return Sample{}, false
	}

	// Active segment's sub-rectangle origin in the source canvas.
	segX, segY := segmentOrigin(segment, cfg)

	// Column by pitch division. Pixels inside the horizontal spacing still
	// resolve to a column here; the shifted-rectangle test below decides
	// coverage.
	cx := outX - cfg.MarginLeft
	if cx < 0 {
		return Sample{}, false
	}
	pitchX := cfg.TileWidth + cfg.SpacingX
	col := cx / pitchX
	if col >= cfg.TilesPerRow {
		return Sample{}, false
	}

	// Row by walking accumulated heights, omitting spacing at collapsed
	// boundaries.
	row, rowTop, found := findRow(outY, cfg, gaps)
	if !found {
		return Sample{}, false
	}

	// Flat tile slot, clamped into the offset table.
	index := row*cfg.TilesPerRow + col
	dx, dy := offsets.At(index)

	// Tile display rectangle: nominal rectangle shifted by the tile's
	// offset. Outside it, this pixel shows background.
	x0 := cfg.MarginLeft + col*pitchX + dx
	y0 := rowTop + dy
	if outX < x0 || outX >= x0+cfg.TileWidth || outY < y0 || outY >= y0+cfg.TileHeight {
		return Sample{}, false
	}
	px := outX - x0
	py := outY - y0

	// Source row selection is independent of where the tile displays.
	srcRow := row
	if !cfg.TopToBottom {
		srcRow = cfg.TilesPerColumn - 1 - row
	}

	sx := segX + cfg.TileWidth*col + px
	sy := segY + cfg.TileHeight*srcRow + py
	sx = clampInt(sx, 0, cfg.CanvasWidth-1)
	sy = clampInt(sy, 0, cfg.CanvasHeight-1)

	// Unit sample space, then rotation about the center, then flips.
	s := Sample{
		U: (float64(sx) + 0.5) / float64(cfg.CanvasWidth),
		V: (float64(sy) + 0.5) / float64(cfg.CanvasHeight),
	}
	return tf.Apply(s), true
}

// segmentOrigin returns the sub-rectangle origin for a 1-based segment
// index. Out-of-range segments fall back to the first.
func segmentOrigin(segment int, cfg Config) (int, int) {
	if cfg.SegmentsX < 1 || cfg.SegmentsY < 1 {
		return 0, 0
	}
	s := segment - 1
	if s < 0 || s >= cfg.SegmentsX*cfg.SegmentsY {
		s = 0
	}
	return (s % cfg.SegmentsX) * cfg.SubWidth, (s / cfg.SegmentsX) * cfg.SubHeight
}

// findRow walks rows from the top. A row's search extent covers its height
// plus trailing spacing (unless collapsed), so spacing pixels resolve to
// the row above and fail the rectangle test unless an offset pulls the
// tile down into them.
func findRow(outY int, cfg Config, gaps GapSet) (row, top int, found bool) {
	if outY < 0 {
		return 0, 0, false
	}
	acc := 0
	for r := 0; r < cfg.TilesPerColumn; r++ {
		extent := cfg.TileHeight
		if r < cfg.TilesPerColumn-1 && !gaps.Collapsed(r+1) {
			extent += cfg.SpacingY
		}
		if outY < acc+extent {
			return r, acc, true
		}
		acc += extent
	}
	return 0, 0, false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
