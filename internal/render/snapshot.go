package render

import (
	"image"
	"image/png"
	"os"
)

// snapshotAsync writes the most recent decoded frame to disk on a
// detached worker. The frame copy is taken at invocation time, so the
// worker never reads live capture buffers; conversion goes through the
// same matrix/range path as the display.
func (b *Bridge) snapshotAsync() {
	if !b.haveFrame {
		log.Warn("snapshot requested with no frame available")
		return
	}

	frame := b.frame // capture.Frame copies are already immutable
	matrix, rng := b.opts.Matrix, b.opts.Range
	path := b.opts.SnapshotPath
	after := b.opts.OnSnapshot

	go func() {
		src, err := NewFrameImage(frame.Data, frame.Format)
		if err != nil {
			log.Error("snapshot: %v", err)
			return
		}

		w, h := src.Width(), src.Height()
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, bl := src.RGBAt(x, y, matrix, rng)
				off := img.PixOffset(x, y)
				img.Pix[off+0] = r
				img.Pix[off+1] = g
				img.Pix[off+2] = bl
				img.Pix[off+3] = 255
			}
		}

		f, err := os.Create(path)
		if err != nil {
			log.Error("snapshot: %v", err)
			return
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			log.Error("snapshot encode: %v", err)
			return
		}
		if err := f.Close(); err != nil {
			log.Error("snapshot close: %v", err)
			return
		}
		log.Info("snapshot written: %s (%dx%d, frame %d)", path, w, h, frame.Seq)

		if after != nil {
			after(path)
		}
	}()
}
