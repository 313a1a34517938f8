package render

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
	xdraw "golang.org/x/image/draw"
)

// LoadPattern reads the fallback test pattern shown while the input is
// degraded. PNG and JPEG are accepted.
func LoadPattern(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "test pattern")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, errors.Wrap(err, "decoding test pattern")
}

// colorBars builds the built-in fallback: eight full-height bars in the
// classic 75% order.
func colorBars(w, h int) *image.RGBA {
	bars := [8][3]uint8{
		{191, 191, 191}, // white
		{191, 191, 0},   // yellow
		{0, 191, 191},   // cyan
		{0, 191, 0},     // green
		{191, 0, 191},   // magenta
		{191, 0, 0},     // red
		{0, 0, 191},     // blue
		{0, 0, 0},       // black
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		c := bars[x*8/w]
		for y := 0; y < h; y++ {
			off := img.PixOffset(x, y)
			img.Pix[off+0] = c[0]
			img.Pix[off+1] = c[1]
			img.Pix[off+2] = c[2]
			img.Pix[off+3] = 255
		}
	}
	return img
}

// scalePattern stretches the pattern over the destination buffer.
func scalePattern(dst *image.RGBA, src image.Image) {
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
}
