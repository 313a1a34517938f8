package render

// Matrix selects the YCbCr-to-RGB conversion coefficients.
type Matrix int

const (
	MatrixBT601 Matrix = iota
	MatrixBT709
)

func (m Matrix) String() string {
	if m == MatrixBT709 {
		return "bt709"
	}
	return "bt601"
}

// Range selects between studio-swing and full-swing sample coding.
type Range int

const (
	RangeLimited Range = iota
	RangeFull
)

func (r Range) String() string {
	if r == RangeFull {
		return "full"
	}
	return "limited"
}

// YCbCrToRGB converts one sample. The live draw path and the snapshot
// encoder both go through here, which is what keeps screenshots
// pixel-identical to the display.
func YCbCrToRGB(y, cb, cr uint8, m Matrix, rng Range) (r, g, b uint8) {
	var yf, cbf, crf float64
	if rng == RangeLimited {
		yf = (float64(y) - 16) * (255.0 / 219.0)
		cbf = (float64(cb) - 128) * (255.0 / 224.0)
		crf = (float64(cr) - 128) * (255.0 / 224.0)
	} else {
		yf = float64(y)
		cbf = float64(cb) - 128
		crf = float64(cr) - 128
	}

	var rf, gf, bf float64
	switch m {
	case MatrixBT709:
		rf = yf + 1.5748*crf
		gf = yf - 0.187324*cbf - 0.468124*crf
		bf = yf + 1.8556*cbf
	default:
		rf = yf + 1.402*crf
		gf = yf - 0.344136*cbf - 0.714136*crf
		bf = yf + 1.772*cbf
	}
	return clamp8(rf), clamp8(gf), clamp8(bf)
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
