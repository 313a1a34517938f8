package render

import (
	"github.com/pkg/errors"

	"github.com/seccouser/hdmi-in-display/internal/v4l2"
)

// FrameImage wraps one captured frame's raw bytes and decodes its plane
// layout on demand: planar luma plus interleaved chroma (NV12/NV16),
// packed 4:2:2 (YUYV/UYVY), or raw truecolor fallback (RGB24/BGR24).
type FrameImage struct {
	data   []byte
	format v4l2.Format
	stride int
}

// NewFrameImage validates that the buffer is big enough for the declared
// format and prepares per-plane addressing.
func NewFrameImage(data []byte, format v4l2.Format) (*FrameImage, error) {
	if !format.Valid() {
		return nil, errors.Errorf("render: unusable format %s", format)
	}

	w, h := int(format.Width), int(format.Height)
	stride := int(format.BytesPerLine)
	var need int
	switch format.PixelFormat {
	case v4l2.PixFmtNV12:
		if stride == 0 {
			stride = w
		}
		need = stride*h + stride*h/2
	case v4l2.PixFmtNV16:
		if stride == 0 {
			stride = w
		}
		need = stride * h * 2
	case v4l2.PixFmtYUYV, v4l2.PixFmtUYVY:
		if stride == 0 {
			stride = 2 * w
		}
		need = stride * h
	case v4l2.PixFmtRGB24, v4l2.PixFmtBGR24:
		if stride == 0 {
			stride = 3 * w
		}
		need = stride * h
	default:
		return nil, errors.Errorf("render: unsupported pixel format %s", format.FourCC())
	}

	if len(data) < need {
		return nil, errors.Errorf("render: frame is %d bytes, format %s needs %d",
			len(data), format, need)
	}
	return &FrameImage{data: data, format: format, stride: stride}, nil
}

func (f *FrameImage) Width() int  { return int(f.format.Width) }
func (f *FrameImage) Height() int { return int(f.format.Height) }

// RGBAt decodes the pixel at (x, y) and converts it to RGB using the
// given matrix and range. Coordinates are clamped into the frame.
func (f *FrameImage) RGBAt(x, y int, m Matrix, rng Range) (r, g, b uint8) {
	w, h := f.Width(), f.Height()
	if x < 0 {
		x = 0
	} else if x >= w {
		x = w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= h {
		y = h - 1
	}

	switch f.format.PixelFormat {
	case v4l2.PixFmtNV12:
		luma := f.data[y*f.stride+x]
		uv := f.stride*h + (y/2)*f.stride + (x &^ 1)
		return YCbCrToRGB(luma, f.data[uv], f.data[uv+1], m, rng)

	case v4l2.PixFmtNV16:
		luma := f.data[y*f.stride+x]
		uv := f.stride*h + y*f.stride + (x &^ 1)
		return YCbCrToRGB(luma, f.data[uv], f.data[uv+1], m, rng)

	case v4l2.PixFmtYUYV:
		// Y0 Cb Y1 Cr per macropixel.
		off := y*f.stride + (x&^1)*2
		return YCbCrToRGB(f.data[off+(x&1)*2], f.data[off+1], f.data[off+3], m, rng)

	case v4l2.PixFmtUYVY:
		// Cb Y0 Cr Y1 per macropixel.
		off := y*f.stride + (x&^1)*2
		return YCbCrToRGB(f.data[off+1+(x&1)*2], f.data[off], f.data[off+2], m, rng)

	case v4l2.PixFmtBGR24:
		off := y*f.stride + x*3
		return f.data[off+2], f.data[off+1], f.data[off]

	default: // RGB24
		off := y*f.stride + x*3
		return f.data[off], f.data[off+1], f.data[off+2]
	}
}
