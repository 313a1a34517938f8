package v4l2

import "fmt"

// Pixel format fourcc codes, little-endian as the kernel defines them.
const (
	PixFmtNV12  = 'N' | 'V'<<8 | '1'<<16 | '2'<<24
	PixFmtNV16  = 'N' | 'V'<<8 | '1'<<16 | '6'<<24
	PixFmtYUYV  = 'Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24
	PixFmtUYVY  = 'U' | 'Y'<<8 | 'V'<<16 | 'Y'<<24
	PixFmtBGR24 = 'B' | 'G'<<8 | 'R'<<16 | '3'<<24
	PixFmtRGB24 = 'R' | 'G'<<8 | 'B'<<16 | '3'<<24
)

// Format describes the negotiated capture format. Only a successful
// NegotiateFormat mutates it; the driver's adjusted values always win over
// the requested ones.
type Format struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	BytesPerLine uint32
	SizeImage    uint32
}

// NumPlanes reports how many distinct planes the frame layout carries.
// NV12/NV16 pack a luma plane plus one interleaved chroma plane; the packed
// and truecolor formats are single-plane.
func (f Format) NumPlanes() int {
	switch f.PixelFormat {
	case PixFmtNV12, PixFmtNV16:
		return 2
	default:
		return 1
	}
}

// Valid reports whether the format describes a readable frame. A
// source-change event may deliver a zero-sized format; callers must treat
// that the same as a format-changed error.
func (f Format) Valid() bool {
	return f.Width > 0 && f.Height > 0 && f.PixelFormat != 0
}

// FourCC renders the pixel format code as its four-character tag.
func (f Format) FourCC() string {
	b := []byte{
		byte(f.PixelFormat),
		byte(f.PixelFormat >> 8),
		byte(f.PixelFormat >> 16),
		byte(f.PixelFormat >> 24),
	}
	for i, c := range b {
		if c < ' ' || c > '~' {
			b[i] = '?'
		}
	}
	return string(b)
}

func (f Format) String() string {
	return fmt.Sprintf("%dx%d %s (%d bytes)", f.Width, f.Height, f.FourCC(), f.SizeImage)
}
