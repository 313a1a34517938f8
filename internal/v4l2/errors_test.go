package v4l2

import (
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Class
	}{
		{syscall.EAGAIN, ClassTransient},
		{syscall.EINVAL, ClassFormatChanged},
		{syscall.EPIPE, ClassFormatChanged},
		{syscall.EIO, ClassFatalIO},
		{syscall.ENODEV, ClassFatalIO},
		{syscall.ENOMEM, ClassOther},
		{errors.New("not an errno"), ClassOther},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.err), "%v", c.err)
	}
}

func TestClassifyWrapped(t *testing.T) {
	// Errors come back annotated with the ioctl name; classification must
	// still see through the wrapping.
	err := errors.Wrap(syscall.EIO, "VIDIOC_DQBUF")
	assert.Equal(t, ClassFatalIO, Classify(err))
}

func TestFormatValid(t *testing.T) {
	assert.False(t, Format{}.Valid())
	assert.False(t, Format{Width: 1920, Height: 0, PixelFormat: PixFmtNV12}.Valid())
	assert.True(t, Format{Width: 1920, Height: 1080, PixelFormat: PixFmtNV12}.Valid())
}

func TestFormatPlanes(t *testing.T) {
	assert.Equal(t, 2, Format{PixelFormat: PixFmtNV12}.NumPlanes())
	assert.Equal(t, 2, Format{PixelFormat: PixFmtNV16}.NumPlanes())
	assert.Equal(t, 1, Format{PixelFormat: PixFmtYUYV}.NumPlanes())
	assert.Equal(t, 1, Format{PixelFormat: PixFmtBGR24}.NumPlanes())
}

func TestFourCC(t *testing.T) {
	assert.Equal(t, "NV12", Format{PixelFormat: PixFmtNV12}.FourCC())
	assert.Equal(t, "YUYV", Format{PixelFormat: PixFmtYUYV}.FourCC())
}
