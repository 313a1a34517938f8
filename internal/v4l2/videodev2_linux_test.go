//go:build linux && (amd64 || arm64)

package v4l2

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

// The kernel reads and writes these structs by offset, not by field name.
// Sizes alone can match while fields sit in padding; pin the offsets the
// ioctl paths actually dereference.
func TestEventLayoutMatchesKernelABI(t *testing.T) {
	var ev v4l2_event
	assert.Equal(t, uintptr(0), unsafe.Offsetof(ev.typ))
	assert.Equal(t, uintptr(8), unsafe.Offsetof(ev.u), "union is 8-aligned by the ctrl member's __s64")
	assert.Equal(t, uintptr(72), unsafe.Offsetof(ev.pending))
	assert.Equal(t, uintptr(76), unsafe.Offsetof(ev.sequence))
	assert.Equal(t, uintptr(80), unsafe.Offsetof(ev.timestamp))
	assert.Equal(t, uintptr(96), unsafe.Offsetof(ev.id))
}

func TestBufferLayoutMatchesKernelABI(t *testing.T) {
	var buf v4l2_buffer
	assert.Equal(t, uintptr(24), unsafe.Offsetof(buf.timestamp))
	assert.Equal(t, uintptr(40), unsafe.Offsetof(buf.timecode))
	assert.Equal(t, uintptr(56), unsafe.Offsetof(buf.sequence))
	assert.Equal(t, uintptr(60), unsafe.Offsetof(buf.memory))
	assert.Equal(t, uintptr(64), unsafe.Offsetof(buf.m))
	assert.Equal(t, uintptr(72), unsafe.Offsetof(buf.length))
}
