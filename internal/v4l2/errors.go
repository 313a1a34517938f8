package v4l2

import (
	"errors"
	"syscall"
)

// Sentinel errors surfaced to callers. Everything else coming out of the
// driver goes through Classify.
var (
	ErrNotFound           = errors.New("v4l2: device not found")
	ErrPermission         = errors.New("v4l2: permission denied")
	ErrNotCapture         = errors.New("v4l2: device does not support video capture streaming")
	ErrInsufficientMemory = errors.New("v4l2: insufficient buffer memory")
	ErrTimeout            = errors.New("v4l2: wait timed out")
)

// Class buckets driver errors for the recovery supervisor.
type Class int

const (
	// ClassTransient means no data yet; the capture loop just continues.
	ClassTransient Class = iota

	// ClassFormatChanged covers errors the driver raises when the input
	// signal changed under the stream (rk_hdmirx raises EINVAL or EPIPE on
	// a source change). Counts toward a soft restart.
	ClassFormatChanged

	// ClassFatalIO covers hard I/O failures, typically a disconnected
	// cable or a device that went away. Counts toward a soft restart.
	ClassFatalIO

	// ClassOther is logged and otherwise ignored.
	ClassOther
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassFormatChanged:
		return "format-changed"
	case ClassFatalIO:
		return "fatal-io"
	default:
		return "other"
	}
}

// Classify maps a dequeue/poll error onto the recovery taxonomy.
func Classify(err error) Class {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EAGAIN:
			return ClassTransient
		case syscall.EINVAL, syscall.EPIPE:
			return ClassFormatChanged
		case syscall.EIO, syscall.ENODEV:
			return ClassFatalIO
		}
	}
	return ClassOther
}

// classifyOpen maps an open(2) failure onto the startup sentinels.
func classifyOpen(err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOENT, syscall.ENODEV, syscall.ENXIO:
			return ErrNotFound
		case syscall.EACCES, syscall.EPERM:
			return ErrPermission
		}
	}
	return err
}
