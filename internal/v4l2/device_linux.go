//go:build linux && (amd64 || arm64)

package v4l2

import (
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/seccouser/hdmi-in-display/internal/logging"
)

var log = logging.DefaultLogger.WithTag("v4l2")

// A V4L2 capture device handle. All methods must be called from the
// capture/recovery goroutine; the handle itself carries no locking.
type Device struct {
	path string
	fd   int
}

// OpenDevice opens the capture device and verifies it can stream video.
func OpenDevice(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, errors.Wrap(classifyOpen(err), path)
	}

	dev := &Device{path: path, fd: fd}
	if err := dev.queryCap(); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return dev, nil
}

func (dev *Device) Close() error {
	return unix.Close(dev.fd)
}

func (dev *Device) Path() string {
	return dev.path
}

// ioctl issues the request, retrying on EINTR.
func (dev *Device) ioctl(request uint, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(
			unix.SYS_IOCTL,
			uintptr(dev.fd),
			uintptr(request),
			uintptr(arg),
		)
		if errno == unix.EINTR {
			continue
		}
		if errno != 0 {
			return errno
		}
		return nil
	}
}

func (dev *Device) queryCap() error {
	var cap v4l2_capability
	if err := dev.ioctl(vidiocQuerycap, unsafe.Pointer(&cap)); err != nil {
		return errors.Wrap(err, "VIDIOC_QUERYCAP")
	}

	caps := cap.capabilities
	if cap.deviceCaps != 0 {
		caps = cap.deviceCaps
	}
	if caps&capVideoCapture == 0 || caps&capStreaming == 0 {
		return ErrNotCapture
	}

	log.Info("opened %s: %s (%s)", dev.path, cstr(cap.card[:]), cstr(cap.driver[:]))
	return nil
}

// NegotiateFormat requests the desired format and re-reads what the driver
// actually granted. The driver may silently adjust width, height and
// pixel encoding; the returned Format is authoritative.
func (dev *Device) NegotiateFormat(desired Format) (Format, error) {
	pfmt := v4l2_pix_format{
		width:       desired.Width,
		height:      desired.Height,
		pixelformat: desired.PixelFormat,
		field:       fieldAny,
	}
	f := v4l2_format{typ: bufTypeVideoCapture, fmt: pfmt.marshal()}
	if err := dev.ioctl(vidiocSFmt, unsafe.Pointer(&f)); err != nil {
		return Format{}, errors.Wrap(err, "VIDIOC_S_FMT")
	}
	return dev.CurrentFormat()
}

// CurrentFormat reads back the format the driver is actually delivering.
func (dev *Device) CurrentFormat() (Format, error) {
	f := v4l2_format{typ: bufTypeVideoCapture}
	if err := dev.ioctl(vidiocGFmt, unsafe.Pointer(&f)); err != nil {
		return Format{}, errors.Wrap(err, "VIDIOC_G_FMT")
	}

	pfmt := unmarshalPixFormat(&f.fmt)
	return Format{
		Width:        pfmt.width,
		Height:       pfmt.height,
		PixelFormat:  pfmt.pixelformat,
		BytesPerLine: pfmt.bytesperline,
		SizeImage:    pfmt.sizeimage,
	}, nil
}

// requestBuffers asks the driver for n mmap buffers and reports how many
// it actually granted.
func (dev *Device) requestBuffers(n int) (int, error) {
	rb := v4l2_requestbuffers{
		count:  uint32(n),
		typ:    bufTypeVideoCapture,
		memory: memoryMmap,
	}
	if err := dev.ioctl(vidiocReqbufs, unsafe.Pointer(&rb)); err != nil {
		return 0, errors.Wrap(err, "VIDIOC_REQBUFS")
	}
	return int(rb.count), nil
}

// queryBuffer returns the mmap length and offset for buffer n.
func (dev *Device) queryBuffer(n int) (length, offset uint32, err error) {
	qb := v4l2_buffer{
		index:  uint32(n),
		typ:    bufTypeVideoCapture,
		memory: memoryMmap,
	}
	if err = dev.ioctl(vidiocQuerybuf, unsafe.Pointer(&qb)); err != nil {
		err = errors.Wrap(err, "VIDIOC_QUERYBUF")
		return
	}
	return qb.length, nativeEndian.Uint32(qb.m[0:4]), nil
}

// Enqueue hands buffer ownership back to the driver.
func (dev *Device) Enqueue(index int) error {
	qbuf := v4l2_buffer{
		index:  uint32(index),
		typ:    bufTypeVideoCapture,
		memory: memoryMmap,
	}
	return dev.ioctl(vidiocQbuf, unsafe.Pointer(&qbuf))
}

// Dequeue claims a filled buffer from the driver. The returned index is
// owned by the application until the next Enqueue of that index.
func (dev *Device) Dequeue() (index, bytesused int, err error) {
	dqbuf := v4l2_buffer{
		typ:    bufTypeVideoCapture,
		memory: memoryMmap,
	}
	err = dev.ioctl(vidiocDqbuf, unsafe.Pointer(&dqbuf))
	return int(dqbuf.index), int(dqbuf.bytesused), err
}

func (dev *Device) StreamOn() error {
	typ := uint32(bufTypeVideoCapture)
	return dev.ioctl(vidiocStreamon, unsafe.Pointer(&typ))
}

func (dev *Device) StreamOff() error {
	typ := uint32(bufTypeVideoCapture)
	return dev.ioctl(vidiocStreamoff, unsafe.Pointer(&typ))
}

// SubscribeSourceChange subscribes to the driver's asynchronous
// source-change notifications.
func (dev *Device) SubscribeSourceChange() error {
	sub := v4l2_event_subscription{typ: eventSourceChange}
	return dev.ioctl(vidiocSubscribeEvent, unsafe.Pointer(&sub))
}

// Event is a decoded driver notification.
type Event struct {
	SourceChange     bool
	ResolutionChange bool
}

// DequeueEvent drains one pending driver event. Returns EAGAIN (transient)
// when none is pending.
func (dev *Device) DequeueEvent() (Event, error) {
	var ev v4l2_event
	if err := dev.ioctl(vidiocDqevent, unsafe.Pointer(&ev)); err != nil {
		return Event{}, err
	}

	out := Event{SourceChange: ev.typ == eventSourceChange}
	if out.SourceChange {
		changes := nativeEndian.Uint32(ev.u[0:4])
		out.ResolutionChange = changes&eventSrcChangeResolution != 0
	}
	return out, nil
}

// WaitFrame blocks until the device has a frame ready, an exceptional
// condition (pending event) arrives, or the timeout elapses. A pure
// timeout returns ErrTimeout.
func (dev *Device) WaitFrame(timeout time.Duration) error {
	fds := []unix.PollFd{{
		Fd:     int32(dev.fd),
		Events: unix.POLLIN | unix.POLLPRI,
	}}
	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err != nil {
		if err == unix.EINTR {
			return ErrTimeout
		}
		return err
	}
	if n == 0 {
		return ErrTimeout
	}
	return nil
}

// HasPendingEvent reports whether an exceptional condition (such as a
// source-change event) is waiting, without blocking.
func (dev *Device) HasPendingEvent() bool {
	fds := []unix.PollFd{{
		Fd:     int32(dev.fd),
		Events: unix.POLLPRI,
	}}
	n, err := unix.Poll(fds, 0)
	return err == nil && n > 0 && fds[0].Revents&unix.POLLPRI != 0
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
