//go:build linux && (amd64 || arm64)

package v4l2

import (
	"encoding/binary"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl request numbers for 64-bit architectures.
const (
	vidiocQuerycap         = 0x80685600
	vidiocGFmt             = 0xc0d05604
	vidiocSFmt             = 0xc0d05605
	vidiocReqbufs          = 0xc0145608
	vidiocQuerybuf         = 0xc0585609
	vidiocQbuf             = 0xc058560f
	vidiocDqbuf            = 0xc0585611
	vidiocStreamon         = 0x40045612
	vidiocStreamoff        = 0x40045613
	vidiocSubscribeEvent   = 0x4020565a
	vidiocUnsubscribeEvent = 0x4020565b
	vidiocDqevent          = 0x80885659
)

const (
	bufTypeVideoCapture = 1
	memoryMmap          = 1
	fieldAny            = 0

	capVideoCapture = 0x00000001
	capStreaming    = 0x04000000

	// V4L2_EVENT_SOURCE_CHANGE and its resolution-change flag.
	eventSourceChange        = 5
	eventSrcChangeResolution = 1
)

// Compile-time struct size assertions against the kernel ABI.
// [0]struct{} = [actual - expected]struct{} fails to compile on a mismatch.
var (
	_ [0]struct{} = [unsafe.Sizeof(v4l2_capability{}) - 104]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2_format{}) - 208]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2_requestbuffers{}) - 20]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2_buffer{}) - 88]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2_event_subscription{}) - 32]struct{}{}
	_ [0]struct{} = [unsafe.Sizeof(v4l2_event{}) - 136]struct{}{}

	// Field offsets matter as much as sizes where unions force padding.
	_ [0]struct{} = [unsafe.Offsetof(v4l2_event{}.u) - 8]struct{}{}
	_ [0]struct{} = [unsafe.Offsetof(v4l2_event{}.pending) - 72]struct{}{}
	_ [0]struct{} = [unsafe.Offsetof(v4l2_event{}.sequence) - 76]struct{}{}
)

type v4l2_capability struct {
	driver       [16]byte
	card         [32]byte
	busInfo      [32]byte
	version      uint32
	capabilities uint32
	deviceCaps   uint32
	reserved     [3]uint32
}

// v4l2_pix_format occupies the head of the v4l2_format union for the
// single-planar capture buffer type.
type v4l2_pix_format struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	bytesperline uint32
	sizeimage    uint32
	colorspace   uint32
	priv         uint32
	flags        uint32
	ycbcrEnc     uint32
	quantization uint32
	xferFunc     uint32
}

type v4l2_format struct {
	typ uint32
	_   uint32 // union alignment
	fmt [200]byte
}

func (p *v4l2_pix_format) marshal() (u [200]byte) {
	copy(u[:], (*[unsafe.Sizeof(v4l2_pix_format{})]byte)(unsafe.Pointer(p))[:])
	return
}

func unmarshalPixFormat(u *[200]byte) (p v4l2_pix_format) {
	copy((*[unsafe.Sizeof(v4l2_pix_format{})]byte)(unsafe.Pointer(&p))[:], u[:])
	return
}

type v4l2_requestbuffers struct {
	count    uint32
	typ      uint32
	memory   uint32
	reserved [2]uint32
}

type v4l2_timecode struct {
	typ      uint32
	flags    uint32
	frames   uint8
	seconds  uint8
	minutes  uint8
	hours    uint8
	userbits [4]uint8
}

type v4l2_buffer struct {
	index     uint32
	typ       uint32
	bytesused uint32
	flags     uint32
	field     uint32
	timestamp unix.Timeval
	timecode  v4l2_timecode
	sequence  uint32
	memory    uint32
	m         [8]byte // union: mmap offset / userptr / planes / fd
	length    uint32
	reserved2 uint32
	reserved  uint32
}

type v4l2_event_subscription struct {
	typ      uint32
	id       uint32
	flags    uint32
	reserved [5]uint32
}

type v4l2_event struct {
	typ       uint32
	_         [4]byte  // the ctrl union member holds an __s64, forcing 8-byte union alignment
	u         [64]byte // union; src_change puts its changes mask first
	pending   uint32
	sequence  uint32
	timestamp unix.Timespec
	id        uint32
	reserved  [8]uint32
}

var nativeEndian binary.ByteOrder = func() binary.ByteOrder {
	x := uint16(1)
	if *(*byte)(unsafe.Pointer(&x)) == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}()
