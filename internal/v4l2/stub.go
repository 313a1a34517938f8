//go:build !linux || !(amd64 || arm64)

package v4l2

import "time"

// Video4Linux is Linux-only; these stubs keep the tree compiling on other
// platforms so the geometry and supervisor packages stay testable anywhere.

type Device struct{}

type Event struct {
	SourceChange     bool
	ResolutionChange bool
}

type Buffer struct {
	Index int
	Data  []byte
}

type Pool struct{}

func OpenDevice(path string) (*Device, error) { panic("v4l2: unsupported platform") }

func (dev *Device) Close() error                           { return nil }
func (dev *Device) Path() string                           { return "" }
func (dev *Device) NegotiateFormat(Format) (Format, error) { panic("v4l2: unsupported platform") }
func (dev *Device) CurrentFormat() (Format, error)         { panic("v4l2: unsupported platform") }
func (dev *Device) Enqueue(int) error                      { panic("v4l2: unsupported platform") }
func (dev *Device) Dequeue() (int, int, error)             { panic("v4l2: unsupported platform") }
func (dev *Device) StreamOn() error                        { panic("v4l2: unsupported platform") }
func (dev *Device) StreamOff() error                       { panic("v4l2: unsupported platform") }
func (dev *Device) SubscribeSourceChange() error           { panic("v4l2: unsupported platform") }
func (dev *Device) DequeueEvent() (Event, error)           { panic("v4l2: unsupported platform") }
func (dev *Device) WaitFrame(time.Duration) error          { panic("v4l2: unsupported platform") }
func (dev *Device) HasPendingEvent() bool                  { return false }

func NewPool(dev *Device) *Pool { return &Pool{} }

func (p *Pool) Device() *Device    { return nil }
func (p *Pool) Allocate(int) error { panic("v4l2: unsupported platform") }
func (p *Pool) Release() error     { return nil }
func (p *Pool) EnqueueAll() error  { panic("v4l2: unsupported platform") }
func (p *Pool) Count() int         { return 0 }
func (p *Pool) Bytes(int) []byte   { return nil }
