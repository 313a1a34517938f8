package capture

import (
	"time"

	"github.com/pkg/errors"

	"github.com/seccouser/hdmi-in-display/internal/v4l2"
)

// DeviceConfig describes how to open a capture stream.
type DeviceConfig struct {
	Path    string
	Desired v4l2.Format
	Buffers int
}

// OpenDeviceStream opens the device, negotiates the format, allocates and
// queues the buffer ring, subscribes to source-change events and starts
// streaming. Any failure on the way up tears everything back down.
func OpenDeviceStream(cfg DeviceConfig) (Stream, error) {
	if cfg.Buffers <= 0 {
		cfg.Buffers = 4
	}

	dev, err := v4l2.OpenDevice(cfg.Path)
	if err != nil {
		return nil, err
	}

	s := &deviceStream{
		dev:     dev,
		pool:    v4l2.NewPool(dev),
		desired: cfg.Desired,
		buffers: cfg.Buffers,
	}
	if err := s.start(); err != nil {
		s.pool.Release()
		dev.Close()
		return nil, err
	}
	return s, nil
}

type deviceStream struct {
	dev     *v4l2.Device
	pool    *v4l2.Pool
	desired v4l2.Format
	buffers int
	format  v4l2.Format
}

// start brings the stream up against the already-open device: negotiate,
// allocate, queue, subscribe, stream on.
func (s *deviceStream) start() error {
	format, err := s.dev.NegotiateFormat(s.desired)
	if err != nil {
		return err
	}
	if !format.Valid() {
		return errors.Errorf("driver reported unusable format %s", format)
	}
	s.format = format

	if err := s.pool.Allocate(s.buffers); err != nil {
		return err
	}
	if err := s.pool.EnqueueAll(); err != nil {
		s.pool.Release()
		return err
	}

	// Best-effort: not all drivers implement source-change events.
	if err := s.dev.SubscribeSourceChange(); err != nil {
		log.Debug("source-change subscription unavailable: %v", err)
	}

	if err := s.dev.StreamOn(); err != nil {
		s.pool.Release()
		return errors.Wrap(err, "VIDIOC_STREAMON")
	}
	return nil
}

func (s *deviceStream) WaitFrame(timeout time.Duration) error {
	return s.dev.WaitFrame(timeout)
}

func (s *deviceStream) Dequeue() (int, int, error) {
	return s.dev.Dequeue()
}

func (s *deviceStream) Enqueue(index int) error {
	return s.dev.Enqueue(index)
}

func (s *deviceStream) Bytes(index int) []byte {
	return s.pool.Bytes(index)
}

func (s *deviceStream) Format() v4l2.Format {
	return s.format
}

func (s *deviceStream) SourceChange() (v4l2.Format, bool) {
	if !s.dev.HasPendingEvent() {
		return v4l2.Format{}, false
	}
	ev, err := s.dev.DequeueEvent()
	if err != nil || !ev.SourceChange {
		return v4l2.Format{}, false
	}

	format, err := s.dev.CurrentFormat()
	if err != nil {
		// Unreadable new format; report the change with a zero format.
		return v4l2.Format{}, true
	}
	return format, true
}

// Restart performs the soft path: stream off, drop and reallocate the
// buffer ring, renegotiate (the input may have changed size), stream on.
// The device handle stays open throughout.
func (s *deviceStream) Restart() error {
	if err := s.dev.StreamOff(); err != nil {
		log.Debug("stream off during restart: %v", err)
	}
	if err := s.pool.Release(); err != nil {
		log.Debug("buffer release during restart: %v", err)
	}
	return s.start()
}

func (s *deviceStream) Close() error {
	s.dev.StreamOff()
	s.pool.Release()
	return s.dev.Close()
}
