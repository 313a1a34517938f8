//go:build linux && (amd64 || arm64)

package v4l2

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Viability minimum: streaming with a single buffer stalls the driver, so
// fewer than two granted buffers is treated as an allocation failure.
const minBuffers = 2

// A memory-mapped capture buffer. The driver owns the region while the
// buffer is queued; the application owns it between Dequeue and Enqueue.
type Buffer struct {
	Index int
	Data  []byte
}

// Pool owns the device's ring of mmap buffers. Allocation is
// all-or-nothing: any failure on the way up unmaps everything already
// mapped before returning, so no teardown path can leak a mapping.
type Pool struct {
	dev  *Device
	bufs []Buffer
}

func NewPool(dev *Device) *Pool {
	return &Pool{dev: dev}
}

func (p *Pool) Device() *Device {
	return p.dev
}

// Allocate requests count buffers from the driver and maps each one.
func (p *Pool) Allocate(count int) error {
	if p.bufs != nil {
		return errors.New("v4l2: buffers already allocated")
	}

	granted, err := p.dev.requestBuffers(count)
	if err != nil {
		return err
	}
	if granted < minBuffers {
		// Roll back the partial grant before reporting.
		p.dev.requestBuffers(0)
		return errors.Wrapf(ErrInsufficientMemory, "driver granted %d of %d buffers", granted, count)
	}

	bufs := make([]Buffer, 0, granted)
	for i := 0; i < granted; i++ {
		length, offset, err := p.dev.queryBuffer(i)
		if err == nil {
			var data []byte
			data, err = unix.Mmap(
				p.dev.fd,
				int64(offset),
				int(length),
				unix.PROT_READ|unix.PROT_WRITE,
				unix.MAP_SHARED,
			)
			if err == nil {
				bufs = append(bufs, Buffer{Index: i, Data: data})
				continue
			}
		}

		// Unwind every mapping made so far.
		for _, b := range bufs {
			unix.Munmap(b.Data)
		}
		p.dev.requestBuffers(0)
		return errors.Wrapf(err, "mapping buffer %d", i)
	}

	p.bufs = bufs
	log.Debug("allocated %d mmap buffers", granted)
	return nil
}

// Release unmaps every buffer and returns them to the driver. Safe to call
// on any teardown path, including after a failed Allocate.
func (p *Pool) Release() error {
	var first error
	for _, b := range p.bufs {
		if err := unix.Munmap(b.Data); err != nil && first == nil {
			first = err
		}
	}
	p.bufs = nil

	if _, err := p.dev.requestBuffers(0); err != nil && first == nil {
		first = err
	}
	return first
}

// EnqueueAll queues every buffer to the driver, as done once before
// stream-on.
func (p *Pool) EnqueueAll() error {
	for _, b := range p.bufs {
		if err := p.dev.Enqueue(b.Index); err != nil {
			return errors.Wrapf(err, "queueing buffer %d", b.Index)
		}
	}
	return nil
}

// Count reports the number of usable buffers.
func (p *Pool) Count() int {
	return len(p.bufs)
}

// Bytes exposes the mmap region for a dequeued buffer. The slice aliases
// driver memory; callers must copy out before the index is re-enqueued.
func (p *Pool) Bytes(index int) []byte {
	if index < 0 || index >= len(p.bufs) {
		return nil
	}
	return p.bufs[index].Data
}
