// Package capture keeps the acquisition pipeline alive. The supervisor
// watches frame arrival health, classifies driver errors, and walks the
// soft-restart / background-reopen ladder without ever touching graphics
// state.
package capture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/seccouser/hdmi-in-display/internal/logging"
	"github.com/seccouser/hdmi-in-display/internal/v4l2"
)

var log = logging.DefaultLogger.WithTag("capture")

// Stream is one live capture session: an open device with negotiated
// format and queued buffers. The supervisor owns exactly one at a time.
type Stream interface {
	// WaitFrame blocks until a frame is ready or the timeout elapses
	// (v4l2.ErrTimeout).
	WaitFrame(timeout time.Duration) error

	// Dequeue claims a filled buffer; Enqueue returns it to the driver.
	Dequeue() (index, bytesused int, err error)
	Enqueue(index int) error

	// Bytes aliases driver memory for a dequeued index; valid only until
	// that index is re-enqueued.
	Bytes(index int) []byte

	Format() v4l2.Format

	// SourceChange drains a pending source-change notification, if any,
	// and reports the driver's new format. An unreadable format comes
	// back zero-valued.
	SourceChange() (v4l2.Format, bool)

	// Restart re-initializes buffers and the stream without closing the
	// device handle.
	Restart() error

	Close() error
}

// Opener performs a full device open: open, negotiate, allocate, stream
// on. Used at startup and by the background reopen worker.
type Opener func() (Stream, error)

// Options tune the recovery ladder.
type Options struct {
	// FrameTimeout forces the error path when no frame arrives, even
	// without an explicit driver error.
	FrameTimeout time.Duration

	// SoftThreshold is the consecutive-error count that triggers a soft
	// restart.
	SoftThreshold int

	// SoftAttempts bounds in-place restarts before escalating; SoftDelay
	// spaces them.
	SoftAttempts int
	SoftDelay    time.Duration

	// ReopenBackoff grows by doubling up to ReopenBackoffMax between full
	// reopen attempts. Reopening retries indefinitely.
	ReopenBackoff    time.Duration
	ReopenBackoffMax time.Duration

	// VerifyTimeout bounds the wait for the verification frame after a
	// reopen.
	VerifyTimeout time.Duration

	// Grace suppresses frame-timeout loss detection after a verified
	// recovery, to avoid flapping.
	Grace time.Duration
}

func DefaultOptions() Options {
	return Options{
		FrameTimeout:     800 * time.Millisecond,
		SoftThreshold:    8,
		SoftAttempts:     3,
		SoftDelay:        250 * time.Millisecond,
		ReopenBackoff:    500 * time.Millisecond,
		ReopenBackoffMax: 8 * time.Second,
		VerifyTimeout:    2 * time.Second,
		Grace:            2 * time.Second,
	}
}

// Frame is an immutable copy of the most recent good frame. Safe to hand
// to the render and snapshot paths; never aliases driver memory.
type Frame struct {
	Data   []byte
	Format v4l2.Format
	Seq    uint64
}

// Supervisor runs the capture loop and recovery state machine. All driver
// calls happen on the Run goroutine or, during a full reopen, on the
// background worker; the two are serialized. Everything the render thread
// reads crosses through atomics or the frame mutex.
type Supervisor struct {
	open Opener
	opts Options

	// mu guards the stream during structural changes (soft restart, full
	// reopen swap-in).
	mu     sync.Mutex
	stream Stream

	state    atomic.Int32
	degraded atomic.Bool
	resync   atomic.Bool
	force    atomic.Bool
	errCount atomic.Int32

	lastGoodNanos     atomic.Int64
	lastRecoveryNanos atomic.Int64

	frameMu sync.Mutex
	frame   Frame
}

func New(open Opener, opts Options) *Supervisor {
	if opts.SoftThreshold <= 0 {
		opts = DefaultOptions()
	}
	return &Supervisor{open: open, opts: opts}
}

// Run opens the stream and drives the capture loop until ctx is done.
// Only the initial open can fail; every later failure is handled
// internally by the recovery ladder.
func (s *Supervisor) Run(ctx context.Context) error {
	stream, err := s.open()
	if err != nil {
		return errors.Wrap(err, "initial capture start")
	}
	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()
	s.lastGoodNanos.Store(time.Now().UnixNano())
	log.Info("capture started: %s", stream.Format())

	for ctx.Err() == nil {
		s.step(ctx)
	}

	s.mu.Lock()
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	s.mu.Unlock()
	return nil
}

// step runs one iteration of the capture loop.
func (s *Supervisor) step(ctx context.Context) {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return
	}

	if s.force.CompareAndSwap(true, false) {
		log.Info("operator-requested recovery")
		s.fail(ctx, true, "forced recovery")
		return
	}

	if f, changed := stream.SourceChange(); changed {
		if !f.Valid() {
			log.Warn("source change with unreadable format")
		} else {
			log.Info("source change: %s", f)
		}
		// Either way the stream needs renegotiation.
		s.fail(ctx, false, "source change")
		return
	}

	if err := stream.WaitFrame(s.opts.FrameTimeout); err != nil {
		if errors.Is(err, v4l2.ErrTimeout) {
			if s.inGraceWindow() {
				return
			}
			if time.Since(s.lastGood()) >= s.opts.FrameTimeout {
				s.fail(ctx, false, "frame arrival timeout")
			}
			return
		}
		s.fail(ctx, false, "poll: %v", err)
		return
	}

	index, n, err := stream.Dequeue()
	if err != nil {
		switch class := v4l2.Classify(err); class {
		case v4l2.ClassTransient:
			// No data yet; keep looping.
		case v4l2.ClassFormatChanged, v4l2.ClassFatalIO:
			s.fail(ctx, false, "dequeue (%s): %v", class, err)
		default:
			log.Warn("dequeue: %v", err)
		}
		return
	}

	if n == 0 {
		stream.Enqueue(index)
		s.fail(ctx, false, "zero-byte frame")
		return
	}

	s.storeFrame(stream.Bytes(index)[:n], stream.Format())
	if err := stream.Enqueue(index); err != nil {
		log.Warn("requeue buffer %d: %v", index, err)
	}

	s.errCount.Store(0)
	s.lastGoodNanos.Store(time.Now().UnixNano())
	s.degraded.Store(false)
	s.setState(StateLive)
}

// fail records one recoverable error. The fallback signal raises
// immediately; the soft restart waits for the threshold unless forced.
func (s *Supervisor) fail(ctx context.Context, forced bool, format string, a ...interface{}) {
	s.degraded.Store(true)
	if State(s.state.Load()) == StateLive {
		s.setState(StateErrorCounting)
	}
	log.Warn("capture error (%d consecutive): "+format,
		append([]interface{}{s.errCount.Load() + 1}, a...)...)

	if n := s.errCount.Add(1); !forced && int(n) < s.opts.SoftThreshold {
		return
	}
	s.errCount.Store(0)
	s.softRestart(ctx)
}

// softRestart re-initializes the stream in place, a bounded number of
// times, before escalating to a full background reopen.
func (s *Supervisor) softRestart(ctx context.Context) {
	s.setState(StateSoftRestarting)

	for attempt := 1; attempt <= s.opts.SoftAttempts; attempt++ {
		s.mu.Lock()
		err := s.stream.Restart()
		s.mu.Unlock()
		if err == nil {
			log.Info("soft restart succeeded (attempt %d): %s", attempt, s.Format())
			s.lastGoodNanos.Store(time.Now().UnixNano())
			s.setState(StateLive)
			return
		}
		log.Warn("soft restart attempt %d/%d failed: %v", attempt, s.opts.SoftAttempts, err)
		if !sleepCtx(ctx, s.opts.SoftDelay) {
			return
		}
	}

	s.setState(StateBackgroundReopening)
	done := make(chan struct{})
	go s.reopenLoop(ctx, done)

	// The capture goroutine has nothing to dequeue until the worker
	// commits a verified stream; waiting here also serializes all driver
	// access.
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// reopenLoop retries full device reopen until one verifies or ctx ends.
// It never touches graphics resources; it mutates capture-side state under
// the shared lock and raises the resync signal.
func (s *Supervisor) reopenLoop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	s.mu.Lock()
	if s.stream != nil {
		s.stream.Close()
		s.stream = nil
	}
	s.mu.Unlock()

	backoff := s.opts.ReopenBackoff
	for attempt := 1; ctx.Err() == nil; attempt++ {
		stream, err := s.open()
		if err == nil {
			if err = s.verify(stream); err == nil {
				s.mu.Lock()
				s.stream = stream
				s.mu.Unlock()

				now := time.Now().UnixNano()
				s.lastRecoveryNanos.Store(now)
				s.lastGoodNanos.Store(now)
				s.errCount.Store(0)
				s.setState(StateLive)
				// Resync only raises after verification; the render side
				// must never present against unverified buffers.
				s.resync.Store(true)
				log.Info("reopen verified after %d attempt(s): %s", attempt, stream.Format())
				return
			}
			stream.Close()
		}
		log.Warn("reopen attempt %d failed: %v (next in %v)", attempt, err, backoff)

		if !sleepCtx(ctx, backoff) {
			return
		}
		if backoff *= 2; backoff > s.opts.ReopenBackoffMax {
			backoff = s.opts.ReopenBackoffMax
		}
	}
}

// verify confirms a reopened stream actually delivers data: poll for
// readiness, dequeue one buffer with a nonzero byte count, requeue it.
// An apparent reopen success without a real frame is not a recovery.
func (s *Supervisor) verify(stream Stream) error {
	if err := stream.WaitFrame(s.opts.VerifyTimeout); err != nil {
		return errors.Wrap(err, "verification wait")
	}

	index, n, err := stream.Dequeue()
	if err != nil {
		return errors.Wrap(err, "verification dequeue")
	}
	defer stream.Enqueue(index)

	if n == 0 {
		return errors.New("verification frame was empty")
	}

	s.storeFrame(stream.Bytes(index)[:n], stream.Format())
	log.Debug("verification frame: %d bytes", n)
	return nil
}

func (s *Supervisor) storeFrame(data []byte, format v4l2.Format) {
	s.frameMu.Lock()
	s.frame.Data = append(s.frame.Data[:0], data...)
	s.frame.Format = format
	s.frame.Seq++
	s.frameMu.Unlock()
}

// LatestFrame returns an immutable copy of the most recent good frame.
// Render and snapshot both read through here; neither ever sees driver
// memory.
func (s *Supervisor) LatestFrame() (Frame, bool) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	if s.frame.Seq == 0 {
		return Frame{}, false
	}
	return Frame{
		Data:   append([]byte(nil), s.frame.Data...),
		Format: s.frame.Format,
		Seq:    s.frame.Seq,
	}, true
}

// Degraded reports whether the display should show the fallback pattern.
// Raised on the first recoverable error, not at the restart threshold.
func (s *Supervisor) Degraded() bool {
	return s.degraded.Load()
}

// ResyncNeeded reports whether the render thread must reallocate its
// surfaces and re-read the format. Set only after a verified reopen.
func (s *Supervisor) ResyncNeeded() bool {
	return s.resync.Load()
}

// AckResync is called by the render thread once it has resynced.
func (s *Supervisor) AckResync() {
	s.resync.Store(false)
}

// ForceRecover makes the next loop iteration take the recovery path,
// bypassing the error threshold.
func (s *Supervisor) ForceRecover() {
	s.force.Store(true)
}

// Format returns the current negotiated format, falling back to the last
// good frame's format while a reopen is in flight.
func (s *Supervisor) Format() v4l2.Format {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream != nil {
		return stream.Format()
	}
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	return s.frame.Format
}

func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Status is a point-in-time snapshot for diagnostics and the control
// surface.
type Status struct {
	State        State
	Errors       int
	Degraded     bool
	LastGood     time.Time
	LastRecovery time.Time
	Format       v4l2.Format
}

func (s *Supervisor) Status() Status {
	return Status{
		State:        s.State(),
		Errors:       int(s.errCount.Load()),
		Degraded:     s.degraded.Load(),
		LastGood:     s.lastGood(),
		LastRecovery: time.Unix(0, s.lastRecoveryNanos.Load()),
		Format:       s.Format(),
	}
}

func (s *Supervisor) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev != next {
		log.Info("state %s -> %s", prev, next)
	}
}

func (s *Supervisor) lastGood() time.Time {
	return time.Unix(0, s.lastGoodNanos.Load())
}

func (s *Supervisor) inGraceWindow() bool {
	last := s.lastRecoveryNanos.Load()
	return last > 0 && time.Since(time.Unix(0, last)) < s.opts.Grace
}

// sleepCtx sleeps unless the context ends first; reports whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
