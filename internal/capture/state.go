package capture

// State of the recovery supervisor.
type State int32

const (
	// StateLive: frames are arriving and being displayed.
	StateLive State = iota

	// StateErrorCounting: recoverable errors are accumulating; the display
	// already shows the fallback, without waiting for the threshold.
	StateErrorCounting

	// StateSoftRestarting: stream-off / reallocate / stream-on in place,
	// keeping the device handle.
	StateSoftRestarting

	// StateBackgroundReopening: a worker is doing full close/reopen cycles
	// with backoff until a reopened stream verifies.
	StateBackgroundReopening
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "live"
	case StateErrorCounting:
		return "error-counting"
	case StateSoftRestarting:
		return "soft-restarting"
	case StateBackgroundReopening:
		return "background-reopening"
	default:
		return "unknown"
	}
}
