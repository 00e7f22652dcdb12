package runner

import "time"

const (
	// DefaultTimeoutGrace is how long a timed-out case is given to return after
	// its context is cancelled before cleanups and after_each hooks run anyway.
	DefaultTimeoutGrace = 100 * time.Millisecond

	// DefaultProgressInterval is how often the log progress indicator reports
	DefaultProgressInterval = 30 * time.Second

	// MaxReasonableConcurrency caps the number of suites run at once
	MaxReasonableConcurrency = 32

	tracerName = "op-spec runner"
)
