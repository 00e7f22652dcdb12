package types

import (
	"fmt"
	"time"
)

// Status represents the outcome of a single case or step
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
	StatusSkipped Status = "skipped"
)

// FailureKind classifies why a case failed
type FailureKind string

const (
	FailureAssertion FailureKind = "assertion"
	FailureHook      FailureKind = "hook"
	FailureTimeout   FailureKind = "timeout"
	FailurePanic     FailureKind = "panic"
)

// Failure carries the reason and location of a failed case, step or hook.
type Failure struct {
	Kind     FailureKind   `json:"kind"`
	Message  string        `json:"message"`
	Location Location      `json:"location"`
	Hook     HookKind      `json:"hook,omitempty"`    // set for hook failures
	Timeout  time.Duration `json:"timeout,omitempty"` // set for timeouts
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailureTimeout:
		return fmt.Sprintf("timed out after %s", f.Timeout)
	case FailureHook:
		return fmt.Sprintf("%s hook failed: %s", f.Hook, f.Message)
	case FailurePanic:
		return fmt.Sprintf("panic: %s", f.Message)
	}
	return f.Message
}
