package types

import (
	"context"

	"github.com/ethereum/go-ethereum/log"
)

// T is the execution handle passed to every hook, subject provider, body and step.
// It is scoped to one attempt of one case and must not be retained past it.
type T interface {
	// Context is cancelled when the case exceeds its timeout.
	Context() context.Context
	Logger() log.Logger
	// Name returns the full path of the running case.
	Name() string
	// Attempt is 1-based and counts retries and repeated runs.
	Attempt() int

	// By records a named step in the case's step log.
	By(step string)
	// DeferCleanup registers fn to run after the body, in LIFO order.
	DeferCleanup(fn func())

	// Subject returns the value produced by the nearest ancestor's subject provider.
	// The subject is built after the before_each and just_before_each hooks, so
	// it is nil inside them and in before_all/after_all hooks.
	Subject() any

	// Skip marks the case skipped and stops the current action.
	Skip(reason string)
	Skipf(format string, args ...any)
	// Fail marks the case failed and stops the current action.
	Fail(msg string)
	Failf(format string, args ...any)
}

// Action is a hook, body or step. A non-nil error fails the case.
type Action func(t T) error

// SubjectProvider builds the subject for one attempt of a case
type SubjectProvider func(t T) (any, error)
