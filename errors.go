package opspec

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/op-spec/exitcodes"
)

// RuntimeError is an operational problem that stops a run from producing a
// trustworthy verdict: bad flags or profiles, build errors, nothing selected
// under focus, unwritable output. It exits with code 2.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError reports a completed run that did not pass (exit code 1)
type TestFailureError struct {
	Failed      int
	FocusFailed bool
}

func (e *TestFailureError) Error() string {
	switch {
	case e.Failed > 0 && e.FocusFailed:
		return fmt.Sprintf("test failure: %d failed, focus markers present", e.Failed)
	case e.FocusFailed:
		return "test failure: focus markers present and fail-on-focus is enabled"
	default:
		return fmt.Sprintf("test failure: %d failed", e.Failed)
	}
}

func NewTestFailureError(failed int, focusFailed bool) *TestFailureError {
	return &TestFailureError{Failed: failed, FocusFailed: focusFailed}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}

// ExitCode maps an error returned by the app to the process exit code.
// Unclassified errors count as runtime errors.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case IsTestFailureError(err) && !IsRuntimeError(err):
		return exitcodes.TestFailure
	default:
		return exitcodes.RuntimeErr
	}
}
