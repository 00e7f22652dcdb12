package runner

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/sourcegraph/conc/panics"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

// outcome is the result of invoking a single action
type outcome struct {
	failure *types.Failure
	skipped bool
	reason  string
}

func (o outcome) ok() bool {
	return o.failure == nil && !o.skipped
}

// invoke runs fn and converts its error, a Skip/Fail signal or any other panic
// into an outcome. Nothing raised by fn escapes.
func invoke(fn func() error) outcome {
	var err error
	recovered := panics.Try(func() {
		err = fn()
	})
	if recovered != nil {
		switch sig := recovered.Value.(type) {
		case skipSignal:
			return outcome{skipped: true, reason: sig.reason}
		case failSignal:
			return outcome{failure: &types.Failure{
				Kind:     types.FailureAssertion,
				Message:  sig.message,
				Location: sig.location,
			}}
		}
		return outcome{failure: &types.Failure{
			Kind:     types.FailurePanic,
			Message:  fmt.Sprint(recovered.Value),
			Location: panicLocation(recovered.Callers),
		}}
	}
	if err != nil {
		return outcome{failure: failureFromError(err)}
	}
	return outcome{}
}

func failureFromError(err error) *types.Failure {
	var f *types.Failure
	if errors.As(err, &f) {
		cp := *f
		return &cp
	}
	return &types.Failure{Kind: types.FailureAssertion, Message: err.Error()}
}

// panicLocation returns the first frame of the recovered stack that is neither
// runtime nor panic-capture machinery, which is the panic site.
func panicLocation(callers []uintptr) types.Location {
	frames := runtime.CallersFrames(callers)
	for {
		frame, more := frames.Next()
		if frame.Function != "" &&
			!strings.HasPrefix(frame.Function, "runtime.") &&
			!strings.Contains(frame.Function, "sourcegraph/conc") {
			return types.Location{File: frame.File, Line: frame.Line}
		}
		if !more {
			return types.Location{}
		}
	}
}

// asHookFailure marks a failure as raised by a lifecycle hook
func asHookFailure(f *types.Failure, kind types.HookKind) *types.Failure {
	if f == nil || f.Kind == types.FailureTimeout {
		return f
	}
	cp := *f
	cp.Kind = types.FailureHook
	cp.Hook = kind
	return &cp
}
