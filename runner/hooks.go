package runner

import (
	"sync/atomic"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

// hookChain is the ordered set of scopes whose per-case hooks surround one case,
// from the suite root down to the case's own scope.
type hookChain struct {
	levels []*types.Scope
	// completed counts the levels whose before_each hooks all succeeded.
	completed atomic.Int32
}

func newHookChain(tc *types.Case) *hookChain {
	return &hookChain{levels: tc.Scope().Ancestry()}
}

// runBeforeEach runs before_each hooks root-to-leaf, in registration order within
// a level, stopping at the first hook that does not succeed.
func (h *hookChain) runBeforeEach(t types.T) outcome {
	for i, scope := range h.levels {
		for _, hook := range scope.Hooks.BeforeEach {
			if out := runHook(hook, t); !out.ok() {
				return out
			}
		}
		h.completed.Store(int32(i + 1))
	}
	return outcome{}
}

// runJustBeforeEach runs just_before_each hooks root-to-leaf once every
// before_each has completed.
func (h *hookChain) runJustBeforeEach(t types.T) outcome {
	for _, scope := range h.levels {
		for _, hook := range scope.Hooks.JustBeforeEach {
			if out := runHook(hook, t); !out.ok() {
				return out
			}
		}
	}
	return outcome{}
}

// runAfterEach runs after_each hooks leaf-to-root for the levels whose before_each
// completed. Every eligible hook runs; the first failure is returned.
func (h *hookChain) runAfterEach(t types.T) outcome {
	var first outcome
	for i := int(h.completed.Load()) - 1; i >= 0; i-- {
		for _, hook := range h.levels[i].Hooks.AfterEach {
			out := runHook(hook, t)
			if out.failure != nil && first.failure == nil {
				first = out
			}
		}
	}
	return first
}

func runHook(hook types.Hook, t types.T) outcome {
	out := invoke(func() error { return hook.Fn(t) })
	if out.failure != nil {
		out.failure = asHookFailure(out.failure, hook.Kind)
		if out.failure.Location.IsZero() {
			out.failure.Location = hook.Location
		}
	}
	return out
}
