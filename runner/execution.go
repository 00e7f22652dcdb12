package runner

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/emirpasic/gods/stacks/arraystack"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

var _ types.T = (*execution)(nil)

// skipSignal and failSignal unwind an action started by Skip and Fail.
// They only stop the goroutine they are raised on.
type skipSignal struct {
	reason string
}

type failSignal struct {
	message  string
	location types.Location
}

// attemptState is the mutable state of one attempt of one case. A fresh value is
// created for every attempt, so cleanups, the step log and the subject never leak
// between attempts or cases.
type attemptState struct {
	mu       sync.Mutex
	cleanups *arraystack.Stack
	byLog    []string
	subject  any
}

// execution implements types.T over an attemptState
type execution struct {
	ctx     context.Context
	log     log.Logger
	name    string
	attempt int

	*attemptState
}

func newExecution(ctx context.Context, logger log.Logger, name string, attempt int) *execution {
	return &execution{
		ctx:          ctx,
		log:          logger,
		name:         name,
		attempt:      attempt,
		attemptState: &attemptState{cleanups: arraystack.New()},
	}
}

// withContext returns a view of the same attempt bound to another context
func (e *execution) withContext(ctx context.Context) *execution {
	cp := *e
	cp.ctx = ctx
	return &cp
}

func (e *execution) Context() context.Context { return e.ctx }
func (e *execution) Logger() log.Logger       { return e.log }
func (e *execution) Name() string             { return e.name }
func (e *execution) Attempt() int             { return e.attempt }

func (e *execution) By(step string) {
	e.mu.Lock()
	e.byLog = append(e.byLog, step)
	e.mu.Unlock()
	e.log.Info("STEP: "+step, "case", e.name)
}

func (e *execution) DeferCleanup(fn func()) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleanups.Push(fn)
}

func (e *execution) Subject() any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subject
}

func (e *execution) setSubject(v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subject = v
}

func (e *execution) Skip(reason string) {
	panic(skipSignal{reason: reason})
}

func (e *execution) Skipf(format string, args ...any) {
	panic(skipSignal{reason: fmt.Sprintf(format, args...)})
}

func (e *execution) Fail(msg string) {
	panic(failSignal{message: msg, location: callerLocation(1)})
}

func (e *execution) Failf(format string, args ...any) {
	panic(failSignal{message: fmt.Sprintf(format, args...), location: callerLocation(1)})
}

// stepLog returns a copy of the By log
func (e *execution) stepLog() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.byLog...)
}

// popCleanup removes the most recently registered cleanup
func (e *execution) popCleanup() (func(), bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.cleanups.Pop()
	if !ok {
		return nil, false
	}
	return v.(func()), true
}

// drainCleanups runs every registered cleanup in LIFO order. A panicking
// cleanup does not prevent the rest from running; the first failure is returned.
func (e *execution) drainCleanups() *types.Failure {
	var first *types.Failure
	for {
		fn, ok := e.popCleanup()
		if !ok {
			return first
		}
		out := invoke(func() error {
			fn()
			return nil
		})
		if out.failure != nil && first == nil {
			first = out.failure
			first.Message = "cleanup: " + first.Message
		}
	}
}

func callerLocation(skip int) types.Location {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return types.Location{}
	}
	return types.Location{File: file, Line: line}
}
