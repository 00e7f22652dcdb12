package runner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-spec/types"
)

var errBoom = errors.New("boom")

func testLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

func pass(types.T) error { return nil }

// recorder collects events from actions that may run on other goroutines
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) action(event string) types.Action {
	return func(types.T) error {
		r.add(event)
		return nil
	}
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) count(event string) int {
	n := 0
	for _, e := range r.get() {
		if e == event {
			n++
		}
	}
	return n
}

func runWith(t *testing.T, cfg Config, suites ...*types.Suite) *types.RunResult {
	t.Helper()
	cfg.Suites = suites
	cfg.Log = testLogger()
	r, err := NewTestRunner(cfg)
	require.NoError(t, err)
	res, err := r.RunAll(context.Background())
	require.NoError(t, err)
	return res
}

func run(t *testing.T, suites ...*types.Suite) *types.RunResult {
	t.Helper()
	return runWith(t, Config{}, suites...)
}

func resultNamed(t *testing.T, run *types.RunResult, name string) *types.CaseResult {
	t.Helper()
	for _, s := range run.Suites {
		for _, r := range s.Results {
			if r.Name == name {
				return r
			}
		}
	}
	require.Failf(t, "result not found", "%s", name)
	return nil
}
