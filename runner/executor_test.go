package runner

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-spec/builder"
	"github.com/ethereum-optimism/infra/op-spec/types"
)

func TestRetries(t *testing.T) {
	tests := []struct {
		name         string
		retries      int
		passOn       int32 // attempt that first passes, 0 never passes
		wantStatus   types.Status
		wantAttempts int
	}{
		{name: "passes first time", retries: 2, passOn: 1, wantStatus: types.StatusPassed, wantAttempts: 1},
		{name: "passes on last attempt", retries: 2, passOn: 3, wantStatus: types.StatusPassed, wantAttempts: 3},
		{name: "never passes", retries: 2, passOn: 0, wantStatus: types.StatusFailed, wantAttempts: 3},
		{name: "no retries", retries: 0, passOn: 0, wantStatus: types.StatusFailed, wantAttempts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			suite := builder.MustBuild("retries", func(c *builder.Context) {
				c.It("flaky", func(types.T) error {
					n := calls.Add(1)
					if tt.passOn != 0 && n >= tt.passOn {
						return nil
					}
					return fmt.Errorf("attempt %d failed", n)
				}).Retries(tt.retries)
			})

			r := resultNamed(t, run(t, suite), "flaky")
			assert.Equal(t, tt.wantStatus, r.Status)
			assert.Equal(t, tt.wantAttempts, r.Attempts)
			assert.Equal(t, int32(tt.wantAttempts), calls.Load())
			if tt.wantStatus == types.StatusFailed {
				assert.Equal(t, fmt.Sprintf("attempt %d failed", tt.wantAttempts), r.Message())
			}
		})
	}
}

func TestMustPassRepeatedly(t *testing.T) {
	t.Run("all runs pass", func(t *testing.T) {
		var calls atomic.Int32
		suite := builder.MustBuild("repeat", func(c *builder.Context) {
			c.It("stable", func(types.T) error {
				calls.Add(1)
				return nil
			}).MustPassRepeatedly(3)
		})
		r := resultNamed(t, run(t, suite), "stable")
		assert.Equal(t, types.StatusPassed, r.Status)
		assert.Equal(t, 3, r.Attempts)
		assert.Equal(t, 3, r.Consecutive)
		assert.Equal(t, 3, r.Required)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("second run fails", func(t *testing.T) {
		var calls atomic.Int32
		suite := builder.MustBuild("repeat", func(c *builder.Context) {
			c.It("unstable", func(types.T) error {
				if calls.Add(1) == 2 {
					return errBoom
				}
				return nil
			}).MustPassRepeatedly(3)
		})
		r := resultNamed(t, run(t, suite), "unstable")
		assert.Equal(t, types.StatusFailed, r.Status)
		assert.Equal(t, 2, r.Attempts)
		assert.Equal(t, 1, r.Consecutive)
		assert.Equal(t, 3, r.Required)
		assert.Equal(t, int32(2), calls.Load())
	})
}

func TestFreshStatePerAttempt(t *testing.T) {
	var subjects []any
	var attempts []int
	var built atomic.Int32
	suite := builder.MustBuild("fresh", func(c *builder.Context) {
		c.Subject(func(types.T) (any, error) {
			return built.Add(1), nil
		})
		c.It("retried", func(t types.T) error {
			subjects = append(subjects, t.Subject())
			attempts = append(attempts, t.Attempt())
			t.By(fmt.Sprintf("attempt %d", t.Attempt()))
			if t.Attempt() < 2 {
				return errBoom
			}
			return nil
		}).Retries(1)
	})

	r := resultNamed(t, run(t, suite), "retried")
	assert.Equal(t, types.StatusPassed, r.Status)
	assert.Equal(t, []any{int32(1), int32(2)}, subjects)
	assert.Equal(t, []int{1, 2}, attempts)
	assert.Equal(t, []string{"attempt 2"}, r.ByLog)
}

func TestSubjectIsNearestAncestor(t *testing.T) {
	var got []any
	suite := builder.MustBuild("subject", func(c *builder.Context) {
		c.Subject(func(types.T) (any, error) { return "outer", nil })
		c.It("outer case", func(t types.T) error {
			got = append(got, t.Subject())
			return nil
		})
		c.Describe("inner", func(c *builder.Context) {
			c.Subject(func(types.T) (any, error) { return "inner", nil })
			c.It("inner case", func(t types.T) error {
				got = append(got, t.Subject())
				return nil
			})
		})
	})
	run(t, suite)
	assert.Equal(t, []any{"outer", "inner"}, got)
}

func TestSubjectResolvedAfterHookChain(t *testing.T) {
	seen := make(map[string]any)
	suite := builder.MustBuild("subject", func(c *builder.Context) {
		c.Subject(func(types.T) (any, error) { return "built", nil })
		c.BeforeEach(func(t types.T) error {
			seen["before_each"] = t.Subject()
			return nil
		})
		c.JustBeforeEach(func(t types.T) error {
			seen["just_before_each"] = t.Subject()
			return nil
		})
		c.AfterEach(func(t types.T) error {
			seen["after_each"] = t.Subject()
			return nil
		})
		c.It("case", func(t types.T) error {
			seen["body"] = t.Subject()
			return nil
		})
	})

	r := resultNamed(t, run(t, suite), "case")
	assert.Equal(t, types.StatusPassed, r.Status)
	assert.Nil(t, seen["before_each"])
	assert.Nil(t, seen["just_before_each"])
	assert.Equal(t, "built", seen["body"])
	assert.Equal(t, "built", seen["after_each"])
}

func TestSubjectFailure(t *testing.T) {
	rec := &recorder{}
	suite := builder.MustBuild("subject", func(c *builder.Context) {
		c.Subject(func(types.T) (any, error) { return nil, errBoom })
		c.AfterEach(rec.action("after"))
		c.It("case", rec.action("body"))
	})
	r := resultNamed(t, run(t, suite), "case")
	assert.Equal(t, types.StatusFailed, r.Status)
	assert.Equal(t, "subject: boom", r.Message())
	assert.Equal(t, []string{"after"}, rec.get())
}

func TestCleanupsRunLIFO(t *testing.T) {
	tests := []struct {
		name       string
		body       func(t types.T) error
		timeout    time.Duration
		wantStatus types.Status
	}{
		{
			name:       "pass",
			body:       func(types.T) error { return nil },
			wantStatus: types.StatusPassed,
		},
		{
			name:       "fail",
			body:       func(types.T) error { return errBoom },
			wantStatus: types.StatusFailed,
		},
		{
			name: "timeout",
			body: func(t types.T) error {
				<-t.Context().Done()
				return t.Context().Err()
			},
			timeout:    20 * time.Millisecond,
			wantStatus: types.StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			suite := builder.MustBuild("cleanup", func(c *builder.Context) {
				c.BeforeEach(func(t types.T) error {
					t.DeferCleanup(func() { rec.add("hook cleanup") })
					return nil
				})
				c.AfterEach(rec.action("after"))
				cb := c.It("case", func(t types.T) error {
					t.DeferCleanup(func() { rec.add("first") })
					t.DeferCleanup(func() { rec.add("second") })
					return tt.body(t)
				})
				if tt.timeout > 0 {
					cb.Timeout(tt.timeout)
				}
			})

			r := resultNamed(t, run(t, suite), "case")
			assert.Equal(t, tt.wantStatus, r.Status)
			assert.Equal(t, []string{"second", "first", "hook cleanup", "after"}, rec.get())
		})
	}
}

func TestCleanupPanicFailsCase(t *testing.T) {
	rec := &recorder{}
	suite := builder.MustBuild("cleanup", func(c *builder.Context) {
		c.It("case", func(t types.T) error {
			t.DeferCleanup(func() { rec.add("first") })
			t.DeferCleanup(func() { panic("cleanup exploded") })
			return nil
		})
	})
	r := resultNamed(t, run(t, suite), "case")
	assert.Equal(t, types.StatusFailed, r.Status)
	assert.Equal(t, "panic: cleanup: cleanup exploded", r.Message())
	assert.Equal(t, []string{"first"}, rec.get())
}

func TestTimeout(t *testing.T) {
	t.Run("cooperative body", func(t *testing.T) {
		rec := &recorder{}
		suite := builder.MustBuild("timeout", func(c *builder.Context) {
			c.AfterEach(rec.action("after"))
			c.It("slow", func(t types.T) error {
				select {
				case <-t.Context().Done():
					return t.Context().Err()
				case <-time.After(5 * time.Second):
					return nil
				}
			}).Timeout(20 * time.Millisecond)
		})
		r := resultNamed(t, run(t, suite), "slow")
		assert.Equal(t, types.StatusFailed, r.Status)
		assert.True(t, r.TimedOut)
		require.NotNil(t, r.Failure)
		assert.Equal(t, types.FailureTimeout, r.Failure.Kind)
		assert.Equal(t, 20*time.Millisecond, r.Failure.Timeout)
		assert.Equal(t, "timed out after 20ms", r.Message())
		assert.Equal(t, []string{"after"}, rec.get())
	})

	t.Run("body ignores context", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		suite := builder.MustBuild("timeout", func(c *builder.Context) {
			c.It("stuck", func(types.T) error {
				<-release
				return nil
			}).Timeout(10 * time.Millisecond)
		})
		start := time.Now()
		r := resultNamed(t, runWith(t, Config{TimeoutGrace: 10 * time.Millisecond}, suite), "stuck")
		assert.True(t, r.TimedOut)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("default timeout applies", func(t *testing.T) {
		suite := builder.MustBuild("timeout", func(c *builder.Context) {
			c.It("slow", func(t types.T) error {
				<-t.Context().Done()
				return nil
			})
		})
		r := resultNamed(t, runWith(t, Config{DefaultTimeout: 15 * time.Millisecond}, suite), "slow")
		assert.True(t, r.TimedOut)
		assert.Equal(t, 15*time.Millisecond, r.Failure.Timeout)
	})

	t.Run("timeout in before_each", func(t *testing.T) {
		rec := &recorder{}
		suite := builder.MustBuild("timeout", func(c *builder.Context) {
			c.BeforeEach(func(t types.T) error {
				<-t.Context().Done()
				return t.Context().Err()
			})
			c.AfterEach(rec.action("after"))
			c.It("case", rec.action("body")).Timeout(15 * time.Millisecond)
		})
		r := resultNamed(t, run(t, suite), "case")
		assert.True(t, r.TimedOut)
		assert.Empty(t, rec.get())
	})
}

func TestSkipAndFail(t *testing.T) {
	suite := builder.MustBuild("signals", func(c *builder.Context) {
		c.It("skips", func(t types.T) error {
			t.Skipf("needs %s", "network")
			return errBoom
		})
		c.It("fails", func(t types.T) error {
			t.Fail("explicit failure")
			return nil
		})
		c.It("returns error", func(types.T) error {
			return errBoom
		})
		c.It("returns failure", func(types.T) error {
			return &types.Failure{Kind: types.FailureAssertion, Message: "wrapped", Location: types.Location{File: "x.go", Line: 7}}
		})
	})

	res := run(t, suite)

	skipped := resultNamed(t, res, "skips")
	assert.Equal(t, types.StatusSkipped, skipped.Status)
	assert.Equal(t, "needs network", skipped.Reason)
	assert.Nil(t, skipped.Failure)

	failed := resultNamed(t, res, "fails")
	assert.Equal(t, types.StatusFailed, failed.Status)
	assert.Equal(t, "explicit failure", failed.Message())
	assert.True(t, strings.HasSuffix(failed.Failure.Location.File, "executor_test.go"))

	errored := resultNamed(t, res, "returns error")
	assert.Equal(t, types.FailureAssertion, errored.Failure.Kind)
	assert.Equal(t, errored.Location, errored.Failure.Location)

	custom := resultNamed(t, res, "returns failure")
	assert.Equal(t, types.Location{File: "x.go", Line: 7}, custom.Failure.Location)
}

func TestPanicIsCaptured(t *testing.T) {
	rec := &recorder{}
	suite := builder.MustBuild("panics", func(c *builder.Context) {
		c.It("panics", func(types.T) error {
			panic(fmt.Sprintf("bad value %d", 42))
		})
		c.It("runs after", rec.action("after"))
	})

	res := run(t, suite)
	r := resultNamed(t, res, "panics")
	assert.Equal(t, types.StatusFailed, r.Status)
	require.NotNil(t, r.Failure)
	assert.Equal(t, types.FailurePanic, r.Failure.Kind)
	assert.Equal(t, "panic: bad value 42", r.Message())
	assert.True(t, strings.HasSuffix(r.Failure.Location.File, "executor_test.go"))
	assert.Equal(t, []string{"after"}, rec.get())
}

func TestPendingCaseWithoutBody(t *testing.T) {
	suite := builder.MustBuild("pending", func(c *builder.Context) {
		c.PIt("later", nil)
	})
	res := runWith(t, Config{IncludePending: true}, suite)
	r := resultNamed(t, res, "later")
	assert.Equal(t, types.StatusPassed, r.Status)
}
