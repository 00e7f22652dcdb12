package main

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum-optimism/infra/op-spec/builder"
	"github.com/ethereum-optimism/infra/op-spec/registry"
	"github.com/ethereum-optimism/infra/op-spec/types"
)

// registerSuites adds the example suites shipped with the binary
func registerSuites(reg *registry.Registry) {
	reg.MustAdd("Calculator", calculatorSuite)
	reg.MustAdd("Checkout", checkoutSuite)
	reg.MustAdd("Strings", stringsSuite)
}

type calculator struct{}

func (c *calculator) add(a, b int) int { return a + b }

func (c *calculator) divide(a, b int) (int, error) {
	if b == 0 {
		return 0, errors.New("division by zero")
	}
	return a / b, nil
}

func calc(t types.T) *calculator {
	return t.Subject().(*calculator)
}

func calculatorSuite(c *builder.Context) {
	c.Subject(func(t types.T) (any, error) {
		return &calculator{}, nil
	})

	c.Describe("addition", func(c *builder.Context) {
		c.Labels("fast")

		c.It("adds two numbers", func(t types.T) error {
			if got := calc(t).add(2, 3); got != 5 {
				return fmt.Errorf("expected 5, got %d", got)
			}
			return nil
		})
		c.It("is commutative", func(t types.T) error {
			if calc(t).add(4, 9) != calc(t).add(9, 4) {
				t.Fail("addition is not commutative")
			}
			return nil
		})
		c.PIt("adds arbitrary precision numbers", nil)
	})

	c.Describe("division", func(c *builder.Context) {
		c.When("the divisor is zero", func(c *builder.Context) {
			c.It("returns an error", func(t types.T) error {
				t.By("dividing 1 by 0")
				if _, err := calc(t).divide(1, 0); err == nil {
					return errors.New("expected an error")
				}
				return nil
			}).Labels("edge")
		})

		builder.DescribeTable(c, "exact quotients", func(t types.T, row [3]int) error {
			got, err := calc(t).divide(row[0], row[1])
			if err != nil {
				return err
			}
			if got != row[2] {
				return fmt.Errorf("%d / %d: expected %d, got %d", row[0], row[1], row[2], got)
			}
			return nil
		},
			builder.Entry("small", [3]int{6, 3, 2}),
			builder.Entry("negative", [3]int{-9, 3, -3}),
			builder.UnnamedEntry([3]int{100, 10, 10}),
		)
	})
}

func checkoutSuite(c *builder.Context) {
	var (
		connected atomic.Bool
		flaky     atomic.Int32
	)
	c.Labels("integration")
	c.BeforeAll(func(t types.T) error {
		connected.Store(true)
		t.Logger().Info("Connected to the payment sandbox")
		return nil
	})
	c.AfterAll(func(t types.T) error {
		connected.Store(false)
		return nil
	})

	c.Ordered("places an order", func(o *builder.OrderedContext) {
		var cart []string
		o.Step("add items", func(t types.T) error {
			cart = append(cart, "book", "pen")
			return nil
		})
		o.Step("apply discount", func(t types.T) error {
			if len(cart) == 0 {
				return errors.New("cart is empty")
			}
			return nil
		})
		o.Step("pay", func(t types.T) error {
			if !connected.Load() {
				return errors.New("payment sandbox is not connected")
			}
			return nil
		})
	})

	c.It("recovers from a dropped connection", func(t types.T) error {
		if flaky.Add(1) < 2 {
			return errors.New("connection reset by peer")
		}
		return nil
	}).Retries(2)

	c.It("answers within its deadline", func(t types.T) error {
		select {
		case <-time.After(10 * time.Millisecond):
			return nil
		case <-t.Context().Done():
			return t.Context().Err()
		}
	}).Timeout(time.Second).MustPassRepeatedly(3).Labels("slow")
}

func stringsSuite(c *builder.Context) {
	c.Labels("fast")
	c.It("joins words", func(t types.T) error {
		var words []string
		t.DeferCleanup(func() { words = nil })
		words = append(words, "hello", "world")
		if got := strings.Join(words, " "); got != "hello world" {
			return fmt.Errorf("unexpected join %q", got)
		}
		return nil
	})
	c.XIt("handles right-to-left scripts", func(t types.T) error {
		return nil
	})
}
