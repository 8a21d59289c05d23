// Package wait implements the generic convergence poll loop.
//
// A single Waiter serves every stage of the convergence sequence: each stage
// supplies a condition function and, optionally, a fail-fast function that
// can abort the wait on a terminal condition before the next poll.
package wait

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

// CheckFunc evaluates the wait's primary condition. It returns whether the
// condition is satisfied and a short status line for progress reporting.
// Transient not-ready states are expressed as (false, status, nil); an error
// is fatal and stops the wait.
type CheckFunc func(ctx context.Context) (done bool, status string, err error)

// FailFastFunc inspects for a terminal condition alongside the wait. A
// non-empty diagnostic aborts the wait immediately.
type FailFastFunc func(ctx context.Context) (diagnostic string, err error)

// TerminalError is raised when a fail-fast function reports a terminal
// condition. It bypasses any further polling.
type TerminalError struct {
	Label      string
	Diagnostic string
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Label, e.Diagnostic)
}

// Policy configures the poll loop. It is owned by the orchestrator and
// shared read-only.
type Policy struct {
	// Interval is the sleep between poll iterations. Must be >= 0.
	Interval time.Duration
}

// DefaultPolicy matches the interval the lab has always polled at.
func DefaultPolicy() Policy {
	return Policy{Interval: 2 * time.Second}
}

// Waiter runs poll loops against a Policy, writing progress to out.
type Waiter struct {
	policy    Policy
	out       io.Writer
	overwrite bool
}

// NewWaiter creates a Waiter. When out is nil it writes to stdout and
// overwrites the progress line in place on interactive terminals; any other
// writer gets one plain line per status change.
func NewWaiter(policy Policy, out io.Writer) *Waiter {
	overwrite := false

	if out == nil {
		out = os.Stdout
		overwrite = isatty.IsTerminal(os.Stdout.Fd())
	}

	return &Waiter{policy: policy, out: out, overwrite: overwrite}
}

// Wait polls check until it reports done, a fail-fast diagnostic aborts the
// wait, or the context is cancelled. There is no built-in timeout:
// convergence time is operator-dependent, and runaway waits are bounded by
// the fail-fast function or by cancelling ctx.
//
// The fail-fast function runs before the condition on every iteration, so a
// detected terminal failure always preempts a simultaneous done result.
func (w *Waiter) Wait(ctx context.Context, label string, check CheckFunc, failFast FailFastFunc) error {
	fmt.Fprintf(w.out, "  -> %s...\n", label)

	lastStatus := ""

	for {
		if failFast != nil {
			diagnostic, err := failFast(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}

			if diagnostic != "" {
				return &TerminalError{Label: label, Diagnostic: diagnostic}
			}
		}

		done, status, err := check(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}

		if status != "" {
			w.printStatus(status, lastStatus)
			lastStatus = status
		}

		if done {
			w.printDone(status)
			return nil
		}

		if err := sleep(ctx, w.policy.Interval); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
	}
}

func (w *Waiter) printStatus(status, lastStatus string) {
	if w.overwrite {
		// Pad with the previous line's length so shorter lines fully
		// overwrite longer ones.
		padding := ""
		if extra := len(lastStatus) - len(status); extra > 0 {
			padding = strings.Repeat(" ", extra)
		}

		fmt.Fprintf(w.out, "\r     %s%s", status, padding)

		return
	}

	if status != lastStatus {
		fmt.Fprintf(w.out, "     %s\n", status)
	}
}

func (w *Waiter) printDone(status string) {
	if w.overwrite {
		if status != "" {
			fmt.Fprintf(w.out, "\r     %s (OK)\n", status)
		} else {
			fmt.Fprintf(w.out, "     OK\n")
		}

		return
	}

	fmt.Fprintf(w.out, "     OK\n")
}

// sleep blocks for d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
