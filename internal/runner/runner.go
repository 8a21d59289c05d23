// Package runner executes external commands and captures their output.
//
// The package deliberately carries no retry or timeout policy: a non-zero
// exit is a normal, inspectable outcome at this layer, and callers decide
// what to do about it. Contexts are threaded through exec.CommandContext so
// a top-level interrupt terminates the child process.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Result captures the exit code, stdout, and stderr of a single external
// command invocation. It is produced once per call and never mutated.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes an external command given as argv.
//
// Run never returns an error for a non-zero exit; the exit code is part of
// the Result. Implementations return an error only when the process could
// not be spawned at all.
type Runner interface {
	Run(ctx context.Context, argv ...string) (Result, error)
}

// Error is returned by RunChecked when a command exits non-zero. It carries
// the exact argv and the captured streams so the boundary can print a
// complete diagnostic.
type Error struct {
	Argv   []string
	Result Result
}

func (e *Error) Error() string {
	details := strings.TrimSpace(e.Result.Stderr)
	if details == "" {
		details = strings.TrimSpace(e.Result.Stdout)
	}
	if details == "" {
		details = "unknown error"
	}

	return fmt.Sprintf("command failed: %s\n%s", strings.Join(e.Argv, " "), details)
}

// ExecRunner runs commands as real OS processes.
type ExecRunner struct{}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run spawns argv[0] with the remaining arguments and waits for it to exit.
// A non-zero exit is reported through Result.ExitCode, not as an error. If
// the process cannot be started (binary missing, permission denied), the
// spawn error is returned and the Result carries ExitCode -1.
func (r *ExecRunner) Run(ctx context.Context, argv ...string) (Result, error) {
	if len(argv) == 0 {
		return Result{ExitCode: -1}, fmt.Errorf("empty command")
	}

	var stdout, stderr bytes.Buffer

	// #nosec G204 - argv is assembled from internal clients, never raw user input
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := Result{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}

		result.ExitCode = -1

		return result, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}

	return result, nil
}

// RunChecked executes argv through r and converts a non-zero exit into an
// *Error carrying the full command and captured streams.
func RunChecked(ctx context.Context, r Runner, argv ...string) (Result, error) {
	result, err := r.Run(ctx, argv...)
	if err != nil {
		return result, err
	}

	if result.ExitCode != 0 {
		return result, &Error{Argv: append([]string(nil), argv...), Result: result}
	}

	return result, nil
}
