// Package doctor checks the host for the tools the lab depends on.
package doctor

import (
	"context"
	"os/exec"
	"strings"

	"github.com/kubechaos/labctl/internal/runner"
)

// Status classifies a check outcome.
type Status string

// Check outcomes.
const (
	StatusOK   Status = "OK"
	StatusWarn Status = "WRN"
	StatusErr  Status = "ERR"
)

// CheckResult is the outcome of one host prerequisite check.
type CheckResult struct {
	Name    string
	Status  Status
	Message string
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// Run executes all host prerequisite checks and returns their results in a
// fixed order.
func Run(ctx context.Context, r runner.Runner) []CheckResult {
	return []CheckResult{
		checkCommand(ctx, r, "git", "--version"),
		checkCommand(ctx, r, "docker", "--version"),
		checkDockerDaemon(ctx, r),
		checkCommand(ctx, r, "kubectl", "version", "--client"),
		checkCommand(ctx, r, "kind", "version"),
		checkKustomize(ctx, r),
	}
}

// ExitCode maps the results to a process exit code: non-zero when any check
// errored. Warnings do not fail the doctor.
func ExitCode(results []CheckResult) int {
	for _, result := range results {
		if result.Status == StatusErr {
			return 1
		}
	}

	return 0
}

// checkCommand verifies a binary is on PATH and reports its version line.
func checkCommand(ctx context.Context, r runner.Runner, name string, versionArgs ...string) CheckResult {
	path, err := lookPath(name)
	if err != nil {
		return CheckResult{Name: name, Status: StatusErr, Message: "not found"}
	}

	version := commandVersion(ctx, r, name, versionArgs...)

	return CheckResult{Name: name, Status: StatusOK, Message: path + " | " + version}
}

// checkDockerDaemon verifies the docker daemon answers, not just that the
// client binary exists.
func checkDockerDaemon(ctx context.Context, r runner.Runner) CheckResult {
	if _, err := lookPath("docker"); err != nil {
		return CheckResult{Name: "docker daemon", Status: StatusErr, Message: "docker not installed"}
	}

	result, err := r.Run(ctx, "docker", "info")
	if err == nil && result.ExitCode == 0 {
		return CheckResult{Name: "docker daemon", Status: StatusOK, Message: "reachable"}
	}

	message := firstLine(result.Stderr)
	if message == "" {
		message = firstLine(result.Stdout)
	}

	if message == "" {
		message = "not reachable (is Docker running?)"
	}

	return CheckResult{Name: "docker daemon", Status: StatusErr, Message: message}
}

// checkKustomize accepts either kubectl's built-in kustomize or a standalone
// binary; a missing kustomize is only a warning because the base manifests
// may not need it on every host.
func checkKustomize(ctx context.Context, r runner.Runner) CheckResult {
	if _, err := lookPath("kubectl"); err != nil {
		return CheckResult{Name: "kustomize", Status: StatusErr, Message: "kubectl not installed"}
	}

	result, err := r.Run(ctx, "kubectl", "kustomize", "--help")
	if err == nil && result.ExitCode == 0 {
		return CheckResult{Name: "kustomize", Status: StatusOK, Message: "kubectl kustomize available"}
	}

	if _, err := lookPath("kustomize"); err == nil {
		version := commandVersion(ctx, r, "kustomize", "version")
		return CheckResult{Name: "kustomize", Status: StatusOK, Message: version}
	}

	return CheckResult{
		Name:    "kustomize",
		Status:  StatusWarn,
		Message: "not detected (kubectl kustomize unavailable and kustomize binary not found)",
	}
}

func commandVersion(ctx context.Context, r runner.Runner, name string, args ...string) string {
	result, err := r.Run(ctx, append([]string{name}, args...)...)
	if err != nil {
		return "version output not available"
	}

	line := firstLine(result.Stdout)
	if line == "" {
		line = firstLine(result.Stderr)
	}

	if line == "" {
		return "version output not available"
	}

	return line
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}

	return ""
}
