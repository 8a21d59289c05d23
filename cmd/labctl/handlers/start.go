// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic and
// can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/kubechaos/labctl/internal/config"
	"github.com/kubechaos/labctl/internal/convergence"
	"github.com/kubechaos/labctl/internal/runner"
)

// Converger interface for testing - matches convergence.Orchestrator.
type Converger interface {
	Execute(ctx context.Context) error
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfig loads the run configuration.
	loadConfig = config.Load

	// newRunner creates the command runner used for kind and kubectl.
	newRunner = func() runner.Runner {
		return runner.NewExecRunner()
	}

	// newConverger wires the convergence orchestrator.
	newConverger = func(cfg *config.Config, r runner.Runner, out io.Writer) Converger {
		return convergence.NewOrchestrator(cfg, r, out)
	}

	// stdout is the progress destination.
	stdout io.Writer = os.Stdout
)

// Start converges the lab cluster and platform stack to ready.
//
// The convergence sequence is owned by the orchestrator; this handler only
// loads configuration and wires the pieces together.
func Start(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	return newConverger(cfg, newRunner(), stdout).Execute(ctx)
}
