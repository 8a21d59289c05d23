package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/kubechaos/labctl/internal/doctor"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#eab308"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
)

// runChecks is swapped in tests.
var runChecks = doctor.Run

// Doctor checks host prerequisites and prints one line per check. It
// returns an error when any required tool is missing or broken so the CLI
// exits non-zero.
func Doctor(ctx context.Context) error {
	results := runChecks(ctx, newRunner())

	for _, result := range results {
		fmt.Fprintf(stdout, "%s %s: %s\n", marker(result.Status), result.Name, result.Message)
	}

	if doctor.ExitCode(results) != 0 {
		return errors.New("some prerequisites are missing, fix the ERR items above")
	}

	return nil
}

func marker(status doctor.Status) string {
	switch status {
	case doctor.StatusOK:
		return okStyle.Render("[OK]")
	case doctor.StatusWarn:
		return warnStyle.Render("[??]")
	case doctor.StatusErr:
		return errStyle.Render("[!!]")
	}

	return string(status)
}
