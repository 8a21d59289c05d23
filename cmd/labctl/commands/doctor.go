package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubechaos/labctl/cmd/labctl/handlers"
)

// Doctor returns the command for diagnosing the host environment.
func Doctor() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check host prerequisites for the lab",
		Long: `Check that the tools the lab depends on are installed and working.

Verifies git, docker (binary and daemon), kubectl, kind, and kustomize.
Exits non-zero if any required tool is missing or broken.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context())
		},
	}
}
