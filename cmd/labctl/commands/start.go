package commands

import (
	"github.com/spf13/cobra"

	"github.com/kubechaos/labctl/cmd/labctl/handlers"
)

// Start returns the command that converges the lab to ready.
//
// Optional flags:
//
//	--config, -c: Path to lab configuration YAML file (default: auto-detect labctl.yaml)
func Start() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Create or reuse the lab cluster and bring the platform up",
		Long: `Converge the lab from any state to ready.

The sequence is fixed: reconcile the kind cluster (create it, reuse it if
healthy, recreate it if not), wait for all declared nodes to be Ready, apply
the base manifests, wait for CoreDNS and the ingress controller, and finally
probe the smoke endpoint through the ingress.

A failed run can simply be started again; nothing is tracked between runs.

Examples:
  # Converge using labctl.yaml in the current directory (or defaults)
  labctl start

  # Converge using a specific config file
  labctl start --config my-lab.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Start(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: labctl.yaml)")

	return cmd
}
