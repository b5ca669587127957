// Package cmd provides the CLI commands for stevedore.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "stevedore",
	Short: "Layered service-topology resolver for container fleets",
	Long: `stevedore - layered service topologies

Composes a base topology document with environment-specific override
layers into a final runnable topology, with a deterministic start order
and its reverse for teardown.

COMPOSE COMMANDS
  render <base> [override...]   Compose layers and print the topology
    --output, -o <dir>          Write topology.yml (snapshots old output)
    --values, -f <file>         Values for .tmpl documents
    --strict                    Refuse scalar-over-mapping overrides
    --no-interpolate            Skip ${VAR} substitution
  graph <base> [override...]    Print start and stop order
  lint <base> [override...]     Validate without printing
  env <service> <base> [override...]
                                Print a service's resolved environment

RUNTIME COMMANDS
  up                            Start the project topology in order
  down                          Stop it in reverse order
    --force                     Skip the confirmation prompt

MAINTENANCE
  snapshot list                 List rendered-output snapshots
  snapshot restore <name>       Roll output back to a snapshot
  update                        Update stevedore to the latest release`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate("stevedore version {{.Version}}\n")
}
