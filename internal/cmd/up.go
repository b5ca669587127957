package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stevedore/internal/lock"
	"github.com/cameronsjo/stevedore/internal/runtime"
	"github.com/cameronsjo/stevedore/internal/ui"
)

// upCmd represents the up command.
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the project topology",
	Long: `Compose the project's layers (from stevedore.yml) and start every
service against the local Docker daemon, in dependency order. A service
with a health probe must report healthy before its dependents start.

Holds the project lock so concurrent up/down runs cannot interleave.`,
	Run: runUp,
}

func init() {
	addComposeFlags(upCmd)
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) {
	cfg, topo, err := loadProject()
	if err != nil {
		fail(err)
	}

	ui.Ship("Starting %s (%d services)", cfg.Project, len(topo.ServiceNames()))

	err = lock.WithLock(cfg.StateDir(), "up", func() error {
		return withExecutor(cfg.Project, cfg.Root, func(ctx context.Context, exec *runtime.Executor) error {
			exec.OnProgress = func(service, phase string) {
				if phase == "pull" {
					ui.Crate("  %s: pulling image", service)
					return
				}
				ui.Info("  %s: %s", service, phase)
			}
			return exec.Up(ctx, topo)
		})
	})
	if err != nil {
		fail(err)
	}

	ui.Success("All services up")
}
