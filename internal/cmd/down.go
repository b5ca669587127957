package cmd

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cameronsjo/stevedore/internal/lock"
	"github.com/cameronsjo/stevedore/internal/runtime"
	"github.com/cameronsjo/stevedore/internal/ui"
)

var downForce bool

// downCmd represents the down command.
var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop the project topology",
	Long: `Stop and remove every service of the project topology, in the
exact reverse of start order. Containers that no longer exist are
skipped.

Asks for confirmation when run interactively; --force skips the prompt.`,
	Run: runDown,
}

func init() {
	addComposeFlags(downCmd)
	downCmd.Flags().BoolVar(&downForce, "force", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(downCmd)
}

func runDown(cmd *cobra.Command, args []string) {
	cfg, topo, err := loadProject()
	if err != nil {
		fail(err)
	}

	if !downForce && !confirm("Stop %d service(s) of %s?", len(topo.ServiceNames()), cfg.Project) {
		ui.Warning("Aborted")
		return
	}

	ui.Anchor("Stopping %s", cfg.Project)

	err = lock.WithLock(cfg.StateDir(), "down", func() error {
		return withExecutor(cfg.Project, cfg.Root, func(ctx context.Context, exec *runtime.Executor) error {
			exec.OnProgress = func(service, phase string) {
				ui.Info("  %s: %s", service, phase)
			}
			return exec.Down(ctx, topo)
		})
	})
	if err != nil {
		fail(err)
	}

	ui.Success("All services stopped")
}

// confirm prompts on an interactive terminal; a non-interactive stdin
// counts as a yes so pipelines are not blocked.
func confirm(format string, args ...any) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}

	ui.Yellow.Printf(format+" [y/N] ", args...)

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
