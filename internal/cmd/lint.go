package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cameronsjo/stevedore/internal/ui"
)

// lintCmd represents the lint command.
var lintCmd = &cobra.Command{
	Use:   "lint <base> [override...]",
	Short: "Validate topology layers without printing",
	Long: `Compose the given layers and report problems without printing the
result.

Exit codes:
  0  topology is valid
  1  a document failed to parse
  2  layers conflict (strict mode type clash)
  3  anchor or dependency cycle
  4  depends_on names an undefined service`,
	Args: cobra.MinimumNArgs(1),
	Run:  runLint,
}

func init() {
	addComposeFlags(lintCmd)
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) {
	topo, err := composeLayers(args)
	if err != nil {
		fail(err)
	}

	ui.Success("%d layer(s) compose cleanly: %d service(s)", len(args), len(topo.ServiceNames()))
}
