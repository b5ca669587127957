package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stevedore/internal/ui"
)

// graphCmd represents the graph command.
var graphCmd = &cobra.Command{
	Use:   "graph <base> [override...]",
	Short: "Print topology start and stop order",
	Long: `Compose the given layers and print the dependency-resolved start
order, service dependencies, and the stop order (the exact reverse).`,
	Args: cobra.MinimumNArgs(1),
	Run:  runGraph,
}

func init() {
	addComposeFlags(graphCmd)
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) {
	topo, err := composeLayers(args)
	if err != nil {
		fail(err)
	}

	ui.Header("Start order")
	for i, name := range topo.StartOrder() {
		deps := topo.Graph().Dependencies(name)
		if len(deps) == 0 {
			ui.Step(i+1, "%s", name)
			continue
		}
		ui.Step(i+1, "%s (after %s)", name, strings.Join(deps, ", "))
	}

	fmt.Println()
	ui.Header("Stop order")
	for i, name := range topo.StopOrder() {
		ui.Step(i+1, "%s", name)
	}
}
