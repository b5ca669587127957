package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stevedore/internal/fileutil"
	"github.com/cameronsjo/stevedore/internal/snapshot"
	"github.com/cameronsjo/stevedore/internal/ui"
)

var renderOutput string

// renderCmd represents the render command.
var renderCmd = &cobra.Command{
	Use:   "render <base> [override...]",
	Short: "Compose topology layers and print the result",
	Long: `Compose a base topology document with override layers and print
the merged topology.

Layers apply left to right: scalars replace, mappings merge key by key,
sequences replace wholesale. A key tagged !reset in a later layer deletes
it. Rendering the same layers twice produces byte-identical output.

Documents ending in .tmpl are rendered as templates first (sprig
functions plus include and fromJsonFile), then ${VAR} placeholders are
substituted from the environment.

Examples:
  # Print the merged topology
  stevedore render topology.yml overlays/prod.yml

  # Write topology.yml to a directory, snapshotting what was there
  stevedore render -o output/ topology.yml overlays/prod.yml

  # Template values and strict merging
  stevedore render -f values.yml --strict topology.yml.tmpl`,
	Args: cobra.MinimumNArgs(1),
	Run:  runRender,
}

func init() {
	addComposeFlags(renderCmd)
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output directory (prints to stdout if not set)")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) {
	topo, err := composeLayers(args)
	if err != nil {
		fail(err)
	}

	rendered, err := topo.EncodeYAML()
	if err != nil {
		fail(err)
	}

	if renderOutput == "" {
		fmt.Print(string(rendered))
		return
	}

	// Snapshot whatever the output directory held before overwriting.
	store := &snapshot.Store{
		Dir:       filepath.Join(renderOutput, ".snapshots"),
		OutputDir: renderOutput,
	}
	snapName, err := store.Create()
	if err != nil {
		fail(err)
	}
	if snapName != "" {
		ui.Snapshot("Saved previous output as %s", snapName)
	}

	outPath := filepath.Join(renderOutput, "topology.yml")
	if err := fileutil.WriteFileAtomic(outPath, rendered, 0644); err != nil {
		fail(err)
	}

	ui.Success("Rendered %d service(s) to %s", len(topo.ServiceNames()), outPath)
}
