package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stevedore/internal/config"
	"github.com/cameronsjo/stevedore/internal/snapshot"
	"github.com/cameronsjo/stevedore/internal/ui"
)

// snapshotCmd groups snapshot management subcommands.
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage rendered-output snapshots",
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available snapshots, newest first",
	Run:   runSnapshotList,
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Roll the output directory back to a snapshot",
	Args:  cobra.ExactArgs(1),
	Run:   runSnapshotRestore,
}

func init() {
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotRestoreCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func projectStore() (*snapshot.Store, error) {
	cfg, err := config.Load(".")
	if err != nil {
		return nil, err
	}
	return &snapshot.Store{
		Dir:       cfg.SnapshotsDir(),
		OutputDir: cfg.OutputDir(),
	}, nil
}

func runSnapshotList(cmd *cobra.Command, args []string) {
	store, err := projectStore()
	if err != nil {
		fail(err)
	}

	snapshots, err := store.List()
	if err != nil {
		fail(err)
	}

	if len(snapshots) == 0 {
		ui.Info("No snapshots")
		return
	}

	ui.Header("Snapshots (newest first)")
	for _, snap := range snapshots {
		fmt.Printf("  %s  %s  %d file(s)\n",
			snap.Name, snap.Created.Format("2006-01-02 15:04:05"), snap.FileCount)
	}
}

func runSnapshotRestore(cmd *cobra.Command, args []string) {
	store, err := projectStore()
	if err != nil {
		fail(err)
	}

	if err := store.Restore(args[0]); err != nil {
		fail(err)
	}

	ui.Snapshot("Restored %s", args[0])
}
