package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stevedore/internal/ui"
	"github.com/cameronsjo/stevedore/internal/update"
)

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"upgrade", "selfupdate"},
	Short:   "Update stevedore to the latest version",
	Long: `Update stevedore to the latest version from GitHub releases.

This command will:
1. Check for a newer version on GitHub
2. Download the appropriate binary for your platform
3. Replace the current binary with the new version

Examples:
  stevedore update           # Update to latest version
  stevedore update --check   # Check for updates without installing`,
	Run: runUpdate,
}

var checkOnly bool

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().BoolVar(&checkOnly, "check", false, "Only check for updates, don't install")
}

func runUpdate(cmd *cobra.Command, args []string) {
	ui.Blue.Printf("Current version: %s (%s)\n", version, update.PlatformInfo())

	if checkOnly {
		checkForUpdate(version)
		return
	}

	performUpdate(version)
}

func checkForUpdate(currentVersion string) {
	ui.Blue.Println("Checking for updates...")

	release, available, err := update.CheckForUpdate(context.Background(), currentVersion)
	if err != nil {
		ui.Error("Failed to check for updates: %v", err)
		return
	}

	if !available {
		ui.Success("You're running the latest version!")
		return
	}

	ui.Success("New version available: %s (released %s)", release.Version, release.PublishedAt)
	fmt.Println()
	ui.Blue.Println("To update, run: stevedore update")
	printChangelog(release.Changelog)
}

func performUpdate(currentVersion string) {
	ui.Blue.Println("Checking for updates...")

	release, err := update.Update(context.Background(), currentVersion)
	if err != nil {
		ui.Error("Update failed: %v", err)
		return
	}

	if release == nil {
		ui.Success("You're already running the latest version!")
		return
	}

	fmt.Println()
	ui.Success("Successfully updated to version %s!", release.Version)
	printChangelog(release.Changelog)
	fmt.Println()
	ui.Blue.Println("Restart stevedore to use the new version.")
}

func printChangelog(changelog string) {
	if changelog == "" {
		return
	}

	fmt.Println()
	ui.Yellow.Println("What's new:")
	lines := strings.Split(changelog, "\n")
	maxLines := 10
	if len(lines) < maxLines {
		maxLines = len(lines)
	}
	for i := 0; i < maxLines; i++ {
		fmt.Printf("  %s\n", lines[i])
	}
	if len(lines) > maxLines {
		fmt.Printf("  ... (%d more lines)\n", len(lines)-maxLines)
	}
}
