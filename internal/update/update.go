// Package update provides self-update functionality for stevedore.
package update

import (
	"context"
	"fmt"
	"runtime"

	"github.com/creativeprojects/go-selfupdate"
)

const (
	// Repository owner and name for GitHub releases.
	repoOwner = "cameronsjo"
	repoName  = "stevedore"
)

// Release contains information about an available update.
type Release struct {
	Version     string
	ReleaseURL  string
	PublishedAt string
	Changelog   string
}

func detectLatest(ctx context.Context) (*selfupdate.Updater, *selfupdate.Release, bool, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, nil, false, fmt.Errorf("creating update source: %w", err)
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Source: source,
	})
	if err != nil {
		return nil, nil, false, fmt.Errorf("creating updater: %w", err)
	}

	latest, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return nil, nil, false, fmt.Errorf("detecting latest version: %w", err)
	}

	return updater, latest, found, nil
}

func newRelease(latest *selfupdate.Release) *Release {
	return &Release{
		Version:     latest.Version(),
		ReleaseURL:  latest.URL,
		PublishedAt: latest.PublishedAt.Format("2006-01-02"),
		Changelog:   latest.ReleaseNotes,
	}
}

// CheckForUpdate checks if a newer version is available.
func CheckForUpdate(ctx context.Context, currentVersion string) (*Release, bool, error) {
	_, latest, found, err := detectLatest(ctx)
	if err != nil {
		return nil, false, err
	}
	if !found || latest.LessOrEqual(currentVersion) {
		return nil, false, nil
	}

	return newRelease(latest), true, nil
}

// Update downloads and installs the latest version.
func Update(ctx context.Context, currentVersion string) (*Release, error) {
	updater, latest, found, err := detectLatest(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no releases found for %s/%s", repoOwner, repoName)
	}
	if latest.LessOrEqual(currentVersion) {
		return nil, nil // Already up to date
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return nil, fmt.Errorf("getting executable path: %w", err)
	}
	if err := updater.UpdateTo(ctx, latest, exe); err != nil {
		return nil, fmt.Errorf("updating binary: %w", err)
	}

	return newRelease(latest), nil
}

// PlatformInfo returns the current platform information.
func PlatformInfo() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}
