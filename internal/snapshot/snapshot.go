// Package snapshot manages point-in-time copies of rendered topology
// output, so a bad render can be rolled back.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/cameronsjo/stevedore/internal/fileutil"
	"github.com/google/uuid"
)

const (
	// Prefix is the prefix for snapshot directory names.
	Prefix = "snapshot-"
	// DateFormat includes nanoseconds to prevent same-second collisions.
	DateFormat = "20060102-150405.000000000"
	// MaxSnapshots is the maximum number of snapshots to retain.
	MaxSnapshots = 20
	// MinFreeDiskBytes is the minimum free disk space required (100MB).
	MinFreeDiskBytes = 100 * 1024 * 1024
)

// Store manages snapshots of one output directory.
type Store struct {
	// Dir is where snapshots live.
	Dir string
	// OutputDir is the rendered-output directory being snapshotted.
	OutputDir string
}

// Info holds metadata about a snapshot.
type Info struct {
	Name      string
	Path      string
	Created   time.Time
	FileCount int
}

// Create snapshots the current output directory. Returns the snapshot
// name, or an empty string if there was nothing to snapshot.
func (s *Store) Create() (string, error) {
	if !dirHasContent(s.OutputDir) {
		return "", nil
	}

	size, err := dirSize(s.OutputDir)
	if err != nil {
		return "", fmt.Errorf("calculate output directory size: %w", err)
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshots directory: %w", err)
	}
	if err := checkDiskSpace(s.Dir, size+MinFreeDiskBytes); err != nil {
		return "", fmt.Errorf("insufficient disk space for snapshot: %w", err)
	}

	name := Prefix + time.Now().Format(DateFormat)
	path := filepath.Join(s.Dir, name)

	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}
	if err := fileutil.CopyDir(s.OutputDir, path); err != nil {
		os.RemoveAll(path)
		return "", fmt.Errorf("copy output to snapshot: %w", err)
	}

	if err := s.Cleanup(); err != nil {
		// A failed cleanup never fails the snapshot itself.
		fmt.Fprintf(os.Stderr, "warning: failed to cleanup old snapshots: %v\n", err)
	}

	return name, nil
}

// List returns available snapshots sorted by date, newest first.
func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshots directory: %w", err)
	}

	var snapshots []Info
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), Prefix) {
			continue
		}

		path := filepath.Join(s.Dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot read snapshot %s: %v\n", entry.Name(), err)
			continue
		}

		created, err := time.Parse(DateFormat, strings.TrimPrefix(entry.Name(), Prefix))
		if err != nil {
			created = info.ModTime()
		}

		snapshots = append(snapshots, Info{
			Name:      entry.Name(),
			Path:      path,
			Created:   created,
			FileCount: countFiles(path),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Created.After(snapshots[j].Created)
	})

	return snapshots, nil
}

// Restore replaces the output directory with a snapshot's content. The
// current output is backed up first, and the swap goes through a temp
// directory plus rename so a failure never leaves a half-restored tree.
func (s *Store) Restore(name string) error {
	snapshotPath := filepath.Join(s.Dir, name)
	if _, err := os.Stat(snapshotPath); os.IsNotExist(err) {
		return fmt.Errorf("snapshot not found: %s", name)
	}

	size, err := dirSize(snapshotPath)
	if err != nil {
		return fmt.Errorf("calculate snapshot size: %w", err)
	}
	if err := checkDiskSpace(filepath.Dir(s.OutputDir), size+MinFreeDiskBytes); err != nil {
		return fmt.Errorf("insufficient disk space for restore: %w", err)
	}

	if dirHasContent(s.OutputDir) {
		backupPath := filepath.Join(s.Dir, "pre-rollback-"+time.Now().Format(DateFormat))
		if err := os.MkdirAll(backupPath, 0755); err != nil {
			return fmt.Errorf("create backup directory: %w", err)
		}
		if err := fileutil.CopyDir(s.OutputDir, backupPath); err != nil {
			os.RemoveAll(backupPath)
			return fmt.Errorf("create pre-rollback backup: %w", err)
		}
	}

	// UUID suffix prevents races between concurrent restores.
	restoreID := uuid.New().String()[:8]
	tempDir := s.OutputDir + ".restore-temp-" + restoreID
	oldDir := s.OutputDir + ".restore-old-" + restoreID

	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return fmt.Errorf("create temp restore directory: %w", err)
	}
	if err := fileutil.CopyDir(snapshotPath, tempDir); err != nil {
		os.RemoveAll(tempDir)
		return fmt.Errorf("copy snapshot to temp: %w", err)
	}

	_, statErr := os.Stat(s.OutputDir)
	outputExists := statErr == nil

	if outputExists {
		if err := os.Rename(s.OutputDir, oldDir); err != nil {
			os.RemoveAll(tempDir)
			return fmt.Errorf("rename current output: %w", err)
		}
	}

	if err := os.Rename(tempDir, s.OutputDir); err != nil {
		if outputExists {
			if recoverErr := os.Rename(oldDir, s.OutputDir); recoverErr != nil {
				os.RemoveAll(tempDir)
				return fmt.Errorf("rename temp to output: %w (recovery also failed: %v)", err, recoverErr)
			}
		}
		os.RemoveAll(tempDir)
		return fmt.Errorf("rename temp to output: %w", err)
	}

	if outputExists {
		os.RemoveAll(oldDir)
	}

	return nil
}

// Cleanup removes snapshots beyond the retention limit. It keeps
// deleting even when individual removals fail and reports them all.
func (s *Store) Cleanup() error {
	snapshots, err := s.List()
	if err != nil {
		return err
	}

	if len(snapshots) <= MaxSnapshots {
		return nil
	}

	var errs []string
	for _, snap := range snapshots[MaxSnapshots:] {
		if err := removeWithRetry(snap.Path, 3); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", snap.Name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to remove %d snapshot(s): %s", len(errs), strings.Join(errs, "; "))
	}

	return nil
}

// dirHasContent checks if a directory exists and has at least one entry.
func dirHasContent(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

func countFiles(dir string) int {
	count := 0
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			count++
		}
		return nil
	})
	return count
}

func checkDiskSpace(dir string, requiredBytes int64) error {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("failed to check disk space: %w", err)
	}

	available := int64(stat.Bavail) * int64(stat.Bsize)
	if available < requiredBytes {
		return fmt.Errorf("need %d bytes, only %d available", requiredBytes, available)
	}
	return nil
}

func dirSize(dir string) (int64, error) {
	var size int64
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// removeWithRetry retries transient removal failures with backoff.
func removeWithRetry(path string, maxRetries int) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := os.RemoveAll(path); err != nil {
			lastErr = err
			time.Sleep(time.Duration(10*(1<<i)) * time.Millisecond)
			continue
		}
		return nil
	}
	return lastErr
}
