// ABOUTME: Snapshot migration between byte store backends
// ABOUTME: Copies named snapshots from a source store to a destination store

package storage

import (
	"context"
	"fmt"
	"os"
)

// MigrateSummary reports what a migration copied.
type MigrateSummary struct {
	Copied  []string
	Missing []string // Names absent from the source
}

// Migrate copies each named snapshot from src to dst. Names the source does
// not hold are reported, not treated as errors.
func Migrate(ctx context.Context, src, dst ByteStore, names []string) (*MigrateSummary, error) {
	summary := &MigrateSummary{}
	for _, name := range names {
		data, ok, err := src.TryLoad(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load %s from source: %w", name, err)
		}
		if !ok {
			summary.Missing = append(summary.Missing, name)
			continue
		}
		if err := dst.Save(ctx, name, data); err != nil {
			return nil, fmt.Errorf("save %s to destination: %w", name, err)
		}
		summary.Copied = append(summary.Copied, name)
	}
	return summary, nil
}

// IsDirNonEmpty checks whether a directory exists and contains any files or subdirectories.
// Returns false if the directory does not exist or is empty.
func IsDirNonEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read directory %q: %w", path, err)
	}
	return len(entries) > 0, nil
}
