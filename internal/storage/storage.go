// ABOUTME: Byte store interface for named snapshot persistence
// ABOUTME: Backends replace a whole named blob atomically and load it back on demand

package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// Backend names accepted by configuration.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendCharm  = "charm"
)

// ByteStore persists opaque named blobs.
type ByteStore interface {
	// Save replaces the blob stored under name. Readers never observe a partial write.
	Save(ctx context.Context, name string, data []byte) error

	// TryLoad returns the blob stored under name. ok is false when nothing is stored.
	TryLoad(ctx context.Context, name string) (data []byte, ok bool, err error)
}

// GetDefaultDataDir returns the default directory for local backends.
func GetDefaultDataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "./feedsync-data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "feedsync")
}

// Close releases the store if its backend holds resources.
func Close(s ByteStore) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
