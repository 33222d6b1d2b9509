// ABOUTME: Configuration management with storage backend selection
// ABOUTME: Handles refresh tuning, logging level, and the byte store factory

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harper/feedsync/internal/storage"
)

// Config stores feedsync configuration.
type Config struct {
	// Backend selects the snapshot store: "file" (default), "sqlite" or "charm".
	Backend string `json:"backend,omitempty"`

	// DataDir is the root directory for local backends.
	// Supports ~ expansion. Defaults to ~/.local/share/feedsync.
	DataDir string `json:"data_dir,omitempty"`

	LogLevel string `json:"log_level,omitempty"`

	// RefreshAttempts is the fetch budget for one refresh of one feed.
	RefreshAttempts int `json:"refresh_attempts,omitempty"`

	// Durations use Go syntax, e.g. "20s" or "1m30s".
	AttemptTimeout string `json:"attempt_timeout,omitempty"`
	HostInterval   string `json:"host_interval,omitempty"`

	MaxConcurrentRefreshes int `json:"max_concurrent_refreshes,omitempty"`
}

// GetBackend returns the configured backend, defaulting to "file".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return DefaultBackend
	}
	return c.Backend
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.GetDefaultDataDir()
	}
	return ExpandPath(c.DataDir)
}

func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return DefaultLogLevel
	}
	return c.LogLevel
}

func (c *Config) GetRefreshAttempts() int {
	if c.RefreshAttempts <= 0 {
		return DefaultRefreshAttempts
	}
	return c.RefreshAttempts
}

// GetAttemptTimeout returns the per-attempt fetch timeout. Unparseable values
// fall back to the default; Validate reports them.
func (c *Config) GetAttemptTimeout() time.Duration {
	return durationOr(c.AttemptTimeout, DefaultAttemptTimeout)
}

// GetHostInterval returns the minimum spacing between requests to one host.
// Zero disables the limit.
func (c *Config) GetHostInterval() time.Duration {
	return durationOr(c.HostInterval, DefaultHostInterval)
}

func (c *Config) GetMaxConcurrentRefreshes() int {
	if c.MaxConcurrentRefreshes <= 0 {
		return DefaultMaxConcurrentRefreshes
	}
	return c.MaxConcurrentRefreshes
}

func durationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// Validate checks the backend name and duration fields.
func (c *Config) Validate() error {
	switch c.GetBackend() {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendCharm:
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	for field, value := range map[string]string{
		"attempt_timeout": c.AttemptTimeout,
		"host_interval":   c.HostInterval,
	} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			return fmt.Errorf("invalid %s: %q", field, value)
		}
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStore creates the ByteStore for the configured backend.
// Callers release it with storage.Close.
func (c *Config) OpenStore() (storage.ByteStore, error) {
	return OpenBackend(c.GetBackend(), c.GetDataDir())
}

// OpenBackend creates a ByteStore for an explicit backend and data directory.
func OpenBackend(backend, dataDir string) (storage.ByteStore, error) {
	switch backend {
	case storage.BackendFile:
		return storage.NewFileStore(dataDir)
	case storage.BackendSQLite:
		return storage.NewSQLiteStore(filepath.Join(dataDir, SQLiteDBFilename))
	case storage.BackendCharm:
		return storage.NewCharmStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "feedsync", "config.json")
}

// Load reads config from disk, writing a default config on first run.
func Load() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultFirstRunConfig()
			if saveErr := cfg.Save(); saveErr != nil {
				fmt.Fprintf(os.Stderr, "warning: could not save default config: %v\n", saveErr)
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return storage.AtomicWrite(GetConfigPath(), data, configFilePerms)
}

// defaultFirstRunConfig returns the default config for first-time runs.
// An existing SQLite database in the default data directory keeps SQLite as
// the backend; otherwise new users get the file backend.
func defaultFirstRunConfig() *Config {
	dbPath := filepath.Join(storage.GetDefaultDataDir(), SQLiteDBFilename)
	_, err := os.Stat(dbPath)
	switch {
	case err == nil:
		return &Config{Backend: storage.BackendSQLite}
	case !os.IsNotExist(err):
		fmt.Fprintf(os.Stderr, "warning: could not check for existing database: %v\n", err)
	}
	return &Config{Backend: storage.BackendFile}
}
