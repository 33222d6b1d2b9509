// ABOUTME: Centralized configuration defaults for feedsync
// ABOUTME: Contains magic numbers and hardcoded values for refresh, display, and storage

package config

import "time"

// Refresh settings
const (
	DefaultRefreshAttempts        = 5
	DefaultAttemptTimeout         = 20 * time.Second
	DefaultHostInterval           = time.Second
	DefaultMaxConcurrentRefreshes = 4
)

// HTTP settings
const (
	DefaultHTTPTimeout = 30 * time.Second
)

// Display settings
const (
	DefaultListLimit = 20
	DisplayIDLength  = 8
	SeparatorWidth   = 60
	DateFormatShort  = "02 Jan 06 15:04"
	DateFormatLong   = "Mon, 02 Jan 2006 15:04 MST"
)

// Storage settings
const (
	DefaultBackend   = "file"
	DefaultLogLevel  = "info"
	DefaultDirPerms  = 0755
	SQLiteDBFilename = "feedsync.db"
	configFilePerms  = 0644
)
