// ABOUTME: Migration command for copying feedsync snapshots between storage backends
// ABOUTME: Copies the feed list and favorites with a safety check on the target directory

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/feedsync/internal/config"
	"github.com/harper/feedsync/internal/persist"
	"github.com/harper/feedsync/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate data between storage backends",
	Long: `Copy the feed list and favorites from the currently configured backend to a
different backend.

Does NOT update the config file; verify the migration was successful then run
'feedsync setup' or edit config.json.

Examples:
  feedsync migrate --to sqlite
  feedsync migrate --to file --data-dir ~/feedsync-files
  feedsync migrate --to charm`,
	Annotations: map[string]string{annotationStandalone: "true"},
	RunE:        runMigrate,
}

var (
	migrateTo      string
	migrateDataDir string
	migrateForce   bool
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "target backend (file, sqlite, or charm)")
	migrateCmd.Flags().StringVar(&migrateDataDir, "data-dir", "", "target data directory (defaults to current config data_dir)")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "allow writing into a non-empty target directory")
	_ = migrateCmd.MarkFlagRequired("to")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sourceBackend := cfg.GetBackend()
	targetBackend := migrateTo

	switch targetBackend {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendCharm:
	default:
		return fmt.Errorf("invalid target backend %q: must be \"file\", \"sqlite\", or \"charm\"", targetBackend)
	}

	targetDataDir := cfg.GetDataDir()
	if migrateDataDir != "" {
		targetDataDir = config.ExpandPath(migrateDataDir)
	}
	if targetBackend == sourceBackend && targetDataDir == cfg.GetDataDir() {
		return fmt.Errorf("target backend %q is the same as the current backend", targetBackend)
	}

	if targetBackend != storage.BackendCharm && targetDataDir != cfg.GetDataDir() {
		nonEmpty, err := storage.IsDirNonEmpty(targetDataDir)
		if err != nil {
			return fmt.Errorf("check target directory: %w", err)
		}
		if nonEmpty && !migrateForce {
			return fmt.Errorf("target directory %q is not empty; use --force to overwrite", targetDataDir)
		}
	}

	src, err := cfg.OpenStore()
	if err != nil {
		return fmt.Errorf("open source storage (%s): %w", sourceBackend, err)
	}
	defer storage.Close(src)

	dst, err := config.OpenBackend(targetBackend, targetDataDir)
	if err != nil {
		return fmt.Errorf("open target storage (%s): %w", targetBackend, err)
	}
	defer storage.Close(dst)

	color.Yellow("Migrating feedsync data:")
	fmt.Printf("  Source:  %s (%s)\n", sourceBackend, cfg.GetDataDir())
	fmt.Printf("  Target:  %s (%s)\n", targetBackend, targetDataDir)
	fmt.Println()

	summary, err := storage.Migrate(cmd.Context(), src, dst, persist.Names())
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	color.Green("Migration complete!")
	for _, name := range summary.Copied {
		fmt.Printf("  Copied:  %s\n", name)
	}
	for _, name := range summary.Missing {
		fmt.Printf("  Skipped: %s (not in source)\n", name)
	}
	fmt.Println()
	color.Yellow("Note: config.json was NOT updated. To switch to the new backend, edit:")
	fmt.Printf("  %s\n", config.GetConfigPath())
	fmt.Printf("  Set \"backend\": %q", targetBackend)
	if migrateDataDir != "" {
		fmt.Printf(" and \"data_dir\": %q", migrateDataDir)
	}
	fmt.Println()

	return nil
}
