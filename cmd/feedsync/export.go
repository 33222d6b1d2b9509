// ABOUTME: Export command for writing the feed list as OPML to stdout
// ABOUTME: Outputs subscriptions in display order for backup or import into other readers

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harper/feedsync/internal/persist"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export feeds as OPML to stdout",
	Long:  "Export the current feed list in OPML format to standard output",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openCollection(cmd.Context(), false)
		if err != nil {
			return err
		}
		data, err := persist.EncodeFeedList(persist.SnapshotFeedList(m.Feeds()))
		if err != nil {
			return fmt.Errorf("failed to encode OPML: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
