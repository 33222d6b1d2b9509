// ABOUTME: Refresh command to fetch new articles from RSS/Atom feeds
// ABOUTME: Refreshes all feeds concurrently or a single feed, with colored per-feed outcomes

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/feedsync/internal/models"
	"github.com/harper/feedsync/internal/refresh"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [feed]",
	Short: "Fetch new articles from feeds",
	Long: `Fetch new articles from all subscribed feeds, or from one feed given by URL,
name, or ID prefix.

Failed fetches are retried with exponential backoff. A feed that still fails
keeps the articles it already had.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m, err := openCollection(ctx, false)
		if err != nil {
			return err
		}

		var feeds []*models.Feed
		var results []refresh.Result
		if len(args) == 1 {
			f, err := m.FindFeed(args[0])
			if err != nil {
				return err
			}
			feeds = []*models.Feed{f}
			results = []refresh.Result{m.RefreshFeed(ctx, f)}
		} else {
			feeds = m.Feeds()
			if len(feeds) == 0 {
				fmt.Println("No feeds found. Add a feed with 'feedsync feeds add <url>'")
				return nil
			}
			results, err = m.RefreshAll(ctx)
			if err != nil {
				return fmt.Errorf("refresh interrupted: %w", err)
			}
		}

		printRefreshSummary(feeds, results)
		return nil
	},
}

func printRefreshSummary(feeds []*models.Feed, results []refresh.Result) {
	totalNew, totalErrors := 0, 0
	for i, res := range results {
		fmt.Printf("Refreshing %s... ", feeds[i].DisplayName())
		switch res.Outcome {
		case refresh.Failed:
			fmt.Printf("%s %s\n", red("x"), feeds[i].ErrorMessage())
			totalErrors++
		case refresh.Cancelled:
			fmt.Printf("%s cancelled\n", faint("-"))
		default:
			if res.Added > 0 {
				fmt.Printf("%s %d new\n", green("v"), res.Added)
			} else {
				fmt.Printf("%s no new articles\n", green("v"))
			}
			totalNew += res.Added
		}
	}

	fmt.Println()
	fmt.Printf("Summary: %d feed(s) refreshed\n", len(results))
	if totalNew > 0 {
		fmt.Printf("  %s %d new articles\n", green("v"), totalNew)
	}
	if totalErrors > 0 {
		fmt.Printf("  %s %d errors\n", red("x"), totalErrors)
	}
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
