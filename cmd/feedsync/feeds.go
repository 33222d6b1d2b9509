// ABOUTME: Feed management commands for adding, listing, reordering, and removing subscriptions
// ABOUTME: Changes are saved to the configured store as an OPML feed list

package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/feedsync/internal/collection"
	"github.com/harper/feedsync/internal/models"
	"github.com/harper/feedsync/internal/opml"
)

var feedsCmd = &cobra.Command{
	Use:     "feeds",
	Aliases: []string{"feed", "f"},
	Short:   "Manage RSS/Atom feeds",
	Long:    "Add, list, rename, reorder, import, and remove feed subscriptions",
}

var feedsAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a new RSS/Atom feed",
	Long: `Add a feed to your subscriptions and load its articles.

The URL must begin with http:// or https://. Use --discover to find the feed
advertised by a website's home page.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		discoverFeed, _ := cmd.Flags().GetBool("discover")
		ctx := cmd.Context()

		feedURL := args[0]
		if discoverFeed {
			found, err := newDiscoverer().Discover(ctx, feedURL)
			if err != nil {
				return fmt.Errorf("failed to discover feed: %w", err)
			}
			fmt.Printf("Discovered feed: %s\n", found.URL)
			feedURL = found.URL
		}

		m, err := openCollection(ctx, false)
		if err != nil {
			return err
		}
		candidate := m.NewCandidate(feedURL)
		if name != "" {
			candidate.SetName(name)
		}
		if err := m.AddFeed(ctx, candidate); err != nil {
			if msg := candidate.ErrorMessage(); msg != "" {
				return fmt.Errorf("%s", msg)
			}
			return err
		}
		m.Wait()

		fmt.Printf("Added feed: %s\n", candidate.DisplayName())
		fmt.Printf("Feed ID: %s\n", candidate.ID)
		if candidate.IsInError() {
			fmt.Printf("%s %s\n", red("x"), candidate.ErrorMessage())
		} else {
			fmt.Printf("%s %d article(s)\n", green("v"), candidate.Len())
		}
		return nil
	},
}

var feedsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all feeds",
	Long:    "List subscribed feeds in display order, after the Favorites collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		doRefresh, _ := cmd.Flags().GetBool("refresh")

		m, err := openCollection(cmd.Context(), doRefresh)
		if err != nil {
			return err
		}

		feeds := m.Feeds()
		if len(feeds) == 0 {
			fmt.Println("No feeds found. Add a feed with 'feedsync feeds add <url>'")
		}

		now := time.Now()
		printFeed(os.Stdout, -1, m.Favorites(), now)
		fmt.Println()
		for i, f := range feeds {
			printFeed(os.Stdout, i, f, now)
			fmt.Println()
		}
		return nil
	},
}

var feedsRemoveCmd = &cobra.Command{
	Use:     "remove <feed>...",
	Aliases: []string{"rm"},
	Short:   "Remove feeds",
	Long:    "Remove feeds by URL, name, or ID prefix. Starred articles stay in Favorites.",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m, err := openCollection(ctx, false)
		if err != nil {
			return err
		}

		feeds := make([]*models.Feed, 0, len(args))
		for _, ref := range args {
			f, err := m.FindFeed(ref)
			if err != nil {
				return err
			}
			feeds = append(feeds, f)
		}
		if err := m.RemoveFeeds(ctx, feeds); err != nil {
			return fmt.Errorf("failed to remove feeds: %w", err)
		}

		for _, f := range feeds {
			fmt.Printf("Removed feed: %s\n", f.DisplayName())
		}
		return nil
	},
}

var feedsRenameCmd = &cobra.Command{
	Use:   "rename <feed> <name>",
	Short: "Rename a feed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m, err := openCollection(ctx, false)
		if err != nil {
			return err
		}
		f, err := m.FindFeed(args[0])
		if err != nil {
			return err
		}
		if err := m.Rename(ctx, f, args[1]); err != nil {
			return fmt.Errorf("failed to rename feed: %w", err)
		}
		fmt.Printf("Renamed feed to: %s\n", f.DisplayName())
		return nil
	},
}

var feedsMoveCmd = &cobra.Command{
	Use:   "move <feed> <position>",
	Short: "Move a feed to a new position",
	Long:  "Move a feed within the subscription list. Positions start at 0 and exclude Favorites.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		to, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid position %q: %w", args[1], err)
		}

		ctx := cmd.Context()
		m, err := openCollection(ctx, false)
		if err != nil {
			return err
		}
		f, err := m.FindFeed(args[0])
		if err != nil {
			return err
		}
		from := feedIndex(m.Feeds(), f)
		if from < 0 {
			return collection.ErrFavoritesFeed
		}
		if err := m.Reorder(ctx, from, to); err != nil {
			return fmt.Errorf("failed to move feed: %w", err)
		}
		fmt.Printf("Moved %s to position %d\n", f.DisplayName(), to)
		return nil
	},
}

var feedsImportCmd = &cobra.Command{
	Use:   "import <file.opml>",
	Short: "Import feeds from an OPML file",
	Long:  "Add every feed listed in an OPML file. Feeds already subscribed are skipped.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := opml.ParseFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read OPML: %w", err)
		}

		ctx := cmd.Context()
		m, err := openCollection(ctx, false)
		if err != nil {
			return err
		}

		added, skipped := 0, 0
		for _, entry := range doc.Feeds {
			candidate := m.NewCandidate(entry.URL)
			if entry.Title != "" {
				candidate.SetName(entry.Title)
			}
			if err := m.AddFeed(ctx, candidate); err != nil {
				fmt.Printf("%s %s: %s\n", faint("-"), entry.URL, candidate.ErrorMessage())
				skipped++
				continue
			}
			added++
		}
		m.Wait()

		fmt.Printf("Imported %d feed(s), skipped %d\n", added, skipped)
		return nil
	},
}

func feedIndex(feeds []*models.Feed, target *models.Feed) int {
	for i, f := range feeds {
		if f == target {
			return i
		}
	}
	return -1
}

func init() {
	rootCmd.AddCommand(feedsCmd)
	feedsCmd.AddCommand(feedsAddCmd)
	feedsCmd.AddCommand(feedsListCmd)
	feedsCmd.AddCommand(feedsRemoveCmd)
	feedsCmd.AddCommand(feedsRenameCmd)
	feedsCmd.AddCommand(feedsMoveCmd)
	feedsCmd.AddCommand(feedsImportCmd)

	feedsAddCmd.Flags().StringP("name", "n", "", "display name (defaults to the feed's title)")
	feedsAddCmd.Flags().BoolP("discover", "d", false, "treat the URL as a website and discover its feed")
	feedsListCmd.Flags().BoolP("refresh", "r", false, "refresh every feed before listing")
}
