// ABOUTME: Articles command for browsing loaded articles with filtering options
// ABOUTME: Refreshes feeds, then lists articles newest first with starred markers

package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/harper/feedsync/internal/config"
	"github.com/harper/feedsync/internal/identity"
	"github.com/harper/feedsync/internal/models"
	"github.com/harper/feedsync/internal/timeutil"
)

// articleFilter selects articles across feeds.
type articleFilter struct {
	since       *time.Time
	starredOnly bool
	limit       int
	offset      int
}

var articlesCmd = &cobra.Command{
	Use:     "articles",
	Aliases: []string{"ls", "list"},
	Short:   "List articles",
	Long: `Refresh feeds and list their articles, newest first.

--since accepts today, yesterday, week, month, or a YYYY-MM-DD date.
Articles without a publication date are hidden when --since is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		feedRef, _ := cmd.Flags().GetString("feed")
		since, _ := cmd.Flags().GetString("since")
		starred, _ := cmd.Flags().GetBool("starred")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		if offset < 0 {
			return fmt.Errorf("offset must be non-negative, got %d", offset)
		}
		filter := articleFilter{starredOnly: starred, limit: limit, offset: offset}
		if since != "" {
			t, err := timeutil.ParseSince(since)
			if err != nil {
				return err
			}
			filter.since = &t
		}

		ctx := cmd.Context()
		m, err := openCollection(ctx, false)
		if err != nil {
			return err
		}

		feeds := m.Feeds()
		if feedRef != "" {
			f, err := m.FindFeed(feedRef)
			if err != nil {
				return err
			}
			feeds = []*models.Feed{f}
		}
		for _, f := range feeds {
			if !f.IsFavorites {
				m.RefreshFeed(ctx, f)
			}
		}

		articles := selectArticles(feeds, filter)
		if len(articles) == 0 {
			fmt.Println("No articles found")
			return nil
		}
		for _, a := range articles {
			printArticle(os.Stdout, a)
		}
		return nil
	},
}

// selectArticles merges the feeds' articles newest first, listing an article
// shared by several feeds once.
func selectArticles(feeds []*models.Feed, filter articleFilter) []*models.Article {
	seen := make(map[identity.Identity]bool)
	var out []*models.Article
	for _, f := range feeds {
		for _, a := range f.Articles() {
			id := a.Identity()
			if seen[id] {
				continue
			}
			seen[id] = true
			if filter.starredOnly && !a.Starred() {
				continue
			}
			if filter.since != nil && (a.PublishedAt == nil || a.PublishedAt.Before(*filter.since)) {
				continue
			}
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].PublishedAt, out[j].PublishedAt
		if pi == nil || pj == nil {
			return pi != nil
		}
		return pi.After(*pj)
	})

	if filter.offset >= len(out) {
		return nil
	}
	out = out[filter.offset:]
	if filter.limit > 0 && filter.limit < len(out) {
		out = out[:filter.limit]
	}
	return out
}

func init() {
	rootCmd.AddCommand(articlesCmd)

	articlesCmd.Flags().StringP("feed", "f", "", "only this feed (URL, name, or ID prefix)")
	articlesCmd.Flags().StringP("since", "s", "", "only articles published since a date")
	articlesCmd.Flags().Bool("starred", false, "only starred articles")
	articlesCmd.Flags().IntP("limit", "n", config.DefaultListLimit, "max articles to show (0 for all)")
	articlesCmd.Flags().IntP("offset", "o", 0, "number of articles to skip (for pagination)")
}
