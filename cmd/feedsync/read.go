// ABOUTME: Read command for viewing article content
// ABOUTME: Displays full article details with markdown rendering

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/harper/feedsync/internal/collection"
	"github.com/harper/feedsync/internal/config"
	"github.com/harper/feedsync/internal/models"
)

var readCmd = &cobra.Command{
	Use:   "read <link>",
	Short: "Read an article",
	Long:  "Display the full content of an article, rendered from Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		m, err := openCollection(ctx, false)
		if err != nil {
			return err
		}
		a, err := lookupArticle(ctx, m, args[0])
		if err != nil {
			return err
		}

		fmt.Println(strings.Repeat("─", config.SeparatorWidth))

		title := a.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Printf("%s\n\n", bold(title))
		if a.Author != "" {
			fmt.Printf("%s %s\n", faint("Author:"), a.Author)
		}
		if a.PublishedAt != nil {
			fmt.Printf("%s %s\n", faint("Published:"), a.PublishedAt.Format(config.DateFormatLong))
		}
		fmt.Printf("%s %s\n", faint("Link:"), cyan(a.Link))
		if a.Starred() {
			fmt.Printf("%s\n", green("★ Starred"))
		}

		fmt.Println(strings.Repeat("─", config.SeparatorWidth))

		markdown := a.Content
		if markdown == "" {
			markdown = a.Summary
		}
		if markdown == "" {
			fmt.Println("\n(No content available)")
			return nil
		}

		// Render with glamour for terminal display
		rendered, err := glamour.Render(markdown, "dark")
		if err != nil {
			fmt.Printf("%s\n", faint("(markdown rendering unavailable, showing plain text)"))
			fmt.Printf("\n%s\n", markdown)
		} else {
			fmt.Print(rendered)
		}
		fmt.Println()
		return nil
	},
}

// lookupArticle finds an article by link, refreshing the feeds only when it
// is not already loaded. Starred articles are always loaded.
func lookupArticle(ctx context.Context, m *collection.Manager, link string) (*models.Article, error) {
	a, err := m.FindArticle(link)
	if !errors.Is(err, collection.ErrArticleNotFound) {
		return a, err
	}
	if _, err := m.RefreshAll(ctx); err != nil {
		return nil, fmt.Errorf("refresh interrupted: %w", err)
	}
	return m.FindArticle(link)
}

func init() {
	rootCmd.AddCommand(readCmd)
}
