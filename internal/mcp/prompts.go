// ABOUTME: MCP prompt definitions and handlers
// ABOUTME: Provides workflow templates for reading, starring, and curating feeds

package mcp

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(
		mcp.NewPrompt("daily-digest",
			mcp.WithPromptDescription("Summarize today's articles across all subscriptions and star the ones worth keeping"),
		),
		s.handleDailyDigest,
	)
	s.mcpServer.AddPrompt(
		mcp.NewPrompt("catch-up",
			mcp.WithPromptDescription("Catch up on articles published over the last few days"),
			mcp.WithArgument("days", mcp.ArgumentDescription("Number of days to look back (default: 7)")),
		),
		s.handleCatchUp,
	)
	s.mcpServer.AddPrompt(
		mcp.NewPrompt("curate-feeds",
			mcp.WithPromptDescription("Review subscriptions, drop broken or noisy feeds, and reorder the rest"),
		),
		s.handleCurateFeeds,
	)
}

// userPrompt wraps a workflow template as a single user message.
func userPrompt(description, text string) *mcp.GetPromptResult {
	return mcp.NewGetPromptResult(description, []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
	})
}

func (s *Server) handleDailyDigest(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	template := `# Daily Digest

## Overview
Review today's articles across every subscription and produce a short summary.

## Workflow Steps

### Step 1: Refresh
Call refresh_feeds with no arguments. Note any feed whose outcome is "failed"; its existing articles are still available.

### Step 2: Check Activity
Read the feedsync://stats resource. today_count shows how many articles each feed published today.

### Step 3: Scan Today's Articles
Call list_articles with since="today". Results are newest first.

### Step 4: Read and Star
For articles that look important, call get_article with the link to read the Markdown content. Call star_article for anything worth keeping; it appears at the top of Favorites.

### Step 5: Summarize
Group the day's articles by topic. For each group give two or three sentences and the links to the best articles.

## Tips
- Feeds in error keep the articles from their last successful refresh
- The same article published by several feeds is listed once`

	return userPrompt("Daily digest workflow", template), nil
}

func (s *Server) handleCatchUp(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	days := 7
	if d := req.Params.Arguments["days"]; d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("days must be a positive integer, got %q", d)
		}
		days = n
	}

	template := fmt.Sprintf(`# Catch Up

## Overview
Work through the articles published in the last %d days without reading every one.

## Workflow Steps

### Step 1: Refresh
Call refresh_feeds so every subscription is current.

### Step 2: Assess
Read feedsync://stats to see which feeds hold the most articles.

### Step 3: Triage Per Feed
For each feed, call list_articles with the feed and a since date %d days ago in YYYY-MM-DD form. Scan titles and summaries; call get_article only for the promising ones.

### Step 4: Keep the Best
Call star_article for must-read items so they are saved in Favorites across restarts.

### Step 5: Report
List the starred articles with one line each on why they matter.`, days, days)

	return userPrompt(fmt.Sprintf("Catch-up workflow for the last %d days", days), template), nil
}

func (s *Server) handleCurateFeeds(_ context.Context, _ mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	template := `# Curate Feeds

## Overview
Keep the subscription list healthy and ordered by value.

## Workflow Steps

### Step 1: Inventory
Call list_feeds. Favorites is always first and cannot be moved or removed.

### Step 2: Find Broken Feeds
Feeds with status "error" and article_count 0 have never loaded. Call refresh_feeds with that feed once more; if it still fails, suggest remove_feed.

### Step 3: Find Noisy Feeds
Use feedsync://stats. Feeds with many articles but no starred ones are candidates for removal.

### Step 4: Reorder
Use move_feed to put the most valuable feeds at position 0 onward.

### Step 5: Discover
To add a site whose feed URL is unknown, call add_feed with discover=true and the site URL.

## Guidelines
- Ask before removing a feed
- Renaming with rename_feed only changes the display name`

	return userPrompt("Feed curation workflow", template), nil
}
