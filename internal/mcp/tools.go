// ABOUTME: MCP tool definitions and handlers for feed and article operations
// ABOUTME: Provides tools for managing subscriptions, refreshing, browsing, and starring articles

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/feedsync/internal/identity"
	"github.com/harper/feedsync/internal/models"
	"github.com/harper/feedsync/internal/refresh"
	"github.com/harper/feedsync/internal/timeutil"
)

// Type definitions for input/output structures

type FeedOutput struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	URL          string     `json:"url"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	ArticleCount int        `json:"article_count"`
	ErrorMessage string     `json:"error_message,omitempty"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
	IsFavorites  bool       `json:"is_favorites,omitempty"`
}

type ListFeedsOutput struct {
	Feeds []FeedOutput `json:"feeds"`
	Count int          `json:"count"`
}

type AddFeedInput struct {
	URL      string  `json:"url"`
	Name     *string `json:"name,omitempty"`
	Discover *bool   `json:"discover,omitempty"`
}

type FeedRefInput struct {
	Feed string `json:"feed"`
}

type RemoveFeedOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

type RenameFeedInput struct {
	Feed string `json:"feed"`
	Name string `json:"name"`
}

type MoveFeedInput struct {
	Feed     string `json:"feed"`
	Position int    `json:"position"`
}

type RefreshFeedsInput struct {
	Feed *string `json:"feed,omitempty"`
}

type RefreshResult struct {
	FeedID   string  `json:"feed_id"`
	FeedName string  `json:"feed_name"`
	Outcome  string  `json:"outcome"`
	Added    int     `json:"added"`
	Attempts int     `json:"attempts"`
	Error    *string `json:"error,omitempty"`
}

type RefreshFeedsOutput struct {
	Results     []RefreshResult `json:"results"`
	TotalFeeds  int             `json:"total_feeds"`
	TotalAdded  int             `json:"total_added"`
	TotalErrors int             `json:"total_errors"`
}

type ListArticlesInput struct {
	Feed        *string `json:"feed,omitempty"`
	StarredOnly *bool   `json:"starred_only,omitempty"`
	Since       *string `json:"since,omitempty"`
	Limit       *int    `json:"limit,omitempty"`
	Offset      *int    `json:"offset,omitempty"`
}

type ArticleOutput struct {
	FeedID      string     `json:"feed_id"`
	FeedName    string     `json:"feed_name"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Author      string     `json:"author,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Starred     bool       `json:"starred"`
}

type ListArticlesOutput struct {
	Articles []ArticleOutput `json:"articles"`
	Count    int             `json:"count"`
	Filters  map[string]any  `json:"filters"`
}

type ArticleRefInput struct {
	Link string `json:"link"`
}

type GetArticleOutput struct {
	ArticleOutput
	Content string `json:"content,omitempty"`
}

// Tool registration

func (s *Server) registerTools() {
	s.registerListFeedsTool()
	s.registerAddFeedTool()
	s.registerRemoveFeedTool()
	s.registerRenameFeedTool()
	s.registerMoveFeedTool()
	s.registerRefreshFeedsTool()
	s.registerListArticlesTool()
	s.registerGetArticleTool()
	s.registerStarArticleTool()
	s.registerUnstarArticleTool()
}

var feedRefProperty = map[string]interface{}{
	"type":        "string",
	"description": "The feed to act on: its URL, its name, or a prefix of its ID. Example: 'https://example.com/feed.xml'",
}

var articleLinkProperty = map[string]interface{}{
	"type":        "string",
	"description": "The article link. Scheme, query and fragment are ignored when matching. Example: 'https://example.com/posts/hello'",
}

func (s *Server) registerListFeedsTool() {
	tool := mcp.Tool{
		Name:        "list_feeds",
		Description: "List every subscribed feed in display order, starting with the Favorites collection. Each feed reports its refresh status, article count, last sync time, and any error message. Use this to find feed IDs and URLs before other operations.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
	s.mcpServer.AddTool(tool, s.handleListFeeds)
}

func (s *Server) registerAddFeedTool() {
	tool := mcp.Tool{
		Name:        "add_feed",
		Description: "Subscribe to a new RSS/Atom feed. The URL must begin with http:// or https://. With discover=true a website URL is resolved to its feed first. The feed is refreshed immediately and the result includes its articles count and status.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "The feed URL, or a site URL when discover is true. Example: 'https://example.com/feed.xml'",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Optional display name. If omitted, the feed's own title is used. Example: 'My Favorite Blog'",
				},
				"discover": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, look for the feed advertised by the page at url. Default: false",
				},
			},
			Required: []string{"url"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleAddFeed)
}

func (s *Server) registerRemoveFeedTool() {
	tool := mcp.Tool{
		Name:        "remove_feed",
		Description: "Unsubscribe from a feed. Starred articles from it stay in Favorites. The Favorites collection itself cannot be removed.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"feed": feedRefProperty},
			Required:   []string{"feed"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleRemoveFeed)
}

func (s *Server) registerRenameFeedTool() {
	tool := mcp.Tool{
		Name:        "rename_feed",
		Description: "Change the display name of a subscribed feed.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"feed": feedRefProperty,
				"name": map[string]interface{}{
					"type":        "string",
					"description": "The new display name. Example: 'Tech News'",
				},
			},
			Required: []string{"feed", "name"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleRenameFeed)
}

func (s *Server) registerMoveFeedTool() {
	tool := mcp.Tool{
		Name:        "move_feed",
		Description: "Move a feed to a new position in the subscription list. Positions count from 0 and exclude Favorites, which always stays first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"feed": feedRefProperty,
				"position": map[string]interface{}{
					"type":        "integer",
					"description": "Target position, 0 for the top of the list. Example: 0",
				},
			},
			Required: []string{"feed", "position"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleMoveFeed)
}

func (s *Server) registerRefreshFeedsTool() {
	tool := mcp.Tool{
		Name:        "refresh_feeds",
		Description: "Fetch new articles. With feed set, refreshes only that feed; otherwise refreshes every subscription concurrently. Failed fetches are retried a few times and never remove articles that were already loaded. Returns per-feed outcomes and counts of new articles.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"feed": feedRefProperty},
		},
	}
	s.mcpServer.AddTool(tool, s.handleRefreshFeeds)
}

func (s *Server) registerListArticlesTool() {
	tool := mcp.Tool{
		Name:        "list_articles",
		Description: "List articles across feeds, newest first. Filter by feed, by starred state, or by publication date using 'since' with 'today', 'yesterday', 'week', 'month' or YYYY-MM-DD. Articles without a publication date are excluded when 'since' is set. Use get_article to read one in full.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"feed": feedRefProperty,
				"starred_only": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, returns only starred articles. Example: true",
				},
				"since": map[string]interface{}{
					"type":        "string",
					"description": "Only return articles published on or after this date. Accepts 'today', 'yesterday', 'week', 'month', or YYYY-MM-DD. Example: 'today'",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of articles to return. Example: 50",
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Number of articles to skip for pagination. Example: 20",
				},
			},
		},
	}
	s.mcpServer.AddTool(tool, s.handleListArticles)
}

func (s *Server) registerGetArticleTool() {
	tool := mcp.Tool{
		Name:        "get_article",
		Description: "Get a single article including its content converted to Markdown.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"link": articleLinkProperty},
			Required:   []string{"link"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleGetArticle)
}

func (s *Server) registerStarArticleTool() {
	tool := mcp.Tool{
		Name:        "star_article",
		Description: "Star an article. It is added to the top of Favorites and every feed showing the same article reflects the starred state.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"link": articleLinkProperty},
			Required:   []string{"link"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleStarArticle)
}

func (s *Server) registerUnstarArticleTool() {
	tool := mcp.Tool{
		Name:        "unstar_article",
		Description: "Remove an article from Favorites. The article stays in the feeds it came from.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"link": articleLinkProperty},
			Required:   []string{"link"},
		},
	}
	s.mcpServer.AddTool(tool, s.handleUnstarArticle)
}

// Handler implementations

func (s *Server) handleListFeeds(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	feeds := s.manager.FeedsWithFavorites()
	outputs := make([]FeedOutput, 0, len(feeds))
	for _, f := range feeds {
		outputs = append(outputs, toFeedOutput(f))
	}
	return jsonResult(ListFeedsOutput{Feeds: outputs, Count: len(outputs)})
}

func (s *Server) handleAddFeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input AddFeedInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	feedURL := strings.TrimSpace(input.URL)
	if input.Discover != nil && *input.Discover {
		if s.discoverer == nil {
			return nil, fmt.Errorf("feed discovery is not available")
		}
		found, err := s.discoverer.Discover(ctx, feedURL)
		if err != nil {
			return nil, fmt.Errorf("discover feed: %w", err)
		}
		feedURL = found.URL
	}

	candidate := s.manager.NewCandidate(feedURL)
	if input.Name != nil {
		candidate.SetName(strings.TrimSpace(*input.Name))
	}
	if err := s.manager.AddFeed(ctx, candidate); err != nil {
		if msg := candidate.ErrorMessage(); msg != "" {
			return nil, fmt.Errorf("%s", msg)
		}
		return nil, err
	}
	s.manager.Wait()

	return jsonResult(toFeedOutput(candidate))
}

func (s *Server) handleRemoveFeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input FeedRefInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	feed, err := s.manager.FindFeed(input.Feed)
	if err != nil {
		return nil, err
	}
	if err := s.manager.RemoveFeed(ctx, feed); err != nil {
		return nil, fmt.Errorf("failed to remove feed: %w", err)
	}
	return jsonResult(RemoveFeedOutput{
		Success: true,
		Message: fmt.Sprintf("Removed %s", feed.DisplayName()),
		URL:     feed.Link(),
	})
}

func (s *Server) handleRenameFeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input RenameFeedInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("name must not be empty")
	}
	feed, err := s.manager.FindFeed(input.Feed)
	if err != nil {
		return nil, err
	}
	if err := s.manager.Rename(ctx, feed, input.Name); err != nil {
		return nil, fmt.Errorf("failed to rename feed: %w", err)
	}
	return jsonResult(toFeedOutput(feed))
}

func (s *Server) handleMoveFeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input MoveFeedInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	feed, err := s.manager.FindFeed(input.Feed)
	if err != nil {
		return nil, err
	}
	from := indexOf(s.manager.Feeds(), feed)
	if from < 0 {
		return nil, fmt.Errorf("the Favorites collection cannot be moved")
	}
	if err := s.manager.Reorder(ctx, from, input.Position); err != nil {
		return nil, fmt.Errorf("failed to move feed: %w", err)
	}

	feeds := s.manager.FeedsWithFavorites()
	outputs := make([]FeedOutput, 0, len(feeds))
	for _, f := range feeds {
		outputs = append(outputs, toFeedOutput(f))
	}
	return jsonResult(ListFeedsOutput{Feeds: outputs, Count: len(outputs)})
}

func (s *Server) handleRefreshFeeds(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input RefreshFeedsInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	var feeds []*models.Feed
	var results []refresh.Result
	if input.Feed != nil && *input.Feed != "" {
		feed, err := s.manager.FindFeed(*input.Feed)
		if err != nil {
			return nil, err
		}
		feeds = []*models.Feed{feed}
		results = []refresh.Result{s.manager.RefreshFeed(ctx, feed)}
	} else {
		feeds = s.manager.Feeds()
		var err error
		results, err = s.manager.RefreshAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("refresh interrupted: %w", err)
		}
	}

	output := RefreshFeedsOutput{TotalFeeds: len(feeds)}
	for i, res := range results {
		r := RefreshResult{
			FeedID:   feeds[i].ID,
			FeedName: feeds[i].DisplayName(),
			Outcome:  res.Outcome.String(),
			Added:    res.Added,
			Attempts: res.Attempts,
		}
		if res.Err != nil {
			msg := res.Err.Error()
			r.Error = &msg
			output.TotalErrors++
		}
		output.TotalAdded += res.Added
		output.Results = append(output.Results, r)
	}
	return jsonResult(output)
}

func (s *Server) handleListArticles(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ListArticlesInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if input.Limit != nil && *input.Limit < 0 {
		return nil, fmt.Errorf("limit must be non-negative, got %d", *input.Limit)
	}
	if input.Offset != nil && *input.Offset < 0 {
		return nil, fmt.Errorf("offset must be non-negative, got %d", *input.Offset)
	}

	filters := map[string]any{}
	feeds := s.manager.Feeds()
	if input.Feed != nil && *input.Feed != "" {
		feed, err := s.manager.FindFeed(*input.Feed)
		if err != nil {
			return nil, err
		}
		feeds = []*models.Feed{feed}
		filters["feed"] = feed.ID
	}

	var since *time.Time
	if input.Since != nil && *input.Since != "" {
		t, err := timeutil.ParseSince(*input.Since)
		if err != nil {
			return nil, fmt.Errorf("invalid since: %w", err)
		}
		since = &t
		filters["since"] = t
	}
	starredOnly := input.StarredOnly != nil && *input.StarredOnly
	if starredOnly {
		filters["starred_only"] = true
	}

	articles := collectArticles(feeds, since, starredOnly)

	offset := 0
	if input.Offset != nil {
		offset = *input.Offset
		filters["offset"] = offset
	}
	if offset > len(articles) {
		offset = len(articles)
	}
	articles = articles[offset:]
	if input.Limit != nil && *input.Limit < len(articles) {
		articles = articles[:*input.Limit]
		filters["limit"] = *input.Limit
	}

	return jsonResult(ListArticlesOutput{Articles: articles, Count: len(articles), Filters: filters})
}

func (s *Server) handleGetArticle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ArticleRefInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	article, err := s.manager.FindArticle(input.Link)
	if err != nil {
		return nil, err
	}
	out := GetArticleOutput{ArticleOutput: s.articleOutput(article), Content: article.Content}
	if out.Content == "" {
		out.Content = article.Summary
	}
	return jsonResult(out)
}

func (s *Server) handleStarArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ArticleRefInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	article, err := s.manager.FindArticle(input.Link)
	if err != nil {
		return nil, err
	}
	if err := s.manager.Star(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to star article: %w", err)
	}
	return jsonResult(s.articleOutput(article))
}

func (s *Server) handleUnstarArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ArticleRefInput
	if err := req.BindArguments(&input); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	article, err := s.manager.FindArticle(input.Link)
	if err != nil {
		return nil, err
	}
	if !article.Starred() {
		return nil, fmt.Errorf("article is not starred: %s", input.Link)
	}
	if err := s.manager.Unstar(ctx, article); err != nil {
		return nil, fmt.Errorf("failed to unstar article: %w", err)
	}
	return jsonResult(s.articleOutput(article))
}

// Helpers

func toFeedOutput(f *models.Feed) FeedOutput {
	out := FeedOutput{
		ID:           f.ID,
		Name:         f.DisplayName(),
		URL:          f.Link(),
		Description:  f.Description(),
		Status:       f.Status().String(),
		ArticleCount: f.Len(),
		ErrorMessage: f.ErrorMessage(),
		IsFavorites:  f.IsFavorites,
	}
	if last := f.LastSyncTime(); !last.IsZero() {
		out.LastSyncAt = &last
	}
	return out
}

func toArticleOutput(f *models.Feed, a *models.Article) ArticleOutput {
	out := ArticleOutput{
		Title:       a.Title,
		Link:        a.Link,
		Author:      a.Author,
		Summary:     a.Summary,
		PublishedAt: a.PublishedAt,
		Starred:     a.Starred(),
	}
	if f != nil {
		out.FeedID = f.ID
		out.FeedName = f.DisplayName()
	}
	return out
}

// articleOutput attributes the article to the first subscription holding it,
// else to Favorites.
func (s *Server) articleOutput(a *models.Article) ArticleOutput {
	for _, f := range s.manager.FeedsWithFavorites()[1:] {
		if f.Find(a.Identity()) != nil {
			return toArticleOutput(f, a)
		}
	}
	return toArticleOutput(s.manager.Favorites(), a)
}

// collectArticles gathers matching articles, newest first. An article shared
// by several feeds is listed once, under the first feed holding it.
func collectArticles(feeds []*models.Feed, since *time.Time, starredOnly bool) []ArticleOutput {
	seen := make(map[identity.Identity]bool)
	var out []ArticleOutput
	for _, f := range feeds {
		for _, a := range f.Articles() {
			id := a.Identity()
			if seen[id] {
				continue
			}
			seen[id] = true
			if starredOnly && !a.Starred() {
				continue
			}
			if since != nil && (a.PublishedAt == nil || a.PublishedAt.Before(*since)) {
				continue
			}
			out = append(out, toArticleOutput(f, a))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].PublishedAt, out[j].PublishedAt
		if pi == nil || pj == nil {
			return pi != nil
		}
		return pi.After(*pj)
	})
	return out
}

func indexOf(feeds []*models.Feed, target *models.Feed) int {
	for i, f := range feeds {
		if f == target {
			return i
		}
	}
	return -1
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
