// ABOUTME: Tests for MCP server handlers
// ABOUTME: Runs handlers directly against an initialized manager backed by canned payloads

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/feedsync/internal/collection"
	"github.com/harper/feedsync/internal/favorites"
	"github.com/harper/feedsync/internal/parse"
	"github.com/harper/feedsync/internal/persist"
	"github.com/harper/feedsync/internal/refresh"
	"github.com/harper/feedsync/internal/source"
	"github.com/harper/feedsync/internal/storage"
)

const (
	techURL = "https://tech.example.com/feed.xml"
	newsURL = "https://news.example.com/rss"
	newURL  = "https://new.example.com/atom.xml"
)

func published(daysAgo int) *time.Time {
	t := time.Now().AddDate(0, 0, -daysAgo)
	return &t
}

var payloads = map[string]*parse.Payload{
	techURL: {
		Title: "Tech Blog",
		Items: []parse.Item{
			{Title: "Generics in practice", Link: "https://tech.example.com/generics", Content: "<h1>Generics</h1><p>Type parameters.</p>", PublishedAt: published(0)},
			{Title: "Old post", Link: "https://tech.example.com/old", Summary: "from last year", PublishedAt: published(400)},
		},
	},
	newsURL: {
		Title: "News",
		Items: []parse.Item{
			{Title: "Headline", Link: "https://news.example.com/headline", PublishedAt: published(1)},
			{Title: "Undated", Link: "https://news.example.com/undated"},
			// Syndicated from the tech blog.
			{Title: "Generics in practice", Link: "http://tech.example.com/generics?utm=rss", PublishedAt: published(0)},
		},
	},
	newURL: {
		Title: "Newcomer",
		Items: []parse.Item{{Title: "Hello", Link: "https://new.example.com/hello"}},
	},
}

func testServer(t *testing.T) (*Server, *collection.Manager) {
	t.Helper()

	src := source.Func(func(_ context.Context, uri string) (*parse.Payload, error) {
		p, ok := payloads[uri]
		if !ok {
			return nil, fmt.Errorf("unreachable: %s", uri)
		}
		return p, nil
	})
	index := favorites.New()
	coord := refresh.New(src, index,
		refresh.WithAttempts(1),
		refresh.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	m := collection.New(index, coord, persist.New(storage.NewMemoryStore(), nil),
		collection.WithDefaultFeeds([]persist.FeedListEntry{
			{Name: "", URL: techURL},
			{Name: "World News", URL: newsURL},
		}),
	)
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	m.Wait()

	return NewServer(m, nil, "test"), m
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), input map[string]interface{}, output interface{}) error {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = input
	result, err := handler(context.Background(), req)
	if err != nil {
		return err
	}
	if output != nil {
		if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), output); err != nil {
			t.Fatalf("unmarshal output: %v", err)
		}
	}
	return nil
}

func TestHandleListFeeds(t *testing.T) {
	s, _ := testServer(t)

	var output ListFeedsOutput
	if err := callTool(t, s.handleListFeeds, nil, &output); err != nil {
		t.Fatalf("handleListFeeds: %v", err)
	}

	if output.Count != 3 {
		t.Fatalf("expected favorites plus 2 feeds, got %d", output.Count)
	}
	if !output.Feeds[0].IsFavorites {
		t.Error("expected favorites first")
	}
	if output.Feeds[0].ErrorMessage == "" {
		t.Error("empty favorites should carry its no-starred message")
	}
	tech := output.Feeds[1]
	if tech.Name != "Tech Blog" || tech.Status != "ready" || tech.ArticleCount != 2 {
		t.Errorf("unexpected tech feed: %+v", tech)
	}
	if tech.LastSyncAt == nil {
		t.Error("expected last sync time")
	}
	if output.Feeds[2].Name != "World News" {
		t.Errorf("expected custom name kept, got %q", output.Feeds[2].Name)
	}
}

func TestHandleAddFeed(t *testing.T) {
	s, m := testServer(t)

	var output FeedOutput
	err := callTool(t, s.handleAddFeed, map[string]interface{}{"url": newURL, "name": "Fresh"}, &output)
	if err != nil {
		t.Fatalf("handleAddFeed: %v", err)
	}
	if output.Name != "Fresh" || output.ArticleCount != 1 || output.Status != "ready" {
		t.Errorf("unexpected output: %+v", output)
	}
	if len(m.Feeds()) != 3 {
		t.Errorf("expected 3 subscriptions, got %d", len(m.Feeds()))
	}
}

func TestHandleAddFeed_Rejected(t *testing.T) {
	s, _ := testServer(t)

	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{"duplicate", "http://tech.example.com/feed.xml", "already"},
		{"no scheme", "tech.example.com/feed.xml", "http"},
		{"discovery disabled", "https://example.com", "discovery"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := map[string]interface{}{"url": tt.url}
			if tt.name == "discovery disabled" {
				input["discover"] = true
			}
			err := callTool(t, s.handleAddFeed, input, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(strings.ToLower(err.Error()), tt.wantErr) {
				t.Errorf("expected %q in error, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestHandleRemoveFeed(t *testing.T) {
	s, m := testServer(t)

	var output RemoveFeedOutput
	if err := callTool(t, s.handleRemoveFeed, map[string]interface{}{"feed": "World News"}, &output); err != nil {
		t.Fatalf("handleRemoveFeed: %v", err)
	}
	if !output.Success || output.URL != newsURL {
		t.Errorf("unexpected output: %+v", output)
	}
	if len(m.Feeds()) != 1 {
		t.Errorf("expected 1 subscription left, got %d", len(m.Feeds()))
	}

	err := callTool(t, s.handleRemoveFeed, map[string]interface{}{"feed": "Favorites"}, nil)
	if !errors.Is(err, collection.ErrFavoritesFeed) {
		t.Errorf("expected ErrFavoritesFeed, got %v", err)
	}
	err = callTool(t, s.handleRemoveFeed, map[string]interface{}{"feed": "nope"}, nil)
	if !errors.Is(err, collection.ErrFeedNotFound) {
		t.Errorf("expected ErrFeedNotFound, got %v", err)
	}
}

func TestHandleRenameAndMoveFeed(t *testing.T) {
	s, m := testServer(t)

	var renamed FeedOutput
	if err := callTool(t, s.handleRenameFeed, map[string]interface{}{"feed": techURL, "name": "  Tech  "}, &renamed); err != nil {
		t.Fatalf("handleRenameFeed: %v", err)
	}
	if renamed.Name != "Tech" {
		t.Errorf("expected trimmed name, got %q", renamed.Name)
	}
	if err := callTool(t, s.handleRenameFeed, map[string]interface{}{"feed": techURL, "name": " "}, nil); err == nil {
		t.Error("expected error for blank name")
	}

	var moved ListFeedsOutput
	if err := callTool(t, s.handleMoveFeed, map[string]interface{}{"feed": newsURL, "position": 0}, &moved); err != nil {
		t.Fatalf("handleMoveFeed: %v", err)
	}
	if moved.Feeds[1].URL != newsURL || moved.Feeds[2].Name != "Tech" {
		t.Errorf("unexpected order: %+v", moved.Feeds)
	}
	if m.Feeds()[0].Link() != newsURL {
		t.Error("manager order not updated")
	}

	if err := callTool(t, s.handleMoveFeed, map[string]interface{}{"feed": "Favorites", "position": 1}, nil); err == nil {
		t.Error("expected error moving favorites")
	}
	if err := callTool(t, s.handleMoveFeed, map[string]interface{}{"feed": techURL, "position": 5}, nil); err == nil {
		t.Error("expected error for out of range position")
	}
}

func TestHandleRefreshFeeds(t *testing.T) {
	s, m := testServer(t)

	var output RefreshFeedsOutput
	if err := callTool(t, s.handleRefreshFeeds, nil, &output); err != nil {
		t.Fatalf("handleRefreshFeeds: %v", err)
	}
	if output.TotalFeeds != 2 || len(output.Results) != 2 {
		t.Fatalf("expected 2 results, got %+v", output)
	}
	if output.TotalAdded != 0 || output.TotalErrors != 0 {
		t.Errorf("nothing new expected on a second refresh: %+v", output)
	}
	for _, r := range output.Results {
		if r.Outcome != refresh.Success.String() {
			t.Errorf("%s: outcome %s", r.FeedName, r.Outcome)
		}
	}

	// A feed whose source disappears keeps its articles.
	bad := m.NewCandidate("https://gone.example.com/feed")
	_ = m.AddFeed(context.Background(), bad)
	m.Wait()

	var single RefreshFeedsOutput
	if err := callTool(t, s.handleRefreshFeeds, map[string]interface{}{"feed": "https://gone.example.com/feed"}, &single); err != nil {
		t.Fatalf("handleRefreshFeeds: %v", err)
	}
	if single.TotalErrors != 1 || single.Results[0].Error == nil {
		t.Errorf("expected one failure, got %+v", single)
	}
}

func TestHandleListArticles(t *testing.T) {
	s, _ := testServer(t)

	tests := []struct {
		name      string
		input     map[string]interface{}
		wantCount int
		wantFirst string
		wantErr   bool
	}{
		{name: "all deduplicated", input: nil, wantCount: 4, wantFirst: "Generics in practice"},
		{name: "by feed", input: map[string]interface{}{"feed": "World News"}, wantCount: 3},
		{name: "since yesterday", input: map[string]interface{}{"since": "yesterday"}, wantCount: 2},
		{name: "limit", input: map[string]interface{}{"limit": 1}, wantCount: 1, wantFirst: "Generics in practice"},
		{name: "offset past end", input: map[string]interface{}{"offset": 10}, wantCount: 0},
		{name: "negative offset", input: map[string]interface{}{"offset": -1}, wantErr: true},
		{name: "bad since", input: map[string]interface{}{"since": "someday"}, wantErr: true},
		{name: "starred only", input: map[string]interface{}{"starred_only": true}, wantCount: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output ListArticlesOutput
			err := callTool(t, s.handleListArticles, tt.input, &output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if output.Count != tt.wantCount {
				t.Errorf("expected %d articles, got %d", tt.wantCount, output.Count)
			}
			if tt.wantFirst != "" && output.Articles[0].Title != tt.wantFirst {
				t.Errorf("expected %q first, got %q", tt.wantFirst, output.Articles[0].Title)
			}
		})
	}
}

func TestHandleGetArticle(t *testing.T) {
	s, _ := testServer(t)

	var output GetArticleOutput
	if err := callTool(t, s.handleGetArticle, map[string]interface{}{"link": "tech.example.com/generics"}, &output); err != nil {
		t.Fatalf("handleGetArticle: %v", err)
	}
	if output.FeedName != "Tech Blog" {
		t.Errorf("expected tech feed, got %q", output.FeedName)
	}
	if !strings.Contains(output.Content, "# Generics") {
		t.Errorf("expected markdown content, got %q", output.Content)
	}

	var old GetArticleOutput
	if err := callTool(t, s.handleGetArticle, map[string]interface{}{"link": "https://tech.example.com/old"}, &old); err != nil {
		t.Fatalf("handleGetArticle: %v", err)
	}
	if old.Content != "from last year" {
		t.Errorf("expected summary fallback, got %q", old.Content)
	}

	err := callTool(t, s.handleGetArticle, map[string]interface{}{"link": "https://tech.example.com/missing"}, nil)
	if !errors.Is(err, collection.ErrArticleNotFound) {
		t.Errorf("expected ErrArticleNotFound, got %v", err)
	}
}

func TestHandleStarAndUnstar(t *testing.T) {
	s, m := testServer(t)
	link := "https://news.example.com/headline"

	var starred ArticleOutput
	if err := callTool(t, s.handleStarArticle, map[string]interface{}{"link": link}, &starred); err != nil {
		t.Fatalf("handleStarArticle: %v", err)
	}
	if !starred.Starred || starred.FeedName != "World News" {
		t.Errorf("unexpected output: %+v", starred)
	}
	if m.Favorites().Len() != 1 {
		t.Fatalf("expected 1 favorite, got %d", m.Favorites().Len())
	}

	var list ListArticlesOutput
	if err := callTool(t, s.handleListArticles, map[string]interface{}{"starred_only": true}, &list); err != nil {
		t.Fatalf("handleListArticles: %v", err)
	}
	if list.Count != 1 || list.Articles[0].Link != link {
		t.Errorf("expected the starred article, got %+v", list.Articles)
	}

	var unstarred ArticleOutput
	if err := callTool(t, s.handleUnstarArticle, map[string]interface{}{"link": link}, &unstarred); err != nil {
		t.Fatalf("handleUnstarArticle: %v", err)
	}
	if unstarred.Starred || !m.Favorites().IsEmpty() {
		t.Error("expected article unstarred")
	}
	if err := callTool(t, s.handleUnstarArticle, map[string]interface{}{"link": link}, nil); err == nil {
		t.Error("expected error unstarring an unstarred article")
	}
}

func TestComputeStats(t *testing.T) {
	s, m := testServer(t)
	ctx := context.Background()

	a, err := m.FindArticle("https://news.example.com/headline")
	if err != nil {
		t.Fatalf("FindArticle: %v", err)
	}
	if err := m.Star(ctx, a); err != nil {
		t.Fatalf("Star: %v", err)
	}

	stats := computeStats(s.manager.Feeds(), s.manager.Favorites(), time.Now())
	if stats.TotalFeeds != 2 || stats.TotalArticles != 5 || stats.TotalStarred != 1 {
		t.Errorf("unexpected totals: %+v", stats)
	}
	tech, news := stats.Feeds[0], stats.Feeds[1]
	if tech.TodayCount != 1 || news.TodayCount != 1 {
		t.Errorf("unexpected today counts: tech %d, news %d", tech.TodayCount, news.TodayCount)
	}
	if news.StarredCount != 1 {
		t.Errorf("expected 1 starred in news, got %d", news.StarredCount)
	}
}

func TestPrompts(t *testing.T) {
	s, _ := testServer(t)
	ctx := context.Background()

	result, err := s.handleDailyDigest(ctx, mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("handleDailyDigest: %v", err)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(result.Messages))
	}

	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"days": "3"}
	result, err = s.handleCatchUp(ctx, req)
	if err != nil {
		t.Fatalf("handleCatchUp: %v", err)
	}
	text := result.Messages[0].Content.(mcp.TextContent).Text
	if !strings.Contains(text, "last 3 days") {
		t.Error("expected days argument in template")
	}

	req.Params.Arguments = map[string]string{"days": "zero"}
	if _, err := s.handleCatchUp(ctx, req); err == nil {
		t.Error("expected error for invalid days")
	}

	if _, err := s.handleCurateFeeds(ctx, mcp.GetPromptRequest{}); err != nil {
		t.Fatalf("handleCurateFeeds: %v", err)
	}
}
