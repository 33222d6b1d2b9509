// ABOUTME: MCP resource providers for feedsync
// ABOUTME: Exposes read-only views of subscriptions, favorites, and statistics

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/feedsync/internal/models"
	"github.com/harper/feedsync/internal/timeutil"
)

// ResourceData is the standard response format for all resources.
type ResourceData struct {
	Metadata ResourceMetadata  `json:"metadata"`
	Data     interface{}       `json:"data"`
	Links    map[string]string `json:"links"`
}

// ResourceMetadata contains metadata about the resource response.
type ResourceMetadata struct {
	Timestamp   time.Time `json:"timestamp"`
	Count       int       `json:"count"`
	ResourceURI string    `json:"resource_uri"`
}

const (
	feedsURI     = "feedsync://feeds"
	favoritesURI = "feedsync://favorites"
	statsURI     = "feedsync://stats"
)

type FeedStats struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	ArticleCount int    `json:"article_count"`
	StarredCount int    `json:"starred_count"`
	TodayCount   int    `json:"today_count"`
	LastSync     string `json:"last_sync"`
}

type Stats struct {
	TotalFeeds    int         `json:"total_feeds"`
	TotalArticles int         `json:"total_articles"`
	TotalStarred  int         `json:"total_starred"`
	FeedsInError  int         `json:"feeds_in_error"`
	FeedsLoading  int         `json:"feeds_loading"`
	Feeds         []FeedStats `json:"feeds"`
}

func (s *Server) registerResources() {
	s.registerFeedsResource()
	s.registerFavoritesResource()
	s.registerStatsResource()
}

func (s *Server) registerFeedsResource() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         feedsURI,
			Name:        "All Feeds",
			Description: "Subscribed RSS/Atom feeds in display order with status, article count, last sync time, and error message",
			MIMEType:    "application/json",
		},
		func(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			feeds := s.manager.Feeds()
			outputs := make([]FeedOutput, 0, len(feeds))
			for _, f := range feeds {
				outputs = append(outputs, toFeedOutput(f))
			}
			return resourceContents(request.Params.URI, outputs, len(outputs), map[string]string{
				"favorites": favoritesURI,
				"stats":     statsURI,
			})
		},
	)
}

func (s *Server) registerFavoritesResource() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         favoritesURI,
			Name:        "Favorites",
			Description: "Starred articles, most recently starred first",
			MIMEType:    "application/json",
		},
		func(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			fav := s.manager.Favorites()
			articles := fav.Articles()
			outputs := make([]ArticleOutput, 0, len(articles))
			for _, a := range articles {
				outputs = append(outputs, toArticleOutput(fav, a))
			}
			return resourceContents(request.Params.URI, outputs, len(outputs), map[string]string{
				"feeds": feedsURI,
			})
		},
	)
}

func (s *Server) registerStatsResource() {
	s.mcpServer.AddResource(
		mcp.Resource{
			URI:         statsURI,
			Name:        "Statistics",
			Description: "Per-feed and overall counts of articles, starred articles, and articles published today, plus feeds currently loading or in error",
			MIMEType:    "application/json",
		},
		func(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			stats := computeStats(s.manager.Feeds(), s.manager.Favorites(), time.Now())
			return resourceContents(request.Params.URI, stats, stats.TotalFeeds, map[string]string{
				"feeds":     feedsURI,
				"favorites": favoritesURI,
			})
		},
	)
}

func computeStats(feeds []*models.Feed, fav *models.Feed, now time.Time) Stats {
	today := timeutil.StartOfDay(now)
	stats := Stats{
		TotalFeeds:   len(feeds),
		TotalStarred: fav.Len(),
		Feeds:        make([]FeedStats, 0, len(feeds)),
	}
	for _, f := range feeds {
		fs := FeedStats{
			ID:       f.ID,
			Name:     f.DisplayName(),
			Status:   f.Status().String(),
			LastSync: timeutil.FormatLastSync(f.LastSyncTime(), now),
		}
		for _, a := range f.Articles() {
			fs.ArticleCount++
			if a.Starred() {
				fs.StarredCount++
			}
			if a.PublishedAt != nil && !a.PublishedAt.Before(today) {
				fs.TodayCount++
			}
		}
		switch {
		case f.IsInError():
			stats.FeedsInError++
		case f.IsLoading():
			stats.FeedsLoading++
		}
		stats.TotalArticles += fs.ArticleCount
		stats.Feeds = append(stats.Feeds, fs)
	}
	return stats
}

func resourceContents(uri string, data interface{}, count int, links map[string]string) ([]mcp.ResourceContents, error) {
	resp := ResourceData{
		Metadata: ResourceMetadata{
			Timestamp:   time.Now(),
			Count:       count,
			ResourceURI: uri,
		},
		Data:  data,
		Links: links,
	}
	jsonData, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
