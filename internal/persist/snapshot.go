// ABOUTME: Snapshot types for the favorites collection and the feed list
// ABOUTME: Converts between live feeds and their persisted, serializable form

package persist

import (
	"time"

	"github.com/harper/feedsync/internal/models"
)

// ArticleRecord is the persisted form of an article.
type ArticleRecord struct {
	Title       string     `yaml:"title"`
	Link        string     `yaml:"link"`
	Summary     string     `yaml:"summary,omitempty"`
	Content     string     `yaml:"content,omitempty"`
	Author      string     `yaml:"author,omitempty"`
	PublishedAt *time.Time `yaml:"published_at,omitempty"`
}

// FavoritesSnapshot holds the favorites feed metadata and its ordered articles.
type FavoritesSnapshot struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Link        string          `yaml:"link"`
	Articles    []ArticleRecord `yaml:"articles"`
}

// FeedListEntry is one subscription.
type FeedListEntry struct {
	Name string
	URL  string
}

// FeedListSnapshot is the ordered subscription list, favorites excluded.
type FeedListSnapshot struct {
	Feeds []FeedListEntry
}

// SnapshotFavorites captures the favorites feed.
func SnapshotFavorites(fav *models.Feed) FavoritesSnapshot {
	articles := fav.Articles()
	snap := FavoritesSnapshot{
		Name:        fav.Name(),
		Description: fav.Description(),
		Link:        fav.Link(),
		Articles:    make([]ArticleRecord, 0, len(articles)),
	}
	for _, a := range articles {
		snap.Articles = append(snap.Articles, ArticleRecord{
			Title:       a.Title,
			Link:        a.Link,
			Summary:     a.Summary,
			Content:     a.Content,
			Author:      a.Author,
			PublishedAt: a.PublishedAt,
		})
	}
	return snap
}

// StarredArticles rebuilds the snapshot's articles, all starred. Records whose
// link no longer yields an identity are dropped.
func (s FavoritesSnapshot) StarredArticles() []*models.Article {
	out := make([]*models.Article, 0, len(s.Articles))
	for _, r := range s.Articles {
		a, err := models.NewArticle(r.Title, r.Link)
		if err != nil {
			continue
		}
		a.Summary = r.Summary
		a.Content = r.Content
		a.Author = r.Author
		a.PublishedAt = r.PublishedAt
		a.SetStarred(true)
		out = append(out, a)
	}
	return out
}

// SnapshotFeedList captures the subscription order, skipping the favorites feed.
func SnapshotFeedList(feeds []*models.Feed) FeedListSnapshot {
	snap := FeedListSnapshot{Feeds: make([]FeedListEntry, 0, len(feeds))}
	for _, f := range feeds {
		if f.IsFavorites {
			continue
		}
		snap.Feeds = append(snap.Feeds, FeedListEntry{Name: f.Name(), URL: f.Link()})
	}
	return snap
}
