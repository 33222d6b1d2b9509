// ABOUTME: Article model representing a single normalized feed item
// ABOUTME: Carries a link-derived identity and a concurrency-safe starred flag

package models

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/harper/feedsync/internal/identity"
)

// Article represents a single article (item) of a feed.
// Every field except the starred flag is fixed once the article is built, so the
// same instance can be shared by several feeds and the favorites index.
type Article struct {
	Title       string
	Summary     string // Plain text, markup and entities stripped
	Content     string // Markdown rendering of the rich summary, may be empty
	Author      string // Empty when the item names no author
	Link        string
	PublishedAt *time.Time

	id      identity.Identity
	starred atomic.Bool
}

// NewArticle creates an Article for the given link, deriving its identity.
func NewArticle(title, link string) (*Article, error) {
	link = strings.TrimSpace(link)
	id, err := identity.FromLink(link)
	if err != nil {
		return nil, fmt.Errorf("article link %q: %w", link, err)
	}
	return &Article{
		Title: title,
		Link:  link,
		id:    id,
	}, nil
}

// Identity returns the dedup key of the article.
func (a *Article) Identity() identity.Identity {
	return a.id
}

// Starred reports whether the user has starred the article.
func (a *Article) Starred() bool {
	return a.starred.Load()
}

// SetStarred updates the starred flag.
func (a *Article) SetStarred(starred bool) {
	a.starred.Store(starred)
}

// PublishedFormatted returns the publication date the way article lists show it.
func (a *Article) PublishedFormatted() string {
	if a.PublishedAt == nil {
		return ""
	}
	return strings.ToUpper(a.PublishedAt.Local().Format("Jan 02, 2006    3:04 PM"))
}
