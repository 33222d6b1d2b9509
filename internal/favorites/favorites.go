// ABOUTME: Favorites index mapping article identity to its canonical starred instance
// ABOUTME: Guarded by its own mutex; always acquired after any feed lock, never before

package favorites

import (
	"sync"

	"github.com/harper/feedsync/internal/identity"
	"github.com/harper/feedsync/internal/models"
)

// Index holds the canonical instance of every starred article.
type Index struct {
	mu       sync.RWMutex
	articles map[identity.Identity]*models.Article
}

// New creates an empty index.
func New() *Index {
	return &Index{articles: make(map[identity.Identity]*models.Article)}
}

// Add registers the article as canonical for its identity and marks it starred.
// If the identity is already indexed, the existing instance wins and is returned.
func (x *Index) Add(a *models.Article) *models.Article {
	x.mu.Lock()
	defer x.mu.Unlock()
	if existing, ok := x.articles[a.Identity()]; ok {
		existing.SetStarred(true)
		return existing
	}
	a.SetStarred(true)
	x.articles[a.Identity()] = a
	return a
}

// Remove drops the identity and returns the instance that was canonical, or nil.
func (x *Index) Remove(id identity.Identity) *models.Article {
	x.mu.Lock()
	defer x.mu.Unlock()
	a, ok := x.articles[id]
	if !ok {
		return nil
	}
	delete(x.articles, id)
	a.SetStarred(false)
	return a
}

// Lookup returns the canonical instance for id, or nil.
func (x *Index) Lookup(id identity.Identity) *models.Article {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.articles[id]
}

func (x *Index) Contains(id identity.Identity) bool {
	return x.Lookup(id) != nil
}

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.articles)
}
