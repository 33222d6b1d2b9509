// ABOUTME: Persistence gateway serializing snapshot saves and loads over a byte store
// ABOUTME: Favorites are YAML, the feed list is OPML; unreadable snapshots load as absent

package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/harper/feedsync/internal/logging"
	"github.com/harper/feedsync/internal/opml"
	"github.com/harper/feedsync/internal/storage"
)

// Snapshot names in the byte store.
const (
	FavoritesKey = "favorites.yaml"
	FeedListKey  = "feeds.opml"
)

// ErrCorruptSnapshot marks a stored snapshot that could not be decoded.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Names lists every snapshot the gateway manages.
func Names() []string {
	return []string{FavoritesKey, FeedListKey}
}

// Gateway is the single writer of snapshots.
type Gateway struct {
	mu     sync.Mutex
	store  storage.ByteStore
	logger *log.Logger
}

// New creates a gateway over store. A nil logger discards.
func New(store storage.ByteStore, logger *log.Logger) *Gateway {
	return &Gateway{store: store, logger: logging.OrDiscard(logger)}
}

// SaveFavorites replaces the favorites snapshot.
func (g *Gateway) SaveFavorites(ctx context.Context, snap FavoritesSnapshot) error {
	data, err := EncodeFavorites(snap)
	if err != nil {
		return err
	}
	return g.save(ctx, FavoritesKey, data)
}

// SaveFeedList replaces the feed list snapshot.
func (g *Gateway) SaveFeedList(ctx context.Context, snap FeedListSnapshot) error {
	data, err := EncodeFeedList(snap)
	if err != nil {
		return err
	}
	return g.save(ctx, FeedListKey, data)
}

func (g *Gateway) save(ctx context.Context, name string, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.store.Save(ctx, name, data); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	g.logger.Debug("snapshot saved", "name", name, "bytes", len(data))
	return nil
}

// TryLoadFavorites returns the stored favorites, or false when none is usable.
func (g *Gateway) TryLoadFavorites(ctx context.Context) (*FavoritesSnapshot, bool) {
	data, ok := g.load(ctx, FavoritesKey)
	if !ok {
		return nil, false
	}
	snap, err := DecodeFavorites(data)
	if err != nil {
		g.logger.Warn("ignoring unreadable snapshot", "name", FavoritesKey, "err", err)
		return nil, false
	}
	return snap, true
}

// TryLoadFeedList returns the stored feed list, or false when none is usable.
func (g *Gateway) TryLoadFeedList(ctx context.Context) (*FeedListSnapshot, bool) {
	data, ok := g.load(ctx, FeedListKey)
	if !ok {
		return nil, false
	}
	snap, err := DecodeFeedList(data)
	if err != nil {
		g.logger.Warn("ignoring unreadable snapshot", "name", FeedListKey, "err", err)
		return nil, false
	}
	return snap, true
}

func (g *Gateway) load(ctx context.Context, name string) ([]byte, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	data, ok, err := g.store.TryLoad(ctx, name)
	if err != nil {
		g.logger.Warn("snapshot load failed", "name", name, "err", err)
		return nil, false
	}
	return data, ok
}

// EncodeFavorites renders the favorites snapshot as YAML.
func EncodeFavorites(snap FavoritesSnapshot) ([]byte, error) {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode favorites: %w", err)
	}
	return data, nil
}

// DecodeFavorites parses a YAML favorites snapshot.
func DecodeFavorites(data []byte) (*FavoritesSnapshot, error) {
	var snap FavoritesSnapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: favorites: %w", ErrCorruptSnapshot, err)
	}
	if snap.Link == "" {
		return nil, fmt.Errorf("%w: favorites: missing link", ErrCorruptSnapshot)
	}
	return &snap, nil
}

// EncodeFeedList renders the feed list as OPML.
func EncodeFeedList(snap FeedListSnapshot) ([]byte, error) {
	doc := opml.NewDocument("feedsync subscriptions")
	for _, f := range snap.Feeds {
		doc.Feeds = append(doc.Feeds, opml.Feed{Title: f.Name, URL: f.URL})
	}
	data, err := doc.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode feed list: %w", err)
	}
	return data, nil
}

// DecodeFeedList parses an OPML feed list.
func DecodeFeedList(data []byte) (*FeedListSnapshot, error) {
	doc, err := opml.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: feed list: %w", ErrCorruptSnapshot, err)
	}
	snap := &FeedListSnapshot{Feeds: make([]FeedListEntry, 0, len(doc.Feeds))}
	for _, f := range doc.Feeds {
		snap.Feeds = append(snap.Feeds, FeedListEntry{Name: f.Title, URL: f.URL})
	}
	return snap, nil
}
