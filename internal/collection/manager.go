// ABOUTME: Feed collection manager owning the ordered feed list, selection, and starring
// ABOUTME: Persists the feed list and favorites through the gateway after each mutation

package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/harper/feedsync/internal/favorites"
	"github.com/harper/feedsync/internal/identity"
	"github.com/harper/feedsync/internal/logging"
	"github.com/harper/feedsync/internal/models"
	"github.com/harper/feedsync/internal/persist"
	"github.com/harper/feedsync/internal/refresh"
)

// DefaultMaxConcurrent bounds RefreshAll when no limit is configured.
const DefaultMaxConcurrent = 4

var (
	// ErrDuplicateFeed is returned when a candidate names a feed already in the collection.
	ErrDuplicateFeed = errors.New("feed has already been added")
	// ErrInvalidCandidate is returned for candidates that failed validation.
	ErrInvalidCandidate = errors.New("invalid feed candidate")
	// ErrFavoritesFeed is returned when an operation cannot apply to the favorites feed.
	ErrFavoritesFeed   = errors.New("operation not allowed on the favorites feed")
	ErrFeedNotFound    = errors.New("feed not found")
	ErrAmbiguousFeed   = errors.New("feed reference matches more than one feed")
	ErrArticleNotFound = errors.New("article not found")
	// ErrOrderMismatch is returned when a new order is not a permutation of the current feeds.
	ErrOrderMismatch = errors.New("order must list every feed exactly once")
)

// Refresher refreshes a single feed.
type Refresher interface {
	Refresh(ctx context.Context, feed *models.Feed) refresh.Result
}

// Manager owns the feed collection. The favorites feed is always first.
//
// Lock order: mu, then selMu, then any feed lock, then the favorites index.
type Manager struct {
	mu    sync.RWMutex
	feeds []*models.Feed

	selMu          sync.Mutex
	current        *models.Feed
	currentArticle *models.Article
	stopWatch      func()

	starMu    sync.Mutex
	favorites *models.Feed
	index     *favorites.Index

	refresher     Refresher
	gateway       *persist.Gateway
	defaults      []persist.FeedListEntry
	maxConcurrent int
	skipInitial   bool
	logger        *log.Logger

	inflight sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithDefaultFeeds replaces the bundled list used when no feed list is stored.
func WithDefaultFeeds(entries []persist.FeedListEntry) Option {
	return func(m *Manager) { m.defaults = entries }
}

// WithMaxConcurrent bounds concurrent refreshes in RefreshAll.
func WithMaxConcurrent(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxConcurrent = n
		}
	}
}

// WithoutInitialRefresh makes Initialize restore feeds without fetching them.
// Feeds stay Idle until refreshed.
func WithoutInitialRefresh() Option {
	return func(m *Manager) { m.skipInitial = true }
}

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = logging.OrDiscard(l) }
}

// New creates a Manager. The refresher should resolve canonical articles from index.
func New(index *favorites.Index, refresher Refresher, gateway *persist.Gateway, opts ...Option) *Manager {
	m := &Manager{
		index:         index,
		refresher:     refresher,
		gateway:       gateway,
		defaults:      DefaultFeeds(),
		maxConcurrent: DefaultMaxConcurrent,
		logger:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize loads persisted state, starts a background refresh of every feed
// and selects the first subscription, or favorites when there is none.
func (m *Manager) Initialize(ctx context.Context) error {
	fav := models.NewFavoritesFeed()
	if snap, ok := m.gateway.TryLoadFavorites(ctx); ok {
		if snap.Name != "" {
			fav.SetName(snap.Name)
		}
		if snap.Description != "" {
			fav.SetDescription(snap.Description)
		}
		restored := snap.StarredArticles()
		for i := len(restored) - 1; i >= 0; i-- {
			fav.InsertFront(m.index.Add(restored[i]))
		}
		m.logger.Debug("favorites restored", "articles", fav.Len())
	} else if err := m.gateway.SaveFavorites(ctx, persist.SnapshotFavorites(fav)); err != nil {
		return fmt.Errorf("save favorites: %w", err)
	}
	updateFavoritesMessage(fav)

	entries := m.defaults
	if snap, ok := m.gateway.TryLoadFeedList(ctx); ok {
		entries = snap.Feeds
	} else {
		m.logger.Info("no saved feed list, using defaults", "feeds", len(entries))
	}

	feeds := []*models.Feed{fav}
	for _, e := range entries {
		f, err := models.NewFeed(e.Name, e.URL)
		if err != nil {
			m.logger.Warn("skipping saved feed", "url", e.URL, "err", err)
			continue
		}
		if containsIdentity(feeds, f.Identity()) {
			m.logger.Warn("skipping duplicate saved feed", "url", e.URL)
			continue
		}
		feeds = append(feeds, f)
	}

	m.mu.Lock()
	m.feeds = feeds
	m.favorites = fav
	m.mu.Unlock()

	if !m.skipInitial {
		for _, f := range feeds[1:] {
			m.refreshAsync(ctx, f)
		}
	}

	if len(feeds) > 1 {
		m.SelectFeed(feeds[1])
	} else {
		m.SelectFeed(fav)
	}
	return nil
}

// Wait blocks until every background refresh has finished.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

func (m *Manager) refreshAsync(ctx context.Context, feed *models.Feed) {
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		m.RefreshFeed(ctx, feed)
	}()
}

// NewCandidate validates user input as a feed to add. Invalid input yields a
// feed in the Error state carrying the reason.
func (m *Manager) NewCandidate(rawURL string) *models.Feed {
	return models.NewCandidate(rawURL)
}

// AddFeed appends the candidate, persists the list and refreshes the new feed
// in the background.
func (m *Manager) AddFeed(ctx context.Context, candidate *models.Feed) error {
	if candidate.IsInError() {
		return fmt.Errorf("%w: %s", ErrInvalidCandidate, candidate.ErrorMessage())
	}
	if candidate.Identity().IsZero() {
		candidate.MarkError(models.MsgInvalidURL)
		return fmt.Errorf("%w: %s", ErrInvalidCandidate, models.MsgInvalidURL)
	}

	m.mu.Lock()
	if candidate.IsFavorites || containsIdentity(m.feeds, candidate.Identity()) {
		m.mu.Unlock()
		candidate.MarkError(models.MsgAlreadyAdded)
		return ErrDuplicateFeed
	}
	m.feeds = append(m.feeds, candidate)
	err := m.saveFeedListLocked(ctx)
	m.mu.Unlock()

	m.logger.Info("feed added", "url", candidate.Link())
	m.refreshAsync(ctx, candidate)
	return err
}

// RemoveFeed removes a subscription.
func (m *Manager) RemoveFeed(ctx context.Context, feed *models.Feed) error {
	return m.RemoveFeeds(ctx, []*models.Feed{feed})
}

// RemoveFeeds removes several subscriptions and persists the list once. If the
// current feed goes, selection moves to the first remaining subscription.
func (m *Manager) RemoveFeeds(ctx context.Context, feeds []*models.Feed) error {
	if lo.ContainsBy(feeds, func(f *models.Feed) bool { return f.IsFavorites }) {
		return ErrFavoritesFeed
	}

	m.mu.Lock()
	for _, f := range feeds {
		if !lo.Contains(m.feeds, f) {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrFeedNotFound, f.Link())
		}
	}
	m.feeds = lo.Without(m.feeds, feeds...)
	err := m.saveFeedListLocked(ctx)
	remaining := m.feeds
	m.mu.Unlock()

	if current := m.CurrentFeed(); current != nil && lo.Contains(feeds, current) {
		if len(remaining) > 1 {
			m.SelectFeed(remaining[1])
		} else {
			m.SelectFeed(remaining[0])
		}
	}
	return err
}

// RemoveBadFeed removes the current feed and selects the feed that took its
// place, or the one before it.
func (m *Manager) RemoveBadFeed(ctx context.Context) error {
	current := m.CurrentFeed()
	if current == nil {
		return ErrFeedNotFound
	}
	if current.IsFavorites {
		return ErrFavoritesFeed
	}

	m.mu.Lock()
	i := lo.IndexOf(m.feeds, current)
	if i < 0 {
		m.mu.Unlock()
		return ErrFeedNotFound
	}
	m.feeds = append(m.feeds[:i:i], m.feeds[i+1:]...)
	err := m.saveFeedListLocked(ctx)
	next := m.feeds[i-1]
	if i < len(m.feeds) {
		next = m.feeds[i]
	}
	m.mu.Unlock()

	m.SelectFeed(next)
	return err
}

// Reorder moves the subscription at index from to index to. Indexes count
// subscriptions only; favorites stays first.
func (m *Manager) Reorder(ctx context.Context, from, to int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.feeds) == 0 {
		return ErrFeedNotFound
	}

	subs := m.feeds[1:]
	if from < 0 || from >= len(subs) || to < 0 || to >= len(subs) {
		return fmt.Errorf("move %d to %d: index out of range [0,%d)", from, to, len(subs))
	}
	moved := subs[from]
	rest := append(append([]*models.Feed{}, subs[:from]...), subs[from+1:]...)
	reordered := append(append(append([]*models.Feed{}, rest[:to]...), moved), rest[to:]...)
	m.feeds = append([]*models.Feed{m.feeds[0]}, reordered...)
	return m.saveFeedListLocked(ctx)
}

// SetOrder replaces the subscription order. The favorites feed may be included
// anywhere in order; it stays first regardless.
func (m *Manager) SetOrder(ctx context.Context, order []*models.Feed) error {
	subs := lo.Filter(order, func(f *models.Feed, _ int) bool { return !f.IsFavorites })

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.feeds) == 0 {
		return ErrFeedNotFound
	}
	current := m.feeds[1:]
	if len(subs) != len(current) || len(lo.Uniq(subs)) != len(subs) || !lo.Every(current, subs) {
		return ErrOrderMismatch
	}
	m.feeds = append([]*models.Feed{m.feeds[0]}, subs...)
	return m.saveFeedListLocked(ctx)
}

// Rename changes a feed's display name and persists the list.
func (m *Manager) Rename(ctx context.Context, feed *models.Feed, name string) error {
	if feed.IsFavorites {
		return ErrFavoritesFeed
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !lo.Contains(m.feeds, feed) {
		return fmt.Errorf("%w: %s", ErrFeedNotFound, feed.Link())
	}
	feed.SetName(strings.TrimSpace(name))
	return m.saveFeedListLocked(ctx)
}

func (m *Manager) saveFeedListLocked(ctx context.Context) error {
	if err := m.gateway.SaveFeedList(ctx, persist.SnapshotFeedList(m.feeds)); err != nil {
		m.logger.Error("failed to save feed list", "err", err)
		return fmt.Errorf("save feed list: %w", err)
	}
	return nil
}

// SelectFeed makes feed current. The current article becomes its first
// article; an empty feed gets one as soon as its first article arrives.
func (m *Manager) SelectFeed(feed *models.Feed) {
	m.selMu.Lock()
	defer m.selMu.Unlock()

	if m.stopWatch != nil {
		m.stopWatch()
		m.stopWatch = nil
	}
	m.current = feed
	m.currentArticle = feed.First()
	if m.currentArticle != nil {
		return
	}

	m.stopWatch = feed.WatchFirstArticle(func(a *models.Article) {
		m.selMu.Lock()
		defer m.selMu.Unlock()
		if m.current == feed && m.currentArticle == nil {
			m.currentArticle = a
		}
	})
	// The first article may have landed before the watcher was registered.
	if first := feed.First(); first != nil {
		m.stopWatch()
		m.stopWatch = nil
		m.currentArticle = first
	}
}

// Star adds the article to favorites. Every feed holding the same identity
// switches to the one canonical instance.
func (m *Manager) Star(ctx context.Context, article *models.Article) error {
	m.starMu.Lock()
	defer m.starMu.Unlock()

	canonical := m.index.Add(article)
	fav := m.Favorites()
	fav.InsertFront(canonical)
	for _, f := range m.Feeds() {
		f.Adopt(canonical)
	}
	updateFavoritesMessage(fav)

	m.selMu.Lock()
	if m.currentArticle != nil && m.currentArticle.Identity() == canonical.Identity() {
		m.currentArticle = canonical
	}
	m.selMu.Unlock()

	return m.saveFavorites(ctx, fav)
}

// Unstar removes the article from favorites.
func (m *Manager) Unstar(ctx context.Context, article *models.Article) error {
	m.starMu.Lock()
	defer m.starMu.Unlock()

	id := article.Identity()
	m.index.Remove(id)
	article.SetStarred(false)
	fav := m.Favorites()
	fav.Remove(id)
	updateFavoritesMessage(fav)

	return m.saveFavorites(ctx, fav)
}

// ToggleStar flips the article's starred state and reports the new state.
func (m *Manager) ToggleStar(ctx context.Context, article *models.Article) (bool, error) {
	if article.Starred() {
		return false, m.Unstar(ctx, article)
	}
	return true, m.Star(ctx, article)
}

func (m *Manager) saveFavorites(ctx context.Context, fav *models.Feed) error {
	if err := m.gateway.SaveFavorites(ctx, persist.SnapshotFavorites(fav)); err != nil {
		m.logger.Error("failed to save favorites", "err", err)
		return fmt.Errorf("save favorites: %w", err)
	}
	return nil
}

func updateFavoritesMessage(fav *models.Feed) {
	if fav.IsEmpty() {
		fav.SetErrorMessage(models.MsgNoStarred)
	} else {
		fav.SetErrorMessage("")
	}
}

// RefreshFeed refreshes one feed and waits for the outcome.
func (m *Manager) RefreshFeed(ctx context.Context, feed *models.Feed) refresh.Result {
	unnamed := feed.Name() == ""
	res := m.refresher.Refresh(ctx, feed)
	switch res.Outcome {
	case refresh.Failed:
		m.logger.Warn("refresh failed", "feed", feed.DisplayName(), "err", res.Err)
	case refresh.Success:
		if res.Err != nil {
			m.logger.Warn("feed not refreshed", "feed", feed.DisplayName(), "err", res.Err)
			break
		}
		if unnamed && feed.Name() != "" {
			m.saveLearnedName(ctx, feed)
		}
	}
	return res
}

// saveLearnedName persists a name the feed took from its own metadata.
func (m *Manager) saveLearnedName(ctx context.Context, feed *models.Feed) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !lo.Contains(m.feeds, feed) {
		return
	}
	if err := m.saveFeedListLocked(ctx); err == nil {
		m.logger.Debug("feed name saved", "feed", feed.Name())
	}
}

// RefreshCurrentFeed refreshes the selected feed.
func (m *Manager) RefreshCurrentFeed(ctx context.Context) refresh.Result {
	current := m.CurrentFeed()
	if current == nil {
		return refresh.Result{Outcome: refresh.Success}
	}
	return m.RefreshFeed(ctx, current)
}

// RefreshAll refreshes every subscription with bounded concurrency. Results
// line up with Feeds().
func (m *Manager) RefreshAll(ctx context.Context) ([]refresh.Result, error) {
	feeds := m.Feeds()
	results := make([]refresh.Result, len(feeds))

	var g errgroup.Group
	g.SetLimit(m.maxConcurrent)
	for i, f := range feeds {
		g.Go(func() error {
			results[i] = m.RefreshFeed(ctx, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// Feeds returns the subscriptions in order, favorites excluded.
func (m *Manager) Feeds() []*models.Feed {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.feeds) == 0 {
		return nil
	}
	return append([]*models.Feed(nil), m.feeds[1:]...)
}

// FeedsWithFavorites returns every feed, favorites first.
func (m *Manager) FeedsWithFavorites() []*models.Feed {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*models.Feed(nil), m.feeds...)
}

func (m *Manager) Favorites() *models.Feed {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.favorites
}

func (m *Manager) CurrentFeed() *models.Feed {
	m.selMu.Lock()
	defer m.selMu.Unlock()
	return m.current
}

func (m *Manager) CurrentArticle() *models.Article {
	m.selMu.Lock()
	defer m.selMu.Unlock()
	return m.currentArticle
}

func (m *Manager) SetCurrentArticle(a *models.Article) {
	m.selMu.Lock()
	defer m.selMu.Unlock()
	m.currentArticle = a
}

// HasNoFeeds reports whether favorites is the only feed.
func (m *Manager) HasNoFeeds() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.feeds) <= 1
}

func (m *Manager) IsCurrentFeedFavorites() bool {
	current := m.CurrentFeed()
	return current != nil && current.IsFavorites
}

// FindFeed resolves ref as an ID prefix, a feed URL or a feed name.
func (m *Manager) FindFeed(ref string) (*models.Feed, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrFeedNotFound
	}
	feeds := m.FeedsWithFavorites()

	byID := lo.Filter(feeds, func(f *models.Feed, _ int) bool { return strings.HasPrefix(f.ID, ref) })
	switch len(byID) {
	case 1:
		return byID[0], nil
	case 0:
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousFeed, ref)
	}

	if id, err := identity.FromLink(ref); err == nil {
		if f, ok := lo.Find(feeds, func(f *models.Feed) bool { return f.Identity() == id }); ok {
			return f, nil
		}
	}

	if f, ok := lo.Find(feeds, func(f *models.Feed) bool { return strings.EqualFold(f.DisplayName(), ref) }); ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrFeedNotFound, ref)
}

// FindArticle returns the article with the link's identity, preferring the
// canonical starred instance.
func (m *Manager) FindArticle(link string) (*models.Article, error) {
	id, err := identity.FromLink(link)
	if errors.Is(err, identity.ErrNoHost) {
		// Scheme-less input such as "example.com/post".
		id, err = identity.FromLink("//" + strings.TrimSpace(link))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArticleNotFound, err)
	}
	if a := m.index.Lookup(id); a != nil {
		return a, nil
	}
	for _, f := range m.Feeds() {
		if a := f.Find(id); a != nil {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrArticleNotFound, link)
}

func containsIdentity(feeds []*models.Feed, id identity.Identity) bool {
	if id.IsZero() {
		return false
	}
	return lo.ContainsBy(feeds, func(f *models.Feed) bool { return f.Identity() == id })
}
