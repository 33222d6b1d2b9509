// ABOUTME: Feed model holding an ordered, identity-deduplicated article list and refresh state
// ABOUTME: Implements the Idle/Loading/Ready/Error state machine with epoch-guarded commits

package models

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harper/feedsync/internal/identity"
	"github.com/harper/feedsync/internal/timeutil"
)

// Sentinel values for the favorites feed.
const (
	FavoritesLink        = "http://localhost"
	FavoritesName        = "Favorites"
	FavoritesDescription = "Articles that you've starred"
)

// User-facing feed messages.
const (
	MsgInvalidFeed    = "Hmm... Are you sure this is an RSS URL?"
	MsgCannotRefresh  = "Could not refresh this feed. Showing previously loaded articles."
	MsgAlreadyAdded   = "This feed has already been added."
	MsgSchemeRequired = "Sorry. The URL must begin with http:// or https://"
	MsgInvalidURL     = "Sorry. That is not a valid URL."
	MsgNoStarred      = "There are no starred articles."
)

// ErrInvalidScheme is returned when a feed link is neither http nor https.
var ErrInvalidScheme = errors.New("feed link scheme must be http or https")

// Status is the refresh state of a feed.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Metadata is the feed-level information carried by a fetch result.
type Metadata struct {
	Title       string
	Description string
}

// LookupFunc resolves an identity to its canonical article, or nil.
type LookupFunc func(identity.Identity) *Article

// Feed is a subscribed feed (or the favorites collection) and its articles.
// All mutable state sits behind mu; ID, link and the favorites flag never change.
type Feed struct {
	ID          string
	IsFavorites bool

	link  string
	url   *url.URL
	ident identity.Identity

	mu          sync.RWMutex
	name        string
	description string
	articles    []*Article
	present     map[identity.Identity]struct{}
	status      Status
	settled     Status // last non-loading status, restored by a cancelled run
	errMsg      string
	lastSync    time.Time
	epoch       uint64
	cancel      context.CancelFunc
	watchers    map[uint64]func(*Article)
	nextWatch   uint64
}

// NewFeed creates a feed for the given link. The link must parse as a URL;
// its scheme is checked only when the feed is refreshed.
func NewFeed(name, link string) (*Feed, error) {
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("parse feed link: %w", err)
	}
	return newFeed(name, link, u), nil
}

// NewFavoritesFeed creates the favorites sentinel feed.
func NewFavoritesFeed() *Feed {
	u, _ := url.Parse(FavoritesLink)
	f := newFeed(FavoritesName, FavoritesLink, u)
	f.description = FavoritesDescription
	f.IsFavorites = true
	return f
}

// NewCandidate builds a feed from user input. Invalid input still yields a
// feed, in the Error state and carrying the reason, so callers can display it.
func NewCandidate(rawURL string) *Feed {
	rawURL = strings.TrimSpace(rawURL)
	// Schemes are case-insensitive; net/url lowercases u.Scheme.
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return failedCandidate(rawURL, MsgSchemeRequired)
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return failedCandidate(rawURL, MsgInvalidURL)
	}
	return newFeed("", rawURL, u)
}

func failedCandidate(rawURL, msg string) *Feed {
	f := newFeed("", rawURL, &url.URL{})
	f.status = StatusError
	f.settled = StatusError
	f.errMsg = msg
	return f
}

func newFeed(name, link string, u *url.URL) *Feed {
	id, _ := identity.FromURL(u)
	return &Feed{
		ID:       uuid.New().String(),
		link:     link,
		url:      u,
		ident:    id,
		name:     name,
		present:  make(map[identity.Identity]struct{}),
		watchers: make(map[uint64]func(*Article)),
	}
}

// Link returns the feed link as given.
func (f *Feed) Link() string { return f.link }

// Identity returns the identity of the feed link; zero when the link has no host.
func (f *Feed) Identity() identity.Identity { return f.ident }

// HasHTTPScheme reports whether the feed can be fetched over HTTP.
func (f *Feed) HasHTTPScheme() bool {
	return f.url != nil && (f.url.Scheme == "http" || f.url.Scheme == "https")
}

func (f *Feed) Name() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.name
}

// DisplayName returns the name, or the link when the feed has not been named yet.
func (f *Feed) DisplayName() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.name != "" {
		return f.name
	}
	return f.link
}

// SetName renames the feed.
func (f *Feed) SetName(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name = name
}

func (f *Feed) SetDescription(description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.description = description
}

func (f *Feed) Description() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.description
}

func (f *Feed) Status() Status {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.status
}

func (f *Feed) ErrorMessage() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.errMsg
}

// SetErrorMessage replaces the message without touching the status. The
// favorites feed uses it for its informational empty message.
func (f *Feed) SetErrorMessage(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errMsg = msg
}

// MarkError moves the feed to the Error state with the given message.
func (f *Feed) MarkError(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = StatusError
	f.settled = StatusError
	f.errMsg = msg
}

func (f *Feed) LastSyncTime() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastSync
}

// Articles returns a copy of the ordered article list.
func (f *Feed) Articles() []*Article {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Article, len(f.articles))
	copy(out, f.articles)
	return out
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.articles)
}

// First returns the first article, or nil when the feed is empty.
func (f *Feed) First() *Article {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.articles) == 0 {
		return nil
	}
	return f.articles[0]
}

// Find returns the feed's instance for the identity, or nil.
func (f *Feed) Find(id identity.Identity) *Article {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.findLocked(id)
}

func (f *Feed) findLocked(id identity.Identity) *Article {
	if _, ok := f.present[id]; !ok {
		return nil
	}
	for _, a := range f.articles {
		if a.Identity() == id {
			return a
		}
	}
	return nil
}

func (f *Feed) IsEmpty() bool { return f.Len() == 0 }

func (f *Feed) IsLoading() bool { return f.Status() == StatusLoading }

// IsInError reports the Error state. A feed that is loading is never in error.
func (f *Feed) IsInError() bool { return f.Status() == StatusError }

func (f *Feed) IsInErrorAndEmpty() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.status == StatusError && len(f.articles) == 0
}

func (f *Feed) IsInErrorAndNotEmpty() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.status == StatusError && len(f.articles) > 0
}

func (f *Feed) IsLoadingAndNotEmpty() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.status == StatusLoading && len(f.articles) > 0
}

func (f *Feed) IsNotFavoritesOrInError() bool {
	return !f.IsFavorites && !f.IsInError()
}

// FeedDownMessage describes a feed that could not be refreshed.
func (f *Feed) FeedDownMessage() string {
	return fmt.Sprintf("It looks like this feed is down. Last synced %s.",
		timeutil.FormatLastSync(f.LastSyncTime(), time.Now()))
}

// BeginRefresh starts a new refresh run. It supersedes and cancels any run in
// flight, moves the feed to Loading and returns the run's context and epoch.
func (f *Feed) BeginRefresh(parent context.Context) (context.Context, uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
	if f.status != StatusLoading {
		f.settled = f.status
	}
	f.epoch++
	ctx, cancel := context.WithCancel(parent)
	f.cancel = cancel
	f.status = StatusLoading
	return ctx, f.epoch
}

// IsCurrent reports whether epoch still names the latest run.
func (f *Feed) IsCurrent(epoch uint64) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.epoch == epoch
}

// Commit applies a successful fetch for the run identified by epoch. Articles
// already present by identity are skipped, and lookup substitutes canonical
// instances. It returns the number of articles added and false when the run
// has been superseded, in which case nothing changes.
func (f *Feed) Commit(epoch uint64, meta Metadata, incoming []*Article, lookup LookupFunc, now time.Time) (int, bool) {
	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return 0, false
	}
	wasEmpty := len(f.articles) == 0
	added := 0
	for _, a := range incoming {
		id := a.Identity()
		if id.IsZero() {
			continue
		}
		if _, dup := f.present[id]; dup {
			continue
		}
		if lookup != nil {
			if canonical := lookup(id); canonical != nil {
				a = canonical
			}
		}
		f.present[id] = struct{}{}
		f.articles = append(f.articles, a)
		added++
	}
	if f.name == "" {
		f.name = meta.Title
	}
	if f.description == "" {
		f.description = meta.Description
	}
	f.lastSync = now
	f.errMsg = ""
	f.status = StatusReady
	f.settled = StatusReady
	f.releaseLocked()
	fire := f.takeWatchersLocked(wasEmpty)
	f.mu.Unlock()

	fire()
	return added, true
}

// Fail records an exhausted run. The message depends on whether any articles
// survive from earlier refreshes. It returns false when the run was superseded.
func (f *Feed) Fail(epoch uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch != epoch {
		return false
	}
	f.status = StatusError
	f.settled = StatusError
	if len(f.articles) == 0 {
		f.errMsg = MsgInvalidFeed
	} else {
		f.errMsg = MsgCannotRefresh
	}
	f.releaseLocked()
	return true
}

// Abandon ends a run that was cancelled before it could commit. The feed
// leaves Loading for the status it held before the run, unless a newer run
// owns the feed.
func (f *Feed) Abandon(epoch uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch != epoch {
		return
	}
	if f.status == StatusLoading {
		f.status = f.settled
	}
	f.releaseLocked()
}

func (f *Feed) releaseLocked() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// InsertFront puts the article at the head of the list unless an article with
// the same identity is already present.
func (f *Feed) InsertFront(a *Article) bool {
	f.mu.Lock()
	id := a.Identity()
	if id.IsZero() {
		f.mu.Unlock()
		return false
	}
	if _, dup := f.present[id]; dup {
		f.mu.Unlock()
		return false
	}
	wasEmpty := len(f.articles) == 0
	f.present[id] = struct{}{}
	f.articles = append([]*Article{a}, f.articles...)
	fire := f.takeWatchersLocked(wasEmpty)
	f.mu.Unlock()

	fire()
	return true
}

// Remove drops the article with the given identity.
func (f *Feed) Remove(id identity.Identity) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.present[id]; !ok {
		return false
	}
	delete(f.present, id)
	for i, a := range f.articles {
		if a.Identity() == id {
			f.articles = append(f.articles[:i], f.articles[i+1:]...)
			break
		}
	}
	return true
}

// Adopt replaces the feed's instance of canonical's identity with canonical
// itself, keeping its position. It reports whether a replacement happened.
func (f *Feed) Adopt(canonical *Article) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := canonical.Identity()
	if _, ok := f.present[id]; !ok {
		return false
	}
	for i, a := range f.articles {
		if a.Identity() == id {
			if a == canonical {
				return false
			}
			f.articles[i] = canonical
			return true
		}
	}
	return false
}

// WatchFirstArticle registers fn to run once, when the feed receives its first
// article. The returned function unregisters it.
func (f *Feed) WatchFirstArticle(fn func(*Article)) (stop func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextWatch++
	key := f.nextWatch
	f.watchers[key] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.watchers, key)
	}
}

// takeWatchersLocked detaches the watchers when the feed just went from empty
// to non-empty and returns a func that runs them. It must be called with mu
// held; the returned func must run after mu is released.
func (f *Feed) takeWatchersLocked(wasEmpty bool) func() {
	if !wasEmpty || len(f.articles) == 0 || len(f.watchers) == 0 {
		return func() {}
	}
	first := f.articles[0]
	fns := make([]func(*Article), 0, len(f.watchers))
	for key, fn := range f.watchers {
		fns = append(fns, fn)
		delete(f.watchers, key)
	}
	return func() {
		for _, fn := range fns {
			fn(first)
		}
	}
}
