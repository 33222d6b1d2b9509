// ABOUTME: Tests for the refresh coordinator
// ABOUTME: Scripted sources exercise retries, exhaustion messages, supersession, and cancellation

package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/harper/feedsync/internal/favorites"
	"github.com/harper/feedsync/internal/metrics"
	"github.com/harper/feedsync/internal/models"
	"github.com/harper/feedsync/internal/parse"
	"github.com/harper/feedsync/internal/source"
)

var errBoom = errors.New("boom")

// step is one scripted Source response.
type step struct {
	payload *parse.Payload
	err     error
}

// scripted returns a Source that replays steps in order and counts calls.
func scripted(steps ...step) (source.Source, *int) {
	var mu sync.Mutex
	calls := 0
	return source.Func(func(ctx context.Context, uri string) (*parse.Payload, error) {
		mu.Lock()
		defer mu.Unlock()
		i := calls
		calls++
		if i >= len(steps) {
			return nil, errBoom
		}
		return steps[i].payload, steps[i].err
	}), &calls
}

func payloadOf(links ...string) *parse.Payload {
	p := &parse.Payload{Title: "Scripted", Subtitle: "scripted feed"}
	for _, link := range links {
		p.Items = append(p.Items, parse.Item{Title: link, Link: link, Summary: "<p>about " + link + "</p>"})
	}
	return p
}

func failures(n int) []step {
	steps := make([]step, n)
	for i := range steps {
		steps[i] = step{err: errBoom}
	}
	return steps
}

func zeroBackOff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func newFeed(t *testing.T) *models.Feed {
	t.Helper()
	f, err := models.NewFeed("", "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("NewFeed: %v", err)
	}
	return f
}

// seed gives the feed articles through a successful refresh.
func seed(t *testing.T, feed *models.Feed, links ...string) {
	t.Helper()
	src, _ := scripted(step{payload: payloadOf(links...)})
	res := New(src, nil, WithBackOff(zeroBackOff)).Refresh(context.Background(), feed)
	if res.Outcome != Success {
		t.Fatalf("seed refresh: %v %v", res.Outcome, res.Err)
	}
}

func TestRefresh_SucceedsAfterFailures(t *testing.T) {
	feed := newFeed(t)
	src, calls := scripted(
		step{err: errBoom},
		step{err: errBoom},
		step{payload: payloadOf("https://example.com/1", "https://example.com/2", "https://example.com/3")},
	)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := New(src, nil, WithBackOff(zeroBackOff), WithClock(func() time.Time { return now }))

	res := c.Refresh(context.Background(), feed)

	if res.Outcome != Success || res.Err != nil {
		t.Fatalf("expected success, got %v %v", res.Outcome, res.Err)
	}
	if *calls != 3 || res.Attempts != 3 {
		t.Errorf("expected 3 attempts, calls=%d attempts=%d", *calls, res.Attempts)
	}
	if feed.Status() != models.StatusReady || feed.IsInError() {
		t.Errorf("expected ready, got %v", feed.Status())
	}
	if feed.Len() != 3 || res.Added != 3 {
		t.Errorf("expected 3 articles, len=%d added=%d", feed.Len(), res.Added)
	}
	if !feed.LastSyncTime().Equal(now) {
		t.Errorf("expected lastSyncTime %v, got %v", now, feed.LastSyncTime())
	}
	if feed.Name() != "Scripted" {
		t.Errorf("expected name from payload, got %q", feed.Name())
	}
	if got := feed.First().Summary; got != "about https://example.com/1" {
		t.Errorf("expected stripped summary, got %q", got)
	}
}

func TestRefresh_ExhaustionKeepsArticles(t *testing.T) {
	feed := newFeed(t)
	seed(t, feed, "https://example.com/1", "https://example.com/2")
	before := feed.Articles()

	src, calls := scripted(failures(5)...)
	res := New(src, nil, WithBackOff(zeroBackOff)).Refresh(context.Background(), feed)

	if res.Outcome != Failed || !errors.Is(res.Err, ErrFetchFailed) {
		t.Fatalf("expected failed with ErrFetchFailed, got %v %v", res.Outcome, res.Err)
	}
	if !errors.Is(res.Err, errBoom) {
		t.Errorf("expected last fetch error to be wrapped, got %v", res.Err)
	}
	if *calls != 5 {
		t.Errorf("expected 5 attempts, got %d", *calls)
	}
	if !feed.IsInErrorAndNotEmpty() || feed.ErrorMessage() != models.MsgCannotRefresh {
		t.Errorf("expected can't refresh error, got %v %q", feed.Status(), feed.ErrorMessage())
	}
	after := feed.Articles()
	if len(after) != len(before) {
		t.Fatalf("articles changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("article %d replaced", i)
		}
	}
}

func TestRefresh_ExhaustionOnEmptyFeed(t *testing.T) {
	feed := newFeed(t)
	src, _ := scripted(failures(5)...)

	res := New(src, nil, WithBackOff(zeroBackOff)).Refresh(context.Background(), feed)

	if res.Outcome != Failed {
		t.Fatalf("expected failed, got %v", res.Outcome)
	}
	if !feed.IsInErrorAndEmpty() || feed.ErrorMessage() != models.MsgInvalidFeed {
		t.Errorf("expected invalid feed error, got %v %q", feed.Status(), feed.ErrorMessage())
	}
}

func TestRefresh_AttemptBudget(t *testing.T) {
	feed := newFeed(t)
	src, calls := scripted(failures(10)...)

	New(src, nil, WithBackOff(zeroBackOff), WithAttempts(2)).Refresh(context.Background(), feed)

	if *calls != 2 {
		t.Errorf("expected 2 attempts, got %d", *calls)
	}
}

func TestRefresh_LatestRunWins(t *testing.T) {
	feed := newFeed(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	call := 0
	src := source.Func(func(ctx context.Context, uri string) (*parse.Payload, error) {
		mu.Lock()
		call++
		n := call
		mu.Unlock()
		if n == 1 {
			close(started)
			<-release // ignores cancellation, like a slow server
			return payloadOf("https://example.com/old"), nil
		}
		return payloadOf("https://example.com/new"), nil
	})
	c := New(src, nil, WithBackOff(zeroBackOff))

	firstDone := make(chan Result)
	go func() { firstDone <- c.Refresh(context.Background(), feed) }()
	<-started

	second := c.Refresh(context.Background(), feed)
	close(release)
	first := <-firstDone

	if second.Outcome != Success {
		t.Fatalf("expected second run to succeed, got %v", second.Outcome)
	}
	if first.Outcome != Cancelled || !errors.Is(first.Err, ErrCancelled) {
		t.Errorf("expected first run to be cancelled, got %v %v", first.Outcome, first.Err)
	}
	if feed.Len() != 1 || feed.First().Link != "https://example.com/new" {
		t.Errorf("expected only the second payload, got %d articles", feed.Len())
	}
	if feed.Status() != models.StatusReady {
		t.Errorf("superseded run must not change status, got %v", feed.Status())
	}
}

func TestRefresh_CallerCancelRestoresStatus(t *testing.T) {
	feed := newFeed(t)
	ctx, cancel := context.WithCancel(context.Background())

	src := source.Func(func(fctx context.Context, uri string) (*parse.Payload, error) {
		cancel()
		<-fctx.Done()
		return nil, fctx.Err()
	})
	res := New(src, nil, WithBackOff(zeroBackOff)).Refresh(ctx, feed)

	if res.Outcome != Cancelled {
		t.Fatalf("expected cancelled, got %v %v", res.Outcome, res.Err)
	}
	if feed.Status() != models.StatusIdle {
		t.Errorf("expected status restored to idle, got %v", feed.Status())
	}
	if feed.ErrorMessage() != "" {
		t.Errorf("cancellation must not set an error, got %q", feed.ErrorMessage())
	}
}

func TestRefresh_AttemptTimeout(t *testing.T) {
	feed := newFeed(t)
	src := source.Func(func(ctx context.Context, uri string) (*parse.Payload, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	c := New(src, nil, WithBackOff(zeroBackOff), WithAttempts(2), WithAttemptTimeout(20*time.Millisecond))

	res := c.Refresh(context.Background(), feed)

	if res.Outcome != Failed || res.Attempts != 2 {
		t.Errorf("expected failure after 2 timed out attempts, got %v after %d", res.Outcome, res.Attempts)
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error to be wrapped, got %v", res.Err)
	}
}

func TestRefresh_NoOps(t *testing.T) {
	src, calls := scripted(step{payload: payloadOf("https://example.com/1")})
	c := New(src, nil, WithBackOff(zeroBackOff))

	fav := models.NewFavoritesFeed()
	if res := c.Refresh(context.Background(), fav); res.Outcome != Success || res.Err != nil {
		t.Errorf("favorites refresh: %v %v", res.Outcome, res.Err)
	}

	ftp, err := models.NewFeed("", "ftp://example.com/feed.xml")
	if err != nil {
		t.Fatalf("NewFeed: %v", err)
	}
	res := c.Refresh(context.Background(), ftp)
	if res.Outcome != Success || !errors.Is(res.Err, models.ErrInvalidScheme) {
		t.Errorf("expected success with ErrInvalidScheme, got %v %v", res.Outcome, res.Err)
	}
	if ftp.Status() != models.StatusIdle {
		t.Errorf("expected untouched status, got %v", ftp.Status())
	}
	if *calls != 0 {
		t.Errorf("expected no fetches, got %d", *calls)
	}
}

func TestRefresh_UsesCanonicalStarredInstance(t *testing.T) {
	index := favorites.New()
	starred, _ := models.NewArticle("starred", "https://example.com/2")
	index.Add(starred)

	feed := newFeed(t)
	src, _ := scripted(step{payload: payloadOf("https://example.com/1", "http://example.com/2?utm=x")})
	New(src, index, WithBackOff(zeroBackOff)).Refresh(context.Background(), feed)

	got := feed.Find(starred.Identity())
	if got != starred {
		t.Fatal("expected feed to hold the canonical starred instance")
	}
	if !got.Starred() {
		t.Error("expected instance to be starred")
	}
}

func TestRefresh_RecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	feed := newFeed(t)
	src, _ := scripted(step{err: errBoom}, step{payload: payloadOf("https://example.com/1")})

	New(src, nil, WithBackOff(zeroBackOff), WithMetrics(m)).Refresh(context.Background(), feed)

	if got := testutil.ToFloat64(m.RefreshAttempts); got != 2 {
		t.Errorf("attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RefreshTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("success runs = %v, want 1", got)
	}
}

func TestOutcome_String(t *testing.T) {
	for o, want := range map[Outcome]string{Success: "success", Cancelled: "cancelled", Failed: "failed", Outcome(9): "outcome(9)"} {
		if o.String() != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(o), o.String(), want)
		}
	}
}
