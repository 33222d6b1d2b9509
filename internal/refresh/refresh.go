// ABOUTME: Refresh coordinator running bounded, supersedable fetches for a feed
// ABOUTME: Retries with backoff and commits only while its epoch is still current

package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/harper/feedsync/internal/identity"
	"github.com/harper/feedsync/internal/logging"
	"github.com/harper/feedsync/internal/metrics"
	"github.com/harper/feedsync/internal/models"
	"github.com/harper/feedsync/internal/parse"
	"github.com/harper/feedsync/internal/source"
)

const (
	DefaultAttempts       = 5
	DefaultAttemptTimeout = 20 * time.Second
)

var (
	// ErrFetchFailed is returned when every attempt of a run failed.
	ErrFetchFailed = errors.New("feed fetch failed")

	// ErrCancelled is returned when a run was cancelled or superseded.
	ErrCancelled = errors.New("refresh cancelled")
)

// Outcome is how a refresh run ended.
type Outcome int

const (
	Success Outcome = iota
	Cancelled
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result describes a finished run.
type Result struct {
	Outcome  Outcome
	Added    int // Articles appended to the feed
	Attempts int // Fetch attempts made
	Err      error
}

// Lookup resolves identities to canonical starred articles.
type Lookup interface {
	Lookup(identity.Identity) *models.Article
}

// Coordinator refreshes feeds from a Source.
type Coordinator struct {
	source         source.Source
	favorites      Lookup
	attempts       int
	attemptTimeout time.Duration
	newBackOff     func() backoff.BackOff
	metrics        *metrics.Metrics
	logger         *log.Logger
	now            func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithAttempts sets the fetch budget per run. Values below 1 are ignored.
func WithAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithAttemptTimeout bounds each individual fetch. Non-positive values are ignored.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

// WithBackOff sets the policy used between attempts. fn is called once per run.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Coordinator) { c.newBackOff = fn }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) { c.logger = logging.OrDiscard(l) }
}

// WithClock overrides the time source for lastSyncTime.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// DefaultBackOff waits a short, growing interval between attempts.
func DefaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0 // The attempt budget bounds the run
	return bo
}

// New creates a Coordinator. favorites may be nil when no index is in use.
func New(src source.Source, favorites Lookup, opts ...Option) *Coordinator {
	c := &Coordinator{
		source:         src,
		favorites:      favorites,
		attempts:       DefaultAttempts,
		attemptTimeout: DefaultAttemptTimeout,
		newBackOff:     DefaultBackOff,
		logger:         logging.Discard(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh fetches the feed and merges new articles into it. Starting a refresh
// supersedes any refresh of the same feed still in flight.
func (c *Coordinator) Refresh(ctx context.Context, feed *models.Feed) Result {
	if feed.IsFavorites {
		return Result{Outcome: Success}
	}
	if !feed.HasHTTPScheme() {
		return Result{Outcome: Success, Err: models.ErrInvalidScheme}
	}

	start := time.Now()
	runCtx, epoch := feed.BeginRefresh(ctx)
	res := c.run(runCtx, feed, epoch)
	c.metrics.RecordRefresh(res.Outcome.String(), time.Since(start))
	return res
}

func (c *Coordinator) run(ctx context.Context, feed *models.Feed, epoch uint64) Result {
	logger := c.logger.With("feed", feed.Link())
	attempts := 0

	fetchOnce := func() (*parse.Payload, error) {
		if ctx.Err() != nil || !feed.IsCurrent(epoch) {
			return nil, backoff.Permanent(ErrCancelled)
		}
		attempts++
		c.metrics.RecordAttempt()

		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
		payload, err := c.source.Fetch(attemptCtx, feed.Link())
		if err != nil {
			logger.Debug("fetch attempt failed", "attempt", attempts, "err", err)
			return nil, err
		}
		return payload, nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.attempts-1)), ctx)
	payload, err := backoff.RetryWithData(fetchOnce, policy)
	if err != nil {
		if errors.Is(err, ErrCancelled) || ctx.Err() != nil || !feed.IsCurrent(epoch) {
			feed.Abandon(epoch)
			return Result{Outcome: Cancelled, Attempts: attempts, Err: ErrCancelled}
		}
		if !feed.Fail(epoch) {
			return Result{Outcome: Cancelled, Attempts: attempts, Err: ErrCancelled}
		}
		logger.Warn("feed refresh failed", "attempts", attempts, "err", err)
		return Result{Outcome: Failed, Attempts: attempts, Err: fmt.Errorf("%w after %d attempts: %w", ErrFetchFailed, attempts, err)}
	}

	meta, articles := Normalize(payload)
	var lookup models.LookupFunc
	if c.favorites != nil {
		lookup = c.favorites.Lookup
	}
	added, ok := feed.Commit(epoch, meta, articles, lookup, c.now())
	if !ok {
		return Result{Outcome: Cancelled, Attempts: attempts, Err: ErrCancelled}
	}
	logger.Debug("feed refreshed", "added", added, "attempts", attempts)
	return Result{Outcome: Success, Added: added, Attempts: attempts}
}
