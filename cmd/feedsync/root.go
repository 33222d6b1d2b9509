// ABOUTME: Root Cobra command and global flags
// ABOUTME: Loads config, opens the snapshot store, and builds the feed collection for subcommands

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/harper/feedsync/internal/collection"
	"github.com/harper/feedsync/internal/config"
	"github.com/harper/feedsync/internal/discover"
	"github.com/harper/feedsync/internal/favorites"
	"github.com/harper/feedsync/internal/fetch"
	"github.com/harper/feedsync/internal/logging"
	"github.com/harper/feedsync/internal/metrics"
	"github.com/harper/feedsync/internal/persist"
	"github.com/harper/feedsync/internal/refresh"
	"github.com/harper/feedsync/internal/source"
	"github.com/harper/feedsync/internal/storage"
)

// annotationStandalone marks commands that manage config or storage themselves.
const annotationStandalone = "standalone"

var (
	logLevel string

	cfg    *config.Config
	logger = logging.Discard()
	store  storage.ByteStore

	registry = prometheus.NewRegistry()

	refreshMetrics = sync.OnceValue(func() *metrics.Metrics {
		return metrics.New(registry)
	})
)

var rootCmd = &cobra.Command{
	Use:   "feedsync",
	Short: "RSS/Atom feed reader with favorites and MCP integration",
	Long: `
███████╗███████╗███████╗██████╗ ███████╗██╗   ██╗███╗   ██╗ ██████╗
██╔════╝██╔════╝██╔════╝██╔══██╗██╔════╝╚██╗ ██╔╝████╗  ██║██╔════╝
█████╗  █████╗  █████╗  ██║  ██║███████╗ ╚████╔╝ ██╔██╗ ██║██║
██╔══╝  ██╔══╝  ██╔══╝  ██║  ██║╚════██║  ╚██╔╝  ██║╚██╗██║██║
██║     ███████╗███████╗██████╔╝███████║   ██║   ██║ ╚████║╚██████╗
╚═╝     ╚══════╝╚══════╝╚═════╝ ╚══════╝   ╚═╝   ╚═╝  ╚═══╝ ╚═════╝

RSS/Atom feed reader for humans and AI agents.

Subscribe to feeds, refresh them with retries, star articles into
Favorites, and expose everything over MCP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[annotationStandalone] == "true" {
			return nil
		}
		return openStore()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeStore()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)")
}

func loadConfig() (*config.Config, error) {
	c, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level := c.GetLogLevel()
	if logLevel != "" {
		level = logLevel
	}
	logger = logging.New(os.Stderr, level)
	return c, nil
}

func openStore() error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return err
	}
	store, err = cfg.OpenStore()
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.GetBackend(), err)
	}
	logger.Debug("storage opened", "backend", cfg.GetBackend(), "dir", cfg.GetDataDir())
	return nil
}

func closeStore() error {
	if store == nil {
		return nil
	}
	err := storage.Close(store)
	store = nil
	if err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}

func newFetcher() *fetch.Fetcher {
	return fetch.New(
		fetch.WithClient(&http.Client{Timeout: config.DefaultHTTPTimeout}),
		fetch.WithHostLimiter(fetch.NewHostLimiter(cfg.GetHostInterval())),
	)
}

func newDiscoverer() *discover.Discoverer {
	return discover.New(newFetcher())
}

// openCollection restores the feed collection from the store. With
// refreshOnStart every feed is fetched before it returns.
func openCollection(ctx context.Context, refreshOnStart bool) (*collection.Manager, error) {
	index := favorites.New()
	coord := refresh.New(source.NewHTTP(newFetcher()), index,
		refresh.WithAttempts(cfg.GetRefreshAttempts()),
		refresh.WithAttemptTimeout(cfg.GetAttemptTimeout()),
		refresh.WithLogger(logger),
		refresh.WithMetrics(refreshMetrics()),
	)

	opts := []collection.Option{
		collection.WithLogger(logger),
		collection.WithMaxConcurrent(cfg.GetMaxConcurrentRefreshes()),
	}
	if !refreshOnStart {
		opts = append(opts, collection.WithoutInitialRefresh())
	}

	m := collection.New(index, coord, persist.New(store, logger), opts...)
	if err := m.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to load feeds: %w", err)
	}
	if refreshOnStart {
		m.Wait()
	}
	return m, nil
}
