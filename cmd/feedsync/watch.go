// ABOUTME: Watch command that refreshes all feeds on an interval until interrupted
// ABOUTME: Optionally serves Prometheus refresh metrics over HTTP

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/harper/feedsync/internal/collection"
)

// DefaultWatchInterval is the pause between refresh rounds.
const DefaultWatchInterval = 15 * time.Minute

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Refresh feeds periodically",
	Long: `Refresh every feed now and then again on each interval until interrupted.

With --metrics-addr, refresh counters and durations are exposed in Prometheus
format at /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		if interval <= 0 {
			return fmt.Errorf("interval must be positive, got %s", interval)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		m, err := openCollection(ctx, false)
		if err != nil {
			return err
		}

		if metricsAddr != "" {
			srv := startMetricsServer(metricsAddr)
			defer func() {
				shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		fmt.Printf("Watching %d feed(s) every %s (Ctrl+C to stop)\n", len(m.Feeds()), interval)
		runWatch(ctx, m, interval)
		fmt.Println("Stopped watching")
		return nil
	},
}

// runWatch refreshes immediately and then on every tick until ctx ends.
func runWatch(ctx context.Context, m *collection.Manager, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		watchRound(ctx, m)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func watchRound(ctx context.Context, m *collection.Manager) {
	start := time.Now()
	results, err := m.RefreshAll(ctx)
	if err != nil {
		return
	}
	added, failed := 0, 0
	for _, r := range results {
		added += r.Added
		if r.Err != nil {
			failed++
		}
	}
	logger.Info("refresh round finished", "feeds", len(results), "added", added, "failed", failed, "took", time.Since(start).Round(time.Millisecond))
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationP("interval", "i", DefaultWatchInterval, "time between refresh rounds")
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
}
