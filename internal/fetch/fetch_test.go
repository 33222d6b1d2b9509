// ABOUTME: Tests for the HTTP feed fetcher and per-host limiter.
// ABOUTME: Uses httptest to simulate server responses and slow hosts.

package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harper/feedsync/internal/fetch"
)

func TestFetch_OK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != fetch.DefaultUserAgent {
			t.Errorf("expected User-Agent %q, got %q", fetch.DefaultUserAgent, ua)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<rss>test content</rss>"))
	}))
	defer server.Close()

	body, err := fetch.New().Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "<rss>test content</rss>" {
		t.Errorf("expected body '<rss>test content</rss>', got %q", string(body))
	}
}

func TestFetch_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Not Found"))
	}))
	defer server.Close()

	body, err := fetch.New().Fetch(context.Background(), server.URL)
	var statusErr *fetch.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", statusErr.Code)
	}
	if body != nil {
		t.Errorf("expected nil body for error case, got %q", body)
	}
}

func TestFetch_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", fetch.MaxResponseSize+1)))
	}))
	defer server.Close()

	if _, err := fetch.New().Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for oversized response")
	}
}

func TestFetch_ContextTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := fetch.New().Fetch(ctx, server.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestHostLimiter_SpacesRequests(t *testing.T) {
	limiter := fetch.NewHostLimiter(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx, "Example.com"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Errorf("expected requests to be spaced, took %v", elapsed)
	}

	// A different host has its own bucket
	start = time.Now()
	if err := limiter.Wait(ctx, "other.example.com"); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 30*time.Millisecond {
		t.Errorf("expected first request to another host to pass immediately, took %v", elapsed)
	}
}

func TestHostLimiter_Cancelled(t *testing.T) {
	limiter := fetch.NewHostLimiter(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	if err := limiter.Wait(ctx, "example.com"); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	cancel()
	if err := limiter.Wait(ctx, "example.com"); err == nil {
		t.Error("expected cancelled wait to fail")
	}
}

func TestHostLimiter_Disabled(t *testing.T) {
	limiter := fetch.NewHostLimiter(0)
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(context.Background(), "example.com"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
}
