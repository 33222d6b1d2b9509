// ABOUTME: Tests for the HTTP feed source
// ABOUTME: Serves feeds from httptest and checks fetch and parse errors surface

package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harper/feedsync/internal/parse"
)

const rssBody = `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Served Feed</title>
  <description>From httptest</description>
  <item><title>One</title><link>https://example.com/1</link><description>first</description></item>
  <item><title>Two</title><link>https://example.com/2</link><description>second</description></item>
</channel></rss>`

func TestHTTP_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssBody))
	}))
	defer server.Close()

	payload, err := NewHTTP(nil).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if payload.Title != "Served Feed" || payload.Subtitle != "From httptest" {
		t.Errorf("unexpected metadata %q / %q", payload.Title, payload.Subtitle)
	}
	if len(payload.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(payload.Items))
	}
}

func TestHTTP_FetchNotAFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer server.Close()

	if _, err := NewHTTP(nil).Fetch(context.Background(), server.URL); err == nil {
		t.Error("expected parse error for an HTML page")
	}
}

func TestHTTP_FetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	if _, err := NewHTTP(nil).Fetch(context.Background(), server.URL); err == nil {
		t.Error("expected error for 502 response")
	}
}

func TestFunc_Adapter(t *testing.T) {
	var src Source = Func(func(ctx context.Context, uri string) (*parse.Payload, error) {
		return &parse.Payload{Title: uri}, nil
	})
	payload, err := src.Fetch(context.Background(), "https://example.com/feed")
	if err != nil || payload.Title != "https://example.com/feed" {
		t.Errorf("unexpected result %v, %v", payload, err)
	}
}
