// ABOUTME: Feed source abstraction returning parsed payloads for a feed URI
// ABOUTME: The HTTP source combines the fetcher with the gofeed-based parser

package source

import (
	"context"
	"fmt"

	"github.com/harper/feedsync/internal/fetch"
	"github.com/harper/feedsync/internal/parse"
)

// Source retrieves and parses the document behind a feed URI.
type Source interface {
	Fetch(ctx context.Context, uri string) (*parse.Payload, error)
}

// Func adapts an ordinary function to the Source interface.
type Func func(ctx context.Context, uri string) (*parse.Payload, error)

func (f Func) Fetch(ctx context.Context, uri string) (*parse.Payload, error) {
	return f(ctx, uri)
}

// HTTP fetches feeds over the network.
type HTTP struct {
	fetcher *fetch.Fetcher
}

// NewHTTP creates an HTTP source. A nil fetcher gets the defaults.
func NewHTTP(fetcher *fetch.Fetcher) *HTTP {
	if fetcher == nil {
		fetcher = fetch.New()
	}
	return &HTTP{fetcher: fetcher}
}

func (h *HTTP) Fetch(ctx context.Context, uri string) (*parse.Payload, error) {
	body, err := h.fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	payload, err := parse.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", uri, err)
	}
	return payload, nil
}
