// ABOUTME: Feed discovery for the add-feed flow, resolving a site URL to its RSS/Atom feed
// ABOUTME: Tries the URL as a feed, then HTML alternate links, then well-known feed paths

package discover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/harper/feedsync/internal/fetch"
	"github.com/harper/feedsync/internal/parse"
)

// Well-known feed locations, tried in order.
var commonFeedPaths = []string{
	"/feed.xml",
	"/feed",
	"/rss.xml",
	"/rss",
	"/atom.xml",
	"/atom",
	"/index.xml",
	"/feed/rss",
	"/feed/atom",
	"/feeds/posts/default",
}

var (
	ErrNoFeedFound = errors.New("no RSS/Atom feed found at URL")
	ErrInvalidURL  = errors.New("invalid URL")
)

// Candidate is a feed found during discovery.
type Candidate struct {
	URL   string // Absolute feed URL
	Title string // From the feed itself, else from the HTML link element
}

// Discoverer locates feeds using a shared fetcher.
type Discoverer struct {
	fetcher *fetch.Fetcher
}

// New creates a Discoverer. A nil fetcher gets the defaults.
func New(fetcher *fetch.Fetcher) *Discoverer {
	if fetcher == nil {
		fetcher = fetch.New()
	}
	return &Discoverer{fetcher: fetcher}
}

// Discover resolves inputURL to a feed. A URL that already is a feed is
// returned as is; otherwise the page's alternate links are verified in
// document order, then the common paths of its host are tried.
func (d *Discoverer) Discover(ctx context.Context, inputURL string) (*Candidate, error) {
	base, err := url.Parse(inputURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: missing scheme or host", ErrInvalidURL)
	}

	found, body, err := d.tryFeed(ctx, inputURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	if found != nil {
		return found, nil
	}

	for _, link := range alternateLinks(body, base) {
		verified, _, err := d.tryFeed(ctx, link.URL)
		if err != nil || verified == nil {
			continue
		}
		if verified.Title == "" {
			verified.Title = link.Title
		}
		return verified, nil
	}

	rootBase := url.URL{Scheme: base.Scheme, Host: base.Host}
	for _, path := range commonFeedPaths {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		found, _, err := d.tryFeed(ctx, rootBase.String()+path)
		if err == nil && found != nil {
			return found, nil
		}
	}
	return nil, ErrNoFeedFound
}

// tryFeed fetches feedURL and parses it. A body that is not a feed yields a
// nil candidate and no error, and is returned for link extraction.
func (d *Discoverer) tryFeed(ctx context.Context, feedURL string) (*Candidate, []byte, error) {
	body, err := d.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, nil, err
	}
	payload, err := parse.Parse(body)
	if err != nil {
		return nil, body, nil //nolint:nilerr // not a feed
	}
	return &Candidate{URL: feedURL, Title: payload.Title}, body, nil
}

// alternateLinks returns the feed links a page advertises with
// <link rel="alternate">, resolved against base.
func alternateLinks(page []byte, base *url.URL) []Candidate {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil
	}

	var links []Candidate
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "link" {
			var rel, linkType, href, title string
			for _, attr := range n.Attr {
				switch strings.ToLower(attr.Key) {
				case "rel":
					rel = attr.Val
				case "type":
					linkType = attr.Val
				case "href":
					href = strings.TrimSpace(attr.Val)
				case "title":
					title = attr.Val
				}
			}
			if hasToken(rel, "alternate") && isFeedContentType(linkType) && href != "" {
				if ref, err := url.Parse(href); err == nil {
					links = append(links, Candidate{URL: base.ResolveReference(ref).String(), Title: title})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

// hasToken reports whether the space-separated attribute value contains token.
func hasToken(value, token string) bool {
	for _, field := range strings.Fields(value) {
		if strings.EqualFold(field, token) {
			return true
		}
	}
	return false
}

// isFeedContentType checks if the content type indicates a feed
func isFeedContentType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "rss") ||
		strings.Contains(contentType, "atom") ||
		strings.Contains(contentType, "xml")
}
