// ABOUTME: RSS/Atom feed parsing using gofeed library
// ABOUTME: Converts gofeed.Feed into a Payload of feed metadata and raw items

package parse

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Payload is a parsed feed response before normalization into articles.
type Payload struct {
	Title    string
	Subtitle string
	Items    []Item
}

// Item is one entry of a feed. Summary and Content may hold HTML.
type Item struct {
	Title       string
	Summary     string
	Content     string
	Link        string
	Links       []string // Alternate links, in document order
	Authors     []string
	PublishedAt *time.Time
}

// Parse parses RSS, Atom or JSON feed data into a Payload
func Parse(data []byte) (*Payload, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	payload := &Payload{
		Title:    strings.TrimSpace(feed.Title),
		Subtitle: strings.TrimSpace(feed.Description),
		Items:    make([]Item, 0, len(feed.Items)),
	}

	for _, it := range feed.Items {
		item := Item{
			Title:   strings.TrimSpace(it.Title),
			Link:    strings.TrimSpace(it.Link),
			Links:   it.Links,
			Summary: strings.TrimSpace(it.Description),
			Content: strings.TrimSpace(it.Content),
		}

		// Feeds that only ship one of the two fields use it for both
		if item.Summary == "" {
			item.Summary = item.Content
		}
		if item.Content == "" {
			item.Content = item.Summary
		}

		for _, person := range authorsOf(it) {
			name := strings.TrimSpace(person.Name)
			if name == "" {
				name = strings.TrimSpace(person.Email)
			}
			if name != "" {
				item.Authors = append(item.Authors, name)
			}
		}

		// Use PublishedParsed or fallback to UpdatedParsed
		if it.PublishedParsed != nil {
			item.PublishedAt = it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			item.PublishedAt = it.UpdatedParsed
		}

		payload.Items = append(payload.Items, item)
	}

	return payload, nil
}

func authorsOf(it *gofeed.Item) []*gofeed.Person {
	if len(it.Authors) > 0 {
		return it.Authors
	}
	if it.Author != nil {
		return []*gofeed.Person{it.Author}
	}
	return nil
}
