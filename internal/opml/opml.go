// ABOUTME: OPML reading and writing for the ordered feed subscription list
// ABOUTME: Nested folders are flattened in document order on read; writes are flat OPML 2.0

package opml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// Document is an ordered list of feed subscriptions.
type Document struct {
	Title string
	Feeds []Feed
}

// Feed is a single subscription.
type Feed struct {
	Title string
	URL   string
}

// XML structs for parsing and writing OPML files
type opmlXML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    headXML  `xml:"head"`
	Body    bodyXML  `xml:"body"`
}

type headXML struct {
	Title string `xml:"title"`
}

type bodyXML struct {
	Outlines []outlineXML `xml:"outline"`
}

type outlineXML struct {
	Text     string       `xml:"text,attr"`
	Title    string       `xml:"title,attr,omitempty"`
	Type     string       `xml:"type,attr,omitempty"`
	XMLURL   string       `xml:"xmlUrl,attr,omitempty"`
	Children []outlineXML `xml:"outline,omitempty"`
}

// NewDocument creates a new empty OPML document with the given title
func NewDocument(title string) *Document {
	return &Document{Title: title}
}

// Parse reads OPML data from an io.Reader and returns a Document
func Parse(r io.Reader) (*Document, error) {
	var opml opmlXML
	if err := xml.NewDecoder(r).Decode(&opml); err != nil {
		return nil, fmt.Errorf("failed to decode OPML: %w", err)
	}

	doc := &Document{Title: opml.Head.Title}
	for _, outline := range opml.Body.Outlines {
		doc.Feeds = append(doc.Feeds, collectFeeds(outline)...)
	}
	return doc, nil
}

// ParseFile reads OPML data from a file and returns a Document
func ParseFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Contains reports whether a feed with url is present.
func (d *Document) Contains(url string) bool {
	for _, f := range d.Feeds {
		if f.URL == url {
			return true
		}
	}
	return false
}

// AddFeed appends a feed. Returns an error if a feed with the same URL already exists
func (d *Document) AddFeed(url, title string) error {
	if d.Contains(url) {
		return fmt.Errorf("feed with URL %s already exists", url)
	}
	d.Feeds = append(d.Feeds, Feed{Title: title, URL: url})
	return nil
}

// Write writes the OPML document to an io.Writer
func (d *Document) Write(w io.Writer) error {
	opml := opmlXML{
		Version: "2.0",
		Head:    headXML{Title: d.Title},
		Body:    bodyXML{Outlines: make([]outlineXML, len(d.Feeds))},
	}
	for i, f := range d.Feeds {
		opml.Body.Outlines[i] = outlineXML{Text: f.Title, Title: f.Title, Type: "rss", XMLURL: f.URL}
	}

	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(opml); err != nil {
		return fmt.Errorf("failed to encode OPML: %w", err)
	}
	return nil
}

// Marshal renders the document as bytes.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func collectFeeds(outline outlineXML) []Feed {
	var feeds []Feed
	if outline.XMLURL != "" {
		title := outline.Title
		if title == "" {
			title = outline.Text
		}
		feeds = append(feeds, Feed{Title: title, URL: outline.XMLURL})
	}
	for _, child := range outline.Children {
		feeds = append(feeds, collectFeeds(child)...)
	}
	return feeds
}
