// ABOUTME: Test suite for OPML parsing and writing
// ABOUTME: Covers folder flattening, duplicate detection, and round-trip integrity

package opml

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseOPML(t *testing.T) {
	opmlData := `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head>
    <title>My Feeds</title>
  </head>
  <body>
    <outline text="Tech News">
      <outline type="rss" text="Hacker News" xmlUrl="https://hnrss.org/frontpage" />
      <outline type="rss" text="TechCrunch" title="TechCrunch Daily" xmlUrl="https://techcrunch.com/feed/" />
    </outline>
    <outline type="rss" text="No Folder Feed" xmlUrl="https://example.com/feed" />
  </body>
</opml>`

	doc, err := Parse(bytes.NewBufferString(opmlData))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if doc.Title != "My Feeds" {
		t.Errorf("Title = %q, want %q", doc.Title, "My Feeds")
	}

	want := []Feed{
		{Title: "Hacker News", URL: "https://hnrss.org/frontpage"},
		{Title: "TechCrunch Daily", URL: "https://techcrunch.com/feed/"},
		{Title: "No Folder Feed", URL: "https://example.com/feed"},
	}
	if len(doc.Feeds) != len(want) {
		t.Fatalf("got %d feeds, want %d", len(doc.Feeds), len(want))
	}
	for i := range want {
		if doc.Feeds[i] != want[i] {
			t.Errorf("feed %d = %+v, want %+v", i, doc.Feeds[i], want[i])
		}
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse(strings.NewReader("not xml at all")); err == nil {
		t.Error("expected error for invalid OPML")
	}
}

func TestAddFeedDuplicate(t *testing.T) {
	doc := NewDocument("Feeds")
	if err := doc.AddFeed("https://example.com/feed", "Example"); err != nil {
		t.Fatalf("AddFeed() error = %v", err)
	}
	if err := doc.AddFeed("https://example.com/feed", "Again"); err == nil {
		t.Error("expected error for duplicate URL")
	}
	if !doc.Contains("https://example.com/feed") || doc.Contains("https://other.com") {
		t.Error("Contains() returned wrong result")
	}
}

func TestRoundTrip(t *testing.T) {
	doc := NewDocument("Round Trip")
	doc.AddFeed("https://b.example.com/rss", "B & Co")
	doc.AddFeed("https://a.example.com/rss", "A")

	data, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.HasPrefix(string(data), "<?xml") {
		t.Errorf("expected XML header, got %q", string(data[:20]))
	}

	path := filepath.Join(t.TempDir(), "feeds.opml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if parsed.Title != "Round Trip" || len(parsed.Feeds) != 2 {
		t.Fatalf("unexpected document %+v", parsed)
	}
	if parsed.Feeds[0].Title != "B & Co" || parsed.Feeds[1].URL != "https://a.example.com/rss" {
		t.Errorf("order or escaping lost: %+v", parsed.Feeds)
	}
}
