// ABOUTME: Bundled default subscriptions used when no feed list has been saved
// ABOUTME: The list ships as an embedded OPML document

package collection

import (
	_ "embed"

	"github.com/harper/feedsync/internal/persist"
)

//go:embed defaults.opml
var defaultsOPML []byte

// DefaultFeeds returns the bundled subscription list.
func DefaultFeeds() []persist.FeedListEntry {
	snap, err := persist.DecodeFeedList(defaultsOPML)
	if err != nil {
		return nil
	}
	return snap.Feeds
}
