// ABOUTME: Tests for the Charm KV byte store
// ABOUTME: Uses real local KV storage with sync disabled for fast, isolated tests

//go:build !race

package storage

import (
	"context"
	"testing"
)

func newTestCharmStore(t *testing.T) *CharmStore {
	t.Helper()
	t.Setenv("CHARM_DATA_DIR", t.TempDir())
	return NewCharmStoreWithDBName("feedsync-test-"+t.Name(), false)
}

func TestCharmStore_SaveAndLoad(t *testing.T) {
	store := newTestCharmStore(t)
	ctx := context.Background()

	if _, ok, err := store.TryLoad(ctx, "feeds.opml"); err != nil || ok {
		t.Fatalf("expected missing snapshot, got ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, "feeds.opml", []byte("<opml/>")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, ok, err := store.TryLoad(ctx, "feeds.opml")
	if err != nil || !ok || string(data) != "<opml/>" {
		t.Errorf("TryLoad = %q, %v, %v", data, ok, err)
	}
}
