// ABOUTME: Charm KV byte store using the transactional Do API
// ABOUTME: Short-lived connections per operation, optional sync to the Charm server

package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
)

const (
	// SnapshotPrefix namespaces snapshot keys inside the kv database.
	SnapshotPrefix = "snapshot:"

	// DefaultCharmHost is used when CHARM_HOST is unset.
	DefaultCharmHost = "charm.2389.dev"

	// CharmDBName is the kv database name.
	CharmDBName = "feedsync"
)

// CharmStore keeps snapshots in a Charm kv database. It holds no open
// connection; each call opens the database, runs, and closes it.
type CharmStore struct {
	dbName   string
	autoSync bool
}

// NewCharmStore creates a store on the default database with sync enabled.
func NewCharmStore() *CharmStore {
	if os.Getenv("CHARM_HOST") == "" {
		os.Setenv("CHARM_HOST", DefaultCharmHost)
	}
	return &CharmStore{dbName: CharmDBName, autoSync: true}
}

// NewCharmStoreWithDBName creates a store on a specific database, for tests.
func NewCharmStoreWithDBName(dbName string, autoSync bool) *CharmStore {
	return &CharmStore{dbName: dbName, autoSync: autoSync}
}

func snapshotKey(name string) []byte {
	return []byte(SnapshotPrefix + name)
}

func (s *CharmStore) Save(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return kv.Do(s.dbName, func(k *kv.KV) error {
		if err := k.Set(snapshotKey(name), data); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
		if s.autoSync {
			return k.Sync()
		}
		return nil
	})
}

func (s *CharmStore) TryLoad(ctx context.Context, name string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var data []byte
	err := kv.DoReadOnly(s.dbName, func(k *kv.KV) error {
		got, err := k.Get(snapshotKey(name))
		if err != nil {
			return fmt.Errorf("get %s: %w", name, err)
		}
		data = got
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}
	return data, true, nil
}

// Sync manually triggers a sync with the Charm server.
func (s *CharmStore) Sync() error {
	return kv.Do(s.dbName, func(k *kv.KV) error {
		return k.Sync()
	})
}

// ID returns the user's Charm ID for status display.
func (s *CharmStore) ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", err
	}
	return cc.ID()
}
