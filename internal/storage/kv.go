// Package storage provides the on-device key-value store that backs the
// local session/group collections and the cached identity.
//
// Two engines implement the same KV contract: SQLiteStore (the default) and
// BoltStore. Values are opaque byte slices; callers own the encoding.
// Each call is atomic on its own but there are no transactions spanning
// calls, so read-modify-write sequences are last-write-wins.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("store closed")

// KV is the key-value contract shared by the local store engines.
type KV interface {
	// Get returns the values for the requested keys. Missing keys are
	// simply absent from the returned map.
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)

	// Set writes every entry in one atomic step.
	Set(ctx context.Context, entries map[string][]byte) error

	// Remove deletes the given keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error

	// Close releases the underlying database.
	Close() error
}

// Engine names accepted by Open.
const (
	EngineSQLite = "sqlite"
	EngineBolt   = "bolt"
)

// Open opens the key-value store at path with the named engine.
// An empty engine selects SQLite.
func Open(engine, path string, logger *zap.Logger) (KV, error) {
	switch strings.ToLower(engine) {
	case "", EngineSQLite:
		return NewSQLiteStore(path, logger)
	case EngineBolt:
		return NewBoltStore(path, logger)
	default:
		return nil, fmt.Errorf("unknown storage engine %q", engine)
	}
}
