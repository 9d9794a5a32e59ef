package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"

	"github.com/kspeckhals01/browser-tab-manager/internal/logging"
)

// boltBucket holds every key; the local store has no need for nesting.
var boltBucket = []byte("tabvana")

// BoltStore implements KV on a BoltDB file.
type BoltStore struct {
	db     *bolt.DB
	logger *zap.Logger
}

// NewBoltStore opens or creates a Bolt database at path.
// Opening fails after one second if another process holds the file lock.
func NewBoltStore(path string, logger *zap.Logger) (*BoltStore, error) {
	logger = logging.OrNop(logger).Named("storage")
	logger.Debug("opening database", zap.String("path", path), zap.String("engine", EngineBolt))

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltStore{db: db, logger: logger}, nil
}

// Get returns copies of the stored values for keys.
// Bolt does not support mid-flight cancellation, so ctx is only checked up front.
func (b *BoltStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(keys))
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return fmt.Errorf("bucket %q not found", boltBucket)
		}
		for _, key := range keys {
			v := bucket.Get([]byte(key))
			if v == nil {
				continue
			}
			// Values are only valid for the life of the transaction.
			out[key] = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return out, nil
}

// Set writes all entries in one Bolt transaction.
func (b *BoltStore) Set(ctx context.Context, entries map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return fmt.Errorf("bucket %q not found", boltBucket)
		}
		for key, value := range entries {
			if err := bucket.Put([]byte(key), value); err != nil {
				return fmt.Errorf("put %s: %w", key, err)
			}
		}
		return nil
	})
	return b.wrap(err)
}

// Remove deletes keys. Missing keys are ignored.
func (b *BoltStore) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return fmt.Errorf("bucket %q not found", boltBucket)
		}
		for _, key := range keys {
			if err := bucket.Delete([]byte(key)); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}
		return nil
	})
	return b.wrap(err)
}

// Close releases the file lock.
func (b *BoltStore) Close() error {
	b.logger.Debug("closing database")
	return b.db.Close()
}

func (b *BoltStore) wrap(err error) error {
	if err == bolt.ErrDatabaseNotOpen {
		return ErrClosed
	}
	return err
}
