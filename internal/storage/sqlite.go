package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	// SQLite driver - imported for side effects (registers the driver).
	// modernc.org/sqlite is pure Go, so the binary builds without CGO.
	_ "modernc.org/sqlite"

	"github.com/kspeckhals01/browser-tab-manager/internal/logging"
)

// SQLiteStore implements KV using a single SQLite table.
// It creates the database and tables on first use and serializes
// access through internal locking.
type SQLiteStore struct {
	db     *sql.DB      // Database connection handle.
	mu     sync.RWMutex // Guards all database operations.
	logger *zap.Logger
	closed bool
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// Use ":memory:" for an in-memory database (useful for testing).
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	logger = logging.OrNop(logger).Named("storage")
	logger.Debug("opening database", zap.String("path", path), zap.String("engine", EngineSQLite))

	// busy_timeout covers the CLI and a running bridge touching the same file.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: ":memory:" databases are per-connection, and the
	// store serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, logger: logger}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	logger.Debug("database ready", zap.Int("schema_version", currentSchemaVersion))
	return store, nil
}

// Get returns the stored values for keys.
func (s *SQLiteStore) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	query := "SELECT key, value FROM kv WHERE key IN (" + placeholders(len(keys)) + ")"
	rows, err := s.db.QueryContext(ctx, query, stringArgs(keys)...)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}

	return out, nil
}

// Set upserts all entries in a single transaction.
func (s *SQLiteStore) Set(ctx context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for key, value := range entries {
		if _, err := stmt.ExecContext(ctx, key, value, now); err != nil {
			return fmt.Errorf("upsert %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Remove deletes keys. Keys that do not exist are ignored.
func (s *SQLiteStore) Remove(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if len(keys) == 0 {
		return nil
	}

	query := "DELETE FROM kv WHERE key IN (" + placeholders(len(keys)) + ")"
	if _, err := s.db.ExecContext(ctx, query, stringArgs(keys)...); err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("closing database")
	return s.db.Close()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(keys []string) []any {
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return args
}
