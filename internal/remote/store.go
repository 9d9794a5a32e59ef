// Package remote implements the cloud store for sessions, groups and user
// profiles on PostgreSQL.
//
// Every query is filtered on the owning user. The store never retries and
// adds no timeouts of its own; callers bound work through ctx. An optional
// client-side rate limiter spaces out round trips.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kspeckhals01/browser-tab-manager/internal/logging"
)

// ErrDuplicateName is returned when the owner already has a record with the
// requested name.
var ErrDuplicateName = errors.New("name already in use")

// ErrNotFound is returned when the owner has no record with the requested name.
var ErrNotFound = errors.New("record not found")

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Store is the PostgreSQL-backed remote store.
type Store struct {
	pool    *pgxpool.Pool
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithRateLimit caps round trips at perSecond with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Store) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// New returns a Store using an existing pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger).Named("remote")
	return s
}

// Open connects to the database at dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool, opts...), nil
}

// Pool exposes the underlying pool for schema migrations.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// wait blocks until the rate limiter admits one more round trip.
func (s *Store) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
