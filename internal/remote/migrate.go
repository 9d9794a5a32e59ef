package remote

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/kspeckhals01/browser-tab-manager/internal/logging"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies every pending schema migration to the database behind pool
// and returns the version it ends at.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (int64, error) {
	logger = logging.OrNop(logger).Named("remote")

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	fsys, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("migrations sub-fs: %w", err)
	}

	// Each SQL migration runs in its own transaction, so a failed statement
	// leaves goose_db_version unchanged.
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return 0, fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		logger.Info("applied migration",
			zap.Int64("version", r.Source.Version),
			zap.Duration("duration", r.Duration))
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
