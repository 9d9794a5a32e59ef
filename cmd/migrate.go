package main

import (
	"context"
	"fmt"
	"io"

	"github.com/kspeckhals01/browser-tab-manager/internal/config"
	"github.com/kspeckhals01/browser-tab-manager/internal/logging"
	"github.com/kspeckhals01/browser-tab-manager/internal/model"
	"github.com/kspeckhals01/browser-tab-manager/internal/remote"
)

// runMigrate moves local groups to the cloud for a pro user. Any pro
// resolution already does this; the command reports the outcome and is the
// explicit retry after a partial failure.
func runMigrate(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("migrate", "migrate [options]\n\nMove local tab groups to the cloud.", stderr)
	if _, code, ok := parseFlags(fs, args); !ok {
		return code
	}

	return withRuntime(*configPath, stderr, func(ctx context.Context, rt *runtime) int {
		if rt.watcher == nil {
			fmt.Fprintln(stderr, "Error: cloud storage is not configured (set remote_dsn)")
			return 1
		}

		state := rt.resolver().Resolve(ctx)
		if state.Tier != model.TierPro {
			fmt.Fprintf(stderr, "Error: moving groups to the cloud requires a pro account (current tier: %s)\n", state.Tier)
			return 1
		}

		report, err := rt.watcher.Last()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if report.Migrated+report.Skipped == 0 {
			fmt.Fprintln(stdout, "No local groups to move.")
			return 0
		}
		printReport(stdout, report.Migrated, report.Skipped)
		return 0
	})
}

// runDBMigrate applies the cloud schema. It only needs the remote DSN, so the
// local store is not opened.
func runDBMigrate(args []string, stdout, stderr io.Writer) int {
	fs, configPath := newFlagSet("db migrate", "db migrate [options]\n\nApply pending PostgreSQL schema migrations.", stderr)
	if _, code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if !cfg.RemoteEnabled() || cfg.RemoteDSN == config.MemoryDSN {
		fmt.Fprintln(stderr, "Error: db migrate needs a PostgreSQL remote_dsn")
		return 1
	}

	logger, err := logging.New(cfg.LogLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx := context.Background()
	store, err := remote.Open(ctx, cfg.RemoteDSN, remote.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to connect to cloud store: %v\n", err)
		return 1
	}
	defer store.Close()

	version, err := remote.Migrate(ctx, store.Pool(), logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Schema at version %d\n", version)
	return 0
}
