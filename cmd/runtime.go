package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/kspeckhals01/browser-tab-manager/internal/adapter"
	"github.com/kspeckhals01/browser-tab-manager/internal/config"
	"github.com/kspeckhals01/browser-tab-manager/internal/entitlement"
	"github.com/kspeckhals01/browser-tab-manager/internal/identity"
	"github.com/kspeckhals01/browser-tab-manager/internal/local"
	"github.com/kspeckhals01/browser-tab-manager/internal/logging"
	"github.com/kspeckhals01/browser-tab-manager/internal/migrate"
	"github.com/kspeckhals01/browser-tab-manager/internal/model"
	"github.com/kspeckhals01/browser-tab-manager/internal/remote"
	"github.com/kspeckhals01/browser-tab-manager/internal/storage"
)

// remoteBackend is what the CLI needs from a cloud store: the adapter
// contract plus profile writes and shutdown.
type remoteBackend interface {
	adapter.RemoteStore
	UpsertProfile(ctx context.Context, p model.UserProfile) error
	Close() error
}

// openRemote connects to the cloud store named by cfg. Tests replace it.
var openRemote = func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (remoteBackend, error) {
	if cfg.RemoteDSN == config.MemoryDSN {
		return remote.NewMemoryStore(), nil
	}
	store, err := remote.Open(ctx, cfg.RemoteDSN,
		remote.WithLogger(logger),
		remote.WithRateLimit(cfg.RemoteRateLimit, cfg.RemoteBurst))
	if err != nil {
		return nil, err
	}
	return store, nil
}

// runtime holds everything a command needs, wired from one config file.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	kv     storage.KV
	ids    *identity.Cache
	local  *local.Store
	remote remoteBackend // nil when no cloud backend is configured

	// watcher resolves tiers and moves leftover local groups to the cloud
	// for pro users. nil without a cloud store.
	watcher *migrate.Watcher
}

// loadConfig reads, overrides and validates the config at path.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openRuntime loads the config and opens the local and, if configured,
// remote stores.
func openRuntime(ctx context.Context, configPath string, stderr io.Writer) (*runtime, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, stderr)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LocalStore), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	kv, err := storage.Open(cfg.LocalBackend, cfg.LocalStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	rt := &runtime{
		cfg:    cfg,
		logger: logger,
		kv:     kv,
		ids:    identity.NewCache(kv),
		local:  local.New(kv, local.WithLogger(logger)),
	}

	if cfg.RemoteEnabled() {
		rs, err := openRemote(ctx, cfg, logger)
		if err != nil {
			kv.Close()
			return nil, fmt.Errorf("failed to connect to cloud store: %w", err)
		}
		rt.remote = rs
		rt.watcher = migrate.NewWatcher(rt.baseResolver(), migrate.New(rt.local, rs, logger))
	}

	return rt, nil
}

// Close releases the stores.
func (rt *runtime) Close() {
	if rt.remote != nil {
		if err := rt.remote.Close(); err != nil {
			rt.logger.Warn("failed to close cloud store", zap.Error(err))
		}
	}
	if err := rt.kv.Close(); err != nil {
		rt.logger.Warn("failed to close local store", zap.Error(err))
	}
	rt.logger.Sync()
}

// remoteStore returns the cloud store as an adapter.RemoteStore, or a nil
// interface when none is configured.
func (rt *runtime) remoteStore() adapter.RemoteStore {
	if rt.remote == nil {
		return nil
	}
	return rt.remote
}

// baseResolver builds an entitlement resolver over the cached identity.
func (rt *runtime) baseResolver() *entitlement.Resolver {
	var profiles entitlement.ProfileSource
	if rt.remote != nil {
		profiles = rt.remote
	}
	return entitlement.NewResolver(rt.ids, profiles, entitlement.WithLogger(rt.logger))
}

// resolver is the tier resolver every command and bridge request goes
// through. With a cloud store it migrates pending local groups for pro users.
func (rt *runtime) resolver() adapter.TierResolver {
	if rt.watcher != nil {
		return rt.watcher
	}
	return rt.baseResolver()
}

// adapter resolves the tier and returns an adapter bound to it.
func (rt *runtime) adapter(ctx context.Context) (*adapter.Adapter, error) {
	return adapter.New(ctx, rt.resolver(), rt.local, rt.remoteStore(),
		adapter.WithLogger(rt.logger),
		adapter.WithLimits(rt.cfg.FreeSessionLimit, rt.cfg.FreeGroupLimit))
}

// newFlagSet creates a flag set with the shared --config flag.
func newFlagSet(name, synopsis string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to config file (default: ~/.tabvana/config.toml)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: tabvana %s\n\nOptions:\n", synopsis)
		fs.PrintDefaults()
	}
	return fs, configPath
}

// parseFlags parses args, allowing flags after positional arguments, and
// returns the positionals. ok is false when parsing ended the command (help
// or a bad flag); code is then the exit code to use.
func parseFlags(fs *flag.FlagSet, args []string) (positional []string, code int, ok bool) {
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, 0, false
			}
			return nil, 1, false
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, 0, true
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

// withRuntime opens a runtime, runs fn and closes it.
func withRuntime(configPath string, stderr io.Writer, fn func(ctx context.Context, rt *runtime) int) int {
	ctx := context.Background()
	rt, err := openRuntime(ctx, configPath, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer rt.Close()
	return fn(ctx, rt)
}
