// Package adapter is the single entry point for session and group storage.
//
// An Adapter resolves the user's tier once, at construction, and routes every
// operation to the local store, the remote store, or both:
//
//	tier     reads            saves    rename / remove-tab
//	pro      remote           remote   remote
//	expired  remote + local   local    remote
//	free     local            local    local
//
// Callers build a new Adapter to observe a tier change.
//
// Every operation returns a Go error for backend failures. Mutations also
// return a model.Result; domain outcomes such as duplicate, limit and
// not_found come back with a nil error, while a backend failure comes back
// as model.ResultError with a coded error from internal/errors.
package adapter

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kspeckhals01/browser-tab-manager/internal/entitlement"
	apperrors "github.com/kspeckhals01/browser-tab-manager/internal/errors"
	"github.com/kspeckhals01/browser-tab-manager/internal/local"
	"github.com/kspeckhals01/browser-tab-manager/internal/logging"
	"github.com/kspeckhals01/browser-tab-manager/internal/model"
)

// Default free tier quotas.
const (
	DefaultSessionLimit = 5
	DefaultGroupLimit   = 2
)

// TierResolver resolves the current entitlement state.
type TierResolver interface {
	Resolve(ctx context.Context) entitlement.State
}

// RemoteStore is the cloud store contract the adapter depends on.
// Implemented by remote.Store and remote.MemoryStore.
type RemoteStore interface {
	ListSessions(ctx context.Context, userID string) ([]model.SavedSession, error)
	InsertSession(ctx context.Context, userID string, s model.SavedSession) error
	DeleteSession(ctx context.Context, userID, name string) (bool, error)
	ListGroups(ctx context.Context, userID string) ([]model.TabGroup, error)
	InsertGroup(ctx context.Context, userID string, g model.TabGroup) error
	DeleteGroup(ctx context.Context, userID, name string) (bool, error)
	RenameGroup(ctx context.Context, userID, oldName, newName string) (bool, error)
	GroupTabs(ctx context.Context, userID, name string) ([]model.Tab, error)
	SetGroupTabs(ctx context.Context, userID, name string, tabs []model.Tab) error
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	IncrementCounter(ctx context.Context, userID string, c model.Counter) error
	DecrementCounter(ctx context.Context, userID string, c model.Counter) error
}

// Adapter routes storage operations for one resolved tier.
type Adapter struct {
	state  entitlement.State
	remote RemoteStore // nil when no cloud backend is configured

	local  *localBackend
	cloud  *remoteBackend // nil when remote is nil
	reads  []backend
	writer backend // saves
	editor backend // renames and tab removal

	groupLimit int
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures an Adapter.
type Option func(*options)

type options struct {
	sessionLimit int
	groupLimit   int
	logger       *zap.Logger
	now          func() time.Time
}

// WithLimits sets the free tier session and group quotas.
// Non-positive values keep the defaults.
func WithLimits(sessions, groups int) Option {
	return func(o *options) {
		if sessions > 0 {
			o.sessionLimit = sessions
		}
		if groups > 0 {
			o.groupLimit = groups
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New resolves the tier and returns an Adapter bound to it.
// remote may be nil, in which case a cloud tier is an error.
func New(ctx context.Context, resolver TierResolver, store *local.Store, remote RemoteStore, opts ...Option) (*Adapter, error) {
	o := options{
		sessionLimit: DefaultSessionLimit,
		groupLimit:   DefaultGroupLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.OrNop(o.logger).Named("adapter")

	state := resolver.Resolve(ctx)

	a := &Adapter{
		state:      state,
		remote:     remote,
		local:      &localBackend{store: store, sessionLimit: o.sessionLimit, logger: logger},
		groupLimit: o.groupLimit,
		logger:     logger.With(zap.String("tier", string(state.Tier))),
		now:        o.now,
	}
	if remote != nil {
		a.cloud = &remoteBackend{store: remote, userID: state.UserID, logger: logger}
	}

	switch state.Tier {
	case model.TierPro:
		if a.cloud == nil {
			return nil, apperrors.RemoteUnavailable()
		}
		a.reads = []backend{a.cloud}
		a.writer = a.cloud
		a.editor = a.cloud
	case model.TierExpired:
		if a.cloud == nil {
			return nil, apperrors.RemoteUnavailable()
		}
		a.reads = []backend{a.cloud, a.local}
		a.writer = a.local
		a.editor = a.cloud
	default:
		a.reads = []backend{a.local}
		a.writer = a.local
		a.editor = a.local
	}

	return a, nil
}

// Tier returns the tier this adapter was built for.
func (a *Adapter) Tier() model.Tier {
	return a.state.Tier
}

// State returns the full resolution result this adapter was built for.
func (a *Adapter) State() entitlement.State {
	return a.state
}

// UserProfile fetches the remote profile for the cached identity.
// Returns nil without error when nobody is signed in, no cloud backend is
// configured, or the user has no profile.
func (a *Adapter) UserProfile(ctx context.Context) (*model.UserProfile, error) {
	if !a.state.HasIdentity() || a.remote == nil {
		return nil, nil
	}
	p, err := a.remote.GetProfile(ctx, a.state.UserID)
	if err != nil {
		return nil, apperrors.RemoteReadFailed("profile", err)
	}
	return p, nil
}

// cloudMember reports whether deletes should consult the remote collection:
// the identity is known, the tier is a cloud tier, and a remote exists.
func (a *Adapter) cloudMember() bool {
	return a.cloud != nil && a.state.HasIdentity() && a.state.Tier.Cloud()
}

// collect reads from every backend in order and concatenates the results.
// With more than one backend the reads run concurrently; the first error wins.
func collect[T any](ctx context.Context, backends []backend, read func(backend, context.Context) ([]T, error)) ([]T, error) {
	if len(backends) == 1 {
		return read(backends[0], ctx)
	}

	parts := make([][]T, len(backends))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range backends {
		i, b := i, b
		g.Go(func() error {
			items, err := read(b, gctx)
			if err != nil {
				return err
			}
			parts[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []T
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

// validName trims name and rejects an empty result. Every operation that
// takes a session or group name passes it through here first.
func validName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.ValidationFailed(kind + " name is required")
	}
	return name, nil
}
