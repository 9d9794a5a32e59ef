// Package entitlement decides a user's tier from their cached identity and
// remote profile. No other package duplicates this logic; everything that
// needs a tier takes the State a Resolver returns.
package entitlement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kspeckhals01/browser-tab-manager/internal/identity"
	"github.com/kspeckhals01/browser-tab-manager/internal/logging"
	"github.com/kspeckhals01/browser-tab-manager/internal/model"
)

// IdentitySource supplies the cached identity and stores the tier hint.
type IdentitySource interface {
	Current(ctx context.Context) (identity.Identity, bool, error)
	SetTierHint(ctx context.Context, tier model.Tier) error
}

// ProfileSource fetches remote profiles. GetProfile returns nil, nil when
// the user has no profile.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
}

// State is one resolution result. It is a value: holders keep their own
// copy and re-resolve to observe a change.
type State struct {
	Tier    model.Tier
	UserID  string
	Email   string
	Profile *model.UserProfile // nil when not fetched or absent
}

// HasIdentity reports whether a signed-in user was cached at resolution time.
func (s State) HasIdentity() bool {
	return s.UserID != ""
}

// Resolver computes State.
type Resolver struct {
	identities IdentitySource
	profiles   ProfileSource
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithClock overrides the time source used to evaluate trial and
// subscription windows.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver returns a Resolver. profiles may be nil when no remote backend
// is configured; every identity then resolves to free.
func NewResolver(identities IdentitySource, profiles ProfileSource, opts ...Option) *Resolver {
	r := &Resolver{identities: identities, profiles: profiles, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger).Named("entitlement")
	return r
}

// Resolve returns the current State and records its tier as the local hint.
//
//   - no cached identity: free, without a network call
//   - profile fetch failed: expired
//   - identity known but no profile: expired
//   - otherwise TierFor(profile, now)
func (r *Resolver) Resolve(ctx context.Context) State {
	state := r.resolve(ctx)

	if err := r.identities.SetTierHint(ctx, state.Tier); err != nil {
		r.logger.Warn("failed to cache tier hint", zap.Error(err))
	}

	r.logger.Debug("resolved tier",
		zap.String("tier", string(state.Tier)),
		zap.Bool("identity", state.HasIdentity()))
	return state
}

func (r *Resolver) resolve(ctx context.Context) State {
	id, ok, err := r.identities.Current(ctx)
	if err != nil {
		r.logger.Warn("failed to read cached identity, treating as signed out", zap.Error(err))
		return State{Tier: model.TierFree}
	}
	if !ok {
		return State{Tier: model.TierFree}
	}

	state := State{UserID: id.UserID, Email: id.Email}

	if r.profiles == nil {
		state.Tier = model.TierFree
		return state
	}

	profile, err := r.profiles.GetProfile(ctx, id.UserID)
	if err != nil {
		r.logger.Warn("profile fetch failed, treating as expired",
			zap.String("user_id", id.UserID), zap.Error(err))
		state.Tier = model.TierExpired
		return state
	}
	if profile == nil {
		r.logger.Info("no profile for signed-in user, treating as expired", zap.String("user_id", id.UserID))
		state.Tier = model.TierExpired
		return state
	}

	state.Profile = profile
	state.Tier = TierFor(*profile, r.now())
	return state
}

// TierFor derives the tier from a profile's trial and subscription windows.
// An active trial or subscription is pro; a lapsed pro is expired; anything
// else is free. The stored tier is only consulted to tell lapsed pro users
// from free ones.
func TierFor(p model.UserProfile, now time.Time) model.Tier {
	trialActive := p.TrialEndsAt != nil && now.Before(*p.TrialEndsAt)
	subscriptionActive := p.SubscriptionEndsAt != nil && now.Before(*p.SubscriptionEndsAt)

	switch {
	case trialActive || subscriptionActive:
		return model.TierPro
	case p.Tier == model.TierPro:
		return model.TierExpired
	default:
		return model.TierFree
	}
}
