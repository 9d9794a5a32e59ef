package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kspeckhals01/browser-tab-manager/internal/model"
)

// GetProfile returns the profile for userID, or nil without error when the
// user has no profile row.
func (s *Store) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id::text, email, name, tier, sessions_used, groups_used, created_at,
		       upgraded_at, trial_ends_at, subscription_ends_at,
		       subscription_cancelled_at, subscription_paused_at, subscription_expired
		FROM user_profiles
		WHERE id = $1
	`

	var (
		p    model.UserProfile
		tier string
	)
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.Email,
		&p.Name,
		&tier,
		&p.SessionsUsed,
		&p.GroupsUsed,
		&p.CreatedAt,
		&p.UpgradedAt,
		&p.TrialEndsAt,
		&p.SubscriptionEndsAt,
		&p.SubscriptionCancelledAt,
		&p.SubscriptionPausedAt,
		&p.SubscriptionExpiredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if p.Tier, err = model.ParseTier(tier); err != nil {
		s.logger.Warn("profile has unknown tier, treating as free",
			zap.String("user_id", userID), zap.String("tier", tier))
		p.Tier = model.TierFree
	}

	return &p, nil
}

// UpsertProfile creates or replaces the profile row for p.ID.
// Profiles are normally written by the payment backend; this exists for
// provisioning and tests.
func (s *Store) UpsertProfile(ctx context.Context, p model.UserProfile) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	query := `
		INSERT INTO user_profiles (
			id, email, name, tier, sessions_used, groups_used, created_at,
			upgraded_at, trial_ends_at, subscription_ends_at,
			subscription_cancelled_at, subscription_paused_at, subscription_expired
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			tier = EXCLUDED.tier,
			sessions_used = EXCLUDED.sessions_used,
			groups_used = EXCLUDED.groups_used,
			upgraded_at = EXCLUDED.upgraded_at,
			trial_ends_at = EXCLUDED.trial_ends_at,
			subscription_ends_at = EXCLUDED.subscription_ends_at,
			subscription_cancelled_at = EXCLUDED.subscription_cancelled_at,
			subscription_paused_at = EXCLUDED.subscription_paused_at,
			subscription_expired = EXCLUDED.subscription_expired
	`

	tier := p.Tier
	if tier == "" {
		tier = model.TierFree
	}

	_, err := s.pool.Exec(ctx, query,
		p.ID,
		p.Email,
		p.Name,
		string(tier),
		p.SessionsUsed,
		p.GroupsUsed,
		createdAt(p.CreatedAt),
		p.UpgradedAt,
		p.TrialEndsAt,
		p.SubscriptionEndsAt,
		p.SubscriptionCancelledAt,
		p.SubscriptionPausedAt,
		p.SubscriptionExpiredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// IncrementCounter adds one to the named usage column of the user's profile.
// A user without a profile row is left unchanged.
func (s *Store) IncrementCounter(ctx context.Context, userID string, c model.Counter) error {
	return s.callCounter(ctx, "increment_column", userID, c)
}

// DecrementCounter subtracts one from the named usage column, never going
// below zero.
func (s *Store) DecrementCounter(ctx context.Context, userID string, c model.Counter) error {
	return s.callCounter(ctx, "decrement_column", userID, c)
}

func (s *Store) callCounter(ctx context.Context, fn, userID string, c model.Counter) error {
	if err := validCounter(c); err != nil {
		return err
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	// fn is one of two fixed names, never caller input.
	if _, err := s.pool.Exec(ctx, "SELECT "+fn+"($1, $2)", userID, string(c)); err != nil {
		return fmt.Errorf("failed to %s %s: %w", fn, c, err)
	}
	return nil
}

func validCounter(c model.Counter) error {
	switch c {
	case model.CounterSessions, model.CounterGroups:
		return nil
	default:
		return fmt.Errorf("unknown usage counter %q", c)
	}
}
