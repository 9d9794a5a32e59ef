package model

import (
	"fmt"
	"time"
)

// Tier is a user's entitlement level.
type Tier string

const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierExpired Tier = "expired"
)

// ParseTier converts a stored tier string into a Tier.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case TierFree, TierPro, TierExpired:
		return Tier(s), nil
	default:
		return "", fmt.Errorf("unknown tier %q", s)
	}
}

// Cloud reports whether the tier routes at least part of its data to the
// remote store.
func (t Tier) Cloud() bool {
	return t == TierPro || t == TierExpired
}

// Counter names one of the two usage columns kept on the remote profile.
type Counter string

const (
	CounterSessions Counter = "sessions_used"
	CounterGroups   Counter = "groups_used"
)

// UserProfile is the remote profile row for one identity.
// The optional dates govern trial and subscription windows.
type UserProfile struct {
	ID                      string     `json:"id"`
	Email                   string     `json:"email"`
	Name                    string     `json:"name"`
	Tier                    Tier       `json:"tier"`
	SessionsUsed            int        `json:"sessions_used"`
	GroupsUsed              int        `json:"groups_used"`
	CreatedAt               time.Time  `json:"created_at"`
	UpgradedAt              *time.Time `json:"upgraded_at,omitempty"`
	TrialEndsAt             *time.Time `json:"trial_ends_at,omitempty"`
	SubscriptionEndsAt      *time.Time `json:"subscription_ends_at,omitempty"`
	SubscriptionCancelledAt *time.Time `json:"subscription_cancelled_at,omitempty"`
	SubscriptionPausedAt    *time.Time `json:"subscription_paused_at,omitempty"`
	SubscriptionExpiredAt   *time.Time `json:"subscription_expired,omitempty"`
}
