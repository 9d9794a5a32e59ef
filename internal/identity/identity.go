// Package identity caches the signed-in user and the last resolved tier in
// the local key-value store.
//
// The identity provider owns sign-in, sign-out and token refresh. This
// package only records what the provider reported, the same way the
// extension's login callback does.
package identity

import (
	"context"
	"fmt"

	"github.com/kspeckhals01/browser-tab-manager/internal/model"
	"github.com/kspeckhals01/browser-tab-manager/internal/storage"
)

// Keys shared with the browser extension's storage layout.
const (
	KeyUserID = "userId"
	KeyEmail  = "email"
	KeyTier   = "tier"
)

// Identity is the cached signed-in user.
type Identity struct {
	UserID string
	Email  string
}

// Cache reads and writes the cached identity.
type Cache struct {
	kv storage.KV
}

// NewCache returns a Cache over kv.
func NewCache(kv storage.KV) *Cache {
	return &Cache{kv: kv}
}

// Current returns the cached identity. ok is false when nobody is signed in.
func (c *Cache) Current(ctx context.Context) (id Identity, ok bool, err error) {
	values, err := c.kv.Get(ctx, KeyUserID, KeyEmail)
	if err != nil {
		return Identity{}, false, fmt.Errorf("read identity: %w", err)
	}
	userID := string(values[KeyUserID])
	if userID == "" {
		return Identity{}, false, nil
	}
	return Identity{UserID: userID, Email: string(values[KeyEmail])}, true, nil
}

// Set records id as the signed-in user.
func (c *Cache) Set(ctx context.Context, id Identity) error {
	if id.UserID == "" {
		return fmt.Errorf("identity has no user id")
	}
	err := c.kv.Set(ctx, map[string][]byte{
		KeyUserID: []byte(id.UserID),
		KeyEmail:  []byte(id.Email),
	})
	if err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}

// Clear forgets the signed-in user and resets the tier hint to free.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.kv.Remove(ctx, KeyUserID, KeyEmail); err != nil {
		return fmt.Errorf("clear identity: %w", err)
	}
	return c.SetTierHint(ctx, model.TierFree)
}

// TierHint returns the last resolved tier. It is display-only and never used
// for quota decisions. Missing or unrecognized values read as free.
func (c *Cache) TierHint(ctx context.Context) (model.Tier, error) {
	values, err := c.kv.Get(ctx, KeyTier)
	if err != nil {
		return model.TierFree, fmt.Errorf("read tier hint: %w", err)
	}
	tier, err := model.ParseTier(string(values[KeyTier]))
	if err != nil {
		return model.TierFree, nil
	}
	return tier, nil
}

// SetTierHint records the last resolved tier.
func (c *Cache) SetTierHint(ctx context.Context, tier model.Tier) error {
	if err := c.kv.Set(ctx, map[string][]byte{KeyTier: []byte(tier)}); err != nil {
		return fmt.Errorf("write tier hint: %w", err)
	}
	return nil
}
