// Package local implements the on-device session and group collections.
//
// Each collection is one JSON array under a single key, rewritten whole on
// every change. The store is plain CRUD: quotas, duplicate checks and tier
// routing belong to the adapter. Writes are serialized within one process;
// across processes the last whole-collection write wins.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kspeckhals01/browser-tab-manager/internal/logging"
	"github.com/kspeckhals01/browser-tab-manager/internal/model"
	"github.com/kspeckhals01/browser-tab-manager/internal/storage"
)

// Keys shared with the browser extension's storage layout.
const (
	KeySessions     = "local_sessions"
	KeyGroups       = "local_groups"
	KeySessionCount = "localSessionCount"
	KeyGroupCount   = "localGroupCount"
	KeyGroupsUsed   = "groups_used"
)

// Store reads and writes the local collections through a storage.KV.
type Store struct {
	kv     storage.KV
	mu     sync.Mutex // serializes read-modify-write cycles
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store over kv.
func New(kv storage.KV, opts ...Option) *Store {
	s := &Store{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger).Named("local")
	return s
}

// Sessions returns every saved session in insertion order.
func (s *Store) Sessions(ctx context.Context) ([]model.SavedSession, error) {
	var sessions []model.SavedSession
	if err := s.load(ctx, KeySessions, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// AddSession appends a session. A missing ID or creation time is filled in.
// AddSession does not check for duplicate names.
func (s *Store) AddSession(ctx context.Context, session model.SavedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.Sessions(ctx)
	if err != nil {
		return err
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now().UTC()
	}
	sessions = append(sessions, session)

	return s.saveSessions(ctx, sessions)
}

// DeleteSession removes every session named name and reports whether any existed.
func (s *Store) DeleteSession(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.Sessions(ctx)
	if err != nil {
		return false, err
	}

	kept := sessions[:0:0]
	for _, sess := range sessions {
		if sess.Name != name {
			kept = append(kept, sess)
		}
	}
	if len(kept) == len(sessions) {
		return false, nil
	}

	return true, s.saveSessions(ctx, kept)
}

// Groups returns every group in insertion order.
func (s *Store) Groups(ctx context.Context) ([]model.TabGroup, error) {
	var groups []model.TabGroup
	if err := s.load(ctx, KeyGroups, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// AddGroup appends a group after normalizing its tab identifiers.
// AddGroup does not check for duplicate names or quotas.
func (s *Store) AddGroup(ctx context.Context, group model.TabGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.Groups(ctx)
	if err != nil {
		return err
	}

	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = s.now().UTC()
	}
	group.Tabs = model.NormalizeTabIDs(group.Tabs)
	groups = append(groups, group)

	return s.saveGroups(ctx, groups)
}

// DeleteGroup removes every group named name and reports whether any existed.
func (s *Store) DeleteGroup(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.Groups(ctx)
	if err != nil {
		return false, err
	}

	kept := groups[:0:0]
	for _, g := range groups {
		if g.Name != name {
			kept = append(kept, g)
		}
	}
	if len(kept) == len(groups) {
		return false, nil
	}

	return true, s.saveGroups(ctx, kept)
}

// RenameGroup relabels the first group named oldName.
// Another group already named newName is left untouched, so a rename never
// merges or deletes groups. Reports whether a group was renamed.
func (s *Store) RenameGroup(ctx context.Context, oldName, newName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.Groups(ctx)
	if err != nil {
		return false, err
	}

	for i := range groups {
		if groups[i].Name == oldName {
			groups[i].Name = newName
			return true, s.saveGroups(ctx, groups)
		}
	}
	return false, nil
}

// RemoveTab drops every tab with the given identifier from the group named
// group and returns the group's remaining tabs. found is false when no such
// group exists; a missing tab leaves the group unchanged.
func (s *Store) RemoveTab(ctx context.Context, group string, tabID int) (tabs []model.Tab, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.Groups(ctx)
	if err != nil {
		return nil, false, err
	}

	for i := range groups {
		if groups[i].Name == group {
			groups[i].Tabs = model.WithoutTab(groups[i].Tabs, tabID)
			if err := s.saveGroups(ctx, groups); err != nil {
				return nil, true, err
			}
			return groups[i].Tabs, true, nil
		}
	}
	return nil, false, nil
}

// ClearGroups removes the whole local group collection.
func (s *Store) ClearGroups(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, KeyGroups, KeyGroupCount); err != nil {
		return fmt.Errorf("clear local groups: %w", err)
	}
	s.logger.Info("cleared local groups")
	return nil
}

// GroupsUsed returns the local usage counter for groups.
// It only ever grows and is display-only; it is not the group count.
func (s *Store) GroupsUsed(ctx context.Context) (int, error) {
	var n int
	if err := s.load(ctx, KeyGroupsUsed, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// IncrementGroupsUsed adds one to the local group usage counter.
func (s *Store) IncrementGroupsUsed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.GroupsUsed(ctx)
	if err != nil {
		return err
	}
	return s.store(ctx, map[string]any{KeyGroupsUsed: n + 1})
}

func (s *Store) saveSessions(ctx context.Context, sessions []model.SavedSession) error {
	return s.store(ctx, map[string]any{
		KeySessions:     nonNil(sessions),
		KeySessionCount: len(sessions),
	})
}

func (s *Store) saveGroups(ctx context.Context, groups []model.TabGroup) error {
	return s.store(ctx, map[string]any{
		KeyGroups:     nonNil(groups),
		KeyGroupCount: len(groups),
	})
}

// load decodes the JSON value at key into dst. A missing key leaves dst untouched.
func (s *Store) load(ctx context.Context, key string, dst any) error {
	values, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	raw, ok := values[key]
	if !ok || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// store encodes every value as JSON and writes them in one Set call.
func (s *Store) store(ctx context.Context, values map[string]any) error {
	entries := make(map[string][]byte, len(values))
	for key, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		entries[key] = data
	}
	if err := s.kv.Set(ctx, entries); err != nil {
		return fmt.Errorf("write local collection: %w", err)
	}
	return nil
}

// nonNil makes empty collections encode as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
