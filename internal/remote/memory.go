package remote

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/kspeckhals01/browser-tab-manager/internal/model"
)

// Operation names accepted by MemoryStore.FailOn.
const (
	OpListSessions     = "ListSessions"
	OpInsertSession    = "InsertSession"
	OpDeleteSession    = "DeleteSession"
	OpListGroups       = "ListGroups"
	OpInsertGroup      = "InsertGroup"
	OpDeleteGroup      = "DeleteGroup"
	OpRenameGroup      = "RenameGroup"
	OpGroupTabs        = "GroupTabs"
	OpSetGroupTabs     = "SetGroupTabs"
	OpGetProfile       = "GetProfile"
	OpUpsertProfile    = "UpsertProfile"
	OpIncrementCounter = "IncrementCounter"
	OpDecrementCounter = "DecrementCounter"
)

// MemoryStore keeps the remote contract in process memory.
// It backs tests and the "memory://" DSN; data does not survive the process.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]model.SavedSession
	groups   map[string][]model.TabGroup
	profiles map[string]model.UserProfile
	failures map[string]failure
	calls    map[string]int
}

type failure struct {
	err       error
	remaining int // < 0 means until cleared
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]model.SavedSession),
		groups:   make(map[string][]model.TabGroup),
		profiles: make(map[string]model.UserProfile),
		failures: make(map[string]failure),
		calls:    make(map[string]int),
	}
}

// FailOn makes every later call to op return err. A nil err clears it.
func (m *MemoryStore) FailOn(op string, err error) {
	m.FailTimes(op, err, -1)
}

// FailTimes makes the next n calls to op return err.
func (m *MemoryStore) FailTimes(op string, err error, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = failure{err: err, remaining: n}
}

// Calls returns how many times op has been invoked.
func (m *MemoryStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// enter records a call to op and returns its injected failure, if any.
// Callers hold m.mu.
func (m *MemoryStore) enter(ctx context.Context, op string) error {
	m.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	f, ok := m.failures[op]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(m.failures, op)
		} else {
			m.failures[op] = f
		}
	}
	return f.err
}

// ListSessions returns the owner's sessions, newest first.
func (m *MemoryStore) ListSessions(ctx context.Context, userID string) ([]model.SavedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, OpListSessions); err != nil {
		return nil, err
	}

	out := make([]model.SavedSession, len(m.sessions[userID]))
	for i, s := range m.sessions[userID] {
		s.Tabs = copyTabs(s.Tabs)
		out[i] = s
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// InsertSession stores a session, rejecting duplicate names.
func (m *MemoryStore) InsertSession(ctx context.Context, userID string, session model.SavedSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, OpInsertSession); err != nil {
		return err
	}

	if model.SessionNamed(m.sessions[userID], session.Name) {
		return ErrDuplicateName
	}
	session.ID = uuid.NewString()
	session.CreatedAt = createdAt(session.CreatedAt)
	session.Tabs = copyTabs(session.Tabs)
	m.sessions[userID] = append(m.sessions[userID], session)
	return nil
}

// DeleteSession removes a session by name.
func (m *MemoryStore) DeleteSession(ctx context.Context, userID, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, OpDeleteSession); err != nil {
		return false, err
	}

	sessions := m.sessions[userID]
	for i, s := range sessions {
		if s.Name == name {
			m.sessions[userID] = append(sessions[:i:i], sessions[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// ListGroups returns the owner's groups, newest first.
func (m *MemoryStore) ListGroups(ctx context.Context, userID string) ([]model.TabGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, OpListGroups); err != nil {
		return nil, err
	}

	out := make([]model.TabGroup, len(m.groups[userID]))
	for i, g := range m.groups[userID] {
		g.Tabs = copyTabs(g.Tabs)
		out[i] = g
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// InsertGroup stores a group, rejecting duplicate names.
func (m *MemoryStore) InsertGroup(ctx context.Context, userID string, group model.TabGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, OpInsertGroup); err != nil {
		return err
	}

	if model.GroupNamed(m.groups[userID], group.Name) {
		return ErrDuplicateName
	}
	group.ID = uuid.NewString()
	group.CreatedAt = createdAt(group.CreatedAt)
	group.Tabs = copyTabs(group.Tabs)
	m.groups[userID] = append(m.groups[userID], group)
	return nil
}

// DeleteGroup removes a group by name.
func (m *MemoryStore) DeleteGroup(ctx context.Context, userID, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, OpDeleteGroup); err != nil {
		return false, err
	}

	groups := m.groups[userID]
	for i, g := range groups {
		if g.Name == name {
			m.groups[userID] = append(groups[:i:i], groups[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// RenameGroup relabels a group, rejecting a name already in use.
func (m *MemoryStore) RenameGroup(ctx context.Context, userID, oldName, newName string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, OpRenameGroup); err != nil {
		return false, err
	}

	groups := m.groups[userID]
	for i := range groups {
		if groups[i].Name != oldName {
			continue
		}
		if oldName != newName && model.GroupNamed(groups, newName) {
			return false, ErrDuplicateName
		}
		groups[i].Name = newName
		return true, nil
	}
	return false, nil
}

// GroupTabs returns a copy of a group's tabs.
func (m *MemoryStore) GroupTabs(ctx context.Context, userID, name string) ([]model.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, OpGroupTabs); err != nil {
		return nil, err
	}

	for _, g := range m.groups[userID] {
		if g.Name == name {
			return copyTabs(g.Tabs), nil
		}
	}
	return nil, ErrNotFound
}

// SetGroupTabs replaces a group's tabs.
func (m *MemoryStore) SetGroupTabs(ctx context.Context, userID, name string, tabs []model.Tab) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, OpSetGroupTabs); err != nil {
		return err
	}

	groups := m.groups[userID]
	for i := range groups {
		if groups[i].Name == name {
			groups[i].Tabs = copyTabs(tabs)
			return nil
		}
	}
	return ErrNotFound
}

// GetProfile returns a copy of the profile, or nil when absent.
func (m *MemoryStore) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, OpGetProfile); err != nil {
		return nil, err
	}

	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// UpsertProfile creates or replaces a profile.
func (m *MemoryStore) UpsertProfile(ctx context.Context, p model.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, OpUpsertProfile); err != nil {
		return err
	}

	if p.Tier == "" {
		p.Tier = model.TierFree
	}
	p.CreatedAt = createdAt(p.CreatedAt)
	m.profiles[p.ID] = p
	return nil
}

// IncrementCounter adds one to a usage counter. Users without a profile are ignored.
func (m *MemoryStore) IncrementCounter(ctx context.Context, userID string, c model.Counter) error {
	return m.adjust(ctx, OpIncrementCounter, userID, c, 1)
}

// DecrementCounter subtracts one from a usage counter, flooring at zero.
func (m *MemoryStore) DecrementCounter(ctx context.Context, userID string, c model.Counter) error {
	return m.adjust(ctx, OpDecrementCounter, userID, c, -1)
}

func (m *MemoryStore) adjust(ctx context.Context, op, userID string, c model.Counter, delta int) error {
	if err := validCounter(c); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx, op); err != nil {
		return err
	}

	p, ok := m.profiles[userID]
	if !ok {
		return nil
	}
	field := &p.SessionsUsed
	if c == model.CounterGroups {
		field = &p.GroupsUsed
	}
	*field = max(*field+delta, 0)
	m.profiles[userID] = p
	return nil
}

func copyTabs(tabs []model.Tab) []model.Tab {
	if tabs == nil {
		return []model.Tab{}
	}
	out := make([]model.Tab, len(tabs))
	for i, t := range tabs {
		if t.ID != nil {
			t.ID = model.TabID(*t.ID)
		}
		out[i] = t
	}
	return out
}
