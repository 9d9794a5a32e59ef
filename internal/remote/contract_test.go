package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/kspeckhals01/browser-tab-manager/internal/model"
)

// backend is the method set shared by Store and MemoryStore.
type backend interface {
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
	UpsertProfile(ctx context.Context, p model.UserProfile) error
	IncrementCounter(ctx context.Context, userID string, c model.Counter) error
	DecrementCounter(ctx context.Context, userID string, c model.Counter) error
}

var (
	_ backend = (*Store)(nil)
	_ backend = (*MemoryStore)(nil)
)

// runContract exercises the remote contract against b. Each call uses fresh
// user IDs so the suite can share a database.
func runContract(t *testing.T, b backend) {
	t.Run("sessions", func(t *testing.T) {
		ctx := context.Background()
		user := uuid.NewString()
		other := uuid.NewString()

		older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		newer := older.Add(time.Hour)
		tabs := []model.Tab{{ID: model.TabID(1), Title: "Go", URL: "https://go.dev"}}

		if err := b.InsertSession(ctx, user, model.SavedSession{Name: "old", CreatedAt: older, Tabs: tabs}); err != nil {
			t.Fatalf("InsertSession(old) failed: %v", err)
		}
		if err := b.InsertSession(ctx, user, model.SavedSession{Name: "new", CreatedAt: newer, Tabs: tabs}); err != nil {
			t.Fatalf("InsertSession(new) failed: %v", err)
		}
		if err := b.InsertSession(ctx, user, model.SavedSession{Name: "old"}); !errors.Is(err, ErrDuplicateName) {
			t.Errorf("duplicate InsertSession = %v, want ErrDuplicateName", err)
		}
		// Names are unique per owner, not globally.
		if err := b.InsertSession(ctx, other, model.SavedSession{Name: "old"}); err != nil {
			t.Errorf("InsertSession for another user failed: %v", err)
		}

		got, err := b.ListSessions(ctx, user)
		if err != nil {
			t.Fatalf("ListSessions failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("ListSessions returned %d sessions, want 2", len(got))
		}
		if got[0].Name != "new" || got[1].Name != "old" {
			t.Errorf("order = [%s %s], want [new old]", got[0].Name, got[1].Name)
		}
		if got[0].ID == "" {
			t.Error("session has no ID")
		}
		if diff := cmp.Diff(tabs, got[0].Tabs); diff != "" {
			t.Errorf("tabs mismatch (-want +got):\n%s", diff)
		}
		if !got[1].CreatedAt.Equal(older) {
			t.Errorf("CreatedAt = %v, want %v", got[1].CreatedAt, older)
		}

		deleted, err := b.DeleteSession(ctx, user, "old")
		if err != nil || !deleted {
			t.Errorf("DeleteSession(old) = %v, %v; want true, nil", deleted, err)
		}
		deleted, err = b.DeleteSession(ctx, user, "old")
		if err != nil || deleted {
			t.Errorf("second DeleteSession(old) = %v, %v; want false, nil", deleted, err)
		}
		otherSessions, _ := b.ListSessions(ctx, other)
		if len(otherSessions) != 1 {
			t.Errorf("delete leaked across owners: other has %d sessions", len(otherSessions))
		}
	})

	t.Run("groups", func(t *testing.T) {
		ctx := context.Background()
		user := uuid.NewString()

		tabs := []model.Tab{{ID: model.TabID(0)}, {ID: model.TabID(1)}, {ID: model.TabID(2)}}
		for _, name := range []string{"a", "b"} {
			if err := b.InsertGroup(ctx, user, model.TabGroup{Name: name, Tabs: tabs}); err != nil {
				t.Fatalf("InsertGroup(%s) failed: %v", name, err)
			}
		}
		if err := b.InsertGroup(ctx, user, model.TabGroup{Name: "a"}); !errors.Is(err, ErrDuplicateName) {
			t.Errorf("duplicate InsertGroup = %v, want ErrDuplicateName", err)
		}

		if _, err := b.RenameGroup(ctx, user, "a", "b"); !errors.Is(err, ErrDuplicateName) {
			t.Errorf("RenameGroup onto existing name = %v, want ErrDuplicateName", err)
		}
		renamed, err := b.RenameGroup(ctx, user, "a", "c")
		if err != nil || !renamed {
			t.Errorf("RenameGroup(a, c) = %v, %v; want true, nil", renamed, err)
		}
		renamed, err = b.RenameGroup(ctx, user, "zzz", "y")
		if err != nil || renamed {
			t.Errorf("RenameGroup(missing) = %v, %v; want false, nil", renamed, err)
		}

		got, err := b.GroupTabs(ctx, user, "c")
		if err != nil {
			t.Fatalf("GroupTabs failed: %v", err)
		}
		if diff := cmp.Diff(tabs, got); diff != "" {
			t.Errorf("GroupTabs mismatch (-want +got):\n%s", diff)
		}

		if err := b.SetGroupTabs(ctx, user, "c", model.WithoutTab(got, 1)); err != nil {
			t.Fatalf("SetGroupTabs failed: %v", err)
		}
		got, _ = b.GroupTabs(ctx, user, "c")
		want := []model.Tab{{ID: model.TabID(0)}, {ID: model.TabID(2)}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("tabs after SetGroupTabs (-want +got):\n%s", diff)
		}

		if _, err := b.GroupTabs(ctx, user, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GroupTabs(missing) = %v, want ErrNotFound", err)
		}
		if err := b.SetGroupTabs(ctx, user, "missing", nil); !errors.Is(err, ErrNotFound) {
			t.Errorf("SetGroupTabs(missing) = %v, want ErrNotFound", err)
		}

		deleted, err := b.DeleteGroup(ctx, user, "b")
		if err != nil || !deleted {
			t.Errorf("DeleteGroup(b) = %v, %v; want true, nil", deleted, err)
		}
		groups, _ := b.ListGroups(ctx, user)
		if len(groups) != 1 || groups[0].Name != "c" {
			t.Errorf("groups after delete = %+v, want only c", groups)
		}
	})

	t.Run("rename keeps contents", func(t *testing.T) {
		ctx := context.Background()
		user := uuid.NewString()

		created := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
		tabs := []model.Tab{
			{ID: model.TabID(1), Title: "Go", URL: "https://go.dev", Pinned: true},
			{ID: model.TabID(2), Title: "Spec", URL: "https://go.dev/ref/spec", FavIconURL: "https://go.dev/favicon.ico"},
		}
		if err := b.InsertGroup(ctx, user, model.TabGroup{Name: "research", CreatedAt: created, Tabs: tabs}); err != nil {
			t.Fatalf("InsertGroup failed: %v", err)
		}
		before, err := b.ListGroups(ctx, user)
		if err != nil || len(before) != 1 {
			t.Fatalf("ListGroups = %v, %v", before, err)
		}

		if renamed, err := b.RenameGroup(ctx, user, "research", "reading"); err != nil || !renamed {
			t.Fatalf("RenameGroup = %v, %v; want true, nil", renamed, err)
		}

		after, err := b.ListGroups(ctx, user)
		if err != nil || len(after) != 1 {
			t.Fatalf("ListGroups after rename = %v, %v", after, err)
		}
		want := before[0]
		want.Name = "reading"
		if diff := cmp.Diff(want, after[0]); diff != "" {
			t.Errorf("renamed group mismatch (-want +got):\n%s", diff)
		}
		if !after[0].CreatedAt.Equal(created) {
			t.Errorf("CreatedAt = %v, want %v", after[0].CreatedAt, created)
		}
	})

	t.Run("profiles and counters", func(t *testing.T) {
		ctx := context.Background()
		user := uuid.NewString()

		p, err := b.GetProfile(ctx, user)
		if err != nil || p != nil {
			t.Fatalf("GetProfile(missing) = %v, %v; want nil, nil", p, err)
		}

		// Counters on a user without a profile are a no-op, not an error.
		if err := b.IncrementCounter(ctx, user, model.CounterSessions); err != nil {
			t.Errorf("IncrementCounter without profile failed: %v", err)
		}

		trialEnd := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		err = b.UpsertProfile(ctx, model.UserProfile{
			ID:          user,
			Email:       "ada@example.com",
			Tier:        model.TierPro,
			TrialEndsAt: &trialEnd,
		})
		if err != nil {
			t.Fatalf("UpsertProfile failed: %v", err)
		}

		b.IncrementCounter(ctx, user, model.CounterSessions)
		b.IncrementCounter(ctx, user, model.CounterSessions)
		b.IncrementCounter(ctx, user, model.CounterGroups)
		b.DecrementCounter(ctx, user, model.CounterGroups)
		b.DecrementCounter(ctx, user, model.CounterGroups)

		p, err = b.GetProfile(ctx, user)
		if err != nil || p == nil {
			t.Fatalf("GetProfile = %v, %v", p, err)
		}
		if p.SessionsUsed != 2 {
			t.Errorf("SessionsUsed = %d, want 2", p.SessionsUsed)
		}
		if p.GroupsUsed != 0 {
			t.Errorf("GroupsUsed = %d, want 0 (floored)", p.GroupsUsed)
		}
		if p.Tier != model.TierPro || p.Email != "ada@example.com" {
			t.Errorf("profile = %+v", p)
		}
		if p.TrialEndsAt == nil || !p.TrialEndsAt.Equal(trialEnd) {
			t.Errorf("TrialEndsAt = %v, want %v", p.TrialEndsAt, trialEnd)
		}
		if p.SubscriptionEndsAt != nil {
			t.Errorf("SubscriptionEndsAt = %v, want nil", p.SubscriptionEndsAt)
		}

		if err := b.IncrementCounter(ctx, user, model.Counter("tabs_used")); err == nil {
			t.Error("IncrementCounter with unknown column should fail")
		}
	})
}
