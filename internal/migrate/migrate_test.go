package migrate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kspeckhals01/browser-tab-manager/internal/entitlement"
	apperrors "github.com/kspeckhals01/browser-tab-manager/internal/errors"
	"github.com/kspeckhals01/browser-tab-manager/internal/local"
	"github.com/kspeckhals01/browser-tab-manager/internal/model"
	"github.com/kspeckhals01/browser-tab-manager/internal/remote"
	"github.com/kspeckhals01/browser-tab-manager/internal/storage"
)

var (
	proUser = entitlement.State{Tier: model.TierPro, UserID: "u-1"}
	created = time.Date(2024, 12, 24, 8, 30, 0, 0, time.UTC)
)

func setup(t *testing.T, groups int) (*Migrator, *local.Store, *remote.MemoryStore) {
	t.Helper()
	kv, err := storage.NewSQLiteStore(":memory:", nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	ls := local.New(kv)
	for i := 0; i < groups; i++ {
		g := model.TabGroup{
			Name:      fmt.Sprintf("group-%d", i),
			CreatedAt: created.Add(time.Duration(i) * time.Hour),
			Tabs:      []model.Tab{{ID: model.TabID(i), Title: "t", URL: "https://example.com"}},
		}
		if err := ls.AddGroup(context.Background(), g); err != nil {
			t.Fatalf("AddGroup failed: %v", err)
		}
	}

	rs := remote.NewMemoryStore()
	return New(ls, rs, nil), ls, rs
}

func counts(t *testing.T, ls *local.Store, rs *remote.MemoryStore) (localN, remoteN int) {
	t.Helper()
	ctx := context.Background()
	lg, err := ls.Groups(ctx)
	if err != nil {
		t.Fatalf("local Groups failed: %v", err)
	}
	rg, err := rs.ListGroups(ctx, proUser.UserID)
	if err != nil {
		t.Fatalf("remote ListGroups failed: %v", err)
	}
	return len(lg), len(rg)
}

func TestRun_MovesEveryGroup(t *testing.T) {
	m, ls, rs := setup(t, 3)

	report, err := m.Run(context.Background(), proUser)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if diff := cmp.Diff(Report{Migrated: 3}, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	localN, remoteN := counts(t, ls, rs)
	if localN != 0 || remoteN != 3 {
		t.Errorf("after migration: local=%d remote=%d, want 0 and 3", localN, remoteN)
	}
}

func TestRun_KeepsCreatedAt(t *testing.T) {
	m, _, rs := setup(t, 2)

	if _, err := m.Run(context.Background(), proUser); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	groups, err := rs.ListGroups(context.Background(), proUser.UserID)
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range groups {
		var i int
		fmt.Sscanf(g.Name, "group-%d", &i)
		want := created.Add(time.Duration(i) * time.Hour)
		if !g.CreatedAt.Equal(want) {
			t.Errorf("%s CreatedAt = %v, want %v", g.Name, g.CreatedAt, want)
		}
	}
}

func TestRun_NothingToDo(t *testing.T) {
	m, _, rs := setup(t, 0)

	// No identity is needed when there is nothing to move.
	report, err := m.Run(context.Background(), entitlement.State{Tier: model.TierPro})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report != (Report{}) {
		t.Errorf("report = %+v, want zero", report)
	}
	if n := rs.Calls(remote.OpInsertGroup); n != 0 {
		t.Errorf("InsertGroup called %d times", n)
	}
}

func TestRun_RequiresIdentity(t *testing.T) {
	m, ls, rs := setup(t, 1)

	_, err := m.Run(context.Background(), entitlement.State{Tier: model.TierPro})
	if !apperrors.IsCode(err, apperrors.CodeAuthRequired) {
		t.Fatalf("err = %v, want %s", err, apperrors.CodeAuthRequired)
	}
	if localN, _ := counts(t, ls, rs); localN != 1 {
		t.Errorf("local groups = %d, want 1", localN)
	}
}

// TestRun_PartialFailure verifies the local collection survives a failed run
// and a second run converges without duplicating what already moved.
func TestRun_PartialFailure(t *testing.T) {
	ctx := context.Background()
	m, ls, rs := setup(t, 3)

	// group-0 made it across on an earlier attempt; the next insert fails.
	if err := rs.InsertGroup(ctx, proUser.UserID, model.TabGroup{Name: "group-0"}); err != nil {
		t.Fatal(err)
	}
	rs.FailTimes(remote.OpInsertGroup, errors.New("connection reset"), 1)

	report, err := m.Run(ctx, proUser)
	if !apperrors.IsCode(err, apperrors.CodeMigrationFailed) {
		t.Fatalf("err = %v, want %s", err, apperrors.CodeMigrationFailed)
	}
	if report.Migrated != 0 {
		t.Errorf("Migrated = %d, want 0", report.Migrated)
	}
	if localN, remoteN := counts(t, ls, rs); localN != 3 || remoteN != 1 {
		t.Errorf("after failure: local=%d remote=%d, want 3 and 1", localN, remoteN)
	}

	report, err = m.Run(ctx, proUser)
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if diff := cmp.Diff(Report{Migrated: 2, Skipped: 1}, report); diff != "" {
		t.Errorf("rerun report mismatch (-want +got):\n%s", diff)
	}
	if localN, remoteN := counts(t, ls, rs); localN != 0 || remoteN != 3 {
		t.Errorf("after rerun: local=%d remote=%d, want 0 and 3", localN, remoteN)
	}
}

// tierSwitch resolves to whatever tier it currently holds.
type tierSwitch struct {
	tier  model.Tier
	calls int
}

func (s *tierSwitch) Resolve(context.Context) entitlement.State {
	s.calls++
	return entitlement.State{Tier: s.tier, UserID: proUser.UserID}
}

func TestWatcher_MigratesOnlyForPro(t *testing.T) {
	tests := []struct {
		tier       model.Tier
		wantLocal  int
		wantRemote int
		wantReport Report
	}{
		{model.TierFree, 2, 0, Report{}},
		{model.TierExpired, 2, 0, Report{}},
		{model.TierPro, 0, 2, Report{Migrated: 2}},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			m, ls, rs := setup(t, 2)
			w := NewWatcher(&tierSwitch{tier: tt.tier}, m)

			state := w.Resolve(context.Background())
			if state.Tier != tt.tier {
				t.Errorf("Tier = %s, want %s", state.Tier, tt.tier)
			}
			report, err := w.Last()
			if err != nil {
				t.Fatalf("Last() error: %v", err)
			}
			if diff := cmp.Diff(tt.wantReport, report); diff != "" {
				t.Errorf("report mismatch (-want +got):\n%s", diff)
			}
			if localN, remoteN := counts(t, ls, rs); localN != tt.wantLocal || remoteN != tt.wantRemote {
				t.Errorf("local=%d remote=%d, want %d and %d", localN, remoteN, tt.wantLocal, tt.wantRemote)
			}
		})
	}
}

// TestWatcher_FirstProResolutionMigrates covers an upgrade noticed by an
// ordinary read rather than an explicit tier check: whichever resolution
// first sees pro moves the groups, and later ones have nothing to do.
func TestWatcher_FirstProResolutionMigrates(t *testing.T) {
	ctx := context.Background()
	m, ls, rs := setup(t, 2)
	tiers := &tierSwitch{tier: model.TierFree}
	w := NewWatcher(tiers, m)

	w.Resolve(ctx)
	if localN, _ := counts(t, ls, rs); localN != 2 {
		t.Fatalf("free resolution touched local groups: %d left", localN)
	}

	tiers.tier = model.TierPro
	w.Resolve(ctx)
	if localN, remoteN := counts(t, ls, rs); localN != 0 || remoteN != 2 {
		t.Fatalf("after upgrade: local=%d remote=%d, want 0 and 2", localN, remoteN)
	}

	w.Resolve(ctx)
	report, err := w.Last()
	if err != nil || report != (Report{}) {
		t.Errorf("second pro resolution: report=%+v err=%v, want zero", report, err)
	}
	if n := rs.Calls(remote.OpInsertGroup); n != 2 {
		t.Errorf("InsertGroup called %d times, want 2", n)
	}
}

func TestWatcher_RetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	m, ls, rs := setup(t, 2)
	w := NewWatcher(&tierSwitch{tier: model.TierPro}, m)
	rs.FailTimes(remote.OpInsertGroup, errors.New("connection reset"), 1)

	state := w.Resolve(ctx)
	if state.Tier != model.TierPro {
		t.Errorf("Tier = %s, want pro even when migration fails", state.Tier)
	}
	if _, err := w.Last(); !apperrors.IsCode(err, apperrors.CodeMigrationFailed) {
		t.Fatalf("Last() err = %v, want %s", err, apperrors.CodeMigrationFailed)
	}
	if localN, _ := counts(t, ls, rs); localN != 2 {
		t.Fatalf("local groups = %d after failure, want 2", localN)
	}

	w.Resolve(ctx)
	if _, err := w.Last(); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if localN, remoteN := counts(t, ls, rs); localN != 0 || remoteN != 2 {
		t.Errorf("after retry: local=%d remote=%d, want 0 and 2", localN, remoteN)
	}
}
