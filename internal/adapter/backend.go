package adapter

import (
	"context"
	"errors"

	"go.uber.org/zap"

	apperrors "github.com/kspeckhals01/browser-tab-manager/internal/errors"
	"github.com/kspeckhals01/browser-tab-manager/internal/local"
	"github.com/kspeckhals01/browser-tab-manager/internal/model"
	"github.com/kspeckhals01/browser-tab-manager/internal/remote"
)

// backend is one place sessions and groups can live. The adapter picks its
// backends once, from the tier, and never branches on the tier again.
type backend interface {
	// kind is the result code reported for successful writes.
	kind() model.Result

	listSessions(ctx context.Context) ([]model.SavedSession, error)
	listGroups(ctx context.Context) ([]model.TabGroup, error)

	saveSession(ctx context.Context, s model.SavedSession) (model.Result, error)
	saveGroup(ctx context.Context, g model.TabGroup) (model.Result, error)

	// deleteSession and deleteGroup report whether a record was removed.
	deleteSession(ctx context.Context, name string) (bool, error)
	deleteGroup(ctx context.Context, name string) (bool, error)

	renameGroup(ctx context.Context, oldName, newName string) (model.Result, error)
	removeTab(ctx context.Context, group string, tabID int) ([]model.Tab, model.Result, error)
}

// localBackend stores records on the device and enforces the free session quota.
type localBackend struct {
	store        *local.Store
	sessionLimit int
	logger       *zap.Logger
}

func (b *localBackend) kind() model.Result { return model.ResultLocal }

func (b *localBackend) listSessions(ctx context.Context) ([]model.SavedSession, error) {
	sessions, err := b.store.Sessions(ctx)
	if err != nil {
		return nil, apperrors.LocalReadFailed("sessions", err)
	}
	return sessions, nil
}

func (b *localBackend) listGroups(ctx context.Context) ([]model.TabGroup, error) {
	groups, err := b.store.Groups(ctx)
	if err != nil {
		return nil, apperrors.LocalReadFailed("groups", err)
	}
	return groups, nil
}

// saveSession checks the quota before the name, so a full collection
// reports limit even for a duplicate name.
func (b *localBackend) saveSession(ctx context.Context, s model.SavedSession) (model.Result, error) {
	existing, err := b.listSessions(ctx)
	if err != nil {
		return model.ResultError, err
	}
	if len(existing) >= b.sessionLimit {
		return model.ResultLimit, nil
	}
	if model.SessionNamed(existing, s.Name) {
		return model.ResultDuplicate, nil
	}
	if err := b.store.AddSession(ctx, s); err != nil {
		return model.ResultError, apperrors.LocalWriteFailed("session", err)
	}
	return model.ResultLocal, nil
}

// saveGroup stores the group without a quota check; callers enforce the
// group quota through Adapter.GroupQuotaReached.
func (b *localBackend) saveGroup(ctx context.Context, g model.TabGroup) (model.Result, error) {
	existing, err := b.listGroups(ctx)
	if err != nil {
		return model.ResultError, err
	}
	if model.GroupNamed(existing, g.Name) {
		return model.ResultDuplicate, nil
	}
	if err := b.store.AddGroup(ctx, g); err != nil {
		return model.ResultError, apperrors.LocalWriteFailed("group", err)
	}
	if err := b.store.IncrementGroupsUsed(ctx); err != nil {
		b.logger.Warn("failed to update local group counter", zap.Error(err))
	}
	return model.ResultLocal, nil
}

func (b *localBackend) deleteSession(ctx context.Context, name string) (bool, error) {
	removed, err := b.store.DeleteSession(ctx, name)
	if err != nil {
		return false, apperrors.LocalWriteFailed("session", err)
	}
	return removed, nil
}

func (b *localBackend) deleteGroup(ctx context.Context, name string) (bool, error) {
	removed, err := b.store.DeleteGroup(ctx, name)
	if err != nil {
		return false, apperrors.LocalWriteFailed("group", err)
	}
	return removed, nil
}

func (b *localBackend) renameGroup(ctx context.Context, oldName, newName string) (model.Result, error) {
	renamed, err := b.store.RenameGroup(ctx, oldName, newName)
	if err != nil {
		return model.ResultError, apperrors.LocalWriteFailed("group", err)
	}
	if !renamed {
		return model.ResultNotFound, nil
	}
	return model.ResultLocal, nil
}

func (b *localBackend) removeTab(ctx context.Context, group string, tabID int) ([]model.Tab, model.Result, error) {
	tabs, found, err := b.store.RemoveTab(ctx, group, tabID)
	if err != nil {
		return nil, model.ResultError, apperrors.LocalWriteFailed("group", err)
	}
	if !found {
		return nil, model.ResultNotFound, nil
	}
	return tabs, model.ResultLocal, nil
}

// remoteBackend stores records in the cloud under one owner and keeps the
// profile usage counters in step. Counter failures are logged, never returned.
type remoteBackend struct {
	store  RemoteStore
	userID string
	logger *zap.Logger
}

func (b *remoteBackend) kind() model.Result { return model.ResultCloud }

// owner returns the user ID, or an auth.required error for op when the
// identity is absent under a cloud tier.
func (b *remoteBackend) owner(op string) (string, error) {
	if b.userID == "" {
		return "", apperrors.IdentityRequired(op)
	}
	return b.userID, nil
}

func (b *remoteBackend) listSessions(ctx context.Context) ([]model.SavedSession, error) {
	user, err := b.owner("listing cloud sessions")
	if err != nil {
		return nil, err
	}
	sessions, err := b.store.ListSessions(ctx, user)
	if err != nil {
		return nil, apperrors.RemoteReadFailed("sessions", err)
	}
	return sessions, nil
}

func (b *remoteBackend) listGroups(ctx context.Context) ([]model.TabGroup, error) {
	user, err := b.owner("listing cloud groups")
	if err != nil {
		return nil, err
	}
	groups, err := b.store.ListGroups(ctx, user)
	if err != nil {
		return nil, apperrors.RemoteReadFailed("groups", err)
	}
	return groups, nil
}

func (b *remoteBackend) saveSession(ctx context.Context, s model.SavedSession) (model.Result, error) {
	user, err := b.owner("saving a cloud session")
	if err != nil {
		return model.ResultError, err
	}
	if err := b.store.InsertSession(ctx, user, s); err != nil {
		if errors.Is(err, remote.ErrDuplicateName) {
			return model.ResultDuplicate, nil
		}
		return model.ResultError, apperrors.RemoteWriteFailed("session", err)
	}
	b.adjust(ctx, model.CounterSessions, +1)
	return model.ResultCloud, nil
}

func (b *remoteBackend) saveGroup(ctx context.Context, g model.TabGroup) (model.Result, error) {
	user, err := b.owner("saving a cloud group")
	if err != nil {
		return model.ResultError, err
	}
	g.Tabs = model.NormalizeTabIDs(g.Tabs)
	if err := b.store.InsertGroup(ctx, user, g); err != nil {
		if errors.Is(err, remote.ErrDuplicateName) {
			return model.ResultDuplicate, nil
		}
		return model.ResultError, apperrors.RemoteWriteFailed("group", err)
	}
	b.adjust(ctx, model.CounterGroups, +1)
	return model.ResultCloud, nil
}

func (b *remoteBackend) deleteSession(ctx context.Context, name string) (bool, error) {
	user, err := b.owner("deleting a cloud session")
	if err != nil {
		return false, err
	}
	deleted, err := b.store.DeleteSession(ctx, user, name)
	if err != nil {
		return false, apperrors.RemoteWriteFailed("session", err)
	}
	if deleted {
		b.adjust(ctx, model.CounterSessions, -1)
	}
	return deleted, nil
}

func (b *remoteBackend) deleteGroup(ctx context.Context, name string) (bool, error) {
	user, err := b.owner("deleting a cloud group")
	if err != nil {
		return false, err
	}
	deleted, err := b.store.DeleteGroup(ctx, user, name)
	if err != nil {
		return false, apperrors.RemoteWriteFailed("group", err)
	}
	if deleted {
		b.adjust(ctx, model.CounterGroups, -1)
	}
	return deleted, nil
}

func (b *remoteBackend) renameGroup(ctx context.Context, oldName, newName string) (model.Result, error) {
	user, err := b.owner("renaming a cloud group")
	if err != nil {
		return model.ResultError, err
	}
	renamed, err := b.store.RenameGroup(ctx, user, oldName, newName)
	switch {
	case errors.Is(err, remote.ErrDuplicateName):
		return model.ResultDuplicate, nil
	case err != nil:
		return model.ResultError, apperrors.RemoteWriteFailed("group", err)
	case !renamed:
		return model.ResultNotFound, nil
	}
	return model.ResultCloud, nil
}

// removeTab loads the group's tabs, filters them and writes the list back.
// A group deleted between the two round trips reports not_found.
func (b *remoteBackend) removeTab(ctx context.Context, group string, tabID int) ([]model.Tab, model.Result, error) {
	user, err := b.owner("editing a cloud group")
	if err != nil {
		return nil, model.ResultError, err
	}

	tabs, err := b.store.GroupTabs(ctx, user, group)
	if errors.Is(err, remote.ErrNotFound) {
		return nil, model.ResultNotFound, nil
	}
	if err != nil {
		return nil, model.ResultError, apperrors.RemoteReadFailed("group", err)
	}

	kept := model.WithoutTab(tabs, tabID)
	err = b.store.SetGroupTabs(ctx, user, group, kept)
	if errors.Is(err, remote.ErrNotFound) {
		return nil, model.ResultNotFound, nil
	}
	if err != nil {
		return nil, model.ResultError, apperrors.RemoteWriteFailed("group", err)
	}
	return kept, model.ResultCloud, nil
}

// adjust moves a usage counter by one. The primary write already happened,
// so a failure here only leaves the display counter stale.
func (b *remoteBackend) adjust(ctx context.Context, c model.Counter, delta int) {
	var err error
	if delta > 0 {
		err = b.store.IncrementCounter(ctx, b.userID, c)
	} else {
		err = b.store.DecrementCounter(ctx, b.userID, c)
	}
	if err != nil {
		b.logger.Warn("failed to update usage counter",
			zap.String("user_id", b.userID),
			zap.String("counter", string(c)),
			zap.Int("delta", delta),
			zap.Error(err))
	}
}
