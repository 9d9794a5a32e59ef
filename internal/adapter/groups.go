package adapter

import (
	"context"

	"go.uber.org/zap"

	"github.com/kspeckhals01/browser-tab-manager/internal/model"
)

// Groups returns every tab group visible under the tier, remote first.
func (a *Adapter) Groups(ctx context.Context) ([]model.TabGroup, error) {
	return collect(ctx, a.reads, backend.listGroups)
}

// GroupCount returns the number of groups Groups would return.
func (a *Adapter) GroupCount(ctx context.Context) (int, error) {
	groups, err := a.Groups(ctx)
	if err != nil {
		return 0, err
	}
	return len(groups), nil
}

// GroupQuotaReached reports whether a free or expired user already holds the
// maximum number of local groups. SaveGroup does not enforce the quota
// itself; callers check it first.
func (a *Adapter) GroupQuotaReached(ctx context.Context) (bool, error) {
	if a.writer.kind() == model.ResultCloud {
		return false, nil
	}
	groups, err := a.local.listGroups(ctx)
	if err != nil {
		return false, err
	}
	return len(groups) >= a.groupLimit, nil
}

// SaveGroup stores tabs as a new group named name. Pro users save to the
// cloud, where tab IDs are normalized first; everyone else saves locally.
func (a *Adapter) SaveGroup(ctx context.Context, name string, tabs []model.Tab) (model.Result, error) {
	name, err := validName("group", name)
	if err != nil {
		return model.ResultError, err
	}

	group := model.TabGroup{
		Name:      name,
		CreatedAt: a.now().UTC(),
		Tabs:      nonNilTabs(tabs),
	}
	result, err := a.writer.saveGroup(ctx, group)
	if err != nil {
		a.logger.Error("failed to save group", zap.String("name", name), zap.Error(err))
		return model.ResultError, err
	}
	return result, nil
}

// DeleteGroup removes the group named name from wherever it lives.
// A cloud copy takes precedence over a local one with the same name.
func (a *Adapter) DeleteGroup(ctx context.Context, name string) (model.Result, error) {
	name, err := validName("group", name)
	if err != nil {
		return model.ResultError, err
	}

	inLocal, inCloud, err := locate(ctx, a, backend.listGroups, model.GroupNamed, name)
	if err != nil {
		return model.ResultError, err
	}

	var target backend
	switch {
	case inCloud:
		target = a.cloud
	case inLocal:
		target = a.local
	default:
		return model.ResultNotFound, nil
	}

	removed, err := target.deleteGroup(ctx, name)
	if err != nil {
		a.logger.Error("failed to delete group", zap.String("name", name), zap.Error(err))
		return model.ResultError, err
	}
	if !removed {
		return model.ResultNotFound, nil
	}
	return target.kind(), nil
}

// RenameGroup relabels the group named oldName. In the cloud a clash with
// an existing name reports duplicate; on the device the first group named
// oldName is relabelled regardless.
func (a *Adapter) RenameGroup(ctx context.Context, oldName, newName string) (model.Result, error) {
	oldName, err := validName("group", oldName)
	if err != nil {
		return model.ResultError, err
	}
	newName, err = validName("group", newName)
	if err != nil {
		return model.ResultError, err
	}

	result, err := a.editor.renameGroup(ctx, oldName, newName)
	if err != nil {
		a.logger.Error("failed to rename group",
			zap.String("old_name", oldName),
			zap.String("new_name", newName),
			zap.Error(err))
		return model.ResultError, err
	}
	return result, nil
}

// RemoveTabFromGroup drops every tab with tabID from the named group and
// returns the remaining tabs.
func (a *Adapter) RemoveTabFromGroup(ctx context.Context, group string, tabID int) ([]model.Tab, model.Result, error) {
	group, err := validName("group", group)
	if err != nil {
		return nil, model.ResultError, err
	}

	tabs, result, err := a.editor.removeTab(ctx, group, tabID)
	if err != nil {
		a.logger.Error("failed to remove tab from group",
			zap.String("group", group),
			zap.Int("tab_id", tabID),
			zap.Error(err))
		return nil, model.ResultError, err
	}
	return tabs, result, nil
}
