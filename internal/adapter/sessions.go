package adapter

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kspeckhals01/browser-tab-manager/internal/model"
)

// Sessions returns every session visible under the tier. For expired users
// the remote sessions come first, followed by the local ones.
func (a *Adapter) Sessions(ctx context.Context) ([]model.SavedSession, error) {
	return collect(ctx, a.reads, backend.listSessions)
}

// SessionCount returns the number of sessions Sessions would return.
func (a *Adapter) SessionCount(ctx context.Context) (int, error) {
	sessions, err := a.Sessions(ctx)
	if err != nil {
		return 0, err
	}
	return len(sessions), nil
}

// SaveSession stores a snapshot of tabs under name.
//
// Pro users save to the cloud. Everyone else saves on the device, where the
// free quota applies to the local collection only: an expired user with
// cloud sessions can still save locally until the local count is full.
func (a *Adapter) SaveSession(ctx context.Context, name string, tabs []model.Tab) (model.Result, error) {
	name, err := validName("session", name)
	if err != nil {
		return model.ResultError, err
	}

	session := model.SavedSession{
		Name:      name,
		CreatedAt: a.now().UTC(),
		Tabs:      nonNilTabs(tabs),
	}
	result, err := a.writer.saveSession(ctx, session)
	if err != nil {
		a.logger.Error("failed to save session", zap.String("name", name), zap.Error(err))
		return model.ResultError, err
	}
	a.logger.Debug("session saved", zap.String("name", name), zap.String("result", string(result)))
	return result, nil
}

// DeleteSession removes the session named name from wherever it lives.
// A cloud copy takes precedence over a local one with the same name.
func (a *Adapter) DeleteSession(ctx context.Context, name string) (model.Result, error) {
	name, err := validName("session", name)
	if err != nil {
		return model.ResultError, err
	}

	inLocal, inCloud, err := locate(ctx, a, backend.listSessions, model.SessionNamed, name)
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

	removed, err := target.deleteSession(ctx, name)
	if err != nil {
		a.logger.Error("failed to delete session", zap.String("name", name), zap.Error(err))
		return model.ResultError, err
	}
	if !removed {
		return model.ResultNotFound, nil
	}
	return target.kind(), nil
}

// locate reports which collections hold name. The remote collection is only
// consulted for a signed-in user on a cloud tier. Both lookups run together.
func locate[T any](ctx context.Context, a *Adapter, list func(backend, context.Context) ([]T, error), named func([]T, string) bool, name string) (inLocal, inCloud bool, err error) {
	backends := []backend{a.local}
	if a.cloudMember() {
		backends = append(backends, a.cloud)
	}

	found := make([]bool, len(backends))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range backends {
		i, b := i, b
		g.Go(func() error {
			items, err := list(b, gctx)
			if err != nil {
				return err
			}
			found[i] = named(items, name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, false, err
	}

	inLocal = found[0]
	if len(found) > 1 {
		inCloud = found[1]
	}
	return inLocal, inCloud, nil
}

func nonNilTabs(tabs []model.Tab) []model.Tab {
	if tabs == nil {
		return []model.Tab{}
	}
	return tabs
}
