// Package migrate moves locally stored tab groups into the cloud when a user
// upgrades to pro.
//
// Pro users read groups from the cloud only, so any group still on the
// device once the tier resolves to pro would drop out of view. Watcher
// checks for such groups on every pro resolution; the first one after an
// upgrade moves them, later ones find nothing to do.
package migrate

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kspeckhals01/browser-tab-manager/internal/entitlement"
	apperrors "github.com/kspeckhals01/browser-tab-manager/internal/errors"
	"github.com/kspeckhals01/browser-tab-manager/internal/logging"
	"github.com/kspeckhals01/browser-tab-manager/internal/model"
	"github.com/kspeckhals01/browser-tab-manager/internal/remote"
)

// LocalGroups is the device-side group collection being drained.
type LocalGroups interface {
	Groups(ctx context.Context) ([]model.TabGroup, error)
	ClearGroups(ctx context.Context) error
}

// GroupInserter accepts groups into the cloud.
type GroupInserter interface {
	InsertGroup(ctx context.Context, userID string, g model.TabGroup) error
}

// Report summarizes one migration run.
type Report struct {
	Migrated int // groups inserted into the cloud
	Skipped  int // groups already present in the cloud
}

// Migrator copies local groups to the remote store and then clears them.
type Migrator struct {
	local  LocalGroups
	remote GroupInserter
	logger *zap.Logger
}

// New creates a Migrator.
func New(local LocalGroups, remote GroupInserter, logger *zap.Logger) *Migrator {
	return &Migrator{
		local:  local,
		remote: remote,
		logger: logging.OrNop(logger).Named("migrate"),
	}
}

// Run moves every local group to the cloud under state's identity.
//
// Groups keep their creation time. A group whose name already exists in the
// cloud counts as migrated by an earlier run and is skipped. Local groups are
// cleared only after every group made it across; on failure the local
// collection is left intact and a rerun picks up where this one stopped.
func (m *Migrator) Run(ctx context.Context, state entitlement.State) (Report, error) {
	var report Report

	groups, err := m.local.Groups(ctx)
	if err != nil {
		return report, apperrors.LocalReadFailed("groups", err)
	}
	if len(groups) == 0 {
		return report, nil
	}
	if !state.HasIdentity() {
		return report, apperrors.IdentityRequired("migrating groups")
	}

	logger := m.logger.With(zap.String("user_id", state.UserID))
	for _, g := range groups {
		g.ID = ""
		err := m.remote.InsertGroup(ctx, state.UserID, g)
		switch {
		case errors.Is(err, remote.ErrDuplicateName):
			logger.Info("group already in the cloud, skipping", zap.String("group", g.Name))
			report.Skipped++
		case err != nil:
			logger.Error("group migration stopped",
				zap.String("group", g.Name),
				zap.Int("migrated", report.Migrated),
				zap.Error(err))
			return report, apperrors.MigrationFailed(g.Name, err)
		default:
			report.Migrated++
		}
	}

	if err := m.local.ClearGroups(ctx); err != nil {
		return report, apperrors.LocalWriteFailed("groups", err)
	}
	logger.Info("migrated local groups",
		zap.Int("migrated", report.Migrated),
		zap.Int("skipped", report.Skipped))
	return report, nil
}
