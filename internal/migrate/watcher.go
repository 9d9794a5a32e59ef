package migrate

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kspeckhals01/browser-tab-manager/internal/entitlement"
	"github.com/kspeckhals01/browser-tab-manager/internal/model"
)

// Resolver produces the current entitlement state.
type Resolver interface {
	Resolve(ctx context.Context) entitlement.State
}

// Watcher wraps a Resolver and drains local groups into the cloud whenever a
// resolution comes back pro. It satisfies adapter.TierResolver, so every
// adapter built through it migrates before its first read.
//
// The trigger is the pro state plus pending local groups; the cached tier
// hint plays no part. A failed run leaves the local groups in place and the
// next resolution retries.
type Watcher struct {
	resolver Resolver
	migrator *Migrator

	// mu serializes resolve-and-migrate so concurrent bridge requests do
	// not insert the same groups twice.
	mu     sync.Mutex
	report Report
	err    error
}

// NewWatcher returns a Watcher that resolves through r and migrates with m.
func NewWatcher(r Resolver, m *Migrator) *Watcher {
	return &Watcher{resolver: r, migrator: m}
}

// Resolve resolves the tier and, for pro users, moves any local groups to the
// cloud before returning. Migration failures are logged and kept for Last;
// the resolved state is returned either way.
func (w *Watcher) Resolve(ctx context.Context) entitlement.State {
	w.mu.Lock()
	defer w.mu.Unlock()

	state := w.resolver.Resolve(ctx)
	w.report, w.err = Report{}, nil
	if state.Tier != model.TierPro {
		return state
	}

	w.report, w.err = w.migrator.Run(ctx, state)
	if w.err != nil {
		w.migrator.logger.Warn("local groups not migrated, retrying on next resolution",
			zap.String("user_id", state.UserID),
			zap.Int("migrated", w.report.Migrated),
			zap.Error(w.err))
	}
	return state
}

// Last returns the outcome of the migration attempted by the most recent
// Resolve. The report is zero when nothing was pending or the tier was not pro.
func (w *Watcher) Last() (Report, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.report, w.err
}
