package exec

import (
	"time"

	"github.com/komodo-io/komodo-core/internal/actionstate"
	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/metrics"
)

// RunSync implements spec §4.8 end to end: load the remote resources,
// reconcile every kind in the fixed execution order, then drain the deploy
// cache. Every modeled kind runs via syncAdapters() in order; ServerTemplates
// (execution-order stage 4) has no modeled kind in this repo's resource set
// and is a no-op here (see DESIGN.md).
func (e *Engine) RunSync(id, operator string) (*domain.Update, error) {
	u, guard, err := e.begin(domain.KindResourceSync, id, actionstate.FlagSyncing, "RunSync", operator)
	if err != nil {
		return nil, err
	}
	defer e.finish(u, guard, domain.KindResourceSync, "RunSync")
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SyncDuration)

	sync, err := e.Store.GetResourceSync(id)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve", err))
		return u, err
	}

	loaded, err := e.loadRemoteResources(sync)
	if err != nil {
		e.Journal.AppendLog(u, logErr("load", err))
		return u, err
	}
	u.CommitHash = loaded.Hash
	for _, l := range loaded.Logs {
		e.Journal.AppendLog(u, l)
	}

	for _, adapter := range e.syncAdapters() {
		entries := entriesForKind(loaded.Resources, adapter.kind)
		diff, err := e.diffKind(sync.Config, adapter, entries)
		if err != nil {
			e.Journal.AppendLog(u, logErr(string(adapter.kind), err))
			continue
		}
		e.Journal.AppendLog(u, e.applyKindDiff(adapter, diff))
	}

	cache, err := e.buildDeployCache(loaded.Resources)
	if err != nil {
		e.Journal.AppendLog(u, logErr("deploy-cache-build", err))
		return u, err
	}
	e.drainDeployCache(cache, u)

	sync.Info.LastSyncHash = loaded.Hash
	sync.Info.LastSyncMessage = loaded.Message
	sync.Info.LastSyncAt = time.Now().UnixMilli()
	sync.Info.LastSyncSuccess = true
	for _, l := range u.Logs {
		if !l.Success {
			sync.Info.LastSyncSuccess = false
			break
		}
	}
	_ = e.Store.UpdateResourceSync(sync)

	return u, nil
}
