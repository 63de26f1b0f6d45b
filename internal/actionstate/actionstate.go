// Package actionstate tracks in-flight operations per resource so that two
// conflicting updates against the same resource can never run concurrently
// (spec §4.2). Grounded on the teacher's pkg/manager.go mutex-guarded map
// idiom, generalized to a per-kind registry of per-id flag sets since Komodo
// has per-operation busy flags (deploying/stopping/...) rather than a single
// busy bit.
package actionstate

import (
	"sync"

	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/komodoerr"
)

// Registry holds, per (kind, id), a set of currently-active flag names.
// Guards never stack: acquiring a flag that is already set returns
// ResourceBusy rather than queueing.
type Registry struct {
	mu    sync.Mutex
	flags map[domain.Kind]map[string]map[string]bool
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{flags: make(map[domain.Kind]map[string]map[string]bool)}
}

// Guard releases its flag exactly once, however the caller's operation
// exits (success, error, or panic).
type Guard struct {
	reg  *Registry
	kind domain.Kind
	id   string
	flag string
	done bool
}

// Release clears the guard's flag. Safe to call multiple times or via defer
// after an explicit early call.
func (g *Guard) Release() {
	if g.done {
		return
	}
	g.done = true
	g.reg.mu.Lock()
	defer g.reg.mu.Unlock()
	if byId, ok := g.reg.flags[g.kind]; ok {
		if flags, ok := byId[g.id]; ok {
			delete(flags, g.flag)
			if len(flags) == 0 {
				delete(byId, g.id)
			}
		}
	}
}

// Acquire sets flag for (kind,id) if not already set, returning a Guard that
// must be released by the caller (typically via defer). Returns
// komodoerr.ResourceBusy if the flag is already held.
func (r *Registry) Acquire(kind domain.Kind, id, flag string) (*Guard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byId, ok := r.flags[kind]
	if !ok {
		byId = make(map[string]map[string]bool)
		r.flags[kind] = byId
	}
	flags, ok := byId[id]
	if !ok {
		flags = make(map[string]bool)
		byId[id] = flags
	}
	if flags[flag] {
		return nil, komodoerr.Wrap(komodoerr.ResourceBusy, "actionstate.Acquire",
			busyErr(kind, id, flag))
	}
	flags[flag] = true
	return &Guard{reg: r, kind: kind, id: id, flag: flag}, nil
}

// IsBusy reports whether flag is currently held for (kind,id), without
// acquiring it. Used by read paths (status display) that should not block
// or mutate state.
func (r *Registry) IsBusy(kind domain.Kind, id, flag string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	byId, ok := r.flags[kind]
	if !ok {
		return false
	}
	flags, ok := byId[id]
	if !ok {
		return false
	}
	return flags[flag]
}

// ActiveFlags returns the currently-held flag names for (kind,id), for
// status reporting.
func (r *Registry) ActiveFlags(kind domain.Kind, id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	byId, ok := r.flags[kind]
	if !ok {
		return nil
	}
	flags, ok := byId[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(flags))
	for f := range flags {
		out = append(out, f)
	}
	return out
}

func busyErr(kind domain.Kind, id, flag string) error {
	return &busy{kind: kind, id: id, flag: flag}
}

type busy struct {
	kind domain.Kind
	id   string
	flag string
}

func (b *busy) Error() string {
	return string(b.kind) + " " + b.id + " is already " + b.flag
}

// Common flag names shared across operations in internal/exec.
const (
	FlagDeploying  = "deploying"
	FlagStarting   = "starting"
	FlagStopping   = "stopping"
	FlagRestarting = "restarting"
	FlagPausing    = "pausing"
	FlagUnpausing  = "unpausing"
	FlagDestroying = "destroying"
	FlagPulling    = "pulling"
	FlagRenaming   = "renaming"
	FlagDeleting   = "deleting"
	FlagSyncing    = "syncing"
	FlagProvision  = "provisioning"
	FlagBuilding   = "building"
)
