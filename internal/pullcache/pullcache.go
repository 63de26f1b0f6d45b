// Package pullcache coalesces concurrent image pulls against the same
// (server, image) pair behind a single periphery call, caching the result
// for a short TTL window (spec §4.5, §6 "Pull dedup window: 5 s"). Grounded
// on the mutex-guarded map idiom the teacher uses throughout
// pkg/manager/manager.go, extended here with a per-key in-flight wait so
// concurrent callers share one result rather than one call blocking all
// others process-wide.
package pullcache

import (
	"sync"
	"time"

	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/metrics"
)

const ttl = 5 * time.Second

type entry struct {
	mu        sync.Mutex
	result    *domain.Log
	expiresAt time.Time
	inflight  chan struct{}
}

// Cache coalesces PullImage calls keyed by (server, image).
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New builds an empty pull-dedup cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*entry)}
}

func key(serverId, image string) string {
	return serverId + "\x00" + image
}

// PullFunc performs the actual periphery PullImage call.
type PullFunc func() (domain.Log, error)

// PullOrWait returns a cached Log for (serverId, image) if one is still
// within the TTL window; otherwise it either waits for an in-flight call to
// the same key to finish, or performs fn itself and caches the result.
func (c *Cache) PullOrWait(serverId, image string, fn PullFunc) (domain.Log, error) {
	k := key(serverId, image)

	c.mu.Lock()
	e, ok := c.entries[k]
	if !ok {
		e = &entry{}
		c.entries[k] = e
	}
	c.mu.Unlock()

	e.mu.Lock()
	if e.result != nil && time.Now().Before(e.expiresAt) {
		result := *e.result
		e.mu.Unlock()
		metrics.PullCacheHitsTotal.Inc()
		return result, nil
	}
	if e.inflight != nil {
		wait := e.inflight
		e.mu.Unlock()
		<-wait
		e.mu.Lock()
		if e.result != nil {
			result := *e.result
			e.mu.Unlock()
			return result, nil
		}
		e.mu.Unlock()
		// The leader call failed and cleared state; fall through to retry.
		return c.PullOrWait(serverId, image, fn)
	}

	done := make(chan struct{})
	e.inflight = done
	e.mu.Unlock()

	log, err := fn()

	e.mu.Lock()
	e.inflight = nil
	if err == nil {
		e.result = &log
		e.expiresAt = time.Now().Add(ttl)
	}
	e.mu.Unlock()
	close(done)

	return log, err
}
