// Package nodecache implements the per-request node data-loader of
// spec.md §4.3: a (typeName, id) keyed cache of engine.NodeReference,
// deduplicating concurrent requests for the same node within one request
// and caching failures by identity.
//
// Grounded directly on batch/batchcache.go's computeIfAbsent-by-key,
// doneCh-gated design: there, a cache entry is created the first time a
// key is seen and every later caller for that key waits on the same
// entry's doneCh instead of recomputing; here the same shape is
// specialized from batchcache's reflection-driven map[batch.Index]Type to
// the spec's concrete (typeName, id) coordinate, and from a raw doneCh to
// engine.NodeReference's own lifecycle (which already provides the
// wait-once-resolved behavior batchcache got from its doneCh).
package nodecache

import (
	"context"
	"sync"

	"github.com/airbnb/viaduct/engine"
	"github.com/airbnb/viaduct/selection"
)

type key struct {
	typeName, id string
}

type entry struct {
	ref       *engine.NodeReference
	selection *selection.RawSelectionSet // widest selection set resolved against so far
}

// Cache is a per-request node data-loader satisfying engine.NodeCache.
// A Cache must not outlive the request it was created for (spec.md §4.3:
// "destroyed with the request", mirroring NodeReference's own lifetime).
type Cache struct {
	mu      sync.Mutex
	entries map[key]*entry
}

// New creates an empty per-request node cache.
func New() *Cache {
	return &Cache{entries: map[key]*entry{}}
}

// GetOrResolve returns the cached NodeReference for (typeName, id) if one
// already covers selections, otherwise calls resolve to create a fresh
// NodeReference scoped to selections and caches it as the new widest
// entry for that coordinate. Coverage is spec.md §3's selection-set
// coverage relation (selection.RawSelectionSet.Covers); a cache hit whose
// stored selection set does not cover the request is treated as a miss
// rather than attempting to merge the two selection sets, which this
// cache does not support (see DESIGN.md).
func (c *Cache) GetOrResolve(ctx context.Context, typeName, id string, selections *selection.RawSelectionSet, resolve func() *engine.NodeReference) *engine.NodeReference {
	k := key{typeName, id}

	c.mu.Lock()
	e, ok := c.entries[k]
	if ok && covers(e.selection, selections) {
		c.mu.Unlock()
		return e.ref
	}
	ref := resolve()
	c.entries[k] = &entry{ref: ref, selection: selections}
	c.mu.Unlock()
	return ref
}

func covers(cached, requested *selection.RawSelectionSet) bool {
	if cached == nil {
		return requested == nil
	}
	if requested == nil {
		return true
	}
	return cached.Covers(requested)
}
