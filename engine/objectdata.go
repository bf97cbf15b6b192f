package engine

import (
	"sync"

	"github.com/airbnb/viaduct/deferred"
)

// backing is the sum type of what an EngineObjectData may be backed by,
// per spec.md §3: a concrete map, a node reference (resolved on first
// touch), a sync proxy, or a chained overlay (for instrumentation).
type backing interface {
	isBacking()
}

type mapBacking struct {
	values map[string]*slot
}

func (mapBacking) isBacking() {}

type nodeBacking struct {
	ref *NodeReference
}

func (nodeBacking) isBacking() {}

// SyncFunc computes a field synchronously, used by the "sync proxy"
// backing for cheap builtin properties (e.g. __typename).
type SyncFunc func(name string) (interface{}, error, bool)

type syncBacking struct {
	fn SyncFunc
}

func (syncBacking) isBacking() {}

type overlayBacking struct {
	base     *EngineObjectData
	override map[string]*slot
}

func (overlayBacking) isBacking() {}

// slot holds one field's eventual value: either a resolved value, a
// stored exception (re-thrown verbatim on access, by identity), or a
// pending Deferred.
type slot struct {
	pending *deferred.Deferred[interface{}]
	err     error
	value   interface{}
	set     bool
}

// EngineObjectData is the lazy, typed handle onto an object's fields
// described in spec.md §3. Resolvers read their parent/query objects
// through it; the planner writes into it as resolvers complete.
type EngineObjectData struct {
	mu      sync.Mutex
	backing backing
}

// NewMapObjectData creates an EngineObjectData backed by an already
// fully-resolved map of field values.
func NewMapObjectData(values map[string]interface{}) *EngineObjectData {
	slots := make(map[string]*slot, len(values))
	for k, v := range values {
		slots[k] = &slot{value: v, set: true}
	}
	return &EngineObjectData{backing: mapBacking{values: slots}}
}

// NewPendingObjectData creates an EngineObjectData with no fields set yet;
// the planner populates it via Set/SetError as resolvers complete.
func NewPendingObjectData() *EngineObjectData {
	return &EngineObjectData{backing: mapBacking{values: map[string]*slot{}}}
}

// NewNodeObjectData creates an EngineObjectData backed by a node
// reference, resolved lazily on first fetch.
func NewNodeObjectData(ref *NodeReference) *EngineObjectData {
	return &EngineObjectData{backing: nodeBacking{ref: ref}}
}

// NewSyncObjectData creates an EngineObjectData backed by a synchronous
// function, used for builtin properties that never suspend.
func NewSyncObjectData(fn SyncFunc) *EngineObjectData {
	return &EngineObjectData{backing: syncBacking{fn: fn}}
}

// Overlay creates an EngineObjectData that reads override first, falling
// back to base -- the "chained overlay" backing used by instrumentation to
// present an amended view of an object without mutating it.
func Overlay(base *EngineObjectData, override map[string]interface{}) *EngineObjectData {
	slots := make(map[string]*slot, len(override))
	for k, v := range override {
		slots[k] = &slot{value: v, set: true}
	}
	return &EngineObjectData{backing: overlayBacking{base: base, override: slots}}
}

// Set records a resolved value for name, completing any pending fetch.
func (o *EngineObjectData) Set(name string, value interface{}) {
	o.setSlot(name, &slot{value: value, set: true})
}

// SetError records a stored exception for name. A later Fetch rethrows
// this exact error value (identity-equal), per spec.md §3 and the
// testable property in spec.md §8 invariant 7.
func (o *EngineObjectData) SetError(name string, err error) {
	o.setSlot(name, &slot{err: err, set: true})
}

// SetPending registers a Deferred that will complete name's value later.
func (o *EngineObjectData) SetPending(name string, pending *deferred.Deferred[interface{}]) {
	s := &slot{pending: pending}
	o.setSlot(name, s)
}

func (o *EngineObjectData) setSlot(name string, s *slot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	mb, ok := o.backing.(mapBacking)
	if !ok {
		// Only map-backed objects are ever mutated directly by the
		// planner; node/sync/overlay backings are read-only views.
		return
	}
	mb.values[name] = s
}

// Fetch suspends until name's value is available (for a pending or
// node-backed selection) and returns it, or returns the stored exception
// verbatim. An unset selection on a map-backed object raises
// UnsetSelection.
func (o *EngineObjectData) Fetch(name string) (interface{}, error) {
	o.mu.Lock()
	b := o.backing
	o.mu.Unlock()

	switch bk := b.(type) {
	case mapBacking:
		o.mu.Lock()
		s, ok := bk.values[name]
		o.mu.Unlock()
		if !ok {
			return nil, &UnsetSelection{Selection: name}
		}
		if s.pending != nil {
			v, err := s.pending.Await()
			return v, err
		}
		return s.value, s.err

	case nodeBacking:
		if err := bk.ref.ensureResolved(); err != nil {
			return nil, err
		}
		data, err := bk.ref.Data()
		if err != nil {
			return nil, err
		}
		return data.Fetch(name)

	case syncBacking:
		v, err, ok := bk.fn(name)
		if !ok {
			return nil, &UnsetSelection{Selection: name}
		}
		return v, err

	case overlayBacking:
		o.mu.Lock()
		s, ok := bk.override[name]
		o.mu.Unlock()
		if ok {
			return s.value, s.err
		}
		return bk.base.Fetch(name)
	}
	return nil, &InternalEngineException{Message: "unknown EngineObjectData backing"}
}

// FetchOrNull is Fetch but converts any error to a nil value, discarding
// the error -- used by checkers that need a best-effort peek.
func (o *EngineObjectData) FetchOrNull(name string) interface{} {
	v, err := o.Fetch(name)
	if err != nil {
		return nil
	}
	return v
}

// FetchSelections fetches a known set of keys, returning the first error
// encountered (if any) alongside whatever values were already available.
func (o *EngineObjectData) FetchSelections(names []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(names))
	for _, n := range names {
		v, err := o.Fetch(n)
		if err != nil {
			return out, err
		}
		out[n] = v
	}
	return out, nil
}
