package engine

import "sync"

// NodeState tags a NodeReference's lifecycle stage, per spec.md §3.
type NodeState int

const (
	NodeUnresolved NodeState = iota
	NodeResolving
	NodeResolved
	NodeFailed
	NodeChecked
	NodeCheckFailed
)

// NodeReference is spec.md §3's Node reference: created by a resolver
// returning a node ref, mutated exactly once per request by ResolveData
// (idempotent thereafter), destroyed with the request.
type NodeReference struct {
	ID       string
	TypeName string

	mu    sync.Mutex
	state NodeState
	data  *EngineObjectData
	err   error

	resolveOnce func() (*EngineObjectData, error)
	done        chan struct{}
}

// NewNodeReference creates a Node reference in the Unresolved state.
// resolve is invoked at most once, the first time the reference's data is
// needed (by ResolveData or by a Fetch through it).
func NewNodeReference(id, typeName string, resolve func() (*EngineObjectData, error)) *NodeReference {
	return &NodeReference{
		ID:          id,
		TypeName:    typeName,
		resolveOnce: resolve,
		done:        make(chan struct{}),
	}
}

// ResolveData triggers resolution if not already started, and returns
// true the first time it runs the underlying resolve function to
// completion for this call, false on every subsequent call (spec.md §8
// round-trip property (a)).
func (n *NodeReference) ResolveData() bool {
	n.mu.Lock()
	if n.state != NodeUnresolved {
		n.mu.Unlock()
		return false
	}
	n.state = NodeResolving
	n.mu.Unlock()

	data, err := n.resolveOnce()

	n.mu.Lock()
	n.data = data
	n.err = err
	if err != nil {
		n.state = NodeFailed
	} else {
		n.state = NodeResolved
	}
	close(n.done)
	n.mu.Unlock()
	return true
}

// ensureResolved blocks until a resolution has started and completed,
// starting one if none is in flight. Concurrent callers race to be the
// one that actually invokes resolveOnce (ResolveData's own locking
// arbitrates that), but every caller waits on n.done before returning.
func (n *NodeReference) ensureResolved() error {
	n.mu.Lock()
	state := n.state
	n.mu.Unlock()

	if state == NodeUnresolved {
		n.ResolveData()
	}
	<-n.done
	return nil
}

// Data returns the resolved EngineObjectData, or the stored resolution
// error. Must be called after ensureResolved/ResolveData.
func (n *NodeReference) Data() (*EngineObjectData, error) {
	<-n.done
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.data, n.err
}

// State returns the reference's current lifecycle stage.
func (n *NodeReference) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// MarkChecked / MarkCheckFailed record the outcome of a type-level
// checker run against this node (spec.md §4.6), independent of data
// resolution.
func (n *NodeReference) MarkChecked() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == NodeResolved {
		n.state = NodeChecked
	}
}

func (n *NodeReference) MarkCheckFailed(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = NodeCheckFailed
	n.err = err
}
