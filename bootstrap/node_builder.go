package bootstrap

import (
	"context"

	"github.com/airbnb/viaduct/engine"
)

// NodeBuilder declares a node resolver, per spec.md §6's
// `type("Name") { nodeBatchedExecutor(selective=…) {…} }` /
// `nodeUnbatchedExecutor`.
type NodeBuilder struct {
	selective    bool
	batchFn      func(ctx context.Context, selectors []*engine.NodeSelector) map[*engine.NodeSelector]engine.Result[*engine.EngineObjectData]
	unbatchedFn  func(ctx context.Context, sel *engine.NodeSelector) (*engine.EngineObjectData, error)
}

// Type starts a new NodeBuilder.
func Type() *NodeBuilder {
	return &NodeBuilder{}
}

// NodeBatchedExecutor registers a batch node resolver. selective marks
// whether the resolver honors the caller's sub-selection (spec.md §4.3's
// "IsSelective") or always fetches the full node regardless of what was
// asked for.
func (b *NodeBuilder) NodeBatchedExecutor(selective bool, fn func(ctx context.Context, selectors []*engine.NodeSelector) map[*engine.NodeSelector]engine.Result[*engine.EngineObjectData]) *NodeBuilder {
	b.selective = selective
	b.batchFn = fn
	return b
}

// NodeUnbatchedExecutor registers a one-id-at-a-time node resolver,
// wrapped into the batching shape the dispatcher expects (one call per
// selector, looped in registration order).
func (b *NodeBuilder) NodeUnbatchedExecutor(selective bool, fn func(ctx context.Context, sel *engine.NodeSelector) (*engine.EngineObjectData, error)) *NodeBuilder {
	b.selective = selective
	b.unbatchedFn = fn
	return b
}

func (b *NodeBuilder) build(typeName string) *engine.NodeResolver {
	nr := &engine.NodeResolver{TypeName: typeName, IsSelective: b.selective}
	switch {
	case b.batchFn != nil:
		nr.IsBatching = true
		nr.BatchResolve = b.batchFn
	case b.unbatchedFn != nil:
		fn := b.unbatchedFn
		nr.BatchResolve = func(ctx context.Context, selectors []*engine.NodeSelector) map[*engine.NodeSelector]engine.Result[*engine.EngineObjectData] {
			out := make(map[*engine.NodeSelector]engine.Result[*engine.EngineObjectData], len(selectors))
			for _, sel := range selectors {
				v, err := fn(ctx, sel)
				out[sel] = engine.Result[*engine.EngineObjectData]{Value: v, Err: err}
			}
			return out
		}
	}
	return nr
}
