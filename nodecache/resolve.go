package nodecache

import (
	"context"

	"github.com/airbnb/viaduct/engine"
	"github.com/airbnb/viaduct/selection"
)

// ResolveNode looks up typeName's NodeResolver in dispatch and returns a
// (possibly cached) engine.NodeReference for id, scoped to selections.
// A type with no registered node resolver is the one documented exception
// to "missing dispatcher key returns null" (spec.md §3): it fails with
// engine.MissingNodeResolver instead.
func (c *Cache) ResolveNode(ctx context.Context, dispatch engine.Dispatcher, typeName, id string, selections *selection.RawSelectionSet) *engine.NodeReference {
	resolver, ok := dispatch.NodeResolver(typeName)
	if !ok {
		ref := engine.NewNodeReference(id, typeName, func() (*engine.EngineObjectData, error) {
			return nil, &engine.MissingNodeResolver{TypeName: typeName}
		})
		ref.ResolveData()
		return ref
	}

	return c.GetOrResolve(ctx, typeName, id, selections, func() *engine.NodeReference {
		return engine.NewNodeReference(id, typeName, func() (*engine.EngineObjectData, error) {
			sel := &engine.NodeSelector{ID: id, Selections: selections}
			results := resolver.BatchResolve(ctx, []*engine.NodeSelector{sel})
			res, ok := results[sel]
			if !ok {
				return nil, &engine.InternalEngineException{Message: "node resolver returned no result for its own selector"}
			}
			return res.Value, res.Err
		})
	})
}
