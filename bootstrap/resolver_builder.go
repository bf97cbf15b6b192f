package bootstrap

import (
	"context"

	"github.com/samsarahq/go/oops"

	"github.com/airbnb/viaduct/engine"
	"github.com/airbnb/viaduct/rss"
	"github.com/airbnb/viaduct/selection"
)

// ResolverBuilder accumulates one field resolver's RSS bindings and
// resolution function before Module.Resolver turns it into an
// engine.FieldResolver, mirroring spec.md §6's `resolver {…}` grammar.
type ResolverBuilder struct {
	objectSelections *selection.ParsedSelections
	querySelections  *selection.ParsedSelections
	bindings         []rss.VariableBinding

	fn      func(ctx context.Context, args map[string]interface{}, obj, qry *engine.EngineObjectData, sel *selection.RawSelectionSet) (interface{}, error)
	batchFn func(ctx context.Context, selectors []*engine.Selector) map[*engine.Selector]engine.Result[interface{}]
}

// Resolver starts a new ResolverBuilder.
func Resolver() *ResolverBuilder {
	return &ResolverBuilder{}
}

// ObjectSelections attaches the required-selection-set this resolver
// reads from its parent object, per spec.md §4.4.
func (b *ResolverBuilder) ObjectSelections(p *selection.ParsedSelections) *ResolverBuilder {
	b.objectSelections = p
	return b
}

// QuerySelections attaches the required-selection-set this resolver reads
// from the query root, per spec.md §4.4.
func (b *ResolverBuilder) QuerySelections(p *selection.ParsedSelections) *ResolverBuilder {
	b.querySelections = p
	return b
}

// BindArgument declares that variable varName is bound to the field's
// own argument argName.
func (b *ResolverBuilder) BindArgument(varName, argName string) *ResolverBuilder {
	b.bindings = append(b.bindings, rss.VariableBinding{Kind: rss.BindFromArgument, VarName: varName, ArgName: argName})
	return b
}

// BindObjectField declares that variable varName is bound to the dotted
// path into the resolver's ObjectSelections.
func (b *ResolverBuilder) BindObjectField(varName, path string) *ResolverBuilder {
	b.bindings = append(b.bindings, rss.VariableBinding{Kind: rss.BindFromObjectField, VarName: varName, Path: path})
	return b
}

// BindQueryField declares that variable varName is bound to the dotted
// path into the resolver's QuerySelections.
func (b *ResolverBuilder) BindQueryField(varName, path string) *ResolverBuilder {
	b.bindings = append(b.bindings, rss.VariableBinding{Kind: rss.BindFromQueryField, VarName: varName, Path: path})
	return b
}

// BindProvider declares that every name in names is computed together by
// fn, given the field's own arguments.
func (b *ResolverBuilder) BindProvider(names []string, fn func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error)) *ResolverBuilder {
	b.bindings = append(b.bindings, rss.VariableBinding{Kind: rss.BindProvider, ProviderNames: names, ProviderFn: fn})
	return b
}

// Fn registers a single-selector resolution function, per spec.md §6's
// `fn { args, obj, query, selections, ctx -> value }`.
func (b *ResolverBuilder) Fn(fn func(ctx context.Context, args map[string]interface{}, obj, qry *engine.EngineObjectData, sel *selection.RawSelectionSet) (interface{}, error)) *ResolverBuilder {
	b.fn = fn
	return b
}

// BatchFn registers a batching resolution function: one call per tick,
// covering every selector enqueued for this resolver since the last flush.
func (b *ResolverBuilder) BatchFn(fn func(ctx context.Context, selectors []*engine.Selector) map[*engine.Selector]engine.Result[interface{}]) *ResolverBuilder {
	b.batchFn = fn
	return b
}

func (b *ResolverBuilder) build(id, attribution string) (*engine.FieldResolver, error) {
	built, err := rss.Build(rss.Spec{
		ObjectSelections: b.objectSelections,
		QuerySelections:  b.querySelections,
		Bindings:         b.bindings,
		Attribution:      attribution,
	})
	if err != nil {
		return nil, err
	}

	fr := &engine.FieldResolver{
		ResolverID:  id,
		IsBatching:  b.batchFn != nil,
	}
	if built != nil {
		fr.ObjectSelections = built.ObjectSelections
		fr.QuerySelections = built.QuerySelections
	}

	switch {
	case b.batchFn != nil:
		fr.BatchResolve = b.batchFn
	case b.fn != nil:
		fn := b.fn
		fr.BatchResolve = func(ctx context.Context, selectors []*engine.Selector) map[*engine.Selector]engine.Result[interface{}] {
			out := make(map[*engine.Selector]engine.Result[interface{}], len(selectors))
			for _, sel := range selectors {
				v, err := fn(ctx, sel.Arguments, sel.ObjectValue, sel.QueryValue, sel.Selections)
				out[sel] = engine.Result[interface{}]{Value: v, Err: err}
			}
			return out
		}
	default:
		return nil, oops.Errorf("%s: resolver declares neither Fn nor BatchFn", attribution)
	}
	return fr, nil
}
