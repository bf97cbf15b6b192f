// Package bootstrap implements the registration DSL of spec.md §6: a
// module declares, per field coordinate, a constant value, a resolver
// (single or batching), a checker (field- or type-scoped), or a node
// resolver, and Build assembles the result into a dispatcher.Registry.
//
// Grounded on thunder's graphql/schemabuilder/schema.go fluent builder
// (Schema.Object(name).FieldFunc(name, fn)); generalized here from Go
// struct/reflection-driven field discovery to the spec's explicit,
// resolver-class-as-data model (spec.md §9's "reified annotations ->
// data"): a Module accumulates ResolverSpec/CheckerSpec/NodeSpec values
// keyed by coordinate instead of walking a struct's fields by reflection.
package bootstrap

import (
	"context"

	"github.com/samsarahq/go/oops"

	"github.com/airbnb/viaduct/dispatcher"
	"github.com/airbnb/viaduct/engine"
	"github.com/airbnb/viaduct/selection"
)

// Module is one tenant's namespaced bundle of registrations, built up by
// fluent calls and turned into a dispatcher.TenantModuleBootstrapper.
type Module struct {
	name string

	fields        map[dispatcher.FieldCoordinate]*engine.FieldResolver
	nodeResolvers map[string]*engine.NodeResolver
	fieldCheckers map[dispatcher.FieldCoordinate]*engine.CheckerExecutor
	typeCheckers  map[string]*engine.CheckerExecutor

	errs []error
}

// NewModule starts a new registration bundle named for error messages and
// module-vs-module provenance (spec.md §4.5).
func NewModule(name string) *Module {
	return &Module{
		name:          name,
		fields:        map[dispatcher.FieldCoordinate]*engine.FieldResolver{},
		nodeResolvers: map[string]*engine.NodeResolver{},
		fieldCheckers: map[dispatcher.FieldCoordinate]*engine.CheckerExecutor{},
		typeCheckers:  map[string]*engine.CheckerExecutor{},
	}
}

func (m *Module) fail(err error) {
	m.errs = append(m.errs, err)
}

// Value registers a constant-valued resolver at (typeName, fieldName):
// spec.md §6's `value(coord, v)`.
func (m *Module) Value(typeName, fieldName string, v interface{}) *Module {
	return m.ValueFromContext(typeName, fieldName, func(ctx context.Context) (interface{}, error) {
		return v, nil
	})
}

// ValueFromContext registers a resolver computed from the request context
// alone, with no object/query RSS: spec.md §6's `valueFromContext(coord, fn)`.
func (m *Module) ValueFromContext(typeName, fieldName string, fn func(ctx context.Context) (interface{}, error)) *Module {
	coord := dispatcher.FieldCoordinate{TypeName: typeName, FieldName: fieldName}
	m.fields[coord] = &engine.FieldResolver{
		ResolverID: resolverID(typeName, fieldName),
		BatchResolve: func(ctx context.Context, selectors []*engine.Selector) map[*engine.Selector]engine.Result[interface{}] {
			out := make(map[*engine.Selector]engine.Result[interface{}], len(selectors))
			for _, sel := range selectors {
				v, err := fn(ctx)
				out[sel] = engine.Result[interface{}]{Value: v, Err: err}
			}
			return out
		},
	}
	return m
}

// Resolver registers a (possibly RSS-bound, possibly batching) field
// resolver built by a ResolverBuilder: spec.md §6's `resolver {…}`.
func (m *Module) Resolver(typeName, fieldName string, b *ResolverBuilder) *Module {
	attribution := typeName + "." + fieldName
	fr, err := b.build(resolverID(typeName, fieldName), attribution)
	if err != nil {
		m.fail(oops.Wrapf(err, "registering resolver %s", attribution))
		return m
	}
	m.fields[dispatcher.FieldCoordinate{TypeName: typeName, FieldName: fieldName}] = fr
	return m
}

// FieldChecker registers a field-scoped access checker: spec.md §6's
// `checker {…}` attached to a single field coordinate.
func (m *Module) FieldChecker(typeName, fieldName string, b *CheckerBuilder) *Module {
	attribution := typeName + "." + fieldName + " (field checker)"
	ck, err := b.build(attribution)
	if err != nil {
		m.fail(oops.Wrapf(err, "registering checker %s", attribution))
		return m
	}
	m.fieldCheckers[dispatcher.FieldCoordinate{TypeName: typeName, FieldName: fieldName}] = ck
	return m
}

// TypeChecker registers a type-scoped access checker, applied to every
// field reading from a node of typeName (spec.md §4.6).
func (m *Module) TypeChecker(typeName string, b *CheckerBuilder) *Module {
	attribution := typeName + " (type checker)"
	ck, err := b.build(attribution)
	if err != nil {
		m.fail(oops.Wrapf(err, "registering checker %s", attribution))
		return m
	}
	m.typeCheckers[typeName] = ck
	return m
}

// Type registers a node resolver for typeName: spec.md §6's
// `type("Name") { nodeBatchedExecutor(...) }` / `nodeUnbatchedExecutor`.
func (m *Module) Type(typeName string, b *NodeBuilder) *Module {
	m.nodeResolvers[typeName] = b.build(typeName)
	return m
}

// Build turns the accumulated registrations into a
// dispatcher.TenantModuleBootstrapper, or fails with every accumulated
// BootstrapError joined (spec.md §7's BootstrapError: "assembly fails;
// deploy fails").
func (m *Module) Build() (dispatcher.TenantModuleBootstrapper, error) {
	if len(m.errs) > 0 {
		return dispatcher.TenantModuleBootstrapper{}, &engine.BootstrapError{Message: oops.Errorf("module %q: %v", m.name, m.errs).Error()}
	}
	return dispatcher.TenantModuleBootstrapper{
		Name:          m.name,
		Fields:        m.fields,
		NodeResolvers: m.nodeResolvers,
		FieldCheckers: m.fieldCheckers,
		TypeCheckers:  m.typeCheckers,
	}, nil
}

func resolverID(typeName, fieldName string) string {
	return typeName + "." + fieldName
}

// selections is a tiny package-internal convenience constructor,
// selections("User"), wrapping selection.NewParsedSelections; it takes
// no selection-set text and returns an empty tree. GraphQL selection-set text
// parsing itself is a documented out-of-scope collaborator (spec.md §1),
// so this only tags an already-parsed selection for a given root type.
func selections(rootType string) *selection.ParsedSelections {
	return selection.NewParsedSelections(rootType)
}
