// Package dispatcher assembles the four lookup tables spec.md §4.5/§3
// describes -- field resolvers, node resolvers, field checkers, and type
// checkers -- into a Registry satisfying engine.Dispatcher.
//
// Grounded on thunder's graphql/schemabuilder/schema.go and build.go,
// which assemble a Schema's Object/Field maps from a list of registered
// builder calls at NewSchema/Build time; Registry generalizes that
// object/field map assembly to the spec's four maps and rejects
// duplicate registrations the same way schemabuilder.Object.FieldFunc
// panics on a re-registered field name (here: returned as a
// BootstrapError instead of a panic).
package dispatcher

import (
	"fmt"

	"github.com/airbnb/viaduct/engine"
)

type coordinate struct {
	typeName, name string
}

// Registry is the assembled dispatcher: once built it is read-only and
// safe for concurrent use by many requests, matching thunder's built
// *Schema being shared across every request.
type Registry struct {
	fields        map[coordinate]*engine.FieldResolver
	nodeResolvers map[string]*engine.NodeResolver
	fieldCheckers map[coordinate]*engine.CheckerExecutor
	typeCheckers  map[string]*engine.CheckerExecutor
}

// Builder assembles a Registry from a sequence of registration calls,
// rejecting any duplicate coordinate at Build time (spec.md §4.5).
type Builder struct {
	reg  *Registry
	errs []error
}

// NewBuilder starts an empty registry assembly.
func NewBuilder() *Builder {
	return &Builder{reg: &Registry{
		fields:        map[coordinate]*engine.FieldResolver{},
		nodeResolvers: map[string]*engine.NodeResolver{},
		fieldCheckers: map[coordinate]*engine.CheckerExecutor{},
		typeCheckers:  map[string]*engine.CheckerExecutor{},
	}}
}

// Field registers resolver to serve typeName.fieldName.
func (b *Builder) Field(typeName, fieldName string, resolver *engine.FieldResolver) *Builder {
	c := coordinate{typeName, fieldName}
	if _, dup := b.reg.fields[c]; dup {
		b.errs = append(b.errs, fmt.Errorf("duplicate field resolver registered for %s.%s", typeName, fieldName))
		return b
	}
	b.reg.fields[c] = resolver
	return b
}

// Node registers resolver as typeName's node resolver.
func (b *Builder) Node(typeName string, resolver *engine.NodeResolver) *Builder {
	if _, dup := b.reg.nodeResolvers[typeName]; dup {
		b.errs = append(b.errs, fmt.Errorf("duplicate node resolver registered for type %q", typeName))
		return b
	}
	b.reg.nodeResolvers[typeName] = resolver
	return b
}

// FieldChecker registers checker to guard typeName.fieldName.
func (b *Builder) FieldChecker(typeName, fieldName string, checker *engine.CheckerExecutor) *Builder {
	c := coordinate{typeName, fieldName}
	if _, dup := b.reg.fieldCheckers[c]; dup {
		b.errs = append(b.errs, fmt.Errorf("duplicate field checker registered for %s.%s", typeName, fieldName))
		return b
	}
	b.reg.fieldCheckers[c] = checker
	return b
}

// TypeChecker registers checker to guard every field read off a resolved
// node of typeName (spec.md §4.6's "combined-error-on-every-reading-field"
// plane).
func (b *Builder) TypeChecker(typeName string, checker *engine.CheckerExecutor) *Builder {
	if _, dup := b.reg.typeCheckers[typeName]; dup {
		b.errs = append(b.errs, fmt.Errorf("duplicate type checker registered for type %q", typeName))
		return b
	}
	b.reg.typeCheckers[typeName] = checker
	return b
}

// Build finalizes the Registry, or returns every duplicate-registration
// error collected during assembly, joined per spec.md §7's bootstrap
// error handling (not recoverable per-request).
func (b *Builder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, joinErrors(b.errs)
	}
	return b.reg, nil
}

func joinErrors(errs []error) error {
	msg := ""
	for i, e := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += e.Error()
	}
	return &engine.BootstrapError{Message: "dispatcher bootstrap failed: " + msg}
}

func (r *Registry) FieldResolver(typeName, fieldName string) (*engine.FieldResolver, bool) {
	f, ok := r.fields[coordinate{typeName, fieldName}]
	return f, ok
}

func (r *Registry) NodeResolver(typeName string) (*engine.NodeResolver, bool) {
	n, ok := r.nodeResolvers[typeName]
	return n, ok
}

func (r *Registry) FieldChecker(typeName, fieldName string) (*engine.CheckerExecutor, bool) {
	c, ok := r.fieldCheckers[coordinate{typeName, fieldName}]
	return c, ok
}

func (r *Registry) TypeChecker(typeName string) (*engine.CheckerExecutor, bool) {
	c, ok := r.typeCheckers[typeName]
	return c, ok
}
