// Package rss implements the required-selection-set factory and variable
// binding layer of spec.md §4.4: given a resolver's declared bindings, it
// validates them against the resolver's own selection sets and produces a
// RequiredSelectionSet the planner can materialize at request time.
//
// Validation is grounded on thunder's graphql/schemabuilder/function.go
// and reflect.go argument-binding checks, re-expressed as explicit
// builder calls (spec.md §9, "Reified annotations -> data") instead of
// struct-tag reflection.
package rss

import (
	"context"
	"sort"
	"strings"

	"github.com/samsarahq/go/oops"

	"github.com/airbnb/viaduct/schema"
	"github.com/airbnb/viaduct/selection"
)

// Name is a bound variable name.
type Name = string

// Value is a bound variable's runtime value.
type Value = interface{}

// VariablesResolver supplies a set of bound variable values, per spec.md
// §3. It may itself depend on a sub-selection (e.g. a parent-field value)
// expressed via InputRSS.
type VariablesResolver struct {
	VariableNames []Name
	// InputKeys names the keys this resolver reads out of the inputs map
	// passed to Resolve -- an argument name for a BindFromArgument
	// binding, a dotted field path for BindFromObjectField/QueryField, or
	// empty for a BindProvider (which is handed the full argument set).
	// Materialize's caller uses this to know what to pre-fetch.
	InputKeys []Name
	InputRSS  *RequiredSelectionSet // optional
	Resolve   func(ctx context.Context, inputs map[Name]Value) (map[Name]Value, error)
}

func (v VariablesResolver) nameSet() map[Name]struct{} {
	out := make(map[Name]struct{}, len(v.VariableNames))
	for _, n := range v.VariableNames {
		out[n] = struct{}{}
	}
	return out
}

// RequiredSelectionSet is spec.md §3's RSS: a parsed selection tree plus
// the ordered list of VariablesResolvers that together produce every free
// variable of Selections, exactly once each.
type RequiredSelectionSet struct {
	Selections         *selection.ParsedSelections
	VariablesResolvers []VariablesResolver
	ForChecker         bool
	Attribution        string // e.g. "User.fullName" resolver, for error messages
}

// Materialize resolves every VariablesResolver concurrently (conceptually;
// callers that want real concurrency should fan these out themselves using
// package deferred) and returns the combined variable environment used to
// bind r.Selections into a selection.RawSelectionSet. inputsFor is handed
// each VariablesResolver so the caller can build its input map on demand,
// keyed by that resolver's InputKeys (argument names or object/query field
// paths), without Materialize itself knowing where those values live.
func (r *RequiredSelectionSet) Materialize(ctx context.Context, sch *schema.Schema, inputsFor func(VariablesResolver) map[Name]Value) (*selection.RawSelectionSet, error) {
	env := selection.VariableEnv{}
	for _, vr := range r.VariablesResolvers {
		in := inputsFor(vr)
		out, err := vr.Resolve(ctx, in)
		if err != nil {
			return nil, err
		}
		if err := checkProviderOutput(vr, out); err != nil {
			return nil, err
		}
		for k, v := range out {
			env[k] = v
		}
	}
	return selection.NewRawSelectionSet(sch, r.Selections, env), nil
}

// checkProviderOutput implements spec.md §4.4 validation rule 7: a
// VariablesResolver whose output key set differs from its declared key
// set is a runtime error on first evaluation (not a bootstrap error).
func checkProviderOutput(vr VariablesResolver, out map[Name]Value) error {
	declared := vr.nameSet()
	var missing, extra []string
	for n := range declared {
		if _, ok := out[n]; !ok {
			missing = append(missing, n)
		}
	}
	for n := range out {
		if _, ok := declared[n]; !ok {
			extra = append(extra, n)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	sort.Strings(missing)
	sort.Strings(extra)
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing declared variables: "+strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		parts = append(parts, "undeclared extra variables: "+strings.Join(extra, ", "))
	}
	return oops.Errorf("variables provider returned a key set that does not match its declared names (%s)", strings.Join(parts, "; "))
}
