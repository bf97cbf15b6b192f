// Package selection models parsed GraphQL selection sets at two levels:
// ParsedSelections (pure AST, no variables substituted) and
// RawSelectionSet (a ParsedSelections paired with a concrete variable
// environment and schema), per spec.md §3.
//
// The Selection/Fragment shape is grounded on thunder's
// graphql/types.go (SelectionSet/Selection/Fragment) and the
// fragment-flattening idiom of graph-gophers/graphql-go's
// internal/exec/selected package (retrieved in other_examples),
// generalized to carry inline-fragment type conditions and directives.
package selection

import (
	"sort"

	"github.com/airbnb/viaduct/schema"
)

// Field is one leaf or composite selection: `alias: name(args) { sub }`.
type Field struct {
	Name         string
	Alias        string
	Arguments    []schema.ObjectField // raw literals/variable refs, pre-binding
	Directives   []schema.DirectiveApplication
	SubSelection *ParsedSelections // nil for a leaf scalar/enum selection
}

// OutputName is the key this field occupies in the response object.
func (f Field) OutputName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// InlineFragment is `... on Type { sub }` or a bare `... { sub }`.
type InlineFragment struct {
	TypeCondition string // empty means "no narrowing"
	Directives    []schema.DirectiveApplication
	SubSelection  *ParsedSelections
}

// FragmentSpread is `...Name`; the referenced definition lives in the
// owning ParsedSelections' Fragments map so that distinct spreads of the
// same fragment share one parsed body.
type FragmentSpread struct {
	Name       string
	Directives []schema.DirectiveApplication
}

// FragmentDef is a named fragment definition: `fragment Name on Type { ... }`.
type FragmentDef struct {
	Name          string
	TypeCondition string
	SubSelection  *ParsedSelections
}

// ParsedSelections is a schema-aware, variable-free selection tree rooted
// at a named type (spec.md §3). It is pure AST: selection conditions that
// depend on variables (@skip/@include args, list/null arguments) are
// resolved only once a RawSelectionSet binds a variable environment.
type ParsedSelections struct {
	RootType   string
	Fields     []Field
	Inline     []InlineFragment
	Spreads    []FragmentSpread
	Fragments  map[string]*FragmentDef // named fragment definitions in scope
}

// NewParsedSelections creates an empty selection tree rooted at typeName.
func NewParsedSelections(typeName string) *ParsedSelections {
	return &ParsedSelections{RootType: typeName, Fragments: map[string]*FragmentDef{}}
}

// VariableEnv is a resolved set of GraphQL variable values for one
// request, used to evaluate @skip/@include and field arguments.
type VariableEnv map[string]interface{}

// FreeVariables collects every variable name referenced (directly as a
// field argument value, or via @skip/@include "if" arguments) anywhere in
// the selection tree, including inside named-fragment bodies reached by a
// spread. Used by the RSS layer to check spec.md §3's RSS invariant that
// a resolver's declared variables exactly cover the free variables of its
// selections.
func (p *ParsedSelections) FreeVariables() map[string]struct{} {
	out := map[string]struct{}{}
	p.collectFreeVariables(out, map[string]bool{})
	return out
}

func (p *ParsedSelections) collectFreeVariables(out map[string]struct{}, visiting map[string]bool) {
	for _, f := range p.Fields {
		collectArgVariables(f.Arguments, out)
		collectDirectiveVariables(f.Directives, out)
		if f.SubSelection != nil {
			f.SubSelection.collectFreeVariables(out, visiting)
		}
	}
	for _, inl := range p.Inline {
		collectDirectiveVariables(inl.Directives, out)
		if inl.SubSelection != nil {
			inl.SubSelection.collectFreeVariables(out, visiting)
		}
	}
	for _, sp := range p.Spreads {
		collectDirectiveVariables(sp.Directives, out)
		if visiting[sp.Name] {
			continue // guard against (invalid, but defensive) fragment cycles
		}
		if def, ok := p.Fragments[sp.Name]; ok && def.SubSelection != nil {
			visiting[sp.Name] = true
			def.SubSelection.collectFreeVariables(out, visiting)
			visiting[sp.Name] = false
		}
	}
}

func collectArgVariables(args []schema.ObjectField, out map[string]struct{}) {
	for _, a := range args {
		collectLiteralVariables(a.Value, out)
	}
}

// variableRefMarker is the literal encoding this module uses for a bare
// `$name` reference inside an argument/literal position: an EnumLit whose
// name begins with "$" is never a legal GraphQL enum value, so it is a
// safe, allocation-free sentinel that round-trips through schema.Literal
// without requiring a dedicated Literal variant (spec.md's Literal sum
// type is closed over the eight kinds listed in §3).
const variableRefPrefix = "$"

func collectLiteralVariables(l schema.Literal, out map[string]struct{}) {
	if name, ok := l.AsString(); ok && l.Kind() == schema.KindEnum {
		if trimmed, isVar := trimVariableRef(name); isVar {
			out[trimmed] = struct{}{}
			return
		}
	}
	if items, ok := l.Items(); ok {
		for _, item := range items {
			collectLiteralVariables(item, out)
		}
	}
	if fields, ok := l.Fields(); ok {
		for _, f := range fields {
			collectLiteralVariables(f.Value, out)
		}
	}
}

func trimVariableRef(enumName string) (string, bool) {
	if len(enumName) > 1 && enumName[0] == '$' {
		return enumName[1:], true
	}
	return "", false
}

// VariableRef constructs the Literal encoding of a `$name` variable
// reference for use in argument/literal positions.
func VariableRef(name string) schema.Literal {
	lit, err := schema.EnumLiteral(variableRefPrefix + name)
	if err != nil {
		panic(err) // variableRefPrefix+name is always a valid enum lexeme
	}
	return lit
}

func collectDirectiveVariables(dirs []schema.DirectiveApplication, out map[string]struct{}) {
	for _, d := range dirs {
		for _, a := range d.Arguments {
			collectLiteralVariables(a.Value, out)
		}
	}
}

// sortedFreeVariables is a test/debugging helper returning FreeVariables
// as a sorted slice.
func sortedFreeVariables(p *ParsedSelections) []string {
	m := p.FreeVariables()
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
