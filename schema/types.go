// Package schema models the immutable directed type graph described in
// spec.md §3: Object/Interface/Union/Enum/Input/Scalar definitions plus
// directive applications and the Literal AST they carry arguments in.
//
// The shape is grounded on thunder's graphql/types.go (Type/Object/Scalar/
// List/Field), generalized with the Interface/Union/Enum/Input/Directive
// variants spec.md requires and an explicit name-graph instead of thunder's
// reflect.Type-keyed model, per spec.md §9 ("cyclic graph -> arena": types
// refer to each other by name, never by owning pointer).
package schema

import "github.com/samsarahq/go/oops"

// Location is an optional source-text position, kept opaque here since
// the parser/printer that produces it is out of scope (spec.md §1).
type Location struct {
	Source string
	Line   int
	Column int
}

// DirectiveApplication is one `@name(args...)` usage on a definition.
type DirectiveApplication struct {
	Name      string
	Arguments []ObjectField // argument name -> literal, in source order
}

// Argument looks up an applied directive's argument literal by name.
func (d DirectiveApplication) Argument(name string) (Literal, bool) {
	for _, a := range d.Arguments {
		if a.Name == name {
			return a.Value, true
		}
	}
	return Literal{}, false
}

// TypeKind tags the variant of a TypeDef.
type TypeKind int

const (
	KindObjectType TypeKind = iota
	KindInterfaceType
	KindUnionType
	KindEnumType
	KindInputType
	KindScalarType
)

// TypeRef is a reference to another type by name, with list/non-null
// wrapping applied outermost-first (e.g. [String!]! is
// TypeRef{NonNull:true, List:&TypeRef{NonNull:true, List:&TypeRef{Name:"String"}}}).
type TypeRef struct {
	Name    string   // leaf type name; empty when List != nil
	List    *TypeRef // element type, if this ref is a list
	NonNull bool
}

func (r TypeRef) String() string {
	var s string
	if r.List != nil {
		s = "[" + r.List.String() + "]"
	} else {
		s = r.Name
	}
	if r.NonNull {
		s += "!"
	}
	return s
}

// FieldDef describes one field of an Object/Interface/Input definition.
type FieldDef struct {
	Name       string
	Type       TypeRef
	Arguments  []InputValueDef
	Directives []DirectiveApplication
	Location   *Location
}

// InputValueDef describes a field argument or input-object field.
type InputValueDef struct {
	Name         string
	Type         TypeRef
	DefaultValue *Literal
	Directives   []DirectiveApplication
}

// EnumValueDef describes one member of an enum.
type EnumValueDef struct {
	Name       string
	Directives []DirectiveApplication
}

// TypeDef is a single node in the schema's type graph.
type TypeDef struct {
	Kind       TypeKind
	Name       string
	Directives []DirectiveApplication
	Location   *Location

	// Object / Interface only.
	Fields     map[string]*FieldDef
	Implements []string // interface names this Object/Interface implements

	// Interface extensions: additional member sets/directives merged in
	// from `extend interface` declarations, per spec.md §3
	// ("for composite types a list of extensions").
	Extensions []Extension

	// Union only.
	PossibleTypes []string

	// Enum only.
	EnumValues map[string]*EnumValueDef

	// Input only: reuses Fields (InputValueDef is stored via Fields'
	// Arguments is unused; input fields are modeled with their own map).
	InputFields map[string]*InputValueDef
}

// Extension records a merged `extend type`/`extend interface` block:
// the additional fields and directives it contributed.
type Extension struct {
	Fields     map[string]*FieldDef
	Directives []DirectiveApplication
}

// DirectiveDef describes a `directive @name on LOCATION` declaration.
type DirectiveDef struct {
	Name      string
	Arguments []InputValueDef
	Locations []string
}

// Schema is the immutable, fully-resolved type graph for one deployment.
type Schema struct {
	Types       map[string]*TypeDef
	Directives  map[string]*DirectiveDef
	QueryType   string
	MutationType    string
	SubscriptionType string
}

// Lookup resolves a type name within the schema, erroring if absent --
// spec.md §3's invariant that "every type reference is resolvable within
// the same schema".
func (s *Schema) Lookup(name string) (*TypeDef, error) {
	t, ok := s.Types[name]
	if !ok {
		return nil, oops.Errorf("unresolvable type reference %q", name)
	}
	return t, nil
}

// Validate checks the schema-level invariants of spec.md §3: every type
// reference resolves, the root query type exists, and union/interface
// membership is consistent in both directions.
func (s *Schema) Validate() error {
	if s.QueryType == "" {
		return oops.Errorf("schema has no root query type")
	}
	if _, err := s.Lookup(s.QueryType); err != nil {
		return oops.Errorf("root query type: %w", err)
	}

	for name, t := range s.Types {
		if name != t.Name {
			return oops.Errorf("type registered under key %q has Name %q", name, t.Name)
		}
		for _, iface := range t.Implements {
			ifaceDef, err := s.Lookup(iface)
			if err != nil {
				return oops.Errorf("type %q implements unresolvable interface: %w", name, err)
			}
			if ifaceDef.Kind != KindInterfaceType {
				return oops.Errorf("type %q implements %q, which is not an interface", name, iface)
			}
			if !containsString(ifaceDef.PossibleTypes, name) {
				return oops.Errorf("interface %q does not list %q as a possible type, but %q implements it", iface, name, name)
			}
		}
		if t.Kind == KindUnionType {
			for _, member := range t.PossibleTypes {
				if _, err := s.Lookup(member); err != nil {
					return oops.Errorf("union %q member: %w", name, err)
				}
			}
		}
		for _, f := range t.Fields {
			if err := s.validateTypeRef(f.Type); err != nil {
				return oops.Errorf("field %s.%s: %w", name, f.Name, err)
			}
		}
	}
	return nil
}

func (s *Schema) validateTypeRef(r TypeRef) error {
	if r.List != nil {
		return s.validateTypeRef(*r.List)
	}
	_, err := s.Lookup(r.Name)
	return err
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Implements reports whether typeName implements (or is) ifaceName,
// considering Object/Interface implements-lists and Union possible-type
// membership.
func (s *Schema) Implements(typeName, ifaceName string) bool {
	if typeName == ifaceName {
		return true
	}
	t, ok := s.Types[typeName]
	if !ok {
		return false
	}
	if containsString(t.Implements, ifaceName) {
		return true
	}
	if iface, ok := s.Types[ifaceName]; ok && iface.Kind == KindUnionType {
		return containsString(iface.PossibleTypes, typeName)
	}
	return false
}
