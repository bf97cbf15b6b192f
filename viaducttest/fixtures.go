package viaducttest

import (
	"context"
	"strconv"

	"github.com/airbnb/viaduct/bootstrap"
	"github.com/airbnb/viaduct/engine"
	"github.com/airbnb/viaduct/schema"
	"github.com/airbnb/viaduct/selection"
)

// Field builds a leaf or composite selection; sub is nil for a leaf.
func Field(name string, sub *selection.ParsedSelections) selection.Field {
	return selection.Field{Name: name, SubSelection: sub}
}

// FieldWithArgs builds a selection carrying literal arguments.
func FieldWithArgs(name string, args []schema.ObjectField, sub *selection.ParsedSelections) selection.Field {
	return selection.Field{Name: name, Arguments: args, SubSelection: sub}
}

// Selections builds a ParsedSelections rooted at rootType out of fields,
// standing in for the text a query parser would otherwise produce.
func Selections(rootType string, fields ...selection.Field) *selection.ParsedSelections {
	ps := selection.NewParsedSelections(rootType)
	ps.Fields = append(ps.Fields, fields...)
	return ps
}

// Raw binds ps against sch with no variables; sch may be nil for a fixture
// that doesn't need the null-propagation/typed-list behavior schema
// attachment enables.
func Raw(sch *schema.Schema, ps *selection.ParsedSelections) *selection.RawSelectionSet {
	return selection.NewRawSelectionSet(sch, ps, selection.VariableEnv{})
}

// IntArg builds an integer-valued field argument.
func IntArg(name string, v int64) schema.ObjectField {
	lit, err := schema.IntLiteral(strconv.FormatInt(v, 10))
	if err != nil {
		panic(err) // strconv.FormatInt always produces a valid int lexeme
	}
	return schema.ObjectField{Name: name, Value: lit}
}

// ObjectType builds a minimal Object TypeDef with the given fields, each
// typed as a nullable named type unless constructed with NonNullField.
func ObjectType(name string, fields ...*schema.FieldDef) *schema.TypeDef {
	fm := make(map[string]*schema.FieldDef, len(fields))
	for _, f := range fields {
		fm[f.Name] = f
	}
	return &schema.TypeDef{Kind: schema.KindObjectType, Name: name, Fields: fm}
}

// Scalar builds a nullable reference to a named scalar/object type.
func Scalar(name string) schema.TypeRef { return schema.TypeRef{Name: name} }

// NonNull wraps a TypeRef as non-null.
func NonNull(r schema.TypeRef) schema.TypeRef { r.NonNull = true; return r }

// ListOf wraps a TypeRef as a list.
func ListOf(r schema.TypeRef) schema.TypeRef { return schema.TypeRef{List: &r} }

// FieldDef builds a field definition with no arguments.
func FieldDef(name string, typ schema.TypeRef) *schema.FieldDef {
	return &schema.FieldDef{Name: name, Type: typ}
}

// Fetch builds a resolver that reads fieldName directly off its parent
// object -- the common case for a node type's plain data fields, which
// otherwise have no FieldResolver of their own to serve them.
func Fetch(fieldName string) *bootstrap.ResolverBuilder {
	return bootstrap.Resolver().Fn(func(ctx context.Context, args map[string]interface{}, obj, qry *engine.EngineObjectData, sel *selection.RawSelectionSet) (interface{}, error) {
		return obj.Fetch(fieldName)
	})
}

// Schema assembles a Schema from a root query type name and its type
// graph, skipping schema.Schema.Validate so fixtures needn't declare
// every implements/possible-type edge a full validation pass would want.
func Schema(queryType string, types ...*schema.TypeDef) *schema.Schema {
	tm := make(map[string]*schema.TypeDef, len(types))
	for _, t := range types {
		tm[t.Name] = t
	}
	return &schema.Schema{QueryType: queryType, Types: tm}
}
