package rss_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airbnb/viaduct/rss"
	"github.com/airbnb/viaduct/schema"
	"github.com/airbnb/viaduct/selection"
)

func selectionsReferencing(varName string) *selection.ParsedSelections {
	ps := selection.NewParsedSelections("Query")
	ps.Fields = append(ps.Fields, selection.Field{
		Name: "node",
		Arguments: []schema.ObjectField{
			{Name: "id", Value: selection.VariableRef(varName)},
		},
	})
	return ps
}

func TestBuildFromArgument(t *testing.T) {
	built, err := rss.Build(rss.Spec{
		QuerySelections: selectionsReferencing("id"),
		Attribution:     "Widget.owner",
		Bindings: []rss.VariableBinding{
			{Kind: rss.BindFromArgument, VarName: "id", ArgName: "ownerId"},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, built.QuerySelections)
	require.Len(t, built.QuerySelections.VariablesResolvers, 1)

	env, err := built.QuerySelections.VariablesResolvers[0].Resolve(context.Background(), map[string]interface{}{"ownerId": "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", env["id"])
}

func TestBuildDuplicateVariable(t *testing.T) {
	_, err := rss.Build(rss.Spec{
		QuerySelections: selectionsReferencing("id"),
		Attribution:     "Widget.owner",
		Bindings: []rss.VariableBinding{
			{Kind: rss.BindFromArgument, VarName: "id", ArgName: "a"},
			{Kind: rss.BindFromArgument, VarName: "id", ArgName: "b"},
		},
	})
	assert.ErrorContains(t, err, "DuplicateVariable")
}

func TestBuildUnusedVariableRejected(t *testing.T) {
	_, err := rss.Build(rss.Spec{
		QuerySelections: selection.NewParsedSelections("Query"),
		Attribution:     "Widget.owner",
		Bindings: []rss.VariableBinding{
			{Kind: rss.BindFromArgument, VarName: "unused", ArgName: "a"},
		},
	})
	assert.ErrorContains(t, err, "never referenced")
}

func TestBuildUnsourcedVariableRejected(t *testing.T) {
	_, err := rss.Build(rss.Spec{
		QuerySelections: selectionsReferencing("id"),
		Attribution:     "Widget.owner",
	})
	assert.ErrorContains(t, err, "UnsourcedVariable")
}

func TestBuildVariablesRequireFragment(t *testing.T) {
	_, err := rss.Build(rss.Spec{
		Attribution: "Widget.owner",
		Bindings: []rss.VariableBinding{
			{Kind: rss.BindFromArgument, VarName: "id", ArgName: "a"},
		},
	})
	assert.ErrorContains(t, err, "VariablesRequireFragment")
}

func TestBuildMissingQuerySelectionsForFromQueryField(t *testing.T) {
	_, err := rss.Build(rss.Spec{
		ObjectSelections: selectionsReferencing("id"),
		Attribution:      "Widget.owner",
		Bindings: []rss.VariableBinding{
			{Kind: rss.BindFromQueryField, VarName: "id", Path: "viewer.id"},
		},
	})
	assert.ErrorContains(t, err, "requires querySelections")
}

func TestParseVariablesDirectiveEmptyAndCommaOnly(t *testing.T) {
	names, err := rss.ParseVariablesDirective("")
	require.NoError(t, err)
	assert.Empty(t, names)

	names, err = rss.ParseVariablesDirective(" , , ,")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestParseVariablesDirectiveValid(t *testing.T) {
	names, err := rss.ParseVariablesDirective("id: ID, limit: Int")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "limit"}, names)
}

func TestParseVariablesDirectiveMalformed(t *testing.T) {
	for _, bad := range []string{"a:", ":a", "a:b:c", "bareNames"} {
		_, err := rss.ParseVariablesDirective(bad)
		assert.Errorf(t, err, "expected %q to fail parsing", bad)
	}
}

func TestVariablesProviderRuntimeKeyMismatch(t *testing.T) {
	built, err := rss.Build(rss.Spec{
		QuerySelections: selectionsReferencing("id"),
		Attribution:     "Widget.owner",
		Bindings: []rss.VariableBinding{
			{
				Kind:          rss.BindProvider,
				ProviderNames: []string{"id"},
				ProviderFn: func(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
					return map[string]interface{}{"wrongName": "x"}, nil
				},
			},
		},
	})
	require.NoError(t, err, "mismatch is a runtime error, not a bootstrap error")

	_, err = built.QuerySelections.Materialize(context.Background(), &schema.Schema{}, func(rss.VariablesResolver) map[string]interface{} {
		return nil
	})
	assert.ErrorContains(t, err, "does not match its declared names")
}
