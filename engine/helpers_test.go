package engine_test

import (
	"testing"

	"github.com/airbnb/viaduct/selection"
)

func selectionsWithField(rootType, fieldName string) *selection.ParsedSelections {
	ps := selection.NewParsedSelections(rootType)
	ps.Fields = append(ps.Fields, selection.Field{Name: fieldName})
	return ps
}

func rawSelections(t *testing.T, ps *selection.ParsedSelections) *selection.RawSelectionSet {
	t.Helper()
	return selection.NewRawSelectionSet(nil, ps, selection.VariableEnv{})
}
