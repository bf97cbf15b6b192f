package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airbnb/viaduct/engine"
	"github.com/airbnb/viaduct/selection"
)

// explodingHooks panics out of BeforeField whenever fieldName matches --
// the engine-level proof behind spec.md §8's "instrumentation whose
// beginFieldExecution throws on a nested field leaf" scenario.
type explodingHooks struct {
	explodeField string
}

func (h explodingHooks) BeforeField(ctx context.Context, typeName, fieldName string) (context.Context, func(error)) {
	if fieldName == h.explodeField {
		panic("kaboom")
	}
	return ctx, func(error) {}
}

func (h explodingHooks) BeforeCheck(ctx context.Context, typeName, fieldName string, kind engine.CheckerKind) (context.Context, func(engine.CheckerResult)) {
	return ctx, func(engine.CheckerResult) {}
}

func parentLeafSelections() *selection.ParsedSelections {
	leaf := selection.NewParsedSelections("Parent")
	leaf.Fields = append(leaf.Fields, selection.Field{Name: "leaf"})

	root := selection.NewParsedSelections("Query")
	root.Fields = append(root.Fields, selection.Field{Name: "parent", SubSelection: leaf})
	return root
}

// TestFatalInstrumentationErrorAbortsEntireRequest is the engine-level
// proof behind spec.md §8 scenario 6: an instrumentation hook that panics
// on a nested field fails the whole request, with no data returned, and a
// message naming which hook and field exploded.
func TestFatalInstrumentationErrorAbortsEntireRequest(t *testing.T) {
	disp := newStubDispatcher()
	disp.fields[key("Query", "parent")] = singleValueResolver("parent", engine.NewMapObjectData(map[string]interface{}{"leaf": "unreachable"}))
	disp.fields[key("Parent", "leaf")] = fetchFieldResolver("leaf")

	ex := engine.NewExecutor(nil, disp, nil, explodingHooks{explodeField: "leaf"})

	raw := rawSelections(t, parentLeafSelections())
	root := engine.NewMapObjectData(nil)
	plan := ex.ExecuteRoot(context.Background(), "Query", root, raw)
	ex.Batch.Flush(context.Background())

	data, errs := ex.AssembleResponse(context.Background(), root, raw.Variables(), plan)

	assert.Nil(t, data, "a fatal instrumentation failure must return no partial data")
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "Explosion in beginFieldExecution for leaf")
	assert.Equal(t, "FatalInstrumentationError", errs[0].ErrorType)
}
