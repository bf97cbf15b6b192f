package engine_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airbnb/viaduct/engine"
	"github.com/airbnb/viaduct/nodecache"
	"github.com/airbnb/viaduct/schema"
	"github.com/airbnb/viaduct/selection"
)

func TestNodeBatchBufferFlushesAllSelectorsInOneCall(t *testing.T) {
	var calls int32
	resolver := &engine.NodeResolver{
		TypeName:   "Baz",
		IsBatching: true,
		BatchResolve: func(ctx context.Context, selectors []*engine.NodeSelector) map[*engine.NodeSelector]engine.Result[*engine.EngineObjectData] {
			atomic.AddInt32(&calls, 1)
			out := map[*engine.NodeSelector]engine.Result[*engine.EngineObjectData]{}
			for _, s := range selectors {
				out[s] = engine.Ok(engine.NewMapObjectData(map[string]interface{}{"id": s.ID, "x": len(selectors)}))
			}
			return out
		},
	}

	buf := engine.NewNodeBatchBuffer()
	p1 := buf.Enqueue(resolver, &engine.NodeSelector{ID: "1"})
	p2 := buf.Enqueue(resolver, &engine.NodeSelector{ID: "2"})
	p3 := buf.Enqueue(resolver, &engine.NodeSelector{ID: "3"})
	buf.Flush(context.Background())

	_, err1 := p1.Await()
	_, err2 := p2.Await()
	_, err3 := p3.Await()
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.NoError(t, err3)
	assert.EqualValues(t, 1, calls, "three node ids must be served by a single BatchResolve call")
}

func TestNodeBatchBufferResolverPanicFailsEverySelector(t *testing.T) {
	resolver := &engine.NodeResolver{
		TypeName:   "Baz",
		IsBatching: true,
		BatchResolve: func(ctx context.Context, selectors []*engine.NodeSelector) map[*engine.NodeSelector]engine.Result[*engine.EngineObjectData] {
			panic("boom")
		},
	}
	buf := engine.NewNodeBatchBuffer()
	p1 := buf.Enqueue(resolver, &engine.NodeSelector{ID: "1"})
	p2 := buf.Enqueue(resolver, &engine.NodeSelector{ID: "2"})
	buf.Flush(context.Background())

	_, err1 := p1.Await()
	_, err2 := p2.Await()
	assert.Error(t, err1)
	assert.Error(t, err2)
}

func bazListSchema() *schema.Schema {
	return &schema.Schema{
		QueryType: "Query",
		Types: map[string]*schema.TypeDef{
			"Query": {Name: "Query", Kind: schema.KindObjectType, Fields: map[string]*schema.FieldDef{
				"bazList": {Name: "bazList", Type: schema.TypeRef{List: &schema.TypeRef{Name: "Baz", NonNull: true}, NonNull: true}},
			}},
			"Baz": {Name: "Baz", Kind: schema.KindObjectType, Fields: map[string]*schema.FieldDef{
				"id": {Name: "id", Type: schema.TypeRef{Name: "ID", NonNull: true}},
				"x":  {Name: "x", Type: schema.TypeRef{Name: "Int"}},
			}},
		},
	}
}

func bazListSelections() *selection.ParsedSelections {
	baz := selection.NewParsedSelections("Baz")
	baz.Fields = append(baz.Fields, selection.Field{Name: "id"}, selection.Field{Name: "x"})

	root := selection.NewParsedSelections("Query")
	root.Fields = append(root.Fields, selection.Field{Name: "bazList", SubSelection: baz})
	return root
}

// fetchFieldResolver reads name straight off the object passed to it --
// the trivial per-field resolver a plain data field (not itself computed)
// needs under this engine's "every field has a resolver, missing keys
// return null" dispatch convention (spec.md §3).
func fetchFieldResolver(name string) *engine.FieldResolver {
	return &engine.FieldResolver{
		ResolverID: name,
		BatchResolve: func(ctx context.Context, selectors []*engine.Selector) map[*engine.Selector]engine.Result[interface{}] {
			out := map[*engine.Selector]engine.Result[interface{}]{}
			for _, s := range selectors {
				v, err := s.ObjectValue.Fetch(name)
				out[s] = engine.Result[interface{}]{Value: v, Err: err}
			}
			return out
		},
	}
}

// TestListOfNodeFieldBatchesAcrossListElements is the engine-level proof
// behind spec.md §8's "bazList returns three node refs 1,2,3; batched
// resolver sets x = selectors.size; each x = 3" scenario: three Node
// references discovered by one list field must reach the Baz NodeResolver
// in a single BatchResolve call, not one call per element.
func TestListOfNodeFieldBatchesAcrossListElements(t *testing.T) {
	var calls int32
	disp := newStubDispatcher()
	disp.fields[key("Query", "bazList")] = singleValueResolver("bazList", []interface{}{
		engine.NodeRef{TypeName: "Baz", ID: "1"},
		engine.NodeRef{TypeName: "Baz", ID: "2"},
		engine.NodeRef{TypeName: "Baz", ID: "3"},
	})
	disp.fields[key("Baz", "id")] = fetchFieldResolver("id")
	disp.fields[key("Baz", "x")] = fetchFieldResolver("x")
	disp.nodes["Baz"] = &engine.NodeResolver{
		TypeName:    "Baz",
		IsSelective: false,
		IsBatching:  true,
		BatchResolve: func(ctx context.Context, selectors []*engine.NodeSelector) map[*engine.NodeSelector]engine.Result[*engine.EngineObjectData] {
			atomic.AddInt32(&calls, 1)
			out := map[*engine.NodeSelector]engine.Result[*engine.EngineObjectData]{}
			for _, s := range selectors {
				out[s] = engine.Ok(engine.NewMapObjectData(map[string]interface{}{"id": s.ID, "x": len(selectors)}))
			}
			return out
		},
	}

	sch := bazListSchema()
	ex := engine.NewExecutor(sch, disp, nodecache.New(), nil)

	raw := rawSelections(t, bazListSelections())
	root := engine.NewMapObjectData(nil)
	plan := ex.ExecuteRoot(context.Background(), "Query", root, raw)

	done := make(chan struct{})
	var data map[string]interface{}
	var errs []engine.FieldError
	go func() {
		data, errs = ex.AssembleResponse(context.Background(), root, raw.Variables(), plan)
		close(done)
	}()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			require.Empty(t, errs)
			items, ok := data["bazList"].([]interface{})
			require.True(t, ok)
			require.Len(t, items, 3)
			for i, item := range items {
				obj, ok := item.(map[string]interface{})
				require.True(t, ok)
				assert.Equal(t, 3, obj["x"], "element %d", i)
			}
			assert.EqualValues(t, 1, calls, "all three node ids must be served by a single BatchResolve call")
			return
		case <-ticker.C:
			ex.Batch.Flush(context.Background())
			ex.NodeBatch.Flush(context.Background())
		}
	}
}
