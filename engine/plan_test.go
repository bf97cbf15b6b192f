package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airbnb/viaduct/engine"
)

type stubDispatcher struct {
	fields   map[string]*engine.FieldResolver
	checkers map[string]*engine.CheckerExecutor
	nodes    map[string]*engine.NodeResolver
}

func newStubDispatcher() *stubDispatcher {
	return &stubDispatcher{
		fields:   map[string]*engine.FieldResolver{},
		checkers: map[string]*engine.CheckerExecutor{},
		nodes:    map[string]*engine.NodeResolver{},
	}
}

func key(typeName, name string) string { return typeName + "." + name }

func (s *stubDispatcher) FieldResolver(typeName, fieldName string) (*engine.FieldResolver, bool) {
	r, ok := s.fields[key(typeName, fieldName)]
	return r, ok
}
func (s *stubDispatcher) NodeResolver(typeName string) (*engine.NodeResolver, bool) {
	r, ok := s.nodes[typeName]
	return r, ok
}
func (s *stubDispatcher) FieldChecker(typeName, fieldName string) (*engine.CheckerExecutor, bool) {
	c, ok := s.checkers[key(typeName, fieldName)]
	return c, ok
}
func (s *stubDispatcher) TypeChecker(typeName string) (*engine.CheckerExecutor, bool) { return nil, false }

func singleValueResolver(id string, value interface{}) *engine.FieldResolver {
	return &engine.FieldResolver{
		ResolverID: id,
		BatchResolve: func(ctx context.Context, selectors []*engine.Selector) map[*engine.Selector]engine.Result[interface{}] {
			out := map[*engine.Selector]engine.Result[interface{}]{}
			for _, s := range selectors {
				out[s] = engine.Ok[interface{}](value)
			}
			return out
		},
	}
}

func TestExecuteRootResolvesLeafField(t *testing.T) {
	disp := newStubDispatcher()
	disp.fields[key("Query", "greeting")] = singleValueResolver("greeting", "hello")

	ex := engine.NewExecutor(nil, disp, nil, nil)
	ps := selectionsWithField("Query", "greeting")
	raw := rawSelections(t, ps)

	root := engine.NewMapObjectData(nil)
	plan := ex.ExecuteRoot(context.Background(), "Query", root, raw)
	ex.Batch.Flush(context.Background())

	require.Contains(t, plan, "greeting")
	v, err := plan["greeting"].Result.Await()
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestExecuteRootUnregisteredFieldResolvesNull(t *testing.T) {
	disp := newStubDispatcher()
	ex := engine.NewExecutor(nil, disp, nil, nil)
	ps := selectionsWithField("Query", "mystery")
	raw := rawSelections(t, ps)

	plan := ex.ExecuteRoot(context.Background(), "Query", engine.NewMapObjectData(nil), raw)
	v, err := plan["mystery"].Result.Await()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestExecuteRootCheckerDenialBypassesResolver(t *testing.T) {
	disp := newStubDispatcher()
	called := false
	disp.fields[key("Query", "secret")] = &engine.FieldResolver{
		BatchResolve: func(ctx context.Context, selectors []*engine.Selector) map[*engine.Selector]engine.Result[interface{}] {
			called = true
			out := map[*engine.Selector]engine.Result[interface{}]{}
			for _, s := range selectors {
				out[s] = engine.Ok[interface{}]("leaked")
			}
			return out
		},
	}
	disp.checkers[key("Query", "secret")] = &engine.CheckerExecutor{
		Execute: func(ctx context.Context, args map[string]interface{}, objectDataMap map[string]*engine.EngineObjectData, reqCtx engine.CheckerResultContext, kind engine.CheckerKind) engine.CheckerResult {
			return engine.CheckerResult{Err: &engine.CheckerFailure{Message: "nope"}}
		},
	}

	ex := engine.NewExecutor(nil, disp, nil, nil)
	ps := selectionsWithField("Query", "secret")
	raw := rawSelections(t, ps)

	plan := ex.ExecuteRoot(context.Background(), "Query", engine.NewMapObjectData(nil), raw)
	_, err := plan["secret"].Result.Await()
	require.Error(t, err)
	assert.False(t, called, "resolver must not run once its checker denies access")
	var checkerErr *engine.CheckerError
	assert.ErrorAs(t, err, &checkerErr)
}

func TestBatchBufferFlushesAllSelectorsInOneCall(t *testing.T) {
	calls := 0
	resolver := &engine.FieldResolver{
		IsBatching: true,
		BatchResolve: func(ctx context.Context, selectors []*engine.Selector) map[*engine.Selector]engine.Result[interface{}] {
			calls++
			out := map[*engine.Selector]engine.Result[interface{}]{}
			for i, s := range selectors {
				out[s] = engine.Ok[interface{}](i)
			}
			return out
		},
	}

	buf := engine.NewBatchBuffer()
	p1 := buf.Enqueue(resolver, &engine.Selector{})
	p2 := buf.Enqueue(resolver, &engine.Selector{})
	buf.Flush(context.Background())

	_, err1 := p1.Await()
	_, err2 := p2.Await()
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, 1, calls, "both selectors must be served by a single BatchResolve call")
}

func TestBatchBufferResolverPanicFailsEverySelector(t *testing.T) {
	resolver := &engine.FieldResolver{
		IsBatching: true,
		BatchResolve: func(ctx context.Context, selectors []*engine.Selector) map[*engine.Selector]engine.Result[interface{}] {
			panic("boom")
		},
	}
	buf := engine.NewBatchBuffer()
	p1 := buf.Enqueue(resolver, &engine.Selector{})
	p2 := buf.Enqueue(resolver, &engine.Selector{})
	buf.Flush(context.Background())

	_, err1 := p1.Await()
	_, err2 := p2.Await()
	assert.Error(t, err1)
	assert.Error(t, err2)
}
