package nodecache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airbnb/viaduct/engine"
	"github.com/airbnb/viaduct/nodecache"
	"github.com/airbnb/viaduct/selection"
)

func widerSelections(t *testing.T, fields ...string) *selection.RawSelectionSet {
	t.Helper()
	ps := selection.NewParsedSelections("User")
	for _, f := range fields {
		ps.Fields = append(ps.Fields, selection.Field{Name: f})
	}
	return selection.NewRawSelectionSet(nil, ps, selection.VariableEnv{})
}

func TestGetOrResolveDedupsSameCoordinate(t *testing.T) {
	c := nodecache.New()
	calls := 0
	resolve := func() *engine.NodeReference {
		calls++
		return engine.NewNodeReference("u1", "User", func() (*engine.EngineObjectData, error) {
			return engine.NewMapObjectData(map[string]interface{}{"id": "u1"}), nil
		})
	}

	sel := widerSelections(t, "id")
	r1 := c.GetOrResolve(context.Background(), "User", "u1", sel, resolve)
	r2 := c.GetOrResolve(context.Background(), "User", "u1", sel, resolve)

	assert.Same(t, r1, r2)
	assert.Equal(t, 1, calls, "a covering second request must not re-invoke resolve")
}

func TestGetOrResolveMissOnWiderSelection(t *testing.T) {
	c := nodecache.New()
	calls := 0
	resolve := func() *engine.NodeReference {
		calls++
		return engine.NewNodeReference("u1", "User", func() (*engine.EngineObjectData, error) {
			return engine.NewMapObjectData(nil), nil
		})
	}

	c.GetOrResolve(context.Background(), "User", "u1", widerSelections(t, "id"), resolve)
	c.GetOrResolve(context.Background(), "User", "u1", widerSelections(t, "id", "name"), resolve)

	assert.Equal(t, 2, calls, "a request not covered by the cached selection set must re-resolve")
}

func TestResolveNodeMissingResolverFails(t *testing.T) {
	c := nodecache.New()
	ref := c.ResolveNode(context.Background(), emptyDispatcher{}, "User", "u1", nil)
	_, err := ref.Data()
	require.Error(t, err)
	var missing *engine.MissingNodeResolver
	assert.ErrorAs(t, err, &missing)
}

type emptyDispatcher struct{}

func (emptyDispatcher) FieldResolver(string, string) (*engine.FieldResolver, bool)   { return nil, false }
func (emptyDispatcher) NodeResolver(string) (*engine.NodeResolver, bool)             { return nil, false }
func (emptyDispatcher) FieldChecker(string, string) (*engine.CheckerExecutor, bool)  { return nil, false }
func (emptyDispatcher) TypeChecker(string) (*engine.CheckerExecutor, bool)           { return nil, false }
