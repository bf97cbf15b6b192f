package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airbnb/viaduct/engine"
	"github.com/airbnb/viaduct/schema"
	"github.com/airbnb/viaduct/selection"
)

func userQuerySchema() *schema.Schema {
	return &schema.Schema{
		QueryType: "Query",
		Types: map[string]*schema.TypeDef{
			"Query": {Name: "Query", Kind: schema.KindObjectType, Fields: map[string]*schema.FieldDef{
				"user": {Name: "user", Type: schema.TypeRef{Name: "User", NonNull: true}},
			}},
			"User": {Name: "User", Kind: schema.KindObjectType, Fields: map[string]*schema.FieldDef{
				"name": {Name: "name", Type: schema.TypeRef{Name: "String", NonNull: true}},
			}},
		},
	}
}

func userFieldSelections() *selection.ParsedSelections {
	userSel := selection.NewParsedSelections("User")
	userSel.Fields = append(userSel.Fields, selection.Field{Name: "name"})

	root := selection.NewParsedSelections("Query")
	root.Fields = append(root.Fields, selection.Field{Name: "user", SubSelection: userSel})
	return root
}

func TestAssembleResponseResolvesCompositeField(t *testing.T) {
	disp := newStubDispatcher()
	disp.fields[key("Query", "user")] = singleValueResolver("user", engine.NewMapObjectData(nil))
	disp.fields[key("User", "name")] = singleValueResolver("name", "ada")

	sch := userQuerySchema()
	ex := engine.NewExecutor(sch, disp, nil, nil)

	raw := rawSelections(t, userFieldSelections())
	root := engine.NewMapObjectData(nil)
	plan := ex.ExecuteRoot(context.Background(), "Query", root, raw)
	ex.Batch.Flush(context.Background())

	data, errs := ex.AssembleResponse(context.Background(), root, raw.Variables(), plan)
	require.Empty(t, errs)
	user, ok := data["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ada", user["name"])
}

func usersListSchema() *schema.Schema {
	return &schema.Schema{
		QueryType: "Query",
		Types: map[string]*schema.TypeDef{
			"Query": {Name: "Query", Kind: schema.KindObjectType, Fields: map[string]*schema.FieldDef{
				"users": {Name: "users", Type: schema.TypeRef{List: &schema.TypeRef{Name: "User", NonNull: true}, NonNull: true}},
			}},
			"User": {Name: "User", Kind: schema.KindObjectType, Fields: map[string]*schema.FieldDef{
				"name": {Name: "name", Type: schema.TypeRef{Name: "String", NonNull: true}},
			}},
		},
	}
}

func usersFieldSelections() *selection.ParsedSelections {
	userSel := selection.NewParsedSelections("User")
	userSel.Fields = append(userSel.Fields, selection.Field{Name: "name"})

	root := selection.NewParsedSelections("Query")
	root.Fields = append(root.Fields, selection.Field{Name: "users", SubSelection: userSel})
	return root
}

func TestAssembleResponseResolvesListField(t *testing.T) {
	disp := newStubDispatcher()
	disp.fields[key("Query", "users")] = singleValueResolver("users", []interface{}{
		engine.NewMapObjectData(nil),
		engine.NewMapObjectData(nil),
	})
	disp.fields[key("User", "name")] = singleValueResolver("name", "ada")

	sch := usersListSchema()
	ex := engine.NewExecutor(sch, disp, nil, nil)

	raw := rawSelections(t, usersFieldSelections())
	root := engine.NewMapObjectData(nil)
	plan := ex.ExecuteRoot(context.Background(), "Query", root, raw)
	ex.Batch.Flush(context.Background())

	data, errs := ex.AssembleResponse(context.Background(), root, raw.Variables(), plan)
	require.Empty(t, errs)
	users, ok := data["users"].([]interface{})
	require.True(t, ok)
	require.Len(t, users, 2)
	first, ok := users[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ada", first["name"])
}

func TestAssembleResponseNonNullFailurePropagatesToParent(t *testing.T) {
	disp := newStubDispatcher()
	disp.fields[key("Query", "user")] = singleValueResolver("user", engine.NewMapObjectData(nil))
	disp.fields[key("User", "name")] = &engine.FieldResolver{
		BatchResolve: func(ctx context.Context, selectors []*engine.Selector) map[*engine.Selector]engine.Result[interface{}] {
			out := map[*engine.Selector]engine.Result[interface{}]{}
			for _, s := range selectors {
				out[s] = engine.ErrResult[interface{}](&engine.FieldFetchingException{Message: "boom"})
			}
			return out
		},
	}

	sch := userQuerySchema()
	ex := engine.NewExecutor(sch, disp, nil, nil)

	raw := rawSelections(t, userFieldSelections())
	root := engine.NewMapObjectData(nil)
	plan := ex.ExecuteRoot(context.Background(), "Query", root, raw)
	ex.Batch.Flush(context.Background())

	data, errs := ex.AssembleResponse(context.Background(), root, raw.Variables(), plan)
	require.NotEmpty(t, errs)
	assert.Nil(t, data["user"], "a non-null User.name failure must null the whole user object")
}
