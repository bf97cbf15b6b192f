// Command viaductdemo is a runnable wiring example, grounded on
// example/minimal/main.go's Server/registerX/Schema/main shape: a tiny
// Query.users list of User objects with a derived fullName field, served
// over HTTP. GraphQL request-text parsing is out of scope (spec.md §1),
// so this demo stands in a fixed canned-operation registry for the
// parser a real deploy would plug into transport.Handler.Parse.
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/airbnb/viaduct/bootstrap"
	"github.com/airbnb/viaduct/dispatcher"
	"github.com/airbnb/viaduct/engine"
	"github.com/airbnb/viaduct/schema"
	"github.com/airbnb/viaduct/selection"
	"github.com/airbnb/viaduct/transport"
)

func demoSchema() *schema.Schema {
	return &schema.Schema{
		QueryType: "Query",
		Types: map[string]*schema.TypeDef{
			"Query": {Name: "Query", Kind: schema.KindObjectType, Fields: map[string]*schema.FieldDef{
				"users": {Name: "users", Type: schema.TypeRef{List: &schema.TypeRef{Name: "User", NonNull: true}, NonNull: true}},
			}},
			"User": {Name: "User", Kind: schema.KindObjectType, Fields: map[string]*schema.FieldDef{
				"fullName": {Name: "fullName", Type: schema.TypeRef{Name: "String", NonNull: true}},
			}},
		},
	}
}

func demoModule() *bootstrap.Module {
	m := bootstrap.NewModule("viaductdemo")

	m.ValueFromContext("Query", "users", func(ctx context.Context) (interface{}, error) {
		return []interface{}{
			engine.NewMapObjectData(map[string]interface{}{"firstName": "Bob", "lastName": "Johnson"}),
			engine.NewMapObjectData(map[string]interface{}{"firstName": "Chloe", "lastName": "Kim"}),
		}, nil
	})

	// fullName reads sibling fields directly off the resolved User object
	// rather than binding RSS variables, since it needs no nested-argument
	// substitution -- ObjectSelections alone documents what this resolver
	// depends on (spec.md §4.4).
	userSelections := selection.NewParsedSelections("User")
	userSelections.Fields = append(userSelections.Fields,
		selection.Field{Name: "firstName"},
		selection.Field{Name: "lastName"},
	)
	m.Resolver("User", "fullName", bootstrap.Resolver().
		ObjectSelections(userSelections).
		Fn(func(ctx context.Context, args map[string]interface{}, obj, qry *engine.EngineObjectData, sel *selection.RawSelectionSet) (interface{}, error) {
			first, _ := obj.Fetch("firstName")
			last, _ := obj.Fetch("lastName")
			return first.(string) + " " + last.(string), nil
		}))

	return m
}

// cannedUsersOperation is the "{ users { fullName } }" selection the demo
// serves; the demo's ParseFunc ignores operationText entirely since
// parsing it is out of scope here, and always resolves to this canned
// selection (see package comment).
func cannedUsersOperation() *selection.ParsedSelections {
	users := selection.NewParsedSelections("User")
	users.Fields = append(users.Fields, selection.Field{Name: "fullName"})

	root := selection.NewParsedSelections("Query")
	root.Fields = append(root.Fields, selection.Field{Name: "users", SubSelection: users})
	return root
}

func main() {
	module, err := demoModule().Build()
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	registry, err := dispatcher.Build(module)
	if err != nil {
		log.Fatalf("dispatcher: %v", err)
	}

	sch := demoSchema()
	canned := cannedUsersOperation()

	handler := &transport.Handler{
		Schema:         sch,
		Dispatch:       registry,
		MaxConcurrency: 50,
		Parse: func(operationText, operationName string, variables map[string]interface{}) (string, *selection.RawSelectionSet, error) {
			return "Query", selection.NewRawSelectionSet(sch, canned, selection.VariableEnv(variables)), nil
		},
	}

	http.Handle("/graphql", handler)
	http.Handle("/graphql/ws", transport.NewWebSocketHandler(handler))

	log.Println("viaductdemo listening on :3030")
	if err := http.ListenAndServe(":3030", nil); err != nil {
		log.Fatal(err)
	}
}
