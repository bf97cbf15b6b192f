package dispatcher

import "github.com/airbnb/viaduct/engine"

// TenantModuleBootstrapper is a namespaced bundle of field/node/checker
// registrations, per spec.md §4.5. A deploy assembles its Registry from an
// ordered list of these; order only matters for error messages (duplicate
// detection is order-independent).
type TenantModuleBootstrapper struct {
	Name string

	Fields        map[FieldCoordinate]*engine.FieldResolver
	NodeResolvers map[string]*engine.NodeResolver
	FieldCheckers map[FieldCoordinate]*engine.CheckerExecutor
	TypeCheckers  map[string]*engine.CheckerExecutor
}

// FieldCoordinate is the (TypeName, FieldName) key spec.md §4.5 uses for
// both the field-resolver and field-checker maps.
type FieldCoordinate struct {
	TypeName  string
	FieldName string
}

// Build assembles a Registry from an ordered list of bootstrappers,
// rejecting any coordinate registered by more than one of them (or more
// than once within the same one).
func Build(bootstrappers ...TenantModuleBootstrapper) (*Registry, error) {
	b := NewBuilder()
	for _, tmb := range bootstrappers {
		for c, r := range tmb.Fields {
			b.Field(c.TypeName, c.FieldName, r)
		}
		for t, r := range tmb.NodeResolvers {
			b.Node(t, r)
		}
		for c, ck := range tmb.FieldCheckers {
			b.FieldChecker(c.TypeName, c.FieldName, ck)
		}
		for t, ck := range tmb.TypeCheckers {
			b.TypeChecker(t, ck)
		}
	}
	return b.Build()
}
