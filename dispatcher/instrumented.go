package dispatcher

import "github.com/airbnb/viaduct/engine"

// InstrumentedDispatcher wraps a Registry so every dispatcher lookup
// itself is observable -- distinct from engine.Hooks, which instruments
// resolver invocation -- per spec.md §4.5's "An InstrumentedDispatcher
// layer wraps each one with observability hooks".
type InstrumentedDispatcher struct {
	Inner  engine.Dispatcher
	OnMiss func(kind, typeName, fieldName string)
}

func (d *InstrumentedDispatcher) FieldResolver(typeName, fieldName string) (*engine.FieldResolver, bool) {
	r, ok := d.Inner.FieldResolver(typeName, fieldName)
	if !ok && d.OnMiss != nil {
		d.OnMiss("field", typeName, fieldName)
	}
	return r, ok
}

func (d *InstrumentedDispatcher) NodeResolver(typeName string) (*engine.NodeResolver, bool) {
	r, ok := d.Inner.NodeResolver(typeName)
	if !ok && d.OnMiss != nil {
		d.OnMiss("node", typeName, "")
	}
	return r, ok
}

func (d *InstrumentedDispatcher) FieldChecker(typeName, fieldName string) (*engine.CheckerExecutor, bool) {
	return d.Inner.FieldChecker(typeName, fieldName)
}

func (d *InstrumentedDispatcher) TypeChecker(typeName string) (*engine.CheckerExecutor, bool) {
	return d.Inner.TypeChecker(typeName)
}
