// Package instrumentation implements the hook chain of spec.md §4.7: an
// ordered list of observers, each wrapping the next, notified before and
// after every field fetch and every access check.
//
// Grounded on thunder's graphql/middleware.go MiddlewareFunc chain (a
// middleware wraps a "next" continuation exactly like net/http
// middleware); generalized here from thunder's single computation-level
// middleware slot to two instrumentation points (field fetch, access
// check) and from ComputationInput/Output to the engine's own
// field/checker vocabulary. A panic raised by a hook itself is NOT
// recovered here; it reaches the engine's guardHook (engine/plan.go),
// which wraps it in a FatalInstrumentationError, records it on the
// Executor, cancels the request's task group, and re-panics it, so the
// whole request fails with no partial data.
package instrumentation

import (
	"context"

	"github.com/airbnb/viaduct/engine"
)

// Hook is one instrumentation chain member. Either method may be nil,
// meaning that member does not observe that point.
type Hook struct {
	Name string

	// BeforeField is called before a field resolver runs. It may wrap ctx
	// and must return a completion func invoked with the field's outcome.
	BeforeField func(ctx context.Context, typeName, fieldName string) (context.Context, func(err error))

	// BeforeCheck is called before a checker runs.
	BeforeCheck func(ctx context.Context, typeName, fieldName string, kind engine.CheckerKind) (context.Context, func(res engine.CheckerResult))
}

// Chain composes an ordered list of Hooks into a single engine.Hooks,
// outermost first: Chain.Members[0] wraps Chain.Members[1], and so on,
// matching thunder's nested-middleware evaluation order.
type Chain struct {
	Members []Hook
}

func (c *Chain) BeforeField(ctx context.Context, typeName, fieldName string) (context.Context, func(error)) {
	var dones []func(error)
	for _, h := range c.Members {
		if h.BeforeField == nil {
			continue
		}
		var done func(error)
		ctx, done = h.BeforeField(ctx, typeName, fieldName)
		if done != nil {
			dones = append(dones, done)
		}
	}
	return ctx, func(err error) {
		// Completions run in reverse registration order, like unwinding
		// nested middleware calls back out to the outermost wrapper.
		for i := len(dones) - 1; i >= 0; i-- {
			dones[i](err)
		}
	}
}

func (c *Chain) BeforeCheck(ctx context.Context, typeName, fieldName string, kind engine.CheckerKind) (context.Context, func(engine.CheckerResult)) {
	var dones []func(engine.CheckerResult)
	for _, h := range c.Members {
		if h.BeforeCheck == nil {
			continue
		}
		var done func(engine.CheckerResult)
		ctx, done = h.BeforeCheck(ctx, typeName, fieldName, kind)
		if done != nil {
			dones = append(dones, done)
		}
	}
	return ctx, func(res engine.CheckerResult) {
		for i := len(dones) - 1; i >= 0; i-- {
			dones[i](res)
		}
	}
}

var _ engine.Hooks = (*Chain)(nil)
