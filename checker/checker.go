// Package checker implements the access-check composition layer of
// spec.md §4.6: chained field checkers short-circuit on the first
// decisive error, while chained type checkers combine every applicable
// error into one, attached to every field that reads from the checked
// node.
//
// No single teacher file matches this shape (thunder has no access-check
// concept); grounded on viovanov-graphql-go's internal/exec/resolvable
// field-level guard composition idiom (a field's resolution is gated by
// an ordered list of checks before the resolver runs) combined with
// thunder's own layered-error taxonomy in graphql/errors.go
// (SafeError/ClientError/SanitizedError), which engine.CheckerFailure and
// engine.CheckerError are built to match.
package checker

import (
	"context"

	"github.com/airbnb/viaduct/engine"
)

// Chain composes an ordered list of CheckerExecutors into one, applying
// spec.md §4.6's per-plane combination rule.
type Chain struct {
	Kind    engine.CheckerKind
	Members []*engine.CheckerExecutor
}

// Execute runs the chain's members in order. For a field-check chain
// (Kind == CheckField) it short-circuits and returns the first decisive
// error; for a type-check chain (Kind == CheckType) it runs every member
// and folds every applicable error into one via CheckerFailure.Combine,
// so the result can be attached uniformly to every field reading the
// checked node.
func (c *Chain) Execute(ctx context.Context, args map[string]interface{}, objectDataMap map[string]*engine.EngineObjectData, reqCtx engine.CheckerResultContext) engine.CheckerResult {
	if c.Kind == engine.CheckField {
		return c.executeFieldPlane(ctx, args, objectDataMap, reqCtx)
	}
	return c.executeTypePlane(ctx, args, objectDataMap, reqCtx)
}

func (c *Chain) executeFieldPlane(ctx context.Context, args map[string]interface{}, objectDataMap map[string]*engine.EngineObjectData, reqCtx engine.CheckerResultContext) engine.CheckerResult {
	for _, member := range c.Members {
		res := member.Execute(ctx, args, objectDataMap, reqCtx, engine.CheckField)
		if res.Err == nil {
			continue
		}
		if res.Err.IsErrorForResolver == nil || res.Err.IsErrorForResolver(reqCtx) {
			return res
		}
	}
	return engine.CheckSuccess()
}

func (c *Chain) executeTypePlane(ctx context.Context, args map[string]interface{}, objectDataMap map[string]*engine.EngineObjectData, reqCtx engine.CheckerResultContext) engine.CheckerResult {
	var combined *engine.CheckerFailure
	for _, member := range c.Members {
		res := member.Execute(ctx, args, objectDataMap, reqCtx, engine.CheckType)
		if res.Err == nil {
			continue
		}
		if res.Err.IsErrorForResolver != nil && !res.Err.IsErrorForResolver(reqCtx) {
			continue
		}
		if combined == nil {
			combined = res.Err
		} else {
			combined = combined.Combine(res.Err)
		}
	}
	if combined == nil {
		return engine.CheckSuccess()
	}
	return engine.CheckerResult{Err: combined}
}

// AsExecutor adapts c to the engine.CheckerExecutor contract so a Chain
// can itself be registered with the dispatcher as one compound checker.
func (c *Chain) AsExecutor() *engine.CheckerExecutor {
	return &engine.CheckerExecutor{
		Execute: func(ctx context.Context, args map[string]interface{}, objectDataMap map[string]*engine.EngineObjectData, reqCtx engine.CheckerResultContext, kind engine.CheckerKind) engine.CheckerResult {
			return c.Execute(ctx, args, objectDataMap, reqCtx)
		},
	}
}
