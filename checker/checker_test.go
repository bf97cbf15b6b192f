package checker_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/airbnb/viaduct/checker"
	"github.com/airbnb/viaduct/engine"
)

func denyingChecker(msg string) *engine.CheckerExecutor {
	return &engine.CheckerExecutor{
		Execute: func(ctx context.Context, args map[string]interface{}, objectDataMap map[string]*engine.EngineObjectData, reqCtx engine.CheckerResultContext, kind engine.CheckerKind) engine.CheckerResult {
			return engine.CheckerResult{Err: &engine.CheckerFailure{Message: msg}}
		},
	}
}

func allowingChecker() *engine.CheckerExecutor {
	return &engine.CheckerExecutor{
		Execute: func(ctx context.Context, args map[string]interface{}, objectDataMap map[string]*engine.EngineObjectData, reqCtx engine.CheckerResultContext, kind engine.CheckerKind) engine.CheckerResult {
			return engine.CheckSuccess()
		},
	}
}

func TestFieldPlaneShortCircuitsOnFirstDecisiveError(t *testing.T) {
	calls := 0
	countingDeny := &engine.CheckerExecutor{
		Execute: func(ctx context.Context, args map[string]interface{}, objectDataMap map[string]*engine.EngineObjectData, reqCtx engine.CheckerResultContext, kind engine.CheckerKind) engine.CheckerResult {
			calls++
			return engine.CheckerResult{Err: &engine.CheckerFailure{Message: "denied"}}
		},
	}
	never := &engine.CheckerExecutor{
		Execute: func(ctx context.Context, args map[string]interface{}, objectDataMap map[string]*engine.EngineObjectData, reqCtx engine.CheckerResultContext, kind engine.CheckerKind) engine.CheckerResult {
			t.Fatal("second checker must not run once the first decides")
			return engine.CheckSuccess()
		},
	}
	chain := &checker.Chain{Kind: engine.CheckField, Members: []*engine.CheckerExecutor{countingDeny, never}}
	res := chain.Execute(context.Background(), nil, nil, engine.CheckerResultContext{})
	assert.NotNil(t, res.Err)
	assert.Equal(t, 1, calls)
}

func TestFieldPlaneAllSucceedingIsSuccess(t *testing.T) {
	chain := &checker.Chain{Kind: engine.CheckField, Members: []*engine.CheckerExecutor{allowingChecker(), allowingChecker()}}
	res := chain.Execute(context.Background(), nil, nil, engine.CheckerResultContext{})
	assert.Nil(t, res.Err)
}

func TestTypePlaneCombinesEveryApplicableError(t *testing.T) {
	combineCalls := 0
	a := &engine.CheckerExecutor{
		Execute: func(ctx context.Context, args map[string]interface{}, objectDataMap map[string]*engine.EngineObjectData, reqCtx engine.CheckerResultContext, kind engine.CheckerKind) engine.CheckerResult {
			return engine.CheckerResult{Err: &engine.CheckerFailure{
				Message: "a",
				CombineWith: func(other *engine.CheckerFailure) *engine.CheckerFailure {
					combineCalls++
					return &engine.CheckerFailure{Message: "a+" + other.Message}
				},
			}}
		},
	}
	b := denyingChecker("b")
	chain := &checker.Chain{Kind: engine.CheckType, Members: []*engine.CheckerExecutor{a, b}}
	res := chain.Execute(context.Background(), nil, nil, engine.CheckerResultContext{})
	assert.Equal(t, "a+b", res.Err.Message)
	assert.Equal(t, 1, combineCalls)
}

func TestIsErrorForResolverFiltersOutInapplicableError(t *testing.T) {
	scoped := &engine.CheckerExecutor{
		Execute: func(ctx context.Context, args map[string]interface{}, objectDataMap map[string]*engine.EngineObjectData, reqCtx engine.CheckerResultContext, kind engine.CheckerKind) engine.CheckerResult {
			return engine.CheckerResult{Err: &engine.CheckerFailure{
				Message:            "only-for-secret",
				IsErrorForResolver: func(ctx engine.CheckerResultContext) bool { return ctx.FieldName == "secret" },
			}}
		},
	}
	chain := &checker.Chain{Kind: engine.CheckField, Members: []*engine.CheckerExecutor{scoped}}
	res := chain.Execute(context.Background(), nil, nil, engine.CheckerResultContext{FieldName: "public"})
	assert.Nil(t, res.Err)
}
