package instrumentation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/airbnb/viaduct/engine"
	"github.com/airbnb/viaduct/instrumentation"
)

func recordingHook(name string, order *[]string) instrumentation.Hook {
	return instrumentation.Hook{
		Name: name,
		BeforeField: func(ctx context.Context, typeName, fieldName string) (context.Context, func(error)) {
			*order = append(*order, name+":before")
			return ctx, func(err error) {
				*order = append(*order, name+":after")
			}
		},
		BeforeCheck: func(ctx context.Context, typeName, fieldName string, kind engine.CheckerKind) (context.Context, func(engine.CheckerResult)) {
			*order = append(*order, name+":check-before")
			return ctx, func(res engine.CheckerResult) {
				*order = append(*order, name+":check-after")
			}
		},
	}
}

func TestChainBeforeFieldUnwindsInReverseOrder(t *testing.T) {
	var order []string
	chain := &instrumentation.Chain{Members: []instrumentation.Hook{
		recordingHook("outer", &order),
		recordingHook("inner", &order),
	}}

	_, done := chain.BeforeField(context.Background(), "Query", "widget")
	done(nil)

	assert.Equal(t, []string{"outer:before", "inner:before", "inner:after", "outer:after"}, order)
}

func TestChainBeforeCheckUnwindsInReverseOrder(t *testing.T) {
	var order []string
	chain := &instrumentation.Chain{Members: []instrumentation.Hook{
		recordingHook("outer", &order),
		recordingHook("inner", &order),
	}}

	_, done := chain.BeforeCheck(context.Background(), "Query", "widget", engine.CheckField)
	done(engine.CheckSuccess())

	assert.Equal(t, []string{"outer:check-before", "inner:check-before", "inner:check-after", "outer:check-after"}, order)
}

func TestChainSkipsMembersWithNilHookMethod(t *testing.T) {
	var order []string
	chain := &instrumentation.Chain{Members: []instrumentation.Hook{
		{Name: "fieldOnly", BeforeField: func(ctx context.Context, typeName, fieldName string) (context.Context, func(error)) {
			order = append(order, "fieldOnly:before")
			return ctx, func(err error) { order = append(order, "fieldOnly:after") }
		}},
	}}

	_, checkDone := chain.BeforeCheck(context.Background(), "Query", "widget", engine.CheckType)
	checkDone(engine.CheckSuccess())
	assert.Empty(t, order)

	_, fieldDone := chain.BeforeField(context.Background(), "Query", "widget")
	fieldDone(nil)
	assert.Equal(t, []string{"fieldOnly:before", "fieldOnly:after"}, order)
}

func TestChainPropagatesContextMutationsThroughMembers(t *testing.T) {
	type ctxKey string
	const key ctxKey = "trail"

	chain := &instrumentation.Chain{Members: []instrumentation.Hook{
		{BeforeField: func(ctx context.Context, typeName, fieldName string) (context.Context, func(error)) {
			return context.WithValue(ctx, key, "outer"), nil
		}},
		{BeforeField: func(ctx context.Context, typeName, fieldName string) (context.Context, func(error)) {
			assert.Equal(t, "outer", ctx.Value(key))
			return context.WithValue(ctx, key, "inner"), nil
		}},
	}}

	resultCtx, done := chain.BeforeField(context.Background(), "Query", "widget")
	assert.Equal(t, "inner", resultCtx.Value(key))
	done(nil)
}

func TestChainCompletionReceivesFieldError(t *testing.T) {
	var gotErr error
	chain := &instrumentation.Chain{Members: []instrumentation.Hook{
		{BeforeField: func(ctx context.Context, typeName, fieldName string) (context.Context, func(error)) {
			return ctx, func(err error) { gotErr = err }
		}},
	}}

	_, done := chain.BeforeField(context.Background(), "Query", "widget")
	want := errors.New("boom")
	done(want)

	assert.Equal(t, want, gotErr)
}
