package instrumentation

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"

	"github.com/airbnb/viaduct/engine"
)

var noopTracer = &opentracing.NoopTracer{}

// maybeStartSpan starts a child span under whatever parent span ctx
// already carries. With no parent span present -- the common case for a
// request that never attached one -- it hands back a working NoopSpan
// instead, so downstream spans never mistakenly parent themselves off of
// tracing state this request never opted into.
func maybeStartSpan(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	if opentracing.SpanFromContext(ctx) == nil {
		return noopTracer.StartSpan(operationName), ctx
	}
	return opentracing.StartSpanFromContext(ctx, operationName)
}

func logSpanError(span opentracing.Span, err error) {
	ext.Error.Set(span, true)
	span.LogFields(log.Error(err))
}

// OpenTracing builds a Hook that starts one span per field fetch and one
// per access check, named "field:Type.name" / "check:Type.name" so the two
// planes stay distinguishable in a trace viewer (spec.md §4.7).
func OpenTracing() Hook {
	return Hook{
		Name: "opentracing",
		BeforeField: func(ctx context.Context, typeName, fieldName string) (context.Context, func(error)) {
			span, spanCtx := maybeStartSpan(ctx, "field:"+typeName+"."+fieldName)
			return spanCtx, func(err error) {
				if err != nil {
					logSpanError(span, err)
				}
				span.Finish()
			}
		},
		BeforeCheck: func(ctx context.Context, typeName, fieldName string, kind engine.CheckerKind) (context.Context, func(engine.CheckerResult)) {
			span, spanCtx := maybeStartSpan(ctx, "check:"+typeName+"."+fieldName)
			return spanCtx, func(res engine.CheckerResult) {
				if res.Err != nil {
					logSpanError(span, res.Err)
				}
				span.Finish()
			}
		},
	}
}
