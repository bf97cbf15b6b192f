package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/airbnb/viaduct/engine"
)

// OTel builds a Hook that opens one span per field fetch and one per
// access check, grounded on hanpama-protograph's
// internal/otel/otel.go span-per-lifecycle-event pattern (there: spans
// keyed by request id across HTTP/GraphQL/gRPC boundaries via an
// eventbus; here: spans opened directly around the field/check call,
// since the engine already threads a context through each one).
func OTel(tracer trace.Tracer) Hook {
	return Hook{
		Name: "otel",
		BeforeField: func(ctx context.Context, typeName, fieldName string) (context.Context, func(error)) {
			spanCtx, span := tracer.Start(ctx, typeName+"."+fieldName,
				trace.WithAttributes(
					attribute.String("viaduct.type", typeName),
					attribute.String("viaduct.field", fieldName),
				))
			return spanCtx, func(err error) {
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				}
				span.End()
			}
		},
		BeforeCheck: func(ctx context.Context, typeName, fieldName string, kind engine.CheckerKind) (context.Context, func(engine.CheckerResult)) {
			planeName := "field-check"
			if kind == engine.CheckType {
				planeName = "type-check"
			}
			spanCtx, span := tracer.Start(ctx, planeName+":"+typeName+"."+fieldName)
			return spanCtx, func(res engine.CheckerResult) {
				if res.Err != nil {
					span.SetStatus(codes.Error, res.Err.Message)
				}
				span.End()
			}
		},
	}
}
