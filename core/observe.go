package core

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/alt-coder/docflow/core"

// tracer uses the global OTel tracer provider; spans are no-ops until one is installed.
var tracer = otel.Tracer(instrumentationName)

type runIDKey struct{}

// RunIDFromContext returns the id of the flow run that owns ctx, or "" outside a run.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// ensureRunID attaches a fresh run id unless ctx already belongs to a run,
// which is the case for nested flows and batch flow items.
func ensureRunID(ctx context.Context) (context.Context, string, bool) {
	if id := RunIDFromContext(ctx); id != "" {
		return ctx, id, false
	}
	id := uuid.NewString()
	return context.WithValue(ctx, runIDKey{}, id), id, true
}

func startFlowSpan(ctx context.Context, name, runID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "docflow.flow."+name,
		trace.WithAttributes(
			attribute.String("flow.name", name),
			attribute.String("run.id", runID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func startNodeSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "docflow.node."+name,
		trace.WithAttributes(
			attribute.String("node.name", name),
			attribute.String("run.id", RunIDFromContext(ctx)),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
