package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cascata/waterworks/ports"
)

var _ ports.ExecObserver = (*OTelObserver)(nil)

// tracerName identifies this instrumentation scope.
const tracerName = "github.com/cascata/waterworks/middleware"

// OTelObserver implements the ExecObserver interface with OpenTelemetry
// tracing: one span per execution, carried through the call's context,
// with an event per tank evaluation. The observer holds no per-call
// state, so one instance serves concurrent executions.
type OTelObserver struct{}

// NewOTelObserver creates an OpenTelemetry execution observer.
func NewOTelObserver() *OTelObserver { return &OTelObserver{} }

// ExecutionStarted implements the ExecObserver interface by opening a span
// for the execution and threading it through the returned context.
func (o *OTelObserver) ExecutionStarted(ctx context.Context, graph string, dir ports.Direction) context.Context {
	ctx, _ = otel.Tracer(tracerName).Start(ctx, "Waterwork."+dir.String(),
		trace.WithAttributes(
			attribute.String("waterwork.graph", graph),
			attribute.String("waterwork.direction", dir.String()),
		),
	)
	return ctx
}

// TankExecuted implements the ExecObserver interface by recording a span
// event for the tank evaluation.
func (o *OTelObserver) TankExecuted(
	ctx context.Context, _, tank string, dir ports.Direction, elapsed time.Duration, err error,
) {
	span := trace.SpanFromContext(ctx)
	attrs := []attribute.KeyValue{
		attribute.String("tank", tank),
		attribute.String("direction", dir.String()),
		attribute.Int64("elapsed_us", elapsed.Microseconds()),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error", err.Error()))
	}
	span.AddEvent("tank.executed", trace.WithAttributes(attrs...))
}

// ExecutionFinished implements the ExecObserver interface by setting the
// span status and closing it.
func (o *OTelObserver) ExecutionFinished(
	ctx context.Context, _ string, _ ports.Direction, _ time.Duration, err error,
) {
	span := trace.SpanFromContext(ctx)
	defer span.End()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
