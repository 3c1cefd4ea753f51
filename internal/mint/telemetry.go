package mint

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"vidmint/internal/logging"
	"vidmint/internal/services"
)

const instrumentationName = "vidmint/internal/mint"

// telemetry records one span and a success or error count per step attempt.
// Providers come from the otel globals; without one installed everything is a
// no-op.
type telemetry struct {
	tracer  trace.Tracer
	success metric.Int64Counter
	failure metric.Int64Counter
}

func newTelemetry(logger *slog.Logger) telemetry {
	meter := otel.Meter(instrumentationName)
	success, err := meter.Int64Counter("mint.step.counter.success")
	if err != nil {
		logger.Warn("create success counter failed", logging.Error(err))
	}
	failure, err := meter.Int64Counter("mint.step.counter.error")
	if err != nil {
		logger.Warn("create error counter failed", logging.Error(err))
	}
	return telemetry{
		tracer:  otel.Tracer(instrumentationName),
		success: success,
		failure: failure,
	}
}

// start opens the span for one step attempt. The returned func ends it and
// counts the outcome.
func (t telemetry) start(ctx context.Context, sessionID string, step Step) (context.Context, func(error)) {
	attrs := []attribute.KeyValue{
		attribute.String("mint.session_id", sessionID),
		attribute.String("mint.step", step.String()),
	}
	ctx, span := t.tracer.Start(ctx, "mint."+step.String(), trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		stepAttr := metric.WithAttributes(attribute.String("mint.step", step.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("mint.error_kind", services.Kind(err)))
			if t.failure != nil {
				t.failure.Add(ctx, 1, stepAttr)
			}
		} else {
			span.SetStatus(codes.Ok, "")
			if t.success != nil {
				t.success.Add(ctx, 1, stepAttr)
			}
		}
		span.End()
	}
}
