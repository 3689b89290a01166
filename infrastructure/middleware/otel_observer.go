package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-tabroom/internal/domain"
	"github.com/ahrav/go-tabroom/internal/ports"
)

var _ ports.OperationObserver = (*OTelObserver)(nil)

// TracerName is the instrumentation scope of engine spans.
const TracerName = "github.com/ahrav/go-tabroom"

// OTelObserver implements ports.OperationObserver with OpenTelemetry spans
// and an optional metrics collector. Each Begin call owns its span, so one
// observer may watch concurrent operations.
type OTelObserver struct {
	tracer  trace.Tracer
	metrics ports.MetricsCollector
	now     func() time.Time
}

// NewOTelObserver creates an observer using the global tracer provider.
// metrics may be nil.
func NewOTelObserver(metrics ports.MetricsCollector) *OTelObserver {
	return &OTelObserver{
		tracer:  otel.Tracer(TracerName),
		metrics: metrics,
		now:     time.Now,
	}
}

// Begin implements ports.OperationObserver. It starts a span named after the
// operation and returns a function that records the outcome on it.
func (o *OTelObserver) Begin(ctx context.Context, op ports.Operation) (context.Context, func(ports.OperationReport)) {
	ctx, span := o.tracer.Start(ctx, "tabroom."+op.Name, trace.WithAttributes(
		attribute.String("tabroom.tournament", op.TournamentID),
		attribute.Int("tabroom.round", op.Round),
	))
	start := o.now()

	return ctx, func(rep ports.OperationReport) {
		defer span.End()
		elapsed := o.now().Sub(start)
		labels := map[string]string{"tournament": op.TournamentID, "operation": op.Name}

		for name, v := range rep.Gauges {
			span.SetAttributes(attribute.Float64("tabroom."+name, v))
		}

		status := statusOf(rep.Err)
		if rep.Err != nil {
			span.RecordError(rep.Err)
			span.SetStatus(codes.Error, rep.Err.Error())
			o.addFailureEvent(span, rep.Err)
		} else {
			span.SetStatus(codes.Ok, "")
		}

		if o.metrics == nil {
			return
		}
		o.metrics.RecordLatency(op.Name, elapsed, labels)
		o.metrics.RecordCounter(MetricOperations, 1, map[string]string{
			"tournament": op.TournamentID,
			"operation":  op.Name,
			"status":     status,
		})
		if rep.Err != nil {
			return
		}
		for name, v := range rep.Gauges {
			o.metrics.RecordGauge(name, v, labels)
		}
		if v, ok := rep.Gauges[MetricAllocationScore]; ok {
			o.metrics.RecordHistogram(MetricAllocationScore, v, labels)
		}
		for flag, n := range rep.Counters {
			o.metrics.RecordCounter(MetricDrawFlags, n, map[string]string{
				"tournament": op.TournamentID,
				"flag":       flag,
			})
		}
	}
}

func (o *OTelObserver) addFailureEvent(span trace.Span, err error) {
	var drawErr *domain.DrawError
	var shortfall *domain.InsufficientResourcesError
	switch {
	case errors.As(err, &drawErr):
		span.AddEvent("draw.failed", trace.WithAttributes(
			attribute.Int("round", drawErr.Round),
			attribute.String("reason", drawErr.Reason),
		))
	case errors.As(err, &shortfall):
		span.AddEvent("resources.short", trace.WithAttributes(
			attribute.String("resource", shortfall.Resource),
			attribute.Int("needed", shortfall.Needed),
			attribute.Int("available", shortfall.Available),
		))
	}
}

// statusOf maps an operation error to a metric status label.
func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrOperationInProgress):
		return "rejected"
	case errors.Is(err, domain.ErrDraw):
		return "draw_error"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
