package dispatch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/rbaliyan/dispatch"
)

// otelInstrumentation holds OpenTelemetry instrumentation for the dispatcher.
type otelInstrumentation struct {
	// Tracing
	tracingEnabled bool
	tracer         trace.Tracer

	// Metrics
	metricsEnabled  bool
	serviceAttr     attribute.KeyValue
	dispatchLatency metric.Float64Histogram
	dispatchCount   metric.Int64Counter
	dispatchErrors  metric.Int64Counter
	deliveryCount   metric.Int64Counter
}

// newOtelInstrumentation creates OTel instrumentation from options.
func newOtelInstrumentation(opts *options) (*otelInstrumentation, error) {
	o := &otelInstrumentation{
		tracingEnabled: opts.tracingEnabled,
		metricsEnabled: opts.metricsEnabled,
		serviceAttr:    attribute.String("service", opts.serviceName),
	}

	if opts.tracingEnabled {
		tp := opts.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		o.tracer = tp.Tracer(instrumentationName)
	}

	if opts.metricsEnabled {
		mp := opts.meterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		if err := o.initMetrics(mp); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// initMetrics initializes all metric instruments.
func (o *otelInstrumentation) initMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName)

	var err error

	o.dispatchLatency, err = meter.Float64Histogram(
		"dispatch.duration",
		metric.WithDescription("Duration of dispatch calls"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.dispatchCount, err = meter.Int64Counter(
		"dispatch.count",
		metric.WithDescription("Number of dispatch calls"),
	)
	if err != nil {
		return err
	}

	o.dispatchErrors, err = meter.Int64Counter(
		"dispatch.errors",
		metric.WithDescription("Number of rejected dispatch calls"),
	)
	if err != nil {
		return err
	}

	o.deliveryCount, err = meter.Int64Counter(
		"dispatch.delivery.count",
		metric.WithDescription("Number of delivery attempts by status"),
	)
	if err != nil {
		return err
	}

	return nil
}

// startSpan starts a new span if tracing is enabled.
// The returned function ends the span, recording err if non-nil.
func (o *otelInstrumentation) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error, ...attribute.KeyValue)) {
	if !o.tracingEnabled || o.tracer == nil {
		return ctx, func(error, ...attribute.KeyValue) {}
	}
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, func(err error, endAttrs ...attribute.KeyValue) {
		span.SetAttributes(endAttrs...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// recordDispatch records metrics for one finished Dispatch call.
func (o *otelInstrumentation) recordDispatch(ctx context.Context, duration time.Duration, outcome Outcome) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(o.serviceAttr)
	o.dispatchLatency.Record(ctx, duration.Seconds(), attrs)
	o.dispatchCount.Add(ctx, 1, attrs)

	if outcome.IsFailure() {
		o.dispatchErrors.Add(ctx, 1, metric.WithAttributes(
			o.serviceAttr,
			attribute.String("kind", string(outcome.Kind())),
		))
		return
	}

	if n := outcome.DeliveredCount(); n > 0 {
		o.deliveryCount.Add(ctx, int64(n), metric.WithAttributes(
			o.serviceAttr, attribute.String("status", string(StatusDelivered))))
	}
	if n := outcome.ErrorCount(); n > 0 {
		o.deliveryCount.Add(ctx, int64(n), metric.WithAttributes(
			o.serviceAttr, attribute.String("status", string(StatusError))))
	}
}
