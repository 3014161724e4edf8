package recognition

import (
	"context"
	"time"

	"glucoplate"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedRecognizer wraps a Recognizer with per-provider and per-run metrics.
type InstrumentedRecognizer struct {
	inner  *Recognizer
	tracer trace.Tracer

	runsCounter      metric.Int64Counter
	emptyRunsCounter metric.Int64Counter
	attemptsCounter  metric.Int64Counter
	outcomeCounter   metric.Int64Counter
	itemsGauge       metric.Int64Gauge
	runDurationHist  metric.Float64Histogram
	providerTimeHist metric.Float64Histogram
}

// NewInstrumentedRecognizer initializes a recognizer that reports to the given tracer and meter.
func NewInstrumentedRecognizer(providers []Provider, opts Options, tracer trace.Tracer, meter metric.Meter) *InstrumentedRecognizer {
	ir := &InstrumentedRecognizer{
		inner:  NewRecognizer(providers, opts),
		tracer: tracer,
	}

	ir.runsCounter, _ = meter.Int64Counter("recognition_runs_total",
		metric.WithDescription("Total number of recognition runs started"))
	ir.emptyRunsCounter, _ = meter.Int64Counter("recognition_runs_empty_total",
		metric.WithDescription("Total number of runs where no provider succeeded"))
	ir.attemptsCounter, _ = meter.Int64Counter("provider_attempts_total",
		metric.WithDescription("Total number of provider calls including retries"))
	ir.outcomeCounter, _ = meter.Int64Counter("provider_outcomes_total",
		metric.WithDescription("Provider results by outcome"))
	ir.itemsGauge, _ = meter.Int64Gauge("recognized_items_count",
		metric.WithDescription("Number of foods in the latest merged result"))
	ir.runDurationHist, _ = meter.Float64Histogram("recognition_duration_seconds",
		metric.WithDescription("Total duration of a recognition run in seconds"))
	ir.providerTimeHist, _ = meter.Float64Histogram("provider_response_time_seconds",
		metric.WithDescription("Time taken by a provider including retries in seconds"))

	ir.inner.onResult = ir.recordResult
	return ir
}

func (ir *InstrumentedRecognizer) recordResult(ctx context.Context, res ProviderResult) {
	attrs := metric.WithAttributes(
		attribute.String("provider", res.Provider),
		attribute.String("outcome", string(res.Outcome)),
	)
	ir.attemptsCounter.Add(ctx, int64(res.Attempts), metric.WithAttributes(attribute.String("provider", res.Provider)))
	ir.outcomeCounter.Add(ctx, 1, attrs)
	ir.providerTimeHist.Record(ctx, res.Duration.Seconds(), metric.WithAttributes(attribute.String("provider", res.Provider)))
}

// Recognize runs the wrapped recognizer and records run-level metrics.
func (ir *InstrumentedRecognizer) Recognize(ctx context.Context, req Request) ([]glucoplate.RecognizedItem, error) {
	ctx, span := ir.tracer.Start(ctx, "InstrumentedRecognizer.Recognize")
	defer span.End()

	ir.runsCounter.Add(ctx, 1)
	start := time.Now()

	items, err := ir.inner.Recognize(ctx, req)
	ir.runDurationHist.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		span.SetStatus(codes.Error, "Recognition failed")
		span.RecordError(err)
		return nil, err
	}

	ir.itemsGauge.Record(ctx, int64(len(items)))
	if len(items) == 0 {
		ir.emptyRunsCounter.Add(ctx, 1)
	}

	span.AddEvent("Recognition complete", trace.WithAttributes(
		attribute.Int("items", len(items)),
		attribute.StringSlice("providers", ir.inner.Providers()),
	))
	return items, nil
}
