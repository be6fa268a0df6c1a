package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "askdesk"

// Metrics holds all askdesk metric instruments.
type Metrics struct {
	ThreadsCreated     metric.Int64Counter
	ThreadRaceRetries  metric.Int64Counter
	ContextsAssembled  metric.Int64Counter
	EnrichmentFailures metric.Int64Counter
	AssembleDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ThreadsCreated, err = meter.Int64Counter("askdesk.threads.created",
		metric.WithDescription("Number of conversation threads inserted"))
	if err != nil {
		return nil, err
	}

	m.ThreadRaceRetries, err = meter.Int64Counter("askdesk.threads.race_retries",
		metric.WithDescription("Number of thread inserts that lost a uniqueness race and re-fetched"))
	if err != nil {
		return nil, err
	}

	m.ContextsAssembled, err = meter.Int64Counter("askdesk.contexts.assembled",
		metric.WithDescription("Number of conversation contexts assembled"))
	if err != nil {
		return nil, err
	}

	m.EnrichmentFailures, err = meter.Int64Counter("askdesk.enrichment.failures",
		metric.WithDescription("Number of non-fatal enrichment lookups that failed"))
	if err != nil {
		return nil, err
	}

	m.AssembleDuration, err = meter.Float64Histogram("askdesk.context.assemble_seconds",
		metric.WithDescription("Context assembly duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Nil-safe recorders so services can run without instruments in tests.

func (m *Metrics) ThreadCreated(ctx context.Context, shared bool) {
	if m == nil {
		return
	}
	m.ThreadsCreated.Add(ctx, 1, metric.WithAttributes(attribute.Bool("shared", shared)))
}

func (m *Metrics) RaceRetry(ctx context.Context, recovered bool) {
	if m == nil {
		return
	}
	m.ThreadRaceRetries.Add(ctx, 1, metric.WithAttributes(attribute.Bool("recovered", recovered)))
}

func (m *Metrics) ContextAssembled(ctx context.Context, source string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("classification", source))
	m.ContextsAssembled.Add(ctx, 1, attrs)
	m.AssembleDuration.Record(ctx, seconds, attrs)
}

func (m *Metrics) EnrichmentFailed(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.EnrichmentFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
