package llm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/alt-coder/docflow/llm"

// Call outcomes recorded on llm.pool.requests.
const (
	outcomeSuccess  = "success"
	outcomeCacheHit = "cache_hit"
	outcomeFailure  = "failure"
)

type poolMetrics struct {
	requests  metric.Int64Counter
	tokens    metric.Int64Counter
	retries   metric.Int64Counter
	latency   metric.Float64Histogram
	rateWait  metric.Float64Histogram
	inFlight  metric.Int64UpDownCounter
	generator string
}

func newPoolMetrics(provider metric.MeterProvider, generator string) (*poolMetrics, error) {
	meter := provider.Meter(instrumentationName)

	requests, err := meter.Int64Counter("llm.pool.requests",
		metric.WithDescription("Number of pool calls by outcome"),
	)
	if err != nil {
		return nil, err
	}

	tokens, err := meter.Int64Counter("llm.pool.tokens",
		metric.WithDescription("Tokens consumed by generator calls"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter("llm.pool.retries",
		metric.WithDescription("Number of retried generator attempts"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("llm.pool.latency_ms",
		metric.WithDescription("Generator call latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	rateWait, err := meter.Float64Histogram("llm.pool.rate_wait_ms",
		metric.WithDescription("Time spent waiting for the rate window in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	inFlight, err := meter.Int64UpDownCounter("llm.pool.in_flight",
		metric.WithDescription("Generator calls currently holding a connection slot"),
	)
	if err != nil {
		return nil, err
	}

	return &poolMetrics{
		requests:  requests,
		tokens:    tokens,
		retries:   retries,
		latency:   latency,
		rateWait:  rateWait,
		inFlight:  inFlight,
		generator: generator,
	}, nil
}

func (m *poolMetrics) attrs(model string, extra ...attribute.KeyValue) metric.MeasurementOption {
	kv := append([]attribute.KeyValue{
		attribute.String("generator", m.generator),
		attribute.String("model", model),
	}, extra...)
	return metric.WithAttributes(kv...)
}

func (m *poolMetrics) recordOutcome(ctx context.Context, model, outcome string) {
	m.requests.Add(ctx, 1, m.attrs(model, attribute.String("outcome", outcome)))
}

func (m *poolMetrics) recordGenerated(ctx context.Context, model string, tokens int, latency time.Duration) {
	m.tokens.Add(ctx, int64(tokens), m.attrs(model))
	m.latency.Record(ctx, float64(latency.Milliseconds()), m.attrs(model))
}

func (m *poolMetrics) recordRetry(ctx context.Context, model string) {
	m.retries.Add(ctx, 1, m.attrs(model))
}

func (m *poolMetrics) recordRateWait(ctx context.Context, model string, waited time.Duration) {
	m.rateWait.Record(ctx, float64(waited.Milliseconds()), m.attrs(model))
}
