// Package observe provides the observability primitives for parley:
// OpenTelemetry metrics for dispatched requests and context trimming, a
// Prometheus exporter bridge, and structured logger construction.
//
// [Metrics] implements [parley.RequestObserver] and [parley.TrimObserver] so
// it can be plugged straight into the dispatcher and trimmer. Tests should
// use [NewMetrics] with a ManualReader-backed provider.
package observe

import (
	"context"

	"github.com/fwojciec/parley"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all parley metrics.
const meterName = "github.com/fwojciec/parley"

// Interface compliance checks.
var (
	_ parley.RequestObserver = (*Metrics)(nil)
	_ parley.TrimObserver    = (*Metrics)(nil)
)

// Metrics holds the OpenTelemetry instruments. All fields are safe for
// concurrent use.
type Metrics struct {
	// Requests counts finished requests. Attributes: provider, model, state.
	Requests metric.Int64Counter

	// RequestErrors counts failed requests. Attributes: provider, kind.
	RequestErrors metric.Int64Counter

	// RequestDuration tracks time from submission to the terminal callback.
	RequestDuration metric.Float64Histogram

	// StreamChunks tracks the number of deltas delivered per request.
	StreamChunks metric.Int64Histogram

	// Trims counts trimming passes. Attributes: model, satisfied.
	Trims metric.Int64Counter

	// TrimmedTokens tracks tokens removed per trimming pass.
	TrimmedTokens metric.Int64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// streamed chat completions.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Requests, err = m.Int64Counter("parley.requests",
		metric.WithDescription("Finished chat completion requests."),
	); err != nil {
		return nil, err
	}
	if met.RequestErrors, err = m.Int64Counter("parley.request.errors",
		metric.WithDescription("Failed chat completion requests by error kind."),
	); err != nil {
		return nil, err
	}
	if met.RequestDuration, err = m.Float64Histogram("parley.request.duration",
		metric.WithDescription("Time from submission to the terminal callback."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StreamChunks, err = m.Int64Histogram("parley.stream.chunks",
		metric.WithDescription("Text deltas delivered per request."),
	); err != nil {
		return nil, err
	}
	if met.Trims, err = m.Int64Counter("parley.trims",
		metric.WithDescription("Context window trimming passes."),
	); err != nil {
		return nil, err
	}
	if met.TrimmedTokens, err = m.Int64Histogram("parley.trim.tokens_removed",
		metric.WithDescription("Tokens removed by a trimming pass."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// ObserveRequest records a finished request.
func (m *Metrics) ObserveRequest(r parley.RequestReport) {
	ctx := context.Background()
	provider := attribute.String("provider", r.Provider.String())
	m.Requests.Add(ctx, 1, metric.WithAttributes(
		provider,
		attribute.String("model", r.Model),
		attribute.String("state", r.State.String()),
	))
	if r.State == parley.RequestFailed {
		m.RequestErrors.Add(ctx, 1, metric.WithAttributes(provider, attribute.String("kind", r.Kind.String())))
	}
	m.RequestDuration.Record(ctx, r.Duration.Seconds(), metric.WithAttributes(provider))
	m.StreamChunks.Record(ctx, int64(r.Chunks), metric.WithAttributes(provider))
}

// ObserveTrim records a trimming pass.
func (m *Metrics) ObserveTrim(model string, before, after int, satisfied bool) {
	ctx := context.Background()
	m.Trims.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.Bool("satisfied", satisfied),
	))
	if removed := before - after; removed > 0 {
		m.TrimmedTokens.Record(ctx, int64(removed), metric.WithAttributes(attribute.String("model", model)))
	}
}
