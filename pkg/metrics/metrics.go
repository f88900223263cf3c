// Package metrics holds the OpenTelemetry instruments recorded by the
// analysis pipeline and the Prometheus bridge that exposes them.
//
// All Record methods are safe on a nil *Metrics, so components can take an
// optional instance without guarding every call site.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/your-org/voicecheck"

// analysisBuckets are in seconds; an orchestration may take up to the
// overall deadline.
var analysisBuckets = []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 90, 120, 180}

// Outcome labels recorded by RecordAnalysis.
const (
	OutcomeCompleted = "completed" // terminal status with a usable verdict
	OutcomeFailed    = "failed"    // terminal failure status from the detector
	OutcomeDeadline  = "deadline"  // still analyzing when the deadline passed
	OutcomeError     = "error"     // job could not be created or the caller cancelled
)

// Metrics holds the instruments.
type Metrics struct {
	// AnalysisDuration is the wall time of one orchestration.
	AnalysisDuration metric.Float64Histogram

	// Analyses counts finished orchestrations by outcome (Outcome* labels).
	Analyses metric.Int64Counter

	// Retries counts backoff sleeps by operation.
	Retries metric.Int64Counter

	// PollCycles counts status fetches by result ("terminal", "analyzing", "error").
	PollCycles metric.Int64Counter
}

// New creates the instruments on mp.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AnalysisDuration, err = m.Float64Histogram("voicecheck.analysis.duration",
		metric.WithDescription("Wall time of a clip analysis from presign to final status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(analysisBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Analyses, err = m.Int64Counter("voicecheck.analyses",
		metric.WithDescription("Finished clip analyses by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Retries, err = m.Int64Counter("voicecheck.retries",
		metric.WithDescription("Backoff retries by remote operation."),
	); err != nil {
		return nil, err
	}
	if met.PollCycles, err = m.Int64Counter("voicecheck.poll.cycles",
		metric.WithDescription("Job status fetches by result."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordAnalysis records one finished orchestration.
func (m *Metrics) RecordAnalysis(ctx context.Context, outcome string, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.AnalysisDuration.Record(ctx, seconds, attrs)
	m.Analyses.Add(ctx, 1, attrs)
}

// RecordRetry records one backoff sleep for op.
func (m *Metrics) RecordRetry(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.Retries.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// RecordPoll records one status fetch.
func (m *Metrics) RecordPoll(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.PollCycles.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// Provider bundles a meter provider with the HTTP handler serving its
// Prometheus registry.
type Provider struct {
	MeterProvider *sdkmetric.MeterProvider
	Handler       http.Handler
}

// NewPrometheusProvider builds a MeterProvider backed by a dedicated
// Prometheus registry.
func NewPrometheusProvider() (*Provider, error) {
	reg := prometheus.NewRegistry()
	exp, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	return &Provider{
		MeterProvider: mp,
		Handler:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, nil
}

// Shutdown flushes the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.MeterProvider == nil {
		return nil
	}
	return errors.Join(p.MeterProvider.ForceFlush(ctx), p.MeterProvider.Shutdown(ctx))
}
