package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordAnalysis(context.Background(), OutcomeCompleted, 1)
	m.RecordRetry(context.Background(), "presign")
	m.RecordPoll(context.Background(), "error")
}

func TestRecordRetry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := New(mp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.RecordRetry(context.Background(), "presign")
	m.RecordRetry(context.Background(), "presign")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "voicecheck.retries" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", md.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 2 {
		t.Errorf("expected 2 retries, got %d", total)
	}
}

func TestPrometheusProvider_ServesMetrics(t *testing.T) {
	p, err := NewPrometheusProvider()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Shutdown(context.Background()) //nolint:errcheck

	m, err := New(p.MeterProvider)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.RecordAnalysis(context.Background(), "done", 2.5)

	rec := httptest.NewRecorder()
	p.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "voicecheck_analyses") {
		t.Errorf("expected voicecheck_analyses in scrape output, got:\n%s", body)
	}
}
