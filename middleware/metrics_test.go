package middleware_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xraph/jobwatch"
	mw "github.com/xraph/jobwatch/middleware"
)

func setupTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return reader, mp
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func attrsOf(set attribute.Set) map[string]string {
	out := make(map[string]string)
	for _, a := range set.ToSlice() {
		if a.Value.Type() == attribute.STRING {
			out[string(a.Key)] = a.Value.AsString()
		}
	}
	return out
}

func TestMetrics_RecordsDuration(t *testing.T) {
	reader, mp := setupTestMeter()
	m := mw.MetricsWithMeter(mp.Meter("test"))

	_ = m(context.Background(), newTestCall(), func(_ context.Context) error {
		return nil
	})

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "jobwatch.api.duration")
	if metric == nil {
		t.Fatal("jobwatch.api.duration metric not found")
	}

	hist, ok := metric.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("expected Histogram[float64] data type")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points recorded for duration")
	}
	if hist.DataPoints[0].Count != 1 {
		t.Errorf("expected count=1, got %d", hist.DataPoints[0].Count)
	}
}

func TestMetrics_CountsByOutcome(t *testing.T) {
	reader, mp := setupTestMeter()
	m := mw.MetricsWithMeter(mp.Meter("test"))

	_ = m(context.Background(), newTestCall(), func(_ context.Context) error {
		return nil
	})
	_ = m(context.Background(), newTestCall(), func(_ context.Context) error {
		return &jobwatch.ServerError{StatusCode: 502}
	})
	_ = m(context.Background(), newTestCall(), func(_ context.Context) error {
		return &jobwatch.ServerError{StatusCode: 503}
	})

	rm := collectMetrics(t, reader)
	metric := findMetric(rm, "jobwatch.api.calls")
	if metric == nil {
		t.Fatal("jobwatch.api.calls metric not found")
	}

	sum, ok := metric.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("expected Sum[int64] data type")
	}

	byOutcome := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		attrs := attrsOf(dp.Attributes)
		if attrs["op"] != "job.get" {
			t.Errorf("op = %q, want job.get", attrs["op"])
		}
		byOutcome[attrs["outcome"]] += dp.Value
	}
	if byOutcome["ok"] != 1 {
		t.Errorf("ok calls = %d, want 1", byOutcome["ok"])
	}
	if byOutcome["server_error"] != 2 {
		t.Errorf("server_error calls = %d, want 2", byOutcome["server_error"])
	}
}

func TestMetrics_DefaultNoopSafe(t *testing.T) {
	m := mw.Metrics()

	called := false
	err := m(context.Background(), newTestCall(), func(_ context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
}
