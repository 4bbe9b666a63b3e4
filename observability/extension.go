package observability

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/ext"
	"github.com/xraph/jobwatch/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension     = (*MetricsExtension)(nil)
	_ ext.SessionOpened = (*MetricsExtension)(nil)
	_ ext.StateChanged  = (*MetricsExtension)(nil)
	_ ext.FetchRetrying = (*MetricsExtension)(nil)
	_ ext.FetchFailed   = (*MetricsExtension)(nil)
	_ ext.SessionClosed = (*MetricsExtension)(nil)
)

const meterName = "github.com/xraph/jobwatch/observability"

// MetricsExtension records tracker lifecycle metrics with OpenTelemetry.
// Register it on the tracker's extension registry.
//
// Instruments:
//   - jobwatch.sessions.opened (Int64Counter), attribute: source
//   - jobwatch.sessions.active (Int64UpDownCounter)
//   - jobwatch.sessions.closed (Int64Counter), attribute: reason
//   - jobwatch.session.duration (Float64Histogram, seconds), attribute: reason
//   - jobwatch.state.changes (Int64Counter), attribute: state
//   - jobwatch.fetch.retries (Int64Counter), attribute: status
//   - jobwatch.fetch.failures (Int64Counter), attribute: status
type MetricsExtension struct {
	SessionsOpened  metric.Int64Counter
	SessionsActive  metric.Int64UpDownCounter
	SessionsClosed  metric.Int64Counter
	SessionDuration metric.Float64Histogram
	StateChanges    metric.Int64Counter
	FetchRetries    metric.Int64Counter
	FetchFailures   metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension on the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension on meter.
// Instruments that fail to register fall back to noop ones.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	m := &MetricsExtension{}
	m.SessionsOpened, _ = meter.Int64Counter("jobwatch.sessions.opened",
		metric.WithDescription("Tracking sessions started"),
		metric.WithUnit("{session}"),
	)
	m.SessionsActive, _ = meter.Int64UpDownCounter("jobwatch.sessions.active",
		metric.WithDescription("Jobs currently being tracked"),
		metric.WithUnit("{session}"),
	)
	m.SessionsClosed, _ = meter.Int64Counter("jobwatch.sessions.closed",
		metric.WithDescription("Tracking sessions ended"),
		metric.WithUnit("{session}"),
	)
	m.SessionDuration, _ = meter.Float64Histogram("jobwatch.session.duration",
		metric.WithDescription("Lifetime of tracking sessions in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600),
	)
	m.StateChanges, _ = meter.Int64Counter("jobwatch.state.changes",
		metric.WithDescription("Job state changes delivered to subscribers"),
		metric.WithUnit("{change}"),
	)
	m.FetchRetries, _ = meter.Int64Counter("jobwatch.fetch.retries",
		metric.WithDescription("Transient observation failures followed by a retry"),
		metric.WithUnit("{failure}"),
	)
	m.FetchFailures, _ = meter.Int64Counter("jobwatch.fetch.failures",
		metric.WithDescription("Observation failures that ended a session"),
		metric.WithUnit("{failure}"),
	)
	return m
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnSessionOpened implements ext.SessionOpened.
func (m *MetricsExtension) OnSessionOpened(ctx context.Context, _, source string) error {
	m.SessionsOpened.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
	m.SessionsActive.Add(ctx, 1)
	return nil
}

// OnStateChanged implements ext.StateChanged.
func (m *MetricsExtension) OnStateChanged(ctx context.Context, cur, _ *job.Snapshot) error {
	m.StateChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("state", string(cur.State))))
	return nil
}

// OnFetchRetrying implements ext.FetchRetrying.
func (m *MetricsExtension) OnFetchRetrying(ctx context.Context, _ string, _ int, _ time.Duration, err error) error {
	m.FetchRetries.Add(ctx, 1, metric.WithAttributes(statusAttr(err)))
	return nil
}

// OnFetchFailed implements ext.FetchFailed.
func (m *MetricsExtension) OnFetchFailed(ctx context.Context, _ string, err error) error {
	m.FetchFailures.Add(ctx, 1, metric.WithAttributes(statusAttr(err)))
	return nil
}

// OnSessionClosed implements ext.SessionClosed.
func (m *MetricsExtension) OnSessionClosed(ctx context.Context, _ string, reason ext.CloseReason, elapsed time.Duration) error {
	attrs := metric.WithAttributes(attribute.String("reason", string(reason)))
	m.SessionsClosed.Add(ctx, 1, attrs)
	m.SessionDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.SessionsActive.Add(ctx, -1)
	return nil
}

// statusAttr labels a failure by HTTP status, or "none" for transport and
// decoding errors.
func statusAttr(err error) attribute.KeyValue {
	if code := jobwatch.StatusCode(err); code > 0 {
		return attribute.String("status", strconv.Itoa(code))
	}
	return attribute.String("status", "none")
}
