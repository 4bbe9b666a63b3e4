package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for jobwatch metrics.
const meterName = "github.com/xraph/jobwatch"

// Metrics returns middleware that records per-call metrics using the
// global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - jobwatch.api.duration (Float64Histogram): call latency in seconds,
//     with attributes: op, outcome
//   - jobwatch.api.calls (Int64Counter): total calls,
//     with attributes: op, outcome
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// On error the API returns noop instruments.
	duration, dErr := meter.Float64Histogram(
		"jobwatch.api.duration",
		metric.WithDescription("Duration of API calls in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr

	calls, cErr := meter.Int64Counter(
		"jobwatch.api.calls",
		metric.WithDescription("Total number of API calls"),
		metric.WithUnit("{call}"),
	)
	_ = cErr

	return func(ctx context.Context, c *Call, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		attrs := metric.WithAttributes(
			attribute.String("op", c.Op),
			attribute.String("outcome", Outcome(err)),
		)

		duration.Record(ctx, elapsed, attrs)
		calls.Add(ctx, 1, attrs)

		return err
	}
}
