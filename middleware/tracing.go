package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/jobwatch"
)

const tracerName = "github.com/xraph/jobwatch"

// Tracing wraps each API call in a client span named "jobwatch.api.<op>"
// using the global TracerProvider. With the default noop provider it is a
// pass-through.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer is Tracing with an explicit tracer.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, c *Call, next Handler) error {
		attrs := []attribute.KeyValue{
			attribute.String("jobwatch.op", c.Op),
			attribute.String("http.request.method", c.Method),
			attribute.String("url.path", c.Path),
		}
		if c.JobID != "" {
			attrs = append(attrs, attribute.String("jobwatch.job.id", c.JobID))
		}
		ctx, span := tracer.Start(ctx, "jobwatch.api."+c.Op,
			trace.WithAttributes(attrs...),
			trace.WithSpanKind(trace.SpanKindClient),
		)
		defer span.End()

		err := next(ctx)
		if c.StatusCode > 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", c.StatusCode))
		}
		span.SetAttributes(attribute.String("jobwatch.outcome", Outcome(err)))

		if err == nil {
			span.SetStatus(codes.Ok, "")
			return nil
		}
		span.SetAttributes(attribute.Bool("jobwatch.retryable", jobwatch.IsRetryable(err)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
}
