// Package observability records tracker lifecycle metrics with
// OpenTelemetry. MetricsExtension implements the tracker hooks and counts
// sessions, state changes, retries and failures. NewPrometheus wires a
// MeterProvider to a Prometheus scrape handler.
//
// For per-call tracing and metrics of API requests, see the middleware
// package: middleware.Tracing() and middleware.Metrics().
package observability
