// Package engine wires a jobwatch.Config into an API client, an event
// source and a job tracker, and provides Track/Wait on top of them.
//
// This package exists to break the import cycle: the stream package
// depends on both client and tracker, so neither can construct it. The
// engine package sits above all of them and below the application layer.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/backoff"
	"github.com/xraph/jobwatch/client"
	"github.com/xraph/jobwatch/ext"
	"github.com/xraph/jobwatch/job"
	mw "github.com/xraph/jobwatch/middleware"
	"github.com/xraph/jobwatch/observability"
	"github.com/xraph/jobwatch/stream"
	"github.com/xraph/jobwatch/tracker"
)

// Engine owns the client, source and tracker built from one Config.
type Engine struct {
	cfg        jobwatch.Config
	logger     *slog.Logger
	extensions *ext.Registry
	client     *client.Client
	source     tracker.Source
	tracker    *tracker.Tracker

	// Collected by options, consumed by Build.
	exts       []ext.Extension
	mws        []mw.Middleware
	bo         backoff.Strategy
	store      job.Store
	httpClient *http.Client
	customSrc  tracker.Source

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = l }
}

// WithExtension registers a tracker extension.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) { eng.exts = append(eng.exts, e) }
}

// WithMiddleware appends middleware around every API call.
func WithMiddleware(m ...mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m...) }
}

// WithBackoff overrides the retry delay strategy. If not set,
// backoff.DefaultStrategy(PollInterval, MaxBackoff) is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) { eng.bo = b }
}

// WithStore seeds and records last-known job states in s.
func WithStore(s job.Store) Option {
	return func(eng *Engine) { eng.store = s }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(eng *Engine) { eng.httpClient = hc }
}

// WithSource replaces the source selected by Config.Transport.
func WithSource(src tracker.Source) Option {
	return func(eng *Engine) { eng.customSrc = src }
}

// WithTracerProvider sets a custom OTel TracerProvider for API call spans.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider. Both the metrics
// middleware and the observability extension use it.
// If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}

// Build validates cfg and creates an Engine.
func Build(cfg jobwatch.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	eng := &Engine{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(eng)
	}

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer("github.com/xraph/jobwatch"))
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware and extension (custom provider or global).
	var (
		metricsMw mw.Middleware
		obsExt    *observability.MetricsExtension
	)
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter("github.com/xraph/jobwatch"))
		obsExt = observability.NewMetricsExtensionWithMeter(eng.meterProvider.Meter("github.com/xraph/jobwatch/observability"))
	} else {
		metricsMw = mw.Metrics()
		obsExt = observability.NewMetricsExtension()
	}

	eng.extensions = ext.NewRegistry(eng.logger)
	eng.extensions.Register(obsExt)
	for _, e := range eng.exts {
		eng.extensions.Register(e)
	}

	// Client chain: recover → logging → tracing → metrics → user → timeout.
	clientOpts := []client.Option{
		client.WithLogger(eng.logger),
		client.WithMiddleware(tracingMw, metricsMw),
		client.WithMiddleware(eng.mws...),
	}
	if eng.httpClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(eng.httpClient))
	}
	c, err := client.New(cfg, clientOpts...)
	if err != nil {
		return nil, err
	}
	eng.client = c

	src, err := eng.buildSource()
	if err != nil {
		return nil, err
	}
	eng.source = src

	if eng.bo == nil {
		eng.bo = backoff.DefaultStrategy(cfg.PollInterval, cfg.MaxBackoff)
	}
	trackerOpts := []tracker.Option{
		tracker.WithInterval(cfg.PollInterval),
		tracker.WithBackoff(eng.bo),
		tracker.WithLogger(eng.logger),
		tracker.WithExtensions(eng.extensions),
		tracker.WithFirstObservation(tracker.FirstObservation(cfg.FirstObservation)),
	}
	if eng.store != nil {
		trackerOpts = append(trackerOpts, tracker.WithStore(eng.store))
	}
	eng.tracker = tracker.New(src, trackerOpts...)

	eng.logger.Debug("jobwatch engine built",
		slog.String("api_url", c.APIURL()),
		slog.String("transport", src.Name()),
		slog.Duration("poll_interval", cfg.PollInterval),
	)
	return eng, nil
}

func (eng *Engine) buildSource() (tracker.Source, error) {
	if eng.customSrc != nil {
		return eng.customSrc, nil
	}
	switch eng.cfg.Transport {
	case jobwatch.TransportEvents:
		return stream.NewEventPoller(eng.client,
			stream.WithPollInterval(eng.cfg.PollInterval),
			stream.WithPollerLogger(eng.logger),
		), nil
	case jobwatch.TransportPush:
		opts := []stream.SourceOption{
			stream.WithToken(eng.cfg.Token),
			stream.WithSourceLogger(eng.logger),
			stream.WithDialTimeout(eng.cfg.FetchTimeout),
		}
		if eng.httpClient != nil {
			opts = append(opts, stream.WithStreamHTTPClient(eng.httpClient))
		}
		src, err := stream.NewSSESource(eng.client.APIURL(), opts...)
		if err != nil {
			return nil, fmt.Errorf("jobwatch/engine: push source: %w", err)
		}
		return src, nil
	case jobwatch.TransportPushWS:
		src, err := stream.NewSource(eng.client.APIURL(),
			stream.WithToken(eng.cfg.Token),
			stream.WithCodec(stream.GetCodec(eng.cfg.StreamFormat)),
			stream.WithSourceLogger(eng.logger),
			stream.WithDialTimeout(eng.cfg.FetchTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("jobwatch/engine: push-ws source: %w", err)
		}
		return src, nil
	default:
		return tracker.NewPollSource(eng.client), nil
	}
}

// Track subscribes h to state changes of jobID.
func (eng *Engine) Track(jobID string, h tracker.Handlers) (*tracker.Subscription, error) {
	return eng.tracker.Subscribe(jobID, h)
}

// Wait blocks until jobID reaches a terminal state. See tracker.Wait.
func (eng *Engine) Wait(ctx context.Context, jobID string) (*job.Snapshot, error) {
	return eng.tracker.Wait(ctx, jobID)
}

// Close stops all tracking sessions. It must not be called from a
// subscription callback.
func (eng *Engine) Close() error {
	return eng.tracker.Close()
}

// Client returns the API client.
func (eng *Engine) Client() *client.Client { return eng.client }

// Tracker returns the job tracker.
func (eng *Engine) Tracker() *tracker.Tracker { return eng.tracker }

// Source returns the event source the tracker reads.
func (eng *Engine) Source() tracker.Source { return eng.source }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Store returns the snapshot store, or nil when none was configured.
func (eng *Engine) Store() job.Store { return eng.store }

// Config returns the configuration the engine was built from.
func (eng *Engine) Config() jobwatch.Config { return eng.cfg }
