// Package api serves a read-only HTTP view of a running engine: tracking
// sessions, stored snapshots, broker statistics and a live stream of
// tracker events.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/xraph/jobwatch/engine"
	"github.com/xraph/jobwatch/stream"
)

// DefaultWaitTimeout bounds GET /v1/jobs/{jobId}/wait when the request
// carries no timeout.
const DefaultWaitTimeout = 30 * time.Second

// API wires the HTTP handlers of a jobwatch Engine together.
type API struct {
	eng         *engine.Engine
	broker      *stream.Broker
	metrics     http.Handler
	logger      *slog.Logger
	waitTimeout time.Duration
}

// Option configures an API.
type Option func(*API)

// WithBroker enables GET /v1/events, streaming the broker's events as
// server-sent events.
func WithBroker(b *stream.Broker) Option {
	return func(a *API) { a.broker = b }
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *API) { a.metrics = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.logger = l }
}

// WithWaitTimeout sets the default bound of wait requests.
func WithWaitTimeout(d time.Duration) Option {
	return func(a *API) { a.waitTimeout = d }
}

// New creates an API from a jobwatch Engine.
func New(eng *engine.Engine, opts ...Option) *API {
	a := &API{
		eng:         eng,
		logger:      slog.Default(),
		waitTimeout: DefaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return mux
}

// RegisterRoutes registers all jobwatch routes into mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/jobs/{jobId}", a.getJob)
	mux.HandleFunc("GET /v1/jobs/{jobId}/wait", a.waitJob)
	mux.HandleFunc("GET /v1/sessions/{jobId}", a.getSession)
	mux.HandleFunc("GET /v1/snapshots", a.listSnapshots)
	mux.HandleFunc("GET /v1/stats", a.stats)

	if a.broker != nil {
		mux.HandleFunc("GET /v1/events", a.streamEvents)
	}
	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics)
	}
}
