package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/jobwatch/job"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type sessionOpenedEntry struct {
	name string
	hook SessionOpened
}

type stateChangedEntry struct {
	name string
	hook StateChanged
}

type fetchRetryingEntry struct {
	name string
	hook FetchRetrying
}

type fetchFailedEntry struct {
	name string
	hook FetchFailed
}

type sessionClosedEntry struct {
	name string
	hook SessionClosed
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
//
// Register all extensions before the registry is handed to a tracker;
// emits run concurrently from every session goroutine.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	sessionOpened []sessionOpenedEntry
	stateChanged  []stateChangedEntry
	fetchRetrying []fetchRetryingEntry
	fetchFailed   []fetchFailedEntry
	sessionClosed []sessionClosedEntry
	shutdown      []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(SessionOpened); ok {
		r.sessionOpened = append(r.sessionOpened, sessionOpenedEntry{name, h})
	}
	if h, ok := e.(StateChanged); ok {
		r.stateChanged = append(r.stateChanged, stateChangedEntry{name, h})
	}
	if h, ok := e.(FetchRetrying); ok {
		r.fetchRetrying = append(r.fetchRetrying, fetchRetryingEntry{name, h})
	}
	if h, ok := e.(FetchFailed); ok {
		r.fetchFailed = append(r.fetchFailed, fetchFailedEntry{name, h})
	}
	if h, ok := e.(SessionClosed); ok {
		r.sessionClosed = append(r.sessionClosed, sessionClosedEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Session event emitters
// ──────────────────────────────────────────────────

// EmitSessionOpened notifies all extensions that implement SessionOpened.
func (r *Registry) EmitSessionOpened(ctx context.Context, jobID, source string) {
	for _, e := range r.sessionOpened {
		if err := e.hook.OnSessionOpened(ctx, jobID, source); err != nil {
			r.logHookError("OnSessionOpened", e.name, err)
		}
	}
}

// EmitStateChanged notifies all extensions that implement StateChanged.
func (r *Registry) EmitStateChanged(ctx context.Context, cur, prev *job.Snapshot) {
	for _, e := range r.stateChanged {
		if err := e.hook.OnStateChanged(ctx, cur, prev); err != nil {
			r.logHookError("OnStateChanged", e.name, err)
		}
	}
}

// EmitFetchRetrying notifies all extensions that implement FetchRetrying.
func (r *Registry) EmitFetchRetrying(ctx context.Context, jobID string, attempt int, retryIn time.Duration, fetchErr error) {
	for _, e := range r.fetchRetrying {
		if err := e.hook.OnFetchRetrying(ctx, jobID, attempt, retryIn, fetchErr); err != nil {
			r.logHookError("OnFetchRetrying", e.name, err)
		}
	}
}

// EmitFetchFailed notifies all extensions that implement FetchFailed.
func (r *Registry) EmitFetchFailed(ctx context.Context, jobID string, fetchErr error) {
	for _, e := range r.fetchFailed {
		if err := e.hook.OnFetchFailed(ctx, jobID, fetchErr); err != nil {
			r.logHookError("OnFetchFailed", e.name, err)
		}
	}
}

// EmitSessionClosed notifies all extensions that implement SessionClosed.
func (r *Registry) EmitSessionClosed(ctx context.Context, jobID string, reason CloseReason, elapsed time.Duration) {
	for _, e := range r.sessionClosed {
		if err := e.hook.OnSessionClosed(ctx, jobID, reason, elapsed); err != nil {
			r.logHookError("OnSessionClosed", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other event emitters
// ──────────────────────────────────────────────────

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Errors from hooks are never propagated; they must not stall tracking.
func (r *Registry) logHookError(hook, extName string, err error) {
	r.logger.Warn("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extName),
		slog.String("error", err.Error()),
	)
}
