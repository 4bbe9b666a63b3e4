// Package middleware provides composable middleware for API calls.
// Middleware wraps each round-trip synchronously and can observe or alter
// it (recover from panics, bound its duration, log, trace, count).
package middleware

import (
	"context"
	"net/http"
)

// Call describes one API round-trip as seen by middleware.
type Call struct {
	// Op names the client operation (e.g. "job.get", "job.outputs").
	Op string
	// Method is the HTTP method.
	Method string
	// Path is the request path relative to the API base URL.
	Path string
	// JobID is set when the call targets a single job.
	JobID string
	// StatusCode is filled in by the client once a response arrives.
	StatusCode int
}

// NewCall returns a Call for op with the given method and path.
func NewCall(op, method, path string) *Call {
	if method == "" {
		method = http.MethodGet
	}
	return &Call{Op: op, Method: method, Path: path}
}

// Handler performs the round-trip.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the call being made, and the next
// handler. Middleware MUST call next to continue the chain (unless
// short-circuiting on error).
type Middleware func(ctx context.Context, c *Call, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// The first middleware in the list is the outermost wrapper.
//
// Example: Chain(logging, recover, timeout) executes as:
//
//	logging → recover → timeout → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, c *Call, next Handler) error {
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, c, prev)
			}
		}
		return h(ctx)
	}
}
