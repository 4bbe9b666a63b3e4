// Package middleware provides composable middleware for API calls.
//
// A [Middleware] wraps one round-trip of the HTTP client. Middleware are
// composed into a chain using [Chain] and applied to every call the
// client makes, including the job fetches a tracker issues. They are
// applied right-to-left: the first middleware in the slice is the
// outermost wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging]: logs op, path, status, duration and outcome of each call
//   - [Recover]: catches panics and converts them to errors
//   - [Timeout]: bounds a call and reports expiry as a retryable error
//   - [Tracing]: wraps each call in an OpenTelemetry client span
//   - [Metrics]: records per-op duration and outcome counters
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, c *middleware.Call, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
package middleware
