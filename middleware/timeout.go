package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/jobwatch"
)

// Timeout returns middleware that bounds every call to d. A call cut off
// by its own deadline fails with a retryable *jobwatch.ServerError; a
// cancelled or expired parent context is passed through untouched.
// A non-positive d disables the middleware.
func Timeout(d time.Duration) Middleware {
	return func(ctx context.Context, c *Call, next Handler) error {
		if d <= 0 {
			return next(ctx)
		}
		callCtx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		err := next(callCtx)
		if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return &jobwatch.ServerError{
				Message: fmt.Sprintf("%s timed out after %s", c.Op, d),
				Err:     context.DeadlineExceeded,
			}
		}
		return err
	}
}
