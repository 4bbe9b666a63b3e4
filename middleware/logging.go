package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Logging logs every API call with its op, path, status, outcome and
// duration. Successful and cancelled calls log at Debug, failures at Warn.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, c *Call, next Handler) error {
		start := time.Now()
		err := next(ctx)

		attrs := []slog.Attr{
			slog.String("op", c.Op),
			slog.String("method", c.Method),
			slog.String("path", c.Path),
			slog.Int("status", c.StatusCode),
			slog.String("outcome", Outcome(err)),
			slog.Duration("elapsed", time.Since(start)),
		}

		level, msg := slog.LevelDebug, "api call"
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			msg = "api call cancelled"
		default:
			level, msg = slog.LevelWarn, "api call failed"
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		logger.LogAttrs(ctx, level, msg, attrs...)
		return err
	}
}
