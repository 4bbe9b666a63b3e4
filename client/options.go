package client

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/xraph/jobwatch/middleware"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for round-trips.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMiddleware appends middleware to the call chain. They run inside
// the built-in Recover and Logging middleware and outside the fetch
// timeout.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(c *Client) { c.extra = append(c.extra, mws...) }
}

// WithRateLimit limits the client to perSecond calls with the given
// burst. It overrides Config.RateLimit. A non-positive perSecond disables
// limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithVaultURL overrides Config.VaultURL.
func WithVaultURL(u string) Option {
	return func(c *Client) { c.vaultURL = canonical(u) }
}
