// Package client provides a Go client for the job API, for both kinds of
// callers: a backend holding a service token (Client) and an end user
// holding a short-lived token bound to one job (EndUser).
//
// Usage:
//
//	c, err := client.New(cfg,
//	    client.WithMiddleware(middleware.Tracing(), middleware.Metrics()),
//	)
//
//	// Create a job and read it back.
//	j, err := c.CreateJob(ctx, job.CreateRequest{ServiceID: "svc", Input: in})
//	cur, err := c.GetJob(ctx, j.ID)
//
// Every call goes through the configured middleware chain and fails with
// a *jobwatch.ClientError, *jobwatch.ServerError or *jobwatch.ParseError.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"golang.org/x/time/rate"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/middleware"
)

// Client talks to the job API with a service token.
type Client struct {
	apiURL   string
	vaultURL string
	token    string
	logger   *slog.Logger

	httpClient *http.Client
	limiter    *rate.Limiter
	extra      []middleware.Middleware
	chain      middleware.Middleware
}

// New creates a Client from cfg. cfg.Token is required.
func New(cfg jobwatch.Config, opts ...Option) (*Client, error) {
	if cfg.Token == "" {
		return nil, jobwatch.ErrNoToken
	}
	def := jobwatch.DefaultConfig()
	if cfg.APIURL == "" {
		cfg.APIURL = def.APIURL
	}
	if cfg.VaultURL == "" {
		cfg.VaultURL = def.VaultURL
	}

	c := &Client{
		apiURL:     canonical(cfg.APIURL),
		vaultURL:   canonical(cfg.VaultURL),
		token:      cfg.Token,
		logger:     slog.Default(),
		httpClient: http.DefaultClient,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}
	for _, opt := range opts {
		opt(c)
	}

	mws := make([]middleware.Middleware, 0, len(c.extra)+3)
	mws = append(mws,
		middleware.Recover(c.logger),
		middleware.Logging(c.logger),
	)
	mws = append(mws, c.extra...)
	mws = append(mws, middleware.Timeout(cfg.FetchTimeout))
	c.chain = middleware.Chain(mws...)

	return c, nil
}

// APIURL returns the canonical API base URL, always ending in "/".
func (c *Client) APIURL() string { return c.apiURL }

// Token returns the credential sent with every request.
func (c *Client) Token() string { return c.token }

// request describes one API round-trip.
type request struct {
	op     string
	method string
	base   string
	path   string
	jobID  string
	query  url.Values
	body   any
}

// do runs r through the middleware chain and decodes a 2xx JSON body
// into out. A nil out discards the body.
func (c *Client) do(ctx context.Context, r request, out any) error {
	return c.send(ctx, r, func(data []byte) error {
		if out == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return &jobwatch.ParseError{Err: err}
		}
		return nil
	})
}

// send runs r through the middleware chain and hands the raw 2xx body to
// handle.
func (c *Client) send(ctx context.Context, r request, handle func([]byte) error) error {
	if r.base == "" {
		r.base = c.apiURL
	}
	call := middleware.NewCall(r.op, r.method, r.path)
	call.JobID = r.jobID

	return c.chain(ctx, call, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				// The next token comes after the call deadline: a local
				// throttle, transient like an overloaded server.
				return jobwatch.Transport(fmt.Errorf("jobwatch/client: rate limit: %w", err))
			}
		}

		req, err := c.newRequest(ctx, call.Method, r)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return jobwatch.Transport(err)
		}
		defer resp.Body.Close()
		call.StatusCode = resp.StatusCode

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return jobwatch.Transport(err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return jobwatch.Classify(resp.StatusCode, ErrorMessage(data))
		}
		return handle(data)
	})
}

func (c *Client) newRequest(ctx context.Context, method string, r request) (*http.Request, error) {
	target := r.base + strings.TrimPrefix(r.path, "/")
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("jobwatch/client: marshal %s body: %w", r.op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("jobwatch/client: build %s request: %w", r.op, err)
	}
	// Carries the span started by the tracing middleware, if any.
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	req.Header.Set("Authorization", BasicAuth(c.token))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// BasicAuth returns the Authorization header value for token: the token
// is the user name and the password is empty.
func BasicAuth(token string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(token+":"))
}

// ErrorMessage extracts the "message" field of an API error body.
func ErrorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &body) != nil {
		return ""
	}
	return body.Message
}

func canonical(base string) string {
	if strings.HasSuffix(base, "/") {
		return base
	}
	return base + "/"
}

// require rejects empty string arguments.
func require(args ...string) error {
	for i := 0; i+1 < len(args); i += 2 {
		if args[i+1] == "" {
			return fmt.Errorf("%w: %s", jobwatch.ErrEmptyArgument, args[i])
		}
	}
	return nil
}
