package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/client"
	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/tracker"
)

var _ tracker.Source = (*SSESource)(nil)

// SSESource observes jobs through the server-sent event stream at
// {api}/jobs/{id}/events. Every unnamed ("message") event carries one JSON
// job event. Named events, comments and keep-alives are skipped. Streams
// block until a state-naming event arrives, so the tracker does not pace
// them.
type SSESource struct {
	sourceConfig
	base    *url.URL
	decoder JSONCodec
}

// NewSSESource creates the default push source for the API at apiURL.
func NewSSESource(apiURL string, opts ...SourceOption) (*SSESource, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("jobwatch/stream: parse url %q: %w", apiURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("jobwatch/stream: unsupported url scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &SSESource{sourceConfig: newSourceConfig(opts), base: u}, nil
}

// Name implements tracker.Source.
func (s *SSESource) Name() string { return "push" }

// Open implements tracker.Source. The stream is requested by the first
// Next call.
func (s *SSESource) Open(jobID string) tracker.Stream {
	return &sseStream{src: s, jobID: jobID}
}

func (s *SSESource) endpoint(jobID string) string {
	return s.base.JoinPath("jobs", jobID, "events").String()
}

// sseStream is read only by its session goroutine.
type sseStream struct {
	src   *SSESource
	jobID string

	body   io.ReadCloser
	r      *bufio.Reader
	cancel context.CancelFunc

	// lastID is sent as Last-Event-ID when the stream is reopened.
	lastID string
}

// Next returns the next state announced by the server. A request rejected
// with a status below 500 is a ClientError. Connect and read failures are
// ServerErrors and the following Next reopens the stream.
func (p *sseStream) Next(ctx context.Context) (*job.Snapshot, error) {
	if p.body == nil {
		if err := p.connect(ctx); err != nil {
			return nil, err
		}
	}

	stop := context.AfterFunc(ctx, p.cancel)
	defer func() {
		if !stop() {
			// The connection was torn down by ctx.
			p.reset()
		}
	}()

	for {
		f, err := readFrame(p.r)
		if err != nil {
			p.reset()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, jobwatch.Transport(fmt.Errorf("read event stream: %w", err))
		}
		if f.hasID {
			p.lastID = f.id
		}
		if (f.event != "" && f.event != "message") || f.data == "" {
			continue
		}

		var e job.Event
		if err := p.src.decoder.Decode([]byte(f.data), &e); err != nil {
			return nil, &jobwatch.ParseError{Err: fmt.Errorf("decode event data: %w", err)}
		}
		if snap, ok := job.SnapshotFromEvent(p.jobID, e); ok {
			return snap, nil
		}
	}
}

func (p *sseStream) connect(ctx context.Context) error {
	// The request outlives this call; ctx only bounds the wait for headers.
	connCtx, cancel := context.WithCancel(context.Background())
	abort := context.AfterFunc(ctx, cancel)
	var timer *time.Timer
	if p.src.dialTimeout > 0 {
		timer = time.AfterFunc(p.src.dialTimeout, cancel)
	}

	req, err := http.NewRequestWithContext(connCtx, http.MethodGet, p.src.endpoint(p.jobID), nil)
	if err != nil {
		abort()
		cancel()
		return fmt.Errorf("jobwatch/stream: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if p.src.token != "" {
		req.Header.Set("Authorization", client.BasicAuth(p.src.token))
	}
	if p.lastID != "" {
		req.Header.Set("Last-Event-ID", p.lastID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := p.src.httpClient.Do(req)
	abort()
	if timer != nil {
		timer.Stop()
	}
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return jobwatch.Transport(fmt.Errorf("open event stream: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
		cancel()
		return jobwatch.Classify(resp.StatusCode, client.ErrorMessage(data))
	}
	ct := resp.Header.Get("Content-Type")
	if mt, _, _ := mime.ParseMediaType(ct); mt != "text/event-stream" {
		_ = resp.Body.Close()
		cancel()
		return &jobwatch.ParseError{Err: fmt.Errorf("event stream content type %q", ct)}
	}

	p.body = resp.Body
	p.r = bufio.NewReader(resp.Body)
	p.cancel = cancel

	p.src.logger.Debug("event stream connected",
		slog.String("job_id", p.jobID),
		slog.String("last_event_id", p.lastID),
	)
	return nil
}

func (p *sseStream) reset() {
	if p.cancel != nil {
		p.cancel()
	}
	if p.body != nil {
		_ = p.body.Close()
	}
	p.body = nil
	p.r = nil
	p.cancel = nil
}

// Close releases the connection.
func (p *sseStream) Close() error {
	p.reset()
	return nil
}

// frame is one dispatched server-sent event.
type frame struct {
	event string
	data  string
	id    string
	hasID bool
}

// readFrame reads lines up to the blank line that dispatches an event.
// Multiple data lines are joined with newlines. A frame cut short by the
// end of the stream is dropped.
func readFrame(r *bufio.Reader) (frame, error) {
	var (
		f    frame
		data []string
		seen bool
	)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return frame{}, err
		}
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")

		switch {
		case line == "":
			if !seen {
				continue
			}
			f.data = strings.Join(data, "\n")
			return f, nil
		case strings.HasPrefix(line, ":"):
			continue
		}

		seen = true
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			data = append(data, value)
		case "event":
			f.event = value
		case "id":
			f.id = value
			f.hasID = true
		}
	}
}
