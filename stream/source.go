package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/client"
	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/tracker"
)

var _ tracker.Source = (*Source)(nil)

// Source observes jobs through events pushed over a WebSocket at
// {api}/jobs/{id}/events. Streams block until the server pushes a
// state-naming event, so the tracker does not pace them.
type Source struct {
	sourceConfig
	base *url.URL
}

// sourceConfig holds the settings shared by the push sources.
type sourceConfig struct {
	token       string
	codec       Codec
	logger      *slog.Logger
	dialTimeout time.Duration
	httpClient  *http.Client
}

func newSourceConfig(opts []SourceOption) sourceConfig {
	cfg := sourceConfig{
		codec:      &JSONCodec{},
		logger:     slog.Default(),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// SourceOption configures a Source or an SSESource.
type SourceOption func(*sourceConfig)

// WithToken authenticates the handshake with Basic auth.
func WithToken(token string) SourceOption {
	return func(c *sourceConfig) { c.token = token }
}

// WithCodec sets the WebSocket frame codec. Defaults to JSON. Server-sent
// events are always JSON.
func WithCodec(codec Codec) SourceOption {
	return func(c *sourceConfig) { c.codec = codec }
}

// WithSourceLogger sets the logger of a push source.
func WithSourceLogger(l *slog.Logger) SourceOption {
	return func(c *sourceConfig) { c.logger = l }
}

// WithDialTimeout bounds the handshake: the WebSocket upgrade, or the
// wait for response headers of an event stream.
func WithDialTimeout(d time.Duration) SourceOption {
	return func(c *sourceConfig) { c.dialTimeout = d }
}

// WithStreamHTTPClient sets the HTTP client that opens event streams. Its
// Timeout must be zero, since a stream stays open for the life of the job.
func WithStreamHTTPClient(hc *http.Client) SourceOption {
	return func(c *sourceConfig) { c.httpClient = hc }
}

// NewSource creates a WebSocket source for the API at apiURL. http(s)
// URLs are mapped to ws(s).
func NewSource(apiURL string, opts ...SourceOption) (*Source, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("jobwatch/stream: parse url %q: %w", apiURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("jobwatch/stream: unsupported url scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	return &Source{sourceConfig: newSourceConfig(opts), base: u}, nil
}

// Name implements tracker.Source.
func (s *Source) Name() string { return "push-ws" }

// Open implements tracker.Source. The connection is dialled by the first
// Next call.
func (s *Source) Open(jobID string) tracker.Stream {
	return &pushStream{src: s, jobID: jobID}
}

func (s *Source) endpoint(jobID string) string {
	u := s.base.JoinPath("jobs", jobID, "events")
	u.RawQuery = url.Values{"format": {s.codec.Name()}}.Encode()
	return u.String()
}

func (s *Source) dialer() ws.Dialer {
	d := ws.Dialer{Timeout: s.dialTimeout}
	if s.token != "" {
		d.Header = ws.HandshakeHeaderHTTP(http.Header{
			"Authorization": []string{client.BasicAuth(s.token)},
		})
	}
	return d
}

// pushStream is read only by its session goroutine.
type pushStream struct {
	src   *Source
	jobID string

	conn net.Conn
	rw   io.ReadWriter
}

// Next returns the next state announced by the server. A handshake
// rejected with a status below 500 is a ClientError. Dial and read
// failures are ServerErrors and the following Next reconnects.
func (p *pushStream) Next(ctx context.Context) (*job.Snapshot, error) {
	if p.conn == nil {
		if err := p.connect(ctx); err != nil {
			return nil, err
		}
	}

	conn := p.conn
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		data, _, err := wsutil.ReadServerData(p.rw)
		if err != nil {
			p.reset()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, jobwatch.Transport(fmt.Errorf("read event stream: %w", err))
		}

		var e job.Event
		if err := p.src.codec.Decode(data, &e); err != nil {
			return nil, &jobwatch.ParseError{Err: fmt.Errorf("decode %s frame: %w", p.src.codec.Name(), err)}
		}
		if snap, ok := job.SnapshotFromEvent(p.jobID, e); ok {
			return snap, nil
		}
	}
}

func (p *pushStream) connect(ctx context.Context) error {
	conn, br, _, err := p.src.dialer().Dial(ctx, p.src.endpoint(p.jobID))
	if err != nil {
		var status ws.StatusError
		if errors.As(err, &status) {
			return jobwatch.Classify(int(status), "event stream handshake rejected")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return jobwatch.Transport(fmt.Errorf("dial event stream: %w", err))
	}

	p.conn = conn
	p.rw = conn
	if br != nil {
		// Frames sent right after the handshake are buffered in br.
		p.rw = struct {
			io.Reader
			io.Writer
		}{br, conn}
	}

	p.src.logger.Debug("event stream connected",
		slog.String("job_id", p.jobID),
		slog.String("codec", p.src.codec.Name()),
	)
	return nil
}

func (p *pushStream) reset() {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn = nil
	p.rw = nil
}

// Close sends a normal closure frame and releases the connection.
func (p *pushStream) Close() error {
	if p.conn == nil {
		return nil
	}
	_ = p.conn.SetWriteDeadline(time.Now().Add(time.Second))
	body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
	_ = wsutil.WriteClientMessage(p.conn, ws.OpClose, body)
	err := p.conn.Close()
	p.conn = nil
	p.rw = nil
	return err
}
