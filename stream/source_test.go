package stream_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/backoff"
	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/stream"
	"github.com/xraph/jobwatch/tracker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type handshake struct {
	path   string
	format string
	auth   string
}

// eventServer upgrades every request and hands the connection to serve.
// The n argument counts connections from 0.
func eventServer(t *testing.T, serve func(n int, conn net.Conn)) (*httptest.Server, func() []handshake) {
	t.Helper()
	var (
		mu    sync.Mutex
		seen  []handshake
		conns atomic.Int32
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, handshake{
			path:   r.URL.Path,
			format: r.URL.Query().Get("format"),
			auth:   r.Header.Get("Authorization"),
		})
		mu.Unlock()

		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(int(conns.Add(1)-1), conn)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []handshake {
		mu.Lock()
		defer mu.Unlock()
		return append([]handshake(nil), seen...)
	}
}

func sendEvents(t *testing.T, conn net.Conn, c stream.Codec, names ...string) {
	t.Helper()
	op := ws.OpText
	if c.Name() == stream.CodecNameMsgpack {
		op = ws.OpBinary
	}
	for i, name := range names {
		data, err := c.Encode(&job.Event{
			Object:    job.EventObject,
			Name:      name,
			CreatedAt: job.Timestamp{Time: time.UnixMilli(int64(1000 + i))},
		})
		if err != nil {
			t.Errorf("Encode: %v", err)
			return
		}
		if err := wsutil.WriteServerMessage(conn, op, data); err != nil {
			return
		}
	}
}

// drain keeps the connection open until the client goes away.
func drain(conn net.Conn) {
	for {
		if _, _, err := wsutil.ReadClientData(conn); err != nil {
			return
		}
	}
}

type changes struct {
	mu     sync.Mutex
	states [][2]job.State
	errs   []error
	closed chan struct{}
}

func newChanges() *changes { return &changes{closed: make(chan struct{})} }

func (c *changes) handlers() tracker.Handlers {
	return tracker.Handlers{
		OnChange: func(cur, prev *job.Snapshot) {
			c.mu.Lock()
			defer c.mu.Unlock()
			var p job.State
			if prev != nil {
				p = prev.State
			}
			c.states = append(c.states, [2]job.State{p, cur.State})
		},
		OnError: func(err error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.errs = append(c.errs, err)
		},
		OnClose: func() { close(c.closed) },
	}
}

func (c *changes) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.closed:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for close")
	}
}

func TestSource_DeliversPushedStates(t *testing.T) {
	t.Parallel()

	for _, format := range []string{stream.CodecNameJSON, stream.CodecNameMsgpack} {
		t.Run(format, func(t *testing.T) {
			t.Parallel()
			codec := stream.GetCodec(format)

			srv, handshakes := eventServer(t, func(_ int, conn net.Conn) {
				sendEvents(t, conn, codec, "processing", "output", "processing", "success")
				drain(conn)
			})

			src, err := stream.NewSource(srv.URL, stream.WithToken("secret"), stream.WithCodec(codec), stream.WithSourceLogger(discardLogger()))
			if err != nil {
				t.Fatalf("NewSource: %v", err)
			}
			tr := tracker.New(src, tracker.WithLogger(discardLogger()))
			defer tr.Close()

			rec := newChanges()
			if _, err := tr.Subscribe("J1", rec.handlers()); err != nil {
				t.Fatalf("Subscribe: %v", err)
			}
			rec.wait(t)

			rec.mu.Lock()
			defer rec.mu.Unlock()
			if len(rec.states) != 1 || rec.states[0] != [2]job.State{job.StateProcessing, job.StateSuccess} {
				t.Errorf("changes = %v, want [processing→success]", rec.states)
			}
			if len(rec.errs) != 0 {
				t.Errorf("errors = %v", rec.errs)
			}

			hs := handshakes()
			if len(hs) != 1 {
				t.Fatalf("handshakes = %d, want 1", len(hs))
			}
			if hs[0].path != "/jobs/J1/events" || hs[0].format != format || hs[0].auth != "Basic c2VjcmV0Og==" {
				t.Errorf("handshake = %+v", hs[0])
			}
		})
	}
}

func TestSource_ReconnectsAfterDrop(t *testing.T) {
	t.Parallel()

	codec := stream.GetCodec("json")
	srv, handshakes := eventServer(t, func(n int, conn net.Conn) {
		if n == 0 {
			sendEvents(t, conn, codec, "processing")
			return
		}
		sendEvents(t, conn, codec, "success")
		drain(conn)
	})

	src, err := stream.NewSource(srv.URL, stream.WithSourceLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	tr := tracker.New(src,
		tracker.WithLogger(discardLogger()),
		tracker.WithInterval(10*time.Millisecond),
		tracker.WithBackoff(backoff.NewConstant(10*time.Millisecond)),
	)
	defer tr.Close()

	rec := newChanges()
	if _, err := tr.Subscribe("J1", rec.handlers()); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	rec.wait(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.errs) != 1 || !jobwatch.IsRetryable(rec.errs[0]) {
		t.Errorf("errors = %v, want one retryable", rec.errs)
	}
	if len(rec.states) != 1 || rec.states[0][1] != job.StateSuccess {
		t.Errorf("changes = %v", rec.states)
	}
	if got := len(handshakes()); got != 2 {
		t.Errorf("handshakes = %d, want 2", got)
	}
}

func TestSource_RejectedHandshakeIsClientError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	src, err := stream.NewSource(srv.URL, stream.WithSourceLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	s := src.Open("J1")
	defer s.Close()

	_, err = s.Next(context.Background())
	var ce *jobwatch.ClientError
	if !errors.As(err, &ce) || ce.StatusCode != http.StatusUnauthorized {
		t.Fatalf("err = %v, want ClientError 401", err)
	}
}

func TestSource_UnreachableIsRetryable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src, err := stream.NewSource(url, stream.WithSourceLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	s := src.Open("J1")
	defer s.Close()

	if _, err := s.Next(context.Background()); !jobwatch.IsRetryable(err) {
		t.Fatalf("err = %v, want retryable", err)
	}
}

func TestSource_UndecodableFrameIsParseError(t *testing.T) {
	t.Parallel()

	srv, _ := eventServer(t, func(_ int, conn net.Conn) {
		_ = wsutil.WriteServerMessage(conn, ws.OpText, []byte("{not json"))
		drain(conn)
	})

	src, err := stream.NewSource(srv.URL, stream.WithSourceLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	s := src.Open("J1")
	defer s.Close()

	_, err = s.Next(context.Background())
	var pe *jobwatch.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ParseError", err)
	}
	if jobwatch.IsRetryable(err) {
		t.Error("ParseError must not be retryable")
	}
}

func TestSource_NextHonoursContext(t *testing.T) {
	t.Parallel()

	srv, _ := eventServer(t, func(_ int, conn net.Conn) { drain(conn) })

	src, err := stream.NewSource(srv.URL, stream.WithSourceLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	s := src.Open("J1")
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = s.Next(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Next did not return promptly after cancellation")
	}
}

func TestNewSource_RejectsUnknownScheme(t *testing.T) {
	t.Parallel()

	if _, err := stream.NewSource("ftp://example.com"); err == nil {
		t.Error("expected error for ftp scheme")
	}
}
