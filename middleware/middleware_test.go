package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/middleware"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCall() *middleware.Call {
	c := middleware.NewCall("job.get", "", "jobs/J1")
	c.JobID = "J1"
	return c
}

func TestChain_ExecutionOrder(t *testing.T) {
	var order []string

	mw1 := func(ctx context.Context, _ *middleware.Call, next middleware.Handler) error {
		order = append(order, "mw1-before")
		err := next(ctx)
		order = append(order, "mw1-after")
		return err
	}

	mw2 := func(ctx context.Context, _ *middleware.Call, next middleware.Handler) error {
		order = append(order, "mw2-before")
		err := next(ctx)
		order = append(order, "mw2-after")
		return err
	}

	chain := middleware.Chain(mw1, mw2)
	handler := func(_ context.Context) error {
		order = append(order, "handler")
		return nil
	}

	if err := chain(context.Background(), newTestCall(), handler); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"mw1-before", "mw2-before", "handler", "mw2-after", "mw1-after"}
	if len(order) != len(expected) {
		t.Fatalf("expected %d calls, got %d: %v", len(expected), len(order), order)
	}
	for i, want := range expected {
		if order[i] != want {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want)
		}
	}
}

func TestChain_Empty(t *testing.T) {
	chain := middleware.Chain()
	called := false

	err := chain(context.Background(), newTestCall(), func(_ context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("handler not called with empty chain")
	}
}

func TestChain_PropagatesError(t *testing.T) {
	mw := func(ctx context.Context, _ *middleware.Call, next middleware.Handler) error {
		return next(ctx)
	}
	want := errors.New("handler error")

	err := middleware.Chain(mw)(context.Background(), newTestCall(), func(_ context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestNewCall_DefaultsToGet(t *testing.T) {
	if c := middleware.NewCall("services", "", "services"); c.Method != "GET" {
		t.Errorf("Method = %q, want GET", c.Method)
	}
}

func TestRecover_CatchesPanic(t *testing.T) {
	mw := middleware.Recover(testLogger())

	err := mw(context.Background(), newTestCall(), func(_ context.Context) error {
		panic("test panic")
	})
	if err == nil {
		t.Fatal("expected error from panic recovery")
	}
	if got := err.Error(); got != "panic in job.get: test panic" {
		t.Errorf("unexpected error message: %q", got)
	}
	var pe *middleware.PanicError
	if !errors.As(err, &pe) || pe.Value != "test panic" || len(pe.Stack) == 0 {
		t.Errorf("expected *PanicError with stack, got %#v", err)
	}
	if jobwatch.IsRetryable(err) {
		t.Error("a panic must not be retried")
	}
}

func TestRecover_PassesThrough(t *testing.T) {
	mw := middleware.Recover(testLogger())

	called := false
	err := mw(context.Background(), newTestCall(), func(_ context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("handler not called")
	}
}

func TestLogging_PassesResultThrough(t *testing.T) {
	mw := middleware.Logging(testLogger())

	if err := mw(context.Background(), newTestCall(), func(_ context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &jobwatch.ClientError{StatusCode: 404, Message: "not found"}
	err := mw(context.Background(), newTestCall(), func(_ context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestLogging_LevelFollowsOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ok", nil, `level=DEBUG msg="api call"`},
		{"cancelled", context.Canceled, `level=DEBUG msg="api call cancelled"`},
		{"server error", &jobwatch.ServerError{StatusCode: 502, Message: "bad gateway"}, `level=WARN msg="api call failed"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			mw := middleware.Logging(logger)

			_ = mw(context.Background(), newTestCall(), func(_ context.Context) error { return tt.err })
			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("log = %q, want it to contain %q", out, tt.want)
			}
			if !strings.Contains(out, "op=job.get") {
				t.Errorf("log = %q, missing op", out)
			}
		})
	}
}

func TestTimeout_ExpiryIsRetryable(t *testing.T) {
	mw := middleware.Timeout(10 * time.Millisecond)

	err := mw(context.Background(), newTestCall(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !jobwatch.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected error to wrap DeadlineExceeded, got %v", err)
	}
}

func TestTimeout_ParentCancellationPassesThrough(t *testing.T) {
	mw := middleware.Timeout(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mw(ctx, newTestCall(), func(ctx context.Context) error {
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if jobwatch.IsRetryable(err) {
		t.Error("parent cancellation must not be classified as a server error")
	}
}

func TestTimeout_DisabledWhenZero(t *testing.T) {
	mw := middleware.Timeout(0)

	err := mw(context.Background(), newTestCall(), func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); ok {
			t.Error("unexpected deadline")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, middleware.OutcomeOK},
		{&jobwatch.ClientError{StatusCode: 401}, middleware.OutcomeClientError},
		{&jobwatch.ServerError{StatusCode: 503}, middleware.OutcomeServerError},
		{&jobwatch.ParseError{Err: io.ErrUnexpectedEOF}, middleware.OutcomeParseError},
		{errors.New("other"), middleware.OutcomeError},
	}
	for _, tt := range tests {
		if got := middleware.Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
