// Package ext defines the extension system for job trackers.
// Extensions are notified of tracking lifecycle events (session opened,
// state changed, fetch failed, etc.) and can react to them with logging,
// metrics, auditing, etc.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/xraph/jobwatch/job"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// CloseReason tells why a tracking session ended.
type CloseReason string

const (
	// CloseTerminal means the job reached a terminal state.
	CloseTerminal CloseReason = "terminal"
	// CloseFatal means a non-retryable fetch error ended the session.
	CloseFatal CloseReason = "fatal"
	// CloseCancelled means the last subscriber unsubscribed.
	CloseCancelled CloseReason = "cancelled"
	// CloseShutdown means the tracker was closed.
	CloseShutdown CloseReason = "shutdown"
)

// ──────────────────────────────────────────────────
// Session lifecycle hooks
// ──────────────────────────────────────────────────

// SessionOpened is called when tracking of a job starts.
type SessionOpened interface {
	OnSessionOpened(ctx context.Context, jobID, source string) error
}

// StateChanged is called after a state change was delivered to
// subscribers. prev is nil for a first observation.
type StateChanged interface {
	OnStateChanged(ctx context.Context, cur, prev *job.Snapshot) error
}

// FetchRetrying is called when an observation fails transiently and the
// tracker backs off before retrying.
type FetchRetrying interface {
	OnFetchRetrying(ctx context.Context, jobID string, attempt int, retryIn time.Duration, err error) error
}

// FetchFailed is called when an observation fails with a non-retryable
// error.
type FetchFailed interface {
	OnFetchFailed(ctx context.Context, jobID string, err error) error
}

// SessionClosed is called once per session, after subscribers got their
// close signal.
type SessionClosed interface {
	OnSessionClosed(ctx context.Context, jobID string, reason CloseReason, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// Shutdown is called when the tracker is closed.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
