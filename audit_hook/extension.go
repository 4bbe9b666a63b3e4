package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/ext"
	"github.com/xraph/jobwatch/job"
)

// Compile-time interface checks.
var (
	_ ext.Extension     = (*Extension)(nil)
	_ ext.SessionOpened = (*Extension)(nil)
	_ ext.StateChanged  = (*Extension)(nil)
	_ ext.FetchRetrying = (*Extension)(nil)
	_ ext.FetchFailed   = (*Extension)(nil)
	_ ext.SessionClosed = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one entry of the audit trail.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges tracker events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through r.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit-hook" }

// ── Session hooks ───────────────────────────────────

// OnSessionOpened implements ext.SessionOpened.
func (e *Extension) OnSessionOpened(ctx context.Context, jobID, source string) error {
	return e.record(ctx, ActionSessionOpened, SeverityInfo, OutcomeSuccess,
		jobID, CategorySession, nil,
		"source", source,
	)
}

// OnSessionClosed implements ext.SessionClosed.
func (e *Extension) OnSessionClosed(ctx context.Context, jobID string, reason ext.CloseReason, elapsed time.Duration) error {
	severity, outcome := SeverityInfo, OutcomeSuccess
	switch reason {
	case ext.CloseFatal:
		severity, outcome = SeverityCritical, OutcomeFailure
	case ext.CloseCancelled:
		severity = SeverityWarning
	}
	return e.record(ctx, ActionSessionClosed, severity, outcome,
		jobID, CategorySession, nil,
		"reason", string(reason),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ── Job hooks ───────────────────────────────────────

// OnStateChanged implements ext.StateChanged. A change into the fail
// state is recorded as a critical failure.
func (e *Extension) OnStateChanged(ctx context.Context, cur, prev *job.Snapshot) error {
	severity, outcome := SeverityInfo, OutcomeSuccess
	if cur.State == job.StateFail {
		severity, outcome = SeverityCritical, OutcomeFailure
	}
	prevState := ""
	if prev != nil {
		prevState = string(prev.State)
	}
	return e.record(ctx, ActionStateChanged, severity, outcome,
		cur.ID, CategoryJob, nil,
		"state", string(cur.State),
		"prev_state", prevState,
	)
}

// OnFetchRetrying implements ext.FetchRetrying.
func (e *Extension) OnFetchRetrying(ctx context.Context, jobID string, attempt int, retryIn time.Duration, err error) error {
	return e.record(ctx, ActionFetchRetrying, SeverityWarning, OutcomeFailure,
		jobID, CategoryJob, err,
		"attempt", attempt,
		"retry_in_ms", retryIn.Milliseconds(),
		"status_code", jobwatch.StatusCode(err),
	)
}

// OnFetchFailed implements ext.FetchFailed.
func (e *Extension) OnFetchFailed(ctx context.Context, jobID string, err error) error {
	return e.record(ctx, ActionFetchFailed, SeverityCritical, OutcomeFailure,
		jobID, CategoryJob, err,
		"status_code", jobwatch.StatusCode(err),
	)
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
// Recorder failures are logged, never returned.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	jobID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   ResourceJob,
		Category:   category,
		ResourceID: jobID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			slog.String("action", action),
			slog.String("job_id", jobID),
			slog.String("error", recErr.Error()),
		)
	}
	return nil
}
