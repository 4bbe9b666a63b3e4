// Package audithook is a tracker extension that turns job tracking events
// into an audit trail.
//
// Every tracker hook emits a structured audit event through the [Recorder]
// interface. Severity follows the event: info for routine transitions,
// warning for retries and cancelled sessions, critical for failed jobs and
// sessions ended by a non-retryable error.
//
// # Usage
//
//	reg := ext.NewRegistry(logger)
//	reg.Register(audithook.New(audithook.RecorderFunc(func(ctx context.Context, evt *audithook.AuditEvent) error {
//	    logger.InfoContext(ctx, evt.Action,
//	        slog.String("job_id", evt.ResourceID),
//	        slog.String("outcome", evt.Outcome),
//	    )
//	    return nil
//	})))
//
// # Selective filtering
//
//	audithook.New(recorder,
//	    audithook.WithActions(
//	        audithook.ActionStateChanged,
//	        audithook.ActionFetchFailed,
//	    ),
//	)
package audithook
