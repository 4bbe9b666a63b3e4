// Package ext defines the extension system for job trackers.
//
// Extensions are notified of tracking lifecycle events and can react to
// them: recording metrics, writing audit logs, forwarding state changes.
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnStateChanged(ctx context.Context, cur, prev *job.Snapshot) error {
//	    log.Printf("job %s is now %s", cur.ID, cur.State)
//	    return nil
//	}
//
// # Session Lifecycle Hooks
//
//   - [SessionOpened]: tracking of a job started
//   - [StateChanged]: a state change was delivered to subscribers
//   - [FetchRetrying]: an observation failed and will be retried
//   - [FetchFailed]: an observation failed with a non-retryable error
//   - [SessionClosed]: the session ended (terminal, fatal, cancelled, shutdown)
//
// # Other Hooks
//
//   - [Shutdown]: the tracker is closing
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface. Hooks of different jobs run
// concurrently, so extensions must be safe for concurrent use.
package ext
