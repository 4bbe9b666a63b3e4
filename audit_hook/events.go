package audithook

// Audit event actions. Each constant corresponds to one tracker hook and
// becomes the Action field of the audit event.
const (
	ActionSessionOpened = "session.opened"
	ActionSessionClosed = "session.closed"
	ActionStateChanged  = "job.state_changed"
	ActionFetchRetrying = "job.fetch_retrying"
	ActionFetchFailed   = "job.fetch_failed"
)

// Audit event categories group related actions.
const (
	CategorySession = "jobwatch.session"
	CategoryJob     = "jobwatch.job"
)

// ResourceJob is the Resource field of every audit event; ResourceID
// carries the job id.
const ResourceJob = "job"

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionSessionOpened,
		ActionSessionClosed,
		ActionStateChanged,
		ActionFetchRetrying,
		ActionFetchFailed,
	}
}
