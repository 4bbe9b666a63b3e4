package tracker

import (
	"sync/atomic"

	"github.com/xraph/jobwatch/id"
	"github.com/xraph/jobwatch/job"
)

// Handlers are the callbacks of one subscription. Any of them may be nil.
// They run on the session goroutine, one at a time and never
// concurrently for the same job, with no tracker locks held.
type Handlers struct {
	// OnChange receives every state change in observation order. prev is
	// nil when there is no earlier state. Snapshots must not be modified.
	OnChange func(cur, prev *job.Snapshot)
	// OnError receives a *FetchError for every failed observation.
	OnError func(err error)
	// OnClose is called once when the session ends on its own: terminal
	// state, fatal error or tracker shutdown. It is not called after
	// Unsubscribe.
	OnClose func()
}

// Subscription is the handle returned by Tracker.Subscribe.
type Subscription struct {
	id      id.ID
	jobID   string
	h       Handlers
	tracker *Tracker
	session *session
	active  atomic.Bool
}

// ID returns the subscription handle ID.
func (s *Subscription) ID() id.ID { return s.id }

// JobID returns the tracked job.
func (s *Subscription) JobID() string { return s.jobID }

// Active reports whether the subscription still receives callbacks.
func (s *Subscription) Active() bool { return s.active.Load() }

// Unsubscribe removes the subscription. It is idempotent.
func (s *Subscription) Unsubscribe() { s.tracker.Unsubscribe(s) }
