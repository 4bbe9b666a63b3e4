package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/jobwatch/ext"
	"github.com/xraph/jobwatch/id"
	"github.com/xraph/jobwatch/job"
)

// Phase is the state of a tracking session.
type Phase string

const (
	// PhasePolling means the last observation succeeded.
	PhasePolling Phase = "polling"
	// PhaseBackingOff means the session waits extra after a transient
	// failure.
	PhaseBackingOff Phase = "backing_off"
	// PhaseClosed means the session ended.
	PhaseClosed Phase = "closed"
)

// SessionInfo is a point-in-time view of a session.
type SessionInfo struct {
	ID          id.ID
	JobID       string
	Phase       Phase
	Backoff     int
	Fetches     int
	Last        *job.Snapshot
	Subscribers int
	Started     time.Time
}

// session is the runtime state of one tracked job. Fields below mu are
// guarded by it; lock order is Tracker.mu then session.mu.
type session struct {
	id      id.ID
	jobID   string
	ctx     context.Context
	cancel  context.CancelFunc
	started time.Time
	// done is closed when the session goroutine returns.
	done chan struct{}
	// prev is the stopped session of the same job, if it was still
	// running when this one was created.
	prev *session

	mu      sync.Mutex
	subs    []*Subscription
	last    *job.Snapshot
	known   bool
	backoff int
	fetches int
	phase   Phase
	reason  ext.CloseReason
	closing bool
}

func newSession(parent context.Context, jobID string) *session {
	ctx, cancel := context.WithCancel(parent)
	return &session{
		id:      id.NewSessionID(),
		jobID:   jobID,
		ctx:     ctx,
		cancel:  cancel,
		started: time.Now(),
		done:    make(chan struct{}),
		phase:   PhasePolling,
	}
}

func (s *session) info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		ID:          s.id,
		JobID:       s.jobID,
		Phase:       s.phase,
		Backoff:     s.backoff,
		Fetches:     s.fetches,
		Last:        s.last,
		Subscribers: len(s.subs),
		Started:     s.started,
	}
}

// subscribers returns a copy of the subscriber list for a delivery pass.
func (s *session) subscribers() []*Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Subscription(nil), s.subs...)
}

// remove drops sub and reports whether the list became empty.
func (s *session) remove(sub *Subscription) bool {
	for i, x := range s.subs {
		if x == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			break
		}
	}
	return len(s.subs) == 0
}

// stop cancels the session for reason unless it is already ending.
// Caller holds s.mu.
func (s *session) stop(reason ext.CloseReason) {
	if s.closing {
		return
	}
	if s.reason == "" {
		s.reason = reason
	}
	s.cancel()
}

func (s *session) closeReason() ext.CloseReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason == "" {
		return ext.CloseCancelled
	}
	return s.reason
}
