package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/backoff"
	"github.com/xraph/jobwatch/ext"
	"github.com/xraph/jobwatch/id"
	"github.com/xraph/jobwatch/job"
)

// Tracker turns a Source into per-job state change notifications. Each
// tracked job has one session with one goroutine, shared by all of the
// job's subscriptions.
type Tracker struct {
	source   Source
	paced    bool
	interval time.Duration
	strategy backoff.Strategy
	logger   *slog.Logger
	exts     *ext.Registry
	store    job.Store
	first    FirstObservation
	terminal map[job.State]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*session
	// retiring holds stopped sessions whose goroutine may still be inside
	// Next. A new session for the same job waits for it.
	retiring map[string]*session
	closed   bool
}

// New creates a Tracker observing jobs through src.
func New(src Source, opts ...Option) *Tracker {
	t := &Tracker{
		source:   src,
		paced:    isPaced(src),
		interval: DefaultInterval,
		logger:   slog.Default(),
		first:    FirstObservationBaseline,
		sessions: make(map[string]*session),
		retiring: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.interval <= 0 {
		t.interval = DefaultInterval
	}
	if t.strategy == nil {
		t.strategy = backoff.DefaultStrategy(t.interval, 0)
	}
	if t.exts == nil {
		t.exts = ext.NewRegistry(t.logger)
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())
	return t
}

// Interval returns the base delay between observations.
func (t *Tracker) Interval() time.Duration { return t.interval }

// Subscribe registers h for state changes of jobID, starting a session if
// none is active. Callbacks may call Subscribe, Unsubscribe and Session.
func (t *Tracker) Subscribe(jobID string, h Handlers) (*Subscription, error) {
	if jobID == "" {
		return nil, jobwatch.ErrNoJobID
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, jobwatch.ErrTrackerClosed
	}

	sub := &Subscription{
		id:      id.NewSubscriptionID(),
		jobID:   jobID,
		h:       h,
		tracker: t,
	}
	sub.active.Store(true)

	s, ok := t.sessions[jobID]
	if !ok {
		s = newSession(t.ctx, jobID)
		s.prev = t.retiring[jobID]
		delete(t.retiring, jobID)
		t.sessions[jobID] = s
	}
	sub.session = s

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	if !ok {
		t.wg.Add(1)
		go t.run(s)
	}
	return sub, nil
}

// Unsubscribe removes sub. Removing the last subscription of a job stops
// its session: an observation in flight is discarded and nothing else is
// fetched. A later Subscribe to the same job starts its first observation
// only once the stopped session's goroutine has returned, so observations
// of one job never overlap even when a Fetcher ignores cancellation.
// Unsubscribing twice is a no-op.
func (t *Tracker) Unsubscribe(sub *Subscription) {
	if sub == nil || !sub.active.Swap(false) {
		return
	}
	s := sub.session

	t.mu.Lock()
	defer t.mu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.remove(sub) && !s.closing {
		s.stop(ext.CloseCancelled)
		if t.sessions[s.jobID] == s {
			delete(t.sessions, s.jobID)
			t.retiring[s.jobID] = s
		}
	}
}

// Session returns a view of the active session of jobID.
func (t *Tracker) Session(jobID string) (SessionInfo, bool) {
	t.mu.Lock()
	s, ok := t.sessions[jobID]
	t.mu.Unlock()
	if !ok {
		return SessionInfo{}, false
	}
	return s.info(), true
}

// ActiveSessions returns the number of jobs being tracked.
func (t *Tracker) ActiveSessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Close stops every session, delivers OnClose to remaining subscribers
// and waits for all session goroutines to exit. It must not be called
// from a subscription callback.
func (t *Tracker) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	for _, s := range t.sessions {
		s.mu.Lock()
		s.stop(ext.CloseShutdown)
		s.mu.Unlock()
	}
	t.mu.Unlock()

	t.cancel()
	t.wg.Wait()
	t.exts.EmitShutdown(context.Background())
	return nil
}

func (t *Tracker) isTerminal(s job.State) bool {
	if t.terminal != nil {
		return t.terminal[s]
	}
	return s.IsTerminal()
}

// ──────────────────────────────────────────────────
// Session loop
// ──────────────────────────────────────────────────

// run observes one job until a terminal state, a fatal error or
// cancellation. Observations are strictly sequential.
func (t *Tracker) run(s *session) {
	defer t.wg.Done()
	defer t.retire(s)
	hookCtx := context.WithoutCancel(s.ctx)

	if prev := s.prev; prev != nil {
		select {
		case <-prev.done:
		case <-s.ctx.Done():
		}
	}

	stream := t.source.Open(s.jobID)
	defer func() {
		if err := stream.Close(); err != nil {
			t.logger.Debug("stream close failed",
				slog.String("job_id", s.jobID),
				slog.String("error", err.Error()),
			)
		}
	}()

	t.logger.Debug("tracking session opened",
		slog.String("job_id", s.jobID),
		slog.String("session_id", s.id.String()),
		slog.String("source", t.source.Name()),
	)
	t.exts.EmitSessionOpened(hookCtx, s.jobID, t.source.Name())
	t.loadPrior(hookCtx, s)

	wait := t.baseWait()
	for {
		if !sleep(s.ctx, wait) {
			t.finish(hookCtx, s, s.closeReason())
			return
		}

		cur, err := stream.Next(s.ctx)
		if s.ctx.Err() != nil {
			// Cancelled while the observation was in flight: discard it.
			t.finish(hookCtx, s, s.closeReason())
			return
		}

		s.mu.Lock()
		s.fetches++
		s.mu.Unlock()

		if err != nil {
			retryIn, fatal := t.fail(hookCtx, s, err)
			if fatal {
				t.finish(hookCtx, s, ext.CloseFatal)
				return
			}
			wait = retryIn
			continue
		}

		wait = t.baseWait()
		if t.observe(hookCtx, s, cur) {
			t.finish(hookCtx, s, ext.CloseTerminal)
			return
		}
	}
}

// retryWait is the wait after the attempt-th consecutive transient
// failure: one base interval plus the strategy's extra delay, whatever
// the source's pacing. It is always longer than the interval; a strategy
// adding nothing falls back to one extra interval.
func (t *Tracker) retryWait(attempt int) time.Duration {
	delay := t.strategy.Delay(attempt)
	if delay <= 0 {
		delay = t.interval
	}
	if delay > math.MaxInt64-t.interval {
		return math.MaxInt64
	}
	return t.interval + delay
}

func (t *Tracker) baseWait() time.Duration {
	if t.paced {
		return t.interval
	}
	return 0
}

// loadPrior seeds the session with the stored snapshot, if any.
func (t *Tracker) loadPrior(ctx context.Context, s *session) {
	if t.store == nil {
		return
	}
	prior, err := t.store.LastSnapshot(ctx, s.jobID)
	if err != nil {
		if !errors.Is(err, job.ErrNotFound) {
			t.logger.Warn("failed to load prior job state",
				slog.String("job_id", s.jobID),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	s.mu.Lock()
	s.last = prior
	s.known = true
	s.mu.Unlock()
}

// observe handles a successful observation and reports whether the job
// reached a terminal state.
func (t *Tracker) observe(ctx context.Context, s *session, cur *job.Snapshot) bool {
	if cur != nil && cur.ID == "" {
		cur = cur.Clone()
		cur.ID = s.jobID
	}

	s.mu.Lock()
	// The backoff counter is reset before any delivery.
	s.backoff = 0
	s.phase = PhasePolling
	if cur == nil {
		s.mu.Unlock()
		return false
	}

	prev, known := s.last, s.known
	terminal := t.isTerminal(cur.State)
	changed := !known || prev == nil || prev.State != cur.State
	notify := changed && (known || t.first == FirstObservationNotify || terminal)

	s.last = cur
	s.known = true
	if terminal {
		s.closing = true
	}
	s.mu.Unlock()

	if terminal {
		t.detach(s)
	}

	if notify {
		if !known {
			prev = nil
		}
		t.deliverChange(s, cur, prev)
		t.exts.EmitStateChanged(ctx, cur, prev)
	}
	if changed {
		t.save(ctx, cur)
	}
	return terminal
}

// fail handles a failed observation. It returns the wait before the next
// attempt, or fatal when the session must close.
func (t *Tracker) fail(ctx context.Context, s *session, err error) (time.Duration, bool) {
	if jobwatch.IsRetryable(err) {
		s.mu.Lock()
		s.backoff++
		attempt := s.backoff
		s.phase = PhaseBackingOff
		s.mu.Unlock()

		retryIn := t.retryWait(attempt)
		t.logger.Warn("error contacting API, retrying",
			slog.String("job_id", s.jobID),
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", retryIn),
			slog.String("error", err.Error()),
		)
		t.deliverError(s, &FetchError{JobID: s.jobID, Attempt: attempt, RetryIn: retryIn, Err: err})
		t.exts.EmitFetchRetrying(ctx, s.jobID, attempt, retryIn, err)
		return retryIn, false
	}

	s.mu.Lock()
	attempt := s.backoff + 1
	s.closing = true
	s.mu.Unlock()
	t.detach(s)

	t.logger.Warn("job tracking failed",
		slog.String("job_id", s.jobID),
		slog.String("error", err.Error()),
	)
	t.deliverError(s, &FetchError{JobID: s.jobID, Attempt: attempt, Fatal: true, Err: err})
	t.exts.EmitFetchFailed(ctx, s.jobID, err)
	return 0, true
}

// detach removes s from the session map so a new Subscribe starts a fresh
// session.
func (t *Tracker) detach(s *session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessions[s.jobID] == s {
		delete(t.sessions, s.jobID)
	}
}

// retire marks the goroutine of s as gone.
func (t *Tracker) retire(s *session) {
	t.mu.Lock()
	if t.retiring[s.jobID] == s {
		delete(t.retiring, s.jobID)
	}
	t.mu.Unlock()
	close(s.done)
}

// finish delivers OnClose to the remaining subscribers and discards s.
func (t *Tracker) finish(ctx context.Context, s *session, reason ext.CloseReason) {
	t.detach(s)

	s.mu.Lock()
	s.closing = true
	s.phase = PhaseClosed
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	s.cancel()

	for _, sub := range subs {
		if sub.active.Swap(false) && sub.h.OnClose != nil {
			t.call(s, "OnClose", func() { sub.h.OnClose() })
		}
	}

	elapsed := time.Since(s.started)
	t.logger.Debug("tracking session closed",
		slog.String("job_id", s.jobID),
		slog.String("session_id", s.id.String()),
		slog.String("reason", string(reason)),
		slog.Duration("elapsed", elapsed),
	)
	t.exts.EmitSessionClosed(ctx, s.jobID, reason, elapsed)
}

func (t *Tracker) deliverChange(s *session, cur, prev *job.Snapshot) {
	for _, sub := range s.subscribers() {
		if sub.active.Load() && sub.h.OnChange != nil {
			t.call(s, "OnChange", func() { sub.h.OnChange(cur, prev) })
		}
	}
}

func (t *Tracker) deliverError(s *session, fe *FetchError) {
	for _, sub := range s.subscribers() {
		if sub.active.Load() && sub.h.OnError != nil {
			t.call(s, "OnError", func() { sub.h.OnError(fe) })
		}
	}
}

// call runs a subscriber callback, recovering a panic so one faulty
// subscriber cannot stop the session.
func (t *Tracker) call(s *session, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("subscriber callback panicked",
				slog.String("job_id", s.jobID),
				slog.String("callback", name),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	fn()
}

func (t *Tracker) save(ctx context.Context, snap *job.Snapshot) {
	if t.store == nil {
		return
	}
	if err := t.store.SaveSnapshot(ctx, snap); err != nil {
		t.logger.Warn("failed to save job state",
			slog.String("job_id", snap.ID),
			slog.String("error", err.Error()),
		)
	}
}

// sleep waits d or until ctx is done, reporting false in the latter case.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
