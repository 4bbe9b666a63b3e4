package tracker

import (
	"log/slog"
	"time"

	"github.com/xraph/jobwatch/backoff"
	"github.com/xraph/jobwatch/ext"
	"github.com/xraph/jobwatch/job"
)

// FirstObservation decides what happens with the first state a session
// observes when no prior state is known.
type FirstObservation string

const (
	// FirstObservationBaseline records the first state silently. A
	// terminal first state is still delivered (with a nil previous) before
	// the session closes.
	FirstObservationBaseline FirstObservation = "baseline"
	// FirstObservationNotify delivers the first state with a nil previous.
	FirstObservationNotify FirstObservation = "notify"
)

// DefaultInterval is the base delay between two observations.
const DefaultInterval = time.Second

// Option configures a Tracker.
type Option func(*Tracker)

// WithInterval sets the base delay between observations.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) { t.interval = d }
}

// WithBackoff sets the strategy for the extra delay after transient
// failures. Defaults to backoff.DefaultStrategy(interval, 0).
func WithBackoff(s backoff.Strategy) Option {
	return func(t *Tracker) { t.strategy = s }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// WithExtensions sets the extension registry notified of session
// lifecycle events.
func WithExtensions(r *ext.Registry) Option {
	return func(t *Tracker) { t.exts = r }
}

// WithFirstObservation sets the first observation policy.
func WithFirstObservation(p FirstObservation) Option {
	return func(t *Tracker) { t.first = p }
}

// WithStore makes s the source of externally-known prior state. A new
// session compares its first observation with the stored snapshot, and
// every delivered snapshot is saved back.
func WithStore(s job.Store) Option {
	return func(t *Tracker) { t.store = s }
}

// WithTerminalStates replaces the terminal state set (success, fail).
func WithTerminalStates(states ...job.State) Option {
	return func(t *Tracker) {
		t.terminal = make(map[job.State]bool, len(states))
		for _, s := range states {
			t.terminal[s] = true
		}
	}
}
