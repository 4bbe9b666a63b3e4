package tracker

import (
	"fmt"
	"time"
)

// FetchError is what subscribers receive through Handlers.OnError. It
// wraps the classified error of one failed observation.
type FetchError struct {
	JobID string
	// Attempt is the number of consecutive failures, this one included.
	Attempt int
	// RetryIn is the wait before the next observation. Zero when Fatal.
	RetryIn time.Duration
	// Fatal is set when the session closes because of this error.
	Fatal bool
	Err   error
}

func (e *FetchError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("jobwatch/tracker: job %s: %v", e.JobID, e.Err)
	}
	return fmt.Sprintf("jobwatch/tracker: job %s: attempt %d failed, retrying in %s: %v",
		e.JobID, e.Attempt, e.RetryIn, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
