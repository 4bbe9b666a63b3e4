package tracker

import (
	"context"

	"github.com/xraph/jobwatch/job"
)

// Fetcher performs one round-trip for the current representation of a
// job. Failures must be classified as *jobwatch.ClientError,
// *jobwatch.ServerError or *jobwatch.ParseError; anything else is
// treated as non-retryable.
type Fetcher interface {
	Fetch(ctx context.Context, jobID string) (*job.Snapshot, error)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context, jobID string) (*job.Snapshot, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, jobID string) (*job.Snapshot, error) {
	return f(ctx, jobID)
}

// Source produces observations of jobs. A tracker opens one Stream per
// session and reads it sequentially from the session goroutine.
type Source interface {
	// Name identifies the transport in logs and hooks.
	Name() string
	// Open starts observing jobID. Connection work happens lazily in
	// Stream.Next so failures go through the tracker's retry policy.
	Open(jobID string) Stream
}

// Stream yields successive observations of one job.
type Stream interface {
	// Next blocks until the next observation. (nil, nil) means "nothing
	// new this round" and counts as a successful round-trip.
	Next(ctx context.Context) (*job.Snapshot, error)
	// Close releases the stream's resources.
	Close() error
}

// Pacer is implemented by sources whose streams return immediately, so
// the tracker waits its base interval before every Next. Sources that
// block until the remote side pushes (or that pace themselves) leave it
// unimplemented or return false.
type Pacer interface {
	Paced() bool
}

func isPaced(src Source) bool {
	p, ok := src.(Pacer)
	return ok && p.Paced()
}

// PollSource observes a job by fetching it once per round.
type PollSource struct {
	fetcher Fetcher
}

// NewPollSource returns a paced Source backed by f.
func NewPollSource(f Fetcher) *PollSource {
	return &PollSource{fetcher: f}
}

// Name returns "poll".
func (p *PollSource) Name() string { return "poll" }

// Paced returns true: the tracker waits its interval before each fetch.
func (p *PollSource) Paced() bool { return true }

// Open returns a stream that fetches jobID on every Next.
func (p *PollSource) Open(jobID string) Stream {
	return &pollStream{fetcher: p.fetcher, jobID: jobID}
}

type pollStream struct {
	fetcher Fetcher
	jobID   string
}

func (s *pollStream) Next(ctx context.Context) (*job.Snapshot, error) {
	return s.fetcher.Fetch(ctx, s.jobID)
}

func (s *pollStream) Close() error { return nil }
