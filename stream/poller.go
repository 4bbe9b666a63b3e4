package stream

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/tracker"
)

var _ tracker.Source = (*EventPoller)(nil)

// EventLister pages through a job's event log. *client.Client implements it.
type EventLister interface {
	JobEvents(ctx context.Context, jobID string, offset int) (*job.List[job.Event], error)
}

// EventPoller observes jobs by paging their event log. Unlike polling the
// job itself, it sees every state the job passed through, including ones
// shorter than the poll interval.
//
// The poller paces itself: it waits one interval before each page request
// and hands out buffered states without waiting.
type EventPoller struct {
	lister   EventLister
	interval time.Duration
	logger   *slog.Logger
}

// PollerOption configures an EventPoller.
type PollerOption func(*EventPoller)

// WithPollInterval sets the delay between two page requests.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *EventPoller) { p.interval = d }
}

// WithPollerLogger sets the logger of an EventPoller.
func WithPollerLogger(l *slog.Logger) PollerOption {
	return func(p *EventPoller) { p.logger = l }
}

// NewEventPoller creates an event-log source reading through l.
func NewEventPoller(l EventLister, opts ...PollerOption) *EventPoller {
	p := &EventPoller{
		lister:   l,
		interval: tracker.DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements tracker.Source.
func (p *EventPoller) Name() string { return "events" }

// Open implements tracker.Source.
func (p *EventPoller) Open(jobID string) tracker.Stream {
	return &eventStream{poller: p, jobID: jobID}
}

type eventStream struct {
	poller  *EventPoller
	jobID   string
	offset  int
	pending []*job.Snapshot
}

// Next pops a buffered state or fetches the next page of events. A page
// without state events yields (nil, nil).
func (s *eventStream) Next(ctx context.Context) (*job.Snapshot, error) {
	if len(s.pending) == 0 {
		if err := s.fill(ctx); err != nil {
			return nil, err
		}
	}
	if len(s.pending) == 0 {
		return nil, nil
	}
	next := s.pending[0]
	s.pending = s.pending[1:]
	return next, nil
}

func (s *eventStream) fill(ctx context.Context) error {
	timer := time.NewTimer(s.poller.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	page, err := s.poller.lister.JobEvents(ctx, s.jobID, s.offset)
	if err != nil {
		return err
	}
	events := page.Data
	s.offset += len(events)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt.Time)
	})
	for _, e := range events {
		if snap, ok := job.SnapshotFromEvent(s.jobID, e); ok {
			s.pending = append(s.pending, snap)
		}
	}

	if len(events) > 0 {
		s.poller.logger.Debug("job events fetched",
			slog.String("job_id", s.jobID),
			slog.Int("count", len(events)),
			slog.Int("offset", s.offset),
		)
	}
	return nil
}

func (s *eventStream) Close() error {
	s.pending = nil
	return nil
}
