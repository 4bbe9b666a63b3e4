package tracker

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/jobwatch"
	"github.com/xraph/jobwatch/job"
)

// Wait blocks until jobID reaches a terminal state and returns that
// snapshot. It fails with the fatal *FetchError that closed the session,
// with jobwatch.ErrSessionClosed when the tracker shut down first, or
// with ctx's error. Wait must not be called from a callback of the same
// job.
func (t *Tracker) Wait(ctx context.Context, jobID string) (*job.Snapshot, error) {
	var (
		final *job.Snapshot
		fatal error
	)
	done := make(chan struct{})

	sub, err := t.Subscribe(jobID, Handlers{
		OnChange: func(cur, _ *job.Snapshot) {
			if t.isTerminal(cur.State) {
				final = cur
			}
		},
		OnError: func(err error) {
			var fe *FetchError
			if errors.As(err, &fe) && fe.Fatal {
				fatal = err
			}
		},
		OnClose: func() { close(done) },
	})
	if err != nil {
		return nil, err
	}

	select {
	case <-done:
	case <-ctx.Done():
		sub.Unsubscribe()
		return nil, ctx.Err()
	}

	switch {
	case final != nil:
		return final, nil
	case fatal != nil:
		return nil, fatal
	}
	// A stored terminal state closes the session without a change.
	if t.store != nil {
		if prior, err := t.store.LastSnapshot(ctx, jobID); err == nil && t.isTerminal(prior.State) {
			return prior, nil
		}
	}
	return nil, jobwatch.ErrSessionClosed
}

// WaitAll waits for every job in jobIDs concurrently. It returns the
// terminal snapshots by job id, or the first error; on error the
// remaining waits are cancelled.
func (t *Tracker) WaitAll(ctx context.Context, jobIDs ...string) (map[string]*job.Snapshot, error) {
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	out := make(map[string]*job.Snapshot, len(jobIDs))
	for _, jobID := range jobIDs {
		g.Go(func() error {
			snap, err := t.Wait(gctx, jobID)
			if err != nil {
				return err
			}
			mu.Lock()
			out[jobID] = snap
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
