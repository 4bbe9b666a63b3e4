package job

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store implementations when no snapshot has
// been recorded for a job.
var ErrNotFound = errors.New("job: snapshot not found")

// Store persists the last snapshot delivered to subscribers of a job, so
// a later tracking session can compare its first observation against an
// externally-known prior state.
type Store interface {
	// LastSnapshot returns the most recently saved snapshot of jobID, or
	// ErrNotFound.
	LastSnapshot(ctx context.Context, jobID string) (*Snapshot, error)

	// SaveSnapshot records s as the latest delivered snapshot of s.ID.
	SaveSnapshot(ctx context.Context, s *Snapshot) error

	// DeleteSnapshot forgets jobID. Deleting an unknown job is not an error.
	DeleteSnapshot(ctx context.Context, jobID string) error
}
