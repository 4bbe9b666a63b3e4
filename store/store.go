package store

import (
	"context"

	"github.com/xraph/jobwatch/job"
)

// Store is a job.Store backend with a connection lifecycle.
type Store interface {
	job.Store

	// ListSnapshots returns every recorded snapshot, ordered by job id.
	ListSnapshots(ctx context.Context) ([]*job.Snapshot, error)

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases resources owned by the store.
	Close() error
}
