// Package storetest holds behaviour tests shared by every store.Store
// backend.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/store"
)

// Run exercises s. It expects s to start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := s.Ping(ctx); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})

	t.Run("MissingIsNotFound", func(t *testing.T) {
		if _, err := s.LastSnapshot(ctx, "missing"); !errors.Is(err, job.ErrNotFound) {
			t.Fatalf("LastSnapshot(missing) = %v, want ErrNotFound", err)
		}
	})

	t.Run("SaveReplacesAndKeepsMetadata", func(t *testing.T) {
		updated := time.UnixMilli(1700000000000).UTC()
		first := &job.Snapshot{ID: "J1", State: job.StatePending}
		second := &job.Snapshot{
			ID:        "J1",
			State:     job.StateProcessing,
			UpdatedAt: updated,
			Metadata:  map[string]json.RawMessage{"serviceId": json.RawMessage(`"S1"`)},
		}
		if err := s.SaveSnapshot(ctx, first); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
		if err := s.SaveSnapshot(ctx, second); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}

		got, err := s.LastSnapshot(ctx, "J1")
		if err != nil {
			t.Fatalf("LastSnapshot: %v", err)
		}
		if got.State != job.StateProcessing || !got.UpdatedAt.Equal(updated) {
			t.Errorf("got %+v", got)
		}
		var svc string
		if ok, err := got.Field("serviceId", &svc); !ok || err != nil || svc != "S1" {
			t.Errorf("serviceId = %q (%v, %v)", svc, ok, err)
		}
	})

	t.Run("RejectsIncomplete", func(t *testing.T) {
		if err := s.SaveSnapshot(ctx, &job.Snapshot{ID: "J2"}); !errors.Is(err, job.ErrIncomplete) {
			t.Errorf("SaveSnapshot(no state) = %v, want ErrIncomplete", err)
		}
	})

	t.Run("ListOrderedByID", func(t *testing.T) {
		if err := s.SaveSnapshot(ctx, &job.Snapshot{ID: "J0", State: job.StateSuccess}); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
		list, err := s.ListSnapshots(ctx)
		if err != nil {
			t.Fatalf("ListSnapshots: %v", err)
		}
		if len(list) != 2 || list[0].ID != "J0" || list[1].ID != "J1" {
			t.Errorf("ListSnapshots = %v", list)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.DeleteSnapshot(ctx, "J1"); err != nil {
			t.Fatalf("DeleteSnapshot: %v", err)
		}
		if err := s.DeleteSnapshot(ctx, "J1"); err != nil {
			t.Fatalf("second DeleteSnapshot: %v", err)
		}
		if _, err := s.LastSnapshot(ctx, "J1"); !errors.Is(err, job.ErrNotFound) {
			t.Errorf("after delete = %v, want ErrNotFound", err)
		}
		list, err := s.ListSnapshots(ctx)
		if err != nil {
			t.Fatalf("ListSnapshots: %v", err)
		}
		if len(list) != 1 || list[0].ID != "J0" {
			t.Errorf("ListSnapshots after delete = %v", list)
		}
	})
}
