package memory_test

import (
	"context"
	"testing"

	"github.com/xraph/jobwatch/job"
	"github.com/xraph/jobwatch/store/memory"
	"github.com/xraph/jobwatch/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, memory.New())
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	orig := &job.Snapshot{ID: "J1", State: job.StatePending}
	if err := s.SaveSnapshot(ctx, orig); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	orig.State = job.StateFail

	got, err := s.LastSnapshot(ctx, "J1")
	if err != nil {
		t.Fatalf("LastSnapshot: %v", err)
	}
	got.State = job.StateSuccess

	again, _ := s.LastSnapshot(ctx, "J1")
	if again.State != job.StatePending {
		t.Errorf("stored state = %s, want pending", again.State)
	}
}
