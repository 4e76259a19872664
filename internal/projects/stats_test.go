package projects

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"crosspost-backend/internal/models"
)

func TestPartition(t *testing.T) {
	statuses := []string{
		models.StatusDismissed,
		models.StatusApproved,
		models.StatusScheduled,
		models.StatusPending,
		models.StatusPublished,
	}

	got := Partition(statuses)

	if got.Total != 5 {
		t.Errorf("Total = %d, want 5", got.Total)
	}
	if got.PendingReview != 1 {
		t.Errorf("PendingReview = %d, want 1", got.PendingReview)
	}
	if got.Approved != 1 {
		t.Errorf("Approved = %d, want 1", got.Approved)
	}
	if got.ScheduledOrPublished != 2 {
		t.Errorf("ScheduledOrPublished = %d, want 2", got.ScheduledOrPublished)
	}
	if got.Discarded != 1 {
		t.Errorf("Discarded = %d, want 1", got.Discarded)
	}
	if got.VideoCount != got.Total {
		t.Errorf("legacy VideoCount = %d, want %d", got.VideoCount, got.Total)
	}
}

func TestPartitionErrorStatesCountAsPending(t *testing.T) {
	statuses := []string{
		models.StatusUploading,
		models.StatusProcessing,
		models.StatusReady,
		models.StatusTranscribing,
		models.StatusError,
	}

	got := Partition(statuses)
	if got.PendingReview != 5 {
		t.Errorf("PendingReview = %d, want 5", got.PendingReview)
	}
	if got.Resolved() {
		t.Error("project with pending videos must not be resolved")
	}
}

func TestPartitionEmpty(t *testing.T) {
	got := Partition(nil)
	if got.Total != 0 {
		t.Errorf("Total = %d, want 0", got.Total)
	}
	if got.Resolved() {
		t.Error("empty project must not be resolved")
	}
}

func TestResolved(t *testing.T) {
	stats := Partition([]string{models.StatusPublished, models.StatusDismissed})
	if !stats.Resolved() {
		t.Errorf("all-terminal project should be resolved, got %+v", stats)
	}
}

type fakeLister struct {
	statuses []string
	err      error
}

func (f *fakeLister) ListStatusesByProject(ctx context.Context, projectID uuid.UUID) ([]string, error) {
	return f.statuses, f.err
}

type fakeWriter struct {
	written *models.ProjectStats
}

func (f *fakeWriter) UpdateStats(ctx context.Context, projectID uuid.UUID, stats models.ProjectStats) error {
	f.written = &stats
	return nil
}

func TestRecomputeWritesFullSnapshot(t *testing.T) {
	lister := &fakeLister{statuses: []string{models.StatusApproved, models.StatusPending}}
	writer := &fakeWriter{}
	r := NewRecomputer(lister, writer)

	if err := r.Recompute(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if writer.written == nil {
		t.Fatal("stats were not written")
	}
	if writer.written.Total != 2 || writer.written.Approved != 1 || writer.written.PendingReview != 1 {
		t.Errorf("unexpected snapshot %+v", *writer.written)
	}
}

func TestRecomputeListFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection reset")}
	writer := &fakeWriter{}
	r := NewRecomputer(lister, writer)

	if err := r.Recompute(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error")
	}
	if writer.written != nil {
		t.Error("stats must not be written when the rescan fails")
	}
}
