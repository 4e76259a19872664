// Package projects folds a project's videos into the cached status
// partition stored on the project record.
package projects

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"crosspost-backend/internal/models"
)

type VideoLister interface {
	ListStatusesByProject(ctx context.Context, projectID uuid.UUID) ([]string, error)
}

type StatsWriter interface {
	UpdateStats(ctx context.Context, projectID uuid.UUID, stats models.ProjectStats) error
}

type Recomputer struct {
	videos   VideoLister
	projects StatsWriter
}

func NewRecomputer(videos VideoLister, projects StatsWriter) *Recomputer {
	return &Recomputer{videos: videos, projects: projects}
}

// Partition buckets video statuses for the project summary. Anything that
// is not approved, scheduled/published or dismissed counts as pending
// review, including error states.
func Partition(statuses []string) models.ProjectStats {
	stats := models.ProjectStats{Total: len(statuses)}
	for _, s := range statuses {
		switch s {
		case models.StatusDismissed:
			stats.Discarded++
		case models.StatusScheduled, models.StatusPublished:
			stats.ScheduledOrPublished++
		case models.StatusApproved:
			stats.Approved++
		default:
			stats.PendingReview++
		}
	}
	stats.VideoCount = stats.Total
	return stats
}

// Recompute rescans every video referencing the project and rewrites the
// whole stats snapshot. There is no incremental mode; the full rescan is
// what keeps the cache from drifting.
func (r *Recomputer) Recompute(ctx context.Context, projectID uuid.UUID) error {
	statuses, err := r.videos.ListStatusesByProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to list project videos: %w", err)
	}

	if err := r.projects.UpdateStats(ctx, projectID, Partition(statuses)); err != nil {
		return fmt.Errorf("failed to write project stats: %w", err)
	}
	return nil
}
