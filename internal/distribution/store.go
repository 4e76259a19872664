// Package distribution owns the per-video distribution configuration and
// the workflow state machine that moves an asset from review to publish.
package distribution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"crosspost-backend/internal/adapters"
	"crosspost-backend/internal/models"
	"crosspost-backend/internal/platform"
)

// AssetStore is the slice of the video repository the core writes through.
// SaveDistribution always rewrites the whole config array plus the shared
// content and platform set; there is no element-wise patching.
type AssetStore interface {
	SaveDistribution(ctx context.Context, v *models.VideoAsset) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	SetSchedule(ctx context.Context, id uuid.UUID, scheduledDate *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// StatsRecomputer re-derives a project's cached status partition.
type StatsRecomputer interface {
	Recompute(ctx context.Context, projectID uuid.UUID) error
}

// AccountDirectory resolves a config entry's target account to its
// connected integration (credentials included).
type AccountDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Integration, error)
}

// AdapterRegistry yields the remote adapter for a platform, if one exists.
// Platforms without an adapter get no remote call during distribution.
type AdapterRegistry interface {
	For(platform string) (adapters.Adapter, bool)
}

// MediaRemover deletes the backing media file. A missing file is not an
// error.
type MediaRemover interface {
	Remove(ctx context.Context, storagePath string) error
}

// TransitionError is returned when an operation is invoked from a status
// it is not legal in.
type TransitionError struct {
	Op     string
	Status string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a video in status %q", e.Op, e.Status)
}

// IneligibleError blocks toggling a platform on for a video that fails
// its geometry or duration gate.
type IneligibleError struct {
	Platform    string
	Eligibility platform.Eligibility
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("video is not eligible for %s (ratio ok: %v, duration ok: %v)",
		e.Platform, e.Eligibility.RatioOK, e.Eligibility.DurationOK)
}

// NotReadyError blocks approval and carries the per-platform report so the
// caller can surface exactly which platform failed which rule.
type NotReadyError struct {
	Report ReadinessReport
}

func (e *NotReadyError) Error() string { return "video is not ready for approval" }
