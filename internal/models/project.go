package models

import (
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID         uuid.UUID    `json:"id"`
	UserID     uuid.UUID    `json:"user_id"`
	Name       string       `json:"name"`
	ClientName *string      `json:"client_name"`
	AgencyName *string      `json:"agency_name"`
	BriefText  *string      `json:"brief_text"`
	Stats      ProjectStats `json:"stats"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ProjectStats is a cached partition of the project's videos by status
// bucket. It is always recomputed from a full rescan, never patched.
type ProjectStats struct {
	Total                int `json:"total"`
	PendingReview        int `json:"pending_review"`
	Approved             int `json:"approved"`
	ScheduledOrPublished int `json:"scheduled_or_published"`
	Discarded            int `json:"discarded"`
	// VideoCount duplicates Total for older clients still reading it.
	VideoCount int `json:"video_count"`
}

// Resolved reports whether every video in the project has moved past
// review (the dashboard badge condition).
func (s ProjectStats) Resolved() bool {
	return s.PendingReview == 0 && s.Approved == 0 && s.Total > 0
}

type CreateProjectRequest struct {
	Name       string  `json:"name"`
	ClientName *string `json:"client_name"`
	AgencyName *string `json:"agency_name"`
}
