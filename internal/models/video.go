package models

import (
	"time"

	"github.com/google/uuid"
)

// Video lifecycle statuses. Everything before "approved" counts as pending
// review for project aggregation purposes.
const (
	StatusUploading    = "uploading"
	StatusProcessing   = "processing"
	StatusPending      = "pending"
	StatusReady        = "ready"
	StatusTranscribing = "transcribing"
	StatusError        = "error"
	StatusApproved     = "approved"
	StatusScheduled    = "scheduled"
	StatusPublished    = "published"
	StatusDismissed    = "dismissed"
)

// Aspect-ratio classes detected at upload time.
const (
	AspectVertical   = "vertical"
	AspectHorizontal = "horizontal"
	AspectSquare     = "square"
)

// ClassifyAspect buckets a width/height ratio into an aspect class.
// Unknown geometry yields "".
func ClassifyAspect(ratio float64) string {
	switch {
	case ratio <= 0:
		return ""
	case ratio < 0.9:
		return AspectVertical
	case ratio <= 1.1:
		return AspectSquare
	default:
		return AspectHorizontal
	}
}

type VideoAsset struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	ProjectID *uuid.UUID `json:"project_id"`

	StoragePath string  `json:"storage_path"`
	PublicURL   string  `json:"public_url"`
	FileSize    int64   `json:"file_size"`
	AspectClass string  `json:"aspect_class"` // "vertical" | "horizontal" | "square"
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Duration    float64 `json:"duration_seconds"`

	Status        string     `json:"status"`
	Transcription string     `json:"transcription"`
	Platforms     []string   `json:"platforms"`
	ScheduledDate *time.Time `json:"scheduled_date"`

	// Content is the per-platform shared metadata, the single source of
	// truth that DistributionConfig entries are materialized from.
	Content map[string]PlatformContent `json:"content"`

	// PostTypes holds each platform's shared post sub-type. Entries of the
	// same platform always carry the same sub-type; this survives even
	// when the platform has no config entries yet.
	PostTypes map[string]string `json:"post_types"`

	DistributionConfig []DistributionConfig `json:"distribution_config"`

	CreatedAt time.Time `json:"created_at"`
}

// Ratio returns width/height, or 0 when dimensions are not yet known.
func (v *VideoAsset) Ratio() float64 {
	if v.Width <= 0 || v.Height <= 0 {
		return 0
	}
	return float64(v.Width) / float64(v.Height)
}

// HasPlatform reports whether the platform is currently toggled on.
func (v *VideoAsset) HasPlatform(platform string) bool {
	for _, p := range v.Platforms {
		if p == platform {
			return true
		}
	}
	return false
}

// ConfigsFor returns the indices of config entries for one platform.
func (v *VideoAsset) ConfigsFor(platform string) []int {
	var idx []int
	for i, c := range v.DistributionConfig {
		if c.Platform == platform {
			idx = append(idx, i)
		}
	}
	return idx
}

// PlatformContent holds the shared, editable metadata for one platform.
// Optional ids are pointers without omitempty so unset values persist as
// explicit nulls rather than disappearing from partial updates.
type PlatformContent struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Caption     string   `json:"caption"`
	Tags        []string `json:"tags"`
	PlaylistID  *string  `json:"playlist_id"`
	CategoryID  *string  `json:"category_id"`
}

// ContentPatch is a partial edit of PlatformContent; nil fields are
// left untouched.
type ContentPatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Caption     *string   `json:"caption"`
	Tags        *[]string `json:"tags"`
	PlaylistID  *string   `json:"playlist_id"`
	CategoryID  *string   `json:"category_id"`
}

// DistributionConfig is one (platform, account) publishing intent.
// Metadata is a materialized copy of the platform's shared content,
// written at save time so the stored shape stays flat.
type DistributionConfig struct {
	Platform   string          `json:"platform"`
	AccountID  uuid.UUID       `json:"account_id"`
	PostType   string          `json:"post_type"`
	ExternalID string          `json:"external_id"`
	Metadata   PlatformContent `json:"metadata"`
}

type UploadRequest struct {
	ProjectID *uuid.UUID `json:"project_id"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Duration  float64    `json:"duration_seconds"`
}

type ImportYouTubeRequest struct {
	URL       string     `json:"url"`
	ProjectID *uuid.UUID `json:"project_id"`
}
