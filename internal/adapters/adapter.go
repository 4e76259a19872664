// Package adapters wraps the per-platform publish/delete/stats APIs behind
// one contract so the workflow core never touches platform SDKs directly.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crosspost-backend/internal/models"
)

// Machine-readable failure reasons. The workflow only cares about three
// classes: expired credentials (retryable with a fallback), missing remote
// objects (success for deletes) and everything else.
const (
	ReasonAuthExpired = "auth_expired"
	ReasonNotFound    = "not_found"
	ReasonOther       = "other"
)

type Error struct {
	Platform string
	Reason   string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s adapter: %s: %v", e.Platform, e.Message, e.Err)
	}
	return fmt.Sprintf("%s adapter: %s", e.Platform, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func IsAuthExpired(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Reason == ReasonAuthExpired
}

func IsNotFound(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Reason == ReasonNotFound
}

// Adapter is the uniform capability each platform exposes.
type Adapter interface {
	// Publish pushes the media live, or schedules it when scheduleAt is
	// non-nil, and returns the remote post identifier.
	Publish(ctx context.Context, creds models.Credentials, mediaURL string, meta models.PlatformContent, subType string, scheduleAt *time.Time) (string, error)

	// DeleteRemote removes a published post. An already-gone post is
	// treated as success, not an error.
	DeleteRemote(ctx context.Context, creds models.Credentials, remoteID string) error

	// FetchStats returns the account's current profile counters.
	FetchStats(ctx context.Context, creds models.Credentials) (*models.AccountStats, error)
}

// Registry maps platform ids to their adapters. A platform without an
// adapter simply gets no remote call during distribution.
type Registry map[string]Adapter

func (r Registry) For(platform string) (Adapter, bool) {
	a, ok := r[platform]
	return a, ok
}

// NewRegistry wires the production adapters.
func NewRegistry(igBaseURL, ttBaseURL string) Registry {
	return Registry{
		"youtube":   NewYouTubeAdapter(),
		"instagram": NewInstagramAdapter(igBaseURL),
		"tiktok":    NewTikTokAdapter(ttBaseURL),
	}
}
