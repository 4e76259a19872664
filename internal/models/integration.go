package models

import (
	"time"

	"github.com/google/uuid"
)

// Integration is a connected platform account usable as a publish target.
type Integration struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Platform    string    `json:"platform"`
	DisplayName string    `json:"display_name"`

	Credentials         Credentials  `json:"-"`
	FallbackCredentials *Credentials `json:"-"`

	Stats       *AccountStats `json:"stats"`
	StatsSynced *time.Time    `json:"stats_synced_at"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Credentials is the opaque bag a platform adapter needs to act on an
// account. Which fields are set depends on the platform.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccountRef   string `json:"account_ref"` // channel id / ig user id / open id
	APIKey       string `json:"api_key"`
}

// AccountStats is the cached profile snapshot fetched from the platform.
type AccountStats struct {
	Followers      int64  `json:"followers"`
	Posts          int64  `json:"posts"`
	AggregateViews *int64 `json:"aggregate_views"`
}

type ConnectIntegrationRequest struct {
	Platform            string       `json:"platform"`
	DisplayName         string       `json:"display_name"`
	Credentials         Credentials  `json:"credentials"`
	FallbackCredentials *Credentials `json:"fallback_credentials"`
}
