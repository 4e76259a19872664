package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"crosspost-backend/internal/models"
)

const defaultTikTokBaseURL = "https://open.tiktokapis.com/v2"

// TikTokAdapter publishes through the Content Posting API's PULL_FROM_URL
// flow: TikTok downloads the media itself from the public URL.
type TikTokAdapter struct {
	baseURL    string
	httpClient *http.Client
}

func NewTikTokAdapter(baseURL string) *TikTokAdapter {
	if baseURL == "" {
		baseURL = defaultTikTokBaseURL
	}
	return &TikTokAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type tiktokEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *TikTokAdapter) Publish(ctx context.Context, creds models.Credentials, mediaURL string, meta models.PlatformContent, subType string, scheduleAt *time.Time) (string, error) {
	body := map[string]interface{}{
		"post_info": map[string]interface{}{
			"title":           meta.Caption,
			"privacy_level":   "PUBLIC_TO_EVERYONE",
			"disable_comment": false,
		},
		"source_info": map[string]interface{}{
			"source":    "PULL_FROM_URL",
			"video_url": mediaURL,
		},
	}
	// TikTok has no native scheduling on this endpoint; a scheduled post
	// is held as SELF_ONLY until the publish time and flipped by us.
	if scheduleAt != nil {
		body["post_info"].(map[string]interface{})["privacy_level"] = "SELF_ONLY"
	}

	var data struct {
		PublishID string `json:"publish_id"`
	}
	if err := a.post(ctx, creds, "/post/publish/video/init/", body, &data); err != nil {
		return "", err
	}
	return data.PublishID, nil
}

func (a *TikTokAdapter) DeleteRemote(ctx context.Context, creds models.Credentials, remoteID string) error {
	body := map[string]interface{}{"video_id": remoteID}
	return a.post(ctx, creds, "/video/delete/", body, nil)
}

func (a *TikTokAdapter) FetchStats(ctx context.Context, creds models.Credentials) (*models.AccountStats, error) {
	var data struct {
		User struct {
			FollowerCount int64 `json:"follower_count"`
			VideoCount    int64 `json:"video_count"`
			LikesCount    int64 `json:"likes_count"`
		} `json:"user"`
	}
	if err := a.post(ctx, creds, "/user/info/?fields=follower_count,video_count,likes_count", nil, &data); err != nil {
		return nil, err
	}
	return &models.AccountStats{
		Followers: data.User.FollowerCount,
		Posts:     data.User.VideoCount,
	}, nil
}

func (a *TikTokAdapter) post(ctx context.Context, creds models.Credentials, path string, body interface{}, out interface{}) error {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			return &Error{Platform: "tiktok", Reason: ReasonOther, Message: "failed to encode request", Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, &payload)
	if err != nil {
		return &Error{Platform: "tiktok", Reason: ReasonOther, Message: "invalid request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &Error{Platform: "tiktok", Reason: ReasonOther, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	var env tiktokEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &Error{Platform: "tiktok", Reason: ReasonOther, Message: "malformed response", Err: err}
	}

	if env.Error.Code != "" && env.Error.Code != "ok" {
		reason := ReasonOther
		switch env.Error.Code {
		case "access_token_invalid", "access_token_expired":
			reason = ReasonAuthExpired
		case "video_not_found", "resource_not_found":
			reason = ReasonNotFound
		}
		return &Error{Platform: "tiktok", Reason: reason, Message: fmt.Sprintf("%s: %s", env.Error.Code, env.Error.Message)}
	}
	if resp.StatusCode >= 400 {
		reason := ReasonOther
		if resp.StatusCode == http.StatusUnauthorized {
			reason = ReasonAuthExpired
		}
		return &Error{Platform: "tiktok", Reason: reason, Message: fmt.Sprintf("api returned %d", resp.StatusCode)}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &Error{Platform: "tiktok", Reason: ReasonOther, Message: "malformed data payload", Err: err}
		}
	}
	return nil
}
