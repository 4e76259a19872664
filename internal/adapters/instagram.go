package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crosspost-backend/internal/models"
)

const defaultInstagramBaseURL = "https://graph.facebook.com/v21.0"

// InstagramAdapter publishes reels/stories through the Graph API's
// two-step container flow: create a media container from the video URL,
// poll until processed, then publish it.
type InstagramAdapter struct {
	baseURL    string
	httpClient *http.Client
}

func NewInstagramAdapter(baseURL string) *InstagramAdapter {
	if baseURL == "" {
		baseURL = defaultInstagramBaseURL
	}
	return &InstagramAdapter{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (a *InstagramAdapter) Publish(ctx context.Context, creds models.Credentials, mediaURL string, meta models.PlatformContent, subType string, scheduleAt *time.Time) (string, error) {
	mediaType := "REELS"
	if subType == "story" {
		mediaType = "STORIES"
	}

	form := url.Values{}
	form.Set("media_type", mediaType)
	form.Set("video_url", mediaURL)
	form.Set("caption", meta.Caption)
	form.Set("access_token", creds.AccessToken)
	if scheduleAt != nil {
		form.Set("published", "false")
		form.Set("scheduled_publish_time", fmt.Sprintf("%d", scheduleAt.Unix()))
	}

	var container struct {
		ID string `json:"id"`
	}
	if err := a.postForm(ctx, fmt.Sprintf("%s/%s/media", a.baseURL, creds.AccountRef), form, &container); err != nil {
		return "", err
	}

	if err := a.waitForContainer(ctx, creds, container.ID); err != nil {
		return "", err
	}

	publish := url.Values{}
	publish.Set("creation_id", container.ID)
	publish.Set("access_token", creds.AccessToken)

	var published struct {
		ID string `json:"id"`
	}
	if err := a.postForm(ctx, fmt.Sprintf("%s/%s/media_publish", a.baseURL, creds.AccountRef), publish, &published); err != nil {
		return "", err
	}
	return published.ID, nil
}

// waitForContainer polls the container status until FINISHED. Instagram
// transcodes asynchronously; publishing an unfinished container fails.
func (a *InstagramAdapter) waitForContainer(ctx context.Context, creds models.Credentials, containerID string) error {
	deadline := time.Now().Add(5 * time.Minute)
	for {
		var status struct {
			StatusCode string `json:"status_code"`
		}
		u := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s", a.baseURL, containerID, url.QueryEscape(creds.AccessToken))
		if err := a.get(ctx, u, &status); err != nil {
			return err
		}

		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return &Error{Platform: "instagram", Reason: ReasonOther, Message: "media container ended in state " + status.StatusCode}
		}

		if time.Now().After(deadline) {
			return &Error{Platform: "instagram", Reason: ReasonOther, Message: "media container not ready after 5m"}
		}
		select {
		case <-ctx.Done():
			return &Error{Platform: "instagram", Reason: ReasonOther, Message: "container wait cancelled", Err: ctx.Err()}
		case <-time.After(5 * time.Second):
		}
	}
}

func (a *InstagramAdapter) DeleteRemote(ctx context.Context, creds models.Credentials, remoteID string) error {
	u := fmt.Sprintf("%s/%s?access_token=%s", a.baseURL, remoteID, url.QueryEscape(creds.AccessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return &Error{Platform: "instagram", Reason: ReasonOther, Message: "invalid delete request", Err: err}
	}
	var ok struct {
		Success bool `json:"success"`
	}
	return a.do(req, &ok)
}

func (a *InstagramAdapter) FetchStats(ctx context.Context, creds models.Credentials) (*models.AccountStats, error) {
	u := fmt.Sprintf("%s/%s?fields=followers_count,media_count&access_token=%s", a.baseURL, creds.AccountRef, url.QueryEscape(creds.AccessToken))
	var profile struct {
		FollowersCount int64 `json:"followers_count"`
		MediaCount     int64 `json:"media_count"`
	}
	if err := a.get(ctx, u, &profile); err != nil {
		return nil, err
	}
	return &models.AccountStats{Followers: profile.FollowersCount, Posts: profile.MediaCount}, nil
}

func (a *InstagramAdapter) postForm(ctx context.Context, u string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return &Error{Platform: "instagram", Reason: ReasonOther, Message: "invalid request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, out)
}

func (a *InstagramAdapter) get(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &Error{Platform: "instagram", Reason: ReasonOther, Message: "invalid request", Err: err}
	}
	return a.do(req, out)
}

func (a *InstagramAdapter) do(req *http.Request, out interface{}) error {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &Error{Platform: "instagram", Reason: ReasonOther, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var gerr graphError
		json.NewDecoder(resp.Body).Decode(&gerr)
		msg := gerr.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("graph api returned %d", resp.StatusCode)
		}

		reason := ReasonOther
		switch {
		// Graph code 190 is the OAuth token error family.
		case resp.StatusCode == http.StatusUnauthorized || gerr.Error.Code == 190:
			reason = ReasonAuthExpired
		case resp.StatusCode == http.StatusNotFound || gerr.Error.Code == 100:
			reason = ReasonNotFound
		}
		return &Error{Platform: "instagram", Reason: reason, Message: msg}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Platform: "instagram", Reason: ReasonOther, Message: "malformed response", Err: err}
		}
	}
	return nil
}
