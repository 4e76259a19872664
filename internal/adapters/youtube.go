package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"crosspost-backend/internal/models"
)

// YouTubeAdapter publishes through the YouTube Data API v3.
type YouTubeAdapter struct {
	httpClient *http.Client
}

func NewYouTubeAdapter() *YouTubeAdapter {
	return &YouTubeAdapter{
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

func (a *YouTubeAdapter) service(ctx context.Context, creds models.Credentials) (*yt.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken})
	svc, err := yt.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, &Error{Platform: "youtube", Reason: ReasonOther, Message: "failed to build service", Err: err}
	}
	return svc, nil
}

func (a *YouTubeAdapter) Publish(ctx context.Context, creds models.Credentials, mediaURL string, meta models.PlatformContent, subType string, scheduleAt *time.Time) (string, error) {
	svc, err := a.service(ctx, creds)
	if err != nil {
		return "", err
	}

	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
		},
		Status: &yt.VideoStatus{PrivacyStatus: "public"},
	}
	if meta.CategoryID != nil {
		video.Snippet.CategoryId = *meta.CategoryID
	}
	if scheduleAt != nil {
		// Scheduled uploads stay private until YouTube flips them live.
		video.Status.PrivacyStatus = "private"
		video.Status.PublishAt = scheduleAt.UTC().Format(time.RFC3339)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", &Error{Platform: "youtube", Reason: ReasonOther, Message: "invalid media URL", Err: err}
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", &Error{Platform: "youtube", Reason: ReasonOther, Message: "failed to open media stream", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &Error{Platform: "youtube", Reason: ReasonOther, Message: fmt.Sprintf("media fetch returned %d", resp.StatusCode)}
	}

	call := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(resp.Body)
	inserted, err := call.Do()
	if err != nil {
		return "", classifyYouTubeError(err, "upload failed")
	}

	if meta.PlaylistID != nil && *meta.PlaylistID != "" {
		item := &yt.PlaylistItem{
			Snippet: &yt.PlaylistItemSnippet{
				PlaylistId: *meta.PlaylistID,
				ResourceId: &yt.ResourceId{Kind: "youtube#video", VideoId: inserted.Id},
			},
		}
		// Playlist membership is cosmetic; a failure here must not undo
		// a successful upload.
		if _, err := svc.PlaylistItems.Insert([]string{"snippet"}, item).Do(); err != nil {
			return inserted.Id, nil
		}
	}

	return inserted.Id, nil
}

func (a *YouTubeAdapter) DeleteRemote(ctx context.Context, creds models.Credentials, remoteID string) error {
	svc, err := a.service(ctx, creds)
	if err != nil {
		return err
	}
	if err := svc.Videos.Delete(remoteID).Do(); err != nil {
		return classifyYouTubeError(err, "delete failed")
	}
	return nil
}

func (a *YouTubeAdapter) FetchStats(ctx context.Context, creds models.Credentials) (*models.AccountStats, error) {
	svc, err := a.service(ctx, creds)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Channels.List([]string{"statistics"}).Mine(true).Do()
	if err != nil {
		return nil, classifyYouTubeError(err, "stats fetch failed")
	}
	if len(resp.Items) == 0 || resp.Items[0].Statistics == nil {
		return nil, &Error{Platform: "youtube", Reason: ReasonOther, Message: "no channel statistics returned"}
	}

	st := resp.Items[0].Statistics
	views := int64(st.ViewCount)
	return &models.AccountStats{
		Followers:      int64(st.SubscriberCount),
		Posts:          int64(st.VideoCount),
		AggregateViews: &views,
	}, nil
}

func classifyYouTubeError(err error, msg string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return &Error{Platform: "youtube", Reason: ReasonAuthExpired, Message: msg, Err: err}
		case http.StatusNotFound:
			return &Error{Platform: "youtube", Reason: ReasonNotFound, Message: msg, Err: err}
		}
	}
	return &Error{Platform: "youtube", Reason: ReasonOther, Message: msg, Err: err}
}
