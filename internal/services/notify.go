package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"crosspost-backend/internal/models"
)

// Notifier fans out realtime updates to a user's open dashboard tabs
// via Redis pub/sub. The websocket hub subscribes per user on connect.
type Notifier struct {
	redis *redis.Client
}

func NewNotifier(redisClient *redis.Client) *Notifier {
	return &Notifier{redis: redisClient}
}

// Publish sends a WebSocket update via Redis pub/sub
func (n *Notifier) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, _ := json.Marshal(msg)
	n.redis.Publish(ctx, fmt.Sprintf("user_updates:%s", userID.String()), string(data))
}

// VideoUpdated announces a status change for a single video.
func (n *Notifier) VideoUpdated(ctx context.Context, userID, videoID uuid.UUID, status string) {
	n.Publish(ctx, userID, models.WSMessage{
		Type:    "video_updated",
		Payload: models.VideoUpdated{VideoID: videoID, Status: status},
	})
}

// ProjectUpdated announces recomputed project stats.
func (n *Notifier) ProjectUpdated(ctx context.Context, userID, projectID uuid.UUID, stats models.ProjectStats) {
	n.Publish(ctx, userID, models.WSMessage{
		Type:    "project_updated",
		Payload: models.ProjectUpdated{ProjectID: projectID, Stats: stats},
	})
}
