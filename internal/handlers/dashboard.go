package handlers

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"crosspost-backend/internal/middleware"
	"crosspost-backend/internal/models"
)

type DashboardHandler struct {
	pool *pgxpool.Pool
}

func NewDashboardHandler(pool *pgxpool.Pool) *DashboardHandler {
	return &DashboardHandler{pool: pool}
}

// Overview returns the landing page numbers: videos by status bucket,
// upcoming scheduled posts and connected account counts.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	var totalVideos, projectCount, accountCount int
	h.pool.QueryRow(ctx, "SELECT COUNT(*) FROM videos WHERE user_id = $1", userID).Scan(&totalVideos)
	h.pool.QueryRow(ctx, "SELECT COUNT(*) FROM projects WHERE user_id = $1", userID).Scan(&projectCount)
	h.pool.QueryRow(ctx, "SELECT COUNT(*) FROM integrations WHERE user_id = $1", userID).Scan(&accountCount)

	statusCounts := map[string]int{}
	rows, err := h.pool.Query(ctx,
		"SELECT status, COUNT(*) FROM videos WHERE user_id = $1 GROUP BY status", userID)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var status string
			var count int
			if rows.Scan(&status, &count) == nil {
				statusCounts[status] = count
			}
		}
	}

	var scheduledThisWeek, publishedThisWeek int
	h.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM videos
		WHERE user_id = $1
		  AND status = $2
		  AND scheduled_date <= NOW() + INTERVAL '7 days'
	`, userID, models.StatusScheduled).Scan(&scheduledThisWeek)

	h.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM videos
		WHERE user_id = $1
		  AND status = $2
		  AND created_at >= NOW() - INTERVAL '7 days'
	`, userID, models.StatusPublished).Scan(&publishedThisWeek)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_videos":        totalVideos,
		"projects":            projectCount,
		"connected_accounts":  accountCount,
		"videos_by_status":    statusCounts,
		"scheduled_this_week": scheduledThisWeek,
		"published_this_week": publishedThisWeek,
	})
}

// Calendar lists scheduled videos inside a date window, defaulting to
// the next 30 days.
func (h *DashboardHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	from := time.Now()
	to := from.AddDate(0, 0, 30)
	if s := r.URL.Query().Get("from"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			from = t
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			to = t
		}
	}

	type calendarEntry struct {
		VideoID       string     `json:"video_id"`
		ProjectID     *string    `json:"project_id"`
		Platforms     []string   `json:"platforms"`
		ScheduledDate *time.Time `json:"scheduled_date"`
	}

	var entries []calendarEntry
	rows, err := h.pool.Query(ctx, `
		SELECT id, project_id, platforms, scheduled_date
		FROM videos
		WHERE user_id = $1
		  AND status = $2
		  AND scheduled_date BETWEEN $3 AND $4
		ORDER BY scheduled_date
	`, userID, models.StatusScheduled, from, to)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load calendar", r))
		return
	}
	defer rows.Close()

	for rows.Next() {
		var e calendarEntry
		if rows.Scan(&e.VideoID, &e.ProjectID, &e.Platforms, &e.ScheduledDate) == nil {
			entries = append(entries, e)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
