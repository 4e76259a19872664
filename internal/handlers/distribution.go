package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"crosspost-backend/internal/distribution"
	"crosspost-backend/internal/models"
	"crosspost-backend/internal/platform"
)

// DistributionHandler exposes the per-video configuration and workflow
// operations. It reuses VideoHandler's ownership loading so every route
// is scoped to the authenticated user.
type DistributionHandler struct {
	videos   *VideoHandler
	configs  *distribution.ConfigManager
	workflow *distribution.Workflow
}

func NewDistributionHandler(videos *VideoHandler, configs *distribution.ConfigManager, workflow *distribution.Workflow) *DistributionHandler {
	return &DistributionHandler{videos: videos, configs: configs, workflow: workflow}
}

// ToggleAccount adds or removes one (platform, account) publishing target.
func (h *DistributionHandler) ToggleAccount(w http.ResponseWriter, r *http.Request) {
	video, ok := h.videos.loadOwnedVideo(w, r)
	if !ok {
		return
	}

	var req struct {
		Platform  string    `json:"platform"`
		AccountID uuid.UUID `json:"account_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.AccountID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Account ID is required", r))
		return
	}

	if err := h.configs.ToggleAccount(r.Context(), video, req.Platform, req.AccountID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, video)
}

// SetPostType changes the shared sub-type for one platform.
func (h *DistributionHandler) SetPostType(w http.ResponseWriter, r *http.Request) {
	video, ok := h.videos.loadOwnedVideo(w, r)
	if !ok {
		return
	}

	var req struct {
		Platform string `json:"platform"`
		PostType string `json:"post_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := h.configs.SetPostType(r.Context(), video, req.Platform, req.PostType); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, video)
}

// SaveMetadata applies the client's buffered per-platform content edits
// and persists them in one write.
func (h *DistributionHandler) SaveMetadata(w http.ResponseWriter, r *http.Request) {
	video, ok := h.videos.loadOwnedVideo(w, r)
	if !ok {
		return
	}

	var patches map[string]models.ContentPatch
	if err := json.NewDecoder(r.Body).Decode(&patches); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	for platformID, patch := range patches {
		if err := h.configs.SyncMetadata(video, platformID, patch); err != nil {
			handleServiceError(w, r, err)
			return
		}
	}

	if err := h.configs.ExplicitSave(r.Context(), video); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, video)
}

// Readiness reports the approval guard's view of the video without
// changing anything.
func (h *DistributionHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	video, ok := h.videos.loadOwnedVideo(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, distribution.EvaluateReadiness(video))
}

func (h *DistributionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	video, ok := h.videos.loadOwnedVideo(w, r)
	if !ok {
		return
	}

	report, err := h.workflow.Approve(r.Context(), video)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"video":     video,
		"readiness": report,
	})
}

// Distribute publishes the video to every configured account, now or at
// the requested schedule time.
func (h *DistributionHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	video, ok := h.videos.loadOwnedVideo(w, r)
	if !ok {
		return
	}

	var req struct {
		ScheduleAt *time.Time `json:"schedule_at"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
			return
		}
	}
	if req.ScheduleAt != nil && req.ScheduleAt.Before(time.Now()) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Schedule time is in the past", r))
		return
	}

	if err := h.workflow.Distribute(r.Context(), video, video.DistributionConfig, req.ScheduleAt); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, video)
}

func (h *DistributionHandler) CancelSchedule(w http.ResponseWriter, r *http.Request) {
	video, ok := h.videos.loadOwnedVideo(w, r)
	if !ok {
		return
	}

	warnings, err := h.workflow.CancelSchedule(r.Context(), video)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"video":    video,
		"warnings": warnings,
	})
}

func (h *DistributionHandler) Unapprove(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflow.Unapprove)
}

func (h *DistributionHandler) ForceRevert(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflow.ForceRevert)
}

func (h *DistributionHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflow.Dismiss)
}

func (h *DistributionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.workflow.Restore)
}

func (h *DistributionHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, v *models.VideoAsset) error) {
	video, ok := h.videos.loadOwnedVideo(w, r)
	if !ok {
		return
	}

	if err := op(r.Context(), video); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, video)
}

// Platforms lists the supported platforms and their sub-types for the
// configuration UI.
func (h *DistributionHandler) Platforms(w http.ResponseWriter, r *http.Request) {
	type platformInfo struct {
		ID             string   `json:"id"`
		DisplayName    string   `json:"display_name"`
		DefaultSubType string   `json:"default_sub_type"`
		SubTypes       []string `json:"sub_types"`
		RequiredFields []string `json:"required_fields"`
	}

	var out []platformInfo
	for _, id := range platform.All() {
		spec, _ := platform.Lookup(id)
		out = append(out, platformInfo{
			ID:             spec.ID,
			DisplayName:    spec.DisplayName,
			DefaultSubType: spec.DefaultSubType,
			SubTypes:       spec.SubTypes,
			RequiredFields: spec.RequiredFields,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"platforms": out})
}
