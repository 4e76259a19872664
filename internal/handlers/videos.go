package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"crosspost-backend/internal/cache"
	"crosspost-backend/internal/distribution"
	"crosspost-backend/internal/middleware"
	"crosspost-backend/internal/models"
	"crosspost-backend/internal/platform"
	"crosspost-backend/internal/repository"
	"crosspost-backend/internal/storage"
)

const maxUploadBytes = 500 * 1024 * 1024 // 500MB

// jobStore is the slice of JobRepo the enqueue helpers need.
type jobStore interface {
	Create(ctx context.Context, j *models.Job) error
}

type VideoHandler struct {
	videoRepo  *repository.VideoRepo
	jobRepo    jobStore
	store      *storage.LocalStore
	mediaCache *cache.MediaCache
	configs    *distribution.ConfigManager
	workflow   *distribution.Workflow
	redis      *redis.Client
}

func NewVideoHandler(
	videoRepo *repository.VideoRepo,
	jobRepo jobStore,
	store *storage.LocalStore,
	mediaCache *cache.MediaCache,
	configs *distribution.ConfigManager,
	workflow *distribution.Workflow,
	redisClient *redis.Client,
) *VideoHandler {
	return &VideoHandler{
		videoRepo:  videoRepo,
		jobRepo:    jobRepo,
		store:      store,
		mediaCache: mediaCache,
		configs:    configs,
		workflow:   workflow,
		redis:      redisClient,
	}
}

func (h *VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 500MB limit", r))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	// Magic byte check
	buf := make([]byte, 512)
	n, _ := file.Read(buf)
	mimeType := http.DetectContentType(buf[:n])
	if !strings.HasPrefix(mimeType, "video/") && mimeType != "application/octet-stream" {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", "Only video files are accepted", r))
		return
	}
	file.Seek(0, io.SeekStart)

	userID := middleware.GetUserID(r.Context())

	var projectID *uuid.UUID
	if s := r.FormValue("project_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid project ID", r))
			return
		}
		projectID = &id
	}

	width, _ := strconv.Atoi(r.FormValue("width"))
	height, _ := strconv.Atoi(r.FormValue("height"))
	duration, _ := strconv.ParseFloat(r.FormValue("duration_seconds"), 64)

	storagePath, size, err := h.store.Save(userID, "videos", header.Filename, file)
	if err != nil {
		log.Printf("Failed to store upload: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store file", r))
		return
	}

	video := &models.VideoAsset{
		UserID:      userID,
		ProjectID:   projectID,
		StoragePath: storagePath,
		PublicURL:   h.store.PublicURL(storagePath),
		FileSize:    size,
		Status:      models.StatusProcessing,
	}
	if err := h.videoRepo.Create(r.Context(), video); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create video record", r))
		return
	}

	if _, err := h.enqueueJob(r, userID, "media-processing", video.ID, map[string]interface{}{
		"width":            width,
		"height":           height,
		"duration_seconds": duration,
	}); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue processing job", r))
		return
	}

	writeJSON(w, http.StatusCreated, video)
}

func (h *VideoHandler) ImportYouTube(w http.ResponseWriter, r *http.Request) {
	var req models.ImportYouTubeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "URL is required", r))
		return
	}

	userID := middleware.GetUserID(r.Context())

	video := &models.VideoAsset{
		UserID:    userID,
		ProjectID: req.ProjectID,
		Status:    models.StatusProcessing,
	}
	if err := h.videoRepo.Create(r.Context(), video); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create video record", r))
		return
	}

	if _, err := h.enqueueJob(r, userID, "youtube-import", video.ID, map[string]interface{}{"url": req.URL}); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue import job", r))
		return
	}

	writeJSON(w, http.StatusAccepted, video)
}

func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	video, ok := h.loadOwnedVideo(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, video)
}

func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	status := r.URL.Query().Get("status")

	videos, err := h.videoRepo.ListByUser(r.Context(), userID, status)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list videos", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"videos": videos})
}

func (h *VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	video, ok := h.loadOwnedVideo(w, r)
	if !ok {
		return
	}

	if err := h.workflow.Delete(r.Context(), video); err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.mediaCache.Drop(video.ID)

	writeJSON(w, http.StatusOK, map[string]string{"message": "Video deleted"})
}

// TogglePlatform flips one distribution target on or off for the video.
func (h *VideoHandler) TogglePlatform(w http.ResponseWriter, r *http.Request) {
	video, ok := h.loadOwnedVideo(w, r)
	if !ok {
		return
	}

	platformID := chi.URLParam(r, "platform")
	if _, found := platform.Lookup(platformID); !found {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unknown platform", r))
		return
	}

	if err := h.configs.TogglePlatform(r.Context(), video, platformID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, video)
}

// Eligibility reports each platform's gate checks against the video's
// current geometry and duration, for the platform picker UI.
func (h *VideoHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	video, ok := h.loadOwnedVideo(w, r)
	if !ok {
		return
	}

	result := make(map[string]platform.Eligibility, len(platform.All()))
	for _, id := range platform.All() {
		spec, _ := platform.Lookup(id)
		result[id] = spec.Check(video.Ratio(), video.Duration)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"eligibility": result})
}

// GenerateContent queues an AI metadata draft for one platform.
func (h *VideoHandler) GenerateContent(w http.ResponseWriter, r *http.Request) {
	video, ok := h.loadOwnedVideo(w, r)
	if !ok {
		return
	}

	var req struct {
		Platform string `json:"platform"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if _, found := platform.Lookup(req.Platform); !found {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unknown platform", r))
		return
	}
	if video.Transcription == "" {
		writeJSON(w, http.StatusConflict, errorResp("NO_TRANSCRIPTION", "Video has no transcription yet", r))
		return
	}

	job, err := h.enqueueJob(r, video.UserID, "content-generation", video.ID, map[string]interface{}{
		"platform": req.Platform,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue generation job", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"job_id": job.ID})
}

func (h *VideoHandler) loadOwnedVideo(w http.ResponseWriter, r *http.Request) (*models.VideoAsset, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid video ID", r))
		return nil, false
	}

	video, err := h.videoRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Video not found", r))
		return nil, false
	}

	if video.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}

	return video, true
}

func (h *VideoHandler) enqueueJob(r *http.Request, userID uuid.UUID, jobType string, referenceID uuid.UUID, config map[string]interface{}) (*models.Job, error) {
	configBytes, _ := json.Marshal(config)
	job := &models.Job{
		UserID:      userID,
		Type:        jobType,
		ReferenceID: referenceID,
		ConfigJSON:  configBytes,
		Status:      "queued",
		MaxRetries:  3,
		CreatedAt:   time.Now(),
	}

	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		log.Printf("Failed to create %s job for %s: %v", jobType, referenceID, err)
		return nil, err
	}

	jobBytes, _ := json.Marshal(job)
	h.redis.LPush(r.Context(), "queue:"+jobType, string(jobBytes))
	return job, nil
}
