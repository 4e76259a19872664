package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"crosspost-backend/internal/middleware"
	"crosspost-backend/internal/models"
	"crosspost-backend/internal/platform"
	"crosspost-backend/internal/repository"
)

type IntegrationHandler struct {
	integrationRepo *repository.IntegrationRepo
	jobRepo         jobStore
	redis           *redis.Client
}

func NewIntegrationHandler(integrationRepo *repository.IntegrationRepo, jobRepo jobStore, redisClient *redis.Client) *IntegrationHandler {
	return &IntegrationHandler{
		integrationRepo: integrationRepo,
		jobRepo:         jobRepo,
		redis:           redisClient,
	}
}

// Connect registers a platform account with its credentials and queues
// an initial stats pull.
func (h *IntegrationHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req models.ConnectIntegrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fieldErrors := make(map[string]string)
	if _, ok := platform.Lookup(req.Platform); !ok {
		fieldErrors["platform"] = "Unknown platform"
	}
	if req.DisplayName == "" {
		fieldErrors["display_name"] = "Display name is required"
	}
	if req.Credentials.AccessToken == "" && req.Credentials.APIKey == "" {
		fieldErrors["credentials"] = "An access token or API key is required"
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fieldErrors, r))
		return
	}

	integration := &models.Integration{
		UserID:              middleware.GetUserID(r.Context()),
		Platform:            req.Platform,
		DisplayName:         req.DisplayName,
		Credentials:         req.Credentials,
		FallbackCredentials: req.FallbackCredentials,
	}
	if err := h.integrationRepo.Create(r.Context(), integration); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to connect account", r))
		return
	}

	// The initial stats pull is best-effort; the connection itself stands.
	if _, err := h.enqueueStatsRefresh(r, integration); err != nil {
		log.Printf("Initial stats refresh for %s not queued: %v", integration.ID, err)
	}

	writeJSON(w, http.StatusCreated, integration)
}

func (h *IntegrationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	list, err := h.integrationRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list integrations", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"integrations": list})
}

func (h *IntegrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	integration, ok := h.loadOwnedIntegration(w, r)
	if !ok {
		return
	}

	if err := h.integrationRepo.Delete(r.Context(), integration.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to disconnect account", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Account disconnected"})
}

// RefreshStats queues a stats pull for one account.
func (h *IntegrationHandler) RefreshStats(w http.ResponseWriter, r *http.Request) {
	integration, ok := h.loadOwnedIntegration(w, r)
	if !ok {
		return
	}

	job, err := h.enqueueStatsRefresh(r, integration)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue stats refresh", r))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"job_id": job.ID})
}

// RefreshAllStats queues a stats pull for every connected account.
func (h *IntegrationHandler) RefreshAllStats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	list, err := h.integrationRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list integrations", r))
		return
	}

	jobIDs := make([]uuid.UUID, 0, len(list))
	for _, integration := range list {
		job, err := h.enqueueStatsRefresh(r, integration)
		if err != nil {
			continue
		}
		jobIDs = append(jobIDs, job.ID)
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"job_ids": jobIDs})
}

func (h *IntegrationHandler) loadOwnedIntegration(w http.ResponseWriter, r *http.Request) (*models.Integration, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid integration ID", r))
		return nil, false
	}

	integration, err := h.integrationRepo.Get(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Integration not found", r))
		return nil, false
	}

	if integration.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}

	return integration, true
}

func (h *IntegrationHandler) enqueueStatsRefresh(r *http.Request, integration *models.Integration) (*models.Job, error) {
	job := &models.Job{
		UserID:      integration.UserID,
		Type:        "stats-refresh",
		ReferenceID: integration.ID,
		Status:      "queued",
		MaxRetries:  3,
		CreatedAt:   time.Now(),
	}

	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		log.Printf("Failed to create stats-refresh job for %s: %v", integration.ID, err)
		return nil, err
	}

	jobBytes, _ := json.Marshal(job)
	h.redis.LPush(r.Context(), "queue:stats-refresh", string(jobBytes))
	return job, nil
}
