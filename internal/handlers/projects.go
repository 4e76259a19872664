package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"crosspost-backend/internal/middleware"
	"crosspost-backend/internal/models"
	"crosspost-backend/internal/projects"
	"crosspost-backend/internal/repository"
	"crosspost-backend/internal/services"
)

const maxBriefBytes = 20 * 1024 * 1024 // 20MB

type ProjectHandler struct {
	projectRepo *repository.ProjectRepo
	videoRepo   *repository.VideoRepo
	stats       *projects.Recomputer
	briefs      *services.BriefService
}

func NewProjectHandler(
	projectRepo *repository.ProjectRepo,
	videoRepo *repository.VideoRepo,
	stats *projects.Recomputer,
	briefs *services.BriefService,
) *ProjectHandler {
	return &ProjectHandler{
		projectRepo: projectRepo,
		videoRepo:   videoRepo,
		stats:       stats,
		briefs:      briefs,
	}
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"name": "Name is required"}, r))
		return
	}

	project := &models.Project{
		UserID:     middleware.GetUserID(r.Context()),
		Name:       req.Name,
		ClientName: req.ClientName,
		AgencyName: req.AgencyName,
	}
	if err := h.projectRepo.Create(r.Context(), project); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create project", r))
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	list, err := h.projectRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list projects", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": list})
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadOwnedProject(w, r)
	if !ok {
		return
	}

	videos, err := h.videoRepo.ListByProject(r.Context(), project.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load project videos", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project": project,
		"videos":  videos,
	})
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadOwnedProject(w, r)
	if !ok {
		return
	}

	if err := h.projectRepo.Delete(r.Context(), project.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete project", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Project deleted"})
}

// RecomputeStats forces a fresh aggregation pass, for when a client
// wants to reconcile after missed websocket updates.
func (h *ProjectHandler) RecomputeStats(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadOwnedProject(w, r)
	if !ok {
		return
	}

	if err := h.stats.Recompute(r.Context(), project.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to recompute stats", r))
		return
	}

	fresh, err := h.projectRepo.GetByID(r.Context(), project.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to reload project", r))
		return
	}

	writeJSON(w, http.StatusOK, fresh)
}

// UploadBrief attaches a brief document to the project; its extracted
// text is stored for search and content generation.
func (h *ProjectHandler) UploadBrief(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadOwnedProject(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBriefBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	supported := false
	for _, e := range services.SupportedBriefExts {
		if e == ext {
			supported = true
			break
		}
	}
	if !supported {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", "Brief must be a .txt, .pdf or .docx file", r))
		return
	}

	// Extraction works off a file path, so spool to a temp file first.
	tmp, err := os.CreateTemp("", "brief-*"+ext)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to process brief", r))
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.ReadFrom(file); err != nil {
		tmp.Close()
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to process brief", r))
		return
	}
	tmp.Close()

	text, err := h.briefs.ExtractText(tmpPath)
	if err != nil {
		log.Printf("Brief extraction failed for project %s: %v", project.ID, err)
		writeJSON(w, http.StatusUnprocessableEntity, errorResp("EXTRACTION_FAILED", "Could not extract text from the brief", r))
		return
	}

	if err := h.projectRepo.UpdateBrief(r.Context(), project.ID, text); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save brief", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Brief attached",
		"char_count": len(text),
	})
}

func (h *ProjectHandler) loadOwnedProject(w http.ResponseWriter, r *http.Request) (*models.Project, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid project ID", r))
		return nil, false
	}

	project, err := h.projectRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Project not found", r))
		return nil, false
	}

	if project.UserID != middleware.GetUserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}

	return project, true
}
