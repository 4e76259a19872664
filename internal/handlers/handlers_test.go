package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"crosspost-backend/internal/distribution"
	"crosspost-backend/internal/models"
	"crosspost-backend/internal/platform"
	"crosspost-backend/internal/services"
)

// ─── Error Mapping Tests ───

func TestHandleServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &services.ValidationError{Fields: map[string]string{"email": "bad"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"conflict", &services.ConflictError{Message: "taken"}, http.StatusConflict, "CONFLICT"},
		{"not found", &services.NotFoundError{Message: "gone"}, http.StatusNotFound, "NOT_FOUND"},
		{"unauthorized", &services.UnauthorizedError{Message: "nope"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", &services.ForbiddenError{Message: "no"}, http.StatusForbidden, "FORBIDDEN"},
		{"transition", &distribution.TransitionError{Op: "approve", Status: "published"}, http.StatusConflict, "INVALID_TRANSITION"},
		{"ineligible", &distribution.IneligibleError{Platform: "instagram"}, http.StatusUnprocessableEntity, "INELIGIBLE"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.Header.Set("X-Request-ID", "req-1")

			handleServiceError(rr, req, tc.err)

			if rr.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tc.wantStatus)
			}

			var resp models.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error.Code != tc.wantCode {
				t.Errorf("code = %q, want %q", resp.Error.Code, tc.wantCode)
			}
			if resp.Error.RequestID != "req-1" {
				t.Errorf("request_id = %q, want req-1", resp.Error.RequestID)
			}
		})
	}
}

func TestHandleServiceErrorNotReadyIncludesReport(t *testing.T) {
	report := distribution.ReadinessReport{
		HasPlatforms: true,
		Platforms: []distribution.PlatformReadiness{
			{Platform: "youtube", MissingFields: []string{"title"}, HasAccount: true},
		},
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	handleServiceError(rr, req, &distribution.NotReadyError{Report: report})

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}

	var resp struct {
		Error     models.APIError              `json:"error"`
		Readiness distribution.ReadinessReport `json:"readiness"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "NOT_READY" {
		t.Errorf("code = %q, want NOT_READY", resp.Error.Code)
	}
	if len(resp.Readiness.Platforms) != 1 || resp.Readiness.Platforms[0].MissingFields[0] != "title" {
		t.Errorf("readiness report not carried through: %+v", resp.Readiness)
	}
}

func TestValidationErrorCarriesFields(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	handleServiceError(rr, req, &services.ValidationError{
		Fields: map[string]string{"password": "too short"},
	})

	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error.Fields["password"] != "too short" {
		t.Errorf("fields = %v", resp.Error.Fields)
	}
}

// ─── Platform Catalog ───

func TestPlatformsEndpoint(t *testing.T) {
	h := NewDistributionHandler(nil, nil, nil)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	h.Platforms(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp struct {
		Platforms []struct {
			ID             string   `json:"id"`
			SubTypes       []string `json:"sub_types"`
			RequiredFields []string `json:"required_fields"`
		} `json:"platforms"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(resp.Platforms) != len(platform.All()) {
		t.Fatalf("got %d platforms, want %d", len(resp.Platforms), len(platform.All()))
	}
	for _, p := range resp.Platforms {
		if len(p.RequiredFields) == 0 {
			t.Errorf("platform %s has no required fields", p.ID)
		}
	}
}

// ─── Request Validation ───

func TestImportYouTubeRequiresURL(t *testing.T) {
	h := &VideoHandler{}

	body, _ := json.Marshal(map[string]string{})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/import-youtube", bytes.NewReader(body))

	h.ImportYouTube(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestUploadRejectsOversizedDeclaredBody(t *testing.T) {
	h := &VideoHandler{}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/upload", bytes.NewReader(nil))
	req.ContentLength = maxUploadBytes + 1

	h.Upload(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rr.Code)
	}
}

// ─── Job enqueueing ───

type failingJobStore struct{ err error }

func (s *failingJobStore) Create(ctx context.Context, j *models.Job) error { return s.err }

func TestEnqueueJobSurfacesCreateFailure(t *testing.T) {
	h := &VideoHandler{jobRepo: &failingJobStore{err: errors.New("insert failed")}}
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	job, err := h.enqueueJob(req, uuid.New(), "content-generation", uuid.New(), map[string]interface{}{"platform": "tiktok"})
	if err == nil {
		t.Fatal("expected the create failure to propagate")
	}
	if job != nil {
		t.Errorf("no job should be handed back for unqueued work, got %+v", job)
	}
}

func TestEnqueueStatsRefreshSurfacesCreateFailure(t *testing.T) {
	h := &IntegrationHandler{jobRepo: &failingJobStore{err: errors.New("insert failed")}}
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	job, err := h.enqueueStatsRefresh(req, &models.Integration{ID: uuid.New(), UserID: uuid.New()})
	if err == nil {
		t.Fatal("expected the create failure to propagate")
	}
	if job != nil {
		t.Errorf("no job should be handed back for unqueued work, got %+v", job)
	}
}

// ─── JSON helpers ───

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]string{"message": "ok"})

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var result map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result["message"] != "ok" {
		t.Errorf("message = %q", result["message"])
	}
}
