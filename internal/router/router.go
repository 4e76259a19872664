package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"crosspost-backend/internal/handlers"
	"crosspost-backend/internal/middleware"
	"crosspost-backend/internal/storage"
	"crosspost-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authHandler *handlers.AuthHandler,
	videoHandler *handlers.VideoHandler,
	distributionHandler *handlers.DistributionHandler,
	projectHandler *handlers.ProjectHandler,
	integrationHandler *handlers.IntegrationHandler,
	dashboardHandler *handlers.DashboardHandler,
	jobHandler *handlers.JobHandler,
	wsHub *websocket.Hub,
	store *storage.LocalStore,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Auth rate limiter (10 req/min per IP)
	authLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Stored media files, pulled by platform APIs during publishing.
	r.Get("/media/*", func(w http.ResponseWriter, r *http.Request) {
		abs, err := store.AbsPath(chi.URLParam(r, "*"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, abs)
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Logout requires auth
			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// ──── Platform Catalog (public) ────
		r.Get("/platforms", distributionHandler.Platforms)

		// ──── Video Routes ────
		r.Route("/videos", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/upload", videoHandler.Upload)
			r.Post("/import-youtube", videoHandler.ImportYouTube)
			r.Get("/", videoHandler.List)
			r.Get("/{id}", videoHandler.Get)
			r.Delete("/{id}", videoHandler.Delete)
			r.Get("/{id}/eligibility", videoHandler.Eligibility)
			r.Post("/{id}/platforms/{platform}", videoHandler.TogglePlatform)
			r.Post("/{id}/generate", videoHandler.GenerateContent)

			// Distribution configuration
			r.Post("/{id}/accounts", distributionHandler.ToggleAccount)
			r.Put("/{id}/post-type", distributionHandler.SetPostType)
			r.Put("/{id}/metadata", distributionHandler.SaveMetadata)

			// Workflow transitions
			r.Get("/{id}/readiness", distributionHandler.Readiness)
			r.Post("/{id}/approve", distributionHandler.Approve)
			r.Post("/{id}/distribute", distributionHandler.Distribute)
			r.Post("/{id}/cancel-schedule", distributionHandler.CancelSchedule)
			r.Post("/{id}/unapprove", distributionHandler.Unapprove)
			r.Post("/{id}/force-revert", distributionHandler.ForceRevert)
			r.Post("/{id}/dismiss", distributionHandler.Dismiss)
			r.Post("/{id}/restore", distributionHandler.Restore)
		})

		// ──── Project Routes ────
		r.Route("/projects", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", projectHandler.Create)
			r.Get("/", projectHandler.List)
			r.Get("/{id}", projectHandler.Get)
			r.Delete("/{id}", projectHandler.Delete)
			r.Post("/{id}/recompute-stats", projectHandler.RecomputeStats)
			r.Post("/{id}/brief", projectHandler.UploadBrief)
		})

		// ──── Integration Routes ────
		r.Route("/integrations", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/", integrationHandler.Connect)
			r.Get("/", integrationHandler.List)
			r.Delete("/{id}", integrationHandler.Delete)
			r.Post("/{id}/refresh-stats", integrationHandler.RefreshStats)
			r.Post("/refresh-stats", integrationHandler.RefreshAllStats)
		})

		// ──── Dashboard Routes ────
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/overview", dashboardHandler.Overview)
			r.Get("/calendar", dashboardHandler.Calendar)
		})

		// ──── Job Routes ────
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/{id}", jobHandler.GetJob)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
