package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crosspost-backend/internal/adapters"
	"crosspost-backend/internal/cache"
	"crosspost-backend/internal/config"
	"crosspost-backend/internal/database"
	"crosspost-backend/internal/distribution"
	"crosspost-backend/internal/handlers"
	"crosspost-backend/internal/middleware"
	"crosspost-backend/internal/projects"
	"crosspost-backend/internal/repository"
	"crosspost-backend/internal/router"
	"crosspost-backend/internal/services"
	"crosspost-backend/internal/storage"
	"crosspost-backend/internal/websocket"
	"crosspost-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting Crosspost Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	videoRepo := repository.NewVideoRepo(pool)
	projectRepo := repository.NewProjectRepo(pool)
	integrationRepo := repository.NewIntegrationRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Initialize Storage ────
	store, err := storage.NewLocalStore(cfg.StoragePath, cfg.BaseURL)
	if err != nil {
		log.Fatalf("✗ Storage initialization failed: %v", err)
	}
	mediaCache, err := cache.NewMediaCache(cfg.MediaCacheSize)
	if err != nil {
		log.Fatalf("✗ Media cache initialization failed: %v", err)
	}
	log.Println("✓ Local storage ready")

	// ──── Step 5: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Println("✓ Gemini Flash client initialized")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	notifier := services.NewNotifier(redisClients.Queue)
	youtubeService := services.NewYouTubeService()
	briefService := services.NewBriefService()
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth)

	// ──── Initialize Core Workflow ────
	registry := adapters.NewRegistry(cfg.InstagramAPIBaseURL, cfg.TikTokAPIBaseURL)
	statsRecomputer := projects.NewRecomputer(videoRepo, projectRepo)
	configManager := distribution.NewConfigManager(videoRepo)
	workflow := distribution.NewWorkflow(videoRepo, statsRecomputer, integrationRepo, registry, store)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	videoHandler := handlers.NewVideoHandler(videoRepo, jobRepo, store, mediaCache, configManager, workflow, redisClients.Queue)
	distributionHandler := handlers.NewDistributionHandler(videoHandler, configManager, workflow)
	projectHandler := handlers.NewProjectHandler(projectRepo, videoRepo, statsRecomputer, briefService)
	integrationHandler := handlers.NewIntegrationHandler(integrationRepo, jobRepo, redisClients.Queue)
	dashboardHandler := handlers.NewDashboardHandler(pool)
	jobHandler := handlers.NewJobHandler(jobRepo)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		notifier,
		geminiService,
		youtubeService,
		store,
		mediaCache,
		videoRepo,
		jobRepo,
		projectRepo,
		integrationRepo,
		registry,
		configManager,
		statsRecomputer,
		cfg.WorkerCount,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		videoHandler,
		distributionHandler,
		projectHandler,
		integrationHandler,
		dashboardHandler,
		jobHandler,
		wsHub,
		store,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Crosspost Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
