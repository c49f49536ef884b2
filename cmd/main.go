package main

import (
	"context"
	"fmt"
	"os"

	"github.com/worldloom/worldloom-backend/internal/config"
	"github.com/worldloom/worldloom-backend/internal/db"
	"github.com/worldloom/worldloom-backend/internal/handlers"
	"github.com/worldloom/worldloom-backend/internal/logger"
	"github.com/worldloom/worldloom-backend/internal/media"
	"github.com/worldloom/worldloom-backend/internal/middleware"
	"github.com/worldloom/worldloom-backend/internal/observability"
	"github.com/worldloom/worldloom-backend/internal/repos"
	"github.com/worldloom/worldloom-backend/internal/scene"
	"github.com/worldloom/worldloom-backend/internal/server"
	"github.com/worldloom/worldloom-backend/internal/services"
	"github.com/worldloom/worldloom-backend/internal/store"
	"github.com/worldloom/worldloom-backend/internal/videogen"
	"github.com/worldloom/worldloom-backend/internal/vision"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading configuration from main...")
	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal("Config load failed", "error", err)
	}

	// Tracing
	if cfg.TracingEnabled {
		tracing, err := observability.Setup(context.Background(), observability.Options{
			Endpoint:    cfg.OTLPEndpoint,
			Insecure:    cfg.OTLPInsecure,
			SampleRatio: cfg.TraceSampleRatio,
			Version:     handlers.Version,
		}, log)
		if err != nil {
			log.Warn("Tracing init failed, continuing without it", "error", err)
		} else {
			defer tracing.Shutdown(context.Background())
		}
	}

	// SQLite
	sqliteService, err := db.NewSQLiteService(cfg.SQLitePath, log)
	if err != nil {
		log.Fatal("SQLite init failed", "error", err)
	}
	if err = sqliteService.AutoMigrateAll(); err != nil {
		log.Fatal("SQLite auto migration failed", "error", err)
	}
	theDB := sqliteService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	cacheRepo := repos.NewCacheEntryRepo(theDB, log)

	// Job store
	jobStore := store.NewJobStore()

	// Video generators
	log.Info("Setting up generators from main...")
	synthetic := videogen.NewSynthetic(log, videogen.SyntheticOptions{
		Seconds: cfg.VideoSeconds,
		FPS:     cfg.VideoFPS,
		Size:    cfg.VideoSize,
	})
	var remote videogen.Generator
	if !cfg.UseMock() && cfg.VideoServiceURL != "" {
		r, err := videogen.NewRemote(videogen.RemoteOptions{
			BaseURL: cfg.VideoServiceURL,
			APIKey:  cfg.ServiceAPIKey,
			Seconds: cfg.VideoSeconds,
			Size:    cfg.VideoSize,
		}, log)
		if err != nil {
			log.Warn("Remote generator init failed, mock only", "error", err)
		} else {
			remote = r
		}
	}

	// Vision analyzer
	var analyzer vision.Analyzer = vision.NewMock(log)
	if !cfg.UseMock() && cfg.VisionServiceURL != "" {
		a, err := vision.NewRemote(vision.RemoteOptions{
			BaseURL: cfg.VisionServiceURL,
			APIKey:  cfg.ServiceAPIKey,
		}, log)
		if err != nil {
			log.Warn("Remote analyzer init failed, mock only", "error", err)
		} else {
			analyzer = a
		}
	}

	// Services
	log.Info("Setting up Services from main...")
	extractor := media.NewExtractor(log)
	sandbox := scene.NewSandbox(log, cfg.SandboxBudget)
	generationService := services.NewGenerationService(log, cfg, jobStore, cacheRepo, remote, synthetic)
	reconstructionService := services.NewReconstructionService(log, cfg, extractor, analyzer, sandbox)
	agentService := services.NewAgentService(log, cfg, reconstructionService)

	// Handlers
	log.Info("Setting up Handlers from main...")
	healthHandler := handlers.NewHealthHandler(cfg.Mode)
	generationHandler := handlers.NewGenerationHandler(generationService)
	reconstructionHandler := handlers.NewReconstructionHandler(reconstructionService)
	agentHandler := handlers.NewAgentHandler(agentService)
	analyzeHandler := handlers.NewAnalyzeHandler()
	uploadHandler := handlers.NewUploadHandler(log, cfg.DataRoot)
	requestID := middleware.NewRequestIDMiddleware(log)

	if err := os.MkdirAll(cfg.DataRoot, 0o755); err != nil {
		log.Fatal("Data root init failed", "error", err)
	}

	// Router
	router := server.NewRouter(server.RouterConfig{
		DataRoot:              cfg.DataRoot,
		Tracing:               cfg.TracingEnabled,
		HealthHandler:         healthHandler,
		GenerationHandler:     generationHandler,
		ReconstructionHandler: reconstructionHandler,
		AgentHandler:          agentHandler,
		AnalyzeHandler:        analyzeHandler,
		UploadHandler:         uploadHandler,
		RequestID:             requestID,
	})

	log.Info("Starting server", "addr", cfg.Addr, "mode", cfg.Mode)
	if err := router.Run(cfg.Addr); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
