package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/worldloom/worldloom-backend/internal/handlers"
	"github.com/worldloom/worldloom-backend/internal/middleware"
	"github.com/worldloom/worldloom-backend/internal/observability"
)

type RouterConfig struct {
	DataRoot string
	Tracing  bool

	HealthHandler         *handlers.HealthHandler
	GenerationHandler     *handlers.GenerationHandler
	ReconstructionHandler *handlers.ReconstructionHandler
	AgentHandler          *handlers.AgentHandler
	AnalyzeHandler        *handlers.AnalyzeHandler
	UploadHandler         *handlers.UploadHandler
	RequestID             *middleware.RequestIDMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	if cfg.Tracing {
		router.Use(otelgin.Middleware(observability.ServiceName))
	}
	if cfg.RequestID != nil {
		router.Use(cfg.RequestID.Tag())
	}

	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/generate", cfg.GenerationHandler.Generate)
		api.GET("/progress/:key", cfg.GenerationHandler.Progress)
		api.GET("/prompts", cfg.GenerationHandler.Prompts)
		api.POST("/reconstruct", cfg.ReconstructionHandler.Reconstruct)
		api.POST("/generate_scene", cfg.ReconstructionHandler.GenerateScene)
		api.POST("/run_agent", cfg.AgentHandler.RunAgent)
		api.POST("/analyze_prompt", cfg.AnalyzeHandler.AnalyzePrompt)
		api.POST("/upload_video", cfg.UploadHandler.UploadVideo)
	}

	// Generated artifacts (videos, scene assets) are served directly.
	router.Static("/data", cfg.DataRoot)

	return router
}
