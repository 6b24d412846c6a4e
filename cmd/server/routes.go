package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/cipulse/internal/config"
	"github.com/huangang/cipulse/internal/handlers"
	"github.com/huangang/cipulse/internal/middleware"
	"github.com/huangang/cipulse/internal/models"
	"github.com/huangang/cipulse/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Health check
	healthHandler := handlers.NewHealthHandler(svc.collector)
	r.GET("/health", healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		// Metrics
		metricsHandler := handlers.NewMetricsHandler(models.GetDB(), svc.ghClient, cfg.Collector.PageSize)
		api.GET("/metrics/summary", metricsHandler.GetSummary)
		api.GET("/metrics/daily", metricsHandler.GetDaily)
		api.GET("/runs/recent", metricsHandler.GetRecentRuns)

		// Tasks
		taskHandler := handlers.NewTaskHandler(models.GetDB())
		api.GET("/tasks", taskHandler.List)
		api.POST("/tasks", taskHandler.Create)
		api.PUT("/tasks/:id", taskHandler.Update)
		api.DELETE("/tasks/:id", taskHandler.Delete)

		// Webhook (public, rate limited ahead of signature verification)
		webhookLimiter := middleware.NewRateLimiter(cfg.Webhook.RPS, cfg.Webhook.Burst)
		webhookHandler := handlers.NewWebhookHandler(svc.webhookService, cfg.Webhook.Secret)
		api.POST("/webhook/github", webhookLimiter.Middleware(), webhookHandler.HandleGitHubWebhook)
	}
}
