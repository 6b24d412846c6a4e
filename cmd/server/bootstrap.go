package main

import (
	"github.com/huangang/cipulse/internal/config"
	"github.com/huangang/cipulse/internal/github"
	"github.com/huangang/cipulse/internal/models"
	"github.com/huangang/cipulse/internal/services"
	"github.com/huangang/cipulse/pkg/logger"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	ghClient       *github.Client
	collector      *services.Collector
	mailer         *services.Mailer
	webhookService *services.WebhookService
}

// bootstrap initializes all application dependencies: database, services,
// and the collector schedule. The collector only starts once storage is
// reachable — InitDB is fatal on failure.
func bootstrap(cfg *config.Config) *appServices {
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	ghClient := github.NewClient(&cfg.GitHub)
	mailer := services.NewMailer(&cfg.SMTP, &cfg.Alert)

	collector := services.NewCollector(models.GetDB(), ghClient, &cfg.Collector)
	collector.Start()

	return &appServices{
		ghClient:       ghClient,
		collector:      collector,
		mailer:         mailer,
		webhookService: services.NewWebhookService(mailer),
	}
}

// shutdown gracefully stops background work.
func (s *appServices) shutdown() {
	s.collector.Stop()
	logger.Info().Msg("collector stopped")
}
