package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/huangang/cipulse/internal/config"
	"github.com/huangang/cipulse/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Mode == "debug" {
		logger.Init("debug")
	}

	svc := bootstrap(cfg)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	registerRoutes(r, cfg, svc)

	// Shut the collector down cleanly on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		svc.shutdown()
		os.Exit(0)
	}()

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	logger.Infof("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
