// Package main provides the entry point for the webhook bridge server.
package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	appConfig "github.com/msign/jira-bridge/internal/config"
	"github.com/msign/jira-bridge/internal/database/database"
	"github.com/msign/jira-bridge/internal/database/migrate"
	"github.com/msign/jira-bridge/internal/gitlab"
	"github.com/msign/jira-bridge/internal/health"
	"github.com/msign/jira-bridge/internal/jira"
	"github.com/msign/jira-bridge/internal/middleware"
	webhookRouter "github.com/msign/jira-bridge/internal/webhook/router"
	"github.com/msign/jira-bridge/pkg/logger"
)

func main() {
	cfg := appConfig.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zapLogger, err := logger.NewWithConfig(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	db, err := database.New()
	if err != nil {
		zapLogger.Fatalw("failed to connect to database", "error", err)
	}
	defer func() {
		if closeErr := database.Close(db); closeErr != nil {
			zapLogger.Errorw("failed to close database", "error", closeErr)
		}
	}()

	if err := migrate.Migrate(db); err != nil {
		zapLogger.Fatalw("failed to apply migrations", "error", err)
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(middleware.Recovery(zapLogger))
	r.Use(middleware.Logger(zapLogger))

	healthHandler := health.New(db, zapLogger)
	r.GET("/health", healthHandler.Check)

	tracker := jira.NewClient(jira.Config{
		Host:     cfg.Jira.Host,
		User:     cfg.Jira.User,
		Password: cfg.Jira.Password,
	})
	merger := gitlab.NewClient(gitlab.Config{
		BaseURL: cfg.GitLab.BaseURL,
		Token:   cfg.GitLab.Token,
	})

	if err := webhookRouter.RegisterRoutes(r, db, tracker, merger, cfg.Webhook, zapLogger); err != nil {
		zapLogger.Fatalw("failed to register webhook routes", "error", err)
	}

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	zapLogger.Infow("starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		zapLogger.Fatalw("server stopped", "error", err)
	}
}
