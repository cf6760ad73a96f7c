package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cartagena-corp/lm-comments/internal/api"
	"github.com/cartagena-corp/lm-comments/internal/auth"
	"github.com/cartagena-corp/lm-comments/internal/client"
	"github.com/cartagena-corp/lm-comments/internal/config"
	"github.com/cartagena-corp/lm-comments/internal/database"
	"github.com/cartagena-corp/lm-comments/internal/metrics"
	"github.com/cartagena-corp/lm-comments/internal/repository"
	"github.com/cartagena-corp/lm-comments/internal/service"
	"github.com/cartagena-corp/lm-comments/internal/storage"
	"github.com/cartagena-corp/lm-comments/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New()
	log.Info().Msg("Starting comments service...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	m := metrics.New()
	repos := repository.New(db)
	files := storage.NewFileStore(cfg.Upload.Dir, cfg.Upload.AccessURL)

	// Sibling service calls are bounded by the inbound request context
	httpClient := &http.Client{}
	issues := client.NewIssueClient(cfg.Services.IssuesURL, httpClient, m, log)
	users := client.NewUserClient(cfg.Services.AuthURL, httpClient, m, log)

	authn := auth.NewAuthenticator(cfg.Auth.JWTSecret, users)
	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET not set, resolving callers through the auth service")
	}

	services := service.NewServices(service.Dependencies{
		Repos:   repos,
		Issues:  issues,
		Users:   users,
		Files:   files,
		Metrics: m,
	}, cfg, log)

	// Start orphaned upload sweeper
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	go services.Janitor.Start(janitorCtx)

	router := api.NewRouter(api.Dependencies{
		Services: services,
		Auth:     authn,
		Metrics:  m,
		Health:   db.HealthCheck,
	}, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("upload_dir", cfg.Upload.Dir).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	stopJanitor()
	services.Janitor.Stop()

	log.Info().Msg("Server exited gracefully")
}
