package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/erpflow/internal/app"
	"github.com/andresuchdata/erpflow/internal/config"
	"github.com/andresuchdata/erpflow/internal/drive"
	"github.com/andresuchdata/erpflow/internal/repository/postgres"
	"github.com/andresuchdata/erpflow/pkg/logger"
	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.Server.LogLevel, cfg.Server.LogFormat)

	if cfg.Drive.CredentialsJSON == "" {
		logger.Log.Fatal().Msg("GOOGLE_DRIVE_CREDENTIALS_JSON is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	a, err := app.New(ctx, cfg, db)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialise application")
	}
	a.Pool.Start()

	ingestService := drive.NewIngestService(driveService, a.Uploads)

	r := mux.NewRouter()
	drive.NewHandler(driveService, ingestService, cfg.Drive.FolderID).RegisterRoutes(r)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := a.Health(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	if cfg.Drive.PollInterval > 0 && cfg.Drive.FolderID != "" {
		watcher := drive.NewWatcher(driveService, ingestService, cfg.Drive.FolderID, cfg.Drive.PollInterval)
		go func() {
			logger.Log.Info().Str("folder_id", cfg.Drive.FolderID).Dur("interval", cfg.Drive.PollInterval).Msg("Watching Drive folder")
			_ = watcher.Run(ctx)
		}()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Drive.Port,
		Handler: r,
	}
	go func() {
		logger.Log.Info().Str("port", cfg.Drive.Port).Msg("Drive import server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Log.Info().Msg("Shutting down drive import server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := a.Shutdown(time.Minute); err != nil {
		logger.Log.Warn().Err(err).Msg("Ingest pool did not drain")
	}
}
