// Package app wires the ingestion engine, its stores and the read side into
// one value shared by the binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/erpflow/internal/alerts"
	"github.com/andresuchdata/erpflow/internal/cache"
	"github.com/andresuchdata/erpflow/internal/classifier"
	"github.com/andresuchdata/erpflow/internal/config"
	"github.com/andresuchdata/erpflow/internal/leadtime"
	"github.com/andresuchdata/erpflow/internal/loader"
	"github.com/andresuchdata/erpflow/internal/pipeline"
	"github.com/andresuchdata/erpflow/internal/repository/postgres"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/andresuchdata/erpflow/internal/service"
	"github.com/andresuchdata/erpflow/internal/storage"
	"github.com/andresuchdata/erpflow/internal/transform"
	"github.com/rs/zerolog/log"
)

type App struct {
	Config *config.Config
	DB     *postgres.DB
	Rules  schema.Rules

	Journal      *pipeline.Repository
	Transformer  *transform.Transformer
	LeadTime     *leadtime.Refresher
	Alerts       *alerts.Detector
	Orchestrator *pipeline.Orchestrator
	Pool         *pipeline.Pool
	// Archive is nil when no object storage is configured.
	Archive      *storage.Archive
	Cache        cache.DashboardCache

	Uploads   *service.UploadService
	Analytics *service.AnalyticsService
}

// New builds the full stack on db. The pool is created but not started.
func New(ctx context.Context, cfg *config.Config, db *postgres.DB) (*App, error) {
	rules := cfg.Rules.Schema()
	a := &App{Config: cfg, DB: db, Rules: rules}

	a.Cache = newCache(ctx, cfg.Cache)

	archive, err := newArchive(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Archive = archive

	a.Journal = pipeline.NewRepository(db)
	a.Transformer = transform.New(db, rules, cfg.Ingest.MaxRowErrors)
	// v_current_stock reads dim_mvt directly, so seed it before the first upload.
	if err := a.Transformer.SeedDimensions(ctx); err != nil {
		log.Warn().Err(err).Msg("Static dimensions not seeded, the inventory transform will retry")
	}
	a.LeadTime = leadtime.NewRefresher(db, rules)
	a.Alerts = alerts.NewDetector(db, rules)

	ld := loader.New(postgres.NewRawStore(db), loader.Config{
		BatchSize:     cfg.Ingest.BatchSize,
		MaxErrors:     cfg.Ingest.MaxRowErrors,
		RetryAttempts: cfg.Ingest.RetryAttempts,
		RetryBackoff:  cfg.Ingest.RetryBackoff,
	})

	a.Orchestrator = pipeline.NewOrchestrator(pipeline.Deps{
		Classifier:  classifier.Default(),
		Loader:      ld,
		Transformer: a.Transformer,
		LeadTime:    a.LeadTime,
		Alerts:      a.Alerts,
		Journal:     a.Journal,
		Cache:       a.Cache,
	})

	poolCfg := pipeline.DefaultConfig()
	if cfg.Ingest.WorkerCount > 0 {
		poolCfg.WorkerCount = cfg.Ingest.WorkerCount
	}
	if cfg.Ingest.QueueSize > 0 {
		poolCfg.QueueSize = cfg.Ingest.QueueSize
	}
	if cfg.Ingest.JobTimeout > 0 {
		poolCfg.JobTimeout = cfg.Ingest.JobTimeout
	}

	// nil pointers must not reach the interfaces below
	var (
		poolArchive pipeline.Archive
		archiver    service.Archiver
	)
	if archive != nil {
		poolArchive, archiver = archive, archive
	}
	a.Pool = pipeline.NewPool(a.Orchestrator, a.Journal, poolArchive, poolCfg)

	a.Uploads = service.NewUploadService(a.Journal, a.Pool, archiver, cfg.App.UploadDir)
	a.Analytics = service.NewAnalyticsService(postgres.NewAnalyticsRepository(db), a.Cache, rules.LowYieldPercent)
	return a, nil
}

// Health pings the warehouse.
func (a *App) Health(ctx context.Context) error {
	return a.DB.PingContext(ctx)
}

// Shutdown drains the pool within timeout.
func (a *App) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.Pool.Shutdown(ctx)
}

func newCache(ctx context.Context, cfg config.CacheConfig) cache.DashboardCache {
	c, err := cache.NewDashboardCache(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Dashboard cache unavailable, serving uncached")
		return cache.NewNoopDashboardCache()
	}
	return c
}

func newArchive(ctx context.Context, cfg *config.Config) (*storage.Archive, error) {
	if cfg.Storage.Endpoint == "" {
		log.Info().Msg("Object storage not configured, uploads will not be archived")
		return nil, nil
	}
	client, err := storage.NewMinioClient(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	return storage.NewArchive(client, cfg.Storage.Prefix, cfg.App.UploadDir), nil
}
