// Package app wires configuration into a ready engine, listing source and exporter.
// The CLI and the HTTP server share it.
package app

import (
	"context"

	"go.uber.org/zap"

	"crossmarket/adapters/export"
	"crossmarket/adapters/ingest"
	"crossmarket/adapters/markets"
	"crossmarket/adapters/storage"
	"crossmarket/core/engine"
	"crossmarket/core/pricing"
	"crossmarket/internal/config"
	"crossmarket/internal/errors"
	"crossmarket/internal/logging"
)

// App holds the wired components of one process
type App struct {
	Config   *config.Config
	Profiles *pricing.Profiles
	Engine   *engine.Orchestrator
	Source   ingest.Source
	Logger   *zap.Logger

	// History is nil when run history is disabled
	History storage.Store

	closers []func() error
}

// New validates cfg and wires profiles, engine and listing source
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	logger = logging.OrNop(logger)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	profiles, err := LoadProfiles(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Profiles: profiles,
		Engine:   engine.New(cfg.EngineOptions(profiles, logger)),
		Logger:   logger,
	}

	src, err := a.openSource(ctx)
	if err != nil {
		return nil, err
	}
	a.Source = src

	if err := a.openHistory(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// OpenHistory opens only the run history, for commands that never scan
func OpenHistory(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	store, err := storage.Open(ctx, storage.Backend(cfg.History.Backend), cfg.History.Location)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New(errors.TypeConfig, "run history is disabled: set history.backend")
	}
	return store, nil
}

func (a *App) openHistory(ctx context.Context) error {
	store, err := storage.Open(ctx, storage.Backend(a.Config.History.Backend), a.Config.History.Location)
	if err != nil {
		return err
	}
	if store != nil {
		a.History = store
		a.closers = append(a.closers, store.Close)
	}
	return nil
}

// Record saves res to the run history. Cached results and disabled history are ignored.
func (a *App) Record(ctx context.Context, res *engine.RunResult) error {
	if a.History == nil || res.FromCache {
		return nil
	}
	if err := a.History.Save(ctx, storage.NewRun(res)); err != nil {
		return err
	}
	a.Logger.Debug("run recorded", zap.String("run_id", res.RunID))
	return nil
}

// LoadProfiles reads the markets file, or returns the default profiles when none is set
func LoadProfiles(cfg *config.Config) (*pricing.Profiles, error) {
	if cfg.MarketsFile == "" {
		return pricing.DefaultProfiles(), nil
	}
	return markets.Load(cfg.MarketsFile)
}

func (a *App) openSource(ctx context.Context) (ingest.Source, error) {
	in := a.Config.Input
	switch {
	case in.DSN != "":
		query := in.Query
		if query == "" {
			query = ingest.DefaultQuery
		}
		src, err := ingest.Open(ctx, in.Driver, in.DSN, query, a.Logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, src.Close)
		return src, nil
	case len(in.Files) > 0:
		return ingest.NewCSVSource(a.Logger, in.Files...), nil
	default:
		return nil, errors.Input("no listing input configured: pass CSV files or a database DSN")
	}
}

// Exporter builds an exporter for dest, creating an S3 uploader only for s3:// destinations
func (a *App) Exporter(ctx context.Context, dest string) (*export.Exporter, error) {
	opts, err := a.Config.CSVOptions()
	if err != nil {
		return nil, err
	}

	var uploader export.Uploader
	if export.IsS3URL(dest) {
		u, err := export.NewS3Uploader(ctx, a.Config.Export.S3, a.Logger)
		if err != nil {
			return nil, err
		}
		uploader = u
	}

	return export.NewExporter(opts, uploader, a.Logger).WithTableLimit(a.Config.Export.TableLimit), nil
}

// Close releases database handles
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
