// Package app assembles the service from a merged configuration: registry,
// backend, model manager, file store, history journal, event broadcaster and
// the HTTP router.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"hdi1d/internal/common/fsutil"
	"hdi1d/internal/config"
	"hdi1d/internal/generation"
	"hdi1d/internal/history"
	"hdi1d/internal/httpapi"
	"hdi1d/internal/imaging"
	"hdi1d/internal/manager"
	"hdi1d/internal/registry"
)

type App struct {
	Config   config.Config
	Registry *registry.Registry
	Manager  *manager.Manager
	Handler  *generation.Handler
	Store    *imaging.Store
	// History is nil when history_db is unset.
	History *history.Store
	Events  *manager.Broadcaster
	Log     zerolog.Logger
}

// New validates cfg and wires every component. Nothing is loaded yet; the
// first generation or switch loads a variant.
func New(cfg config.Config, lg zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	reg, err := registry.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("variants: %w", err)
	}
	backend, err := manager.NewBackend(cfg, &lg)
	if err != nil {
		return nil, err
	}
	outDir, err := fsutil.ExpandHome(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	tmpDir, err := fsutil.ExpandHome(cfg.TempDir)
	if err != nil {
		return nil, err
	}
	store, err := imaging.NewStore(outDir, tmpDir)
	if err != nil {
		return nil, fmt.Errorf("output store: %w", err)
	}

	a := &App{Config: cfg, Registry: reg, Store: store, Events: manager.NewBroadcaster(), Log: lg}
	var rec generation.Recorder
	if cfg.HistoryDB != "" {
		p, err := fsutil.ExpandHome(cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		if a.History, err = history.Open(p); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		rec = a.History
	}

	a.Manager = manager.New(manager.Config{
		Registry:      reg,
		Backend:       backend,
		TextEncoder:   cfg.TextEncoder,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       time.Duration(cfg.MaxWaitSec) * time.Second,
		Publisher:     a.Events,
		Logger:        &lg,
	})
	a.Handler = generation.New(generation.Options{
		Models:    a.Manager,
		Store:     store,
		Recorder:  rec,
		Publisher: a.Events,
		Logger:    &lg,
	})
	lg.Info().Str("event", "app_ready").Str("backend", backend.Name()).Str("default_variant", reg.DefaultID()).
		Str("output_dir", store.OutputDir()).Str("temp_dir", store.TempDir()).Bool("history", a.History != nil).Msg("app")
	return a, nil
}

// HTTPHandler applies the HTTP settings from the config and returns the router.
func (a *App) HTTPHandler() http.Handler {
	cfg := a.Config
	httpapi.SetLogger(a.Log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetGenerateTimeout(time.Duration(cfg.GenerateTimeoutSec) * time.Second)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, cfg.CORSAllowedMethods, cfg.CORSAllowedHeaders)
	httpapi.SetSwaggerEnabled(cfg.Swagger)
	return httpapi.NewMux(httpapi.NewService(httpapi.Deps{
		Manager: a.Manager,
		Handler: a.Handler,
		History: a.History,
		Events:  a.Events,
	}))
}

// Close drains queued work, releases the pipeline and closes the journal.
func (a *App) Close(ctx context.Context) error {
	var errList []error
	if err := a.Manager.Shutdown(ctx); err != nil {
		errList = append(errList, err)
	}
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			errList = append(errList, fmt.Errorf("close history: %w", err))
		}
	}
	return errors.Join(errList...)
}
