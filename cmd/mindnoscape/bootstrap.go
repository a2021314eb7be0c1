package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"mindnoscape/editor/internal/config"
	"mindnoscape/editor/internal/data"
	"mindnoscape/editor/internal/editor"
	"mindnoscape/editor/internal/event"
	"mindnoscape/editor/internal/expand"
	"mindnoscape/editor/internal/generate"
	"mindnoscape/editor/internal/layout"
	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
	"mindnoscape/editor/internal/server"
	"mindnoscape/editor/internal/session"
	"mindnoscape/editor/internal/storage"
)

const expandConcurrency = 4

// app holds every long-lived component of a running process.
type app struct {
	cfg       *model.Config
	logger    *log.Logger
	store     storage.DocumentStore
	events    *event.EventManager
	mindmaps  *data.MindmapManager
	generator generate.Generator
	metrics   *server.Metrics
	sessions  *session.SessionManager
}

// loadConfig reads the configuration file, creating it with defaults on first run.
func loadConfig(path string) (*model.Config, error) {
	config.SetPath(path)
	if err := config.ConfigLoad(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return config.ConfigGet(), nil
}

// bootstrap initializes config, logger, storage, the data manager and the
// session manager, in that order. On error everything opened so far is closed.
func bootstrap(ctx context.Context, configPath string) (a *app, err error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	level, err := log.ParseLevel(cfg.Logs.Level)
	if err != nil {
		return nil, err
	}
	logger, err := log.NewLogger(cfg.Logs, level)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			logger.Error(ctx, "Bootstrap failed", log.Fields{"error": err})
			a.Close()
			a = nil
		}
	}()
	logger.Info(ctx, "Application started", log.Fields{"config": config.Path(), "database": cfg.Database.Type})

	a.store, err = storage.NewStore(cfg.Database, logger)
	if err != nil {
		return a, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info(ctx, "Storage initialized", nil)

	factory, err := model.NewFactory(cfg, logger)
	if err != nil {
		return a, fmt.Errorf("failed to initialize node factory: %w", err)
	}
	a.events = event.NewEventManager(logger)

	a.mindmaps, err = data.NewMindmapManager(a.store, factory, a.events, cfg.Editor, logger)
	if err != nil {
		return a, fmt.Errorf("failed to initialize data manager: %w", err)
	}
	logger.Info(ctx, "Data manager initialized", nil)

	a.metrics = server.NewMetrics()
	gen, err := newGenerator(ctx, cfg.Generator, logger)
	if err != nil {
		return a, err
	}
	a.generator = a.metrics.Instrument(gen)
	expander, err := expand.NewExpander(a.generator, factory, a.events, cfg.Generator.Count, logger)
	if err != nil {
		return a, fmt.Errorf("failed to initialize expander: %w", err)
	}

	var engine *layout.Engine
	if cfg.Editor.AutoLayout {
		engine = layout.NewEngine(layout.Config{
			HorizontalSpacing:  cfg.Editor.HorizontalSpacing,
			MinVerticalSpacing: cfg.Editor.MinVerticalSpacing,
			OriginX:            cfg.Editor.OriginX,
			OriginY:            cfg.Editor.OriginY,
		})
	}

	a.sessions, err = session.NewSessionManager(&session.Services{
		Mindmaps:          a.mindmaps,
		Factory:           factory,
		Reducer:           editor.NewReducer(factory, engine),
		Events:            a.events,
		Expander:          expander,
		Recorder:          a.metrics,
		MaxHistory:        cfg.Editor.MaxHistory,
		ExpandConcurrency: expandConcurrency,
	}, logger)
	if err != nil {
		return a, fmt.Errorf("failed to initialize session manager: %w", err)
	}
	logger.Info(ctx, "Session manager initialized", nil)
	return a, nil
}

// newGenerator builds the configured provider. A remote provider without a
// key degrades to the offline generator; a configured one falls back to it
// on failure.
func newGenerator(ctx context.Context, cfg model.GeneratorConfig, logger *log.Logger) (generate.Generator, error) {
	apiKey := ""
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
	}
	g, err := generate.New(ctx, cfg, apiKey, logger)
	if errors.Is(err, generate.ErrNoAPIKey) {
		logger.Warn(ctx, "No API key for generator, using offline suggestions", log.Fields{
			"provider": cfg.Provider,
			"env":      cfg.APIKeyEnv,
		})
		return generate.NewStatic(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	if g.Name() == "static" {
		return g, nil
	}
	return generate.NewFallback(g, generate.NewStatic(), logger), nil
}

// Close shuts components down in reverse order. Pending autosaves finish
// before the store is closed.
func (a *app) Close() {
	ctx := context.Background()
	if a.sessions != nil {
		a.sessions.Close()
	}
	if a.events != nil {
		a.events.Wait()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error(ctx, "Failed to close storage", log.Fields{"error": err})
		}
	}
	a.logger.Info(ctx, "Application shutting down", nil)
	if err := a.logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close logger: %v\n", err)
	}
}
