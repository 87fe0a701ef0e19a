package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Daham-Mustaf/semantic-policy-generation/config"
	"github.com/Daham-Mustaf/semantic-policy-generation/generator"
	"github.com/Daham-Mustaf/semantic-policy-generation/llm"
	"github.com/Daham-Mustaf/semantic-policy-generation/model"
	"github.com/Daham-Mustaf/semantic-policy-generation/pipeline"
	"github.com/Daham-Mustaf/semantic-policy-generation/reasoner"
	"github.com/Daham-Mustaf/semantic-policy-generation/storage"
	"github.com/Daham-Mustaf/semantic-policy-generation/validator"
	"github.com/Daham-Mustaf/semantic-policy-generation/vocabulary/odrl"
)

// App wires the pipeline together from configuration.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// NATS (optional, for run records)
	natsConn *nats.Conn
	js       jetstream.JetStream
	store    *storage.Store

	// Oracle
	registry *model.Registry
	client   *llm.Client

	// Validation
	shapeStore   *validator.ShapeStore
	shapeWatcher *validator.ShapeWatcher

	// Pipeline
	pipeline *pipeline.Pipeline
}

// NewApp creates an application instance from loaded configuration.
func NewApp(cfg *config.Config) *App {
	return &App{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

// Start initializes all components.
func (a *App) Start(ctx context.Context) error {
	if err := a.startStorage(ctx); err != nil {
		return err
	}
	if err := a.startOracle(); err != nil {
		return err
	}
	if err := a.startValidation(ctx); err != nil {
		return err
	}

	metrics := pipeline.NewMetrics(prometheus.DefaultRegisterer)

	reason := reasoner.New(a.client, reasoner.WithLogger(a.logger))
	gen := generator.New(a.client, generator.WithLogger(a.logger))
	loop := pipeline.NewLoop(a.client, a.shapeStore,
		pipeline.WithMaxAttempts(a.cfg.Pipeline.MaxAttempts),
		pipeline.WithCheckTimeout(a.cfg.Pipeline.CheckTimeout),
		pipeline.WithLoopLogger(a.logger),
		pipeline.WithLoopMetrics(metrics))

	a.pipeline = pipeline.New(reason, gen, loop,
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(metrics),
		pipeline.WithProceedOnNeedsInput(a.cfg.Pipeline.ProceedOnNeedsInput))

	return nil
}

// Stop releases all resources.
func (a *App) Stop() {
	if a.shapeWatcher != nil {
		if err := a.shapeWatcher.Stop(); err != nil {
			a.logger.Warn("Failed to stop shapes watcher", "error", err)
		}
	}
	if a.natsConn != nil {
		a.natsConn.Close()
	}
}

// Pipeline returns the assembled pipeline.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Store returns the run record store, nil when NATS is not configured.
func (a *App) Store() *storage.Store {
	return a.store
}

// ShapeStore returns the active shapes store.
func (a *App) ShapeStore() *validator.ShapeStore {
	return a.shapeStore
}

// LoadVocabulary loads the per-run vocabulary from the configured path, or
// the path override when non-empty.
func (a *App) LoadVocabulary(override string) (*odrl.Vocabulary, error) {
	path := a.cfg.Vocabulary.Path
	if override != "" {
		path = override
	}
	if path == "" {
		return nil, fmt.Errorf("no vocabulary file configured (set vocabulary.path or pass --vocab)")
	}
	return odrl.LoadVocabulary(path)
}

func (a *App) startStorage(ctx context.Context) error {
	if a.cfg.NATS.URL == "" {
		a.logger.Debug("NATS not configured, run records disabled")
		return nil
	}

	conn, err := nats.Connect(a.cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	a.natsConn = conn

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("create JetStream context: %w", err)
	}
	a.js = js

	store, err := storage.NewStore(ctx, js, a.cfg.NATS.Bucket)
	if err != nil {
		conn.Close()
		return fmt.Errorf("initialize storage: %w", err)
	}
	a.store = store

	a.logger.Info("Run records enabled", "url", a.cfg.NATS.URL)
	return nil
}

func (a *App) startOracle() error {
	if a.cfg.Model.RegistryPath != "" {
		registry, err := model.LoadFromFile(a.cfg.Model.RegistryPath)
		if err != nil {
			return fmt.Errorf("load model registry: %w", err)
		}
		a.registry = registry
	} else {
		a.registry = model.NewLocalRegistry(a.cfg.Model.Default, a.cfg.Model.Endpoint)
	}

	opts := []llm.ClientOption{
		llm.WithLogger(a.logger),
		llm.WithHTTPClient(&http.Client{Timeout: a.cfg.Model.Timeout}),
	}
	if a.store != nil {
		opts = append(opts, llm.WithRecorder(a.store))
	}
	a.client = llm.NewClient(a.registry, opts...)
	return nil
}

func (a *App) startValidation(ctx context.Context) error {
	a.shapeStore = validator.NewShapeStore(validator.DefaultShapes())

	if a.cfg.Pipeline.ShapesPath == "" {
		return nil
	}

	if a.cfg.Pipeline.WatchShapes {
		watcher, err := validator.NewShapeWatcher(a.cfg.Pipeline.ShapesPath, a.shapeStore,
			validator.WithWatcherLogger(a.logger))
		if err != nil {
			return fmt.Errorf("watch shapes: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("start shapes watcher: %w", err)
		}
		a.shapeWatcher = watcher
		return nil
	}

	shapes, err := validator.LoadShapes(a.cfg.Pipeline.ShapesPath)
	if err != nil {
		return fmt.Errorf("load shapes: %w", err)
	}
	a.shapeStore.Replace(shapes)
	return nil
}

// loadApp loads configuration and starts an App for a command invocation.
func loadApp(ctx context.Context, configPath string) (*App, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.NewLoader(slog.Default()).Load()
		if err != nil {
			return nil, err
		}
	}

	app := NewApp(cfg)
	if err := app.Start(ctx); err != nil {
		return nil, err
	}
	return app, nil
}
