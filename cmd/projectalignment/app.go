package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/rbagg/ProjectAlignment/alignment"
	"github.com/rbagg/ProjectAlignment/artifact"
	"github.com/rbagg/ProjectAlignment/config"
	"github.com/rbagg/ProjectAlignment/critique"
	"github.com/rbagg/ProjectAlignment/impact"
	"github.com/rbagg/ProjectAlignment/llm"
	_ "github.com/rbagg/ProjectAlignment/llm/providers"
	"github.com/rbagg/ProjectAlignment/metrics"
	"github.com/rbagg/ProjectAlignment/model"
	"github.com/rbagg/ProjectAlignment/project"
	"github.com/rbagg/ProjectAlignment/version"
)

// App wires the NATS layer, stores, oracle client, and engine service
// into a running daemon.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// NATS
	embeddedServer *server.Server
	natsConn       *nats.Conn
	js             jetstream.JetStream

	// Oracle
	registry *model.Registry
	client   *llm.Client

	// Engine
	service *project.Service
	metrics *metrics.Metrics

	metricsServer *http.Server
	watcher       *fsnotify.Watcher
}

// NewApp creates the application from a validated configuration.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
	}, nil
}

// Start brings up NATS, the stores, the oracle client, and the service.
func (a *App) Start(ctx context.Context) error {
	if err := a.startNATS(); err != nil {
		return fmt.Errorf("start NATS: %w", err)
	}

	versions, err := version.NewStore(ctx, a.js)
	if err != nil {
		return fmt.Errorf("version store: %w", err)
	}
	suggestions, err := alignment.NewStore(ctx, a.js)
	if err != nil {
		return fmt.Errorf("suggestion store: %w", err)
	}
	projects, err := project.NewStore(ctx, a.js)
	if err != nil {
		return fmt.Errorf("project store: %w", err)
	}

	a.registry = model.NewRegistry(&a.cfg.Oracle.Registry)

	clientOpts := []llm.ClientOption{
		llm.WithLogger(a.logger),
		llm.WithObserver(func(obs llm.Observation) {
			a.metrics.ObserveOracleCall(obs.Capability, obs.Model, obs.Duration, obs.Err)
		}),
		llm.WithRetryConfig(a.retryConfig()),
	}
	if a.cfg.Oracle.RecordCalls {
		callLog, err := llm.NewCallLog(ctx, a.js)
		if err != nil {
			return fmt.Errorf("oracle call log: %w", err)
		}
		clientOpts = append(clientOpts, llm.WithCallLog(callLog))
	}
	a.client = llm.NewClient(a.registry, clientOpts...)

	engine := alignment.NewEngine(
		alignment.WithOracle(a.client.Bind(model.CapabilitySuggesting)),
		alignment.WithLogger(a.logger),
	)
	analyzer := impact.NewAnalyzer(
		impact.WithThreshold(a.cfg.Alignment.DriftThreshold),
		impact.WithOracle(a.client.Bind(model.CapabilityDescribing)),
		impact.WithLogger(a.logger),
	)
	generator := artifact.NewGenerator(
		artifact.WithDescribeOracle(a.client.Bind(model.CapabilityDescribing)),
		artifact.WithMessageOracle(a.client.Bind(model.CapabilityMessaging)),
		artifact.WithLogger(a.logger),
	)
	overlay := critique.NewOverlay(
		critique.WithOracle(a.client.Bind(model.CapabilityCritiquing)),
		critique.WithObserver(a.metrics.ObserveCritiqueLookup),
		critique.WithLogger(a.logger),
	)

	a.service = project.NewService(projects, versions, suggestions,
		project.WithEngine(engine),
		project.WithAnalyzer(analyzer),
		project.WithGenerator(generator),
		project.WithOverlay(overlay),
		project.WithMetrics(a.metrics),
		project.WithLogger(a.logger),
	)

	if a.cfg.Metrics.Listen != "" {
		a.startMetrics()
	}
	a.watchConfig(ctx)

	return nil
}

// Service returns the engine service.
func (a *App) Service() *project.Service {
	return a.service
}

func (a *App) retryConfig() llm.RetryConfig {
	maxAttempts, base, multiplier, max := a.cfg.RetryConfig()
	return llm.RetryConfig{
		MaxAttempts:       maxAttempts,
		BackoffBase:       base,
		BackoffMultiplier: multiplier,
		MaxBackoff:        max,
	}
}

func (a *App) startNATS() error {
	if a.cfg.NATS.URL != "" && !a.cfg.NATS.Embedded {
		conn, err := nats.Connect(a.cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		a.natsConn = conn
	} else {
		opts := &server.Options{
			Port:      -1,
			JetStream: true,
			StoreDir:  a.cfg.NATS.StoreDir,
			NoLog:     true,
			NoSigs:    true,
		}

		ns, err := server.NewServer(opts)
		if err != nil {
			return fmt.Errorf("create embedded NATS server: %w", err)
		}

		go ns.Start()

		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return fmt.Errorf("embedded NATS server failed to start")
		}
		a.embeddedServer = ns

		conn, err := nats.Connect(ns.ClientURL())
		if err != nil {
			ns.Shutdown()
			return fmt.Errorf("connect to embedded NATS: %w", err)
		}
		a.natsConn = conn
	}

	js, err := jetstream.New(a.natsConn)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	a.js = js
	return nil
}

func (a *App) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())

	a.metricsServer = &http.Server{
		Addr:    a.cfg.Metrics.Listen,
		Handler: mux,
	}
	go func() {
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics listener failed", "addr", a.cfg.Metrics.Listen, "error", err)
		}
	}()
}

// watchConfig re-merges the project config file into the running oracle
// registry when it changes. Connection and storage settings need a restart.
func (a *App) watchConfig(ctx context.Context) {
	loader := config.NewLoader(a.logger)
	path := loader.FindProjectConfig()
	if path == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		a.logger.Warn("config watch unavailable", "error", err)
		return
	}
	// Watch the directory: editors replace the file on save, which would
	// otherwise drop a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		a.logger.Warn("config watch unavailable", "path", path, "error", err)
		watcher.Close()
		return
	}
	a.watcher = watcher

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				a.reloadConfig(path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				a.logger.Warn("config watch error", "error", err)
			}
		}
	}()
}

func (a *App) reloadConfig(path string) {
	updated, err := config.LoadFromFile(path)
	if err != nil {
		a.logger.Warn("config reload failed", "path", path, "error", err)
		return
	}
	if err := updated.Validate(); err != nil {
		a.logger.Warn("config reload rejected", "path", path, "error", err)
		return
	}

	a.registry.Merge(&updated.Oracle.Registry)
	a.logger.Info("config reloaded", "path", path)
}

func (a *App) natsMode() string {
	if a.embeddedServer != nil {
		return "embedded"
	}
	return a.cfg.NATS.URL
}

// Shutdown stops the watcher, metrics listener, and NATS layer.
func (a *App) Shutdown(timeout time.Duration) {
	if a.watcher != nil {
		a.watcher.Close()
	}

	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics shutdown", "error", err)
		}
		cancel()
	}

	if a.natsConn != nil {
		a.natsConn.Drain()
		a.natsConn.Close()
	}
	if a.embeddedServer != nil {
		a.embeddedServer.Shutdown()
		a.embeddedServer.WaitForShutdown()
	}
}
