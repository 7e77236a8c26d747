// Command parley is a terminal chat client for OpenAI, Anthropic, Google, and
// self-hosted OpenAI-compatible models.
//
// Usage:
//
//	parley [flags]
//
// Flags:
//
//	--config string        Path to the settings file (default "parley.yaml")
//	--model string         Model ID (default: last used model)
//	--log string           Chat log to open
//	--log-level string     Log level: debug, info, warn, error
//	--metrics-addr string  Listen address for the Prometheus /metrics endpoint
//
// API keys are read from the settings file, overridden by OPENAI_API_KEY,
// OPENAI_ORG_ID, ANTHROPIC_API_KEY, and GEMINI_API_KEY when set.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/fwojciec/parley"
	"github.com/fwojciec/parley/clients"
	"github.com/fwojciec/parley/config"
	pjson "github.com/fwojciec/parley/json"
	"github.com/fwojciec/parley/observe"
	"github.com/fwojciec/parley/probe"
	"github.com/fwojciec/parley/tiktoken"
	flag "github.com/spf13/pflag"
)

const postQueueSize = 256

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "parley: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", "parley.yaml", "Path to the settings file")
		model       = flag.String("model", "", "Model ID (default: last used model)")
		logPath     = flag.String("log", "", "Chat log to open")
		logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error")
		metricsAddr = flag.String("metrics-addr", "", "Listen address for the Prometheus /metrics endpoint")
	)
	flag.Parse()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	cfg, err := config.LoadOrCreate(*configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv(os.Getenv)
	if *logLevel != "" {
		cfg.LogLevel = config.LogLevel(*logLevel)
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *model != "" {
		cfg.LastUsedModel = *model
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := observe.NewLogger(string(cfg.LogLevel), os.Stderr)
	slog.SetDefault(logger)

	var (
		dispatchOpts []parley.DispatcherOption
		trimOpts     = []parley.TrimmerOption{parley.WithTrimLogger(logger)}
	)
	if cfg.MetricsAddr != "" {
		shutdown, metrics, err := serveMetrics(cfg.MetricsAddr, logger)
		if err != nil {
			return err
		}
		defer shutdown()
		dispatchOpts = append(dispatchOpts, parley.WithRequestObserver(metrics))
		trimOpts = append(trimOpts, parley.WithTrimObserver(metrics))
	}

	counter, err := tiktoken.New(tiktoken.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("token counter: %w", err)
	}

	registry := parley.NewRegistry()
	if err := registry.SetServers(cfg.Servers()); err != nil {
		return err
	}
	resolver := clients.New(cfg.ClientCredentials(), clients.WithLogger(logger))

	loop := newMainLoop(postQueueSize)
	dispatcher := parley.NewDispatcher(loop.Poster(), append(dispatchOpts, parley.WithDispatchLogger(logger))...)
	pipeline := parley.NewPipeline(
		registry,
		counter,
		parley.NewAdapter(probe.New(), parley.WithAdapterLogger(logger)),
		resolver,
		dispatcher,
		parley.WithPipelineLogger(logger),
		parley.WithTrimmer(parley.NewTrimmer(counter, trimOpts...)),
	)

	appCfg := AppConfig{
		Model:        cfg.LastUsedModel,
		Generation:   cfg.GenerationParams(),
		SystemPrompt: cfg.SystemMessage,
		LogDir:       cfg.Paths.ChatLogs,
	}
	if *logPath != "" {
		conv, err := pjson.Load(*logPath)
		if err != nil {
			return err
		}
		appCfg.Conversation = &conv
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	app := NewApp(pipeline, registry, loop, os.Stdout, appCfg, logger)
	runErr := app.Run(ctx, os.Stdin, interrupts)

	backupOnExit(cfg.Paths.Backups, app.Conversation(), time.Now(), logger)

	cfg.LastUsedModel = app.Model()
	if err := config.Save(*configPath, cfg); err != nil {
		return errors.Join(runErr, fmt.Errorf("save settings: %w", err))
	}
	return runErr
}

// backupOnExit writes conv to a timestamped file in dir. Failures are logged.
func backupOnExit(dir string, conv parley.Conversation, now time.Time, logger *slog.Logger) string {
	path, err := pjson.Backup(dir, conv, now)
	if err != nil {
		logger.Error("backup chat log", "error", err)
		return ""
	}
	logger.Info("chat log backed up", "path", path)
	return path
}

// serveMetrics starts the Prometheus endpoint on addr.
func serveMetrics(addr string, logger *slog.Logger) (func(), *observe.Metrics, error) {
	provider, err := observe.InitProvider()
	if err != nil {
		return nil, nil, fmt.Errorf("metrics: %w", err)
	}
	metrics, err := observe.NewMetrics(provider.MeterProvider)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics: %w", err)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics: listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", provider.Handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		_ = provider.Shutdown(ctx)
	}, metrics, nil
}
