// Package main is the entry point for the ultracache operational harness.
//
// Collaborating services embed pkg/cache as a library; this binary exists
// to run the cache standalone for operations work: health probing, live
// stats, Prometheus metrics and config-reload verification.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/comuniza/ultracache/pkg/cache"
	"github.com/comuniza/ultracache/pkg/config"
	"github.com/comuniza/ultracache/pkg/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)
	tracerShutdown := initTracer(cfg, logger)

	svc, err := cache.New(&cfg.Cache, logger)
	if err != nil {
		logger.Fatal("failed to initialize cache service", observability.Error(err))
	}

	maintainer := cache.NewMaintainer(svc, cfg.Cache.Sweeper, cfg.Cache.Warmer, logger)
	maintainer.Start()

	server := newOpsServer(cfg.Server.Addr, svc, logger)
	go func() {
		logger.Info("ops server listening", observability.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("ops server failed", observability.Error(err))
		}
	}()

	watcher := startConfigWatcher(context.Background(), flags.configPath, svc, logger)

	waitForShutdown(logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			logger.Warn("config watcher stop failed", observability.Error(err))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops server shutdown incomplete", observability.Error(err))
	}
	maintainer.Stop()
	if err := svc.Close(); err != nil {
		logger.Warn("cache close failed", observability.Error(err))
	}
	tracerShutdown(shutdownCtx)
	logger.Info("shutdown complete")
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("ULTRACACHE_CONFIG_PATH", "configs/ultracache.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("ULTRACACHE_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("ULTRACACHE_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("ultracache version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting ultracache",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	if err := config.Validate(cfg); err != nil {
		logger.Fatal("invalid configuration", observability.Error(err))
	}

	return cfg
}

// initTracer sets up distributed tracing when enabled, returning a shutdown
// function that is safe to call unconditionally.
func initTracer(cfg *config.Config, logger observability.Logger) func(context.Context) {
	if !cfg.Tracing.Enabled {
		return func(context.Context) {}
	}

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  "ultracache",
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		Enabled:      true,
	})
	if err != nil {
		logger.Warn("tracing disabled, exporter init failed", observability.Error(err))
		return func(context.Context) {}
	}

	logger.Info("tracing enabled",
		observability.String("endpoint", cfg.Tracing.OTLPEndpoint))
	return func(ctx context.Context) {
		if err := tracer.Shutdown(ctx); err != nil {
			logger.Warn("tracer shutdown failed", observability.Error(err))
		}
	}
}

// startConfigWatcher begins watching the config file, applying segment
// policy changes on reload. A watcher failure is logged, never fatal: the
// service keeps running with its startup configuration.
func startConfigWatcher(ctx context.Context, configPath string, svc *cache.Service, logger observability.Logger) *config.Watcher {
	watcher, err := config.NewWatcher(configPath, func(cfg *config.Config) {
		svc.ApplySegments(cfg.Cache.Segments)
	}, config.WithLogger(logger))
	if err != nil {
		logger.Warn("config watcher not created", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		logger.Warn("config watcher not started", observability.Error(err))
		return nil
	}
	return watcher
}

// waitForShutdown blocks until SIGINT or SIGTERM.
func waitForShutdown(logger observability.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutdown signal received", observability.String("signal", sig.String()))
}
