// Command transcriptd serves YouTube video transcripts over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transcriptd/config"
	txhttp "transcriptd/http"
	"transcriptd/metrics"
	"transcriptd/retry"
	"transcriptd/server"
	"transcriptd/transcript"
	"transcriptd/youtube"
)

const serviceName = "transcript-service"

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("service starting",
		slog.String("service", serviceName),
		slog.Int("port", cfg.Server.Port),
		slog.Int("retry_attempts", cfg.Retry.MaxAttempts),
		slog.Float64("provider_rps", cfg.Provider.RPS),
		slog.Bool("data_api_enabled", cfg.Provider.APIKey != ""),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appMetrics := metrics.New()

	httpClient := txhttp.New(&txhttp.Config{
		Timeout: time.Duration(cfg.Provider.RequestTimeout) * time.Second,
		Headers: txhttp.DefaultHeaderConfig(),
		RateLimiter: txhttp.RateLimiterConfig{
			RPS:                  cfg.Provider.RPS,
			EnableDynamicBackoff: cfg.Provider.EnableDynamicBackoff,
		},
		CircuitBreaker: txhttp.DefaultCircuitBreakerConfig(),
		Transport:      txhttp.DefaultTransportConfig(),
	})
	defer httpClient.Close()

	provider := youtube.NewClient(httpClient)

	retryCfg := retry.Config{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: time.Duration(cfg.Retry.InitialBackoff) * time.Second,
		MaxBackoff:     time.Duration(cfg.Retry.MaxBackoff) * time.Second,
		Multiplier:     cfg.Retry.Multiplier,
		Jitter:         time.Duration(cfg.Retry.Jitter) * time.Second,
	}

	serviceOpts := []transcript.Option{
		transcript.WithRetryConfig(retryCfg),
		transcript.WithLogger(logger),
		transcript.WithMetrics(appMetrics),
	}

	if cfg.Provider.APIKey != "" {
		lister, err := youtube.NewAPILister(ctx, cfg.Provider.APIKey, provider, logger)
		if err != nil {
			logger.Error("failed to create data api lister, using player api only",
				slog.String("error", err.Error()),
			)
		} else {
			serviceOpts = append(serviceOpts, transcript.WithLister(lister))
			logger.Info("data api track listing enabled")
		}
	}

	svc := transcript.NewService(provider, serviceOpts...)

	httpServer := server.New(server.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}, svc, logger, appMetrics)

	httpServer.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("service started")

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error stopping http server", slog.String("error", err.Error()))
	}

	logger.Info("service stopped")
}

// initLogger creates the structured logger from logging configuration.
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	return slog.New(handler)
}
