package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/maumercado/todo-client-go/internal/config"
	"github.com/maumercado/todo-client-go/internal/exporter"
	"github.com/maumercado/todo-client-go/internal/logger"
	"github.com/maumercado/todo-client-go/internal/metrics"
	"github.com/maumercado/todo-client-go/pkg/client"
)

func main() {
	flags := pflag.NewFlagSet("todo-exporter", pflag.ExitOnError)
	configFile := flags.String("config", "", "path to a config file")
	flags.String("api-url", "", "base URL of the todo API")
	flags.String("token", "", "bearer token used for scraping")
	flags.Duration("timeout", 0, "request timeout")
	flags.String("addr", "", "listen address")
	flags.Duration("interval", 0, "scrape interval")
	flags.String("log-level", "", "log level")
	flags.Bool("pretty", false, "human readable logs")
	_ = flags.Parse(os.Args[1:])

	// Load configuration
	cfg, err := config.LoadFrom(*configFile, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.LogLevel, cfg.LogPretty)

	log := logger.Get()
	log.Info().Msg("Starting todo exporter...")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	c, err := client.New(cfg.API.URL,
		client.WithTimeout(cfg.API.Timeout),
		client.WithUserAgent(cfg.API.UserAgent),
		client.WithLogger(logger.WithComponent("client")),
		client.WithMetrics(metrics.ClientRecorder{}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create client")
	}

	exp := exporter.New(c, cfg.API.Token, cfg.Exporter.Interval)

	httpServer := &http.Server{
		Addr:    cfg.Exporter.Addr,
		Handler: exporter.NewServer(exp, cfg.Metrics.Path),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go exp.Run(ctx)

	// Start HTTP server
	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Str("api_url", c.BaseURL()).
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down exporter...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Exporter.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Exporter stopped")
}
