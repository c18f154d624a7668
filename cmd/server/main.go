// Licensed to Wholesale Dashboard under one or more agreements.
// Wholesale Dashboard licenses this file to you under the Apache 2.0 License.
// See the LICENSE file in the project root for more information.

// Package main implements the Wholecell proxy server that injects server-held
// API credentials into requests made on behalf of the browser dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wholesale-dashboard/wholecell-proxy/internal/handler"
	"github.com/wholesale-dashboard/wholecell-proxy/internal/otelsetup"
	"github.com/wholesale-dashboard/wholecell-proxy/internal/wholecell"
)

// version is set at build time via -ldflags "-X main.version=v1.0.0".
var version = "dev"

// Config holds the server configuration read from the environment.
type Config struct {
	// AppID is the Wholecell application id (required).
	AppID string

	// AppSecret is the Wholecell application secret (required).
	AppSecret string

	// APIBase is the upstream inventory endpoint.
	APIBase string

	// Port is the HTTP listen port.
	Port int

	// Debug lowers the log level to debug.
	Debug bool
}

// loadConfig reads configuration from the given environment lookup function.
// It takes a lookup function rather than reading os.Environ directly so that
// tests can supply a fake environment.
func loadConfig(lookupEnv func(string) (string, bool)) (*Config, error) {
	getenv := func(key, fallback string) string {
		if v, ok := lookupEnv(key); ok && v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		AppID:     getenv("WHOLECELL_APP_ID", ""),
		AppSecret: getenv("WHOLECELL_APP_SECRET", ""),
		APIBase:   getenv("WHOLECELL_API_BASE", wholecell.DefaultBaseURL),
	}

	if cfg.AppID == "" || cfg.AppSecret == "" {
		return nil, errors.New("WHOLECELL_APP_ID and WHOLECELL_APP_SECRET must be set; copy .env.example to .env and fill in your credentials")
	}

	port, err := strconv.Atoi(getenv("PORT", "5001"))
	if err != nil || port <= 0 {
		return nil, fmt.Errorf("PORT must be a positive integer, got %q", getenv("PORT", "5001"))
	}
	cfg.Port = port

	debug, err := strconv.ParseBool(getenv("DEBUG", "false"))
	if err != nil {
		return nil, fmt.Errorf("DEBUG must be a boolean, got %q", getenv("DEBUG", "false"))
	}
	cfg.Debug = debug

	return cfg, nil
}

func main() {
	// Load .env file if present.
	_ = godotenv.Load()

	// Fail fast on configuration errors, before any listener binds.
	cfg, err := loadConfig(os.LookupEnv)
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := otelsetup.NewLogger(os.Stderr, level)
	slog.SetDefault(logger)

	// Set up OpenTelemetry.
	ctx := context.Background()
	otelShutdown, err := otelsetup.Setup(ctx, "wholecell-proxy", version)
	if err != nil {
		slog.Error("failed to set up OpenTelemetry", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Error("OpenTelemetry shutdown error", slog.String("error", err.Error()))
		}
	}()

	// Create the upstream client with the credential set loaded above.
	// The credentials are immutable for the process lifetime.
	client := wholecell.NewHTTPClient(
		wholecell.Credentials{AppID: cfg.AppID, AppSecret: cfg.AppSecret},
		wholecell.WithBaseURL(cfg.APIBase),
		wholecell.WithLogger(logger),
	)

	h := handler.New(client, handler.Info{
		Version:             version,
		APIBase:             cfg.APIBase,
		AppIDConfigured:     cfg.AppID != "",
		AppSecretConfigured: cfg.AppSecret != "",
	}, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: h.Routes(),
	}

	// Graceful shutdown: listen for SIGINT and SIGTERM.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server starting",
			slog.Int("port", cfg.Port),
			slog.String("api_base", cfg.APIBase),
			slog.Bool("app_id_configured", cfg.AppID != ""),
			slog.Bool("app_secret_configured", cfg.AppSecret != ""),
			slog.Bool("debug", cfg.Debug),
			slog.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	slog.Info("server stopped")
}
