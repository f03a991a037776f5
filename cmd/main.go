package main

//
//  @title           energypulse API
//  @version         1.0
//  @description     Energy price ingestion & daily-average aggregation service.
//  @termsOfService  https://github.com/dmarkou/energypulse
//  @contact.name    API Support
//  @contact.url     https://github.com/dmarkou/energypulse
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        ingestion
//  @tag.description Endpoint for triggering windowed ingestion runs
//
//  @tag.name        readings
//  @tag.description Endpoints for querying stored price readings
//
//  @tag.name        averages
//  @tag.description Endpoints for querying daily average rollups
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmarkou/energypulse/config"
	_ "github.com/dmarkou/energypulse/docs" // swagger docs
	"github.com/dmarkou/energypulse/internal/app"
	"github.com/dmarkou/energypulse/internal/extapi"
	"github.com/dmarkou/energypulse/internal/ingest"
	"github.com/dmarkou/energypulse/internal/logger"
	"github.com/dmarkou/energypulse/internal/storage"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (e.g., DB connections).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// runIngest performs a single ingestion run against the configured external
// provider and database, used by the ingest mode.
func runIngest(ctx context.Context, fromStr, toStr, source string) error {
	cfg := config.AppConfig

	toUTC := time.Now().UTC()
	if toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return err
		}
		toUTC = parsed.UTC()
	}
	fromUTC := toUTC.AddDate(0, 0, -7)
	if fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return err
		}
		fromUTC = parsed.UTC()
	}
	if source == "" {
		source = cfg.Ingest.DefaultSource
	}

	db, err := app.InitPostgres(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	repo := storage.NewReadingsRepository(db)
	client := extapi.NewClient(cfg.ExternalAPI)
	orchestrator := ingest.NewService(client, repo, cfg.Ingest.MaxSpanDays)

	inserted, daysUpdated, err := orchestrator.Ingest(ctx, fromUTC, toUTC, source)
	if err != nil {
		return err
	}

	logger.L().Info().
		Int("inserted", inserted).
		Int("days_updated", daysUpdated).
		Time("from_utc", fromUTC).
		Time("to_utc", toUTC).
		Str("source", source).
		Msg("ingestion completed")
	return nil
}

// main is the entry point of the energypulse application.
//
// Modes (selected via --mode flag):
//   - ingest: Runs one ingestion pass for the requested window (default: last 7 days).
//   - api:    Starts the REST API exposing ingestion and query endpoints.
//
// Flags:
//   - --mode:   Execution mode ("ingest" or "api"). Default: "api".
//   - --from:   Window start for ingest mode (RFC3339). Default: to - 7 days.
//   - --to:     Window end for ingest mode (RFC3339). Default: now.
//   - --source: Source label for ingest mode. Defaults to config.
//   - --port:   Port for the API server. Defaults to value from config (SERVER_PORT).
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	// Parse CLI flags (override config defaults if provided)
	mode := flag.String("mode", "api", "Mode: ingest or api")
	from := flag.String("from", "", "Window start (RFC3339) for ingest mode")
	to := flag.String("to", "", "Window end (RFC3339) for ingest mode")
	source := flag.String("source", "", "Source label for ingest mode")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	switch *mode {
	case "ingest":
		// One-shot ingestion mode
		logger.L().Info().Msg("running ingestion")
		if err := runIngest(ctx, *from, *to, *source); err != nil {
			logger.L().Fatal().Err(err).Msg("ingestion failed")
		}

	case "api":
		// API mode: start the HTTP server
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
