package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/dmarkou/energypulse/config"
	"github.com/dmarkou/energypulse/internal/api"
	"github.com/dmarkou/energypulse/internal/extapi"
	"github.com/dmarkou/energypulse/internal/ingest"
	"github.com/dmarkou/energypulse/internal/service"
	"github.com/dmarkou/energypulse/internal/storage"
)

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Connects to PostgreSQL using InitPostgres().
//   - Initializes the repository layer (ReadingsRepository).
//   - Builds the external provider client and ingestion orchestrator.
//   - Creates the HTTP handler layer and configures the Gin router.
//   - Registers health and readiness probes.
//   - Provides a cleanup function to close resources (e.g., DB connection).
//
// Returns:
//   - *gin.Engine: the configured Gin HTTP router.
//   - func(): cleanup function to be executed on shutdown.
//   - error: any initialization error that occurred.
func InitializeApp() (*gin.Engine, func(), error) {
	// Load global configuration
	cfg := config.AppConfig

	// Connect to PostgreSQL
	// indirection for unit testing
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	// Repository layer (DB access)
	repo := storage.NewReadingsRepository(db)

	// External provider client and ingestion orchestrator
	client := extapi.NewClient(cfg.ExternalAPI)
	orchestrator := ingest.NewService(client, repo, cfg.Ingest.MaxSpanDays)

	// Service layer (business logic)
	svc := service.NewIngestionService(orchestrator, repo)

	// HTTP handler layer (business logic to HTTP mapping)
	handler := api.NewHandler(svc, cfg.Ingest.DefaultSource)

	// Setup Gin router with routes
	router := api.NewRouter(handler)

	// Register health and readiness probes
	healthHandler := api.NewHealthHandler(db.Ping)
	healthHandler.Register(router)

	// Cleanup resources on shutdown
	cleanup := func() {
		_ = db.Close()
	}

	return router, cleanup, nil
}
