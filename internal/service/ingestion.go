package service

import (
	"context"
	"time"

	"github.com/dmarkou/energypulse/internal/domain/models"
	"github.com/dmarkou/energypulse/internal/ingest"
	"github.com/dmarkou/energypulse/internal/storage"
)

// IngestionService defines the business operations exposed over HTTP.
// This decouples the handlers from the orchestrator and repository.
type IngestionService interface {
	Ingest(ctx context.Context, fromUTC, toUTC time.Time, source string) (inserted int, daysUpdated int, err error)
	ListReadings(ctx context.Context, source string, fromUTC, toUTC *time.Time) ([]models.Reading, error)
	ListDailyAverages(ctx context.Context, source string, from, to *time.Time) ([]models.DailyAverage, error)
}

type ingestionService struct {
	orchestrator *ingest.Service
	repo         storage.ReadingsRepository
}

// NewIngestionService wires the ingestion orchestrator and repository into
// the service layer.
func NewIngestionService(orchestrator *ingest.Service, repo storage.ReadingsRepository) IngestionService {
	return &ingestionService{orchestrator: orchestrator, repo: repo}
}

func (s *ingestionService) Ingest(ctx context.Context, fromUTC, toUTC time.Time, source string) (int, int, error) {
	return s.orchestrator.Ingest(ctx, fromUTC, toUTC, source)
}

func (s *ingestionService) ListReadings(ctx context.Context, source string, fromUTC, toUTC *time.Time) ([]models.Reading, error) {
	return s.repo.ListReadings(ctx, source, fromUTC, toUTC)
}

func (s *ingestionService) ListDailyAverages(ctx context.Context, source string, from, to *time.Time) ([]models.DailyAverage, error) {
	return s.repo.ListDailyAverages(ctx, source, from, to)
}
