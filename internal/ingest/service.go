package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dmarkou/energypulse/internal/domain/models"
	"github.com/dmarkou/energypulse/internal/extapi"
	"github.com/dmarkou/energypulse/internal/logger"
	"github.com/dmarkou/energypulse/internal/storage"
)

// DefaultMaxSpanDays caps the requested window when no limit is configured.
const DefaultMaxSpanDays = 60

// Fetcher pulls raw readings from the external provider for a half-open
// UTC window.
type Fetcher interface {
	FetchReadings(ctx context.Context, fromUTC, toUTC time.Time) ([]extapi.Reading, error)
}

// Service drives the end-to-end ingestion pipeline: validate the window,
// fetch external data, dedupe against stored readings, persist new ones, and
// recompute the daily averages of every touched day.
type Service struct {
	fetcher Fetcher
	repo    storage.ReadingsRepository
	maxSpan time.Duration
}

// NewService builds the ingestion orchestrator. maxSpanDays <= 0 falls back
// to DefaultMaxSpanDays.
func NewService(fetcher Fetcher, repo storage.ReadingsRepository, maxSpanDays int) *Service {
	if maxSpanDays <= 0 {
		maxSpanDays = DefaultMaxSpanDays
	}
	return &Service{
		fetcher: fetcher,
		repo:    repo,
		maxSpan: time.Duration(maxSpanDays) * 24 * time.Hour,
	}
}

// Round4 rounds to 4 decimal places, half away from zero. Stored averages
// are reproducible only if every writer rounds the same way, so this is the
// single rounding point for the whole pipeline (it also matches what
// Postgres ROUND(numeric, 4) would produce).
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Ingest pulls external readings for [fromUTC, toUTC), stores the ones not
// already present, and recomputes the daily averages of every UTC calendar
// day touched by readings in the window.
//
// Returns (#readings inserted, #days whose average value actually changed).
// Re-running an identical window is a no-op and returns (0, 0).
//
// Errors: *InvalidRangeError before any I/O; *extapi.ServiceError when the
// provider fails; *storage.StorageError when persistence fails. On error no
// partial counts are reported and no partial state is committed.
func (s *Service) Ingest(ctx context.Context, fromUTC, toUTC time.Time, source string) (int, int, error) {
	fromUTC = fromUTC.UTC()
	toUTC = toUTC.UTC()

	if !fromUTC.Before(toUTC) {
		return 0, 0, &InvalidRangeError{Reason: "fromUtc must be earlier than toUtc"}
	}
	if toUTC.Sub(fromUTC) > s.maxSpan {
		return 0, 0, &InvalidRangeError{
			Reason: fmt.Sprintf("requested range is too large, max %d days", int(s.maxSpan.Hours()/24)),
		}
	}

	start := time.Now()
	log := logger.L().With().
		Str("source", source).
		Time("from_utc", fromUTC).
		Time("to_utc", toUTC).
		Logger()

	fetched, err := s.fetcher.FetchReadings(ctx, fromUTC, toUTC)
	if err != nil {
		var svcErr *extapi.ServiceError
		if !errors.As(err, &svcErr) {
			err = &extapi.ServiceError{Op: "fetch", Err: err}
		}
		return 0, 0, err
	}

	// One range read instead of per-record existence checks.
	existing, err := s.repo.ListReadingsInWindow(ctx, source, fromUTC, toUTC)
	if err != nil {
		return 0, 0, err
	}

	seen := make(map[int64]struct{}, len(existing))
	for _, r := range existing {
		seen[r.TimestampUTC.UnixNano()] = struct{}{}
	}

	// Stage fetched records not yet stored. The seen-set also guards against
	// duplicate timestamps inside the same fetch batch.
	var toInsert []models.Reading
	for _, f := range fetched {
		ts := f.TimestampUTC.UTC()
		if ts.Before(fromUTC) || !ts.Before(toUTC) {
			continue
		}
		key := ts.UnixNano()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		toInsert = append(toInsert, models.Reading{
			Source:       source,
			TimestampUTC: ts,
			Price:        f.Price,
		})
	}

	// Touched days come from ALL readings in range, not just new ones: a
	// prior overlapping call may have populated a day this call must still
	// reconcile.
	touched := make(map[time.Time]struct{})
	for _, r := range existing {
		touched[models.DayOf(r.TimestampUTC)] = struct{}{}
	}
	for _, r := range toInsert {
		touched[models.DayOf(r.TimestampUTC)] = struct{}{}
	}
	if len(touched) == 0 {
		log.Info().Int("fetched", len(fetched)).Msg("ingest: window empty")
		return 0, 0, nil
	}

	days := make([]time.Time, 0, len(touched))
	for d := range touched {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	averages, err := s.recomputeAverages(ctx, source, days, toInsert)
	if err != nil {
		return 0, 0, err
	}

	if len(toInsert) == 0 && len(averages) == 0 {
		log.Info().Int("fetched", len(fetched)).Dur("elapsed", time.Since(start)).Msg("ingest: nothing to apply")
		return 0, 0, nil
	}

	inserted, daysUpdated, err := s.repo.ApplyIngestion(ctx, toInsert, averages)
	if err != nil {
		return 0, 0, err
	}

	log.Info().
		Int("fetched", len(fetched)).
		Int("inserted", inserted).
		Int("days_updated", daysUpdated).
		Dur("elapsed", time.Since(start)).
		Msg("ingest: done")
	return inserted, daysUpdated, nil
}

// recomputeAverages computes the fresh mean for each touched day and returns
// only rows whose value differs from what is stored (or that do not exist
// yet). A full per-day recomputation over every reading on the day avoids
// drift from incremental running averages.
func (s *Service) recomputeAverages(ctx context.Context, source string, days []time.Time, staged []models.Reading) ([]models.DailyAverage, error) {
	// One range read spanning all touched days. Readings on a touched day
	// but outside the requested window still count toward that day's mean.
	spanFrom := days[0]
	spanTo := days[len(days)-1].AddDate(0, 0, 1)

	stored, err := s.repo.ListReadingsInWindow(ctx, source, spanFrom, spanTo)
	if err != nil {
		return nil, err
	}

	type acc struct {
		sum   float64
		count int
	}
	sums := make(map[time.Time]*acc, len(days))
	for _, d := range days {
		sums[d] = &acc{}
	}

	add := func(r models.Reading) {
		if a, ok := sums[models.DayOf(r.TimestampUTC)]; ok {
			a.sum += r.Price
			a.count++
		}
	}
	for _, r := range stored {
		add(r)
	}
	// Staged readings are not in the store yet but will be by the time the
	// averages land (same transaction).
	for _, r := range staged {
		add(r)
	}

	current, err := s.repo.GetDailyAveragesForDays(ctx, source, days)
	if err != nil {
		return nil, err
	}
	existing := make(map[time.Time]float64, len(current))
	for _, a := range current {
		existing[a.Day] = a.AveragePrice
	}

	var out []models.DailyAverage
	for _, d := range days {
		a := sums[d]
		if a.count == 0 {
			continue
		}
		avg := Round4(a.sum / float64(a.count))
		if prev, ok := existing[d]; ok && prev == avg {
			// Unchanged day: skip the write so identical re-runs report 0.
			continue
		}
		out = append(out, models.DailyAverage{
			Source:       source,
			Day:          d,
			AveragePrice: avg,
		})
	}
	return out, nil
}
