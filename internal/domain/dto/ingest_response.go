package dto

import "time"

// IngestResponse is returned by POST /api/v1/ingestion.
//
// FromUTC/ToUTC echo the effective half-open window that was ingested,
// which matters when the caller omitted one or both bounds.
type IngestResponse struct {
	InsertedCount    int       `json:"inserted_count" example:"96"`
	DaysUpdatedCount int       `json:"days_updated_count" example:"4"`
	FromUTC          time.Time `json:"from_utc" example:"2025-09-20T00:00:00Z"`
	ToUTC            time.Time `json:"to_utc" example:"2025-09-27T00:00:00Z"`
}
