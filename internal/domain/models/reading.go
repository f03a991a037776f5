package models

import "time"

// Reading is a single timestamped price observation pulled from an external
// provider. Identity is the pair (Source, TimestampUTC); readings are never
// updated after insertion, only inserted.
type Reading struct {
	ID           int64     `json:"id" example:"1"`
	Source       string    `json:"source" example:"external"`
	TimestampUTC time.Time `json:"timestamp_utc" example:"2025-09-20T13:00:00Z"`
	Price        float64   `json:"price" example:"102.5"`
}
