package models

import "time"

// DailyAverage holds the current mean price for one (source, UTC calendar day)
// pair. Rows are derived from readings and rewritten whenever the underlying
// day changes; uniqueness on (day, source) is enforced by the database.
//
// Day carries no time-of-day component: it is always midnight UTC.
type DailyAverage struct {
	ID           int64     `json:"id" example:"1"`
	Source       string    `json:"source" example:"external"`
	Day          time.Time `json:"date" example:"2025-09-20T00:00:00Z"`
	AveragePrice float64   `json:"average_price" example:"20.1234"`
}

// DayOf truncates t to its UTC calendar day (midnight UTC).
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
