package dto

import (
	"time"

	"github.com/dmarkou/energypulse/internal/domain/models"
)

// ReadingResponse is the API representation of a stored reading.
type ReadingResponse struct {
	ID           int64     `json:"id" example:"1"`
	Source       string    `json:"source" example:"external"`
	TimestampUTC time.Time `json:"timestamp_utc" example:"2025-09-20T13:00:00Z"`
	Price        float64   `json:"price" example:"102.5"`
}

// DailyAverageResponse is the API representation of a daily average row.
// Date is rendered as a calendar day without time-of-day.
type DailyAverageResponse struct {
	ID           int64   `json:"id" example:"1"`
	Source       string  `json:"source" example:"external"`
	Date         string  `json:"date" example:"2025-09-20"`
	AveragePrice float64 `json:"average_price" example:"20.1234"`
}

// ToReadingResponses maps model readings to their API shape.
func ToReadingResponses(readings []models.Reading) []ReadingResponse {
	out := make([]ReadingResponse, 0, len(readings))
	for _, r := range readings {
		out = append(out, ReadingResponse{
			ID:           r.ID,
			Source:       r.Source,
			TimestampUTC: r.TimestampUTC,
			Price:        r.Price,
		})
	}
	return out
}

// ToDailyAverageResponses maps model averages to their API shape.
func ToDailyAverageResponses(averages []models.DailyAverage) []DailyAverageResponse {
	out := make([]DailyAverageResponse, 0, len(averages))
	for _, a := range averages {
		out = append(out, DailyAverageResponse{
			ID:           a.ID,
			Source:       a.Source,
			Date:         a.Day.Format("2006-01-02"),
			AveragePrice: a.AveragePrice,
		})
	}
	return out
}
