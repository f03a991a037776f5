package ingest

import "fmt"

// InvalidRangeError rejects a requested ingestion window before any network
// or storage I/O happens: inverted/empty bounds or a span over the configured
// maximum.
type InvalidRangeError struct {
	Reason string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: %s", e.Reason)
}
