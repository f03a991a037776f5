package extapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Reading is the canonical shape a raw provider record is normalized into.
// Timestamps are always UTC.
type Reading struct {
	TimestampUTC time.Time
	Price        float64
}

// The provider does not guarantee stable field names. Each logical field has
// an ordered list of accepted names, tried in priority order; lookup is
// case-insensitive (keys are lowercased before probing).
var (
	timestampFields = []string{"timestamp", "timestamp_utc", "timestamputc", "datetime", "date", "time"}
	priceFields     = []string{"price", "value", "mcp", "amount"}
)

// Timestamp layouts accepted for string values. Layouts without an explicit
// offset are interpreted as UTC, never re-interpreted in another zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// decodeRecords extracts raw record objects from a provider payload.
//
// Two shapes are accepted:
//   - a bare JSON array of records
//   - a JSON object whose values are arrays of records (keys are iterated in
//     sorted order so output is deterministic)
//
// Anything else is a malformed payload and an error.
func decodeRecords(body []byte) ([]map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	if trimmed[0] == '[' {
		var records []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode array payload: %w", err)
		}
		return records, nil
	}

	var grouped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &grouped); err != nil {
		return nil, fmt.Errorf("decode object payload: %w", err)
	}

	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var records []map[string]json.RawMessage
	for _, k := range keys {
		var chunk []map[string]json.RawMessage
		if err := json.Unmarshal(grouped[k], &chunk); err != nil {
			return nil, fmt.Errorf("decode object payload: key %q is not an array of records: %w", k, err)
		}
		records = append(records, chunk...)
	}
	return records, nil
}

// parseRecord normalizes one raw record into a Reading.
//
// Returns ok=false when either logical field is missing or unparseable; such
// records are dropped silently by the caller (the provider's observed
// tolerance policy), never treated as a fetch failure.
func parseRecord(rec map[string]json.RawMessage) (Reading, bool) {
	lower := make(map[string]json.RawMessage, len(rec))
	for k, v := range rec {
		lower[strings.ToLower(k)] = v
	}

	ts, ok := pickTimestamp(lower)
	if !ok {
		return Reading{}, false
	}
	price, ok := pickPrice(lower)
	if !ok {
		return Reading{}, false
	}
	return Reading{TimestampUTC: ts, Price: price}, true
}

func pickTimestamp(rec map[string]json.RawMessage) (time.Time, bool) {
	for _, name := range timestampFields {
		raw, ok := rec[name]
		if !ok {
			continue
		}
		if ts, ok := parseTimestamp(raw); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

func pickPrice(rec map[string]json.RawMessage) (float64, bool) {
	for _, name := range priceFields {
		raw, ok := rec[name]
		if !ok {
			continue
		}
		if p, ok := parsePrice(raw); ok {
			return p, true
		}
	}
	return 0, false
}

// parseTimestamp accepts an ISO-8601 string or a Unix epoch in seconds
// (JSON number or numeric string). Naive strings are taken as UTC.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC(), true
		}
		return time.Time{}, false
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if secs, err := n.Int64(); err == nil {
			return time.Unix(secs, 0).UTC(), true
		}
	}
	return time.Time{}, false
}

// parsePrice accepts a JSON number or a numeric string.
func parsePrice(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// ParseReadings turns a raw provider payload into canonical readings,
// dropping individually malformed records. A structurally malformed payload
// is an error.
func ParseReadings(body []byte) ([]Reading, error) {
	records, err := decodeRecords(body)
	if err != nil {
		return nil, err
	}
	out := make([]Reading, 0, len(records))
	for _, rec := range records {
		if r, ok := parseRecord(rec); ok {
			out = append(out, r)
		}
	}
	return out, nil
}
