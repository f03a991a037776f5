package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmarkou/energypulse/internal/domain/dto"
	"github.com/dmarkou/energypulse/internal/extapi"
	"github.com/dmarkou/energypulse/internal/ingest"
	"github.com/dmarkou/energypulse/internal/service"
	"github.com/dmarkou/energypulse/internal/storage"
)

// Handler provides HTTP handlers for ingestion and query endpoints.
//
// Responsibilities:
//   - Validate incoming HTTP query parameters
//   - Call the service layer
//   - Translate service results and errors into response DTOs / status codes
type Handler struct {
	svc           service.IngestionService
	defaultSource string
}

// NewHandler constructs a Handler. defaultSource is the source label applied
// when a request does not name one.
func NewHandler(svc service.IngestionService, defaultSource string) *Handler {
	if defaultSource == "" {
		defaultSource = "external"
	}
	return &Handler{svc: svc, defaultSource: defaultSource}
}

// instantLayouts are the accepted formats for from_utc/to_utc query
// parameters. Layouts without an offset are taken as UTC.
var instantLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseInstant(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range instantLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (h *Handler) source(c *gin.Context) string {
	if s := strings.TrimSpace(c.Query("source")); s != "" {
		return s
	}
	return h.defaultSource
}

// Ingest handles POST /api/v1/ingestion requests.
//
// Query Parameters:
//   - from_utc (string, optional): ISO-8601 instant; defaults to to_utc - 7 days.
//   - to_utc (string, optional): ISO-8601 instant; defaults to now.
//   - source (string, optional): source label; defaults to the configured one.
//
// Ingest godoc
// @Summary      Trigger ingestion
// @Description  Pulls external readings for [from_utc, to_utc), stores new ones, and recomputes affected daily averages
// @Tags         ingestion
// @Accept       json
// @Produce      json
// @Param        from_utc  query     string  false  "Window start (ISO-8601, inclusive)"  example(2025-09-20T00:00:00Z)
// @Param        to_utc    query     string  false  "Window end (ISO-8601, exclusive)"    example(2025-09-27T00:00:00Z)
// @Param        source    query     string  false  "Source label"                        example(external)
// @Success      200       {object}  dto.IngestResponse     "Success"
// @Failure      400       {object}  dto.ErrorResponse      "Invalid window"
// @Failure      502       {object}  dto.ErrorResponse      "External provider failure"
// @Failure      500       {object}  dto.ErrorResponse      "Storage failure"
// @Router       /api/v1/ingestion [post]
func (h *Handler) Ingest(c *gin.Context) {
	toUTC := time.Now().UTC()
	if s := c.Query("to_utc"); s != "" {
		parsed, err := parseInstant(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid to_utc format, expected ISO-8601", err))
			return
		}
		toUTC = parsed
	}

	fromUTC := toUTC.AddDate(0, 0, -7)
	if s := c.Query("from_utc"); s != "" {
		parsed, err := parseInstant(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid from_utc format, expected ISO-8601", err))
			return
		}
		fromUTC = parsed
	}

	inserted, daysUpdated, err := h.svc.Ingest(c.Request.Context(), fromUTC, toUTC, h.source(c))
	if err != nil {
		status, msg := ingestErrorStatus(err)
		c.JSON(status, dto.NewErrorResponse(msg, err))
		return
	}

	c.JSON(http.StatusOK, dto.IngestResponse{
		InsertedCount:    inserted,
		DaysUpdatedCount: daysUpdated,
		FromUTC:          fromUTC,
		ToUTC:            toUTC,
	})
}

// ingestErrorStatus maps the ingestion error taxonomy to HTTP statuses.
func ingestErrorStatus(err error) (int, string) {
	var rangeErr *ingest.InvalidRangeError
	if errors.As(err, &rangeErr) {
		return http.StatusBadRequest, "invalid ingestion window"
	}
	var svcErr *extapi.ServiceError
	if errors.As(err, &svcErr) {
		return http.StatusBadGateway, "failed to fetch readings from the external provider"
	}
	var storeErr *storage.StorageError
	if errors.As(err, &storeErr) {
		return http.StatusInternalServerError, "failed to persist ingestion results"
	}
	return http.StatusInternalServerError, "ingestion failed"
}

// GetReadings handles GET /api/v1/readings requests.
//
// GetReadings godoc
// @Summary      List readings
// @Description  Returns stored readings, optionally bounded by [from_utc, to_utc), ordered by timestamp ascending
// @Tags         readings
// @Produce      json
// @Param        from_utc  query     string  false  "Lower bound (ISO-8601, inclusive)"  example(2025-09-20T00:00:00Z)
// @Param        to_utc    query     string  false  "Upper bound (ISO-8601, exclusive)"  example(2025-09-27T00:00:00Z)
// @Param        source    query     string  false  "Source label"                       example(external)
// @Success      200       {array}   dto.ReadingResponse  "Success"
// @Failure      400       {object}  dto.ErrorResponse    "Bad Request"
// @Failure      500       {object}  dto.ErrorResponse    "Internal Error"
// @Router       /api/v1/readings [get]
func (h *Handler) GetReadings(c *gin.Context) {
	var fromUTC, toUTC *time.Time
	if s := c.Query("from_utc"); s != "" {
		parsed, err := parseInstant(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid from_utc format, expected ISO-8601", err))
			return
		}
		fromUTC = &parsed
	}
	if s := c.Query("to_utc"); s != "" {
		parsed, err := parseInstant(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid to_utc format, expected ISO-8601", err))
			return
		}
		toUTC = &parsed
	}

	readings, err := h.svc.ListReadings(c.Request.Context(), h.source(c), fromUTC, toUTC)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch readings", err))
		return
	}
	c.JSON(http.StatusOK, dto.ToReadingResponses(readings))
}

// GetDailyAverages handles GET /api/v1/averages requests.
//
// GetDailyAverages godoc
// @Summary      List daily averages
// @Description  Returns daily average rows, optionally bounded by inclusive [from, to] calendar days, ordered by date ascending
// @Tags         averages
// @Produce      json
// @Param        from    query     string  false  "Lower day bound (YYYY-MM-DD, inclusive)"  example(2025-09-20)
// @Param        to      query     string  false  "Upper day bound (YYYY-MM-DD, inclusive)"  example(2025-09-27)
// @Param        source  query     string  false  "Source label"                             example(external)
// @Success      200     {array}   dto.DailyAverageResponse  "Success"
// @Failure      400     {object}  dto.ErrorResponse         "Bad Request"
// @Failure      500     {object}  dto.ErrorResponse         "Internal Error"
// @Router       /api/v1/averages [get]
func (h *Handler) GetDailyAverages(c *gin.Context) {
	var from, to *time.Time
	if s := c.Query("from"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid from format, expected YYYY-MM-DD", err))
			return
		}
		from = &parsed
	}
	if s := c.Query("to"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid to format, expected YYYY-MM-DD", err))
			return
		}
		to = &parsed
	}

	averages, err := h.svc.ListDailyAverages(c.Request.Context(), h.source(c), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch daily averages", err))
		return
	}
	c.JSON(http.StatusOK, dto.ToDailyAverageResponses(averages))
}
