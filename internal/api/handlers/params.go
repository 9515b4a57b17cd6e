package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

// requiredDate reads a YYYY-MM-DD query parameter and writes a 400 when it
// is missing or malformed.
func requiredDate(c *gin.Context, param string) (time.Time, bool) {
	value := strings.TrimSpace(c.Query(param))
	if value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": param + " parameter is required"})
		return time.Time{}, false
	}
	t, err := parseDate(value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param, "details": err.Error()})
		return time.Time{}, false
	}
	return t, true
}

// parseAnalysisFilter defaults to the trailing 30 days ending today.
func parseAnalysisFilter(c *gin.Context, now time.Time) (domain.AnalysisFilter, bool) {
	filter := domain.AnalysisFilter{
		To:       domain.DateOf(now),
		MarketID: strings.TrimSpace(c.Query("market_id")),
	}
	filter.From = filter.To.AddDate(0, 0, -29)

	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		t, ok := requiredDate(c, "to")
		if !ok {
			return filter, false
		}
		filter.To = t
		filter.From = t.AddDate(0, 0, -29)
	}
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		t, ok := requiredDate(c, "from")
		if !ok {
			return filter, false
		}
		filter.From = t
	}
	return filter, true
}

func parseBool(value string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && b
}

// respondError maps domain errors to client errors and everything else to 500.
func respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrConfirmationRequired):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidForecastInput),
		errors.Is(err, domain.ErrInsufficientHistory):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSourceNotConfigured):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}
