package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/gin-gonic/gin"
)

type AccuracyService interface {
	Comparisons(ctx context.Context, date time.Time, marketID string) ([]domain.ComparisonRecord, error)
	Analyze(ctx context.Context, filter domain.AnalysisFilter) (*domain.AccuracyAnalysisResult, error)
	Recommendations(ctx context.Context, filter domain.AnalysisFilter) ([]domain.Recommendation, error)
}

type AccuracyHandler struct {
	service AccuracyService
	now     func() time.Time
}

func NewAccuracyHandler(service AccuracyService) *AccuracyHandler {
	return &AccuracyHandler{service: service, now: time.Now}
}

func (h *AccuracyHandler) GetComparisons(c *gin.Context) {
	date, ok := requiredDate(c, "date")
	if !ok {
		return
	}

	records, err := h.service.Comparisons(c.Request.Context(), date, strings.TrimSpace(c.Query("market_id")))
	if err != nil {
		respondError(c, "failed to fetch comparisons", err)
		return
	}

	pending := 0
	for _, r := range records {
		if r.IsPending() {
			pending++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"date":    date.Format(domain.DateLayout),
		"items":   records,
		"total":   len(records),
		"pending": pending,
	})
}

func (h *AccuracyHandler) GetAnalysis(c *gin.Context) {
	filter, ok := parseAnalysisFilter(c, h.now())
	if !ok {
		return
	}

	result, err := h.service.Analyze(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "failed to analyze accuracy", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *AccuracyHandler) GetRecommendations(c *gin.Context) {
	filter, ok := parseAnalysisFilter(c, h.now())
	if !ok {
		return
	}

	recs, err := h.service.Recommendations(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "failed to build recommendations", err)
		return
	}
	if recs == nil {
		recs = []domain.Recommendation{}
	}

	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}
