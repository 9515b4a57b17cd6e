package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/andresuchdata/bakeplan/internal/service"
	"github.com/gin-gonic/gin"
)

type ForecastService interface {
	Generate(ctx context.Context, req service.GenerateRequest) (*domain.ForecastBatchResult, error)
	List(ctx context.Context, date time.Time, marketID string) ([]domain.ProductionForecast, error)
	DeleteForDate(ctx context.Context, date time.Time, marketID string, confirmed bool) (int64, error)
}

type ForecastHandler struct {
	service ForecastService
}

func NewForecastHandler(service ForecastService) *ForecastHandler {
	return &ForecastHandler{service: service}
}

type generateBody struct {
	Date         string   `json:"date" binding:"required"`
	MarketID     string   `json:"market_id"`
	ProductIDs   []string `json:"product_ids"`
	Weather      string   `json:"weather"`
	ServiceLevel float64  `json:"service_level"`
}

// Generate forecasts a day's production. The response carries per-SKU
// outcomes; SKUs that failed do not fail the request.
func (h *ForecastHandler) Generate(c *gin.Context) {
	var body generateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	date, err := parseDate(body.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date", "details": err.Error()})
		return
	}

	req := service.GenerateRequest{
		Date:         date,
		MarketID:     strings.TrimSpace(body.MarketID),
		ProductIDs:   body.ProductIDs,
		ServiceLevel: body.ServiceLevel,
	}
	if body.Weather != "" {
		req.Weather = domain.ParseWeather(body.Weather)
	}

	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		respondError(c, "failed to generate forecasts", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ForecastHandler) List(c *gin.Context) {
	date, ok := requiredDate(c, "date")
	if !ok {
		return
	}

	forecasts, err := h.service.List(c.Request.Context(), date, strings.TrimSpace(c.Query("market_id")))
	if err != nil {
		respondError(c, "failed to fetch forecasts", err)
		return
	}
	if forecasts == nil {
		forecasts = []domain.ProductionForecast{}
	}

	c.JSON(http.StatusOK, gin.H{"items": forecasts, "total": len(forecasts)})
}

// Delete removes all forecasts for a date. It is irreversible and only runs
// with confirm=true.
func (h *ForecastHandler) Delete(c *gin.Context) {
	date, ok := requiredDate(c, "date")
	if !ok {
		return
	}

	deleted, err := h.service.DeleteForDate(c.Request.Context(), date,
		strings.TrimSpace(c.Query("market_id")), parseBool(c.Query("confirm")))
	if err != nil {
		respondError(c, "failed to delete forecasts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"date": date.Format(domain.DateLayout), "deleted": deleted})
}
