// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/bakeplan/internal/api/handlers"
	"github.com/andresuchdata/bakeplan/internal/api/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	ForecastService handlers.ForecastService
	AccuracyService handlers.AccuracyService
	IngestService   handlers.IngestService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.ForecastService != nil {
			forecastHandler := handlers.NewForecastHandler(services.ForecastService)
			forecastGroup := apiGroup.Group("/forecasts")
			{
				forecastGroup.POST("/generate", forecastHandler.Generate)
				forecastGroup.GET("", forecastHandler.List)
				forecastGroup.DELETE("", forecastHandler.Delete)
			}
		}

		if services.AccuracyService != nil {
			accuracyHandler := handlers.NewAccuracyHandler(services.AccuracyService)
			accuracyGroup := apiGroup.Group("/accuracy")
			{
				accuracyGroup.GET("/comparisons", accuracyHandler.GetComparisons)
				accuracyGroup.GET("/analysis", accuracyHandler.GetAnalysis)
				accuracyGroup.GET("/recommendations", accuracyHandler.GetRecommendations)
			}
		}

		if services.IngestService != nil {
			ingestHandler := handlers.NewIngestHandler(services.IngestService)
			ingestGroup := apiGroup.Group("/ingest")
			{
				ingestGroup.GET("/drive/files", ingestHandler.ListDriveFiles)
				ingestGroup.POST("/drive", ingestHandler.IngestDrive)
				ingestGroup.POST("/storage", ingestHandler.IngestStorage)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
