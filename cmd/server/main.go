// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/bakeplan/internal/api"
	"github.com/andresuchdata/bakeplan/internal/cache"
	"github.com/andresuchdata/bakeplan/internal/config"
	"github.com/andresuchdata/bakeplan/internal/forecast"
	"github.com/andresuchdata/bakeplan/internal/ingest"
	"github.com/andresuchdata/bakeplan/internal/repository/postgres"
	"github.com/andresuchdata/bakeplan/internal/service"
	"github.com/andresuchdata/bakeplan/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := postgres.NewDB(connectCtx, &cfg.Database)
	cancelConnect()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	accuracyCache, err := cache.NewAccuracyCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Redis unavailable, accuracy cache disabled")
		accuracyCache = cache.NewNoopAccuracyCache()
	}

	forecastRepo := postgres.NewForecastRepository(db)
	salesRepo := postgres.NewSalesRepository(db)
	catalogRepo := postgres.NewCatalogRepository(db)
	weatherRepo := postgres.NewWeatherRepository(db)
	inventoryRepo := postgres.NewInventoryRepository(db)

	forecastService := service.NewForecastService(service.ForecastRepositories{
		Catalog:   catalogRepo,
		Sales:     salesRepo,
		Weather:   weatherRepo,
		Forecasts: forecastRepo,
	}, forecast.NewBuilder(cfg.Forecast.Params()), accuracyCache, service.ForecastOptions{
		Workers:         cfg.Forecast.Workers,
		FallbackEnabled: cfg.Forecast.FallbackEnabled,
	})

	accuracyService := service.NewAccuracyService(service.AccuracyRepositories{
		Forecasts: forecastRepo,
		Sales:     salesRepo,
		Inventory: inventoryRepo,
	}, accuracyCache, service.AccuracyOptions{
		Analysis:      cfg.Accuracy.AnalysisOptions(),
		PartitionDays: cfg.Accuracy.PartitionDays,
	})

	sources, err := service.OpenIngestSources(context.Background(), cfg.Storage, cfg.Drive)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Ingest sources unavailable, remote ingest disabled")
	}
	processor := ingest.NewProcessor(ingest.Repositories{
		Catalog:   catalogRepo,
		Sales:     salesRepo,
		Weather:   weatherRepo,
		Inventory: inventoryRepo,
	}, accuracyCache)
	ingestService := service.NewIngestService(processor, sources, service.IngestOptions{
		WorkDir:     cfg.Drive.DownloadDir,
		DriveFolder: cfg.Drive.FolderPath,
	})

	router := api.NewRouter(&api.Services{
		ForecastService: forecastService,
		AccuracyService: accuracyService,
		IngestService:   ingestService,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// In-flight requests get 5 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
