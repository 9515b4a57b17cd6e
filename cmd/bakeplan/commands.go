package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/bakeplan/internal/cache"
	"github.com/andresuchdata/bakeplan/internal/config"
	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/andresuchdata/bakeplan/internal/forecast"
	"github.com/andresuchdata/bakeplan/internal/ingest"
	"github.com/andresuchdata/bakeplan/internal/repository/postgres"
	"github.com/andresuchdata/bakeplan/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

type services struct {
	cfg       *config.Config
	forecasts *service.ForecastService
	accuracy  *service.AccuracyService
	ingest    *service.IngestService
	sources   service.IngestSources
}

func buildServices(c *cli.Context) (*services, error) {
	db, err := dbFrom(c)
	if err != nil {
		return nil, err
	}
	cfg := config.Load()

	accuracyCache, err := cache.NewAccuracyCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, accuracy cache disabled")
		accuracyCache = cache.NewNoopAccuracyCache()
	}

	catalogRepo := postgres.NewCatalogRepository(db)
	salesRepo := postgres.NewSalesRepository(db)
	weatherRepo := postgres.NewWeatherRepository(db)
	forecastRepo := postgres.NewForecastRepository(db)
	inventoryRepo := postgres.NewInventoryRepository(db)

	sources, err := service.OpenIngestSources(c.Context, cfg.Storage, cfg.Drive)
	if err != nil {
		log.Warn().Err(err).Msg("remote sources unavailable")
	}

	return &services{
		cfg: cfg,
		forecasts: service.NewForecastService(service.ForecastRepositories{
			Catalog:   catalogRepo,
			Sales:     salesRepo,
			Weather:   weatherRepo,
			Forecasts: forecastRepo,
		}, forecast.NewBuilder(cfg.Forecast.Params()), accuracyCache, service.ForecastOptions{
			Workers:         cfg.Forecast.Workers,
			FallbackEnabled: cfg.Forecast.FallbackEnabled,
		}),
		accuracy: service.NewAccuracyService(service.AccuracyRepositories{
			Forecasts: forecastRepo,
			Sales:     salesRepo,
			Inventory: inventoryRepo,
		}, accuracyCache, service.AccuracyOptions{
			Analysis:      cfg.Accuracy.AnalysisOptions(),
			PartitionDays: cfg.Accuracy.PartitionDays,
		}),
		ingest: service.NewIngestService(ingest.NewProcessor(ingest.Repositories{
			Catalog:   catalogRepo,
			Sales:     salesRepo,
			Weather:   weatherRepo,
			Inventory: inventoryRepo,
		}, accuracyCache), sources, service.IngestOptions{
			WorkDir:     cfg.Drive.DownloadDir,
			DriveFolder: cfg.Drive.FolderPath,
		}),
		sources: sources,
	}, nil
}

func parseDateFlag(c *cli.Context, name string) (time.Time, error) {
	raw := strings.TrimSpace(c.String(name))
	t, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: invalid date %q, expected YYYY-MM-DD", name, raw)
	}
	return t, nil
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runGenerate(c *cli.Context) error {
	svc, err := buildServices(c)
	if err != nil {
		return err
	}
	date, err := parseDateFlag(c, "date")
	if err != nil {
		return err
	}

	req := service.GenerateRequest{
		Date:         date,
		MarketID:     c.String("market"),
		ProductIDs:   c.StringSlice("product"),
		ServiceLevel: c.Float64("service-level"),
	}
	if w := c.String("weather"); w != "" {
		req.Weather = domain.ParseWeather(w)
	}

	result, err := svc.forecasts.Generate(c.Context, req)
	if err != nil {
		return err
	}
	log.Info().
		Str("date", result.Date).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("forecasts generated")
	return printJSON(c, result)
}

func runList(c *cli.Context) error {
	svc, err := buildServices(c)
	if err != nil {
		return err
	}
	date, err := parseDateFlag(c, "date")
	if err != nil {
		return err
	}

	forecasts, err := svc.forecasts.List(c.Context, date, c.String("market"))
	if err != nil {
		return err
	}
	if forecasts == nil {
		forecasts = []domain.ProductionForecast{}
	}
	return printJSON(c, forecasts)
}

func runCompare(c *cli.Context) error {
	svc, err := buildServices(c)
	if err != nil {
		return err
	}
	date, err := parseDateFlag(c, "date")
	if err != nil {
		return err
	}

	records, err := svc.accuracy.Comparisons(c.Context, date, c.String("market"))
	if err != nil {
		return err
	}
	pending := 0
	for _, r := range records {
		if r.Status == domain.StatusPending {
			pending++
		}
	}
	log.Info().Int("records", len(records)).Int("pending", pending).Msg("comparison built")
	return printJSON(c, records)
}

func runAnalyze(c *cli.Context) error {
	svc, err := buildServices(c)
	if err != nil {
		return err
	}

	filter := domain.AnalysisFilter{
		To:       domain.DateOf(time.Now()),
		MarketID: c.String("market"),
	}
	if c.IsSet("to") {
		if filter.To, err = parseDateFlag(c, "to"); err != nil {
			return err
		}
	}
	filter.From = filter.To.AddDate(0, 0, -29)
	if c.IsSet("from") {
		if filter.From, err = parseDateFlag(c, "from"); err != nil {
			return err
		}
	}

	if !c.Bool("export") {
		result, err := svc.accuracy.Analyze(c.Context, filter)
		if err != nil {
			return err
		}
		return printJSON(c, result)
	}

	if svc.sources.Storage == nil {
		return fmt.Errorf("--export: object storage: %w", domain.ErrSourceNotConfigured)
	}
	exporter := service.NewReportExporter(svc.accuracy, svc.sources.Storage, svc.cfg.Storage.ReportPrefix)
	result, key, err := exporter.Export(c.Context, filter)
	if err != nil {
		return err
	}
	log.Info().Str("key", key).Float64("accuracy", result.Summary.OverallAccuracy).Msg("report exported")
	return printJSON(c, map[string]string{"key": key})
}

func runPurge(c *cli.Context) error {
	svc, err := buildServices(c)
	if err != nil {
		return err
	}
	date, err := parseDateFlag(c, "date")
	if err != nil {
		return err
	}

	deleted, err := svc.forecasts.DeleteForDate(c.Context, date, c.String("market"), c.Bool("yes"))
	if errors.Is(err, domain.ErrConfirmationRequired) {
		return fmt.Errorf("refusing to delete forecasts for %s without --yes", date.Format(domain.DateLayout))
	}
	if err != nil {
		return err
	}
	log.Info().Str("date", date.Format(domain.DateLayout)).Int64("deleted", deleted).Msg("forecasts purged")
	return nil
}

func runIngest(c *cli.Context) error {
	svc, err := buildServices(c)
	if err != nil {
		return err
	}

	var (
		summary *ingest.Summary
		set     int
	)
	for _, name := range []string{"dir", "prefix", "drive-folder"} {
		if c.String(name) != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of --dir, --prefix or --drive-folder is required")
	}

	switch {
	case c.String("dir") != "":
		summary, err = svc.ingest.IngestDir(c.Context, c.String("dir"))
	case c.String("prefix") != "":
		summary, err = svc.ingest.IngestPrefix(c.Context, c.String("prefix"))
	default:
		summary, err = svc.ingest.IngestDrive(c.Context, c.String("drive-folder"))
	}
	if err != nil {
		return err
	}
	return printJSON(c, summary)
}
