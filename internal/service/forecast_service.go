package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/bakeplan/internal/cache"
	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/andresuchdata/bakeplan/internal/forecast"
	"github.com/andresuchdata/bakeplan/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// GenerateRequest selects the SKUs to forecast for one date.
type GenerateRequest struct {
	Date       time.Time      `json:"date"`
	MarketID   string         `json:"market_id,omitempty"`
	ProductIDs []string       `json:"product_ids,omitempty"`
	Weather    domain.Weather `json:"weather,omitempty"`
	// ServiceLevel overrides the configured target when in (0,1).
	ServiceLevel float64 `json:"service_level,omitempty"`
}

type ForecastOptions struct {
	Workers         int
	FallbackEnabled bool
}

type ForecastRepositories struct {
	Catalog   repository.CatalogRepository
	Sales     repository.SalesRepository
	Weather   repository.WeatherRepository
	Forecasts repository.ForecastRepository
}

type ForecastService struct {
	repos   ForecastRepositories
	cache   cache.AccuracyCache
	builder *forecast.Builder
	opts    ForecastOptions
}

func NewForecastService(repos ForecastRepositories, builder *forecast.Builder, cacheImpl cache.AccuracyCache, opts ForecastOptions) *ForecastService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopAccuracyCache()
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	return &ForecastService{repos: repos, cache: cacheImpl, builder: builder, opts: opts}
}

// Generate forecasts every selected SKU concurrently and appends the
// successful forecasts. A SKU that cannot be forecast is reported in its
// outcome and never blocks the rest of the batch. Only store failures on
// the shared reads and the final append fail the call.
func (s *ForecastService) Generate(ctx context.Context, req GenerateRequest) (*domain.ForecastBatchResult, error) {
	start := time.Now()
	date := domain.DateOf(req.Date)
	if req.ServiceLevel < 0 || req.ServiceLevel >= 1 {
		return nil, fmt.Errorf("service level %v: %w", req.ServiceLevel, domain.ErrInvalidForecastInput)
	}

	skus, err := s.repos.Catalog.ListSKUs(ctx, req.MarketID)
	if err != nil {
		return nil, err
	}
	skus = filterProducts(skus, req.ProductIDs)

	weather, err := s.weatherByMarket(ctx, skus, date, req.Weather)
	if err != nil {
		return nil, err
	}

	outcomes := make([]domain.ForecastOutcome, len(skus))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, sku := range skus {
		i, sku := i, sku
		g.Go(func() error {
			f, err := s.forecastSKU(gctx, sku, date, weather[sku.MarketID], req.ServiceLevel)
			if err != nil && !skippable(err) {
				log.Error().Err(err).
					Str("product_id", sku.ProductID).
					Str("market_id", sku.MarketID).
					Msg("forecast: store read failed")
				return fmt.Errorf("forecast %s/%s: %w", sku.MarketID, sku.ProductID, err)
			}
			outcome := domain.ForecastOutcome{
				ProductID: sku.ProductID,
				VariantID: sku.VariantID,
				MarketID:  sku.MarketID,
				Forecast:  f,
			}
			if err != nil {
				outcome.Error = err.Error()
				log.Warn().Err(err).
					Str("product_id", sku.ProductID).
					Str("market_id", sku.MarketID).
					Str("date", date.Format(domain.DateLayout)).
					Msg("forecast: sku skipped")
			}
			outcomes[i] = outcome
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &domain.ForecastBatchResult{Date: date.Format(domain.DateLayout), Outcomes: outcomes}
	created := make([]domain.ProductionForecast, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Forecast == nil {
			result.Failed++
			continue
		}
		result.Succeeded++
		created = append(created, *o.Forecast)
	}

	if err := s.repos.Forecasts.Append(ctx, created); err != nil {
		return nil, err
	}
	if len(created) > 0 {
		s.invalidate(ctx)
	}

	log.Info().
		Str("date", result.Date).
		Str("market_id", req.MarketID).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Msg("forecast: batch generated")
	return result, nil
}

func (s *ForecastService) forecastSKU(ctx context.Context, sku domain.SKU, date time.Time, weather domain.Weather, serviceLevel float64) (*domain.ProductionForecast, error) {
	params := s.builder.Params()
	from := date.AddDate(0, 0, -params.LookbackDays)

	history, err := s.repos.Sales.History(ctx, sku.Key(), from, date)
	if err != nil {
		return nil, err
	}

	price, cost := unitEconomics(sku, history)
	req := forecast.Request{
		SKU:          sku,
		Date:         date,
		Weather:      weather,
		History:      history,
		UnitPrice:    price,
		UnitCost:     cost,
		ServiceLevel: serviceLevel,
	}

	f, err := s.builder.Build(req)
	if err == nil || !errors.Is(err, domain.ErrInsufficientHistory) || !s.opts.FallbackEnabled {
		return f, err
	}

	rate, days, ferr := s.repos.Sales.CategoryDailyAverage(ctx, sku.Category, sku.MarketID, from, date)
	if ferr != nil {
		return nil, ferr
	}
	if days < params.MinSamples {
		return nil, err
	}
	req.FallbackRate = &rate
	return s.builder.Build(req)
}

// skippable reports a per-SKU failure that belongs in the batch outcome.
// Anything else comes from the store and aborts the batch.
func skippable(err error) bool {
	return errors.Is(err, domain.ErrInsufficientHistory) || errors.Is(err, domain.ErrInvalidForecastInput)
}

// weatherByMarket resolves one condition per market before fan-out. An
// explicit override applies to every market.
func (s *ForecastService) weatherByMarket(ctx context.Context, skus []domain.SKU, date time.Time, override domain.Weather) (map[string]domain.Weather, error) {
	out := make(map[string]domain.Weather)
	for _, sku := range skus {
		if _, ok := out[sku.MarketID]; ok {
			continue
		}
		if override != "" {
			out[sku.MarketID] = override
			continue
		}
		wf, ok, err := s.repos.Weather.ForecastFor(ctx, sku.MarketID, date)
		if err != nil {
			return nil, err
		}
		if !ok {
			out[sku.MarketID] = domain.WeatherNone
			continue
		}
		out[sku.MarketID] = wf.Condition
	}
	return out, nil
}

func (s *ForecastService) List(ctx context.Context, date time.Time, marketID string) ([]domain.ProductionForecast, error) {
	return s.repos.Forecasts.ListByDate(ctx, domain.DateOf(date), marketID)
}

// DeleteForDate removes every forecast for the date. It cannot be undone,
// so callers must pass confirmed explicitly.
func (s *ForecastService) DeleteForDate(ctx context.Context, date time.Time, marketID string, confirmed bool) (int64, error) {
	if !confirmed {
		return 0, fmt.Errorf("delete forecasts for %s: %w", date.Format(domain.DateLayout), domain.ErrConfirmationRequired)
	}

	deleted, err := s.repos.Forecasts.DeleteByDate(ctx, domain.DateOf(date), marketID)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.invalidate(ctx)
	}
	return deleted, nil
}

func (s *ForecastService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("forecast: cache invalidate failed")
	}
}

// unitEconomics prefers catalog prices and falls back to the most recent
// priced sale.
func unitEconomics(sku domain.SKU, history []domain.SaleRecord) (price, cost float64) {
	price, cost = sku.DefaultPrice, sku.DefaultCost
	var latest time.Time
	for _, h := range history {
		if h.PricePerUnit <= 0 || h.SaleDate.Before(latest) {
			continue
		}
		latest = h.SaleDate
		if sku.DefaultPrice <= 0 {
			price = h.PricePerUnit
		}
		if sku.DefaultCost <= 0 {
			cost = h.CostPerUnit
		}
	}
	return price, cost
}

func filterProducts(skus []domain.SKU, productIDs []string) []domain.SKU {
	if len(productIDs) == 0 {
		return skus
	}
	wanted := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = struct{}{}
	}
	out := skus[:0:0]
	for _, sku := range skus {
		if _, ok := wanted[sku.ProductID]; ok {
			out = append(out, sku)
		}
	}
	return out
}
