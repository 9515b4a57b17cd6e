package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/bakeplan/internal/cache"
	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/andresuchdata/bakeplan/internal/reconcile"
	"github.com/andresuchdata/bakeplan/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type AccuracyRepositories struct {
	Forecasts repository.ForecastRepository
	Sales     repository.SalesRepository
	Inventory repository.InventoryRepository
}

type AccuracyOptions struct {
	Analysis      reconcile.AnalysisOptions
	PartitionDays int
	Workers       int
}

type AccuracyService struct {
	repos AccuracyRepositories
	cache cache.AccuracyCache
	opts  AccuracyOptions
}

func NewAccuracyService(repos AccuracyRepositories, cacheImpl cache.AccuracyCache, opts AccuracyOptions) *AccuracyService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopAccuracyCache()
	}
	if opts.PartitionDays <= 0 {
		opts.PartitionDays = 31
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &AccuracyService{repos: repos, cache: cacheImpl, opts: opts}
}

// Comparisons returns one record per forecast SKU for the date. SKUs whose
// actuals are not recorded yet come back pending.
func (s *AccuracyService) Comparisons(ctx context.Context, date time.Time, marketID string) ([]domain.ComparisonRecord, error) {
	date = domain.DateOf(date)
	return s.comparisons(ctx, date, date, marketID)
}

func (s *AccuracyService) comparisons(ctx context.Context, from, to time.Time, marketID string) ([]domain.ComparisonRecord, error) {
	forecasts, err := s.repos.Forecasts.ListByRange(ctx, from, to, marketID)
	if err != nil {
		return nil, err
	}
	if len(forecasts) == 0 {
		return []domain.ComparisonRecord{}, nil
	}

	sales, err := s.repos.Sales.ListByRange(ctx, from, to, marketID)
	if err != nil {
		return nil, err
	}
	inventory, err := s.repos.Inventory.ListByRange(ctx, from, to, marketID)
	if err != nil {
		return nil, err
	}

	return reconcile.BuildComparisons(reconcile.JoinActuals(forecasts, sales, inventory)), nil
}

// Analyze builds the accuracy report for an inclusive date range. Long
// ranges are split into partitions that are reconciled concurrently and
// merged.
func (s *AccuracyService) Analyze(ctx context.Context, filter domain.AnalysisFilter) (*domain.AccuracyAnalysisResult, error) {
	filter.From = domain.DateOf(filter.From)
	filter.To = domain.DateOf(filter.To)
	if filter.To.Before(filter.From) {
		return nil, fmt.Errorf("%s to %s: %w",
			filter.From.Format(domain.DateLayout), filter.To.Format(domain.DateLayout), domain.ErrInvalidDateRange)
	}

	if result, ok, err := s.cache.GetAnalysis(ctx, filter); err == nil && ok {
		return result, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("accuracy: cache get analysis failed")
	}

	start := time.Now()
	parts := partitionRange(filter.From, filter.To, s.opts.PartitionDays)
	aggs := make([]*reconcile.Aggregator, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, p := range parts {
		i, p := i, p
		g.Go(func() error {
			records, err := s.comparisons(gctx, p.from, p.to, filter.MarketID)
			if err != nil {
				return err
			}
			agg := reconcile.NewAggregator()
			agg.Add(records...)
			aggs[i] = agg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := reconcile.NewAggregator()
	for _, agg := range aggs {
		total.Merge(agg)
	}
	result := total.Result(filter, s.opts.Analysis)

	if err := s.cache.SetAnalysis(ctx, filter, &result); err != nil {
		log.Warn().Err(err).Msg("accuracy: cache set analysis failed")
	}

	log.Debug().
		Str("from", result.From).
		Str("to", result.To).
		Str("market_id", filter.MarketID).
		Int("partitions", len(parts)).
		Int("records", result.Summary.RecordCount).
		Dur("duration", time.Since(start)).
		Msg("accuracy: analysis computed")
	return &result, nil
}

// Recommendations returns only the rule output for the range.
func (s *AccuracyService) Recommendations(ctx context.Context, filter domain.AnalysisFilter) ([]domain.Recommendation, error) {
	result, err := s.Analyze(ctx, filter)
	if err != nil {
		return nil, err
	}
	return result.Recommendations, nil
}

type dateRange struct {
	from, to time.Time
}

func partitionRange(from, to time.Time, days int) []dateRange {
	var out []dateRange
	for cur := from; !cur.After(to); cur = cur.AddDate(0, 0, days) {
		end := cur.AddDate(0, 0, days-1)
		if end.After(to) {
			end = to
		}
		out = append(out, dateRange{from: cur, to: end})
	}
	return out
}
