package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
)

var errStore = errors.New("store unavailable")

func inRange(d, from, to time.Time) bool {
	d = domain.DateOf(d)
	return !d.Before(domain.DateOf(from)) && !d.After(domain.DateOf(to))
}

func marketMatches(want, got string) bool {
	return want == "" || want == got
}

type fakeCatalog struct {
	skus []domain.SKU
	err  error
}

func (f *fakeCatalog) ListSKUs(ctx context.Context, marketID string) ([]domain.SKU, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.SKU
	for _, s := range f.skus {
		if marketMatches(marketID, s.MarketID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCatalog) UpsertSKUs(ctx context.Context, skus []domain.SKU) error {
	f.skus = append(f.skus, skus...)
	return nil
}

type fakeSales struct {
	mu          sync.Mutex
	rows        []domain.SaleRecord
	categoryAvg map[string]float64
	categoryN   int
	historyErr  map[string]error
}

func (f *fakeSales) History(ctx context.Context, key domain.SKUKey, from, to time.Time) ([]domain.SaleRecord, error) {
	if err := f.historyErr[key.ProductID]; err != nil {
		return nil, err
	}
	var out []domain.SaleRecord
	for _, r := range f.rows {
		d := domain.DateOf(r.SaleDate)
		if r.Key() == key && !d.Before(from) && d.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSales) ListByRange(ctx context.Context, from, to time.Time, marketID string) ([]domain.SaleRecord, error) {
	var out []domain.SaleRecord
	for _, r := range f.rows {
		if inRange(r.SaleDate, from, to) && marketMatches(marketID, r.MarketID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSales) CategoryDailyAverage(ctx context.Context, category, marketID string, from, to time.Time) (float64, int, error) {
	rate, ok := f.categoryAvg[category]
	if !ok {
		return 0, 0, nil
	}
	return rate, f.categoryN, nil
}

func (f *fakeSales) InsertSales(ctx context.Context, sales []domain.SaleRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, sales...)
	return nil
}

type fakeWeather struct {
	byMarket map[string]domain.Weather
}

func (f *fakeWeather) ForecastFor(ctx context.Context, marketID string, date time.Time) (domain.WeatherForecast, bool, error) {
	w, ok := f.byMarket[marketID]
	if !ok {
		return domain.WeatherForecast{}, false, nil
	}
	return domain.WeatherForecast{MarketID: marketID, ForecastDate: date, Condition: w}, true, nil
}

func (f *fakeWeather) UpsertWeather(ctx context.Context, rows []domain.WeatherForecast) error {
	if f.byMarket == nil {
		f.byMarket = make(map[string]domain.Weather)
	}
	for _, r := range rows {
		f.byMarket[r.MarketID] = r.Condition
	}
	return nil
}

type fakeForecasts struct {
	mu        sync.Mutex
	rows      []domain.ProductionForecast
	appendErr error
	listCalls int
}

func (f *fakeForecasts) Append(ctx context.Context, forecasts []domain.ProductionForecast) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, forecasts...)
	return nil
}

func (f *fakeForecasts) ListByDate(ctx context.Context, date time.Time, marketID string) ([]domain.ProductionForecast, error) {
	return f.ListByRange(ctx, date, date, marketID)
}

func (f *fakeForecasts) ListByRange(ctx context.Context, from, to time.Time, marketID string) ([]domain.ProductionForecast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var out []domain.ProductionForecast
	for _, r := range f.rows {
		if inRange(r.ForecastForDate, from, to) && marketMatches(marketID, r.MarketID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeForecasts) DeleteByDate(ctx context.Context, date time.Time, marketID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	var deleted int64
	for _, r := range f.rows {
		if inRange(r.ForecastForDate, date, date) && marketMatches(marketID, r.MarketID) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return deleted, nil
}

type fakeInventory struct {
	rows []domain.DailyInventory
}

func (f *fakeInventory) ListByDate(ctx context.Context, date time.Time, marketID string) ([]domain.DailyInventory, error) {
	return f.ListByRange(ctx, date, date, marketID)
}

func (f *fakeInventory) ListByRange(ctx context.Context, from, to time.Time, marketID string) ([]domain.DailyInventory, error) {
	var out []domain.DailyInventory
	for _, r := range f.rows {
		if inRange(r.InventoryDate, from, to) && marketMatches(marketID, r.MarketID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeInventory) UpsertInventory(ctx context.Context, rows []domain.DailyInventory) error {
	f.rows = append(f.rows, rows...)
	return nil
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[string]*domain.AccuracyAnalysisResult
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*domain.AccuracyAnalysisResult)}
}

func cacheKey(f domain.AnalysisFilter) string {
	return f.From.Format(domain.DateLayout) + "|" + f.To.Format(domain.DateLayout) + "|" + f.MarketID
}

func (c *fakeCache) GetAnalysis(ctx context.Context, filter domain.AnalysisFilter) (*domain.AccuracyAnalysisResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[cacheKey(filter)]
	return r, ok, nil
}

func (c *fakeCache) SetAnalysis(ctx context.Context, filter domain.AnalysisFilter, result *domain.AccuracyAnalysisResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(filter)] = result
	return nil
}

func (c *fakeCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.entries = make(map[string]*domain.AccuracyAnalysisResult)
	return nil
}
