package service

import (
	"context"
	"testing"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/andresuchdata/bakeplan/internal/forecast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func bakerySKU(productID string) domain.SKU {
	return domain.SKU{
		ProductID:    productID,
		MarketID:     "m1",
		ProductName:  productID,
		MarketName:   "Harbour Market",
		Category:     domain.CategoryBakery,
		Outdoor:      true,
		DefaultPrice: 20,
		DefaultCost:  8,
	}
}

func mondaySales(productID string, qty ...int) []domain.SaleRecord {
	dates := []string{"2024-05-06", "2024-05-13", "2024-05-20", "2024-05-27", "2024-04-29"}
	out := make([]domain.SaleRecord, 0, len(qty))
	for i, q := range qty {
		out = append(out, domain.SaleRecord{
			ProductID:    productID,
			MarketID:     "m1",
			SaleDate:     day(dates[i]),
			QuantitySold: q,
			PricePerUnit: 20,
			CostPerUnit:  8,
		})
	}
	return out
}

// lemonadeSKU has no history and no category average to fall back on.
func lemonadeSKU(productID string) domain.SKU {
	sku := bakerySKU(productID)
	sku.Category = domain.CategoryColdBeverage
	return sku
}

type forecastFixture struct {
	svc       *ForecastService
	forecasts *fakeForecasts
	sales     *fakeSales
	cache     *fakeCache
}

func newForecastFixture(fallback bool) *forecastFixture {
	sales := &fakeSales{
		rows:        mondaySales("bagel", 10, 12, 11, 13, 50),
		categoryAvg: map[string]float64{domain.CategoryBakery: 6},
		categoryN:   10,
	}
	forecasts := &fakeForecasts{}
	c := newFakeCache()
	svc := NewForecastService(ForecastRepositories{
		Catalog:   &fakeCatalog{skus: []domain.SKU{bakerySKU("bagel"), bakerySKU("scone"), lemonadeSKU("lemonade")}},
		Sales:     sales,
		Weather:   &fakeWeather{},
		Forecasts: forecasts,
	}, forecast.NewBuilder(forecast.DefaultParams()), c, ForecastOptions{Workers: 2, FallbackEnabled: fallback})

	return &forecastFixture{svc: svc, forecasts: forecasts, sales: sales, cache: c}
}

func TestGenerateReportsPartialSuccess(t *testing.T) {
	fx := newForecastFixture(true)

	res, err := fx.svc.Generate(context.Background(), GenerateRequest{Date: day("2024-06-03")})
	require.NoError(t, err)

	assert.Equal(t, "2024-06-03", res.Date)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Outcomes, 3)

	byProduct := make(map[string]domain.ForecastOutcome)
	for _, o := range res.Outcomes {
		byProduct[o.ProductID] = o
	}

	bagel := byProduct["bagel"].Forecast
	require.NotNil(t, bagel)
	assert.Equal(t, domain.BaselineSourceSKU, bagel.BaselineSource)
	assert.InDelta(t, 11.5, bagel.BaselineForecast, 1e-9)
	assert.Equal(t, 1, bagel.OutliersRemoved)
	assert.Equal(t, domain.WeatherNone, bagel.WeatherForecast)

	scone := byProduct["scone"].Forecast
	require.NotNil(t, scone)
	assert.Equal(t, domain.BaselineSourceFallback, scone.BaselineSource)
	assert.InDelta(t, 6.0, scone.BaselineForecast, 1e-9)

	assert.Nil(t, byProduct["lemonade"].Forecast)
	assert.Contains(t, byProduct["lemonade"].Error, domain.ErrInsufficientHistory.Error())

	assert.Len(t, fx.forecasts.rows, 2)
	assert.Equal(t, 1, fx.cache.invalidated)
}

func TestGenerateWithoutFallbackFailsShortHistory(t *testing.T) {
	fx := newForecastFixture(false)

	res, err := fx.svc.Generate(context.Background(), GenerateRequest{Date: day("2024-06-03"), ProductIDs: []string{"scone"}})
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, res.Outcomes[0].Error, domain.ErrInsufficientHistory.Error())
	assert.Empty(t, fx.forecasts.rows)
	assert.Zero(t, fx.cache.invalidated)
}

func TestGenerateAppliesWeather(t *testing.T) {
	fx := newForecastFixture(true)

	res, err := fx.svc.Generate(context.Background(), GenerateRequest{
		Date:       day("2024-06-03"),
		ProductIDs: []string{"bagel"},
		Weather:    domain.WeatherRain,
	})
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 1)

	f := res.Outcomes[0].Forecast
	require.NotNil(t, f)
	assert.Equal(t, domain.WeatherRain, f.WeatherForecast)
	assert.Less(t, f.WeatherAdjustedForecast, f.BaselineForecast)
}

func TestGenerateRejectsInvalidServiceLevel(t *testing.T) {
	fx := newForecastFixture(true)

	_, err := fx.svc.Generate(context.Background(), GenerateRequest{Date: day("2024-06-03"), ServiceLevel: 1.2})
	assert.ErrorIs(t, err, domain.ErrInvalidForecastInput)
}

func TestGenerateHistoryReadFailureAbortsBatch(t *testing.T) {
	fx := newForecastFixture(true)
	fx.sales.historyErr = map[string]error{"scone": errStore}

	_, err := fx.svc.Generate(context.Background(), GenerateRequest{Date: day("2024-06-03")})
	require.ErrorIs(t, err, errStore)
	assert.Empty(t, fx.forecasts.rows)
	assert.Zero(t, fx.cache.invalidated)
}

func TestGenerateAppendFailurePropagates(t *testing.T) {
	fx := newForecastFixture(true)
	fx.forecasts.appendErr = errStore

	_, err := fx.svc.Generate(context.Background(), GenerateRequest{Date: day("2024-06-03")})
	assert.ErrorIs(t, err, errStore)
}

func TestDeleteForDateRequiresConfirmation(t *testing.T) {
	fx := newForecastFixture(true)
	_, err := fx.svc.Generate(context.Background(), GenerateRequest{Date: day("2024-06-03")})
	require.NoError(t, err)

	_, err = fx.svc.DeleteForDate(context.Background(), day("2024-06-03"), "", false)
	assert.ErrorIs(t, err, domain.ErrConfirmationRequired)
	assert.Len(t, fx.forecasts.rows, 2)

	deleted, err := fx.svc.DeleteForDate(context.Background(), day("2024-06-03"), "", true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
	assert.Empty(t, fx.forecasts.rows)
	assert.Equal(t, 2, fx.cache.invalidated)
}

func TestUnitEconomicsFallsBackToLatestSale(t *testing.T) {
	sku := bakerySKU("bagel")
	sku.DefaultPrice = 0
	sku.DefaultCost = 0
	history := []domain.SaleRecord{
		{SaleDate: day("2024-05-06"), PricePerUnit: 3, CostPerUnit: 1},
		{SaleDate: day("2024-05-20"), PricePerUnit: 4, CostPerUnit: 1.5},
		{SaleDate: day("2024-05-13"), PricePerUnit: 3.5, CostPerUnit: 1.2},
	}

	price, cost := unitEconomics(sku, history)
	assert.Equal(t, 4.0, price)
	assert.Equal(t, 1.5, cost)
}
