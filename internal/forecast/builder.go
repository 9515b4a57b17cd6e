package forecast

import (
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/google/uuid"
)

// Request is everything needed to forecast one SKU for one date.
type Request struct {
	SKU       domain.SKU
	Date      time.Time
	Weather   domain.Weather
	History   []domain.SaleRecord
	UnitPrice float64
	UnitCost  float64
	// ServiceLevel overrides the configured target when in (0,1).
	ServiceLevel float64
	// FallbackRate is used as the baseline when the SKU has too little
	// history of its own. Nil means insufficient history is an error.
	FallbackRate *float64
}

// Builder turns requests into write-once ProductionForecast records.
// It holds no mutable state and is safe for concurrent use.
type Builder struct {
	params Params
	now    func() time.Time
	newID  func() string
}

// NewBuilder creates a builder with the given parameters.
func NewBuilder(params Params) *Builder {
	return &Builder{
		params: params.withDefaults(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// WithClock returns a copy of the builder using now for CreatedAt stamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	c := *b
	c.now = now
	return &c
}

// Params returns the effective parameters.
func (b *Builder) Params() Params {
	return b.params
}

// Build runs sampling, outlier filtering, baseline estimation, weather
// adjustment and newsvendor optimization, then assembles the record.
func (b *Builder) Build(req Request) (*domain.ProductionForecast, error) {
	sample, err := SampleHistory(req.History, req.Date, b.params)

	var (
		baseline float64
		removed  int
		source   = domain.BaselineSourceSKU
	)
	switch {
	case err == nil:
		filtered := FilterOutliers(sample.Observations, b.params.OutlierK)
		removed = filtered.Removed
		baseline = EstimateBaseline(filtered.Observations, b.params.RecencyDecay)
	case errors.Is(err, domain.ErrInsufficientHistory) && req.FallbackRate != nil:
		// count and confidence still describe the SKU's own short sample
		baseline = *req.FallbackRate
		source = domain.BaselineSourceFallback
	default:
		return nil, fmt.Errorf("forecast %s: %w", req.SKU.Key(), err)
	}

	adjusted, _ := AdjustForWeather(baseline, req.SKU, req.Weather)

	serviceLevel := b.params.ServiceLevel
	if req.ServiceLevel != 0 {
		serviceLevel = req.ServiceLevel
	}

	nv, err := Optimize(NewsvendorInput{
		Lambda:        adjusted,
		UnitPrice:     req.UnitPrice,
		UnitCost:      req.UnitCost,
		ServiceLevel:  serviceLevel,
		IntervalWidth: b.params.IntervalWidth,
	})
	if err != nil {
		return nil, fmt.Errorf("forecast %s: %w", req.SKU.Key(), err)
	}

	weather := req.Weather
	if weather == "" {
		weather = domain.WeatherNone
	}

	return &domain.ProductionForecast{
		ID:              b.newID(),
		ProductID:       req.SKU.ProductID,
		VariantID:       req.SKU.VariantID,
		MarketID:        req.SKU.MarketID,
		ForecastForDate: domain.DateOf(req.Date),

		ProductName: req.SKU.ProductName,
		VariantName: req.SKU.VariantName,
		MarketName:  req.SKU.MarketName,
		Category:    req.SKU.Category,

		WeatherForecast:          weather,
		HistoricalDataPointCount: len(sample.Observations),
		OutliersRemoved:          removed,
		BaselineSource:           source,

		BaselineForecast:        baseline,
		WeatherAdjustedForecast: adjusted,
		LambdaPoisson:           adjusted,
		OptimalQuantity:         nv.OptimalQuantity,
		ServiceLevelTarget:      nv.ServiceLevel,
		StockoutProbability:     nv.StockoutProbability,
		WasteProbability:        nv.WasteProbability,
		ConfidenceLevel:         Confidence(len(sample.Observations), removed, b.params.ConfidenceScale),
		PredictionIntervalLower: nv.IntervalLower,
		PredictionIntervalUpper: nv.IntervalUpper,

		UnitPrice:      req.UnitPrice,
		UnitCost:       req.UnitCost,
		ExpectedDemand: nv.ExpectedDemand,
		ExpectedProfit: nv.ExpectedProfit,

		CreatedAt: b.now().UTC(),
	}, nil
}
