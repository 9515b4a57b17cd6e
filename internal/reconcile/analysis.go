package reconcile

import "github.com/andresuchdata/bakeplan/internal/domain"

// AnalysisOptions controls how an aggregate is rendered into a report.
type AnalysisOptions struct {
	TopN            int
	Recommendations RecommendationConfig
}

// Result renders the aggregate as an accuracy report for the filter's range.
func (a *Aggregator) Result(filter domain.AnalysisFilter, opts AnalysisOptions) domain.AccuracyAnalysisResult {
	if opts.TopN <= 0 {
		opts.TopN = 5
	}
	products := a.ProductAccuracy()
	top, bottom := Rank(products, opts.TopN)

	return domain.AccuracyAnalysisResult{
		From:             filter.From.Format(domain.DateLayout),
		To:               filter.To.Format(domain.DateLayout),
		MarketID:         filter.MarketID,
		Summary:          a.Summary(),
		DailyTrend:       a.DailyTrend(),
		DayAccuracy:      a.DayAccuracy(),
		ProductAccuracy:  products,
		TopPerformers:    top,
		NeedsImprovement: bottom,
		MarketAccuracy:   a.MarketAccuracy(),
		Recommendations:  nonNil(a.Recommendations(opts.Recommendations)),
	}
}

// Analyze aggregates records in one pass and renders the report.
func Analyze(records []domain.ComparisonRecord, filter domain.AnalysisFilter, opts AnalysisOptions) domain.AccuracyAnalysisResult {
	agg := NewAggregator()
	agg.Add(records...)
	return agg.Result(filter, opts)
}

func nonNil(recs []domain.Recommendation) []domain.Recommendation {
	if recs == nil {
		return []domain.Recommendation{}
	}
	return recs
}
