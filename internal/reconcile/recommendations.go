package reconcile

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/shopspring/decimal"
)

// RecommendationConfig holds the thresholds used by the rule pass.
type RecommendationConfig struct {
	BiasThreshold     float64
	AccuracyThreshold float64
	MinSamples        int
	HighPriorityCost  float64
	HighPriorityShare float64
}

// DefaultRecommendationConfig returns the stock thresholds.
func DefaultRecommendationConfig() RecommendationConfig {
	return RecommendationConfig{
		BiasThreshold:     30,
		AccuracyThreshold: 70,
		MinSamples:        3,
		HighPriorityCost:  50,
		HighPriorityShare: 0.25,
	}
}

func (c RecommendationConfig) withDefaults() RecommendationConfig {
	d := DefaultRecommendationConfig()
	if c.BiasThreshold <= 0 {
		c.BiasThreshold = d.BiasThreshold
	}
	if c.AccuracyThreshold <= 0 {
		c.AccuracyThreshold = d.AccuracyThreshold
	}
	if c.MinSamples <= 0 {
		c.MinSamples = d.MinSamples
	}
	if c.HighPriorityCost <= 0 {
		c.HighPriorityCost = d.HighPriorityCost
	}
	if c.HighPriorityShare <= 0 {
		c.HighPriorityShare = d.HighPriorityShare
	}
	return c
}

type biasDirection int

const (
	biasNone biasDirection = iota
	biasOver
	biasUnder
)

func direction(bias, threshold float64) biasDirection {
	switch {
	case bias > threshold:
		return biasOver
	case bias < -threshold:
		return biasUnder
	default:
		return biasNone
	}
}

// Recommendations runs the rule pass over the aggregated groups. The output
// only depends on the aggregate, so the same records always produce the
// same list in the same order.
func (a *Aggregator) Recommendations(cfg RecommendationConfig) []domain.Recommendation {
	cfg = cfg.withDefaults()
	totalLoss := a.total.loss()
	var out []domain.Recommendation

	emit := func(kind, target, issue, suggestion string, cost decimal.Decimal) {
		out = append(out, domain.Recommendation{
			Type:       kind,
			Target:     target,
			Issue:      issue,
			Suggestion: suggestion,
			Priority:   priority(cost, totalLoss, cfg),
			Cost:       cost.Round(2).InexactFloat64(),
		})
	}

	productDir := make(map[string]biasDirection, len(a.products))
	for id, p := range a.products {
		if p.samples < cfg.MinSamples {
			continue
		}
		name := labelOr(p.name, id)
		bias := p.bias()
		dir := direction(bias, cfg.BiasThreshold)
		productDir[id] = dir
		switch dir {
		case biasOver:
			emit(domain.RecommendationProduct, name,
				fmt.Sprintf("over-forecast by %.1f%% across %d days", bias, p.samples),
				fmt.Sprintf("reduce production of %s by about %.0f%%", name, math.Min(bias, 100)),
				p.wasteCost)
		case biasUnder:
			emit(domain.RecommendationProduct, name,
				fmt.Sprintf("under-forecast by %.1f%% across %d days", -bias, p.samples),
				fmt.Sprintf("increase production of %s by about %.0f%%", name, -bias),
				p.stockoutRev)
		default:
			if acc := p.accuracy(); acc < cfg.AccuracyThreshold {
				emit(domain.RecommendationProduct, name,
					fmt.Sprintf("accuracy %.1f%% is below %.0f%%", acc, cfg.AccuracyThreshold),
					fmt.Sprintf("review demand history and outliers for %s", name),
					p.loss())
			}
		}
	}

	for k, pd := range a.productDay {
		if pd.samples < cfg.MinSamples {
			continue
		}
		bias := pd.bias()
		dir := direction(bias, cfg.BiasThreshold)
		if dir == biasNone || productDir[k.productID] == dir {
			continue
		}
		name := labelOr(pd.name, k.productID)
		target := fmt.Sprintf("%s on %s", name, k.weekday)
		if dir == biasOver {
			emit(domain.RecommendationProduct, target,
				fmt.Sprintf("over-forecast by %.1f%% on %ss", bias, k.weekday),
				fmt.Sprintf("bake less %s on %ss", name, k.weekday),
				pd.wasteCost)
		} else {
			emit(domain.RecommendationProduct, target,
				fmt.Sprintf("under-forecast by %.1f%% on %ss", -bias, k.weekday),
				fmt.Sprintf("bake more %s on %ss", name, k.weekday),
				pd.stockoutRev)
		}
	}

	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		t := &a.weekdays[wd]
		if t.samples < cfg.MinSamples {
			continue
		}
		bias := t.bias()
		switch direction(bias, cfg.BiasThreshold) {
		case biasOver:
			emit(domain.RecommendationDay, wd.String(),
				fmt.Sprintf("%ss are over-forecast by %.1f%%", wd, bias),
				fmt.Sprintf("lower overall production on %ss", wd),
				t.wasteCost)
		case biasUnder:
			emit(domain.RecommendationDay, wd.String(),
				fmt.Sprintf("%ss are under-forecast by %.1f%%", wd, -bias),
				fmt.Sprintf("raise overall production on %ss", wd),
				t.stockoutRev)
		}
	}

	for id, m := range a.markets {
		if m.samples < cfg.MinSamples {
			continue
		}
		name := labelOr(m.name, id)
		bias := m.bias()
		acc := m.accuracy()
		switch direction(bias, cfg.BiasThreshold) {
		case biasOver:
			emit(domain.RecommendationMarket, name,
				fmt.Sprintf("over-forecast by %.1f%% at this market", bias),
				fmt.Sprintf("send fewer units to %s", name),
				m.wasteCost)
		case biasUnder:
			emit(domain.RecommendationMarket, name,
				fmt.Sprintf("under-forecast by %.1f%% at this market", -bias),
				fmt.Sprintf("send more units to %s", name),
				m.stockoutRev)
		default:
			if acc < cfg.AccuracyThreshold {
				emit(domain.RecommendationMarket, name,
					fmt.Sprintf("accuracy %.1f%% is below %.0f%%", acc, cfg.AccuracyThreshold),
					fmt.Sprintf("check weather and event inputs for %s", name),
					m.loss())
			}
		}
	}

	sortRecommendations(out)
	return out
}

func priority(cost, totalLoss decimal.Decimal, cfg RecommendationConfig) string {
	if cost.GreaterThanOrEqual(decimal.NewFromFloat(cfg.HighPriorityCost)) {
		return domain.PriorityHigh
	}
	if totalLoss.IsPositive() && cost.Div(totalLoss).GreaterThanOrEqual(decimal.NewFromFloat(cfg.HighPriorityShare)) {
		return domain.PriorityHigh
	}
	return domain.PriorityMedium
}

func sortRecommendations(recs []domain.Recommendation) {
	rank := func(p string) int {
		if p == domain.PriorityHigh {
			return 0
		}
		return 1
	}
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if rank(a.Priority) != rank(b.Priority) {
			return rank(a.Priority) < rank(b.Priority)
		}
		if a.Cost != b.Cost {
			return a.Cost > b.Cost
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Issue < b.Issue
	})
}

func labelOr(name, id string) string {
	if name == "" {
		return id
	}
	return name
}
