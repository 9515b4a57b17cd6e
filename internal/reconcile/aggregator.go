package reconcile

import (
	"sort"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
	"github.com/shopspring/decimal"
)

// tally accumulates non-pending comparison records for one group.
type tally struct {
	samples     int
	pending     int
	forecastQty int
	actualQty   int
	diff        int
	absDiff     int
	wasteQty    int
	stockoutQty int
	wasteCost   decimal.Decimal
	stockoutRev decimal.Decimal
}

func (t *tally) add(rec domain.ComparisonRecord) {
	if rec.IsPending() {
		t.pending++
		return
	}
	t.samples++
	t.forecastQty += rec.ForecastQty
	t.actualQty += rec.ActualQty
	t.diff += rec.Diff
	if rec.Diff < 0 {
		t.absDiff -= rec.Diff
	} else {
		t.absDiff += rec.Diff
	}
	t.wasteQty += rec.WasteQty
	t.stockoutQty += rec.StockoutQty
	t.wasteCost = t.wasteCost.Add(decimal.NewFromFloat(rec.WasteCost))
	t.stockoutRev = t.stockoutRev.Add(decimal.NewFromFloat(rec.StockoutRevenue))
}

func (t *tally) merge(o *tally) {
	t.samples += o.samples
	t.pending += o.pending
	t.forecastQty += o.forecastQty
	t.actualQty += o.actualQty
	t.diff += o.diff
	t.absDiff += o.absDiff
	t.wasteQty += o.wasteQty
	t.stockoutQty += o.stockoutQty
	t.wasteCost = t.wasteCost.Add(o.wasteCost)
	t.stockoutRev = t.stockoutRev.Add(o.stockoutRev)
}

// accuracy is 100*(1 - sum|diff|/sum forecast) clamped to [0,100].
func (t *tally) accuracy() float64 {
	if t.forecastQty == 0 {
		if t.absDiff == 0 {
			return 100
		}
		return 0
	}
	acc := 100 * (1 - float64(t.absDiff)/float64(t.forecastQty))
	if acc < 0 {
		return 0
	}
	if acc > 100 {
		return 100
	}
	return round2(acc)
}

// bias is 100*sum(diff)/sum(forecast); positive means over-forecasting.
func (t *tally) bias() float64 {
	if t.forecastQty == 0 {
		return 0
	}
	return round2(100 * float64(t.diff) / float64(t.forecastQty))
}

func (t *tally) loss() decimal.Decimal {
	return t.wasteCost.Add(t.stockoutRev)
}

type labelled struct {
	tally
	name     string
	nameDate time.Time
}

func (l *labelled) rename(name string, date time.Time) {
	if name == "" {
		return
	}
	if l.name == "" || date.After(l.nameDate) || (date.Equal(l.nameDate) && name < l.name) {
		l.name = name
		l.nameDate = date
	}
}

type productDayKey struct {
	productID string
	weekday   time.Weekday
}

// Aggregator reduces comparison records into accuracy groups. Aggregators
// built over disjoint partitions of a range can be merged.
type Aggregator struct {
	total      tally
	days       map[time.Time]*tally
	weekdays   [7]tally
	products   map[string]*labelled
	markets    map[string]*labelled
	productDay map[productDayKey]*labelled
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		days:       make(map[time.Time]*tally),
		products:   make(map[string]*labelled),
		markets:    make(map[string]*labelled),
		productDay: make(map[productDayKey]*labelled),
	}
}

// Add folds records into the aggregate.
func (a *Aggregator) Add(records ...domain.ComparisonRecord) {
	for _, rec := range records {
		date := domain.DateOf(rec.Date)
		a.total.add(rec)

		d := a.days[date]
		if d == nil {
			d = &tally{}
			a.days[date] = d
		}
		d.add(rec)

		a.weekdays[date.Weekday()].add(rec)

		p := a.products[rec.ProductID]
		if p == nil {
			p = &labelled{}
			a.products[rec.ProductID] = p
		}
		p.add(rec)
		p.rename(rec.ProductName, date)

		m := a.markets[rec.MarketID]
		if m == nil {
			m = &labelled{}
			a.markets[rec.MarketID] = m
		}
		m.add(rec)
		m.rename(rec.MarketName, date)

		pdk := productDayKey{productID: rec.ProductID, weekday: date.Weekday()}
		pd := a.productDay[pdk]
		if pd == nil {
			pd = &labelled{}
			a.productDay[pdk] = pd
		}
		pd.add(rec)
		pd.rename(rec.ProductName, date)
	}
}

// Merge folds another aggregator into a.
func (a *Aggregator) Merge(o *Aggregator) {
	a.total.merge(&o.total)
	for date, t := range o.days {
		if cur := a.days[date]; cur != nil {
			cur.merge(t)
		} else {
			c := *t
			a.days[date] = &c
		}
	}
	for i := range a.weekdays {
		a.weekdays[i].merge(&o.weekdays[i])
	}
	mergeLabelled(a.products, o.products)
	mergeLabelled(a.markets, o.markets)
	for k, l := range o.productDay {
		if cur := a.productDay[k]; cur != nil {
			cur.merge(&l.tally)
			cur.rename(l.name, l.nameDate)
		} else {
			c := *l
			a.productDay[k] = &c
		}
	}
}

func mergeLabelled(dst, src map[string]*labelled) {
	for k, l := range src {
		if cur := dst[k]; cur != nil {
			cur.merge(&l.tally)
			cur.rename(l.name, l.nameDate)
		} else {
			c := *l
			dst[k] = &c
		}
	}
}

// Summary returns range totals.
func (a *Aggregator) Summary() domain.AccuracySummary {
	s := domain.AccuracySummary{
		OverallAccuracy:      a.total.accuracy(),
		OverallBiasPercent:   a.total.bias(),
		TotalForecastQty:     a.total.forecastQty,
		TotalActualQty:       a.total.actualQty,
		TotalWasteQty:        a.total.wasteQty,
		TotalWasteCost:       a.total.wasteCost.Round(2).InexactFloat64(),
		TotalStockoutQty:     a.total.stockoutQty,
		TotalStockoutRevenue: a.total.stockoutRev.Round(2).InexactFloat64(),
		TotalDays:            len(a.days),
		RecordCount:          a.total.samples + a.total.pending,
		PendingCount:         a.total.pending,
	}
	if a.total.samples == 0 {
		s.OverallAccuracy = 0
	}
	for _, d := range a.days {
		if d.samples > 0 {
			s.DaysWithData++
		}
	}
	return s
}

// DailyTrend returns one point per day that has at least one forecast.
func (a *Aggregator) DailyTrend() []domain.DailyTrendPoint {
	dates := make([]time.Time, 0, len(a.days))
	for date := range a.days {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	points := make([]domain.DailyTrendPoint, 0, len(dates))
	for _, date := range dates {
		d := a.days[date]
		pt := domain.DailyTrendPoint{
			Date:            date.Format(domain.DateLayout),
			BiasPercent:     d.bias(),
			WasteCost:       d.wasteCost.Round(2).InexactFloat64(),
			StockoutRevenue: d.stockoutRev.Round(2).InexactFloat64(),
			SampleSize:      d.samples,
			PendingCount:    d.pending,
		}
		if d.samples > 0 {
			acc := d.accuracy()
			pt.Accuracy = &acc
		}
		points = append(points, pt)
	}
	return points
}

// DayAccuracy returns all seven weekdays, Sunday first. Weekdays without
// samples carry a nil accuracy rather than 0%.
func (a *Aggregator) DayAccuracy() []domain.DayAccuracy {
	out := make([]domain.DayAccuracy, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		t := &a.weekdays[wd]
		da := domain.DayAccuracy{
			Weekday:     wd,
			Name:        wd.String(),
			BiasPercent: t.bias(),
			SampleSize:  t.samples,
			LossCost:    t.loss().Round(2).InexactFloat64(),
		}
		if t.samples > 0 {
			acc := t.accuracy()
			da.Accuracy = &acc
		}
		out = append(out, da)
	}
	return out
}

// ProductAccuracy returns products with at least one sample, most accurate first.
func (a *Aggregator) ProductAccuracy() []domain.ProductAccuracy {
	out := make([]domain.ProductAccuracy, 0, len(a.products))
	for id, p := range a.products {
		if p.samples == 0 {
			continue
		}
		out = append(out, domain.ProductAccuracy{
			ProductID:       id,
			ProductName:     p.name,
			Accuracy:        p.accuracy(),
			BiasPercent:     p.bias(),
			SampleSize:      p.samples,
			WasteCost:       p.wasteCost.Round(2).InexactFloat64(),
			StockoutRevenue: p.stockoutRev.Round(2).InexactFloat64(),
		})
	}
	sortProducts(out, true)
	return out
}

// MarketAccuracy returns markets with at least one sample, most accurate first.
func (a *Aggregator) MarketAccuracy() []domain.MarketAccuracy {
	out := make([]domain.MarketAccuracy, 0, len(a.markets))
	for id, m := range a.markets {
		if m.samples == 0 {
			continue
		}
		out = append(out, domain.MarketAccuracy{
			MarketID:        id,
			MarketName:      m.name,
			Accuracy:        m.accuracy(),
			BiasPercent:     m.bias(),
			SampleSize:      m.samples,
			WasteCost:       m.wasteCost.Round(2).InexactFloat64(),
			StockoutRevenue: m.stockoutRev.Round(2).InexactFloat64(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Accuracy != out[j].Accuracy {
			return out[i].Accuracy > out[j].Accuracy
		}
		if out[i].MarketName != out[j].MarketName {
			return out[i].MarketName < out[j].MarketName
		}
		return out[i].MarketID < out[j].MarketID
	})
	return out
}

// Rank splits ranked products into the n best and n worst.
func Rank(products []domain.ProductAccuracy, n int) (top, bottom []domain.ProductAccuracy) {
	top = append([]domain.ProductAccuracy(nil), products...)
	sortProducts(top, true)
	bottom = append([]domain.ProductAccuracy(nil), products...)
	sortProducts(bottom, false)
	if n > 0 && len(top) > n {
		top = top[:n]
		bottom = bottom[:n]
	}
	return top, bottom
}

func sortProducts(products []domain.ProductAccuracy, desc bool) {
	sort.Slice(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if a.Accuracy != b.Accuracy {
			if desc {
				return a.Accuracy > b.Accuracy
			}
			return a.Accuracy < b.Accuracy
		}
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		return a.ProductID < b.ProductID
	})
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
