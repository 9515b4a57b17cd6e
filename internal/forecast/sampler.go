package forecast

import (
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/bakeplan/internal/domain"
)

// SampleMode records which history bucket a sample was drawn from.
type SampleMode string

const (
	SampleSameWeekday SampleMode = "same_weekday"
	SampleAllDays     SampleMode = "all_days"
)

// Sample is the historical demand drawn for one SKU and target date,
// ordered oldest first.
type Sample struct {
	Observations []domain.DemandObservation
	Mode         SampleMode
}

// SampleHistory extracts the observations relevant to targetDate from a
// SKU's sales log. Quantities sold on the same day are summed. Only days
// inside the lookback window and strictly before targetDate count.
//
// The trailing same-weekday occurrences are preferred; when there are fewer
// than MinSamples of them, the trailing days of any weekday are used. If
// that still leaves fewer than MinSamples, ErrInsufficientHistory is
// returned together with whatever was found.
func SampleHistory(history []domain.SaleRecord, targetDate time.Time, params Params) (Sample, error) {
	p := params.withDefaults()
	target := domain.DateOf(targetDate)
	windowStart := target.AddDate(0, 0, -p.LookbackDays)

	daily := make(map[time.Time]float64)
	for _, rec := range history {
		day := domain.DateOf(rec.SaleDate)
		if day.Before(windowStart) || !day.Before(target) {
			continue
		}
		daily[day] += float64(rec.QuantitySold)
	}

	days := make([]time.Time, 0, len(daily))
	for day := range daily {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	var sameWeekday []time.Time
	for _, day := range days {
		if day.Weekday() == target.Weekday() {
			sameWeekday = append(sameWeekday, day)
		}
	}

	mode := SampleSameWeekday
	picked := tail(sameWeekday, p.SameWeekdaySamples)
	if len(picked) < p.MinSamples {
		mode = SampleAllDays
		picked = tail(days, p.FallbackSamples)
	}

	obs := make([]domain.DemandObservation, 0, len(picked))
	for _, day := range picked {
		obs = append(obs, domain.DemandObservation{Date: day, Quantity: daily[day]})
	}

	sample := Sample{Observations: obs, Mode: mode}
	if len(obs) < p.MinSamples {
		return sample, fmt.Errorf("%w: %d of %d observations before %s",
			domain.ErrInsufficientHistory, len(obs), p.MinSamples, target.Format(domain.DateLayout))
	}
	return sample, nil
}

func tail(days []time.Time, n int) []time.Time {
	if len(days) <= n {
		return days
	}
	return days[len(days)-n:]
}
