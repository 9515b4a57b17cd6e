package forecast

// Params tunes the forecasting engine. Zero values fall back to defaults.
type Params struct {
	LookbackDays       int     // Days of sales history considered
	SameWeekdaySamples int     // Trailing same-weekday occurrences used
	FallbackSamples    int     // Trailing days used when same-weekday history is short
	MinSamples         int     // Minimum observations required to estimate demand
	OutlierK           float64 // Scaled-MAD multiple beyond which a point is an outlier
	RecencyDecay       float64 // Weight multiplier per step back in time, in (0,1]
	IntervalWidth      float64 // Central mass of the prediction interval
	ConfidenceScale    float64 // Sample size at which confidence reaches ~63%
	ServiceLevel       float64 // Default service level; 0 uses the critical fractile
}

// DefaultParams returns sensible defaults
func DefaultParams() Params {
	return Params{
		LookbackDays:       84,
		SameWeekdaySamples: 8,
		FallbackSamples:    28,
		MinSamples:         3,
		OutlierK:           3.0,
		RecencyDecay:       1.0,
		IntervalWidth:      0.90,
		ConfidenceScale:    8,
		ServiceLevel:       0,
	}
}

// withDefaults fills unset fields from DefaultParams.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.LookbackDays <= 0 {
		p.LookbackDays = d.LookbackDays
	}
	if p.SameWeekdaySamples <= 0 {
		p.SameWeekdaySamples = d.SameWeekdaySamples
	}
	if p.FallbackSamples <= 0 {
		p.FallbackSamples = d.FallbackSamples
	}
	if p.MinSamples <= 0 {
		p.MinSamples = d.MinSamples
	}
	if p.OutlierK <= 0 {
		p.OutlierK = d.OutlierK
	}
	if p.RecencyDecay <= 0 || p.RecencyDecay > 1 {
		p.RecencyDecay = d.RecencyDecay
	}
	if p.IntervalWidth <= 0 || p.IntervalWidth >= 1 {
		p.IntervalWidth = d.IntervalWidth
	}
	if p.ConfidenceScale <= 0 {
		p.ConfidenceScale = d.ConfidenceScale
	}
	if p.ServiceLevel < 0 || p.ServiceLevel >= 1 {
		p.ServiceLevel = d.ServiceLevel
	}
	return p
}
