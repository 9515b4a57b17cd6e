package forecast

import "github.com/andresuchdata/bakeplan/internal/domain"

// weatherFactors maps product category and weather to a demand multiplier
// for an outdoor market. Cold drinks move opposite to hot drinks.
var weatherFactors = map[string]map[domain.Weather]float64{
	domain.CategoryBakery: {
		domain.WeatherSunny:  1.05,
		domain.WeatherCloudy: 1.00,
		domain.WeatherRain:   0.80,
		domain.WeatherStorm:  0.60,
		domain.WeatherWind:   0.90,
		domain.WeatherCold:   0.95,
	},
	domain.CategoryColdBeverage: {
		domain.WeatherSunny:  1.25,
		domain.WeatherCloudy: 1.00,
		domain.WeatherRain:   0.85,
		domain.WeatherStorm:  0.65,
		domain.WeatherWind:   0.95,
		domain.WeatherCold:   0.70,
	},
	domain.CategoryHotBeverage: {
		domain.WeatherSunny:  0.90,
		domain.WeatherCloudy: 1.05,
		domain.WeatherRain:   0.95,
		domain.WeatherStorm:  0.70,
		domain.WeatherWind:   1.00,
		domain.WeatherCold:   1.20,
	},
}

// indoorDamping is the share of the weather effect felt by indoor markets.
const indoorDamping = 0.5

// WeatherFactor returns the demand multiplier for a product category under
// the given weather. Unknown categories use the bakery table; unknown or
// missing weather returns exactly 1.
func WeatherFactor(category string, weather domain.Weather, outdoor bool) float64 {
	table, ok := weatherFactors[category]
	if !ok {
		table = weatherFactors[domain.CategoryBakery]
	}
	factor, ok := table[weather]
	if !ok {
		return 1
	}
	if !outdoor {
		factor = 1 + (factor-1)*indoorDamping
	}
	return factor
}

// AdjustForWeather scales a baseline rate by the weather factor.
func AdjustForWeather(baseline float64, sku domain.SKU, weather domain.Weather) (adjusted, factor float64) {
	factor = WeatherFactor(sku.Category, weather, sku.Outdoor)
	if factor == 1 {
		return baseline, factor
	}
	return baseline * factor, factor
}
