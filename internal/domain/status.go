package domain

import "strings"

// ComparisonStatus classifies a forecast against realized sales.
type ComparisonStatus string

const (
	StatusPending       ComparisonStatus = "pending"
	StatusMatchedExact  ComparisonStatus = "matched-exact"
	StatusOverProduced  ComparisonStatus = "over-produced"
	StatusUnderProduced ComparisonStatus = "under-produced"
)

// Weather is a forecast weather category.
type Weather string

const (
	WeatherSunny  Weather = "sunny"
	WeatherCloudy Weather = "cloudy"
	WeatherRain   Weather = "rain"
	WeatherStorm  Weather = "storm"
	WeatherWind   Weather = "wind"
	WeatherCold   Weather = "cold"
	WeatherNone   Weather = "none"
)

var weatherAliases = map[string]Weather{
	"sunny":  WeatherSunny,
	"sun":    WeatherSunny,
	"clear":  WeatherSunny,
	"hot":    WeatherSunny,
	"cloudy": WeatherCloudy,
	"clouds": WeatherCloudy,
	"rain":   WeatherRain,
	"rainy":  WeatherRain,
	"storm":  WeatherStorm,
	"stormy": WeatherStorm,
	"wind":   WeatherWind,
	"windy":  WeatherWind,
	"cold":   WeatherCold,
}

// ParseWeather maps a free-form label to a weather category (case-insensitive).
// Unknown labels map to WeatherNone.
func ParseWeather(label string) Weather {
	if w, ok := weatherAliases[strings.ToLower(strings.TrimSpace(label))]; ok {
		return w
	}
	return WeatherNone
}

// Product categories understood by the weather table.
const (
	CategoryBakery       = "bakery"
	CategoryColdBeverage = "cold_beverage"
	CategoryHotBeverage  = "hot_beverage"
)

// Recommendation target types and priorities.
const (
	RecommendationProduct = "product"
	RecommendationMarket  = "market"
	RecommendationDay     = "day"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
)
