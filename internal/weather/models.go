package weather

import (
	"time"
)

// City is a monitored location. The list of cities is static, process-wide
// configuration; it is loaded once at startup and never mutated.
type City struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Observation is one persisted weather reading for a city at a point in time.
// Observations are insert-only; rows are never updated after creation.
type Observation struct {
	ID            int64     `json:"id,omitempty"`
	City          string    `json:"city"`
	Temperature   float64   `json:"temperature"`
	FeelsLike     float64   `json:"feels_like"`
	Humidity      float64   `json:"humidity"`
	WindSpeed     float64   `json:"wind_speed"`
	WindDirection float64   `json:"wind_direction"`
	Pressure      float64   `json:"pressure"`
	Condition     string    `json:"weather_condition"`
	RecordedAt    time.Time `json:"recorded_at"` // always UTC
}

// DailySummary aggregates one city's observations for one UTC calendar day.
type DailySummary struct {
	ID                int64     `json:"id,omitempty"`
	City              string    `json:"city"`
	Date              time.Time `json:"date"`
	AvgTemperature    float64   `json:"avg_temperature"`
	MaxTemperature    float64   `json:"max_temperature"`
	MinTemperature    float64   `json:"min_temperature"`
	AvgHumidity       float64   `json:"avg_humidity"`
	AvgWindSpeed      float64   `json:"avg_wind_speed"`
	DominantCondition string    `json:"dominant_condition"`
	CreatedAt         time.Time `json:"created_at,omitempty"`
}

// AlertTypeHighTemperature is raised when an observation's temperature
// strictly exceeds the configured threshold.
const AlertTypeHighTemperature = "HIGH_TEMPERATURE"

// Alert is a persisted threshold violation. Every qualifying observation
// produces a new row; there is no deduplication or cool-down.
type Alert struct {
	ID        int64     `json:"id,omitempty"`
	City      string    `json:"city"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ForecastEntry is one 3-hour slot of a multi-day forecast.
// PrecipProbability is a percentage in [0,100].
type ForecastEntry struct {
	ID                int64     `json:"id,omitempty"`
	City              string    `json:"city"`
	ForecastTime      time.Time `json:"forecast_time"`
	Temperature       float64   `json:"temperature"`
	FeelsLike         float64   `json:"feels_like"`
	Humidity          float64   `json:"humidity"`
	WindSpeed         float64   `json:"wind_speed"`
	Condition         string    `json:"weather_condition"`
	PrecipProbability float64   `json:"probability_precipitation"`
	CreatedAt         time.Time `json:"created_at,omitempty"`
}

// Stats describes a city's readings over a rolling window of days.
type Stats struct {
	City              string  `json:"city"`
	PeriodDays        int     `json:"period_days"`
	AvgTemperature    float64 `json:"avg_temperature"`
	MaxTemperature    float64 `json:"max_temperature"`
	MinTemperature    float64 `json:"min_temperature"`
	ReadingsCount     int     `json:"readings_count"`
	DominantCondition string  `json:"dominant_condition"`
}

// ForecastDaySummary aggregates forecast entries for one calendar date.
// Precipitation probability is intentionally not aggregated.
type ForecastDaySummary struct {
	Date              string  `json:"date"`
	AvgTemperature    float64 `json:"avg_temperature"`
	MaxTemperature    float64 `json:"max_temperature"`
	MinTemperature    float64 `json:"min_temperature"`
	AvgHumidity       float64 `json:"avg_humidity"`
	AvgWindSpeed      float64 `json:"avg_wind_speed"`
	DominantCondition string  `json:"dominant_condition"`
}

// CurrentWeather is the wire shape pushed to live clients and returned by the
// current-weather endpoint.
type CurrentWeather struct {
	Name        string    `json:"name"`
	City        string    `json:"city"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feels_like"`
	Condition   string    `json:"weather_condition"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// AsCurrent projects an observation into the push/wire shape.
func (o Observation) AsCurrent() CurrentWeather {
	return CurrentWeather{
		Name:        o.City,
		City:        o.City,
		Temperature: o.Temperature,
		FeelsLike:   o.FeelsLike,
		Condition:   o.Condition,
		RecordedAt:  o.RecordedAt,
	}
}
