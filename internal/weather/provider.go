package weather

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnknownCity is returned when a requested city is not configured.
	ErrUnknownCity = errors.New("unknown city")

	// ErrEmptyDataset is returned when a known city has no rows in the
	// requested window. Callers must treat it as "no result", not a failure.
	ErrEmptyDataset = errors.New("no data in requested window")
)

// Provider abstracts the external weather API. Implementations perform a
// single network call per method and do not retry across cities; per-city
// retry policy belongs to the caller.
type Provider interface {
	// Current fetches current conditions for one city in metric units.
	Current(ctx context.Context, city City) (Observation, error)

	// Forecast fetches the multi-day forecast for one city, typically ~40
	// entries covering 5 days at 3-hour resolution.
	Forecast(ctx context.Context, city City) ([]ForecastEntry, error)
}

// Store is the persistence contract shared by the PostgreSQL store and the
// in-memory store used in tests.
type Store interface {
	// SaveReading persists an observation and, when alert is non-nil, its
	// alert row in a single transaction.
	SaveReading(ctx context.Context, obs Observation, alert *Alert) error

	SaveDailySummary(ctx context.Context, s DailySummary) error
	SaveForecasts(ctx context.Context, entries []ForecastEntry) error

	LatestObservation(ctx context.Context, city string) (Observation, error)
	ObservationsBetween(ctx context.Context, city string, from, to time.Time) ([]Observation, error)

	LatestSummary(ctx context.Context, city string) (DailySummary, error)

	AlertsSince(ctx context.Context, since time.Time) ([]Alert, error)
	CityAlertsSince(ctx context.Context, city string, since time.Time) ([]Alert, error)

	ForecastsBetween(ctx context.Context, city string, from, to time.Time) ([]ForecastEntry, error)
}
