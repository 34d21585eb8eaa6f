package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/citywatch/weather-monitoring/internal/observability"
)

// Service owns the collection pipeline and the aggregation operations over
// the store. All timestamps are UTC.
type Service struct {
	store     Store
	provider  Provider
	cities    []City
	threshold float64
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewService creates a Service. threshold is the temperature above which an
// observation raises a HIGH_TEMPERATURE alert (strict greater-than).
func NewService(store Store, provider Provider, cities []City, threshold float64, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:     store,
		provider:  provider,
		cities:    cities,
		threshold: threshold,
		clock:     clockwork.NewRealClock(),
		logger:    logger.With("component", "weather"),
		metrics:   metrics,
	}
}

// WithClock swaps the time source, for tests.
func (s *Service) WithClock(c clockwork.Clock) *Service {
	s.clock = c
	return s
}

// Cities returns the configured city list.
func (s *Service) Cities() []City {
	return s.cities
}

// CityByName resolves a configured city or fails with ErrUnknownCity.
func (s *Service) CityByName(name string) (City, error) {
	for _, c := range s.cities {
		if c.Name == name {
			return c, nil
		}
	}
	return City{}, fmt.Errorf("%w: %s", ErrUnknownCity, name)
}

// CollectAll runs one collection pass over every configured city: fetch
// current conditions, persist the observation together with its alert check
// in one transaction, and continue past per-city provider failures. A
// persistence failure aborts the pass and surfaces to the caller; the
// observations collected before the failure are still returned.
func (s *Service) CollectAll(ctx context.Context) ([]Observation, error) {
	start := s.clock.Now()
	s.metrics.CollectionRuns.Inc()
	defer func() {
		s.metrics.CollectionDuration.Observe(s.clock.Since(start).Seconds())
	}()

	collected := make([]Observation, 0, len(s.cities))
	for _, city := range s.cities {
		obs, err := s.provider.Current(ctx, city)
		if err != nil {
			if ctx.Err() != nil {
				return collected, ctx.Err()
			}
			// Skip this city for the tick; the batch continues.
			s.metrics.ProviderErrors.Inc()
			s.logger.Error("fetch failed", "city", city.Name, "error", err)
			continue
		}

		obs.RecordedAt = s.clock.Now().UTC()
		if err := s.persistReading(ctx, obs); err != nil {
			// Persistence failure aborts the unit of work.
			s.logger.Error("persist failed", "city", city.Name, "error", err)
			return collected, err
		}
		collected = append(collected, obs)
	}
	return collected, nil
}

// persistReading stores an observation and its alert evaluation atomically.
// The alert check is always evaluated against the same observation that is
// being persisted.
func (s *Service) persistReading(ctx context.Context, obs Observation) error {
	var alert *Alert
	if obs.Temperature > s.threshold {
		alert = &Alert{
			City:    obs.City,
			Type:    AlertTypeHighTemperature,
			Message: fmt.Sprintf("Temperature %.1f°C exceeds threshold of %.1f°C", obs.Temperature, s.threshold),
		}
	}

	if err := s.store.SaveReading(ctx, obs, alert); err != nil {
		return fmt.Errorf("save reading for %s: %w", obs.City, err)
	}

	s.metrics.ObservationsStored.Inc()
	if alert != nil {
		s.metrics.AlertsRaised.Inc()
		s.logger.Warn("temperature alert",
			"city", obs.City,
			"temperature", obs.Temperature,
			"threshold", s.threshold)
	}
	s.logger.Info("observation stored", "city", obs.City, "temperature", obs.Temperature)
	return nil
}

// DailySummary computes the aggregate view of a city's observations for the
// UTC day containing date. When the day has no rows yet it falls back to
// fetching one fresh observation to seed the summary; a city outside the
// configured list fails with ErrUnknownCity, a day with no rows (and a failed
// fallback) with ErrEmptyDataset.
func (s *Service) DailySummary(ctx context.Context, cityName string, date time.Time) (DailySummary, error) {
	city, err := s.CityByName(cityName)
	if err != nil {
		return DailySummary{}, err
	}

	from := DayStart(date)
	to := from.Add(24 * time.Hour)

	obs, err := s.store.ObservationsBetween(ctx, cityName, from, to)
	if err != nil {
		return DailySummary{}, err
	}

	if len(obs) == 0 {
		fresh, ferr := s.fetchAndPersist(ctx, city)
		if ferr != nil {
			s.logger.Error("summary fallback fetch failed", "city", cityName, "error", ferr)
			return DailySummary{}, ErrEmptyDataset
		}
		if fresh.RecordedAt.Before(from) || !fresh.RecordedAt.Before(to) {
			// The fresh reading landed outside the requested day.
			return DailySummary{}, ErrEmptyDataset
		}
		obs = []Observation{fresh}
	}

	return SummarizeObservations(cityName, from, obs), nil
}

// fetchAndPersist runs the single-city fetch-persist-alert sequence outside a
// scheduled tick. Used by the daily-summary fallback.
func (s *Service) fetchAndPersist(ctx context.Context, city City) (Observation, error) {
	obs, err := s.provider.Current(ctx, city)
	if err != nil {
		s.metrics.ProviderErrors.Inc()
		return Observation{}, err
	}
	obs.RecordedAt = s.clock.Now().UTC()
	if err := s.persistReading(ctx, obs); err != nil {
		return Observation{}, err
	}
	return obs, nil
}

// GenerateDailySummary computes and persists a city's summary for the current
// UTC day. Used by the scheduler's once-per-day trigger.
func (s *Service) GenerateDailySummary(ctx context.Context, cityName string) (DailySummary, error) {
	summary, err := s.DailySummary(ctx, cityName, s.clock.Now())
	if err != nil {
		return DailySummary{}, err
	}
	if err := s.store.SaveDailySummary(ctx, summary); err != nil {
		return DailySummary{}, err
	}
	s.metrics.SummariesGenerated.Inc()
	s.logger.Info("daily summary generated", "city", cityName, "date", summary.Date.Format("2006-01-02"))
	return summary, nil
}

// Statistics aggregates a rolling window of windowDays ending now.
func (s *Service) Statistics(ctx context.Context, cityName string, windowDays int) (Stats, error) {
	if _, err := s.CityByName(cityName); err != nil {
		return Stats{}, err
	}

	now := s.clock.Now().UTC()
	from := now.AddDate(0, 0, -windowDays)

	obs, err := s.store.ObservationsBetween(ctx, cityName, from, now)
	if err != nil {
		return Stats{}, err
	}
	if len(obs) == 0 {
		return Stats{}, ErrEmptyDataset
	}

	return SummarizeWindow(cityName, windowDays, obs), nil
}

// CityForecast fetches a fresh multi-day forecast for a configured city,
// persists the entries in bulk, and returns them.
func (s *Service) CityForecast(ctx context.Context, cityName string) ([]ForecastEntry, error) {
	city, err := s.CityByName(cityName)
	if err != nil {
		return nil, err
	}

	entries, err := s.provider.Forecast(ctx, city)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveForecasts(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ForecastDailySummary groups persisted forecast entries within horizonDays
// from now into per-day aggregates.
func (s *Service) ForecastDailySummary(ctx context.Context, cityName string, horizonDays int) ([]ForecastDaySummary, error) {
	if _, err := s.CityByName(cityName); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	until := now.AddDate(0, 0, horizonDays)

	entries, err := s.store.ForecastsBetween(ctx, cityName, now, until)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEmptyDataset
	}

	return SummarizeForecasts(entries), nil
}

// CityOverview is the combined per-city view: latest observation, latest
// summary, and alerts from the last 24 hours.
type CityOverview struct {
	CurrentWeather Observation   `json:"current_weather"`
	DailySummary   *DailySummary `json:"daily_summary"`
	ActiveAlerts   []Alert       `json:"active_alerts"`
}

// Overview builds the combined view for one configured city.
func (s *Service) Overview(ctx context.Context, cityName string) (CityOverview, error) {
	if _, err := s.CityByName(cityName); err != nil {
		return CityOverview{}, err
	}

	current, err := s.store.LatestObservation(ctx, cityName)
	if err != nil {
		return CityOverview{}, err
	}

	overview := CityOverview{
		CurrentWeather: current,
		ActiveAlerts:   []Alert{},
	}

	if summary, err := s.store.LatestSummary(ctx, cityName); err == nil {
		overview.DailySummary = &summary
	}

	since := s.clock.Now().UTC().Add(-24 * time.Hour)
	if alerts, err := s.store.CityAlertsSince(ctx, cityName, since); err == nil && alerts != nil {
		overview.ActiveAlerts = alerts
	}

	return overview, nil
}

// ActiveAlerts returns all alerts from the last 24 hours, newest first.
func (s *Service) ActiveAlerts(ctx context.Context) ([]Alert, error) {
	since := s.clock.Now().UTC().Add(-24 * time.Hour)
	return s.store.AlertsSince(ctx, since)
}
