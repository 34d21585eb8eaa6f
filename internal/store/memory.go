package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/citywatch/weather-monitoring/internal/weather"
)

// Memory is a concurrency-safe in-memory implementation of weather.Store.
// It backs tests and mirrors the Postgres store's query semantics: half-open
// time windows, newest-first alerts, oldest-first observations.
type Memory struct {
	mu sync.RWMutex

	observations map[string][]weather.Observation
	summaries    map[string][]weather.DailySummary
	alerts       []weather.Alert
	forecasts    map[string][]weather.ForecastEntry

	nextID int64

	// FailSaves, when set, makes every write fail with the given error.
	// Lets tests exercise the pipeline's persistence-abort path.
	FailSaves error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		observations: make(map[string][]weather.Observation),
		summaries:    make(map[string][]weather.DailySummary),
		forecasts:    make(map[string][]weather.ForecastEntry),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Memory) SaveReading(_ context.Context, obs weather.Observation, alert *weather.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSaves != nil {
		return m.FailSaves
	}

	obs.ID = m.id()
	m.observations[obs.City] = append(m.observations[obs.City], obs)

	if alert != nil {
		a := *alert
		a.ID = m.id()
		if a.CreatedAt.IsZero() {
			a.CreatedAt = time.Now().UTC()
		}
		m.alerts = append(m.alerts, a)
	}
	return nil
}

func (m *Memory) SaveDailySummary(_ context.Context, s weather.DailySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSaves != nil {
		return m.FailSaves
	}

	s.ID = m.id()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	m.summaries[s.City] = append(m.summaries[s.City], s)
	return nil
}

func (m *Memory) SaveForecasts(_ context.Context, entries []weather.ForecastEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSaves != nil {
		return m.FailSaves
	}

	for _, e := range entries {
		e.ID = m.id()
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		m.forecasts[e.City] = append(m.forecasts[e.City], e)
	}
	return nil
}

func (m *Memory) LatestObservation(_ context.Context, city string) (weather.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obs := m.observations[city]
	if len(obs) == 0 {
		return weather.Observation{}, ErrNotFound
	}

	latest := obs[0]
	for _, o := range obs[1:] {
		if o.RecordedAt.After(latest.RecordedAt) {
			latest = o
		}
	}
	return latest, nil
}

func (m *Memory) ObservationsBetween(_ context.Context, city string, from, to time.Time) ([]weather.Observation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []weather.Observation
	for _, o := range m.observations[city] {
		if !o.RecordedAt.Before(from) && o.RecordedAt.Before(to) {
			result = append(result, o)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RecordedAt.Before(result[j].RecordedAt)
	})
	return result, nil
}

func (m *Memory) LatestSummary(_ context.Context, city string) (weather.DailySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := m.summaries[city]
	if len(summaries) == 0 {
		return weather.DailySummary{}, ErrNotFound
	}
	return summaries[len(summaries)-1], nil
}

func (m *Memory) AlertsSince(_ context.Context, since time.Time) ([]weather.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterAlerts(m.alerts, func(a weather.Alert) bool {
		return !a.CreatedAt.Before(since)
	}), nil
}

func (m *Memory) CityAlertsSince(_ context.Context, city string, since time.Time) ([]weather.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterAlerts(m.alerts, func(a weather.Alert) bool {
		return a.City == city && !a.CreatedAt.Before(since)
	}), nil
}

func filterAlerts(alerts []weather.Alert, keep func(weather.Alert) bool) []weather.Alert {
	var result []weather.Alert
	for _, a := range alerts {
		if keep(a) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (m *Memory) ForecastsBetween(_ context.Context, city string, from, to time.Time) ([]weather.ForecastEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []weather.ForecastEntry
	for _, e := range m.forecasts[city] {
		if !e.ForecastTime.Before(from) && e.ForecastTime.Before(to) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ForecastTime.Before(result[j].ForecastTime)
	})
	return result, nil
}

// AlertCount reports the total number of stored alerts, for tests.
func (m *Memory) AlertCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.alerts)
}

// ObservationCount reports the number of stored observations for a city, for tests.
func (m *Memory) ObservationCount(city string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.observations[city])
}

// SummaryCount reports the number of stored summaries for a city, for tests.
func (m *Memory) SummaryCount(city string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.summaries[city])
}
