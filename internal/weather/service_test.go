package weather_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citywatch/weather-monitoring/internal/observability"
	"github.com/citywatch/weather-monitoring/internal/store"
	"github.com/citywatch/weather-monitoring/internal/weather"
)

var testCities = []weather.City{
	{Name: "Delhi", Lat: 28.6139, Lon: 77.2090},
	{Name: "Mumbai", Lat: 19.0760, Lon: 72.8777},
	{Name: "Chennai", Lat: 13.0827, Lon: 80.2707},
}

// stubProvider returns canned observations and forecasts per city, or a
// configured error.
type stubProvider struct {
	temps     map[string]float64
	fail      map[string]error
	forecasts map[string][]weather.ForecastEntry
}

func (p *stubProvider) Current(_ context.Context, city weather.City) (weather.Observation, error) {
	if err, ok := p.fail[city.Name]; ok {
		return weather.Observation{}, err
	}
	return weather.Observation{
		City:        city.Name,
		Temperature: p.temps[city.Name],
		FeelsLike:   p.temps[city.Name] + 1,
		Humidity:    55,
		WindSpeed:   3.2,
		Pressure:    1012,
		Condition:   "Clear",
	}, nil
}

func (p *stubProvider) Forecast(_ context.Context, city weather.City) ([]weather.ForecastEntry, error) {
	if err, ok := p.fail[city.Name]; ok {
		return nil, err
	}
	return p.forecasts[city.Name], nil
}

func newTestService(t *testing.T, mem *store.Memory, provider weather.Provider) (*weather.Service, *clockwork.FakeClock) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	clock := clockwork.NewFakeClockAt(time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	svc := weather.NewService(mem, provider, testCities, 35.0, logger, metrics).WithClock(clock)
	return svc, clock
}

func TestCollectAllStoresEveryCity(t *testing.T) {
	mem := store.NewMemory()
	provider := &stubProvider{temps: map[string]float64{"Delhi": 31, "Mumbai": 29, "Chennai": 33}}
	svc, _ := newTestService(t, mem, provider)

	obs, err := svc.CollectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 3)

	for _, city := range testCities {
		assert.Equal(t, 1, mem.ObservationCount(city.Name))
	}
	assert.Equal(t, 0, mem.AlertCount())
}

func TestCollectAllContinuesPastProviderFailure(t *testing.T) {
	mem := store.NewMemory()
	provider := &stubProvider{
		temps: map[string]float64{"Delhi": 31, "Chennai": 33},
		fail:  map[string]error{"Mumbai": errors.New("gateway timeout")},
	}
	svc, _ := newTestService(t, mem, provider)

	obs, err := svc.CollectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Equal(t, 1, mem.ObservationCount("Delhi"))
	assert.Equal(t, 0, mem.ObservationCount("Mumbai"))
	assert.Equal(t, 1, mem.ObservationCount("Chennai"))
	assert.Equal(t, 0, mem.AlertCount())
}

func TestCollectAllAlertThresholdIsStrict(t *testing.T) {
	mem := store.NewMemory()
	// 36.0 is strictly above the 35.0 threshold; 35.0 exactly is not.
	provider := &stubProvider{temps: map[string]float64{"Delhi": 36.0, "Mumbai": 35.0, "Chennai": 20.0}}
	svc, _ := newTestService(t, mem, provider)

	_, err := svc.CollectAll(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, mem.AlertCount())

	alerts, err := mem.AlertsSince(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Delhi", alerts[0].City)
	assert.Equal(t, weather.AlertTypeHighTemperature, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "36.0")
	assert.Contains(t, alerts[0].Message, "35.0")
}

func TestCollectAllAbortsOnPersistenceFailure(t *testing.T) {
	mem := store.NewMemory()
	mem.FailSaves = errors.New("connection reset")
	provider := &stubProvider{temps: map[string]float64{"Delhi": 31, "Mumbai": 29, "Chennai": 33}}
	svc, _ := newTestService(t, mem, provider)

	obs, err := svc.CollectAll(context.Background())
	require.Error(t, err)
	assert.Empty(t, obs)
}

func TestDailySummaryValues(t *testing.T) {
	mem := store.NewMemory()
	svc, clock := newTestService(t, mem, &stubProvider{})

	day := clock.Now().UTC()
	base := weather.DayStart(day)
	seed := []struct {
		temp float64
		cond string
	}{
		{25.0, "Clear"},
		{27.0, "Clear"},
		{23.0, "Rain"},
	}
	for i, s := range seed {
		err := mem.SaveReading(context.Background(), weather.Observation{
			City:        "Delhi",
			Temperature: s.temp,
			Condition:   s.cond,
			RecordedAt:  base.Add(time.Duration(i) * time.Hour),
		}, nil)
		require.NoError(t, err)
	}

	summary, err := svc.DailySummary(context.Background(), "Delhi", day)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, summary.AvgTemperature, 1e-9)
	assert.InDelta(t, 27.0, summary.MaxTemperature, 1e-9)
	assert.InDelta(t, 23.0, summary.MinTemperature, 1e-9)
	assert.Equal(t, "Clear", summary.DominantCondition)

	// Re-running without new observations yields identical values.
	again, err := svc.DailySummary(context.Background(), "Delhi", day)
	require.NoError(t, err)
	assert.Equal(t, summary, again)
}

func TestDailySummaryUnknownCity(t *testing.T) {
	svc, clock := newTestService(t, store.NewMemory(), &stubProvider{})

	_, err := svc.DailySummary(context.Background(), "Atlantis", clock.Now())
	assert.ErrorIs(t, err, weather.ErrUnknownCity)
}

func TestDailySummaryFallbackFetchesFreshObservation(t *testing.T) {
	mem := store.NewMemory()
	provider := &stubProvider{temps: map[string]float64{"Delhi": 28.5}}
	svc, clock := newTestService(t, mem, provider)

	summary, err := svc.DailySummary(context.Background(), "Delhi", clock.Now())
	require.NoError(t, err)
	assert.InDelta(t, 28.5, summary.AvgTemperature, 1e-9)
	assert.Equal(t, 1, mem.ObservationCount("Delhi"))
}

func TestDailySummaryEmptyWhenFallbackFails(t *testing.T) {
	mem := store.NewMemory()
	provider := &stubProvider{fail: map[string]error{"Delhi": errors.New("unreachable")}}
	svc, clock := newTestService(t, mem, provider)

	_, err := svc.DailySummary(context.Background(), "Delhi", clock.Now())
	assert.ErrorIs(t, err, weather.ErrEmptyDataset)
}

func TestGenerateDailySummaryPersistsRow(t *testing.T) {
	mem := store.NewMemory()
	provider := &stubProvider{temps: map[string]float64{"Delhi": 28.5}}
	svc, _ := newTestService(t, mem, provider)

	_, err := svc.GenerateDailySummary(context.Background(), "Delhi")
	require.NoError(t, err)
	assert.Equal(t, 1, mem.SummaryCount("Delhi"))
}

func TestStatisticsWindow(t *testing.T) {
	mem := store.NewMemory()
	svc, clock := newTestService(t, mem, &stubProvider{})
	now := clock.Now().UTC()

	// Two readings inside the window, one well outside.
	for _, r := range []struct {
		temp float64
		age  time.Duration
	}{
		{30, 24 * time.Hour},
		{34, 48 * time.Hour},
		{10, 10 * 24 * time.Hour},
	} {
		err := mem.SaveReading(context.Background(), weather.Observation{
			City:        "Mumbai",
			Temperature: r.temp,
			Condition:   "Cloudy",
			RecordedAt:  now.Add(-r.age),
		}, nil)
		require.NoError(t, err)
	}

	stats, err := svc.Statistics(context.Background(), "Mumbai", 7)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ReadingsCount)
	assert.InDelta(t, 32.0, stats.AvgTemperature, 1e-9)
}

func TestStatisticsEmptyDataset(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemory(), &stubProvider{})

	_, err := svc.Statistics(context.Background(), "Chennai", 7)
	assert.ErrorIs(t, err, weather.ErrEmptyDataset)
}

func TestStatisticsUnknownCity(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemory(), &stubProvider{})

	_, err := svc.Statistics(context.Background(), "Atlantis", 7)
	assert.ErrorIs(t, err, weather.ErrUnknownCity)
}

func TestCityForecastPersistsEntries(t *testing.T) {
	mem := store.NewMemory()
	base := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)
	provider := &stubProvider{
		forecasts: map[string][]weather.ForecastEntry{
			"Delhi": {
				{City: "Delhi", ForecastTime: base, Temperature: 30, Condition: "Clear", PrecipProbability: 42.0},
				{City: "Delhi", ForecastTime: base.Add(3 * time.Hour), Temperature: 28, Condition: "Rain", PrecipProbability: 80.0},
			},
		},
	}
	svc, _ := newTestService(t, mem, provider)

	entries, err := svc.CityForecast(context.Background(), "Delhi")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	stored, err := mem.ForecastsBetween(context.Background(), "Delhi", base, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestForecastDailySummary(t *testing.T) {
	mem := store.NewMemory()
	svc, clock := newTestService(t, mem, &stubProvider{})
	now := clock.Now().UTC()

	entries := []weather.ForecastEntry{
		{City: "Delhi", ForecastTime: now.Add(2 * time.Hour), Temperature: 30, Humidity: 40, WindSpeed: 3, Condition: "Clear"},
		{City: "Delhi", ForecastTime: now.Add(5 * time.Hour), Temperature: 34, Humidity: 30, WindSpeed: 5, Condition: "Clear"},
		{City: "Delhi", ForecastTime: now.Add(26 * time.Hour), Temperature: 26, Humidity: 60, WindSpeed: 2, Condition: "Rain"},
	}
	require.NoError(t, mem.SaveForecasts(context.Background(), entries))

	summaries, err := svc.ForecastDailySummary(context.Background(), "Delhi", 5)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.InDelta(t, 32.0, summaries[0].AvgTemperature, 1e-9)
	assert.Equal(t, "Clear", summaries[0].DominantCondition)
	assert.Equal(t, "Rain", summaries[1].DominantCondition)
}

func TestForecastDailySummaryUnknownCity(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemory(), &stubProvider{})

	_, err := svc.ForecastDailySummary(context.Background(), "Atlantis", 5)
	assert.ErrorIs(t, err, weather.ErrUnknownCity)
}

func TestOverviewCombinesViews(t *testing.T) {
	mem := store.NewMemory()
	svc, clock := newTestService(t, mem, &stubProvider{})
	now := clock.Now().UTC()

	require.NoError(t, mem.SaveReading(context.Background(), weather.Observation{
		City: "Delhi", Temperature: 36.5, Condition: "Clear", RecordedAt: now,
	}, &weather.Alert{
		City: "Delhi", Type: weather.AlertTypeHighTemperature, Message: "hot", CreatedAt: now,
	}))
	require.NoError(t, mem.SaveDailySummary(context.Background(), weather.DailySummary{
		City: "Delhi", Date: weather.DayStart(now), AvgTemperature: 34,
	}))

	overview, err := svc.Overview(context.Background(), "Delhi")
	require.NoError(t, err)
	assert.InDelta(t, 36.5, overview.CurrentWeather.Temperature, 1e-9)
	require.NotNil(t, overview.DailySummary)
	assert.InDelta(t, 34.0, overview.DailySummary.AvgTemperature, 1e-9)
	require.Len(t, overview.ActiveAlerts, 1)
}

func TestOverviewUnknownCity(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemory(), &stubProvider{})

	_, err := svc.Overview(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, weather.ErrUnknownCity)
}
