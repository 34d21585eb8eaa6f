package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citywatch/weather-monitoring/internal/weather"
)

var delhi = weather.City{Name: "Delhi", Lat: 28.6139, Lon: 77.2090}

func newTestProvider(serverURL string) *OpenWeatherProvider {
	p := NewOpenWeatherProvider(&http.Client{Timeout: 2 * time.Second}, "test-key")
	p.currentURL = serverURL
	p.forecastURL = serverURL
	// Keep failure tests fast.
	p.httpCfg.Backoff = BackoffConfig{
		MaxRetries:      0,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}
	return p
}

func TestCurrentMapsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "28.6139", q.Get("lat"))
		assert.Equal(t, "77.2090", q.Get("lon"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"dt": 1756720000,
			"main": {"temp": 31.4, "feels_like": 33.8, "humidity": 58, "pressure": 1006},
			"wind": {"speed": 4.1, "deg": 230},
			"weather": [{"main": "Haze"}]
		}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	obs, err := p.Current(context.Background(), delhi)
	require.NoError(t, err)

	assert.Equal(t, "Delhi", obs.City)
	assert.InDelta(t, 31.4, obs.Temperature, 1e-9)
	assert.InDelta(t, 33.8, obs.FeelsLike, 1e-9)
	assert.InDelta(t, 58.0, obs.Humidity, 1e-9)
	assert.InDelta(t, 4.1, obs.WindSpeed, 1e-9)
	assert.InDelta(t, 230.0, obs.WindDirection, 1e-9)
	assert.InDelta(t, 1006.0, obs.Pressure, 1e-9)
	assert.Equal(t, "Haze", obs.Condition)
	assert.False(t, obs.RecordedAt.IsZero())
}

func TestForecastScalesPrecipitationProbability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"list": [
				{
					"dt": 1756730000,
					"main": {"temp": 29.0, "feels_like": 31.0, "humidity": 70},
					"wind": {"speed": 3.0},
					"weather": [{"main": "Rain"}],
					"pop": 0.42
				},
				{
					"dt": 1756740800,
					"main": {"temp": 27.5, "feels_like": 28.0, "humidity": 75},
					"wind": {"speed": 2.2},
					"weather": [{"main": "Clouds"}],
					"pop": 1
				}
			]
		}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	entries, err := p.Forecast(context.Background(), delhi)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.InDelta(t, 42.0, entries[0].PrecipProbability, 1e-9)
	assert.InDelta(t, 100.0, entries[1].PrecipProbability, 1e-9)
	assert.Equal(t, "Rain", entries[0].Condition)
	assert.Equal(t, time.Unix(1756730000, 0).UTC(), entries[0].ForecastTime)
}

func TestCurrentFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	_, err := p.Current(context.Background(), delhi)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestCurrentFailsOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"main": `))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	_, err := p.Current(context.Background(), delhi)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestCurrentFailsWithoutAPIKey(t *testing.T) {
	p := NewOpenWeatherProvider(&http.Client{}, "")
	_, err := p.Current(context.Background(), delhi)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestMainConditionEmpty(t *testing.T) {
	assert.Equal(t, "Unknown", mainCondition(nil))
}
