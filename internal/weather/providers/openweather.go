package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/citywatch/weather-monitoring/internal/weather"
)

// OpenWeatherProvider implements weather.Provider against OpenWeatherMap's
// current-weather and 5-day/3-hour forecast endpoints. All requests use
// metric units and coordinate-based lookup.
type OpenWeatherProvider struct {
	apiKey      string
	currentURL  string
	forecastURL string
	httpCfg     HTTPClientConfig
	circuit     *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenWeatherProvider{
		apiKey:      apiKey,
		currentURL:  "https://api.openweathermap.org/data/2.5/weather",
		forecastURL: "https://api.openweathermap.org/data/2.5/forecast",
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

func (p *OpenWeatherProvider) query(city weather.City) url.Values {
	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	values.Set("lat", strconv.FormatFloat(city.Lat, 'f', 4, 64))
	values.Set("lon", strconv.FormatFloat(city.Lon, 'f', 4, 64))
	return values
}

func (p *OpenWeatherProvider) get(ctx context.Context, base string, city weather.City) (*http.Response, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: api key is not configured", ErrProvider)
	}

	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s?%s", base, p.query(city).Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return resp, nil
}

type currentPayload struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

// Current fetches current conditions for one city.
func (p *OpenWeatherProvider) Current(ctx context.Context, city weather.City) (weather.Observation, error) {
	resp, err := p.get(ctx, p.currentURL, city)
	if err != nil {
		return weather.Observation{}, err
	}
	defer resp.Body.Close()

	var payload currentPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, fmt.Errorf("%w: decode current response: %v", ErrProvider, err)
	}

	return weather.Observation{
		City:          city.Name,
		Temperature:   payload.Main.Temp,
		FeelsLike:     payload.Main.FeelsLike,
		Humidity:      payload.Main.Humidity,
		WindSpeed:     payload.Wind.Speed,
		WindDirection: payload.Wind.Deg,
		Pressure:      payload.Main.Pressure,
		Condition:     mainCondition(payload.Weather),
		RecordedAt:    time.Now().UTC(),
	}, nil
}

type forecastPayload struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  float64 `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}

// Forecast fetches the 5-day/3-hour forecast for one city. The provider's
// precipitation probability is a fraction in [0,1]; it is scaled to [0,100].
func (p *OpenWeatherProvider) Forecast(ctx context.Context, city weather.City) ([]weather.ForecastEntry, error) {
	resp, err := p.get(ctx, p.forecastURL, city)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload forecastPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode forecast response: %v", ErrProvider, err)
	}

	entries := make([]weather.ForecastEntry, 0, len(payload.List))
	for _, item := range payload.List {
		entries = append(entries, weather.ForecastEntry{
			City:              city.Name,
			ForecastTime:      time.Unix(item.Dt, 0).UTC(),
			Temperature:       item.Main.Temp,
			FeelsLike:         item.Main.FeelsLike,
			Humidity:          item.Main.Humidity,
			WindSpeed:         item.Wind.Speed,
			Condition:         mainCondition(item.Weather),
			PrecipProbability: item.Pop * 100,
		})
	}
	return entries, nil
}

func mainCondition(items []struct {
	Main string `json:"main"`
}) string {
	if len(items) == 0 {
		return "Unknown"
	}
	return items[0].Main
}
