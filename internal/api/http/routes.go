package httpapi

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/citywatch/weather-monitoring/internal/broadcast"
	"github.com/citywatch/weather-monitoring/internal/store"
	"github.com/citywatch/weather-monitoring/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers and the WebSocket push channel into
// the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, hub *broadcast.Hub) {
	api := app.Group("/api")

	api.Get("/current-weather", func(c *fiber.Ctx) error {
		observations, err := service.CollectAll(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to collect weather data")
		}

		current := make([]weather.CurrentWeather, 0, len(observations))
		for _, o := range observations {
			current = append(current, o.AsCurrent())
		}
		hub.Broadcast(current)
		return c.JSON(current)
	})

	api.Get("/daily-summaries", func(c *fiber.Ctx) error {
		// Cities with no data are silently omitted.
		summaries := make([]weather.DailySummary, 0, len(service.Cities()))
		now := time.Now().UTC()
		for _, city := range service.Cities() {
			summary, err := service.DailySummary(c.Context(), city.Name, now)
			if err != nil {
				continue
			}
			summaries = append(summaries, summary)
		}
		return c.JSON(summaries)
	})

	api.Get("/alerts", func(c *fiber.Ctx) error {
		alerts, err := service.ActiveAlerts(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch alerts")
		}
		if alerts == nil {
			alerts = []weather.Alert{}
		}
		return c.JSON(alerts)
	})

	api.Get("/weather/:city", func(c *fiber.Ctx) error {
		overview, err := service.Overview(c.Context(), c.Params("city"))
		switch {
		case errors.Is(err, weather.ErrUnknownCity):
			return fiber.NewError(fiber.StatusNotFound, "City not found")
		case errors.Is(err, store.ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, "No weather data for city")
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch city weather")
		}
		return c.JSON(overview)
	})

	api.Get("/statistics/:city", func(c *fiber.Ctx) error {
		days, err := parseDays(c, 7, 30)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		stats, err := service.Statistics(c.Context(), c.Params("city"), days)
		switch {
		case errors.Is(err, weather.ErrUnknownCity):
			return fiber.NewError(fiber.StatusNotFound, "City not found")
		case errors.Is(err, weather.ErrEmptyDataset):
			return fiber.NewError(fiber.StatusNotFound, "No readings in requested window")
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, "failed to compute statistics")
		}
		return c.JSON(stats)
	})

	// The summary route must be registered before the parameterized
	// forecast route so "summary" is not captured as a city name.
	api.Get("/forecast/summary/:city", func(c *fiber.Ctx) error {
		days, err := parseDays(c, 5, 7)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		summaries, err := service.ForecastDailySummary(c.Context(), c.Params("city"), days)
		switch {
		case errors.Is(err, weather.ErrUnknownCity):
			return fiber.NewError(fiber.StatusNotFound, "City not found")
		case errors.Is(err, weather.ErrEmptyDataset):
			return c.JSON([]weather.ForecastDaySummary{})
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, "failed to summarize forecast")
		}
		return c.JSON(summaries)
	})

	api.Get("/forecast/:city", func(c *fiber.Ctx) error {
		entries, err := service.CityForecast(c.Context(), c.Params("city"))
		switch {
		case errors.Is(err, weather.ErrUnknownCity):
			return fiber.NewError(fiber.StatusNotFound, "City not found")
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch forecast")
		}
		return c.JSON(entries)
	})

	registerPushChannel(app, hub)
}

// statsDays and forecastDays bound the days query parameter per endpoint.
type statsDays struct {
	Days int `validate:"min=1,max=30"`
}

type forecastDays struct {
	Days int `validate:"min=1,max=7"`
}

func parseDays(c *fiber.Ctx, def, max int) (int, error) {
	raw := c.Query("days")
	if raw == "" {
		return def, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("days must be an integer")
	}

	var verr error
	if max == 7 {
		verr = validate.Struct(forecastDays{Days: days})
	} else {
		verr = validate.Struct(statsDays{Days: days})
	}
	if verr != nil {
		return 0, errors.New("days out of range")
	}
	return days, nil
}

// registerPushChannel exposes the persistent push channel at /ws. Every
// scheduler tick's collection result is delivered to all connected clients.
func registerPushChannel(app *fiber.App, hub *broadcast.Hub) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		client := &wsClient{conn: conn}
		hub.Register(client)
		defer hub.Unregister(client)

		// Inbound messages are ignored; reading only detects disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

// wsClient adapts a websocket connection to broadcast.Client. The mutex
// serializes writes between the scheduler's fan-out and on-demand collection
// triggered by API requests.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}
