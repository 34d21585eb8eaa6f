package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/citywatch/weather-monitoring/internal/weather"
)

// In-process constants: changing the alert threshold, update cadence, or the
// monitored city list requires a code change, not an env change.
const (
	// TemperatureThreshold is the strict greater-than bound above which an
	// observation raises a HIGH_TEMPERATURE alert.
	TemperatureThreshold = 35.0

	// UpdateInterval is the collection pipeline's tick cadence.
	UpdateInterval = 300 * time.Second

	// FailureBackoff delays the next tick after a failed collection pass.
	// Deliberately longer than UpdateInterval.
	FailureBackoff = 600 * time.Second
)

// Cities returns the fixed list of monitored cities.
func Cities() []weather.City {
	return []weather.City{
		{Name: "Delhi", Lat: 28.6139, Lon: 77.2090},
		{Name: "Mumbai", Lat: 19.0760, Lon: 72.8777},
		{Name: "Chennai", Lat: 13.0827, Lon: 80.2707},
		{Name: "Bangalore", Lat: 12.9716, Lon: 77.5946},
		{Name: "Kolkata", Lat: 22.5726, Lon: 88.3639},
		{Name: "Hyderabad", Lat: 17.3850, Lon: 78.4867},
	}
}

// AppConfig is the environment-driven part of configuration, read once at
// process start.
type AppConfig struct {
	OpenWeatherAPIKey string

	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string

	Port        string
	LogFormat   string // "json" or "text"
	HTTPTimeout time.Duration
}

// DatabaseURL assembles the pgx connection string.
func (c *AppConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		c.DatabaseUser, c.DatabasePassword, c.DatabaseHost, c.DatabasePort, c.DatabaseName)
}

// Load reads configuration from the environment with sensible defaults.
// A missing provider credential is a startup failure.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	if cfg.OpenWeatherAPIKey == "" {
		return nil, fmt.Errorf("OPENWEATHER_API_KEY is required")
	}

	cfg.DatabaseHost = getenvDefault("DATABASE_HOST", "localhost")
	cfg.DatabasePort = getenvInt("DATABASE_PORT", 5432)
	cfg.DatabaseUser = getenvDefault("POSTGRES_USER", "user")
	cfg.DatabasePassword = getenvDefault("POSTGRES_PASSWORD", "password")
	cfg.DatabaseName = getenvDefault("POSTGRES_DB", "weather_db")

	cfg.Port = getenvDefault("PORT", "8000")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "text")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "10s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	return cfg, nil
}

// LoadDotenv loads a .env file when present. Absence is not an error.
func LoadDotenv() error {
	return godotenv.Load()
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
