package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/citywatch/weather-monitoring/internal/weather"
)

// ErrNotFound is returned when no row exists for the requested city.
var ErrNotFound = errors.New("no weather data for city")

// Postgres implements weather.Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store on an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the four tables if they do not exist. City names are not
// validated against the configured list at this boundary; that is the
// caller's concern.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS observations (
			id BIGSERIAL PRIMARY KEY,
			city TEXT NOT NULL,
			temperature DOUBLE PRECISION NOT NULL,
			feels_like DOUBLE PRECISION NOT NULL,
			humidity DOUBLE PRECISION NOT NULL,
			wind_speed DOUBLE PRECISION NOT NULL,
			wind_direction DOUBLE PRECISION NOT NULL,
			pressure DOUBLE PRECISION NOT NULL,
			weather_condition TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_observations_city_recorded
			ON observations (city, recorded_at)`,
		`CREATE TABLE IF NOT EXISTS daily_summaries (
			id BIGSERIAL PRIMARY KEY,
			city TEXT NOT NULL,
			summary_date TIMESTAMPTZ NOT NULL,
			avg_temperature DOUBLE PRECISION NOT NULL,
			max_temperature DOUBLE PRECISION NOT NULL,
			min_temperature DOUBLE PRECISION NOT NULL,
			avg_humidity DOUBLE PRECISION NOT NULL,
			avg_wind_speed DOUBLE PRECISION NOT NULL,
			dominant_condition TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS weather_alerts (
			id BIGSERIAL PRIMARY KEY,
			city TEXT NOT NULL,
			alert_type TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS weather_forecasts (
			id BIGSERIAL PRIMARY KEY,
			city TEXT NOT NULL,
			forecast_time TIMESTAMPTZ NOT NULL,
			temperature DOUBLE PRECISION NOT NULL,
			feels_like DOUBLE PRECISION NOT NULL,
			humidity DOUBLE PRECISION NOT NULL,
			wind_speed DOUBLE PRECISION NOT NULL,
			weather_condition TEXT NOT NULL,
			precipitation_probability DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_forecasts_city_time
			ON weather_forecasts (city, forecast_time)`,
	}

	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}

// SaveReading persists an observation and its optional alert in one
// transaction, so no observation is ever committed without its alert check's
// outcome.
func (p *Postgres) SaveReading(ctx context.Context, obs weather.Observation, alert *weather.Alert) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO observations (
			city, temperature, feels_like, humidity, wind_speed,
			wind_direction, pressure, weather_condition, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		obs.City, obs.Temperature, obs.FeelsLike, obs.Humidity, obs.WindSpeed,
		obs.WindDirection, obs.Pressure, obs.Condition, obs.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert observation: %w", err)
	}

	if alert != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO weather_alerts (city, alert_type, message)
			VALUES ($1, $2, $3)`,
			alert.City, alert.Type, alert.Message,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert alert: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit reading: %w", err)
	}
	return nil
}

// SaveDailySummary inserts a summary row. Re-running generation for the same
// day inserts another row; uniqueness is deliberately not enforced.
func (p *Postgres) SaveDailySummary(ctx context.Context, s weather.DailySummary) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO daily_summaries (
			city, summary_date, avg_temperature, max_temperature, min_temperature,
			avg_humidity, avg_wind_speed, dominant_condition
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.City, s.Date, s.AvgTemperature, s.MaxTemperature, s.MinTemperature,
		s.AvgHumidity, s.AvgWindSpeed, s.DominantCondition,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert daily summary: %w", err)
	}
	return nil
}

// SaveForecasts bulk-inserts forecast entries from one fetch.
func (p *Postgres) SaveForecasts(ctx context.Context, entries []weather.ForecastEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		_, err = tx.Exec(ctx, `
			INSERT INTO weather_forecasts (
				city, forecast_time, temperature, feels_like, humidity,
				wind_speed, weather_condition, precipitation_probability
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.City, e.ForecastTime, e.Temperature, e.FeelsLike, e.Humidity,
			e.WindSpeed, e.Condition, e.PrecipProbability,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert forecast: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit forecasts: %w", err)
	}
	return nil
}

// LatestObservation returns the most recent observation for a city.
func (p *Postgres) LatestObservation(ctx context.Context, city string) (weather.Observation, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, city, temperature, feels_like, humidity, wind_speed,
			   wind_direction, pressure, weather_condition, recorded_at
		FROM observations
		WHERE city = $1
		ORDER BY recorded_at DESC
		LIMIT 1`, city)

	var o weather.Observation
	err := row.Scan(
		&o.ID, &o.City, &o.Temperature, &o.FeelsLike, &o.Humidity, &o.WindSpeed,
		&o.WindDirection, &o.Pressure, &o.Condition, &o.RecordedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return weather.Observation{}, ErrNotFound
	}
	if err != nil {
		return weather.Observation{}, fmt.Errorf("postgres: latest observation: %w", err)
	}
	return o, nil
}

// ObservationsBetween returns a city's observations with from <= recorded_at < to,
// oldest first.
func (p *Postgres) ObservationsBetween(ctx context.Context, city string, from, to time.Time) ([]weather.Observation, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, city, temperature, feels_like, humidity, wind_speed,
			   wind_direction, pressure, weather_condition, recorded_at
		FROM observations
		WHERE city = $1 AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at ASC`, city, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: query observations: %w", err)
	}
	defer rows.Close()

	var result []weather.Observation
	for rows.Next() {
		var o weather.Observation
		if err := rows.Scan(
			&o.ID, &o.City, &o.Temperature, &o.FeelsLike, &o.Humidity, &o.WindSpeed,
			&o.WindDirection, &o.Pressure, &o.Condition, &o.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan observation: %w", err)
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

// LatestSummary returns the most recently created summary for a city.
func (p *Postgres) LatestSummary(ctx context.Context, city string) (weather.DailySummary, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, city, summary_date, avg_temperature, max_temperature,
			   min_temperature, avg_humidity, avg_wind_speed, dominant_condition, created_at
		FROM daily_summaries
		WHERE city = $1
		ORDER BY created_at DESC
		LIMIT 1`, city)

	var s weather.DailySummary
	err := row.Scan(
		&s.ID, &s.City, &s.Date, &s.AvgTemperature, &s.MaxTemperature,
		&s.MinTemperature, &s.AvgHumidity, &s.AvgWindSpeed, &s.DominantCondition, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return weather.DailySummary{}, ErrNotFound
	}
	if err != nil {
		return weather.DailySummary{}, fmt.Errorf("postgres: latest summary: %w", err)
	}
	return s, nil
}

// AlertsSince returns all alerts created at or after since, newest first.
func (p *Postgres) AlertsSince(ctx context.Context, since time.Time) ([]weather.Alert, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, city, alert_type, message, created_at
		FROM weather_alerts
		WHERE created_at >= $1
		ORDER BY created_at DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: query alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// CityAlertsSince returns one city's alerts created at or after since, newest first.
func (p *Postgres) CityAlertsSince(ctx context.Context, city string, since time.Time) ([]weather.Alert, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, city, alert_type, message, created_at
		FROM weather_alerts
		WHERE city = $1 AND created_at >= $2
		ORDER BY created_at DESC`, city, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: query city alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func scanAlerts(rows pgx.Rows) ([]weather.Alert, error) {
	var result []weather.Alert
	for rows.Next() {
		var a weather.Alert
		if err := rows.Scan(&a.ID, &a.City, &a.Type, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan alert: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// ForecastsBetween returns a city's forecast entries with
// from <= forecast_time < to, ordered by forecast time.
func (p *Postgres) ForecastsBetween(ctx context.Context, city string, from, to time.Time) ([]weather.ForecastEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, city, forecast_time, temperature, feels_like, humidity,
			   wind_speed, weather_condition, precipitation_probability, created_at
		FROM weather_forecasts
		WHERE city = $1 AND forecast_time >= $2 AND forecast_time < $3
		ORDER BY forecast_time ASC`, city, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: query forecasts: %w", err)
	}
	defer rows.Close()

	var result []weather.ForecastEntry
	for rows.Next() {
		var e weather.ForecastEntry
		if err := rows.Scan(
			&e.ID, &e.City, &e.ForecastTime, &e.Temperature, &e.FeelsLike, &e.Humidity,
			&e.WindSpeed, &e.Condition, &e.PrecipProbability, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan forecast: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// Health checks database connectivity.
func (p *Postgres) Health(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
