package weather

import (
	"sort"
	"time"
)

// DominantCondition returns the most frequent condition label. Frequency ties
// are broken by the lexicographically smallest label so the result does not
// depend on map iteration order.
func DominantCondition(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}

	counts := make(map[string]int, len(conditions))
	for _, c := range conditions {
		counts[c]++
	}

	best := ""
	bestCount := 0
	for cond, count := range counts {
		if count > bestCount || (count == bestCount && cond < best) {
			bestCount = count
			best = cond
		}
	}
	return best
}

// SummarizeObservations reduces a non-empty day's observations into a
// DailySummary. The caller is responsible for short-circuiting empty sets.
func SummarizeObservations(city string, date time.Time, obs []Observation) DailySummary {
	var (
		sumTemp  float64
		sumHum   float64
		sumWind  float64
		maxTemp  = obs[0].Temperature
		minTemp  = obs[0].Temperature
		condList = make([]string, 0, len(obs))
	)

	for _, o := range obs {
		sumTemp += o.Temperature
		sumHum += o.Humidity
		sumWind += o.WindSpeed
		if o.Temperature > maxTemp {
			maxTemp = o.Temperature
		}
		if o.Temperature < minTemp {
			minTemp = o.Temperature
		}
		condList = append(condList, o.Condition)
	}

	n := float64(len(obs))
	return DailySummary{
		City:              city,
		Date:              DayStart(date),
		AvgTemperature:    sumTemp / n,
		MaxTemperature:    maxTemp,
		MinTemperature:    minTemp,
		AvgHumidity:       sumHum / n,
		AvgWindSpeed:      sumWind / n,
		DominantCondition: DominantCondition(condList),
	}
}

// SummarizeWindow reduces a non-empty rolling window of observations into
// Stats.
func SummarizeWindow(city string, days int, obs []Observation) Stats {
	var (
		sumTemp  float64
		maxTemp  = obs[0].Temperature
		minTemp  = obs[0].Temperature
		condList = make([]string, 0, len(obs))
	)

	for _, o := range obs {
		sumTemp += o.Temperature
		if o.Temperature > maxTemp {
			maxTemp = o.Temperature
		}
		if o.Temperature < minTemp {
			minTemp = o.Temperature
		}
		condList = append(condList, o.Condition)
	}

	return Stats{
		City:              city,
		PeriodDays:        days,
		AvgTemperature:    sumTemp / float64(len(obs)),
		MaxTemperature:    maxTemp,
		MinTemperature:    minTemp,
		ReadingsCount:     len(obs),
		DominantCondition: DominantCondition(condList),
	}
}

// SummarizeForecasts buckets forecast entries by UTC calendar date and reduces
// each bucket to per-day aggregates, ordered by date ascending. Precipitation
// probability is not aggregated.
func SummarizeForecasts(entries []ForecastEntry) []ForecastDaySummary {
	type bucket struct {
		temps      []float64
		humidity   []float64
		windSpeeds []float64
		conditions []string
	}

	buckets := make(map[string]*bucket)
	for _, e := range entries {
		day := e.ForecastTime.UTC().Format("2006-01-02")
		b, ok := buckets[day]
		if !ok {
			b = &bucket{}
			buckets[day] = b
		}
		b.temps = append(b.temps, e.Temperature)
		b.humidity = append(b.humidity, e.Humidity)
		b.windSpeeds = append(b.windSpeeds, e.WindSpeed)
		b.conditions = append(b.conditions, e.Condition)
	}

	days := make([]string, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Strings(days)

	summaries := make([]ForecastDaySummary, 0, len(days))
	for _, day := range days {
		b := buckets[day]
		summaries = append(summaries, ForecastDaySummary{
			Date:              day,
			AvgTemperature:    mean(b.temps),
			MaxTemperature:    maxOf(b.temps),
			MinTemperature:    minOf(b.temps),
			AvgHumidity:       mean(b.humidity),
			AvgWindSpeed:      mean(b.windSpeeds),
			DominantCondition: DominantCondition(b.conditions),
		})
	}
	return summaries
}

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
