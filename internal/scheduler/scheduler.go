package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"

	"github.com/citywatch/weather-monitoring/internal/broadcast"
	"github.com/citywatch/weather-monitoring/internal/weather"
)

// Collector is the slice of the weather service the scheduler drives.
type Collector interface {
	CollectAll(ctx context.Context) ([]weather.Observation, error)
	GenerateDailySummary(ctx context.Context, city string) (weather.DailySummary, error)
	Cities() []weather.City
}

// Scheduler runs the collection pipeline on a fixed interval and the
// daily-summary generation once per UTC day. A tick never terminates the
// scheduler: failures are logged, a fixed backoff delays the next tick, and
// ticking resumes.
type Scheduler struct {
	scheduler *gocron.Scheduler
	collector Collector
	hub       *broadcast.Hub
	interval  time.Duration
	backoff   time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger

	mu sync.Mutex
	// lastSummaryDate guards daily-summary generation: one run per UTC date,
	// even though ticks keep firing throughout hour 0.
	lastSummaryDate string
}

// New creates a Scheduler. failureBackoff should be longer than interval.
func New(collector Collector, hub *broadcast.Hub, interval, failureBackoff time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		collector: collector,
		hub:       hub,
		interval:  interval,
		backoff:   failureBackoff,
		clock:     clockwork.NewRealClock(),
		logger:    logger.With("component", "scheduler"),
	}
}

// WithClock swaps the time source, for tests.
func (s *Scheduler) WithClock(c clockwork.Clock) *Scheduler {
	s.clock = c
	return s
}

// Start schedules the periodic tick and starts the underlying scheduler.
// SingletonMode keeps at most one collection in flight: a provider call that
// outlives the interval delays the next tick instead of overlapping it.
func (s *Scheduler) Start() error {
	// Summaries for the day the process started in would cover a partial
	// day; generation begins at the first date rollover.
	s.mu.Lock()
	s.lastSummaryDate = s.clock.Now().UTC().Format("2006-01-02")
	s.mu.Unlock()

	job, err := s.scheduler.Every(s.interval).Do(s.Tick)
	if err != nil {
		return err
	}
	job.SingletonMode()

	s.scheduler.StartAsync()
	s.logger.Info("started", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// Tick runs one collection pass, broadcasts the result, and triggers the
// once-per-day summary generation when the UTC date has rolled over.
func (s *Scheduler) Tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	observations, err := s.collector.CollectAll(ctx)
	if err != nil {
		s.logger.Error("collection failed, backing off", "error", err, "backoff", s.backoff)
		// Sleeping inside the singleton job delays the next tick.
		s.clock.Sleep(s.backoff)
		return
	}

	current := make([]weather.CurrentWeather, 0, len(observations))
	for _, o := range observations {
		current = append(current, o.AsCurrent())
	}
	s.hub.Broadcast(current)
	s.logger.Info("tick complete", "observations", len(observations))

	s.maybeGenerateSummaries(ctx)
}

// maybeGenerateSummaries generates each city's daily summary exactly once per
// UTC date, regardless of how many ticks fall inside hour 0.
func (s *Scheduler) maybeGenerateSummaries(ctx context.Context) {
	today := s.clock.Now().UTC().Format("2006-01-02")

	s.mu.Lock()
	if s.lastSummaryDate == today {
		s.mu.Unlock()
		return
	}
	s.lastSummaryDate = today
	s.mu.Unlock()

	s.logger.Info("generating daily summaries", "date", today)
	for _, city := range s.collector.Cities() {
		if _, err := s.collector.GenerateDailySummary(ctx, city.Name); err != nil {
			s.logger.Error("summary generation failed", "city", city.Name, "error", err)
		}
	}
}
