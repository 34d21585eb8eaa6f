package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the collection pipeline,
// scheduler, and fan-out hub.
type Metrics struct {
	CollectionRuns     prometheus.Counter
	ProviderErrors     prometheus.Counter
	ObservationsStored prometheus.Counter
	AlertsRaised       prometheus.Counter

	SummariesGenerated prometheus.Counter

	ConnectedClients   prometheus.Gauge
	BroadcastsSent     prometheus.Counter
	BroadcastFailures  prometheus.Counter

	CollectionDuration prometheus.Histogram
}

// NewMetrics creates all collectors and registers them with reg. Passing a
// fresh registry keeps tests isolated from the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CollectionRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weathermon",
			Name:      "collection_runs_total",
			Help:      "Total collection pipeline runs.",
		}),
		ProviderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weathermon",
			Name:      "provider_errors_total",
			Help:      "Total failed provider calls, counted per city.",
		}),
		ObservationsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weathermon",
			Name:      "observations_stored_total",
			Help:      "Total observation rows persisted.",
		}),
		AlertsRaised: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weathermon",
			Name:      "alerts_raised_total",
			Help:      "Total threshold alerts persisted.",
		}),
		SummariesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weathermon",
			Name:      "daily_summaries_generated_total",
			Help:      "Total daily summary rows generated by the scheduler.",
		}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weathermon",
			Name:      "connected_clients",
			Help:      "Currently connected live clients.",
		}),
		BroadcastsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weathermon",
			Name:      "broadcasts_sent_total",
			Help:      "Total successful client deliveries.",
		}),
		BroadcastFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weathermon",
			Name:      "broadcast_failures_total",
			Help:      "Client deliveries that failed and evicted the client.",
		}),
		CollectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weathermon",
			Name:      "collection_duration_seconds",
			Help:      "Duration of a complete fetch-persist-alert cycle over all cities.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	reg.MustRegister(
		m.CollectionRuns,
		m.ProviderErrors,
		m.ObservationsStored,
		m.AlertsRaised,
		m.SummariesGenerated,
		m.ConnectedClients,
		m.BroadcastsSent,
		m.BroadcastFailures,
		m.CollectionDuration,
	)

	return m
}
