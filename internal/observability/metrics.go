package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "danube_cote"

// Metrics holds the Prometheus counters and gauges of one scraper run.
// The scraper is a batch job, so metrics live on a private registry that is
// pushed to a Pushgateway instead of being scraped.
type Metrics struct {
	registry *prometheus.Registry

	RowsProcessed   *prometheus.CounterVec // labels: layout
	RecordsProduced *prometheus.CounterVec // labels: layout
	RowsSkipped     *prometheus.CounterVec // labels: reason
	SourceErrors    *prometheus.CounterVec // labels: source={html,pdf}
	SinkErrors      *prometheus.CounterVec // labels: sink
	AlertsRaised    *prometheus.CounterVec // labels: level

	RunDuration prometheus.Gauge
	LastSuccess prometheus.Gauge
}

// NewMetrics creates all run metrics on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RowsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_processed_total",
			Help:      "Raw table rows handed to the normalizer.",
		}, []string{"layout"}),
		RecordsProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_produced_total",
			Help:      "Measurement records produced.",
		}, []string{"layout"}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Rows that produced no record, by reason.",
		}, []string{"reason"}),
		SourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_errors_total",
			Help:      "Failed fetches of a source URL.",
		}, []string{"source"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed writes to an output sink.",
		}, []string{"sink"}),
		AlertsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_raised_total",
			Help:      "Level alerts raised, by severity.",
		}, []string{"level"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last scraper run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that stored records.",
		}),
	}

	m.registry.MustRegister(
		m.RowsProcessed,
		m.RecordsProduced,
		m.RowsSkipped,
		m.SourceErrors,
		m.SinkErrors,
		m.AlertsRaised,
		m.RunDuration,
		m.LastSuccess,
	)
	return m
}

// Registry exposes the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends the current metric values to a Pushgateway under job
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
