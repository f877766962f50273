// Package metrics defines the Prometheus collectors for a charstats run and
// exposes them for scraping or pushes them to a Pushgateway when the batch
// finishes.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds all Prometheus collectors for a run. Collectors live in a
// private registry so several runs (and tests) can coexist in one process.
type Metrics struct {
	Registry        *prometheus.Registry
	RecordsTotal    *prometheus.CounterVec
	UnderflowsTotal *prometheus.CounterVec
	NgramEntries    *prometheus.GaugeVec
	PassDuration    prometheus.Gauge
	LastCompletion  prometheus.Gauge
	SinkPublishes   *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "charstats_records_total",
				Help: "Input records by outcome (accepted, out_of_range, pos_tagged, reserved, or an error reason).",
			},
			[]string{"outcome"},
		),
		UnderflowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "charstats_underflows_total",
				Help: "Corrections that drove an n-gram count below zero, by n-gram order.",
			},
			[]string{"order"},
		),
		NgramEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "charstats_ngram_entries",
				Help: "Distinct n-grams in the final tables, by order.",
			},
			[]string{"order"},
		),
		PassDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "charstats_pass_duration_seconds",
				Help: "Wall time of the accumulation pass.",
			},
		),
		LastCompletion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "charstats_last_completion_timestamp_seconds",
				Help: "Unix time the last run completed.",
			},
		),
		SinkPublishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "charstats_sink_publishes_total",
				Help: "Publications of the finished tables by sink and status.",
			},
			[]string{"sink", "status"},
		),
	}

	m.Registry.MustRegister(
		m.RecordsTotal,
		m.UnderflowsTotal,
		m.NgramEntries,
		m.PassDuration,
		m.LastCompletion,
		m.SinkPublishes,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Push sends the current values to a Pushgateway under the given job name.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
