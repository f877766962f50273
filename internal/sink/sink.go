// Package sink publishes a finished run to optional external stores. The
// JSON document on stdout is the primary output; sinks only mirror it.
package sink

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/charstats/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/charstats/internal/report"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/resilience"
	"golang.org/x/sync/errgroup"
)

// Snapshot is everything a sink may record about a run.
type Snapshot struct {
	RunID      string
	Document   *report.Document
	YearStart  int
	YearEnd    int
	Stats      pipeline.Stats
	CapturedAt time.Time
}

// Sink stores or announces a Snapshot.
type Sink interface {
	Name() string
	Publish(ctx context.Context, snap *Snapshot) error
}

// Publisher fans a Snapshot out to every configured sink concurrently.
type Publisher struct {
	sinks   []Sink
	retry   resilience.RetryConfig
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewPublisher(sinks []Sink, retry resilience.RetryConfig, timeout time.Duration, m *metrics.Metrics) *Publisher {
	return &Publisher{
		sinks:   sinks,
		retry:   retry,
		timeout: timeout,
		metrics: m,
		logger:  slog.Default().With("component", "sink-publisher"),
	}
}

// Publish delivers snap to all sinks. Each sink is retried and bounded by
// the publisher timeout; one failing sink does not cancel the others. The
// first error is returned once every sink has finished.
func (p *Publisher) Publish(ctx context.Context, snap *Snapshot) error {
	var g errgroup.Group
	for _, s := range p.sinks {
		s := s
		g.Go(func() error {
			start := time.Now()
			err := resilience.WithTimeout(ctx, p.timeout, s.Name(), func(ctx context.Context) error {
				return resilience.Retry(ctx, s.Name(), p.retry, func(ctx context.Context) error {
					return s.Publish(ctx, snap)
				})
			})
			if err != nil {
				p.metrics.SinkPublishes.WithLabelValues(s.Name(), "error").Inc()
				p.logger.Error("sink publish failed", "sink", s.Name(), "error", err)
				return err
			}
			p.metrics.SinkPublishes.WithLabelValues(s.Name(), "ok").Inc()
			p.logger.Info("sink published", "sink", s.Name(), "duration", time.Since(start))
			return nil
		})
	}
	return g.Wait()
}
