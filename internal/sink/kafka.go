package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/charstats/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/charstats/internal/report"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/kafka"
)

const EventComputed = "charstats.computed"

// topN bounds how many leading entries of each table ride along in the
// event; the full tables live in the stores.
const topN = 10

// EventPublisher is the subset of the Kafka producer the notifier needs.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// ComputedEvent announces a finished run.
type ComputedEvent struct {
	Type        string         `json:"type"`
	RunID       string         `json:"run_id"`
	YearStart   int            `json:"year_start"`
	YearEnd     int            `json:"year_end"`
	Symbols     int            `json:"symbols"`
	Bigrams     int            `json:"bigrams"`
	Trigrams    int            `json:"trigrams"`
	TopSymbols  report.Table   `json:"top_symbols"`
	TopTrigrams report.Table   `json:"top_trigrams"`
	Stats       pipeline.Stats `json:"stats"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Notifier publishes a ComputedEvent per run.
type Notifier struct {
	publisher EventPublisher
}

func NewNotifier(publisher EventPublisher) *Notifier {
	return &Notifier{publisher: publisher}
}

func (n *Notifier) Name() string { return "kafka" }

func (n *Notifier) Publish(ctx context.Context, snap *Snapshot) error {
	doc := snap.Document
	event := ComputedEvent{
		Type:        EventComputed,
		RunID:       snap.RunID,
		YearStart:   snap.YearStart,
		YearEnd:     snap.YearEnd,
		Symbols:     len(doc.Symbols),
		Bigrams:     len(doc.Bigrams),
		Trigrams:    len(doc.Trigrams),
		TopSymbols:  head(doc.Symbols, topN),
		TopTrigrams: head(doc.Trigrams, topN),
		Stats:       snap.Stats,
		Timestamp:   snap.CapturedAt.UTC(),
	}
	return n.publisher.Publish(ctx, kafka.Event{
		Key:   fmt.Sprintf("%d-%d", snap.YearStart, snap.YearEnd),
		Value: event,
	})
}

func head(t report.Table, n int) report.Table {
	if len(t) > n {
		return t[:n]
	}
	return t
}
