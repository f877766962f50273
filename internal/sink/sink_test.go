package sink

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/charstats/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/charstats/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/charstats/internal/report"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/resilience"
	"github.com/google/uuid"
)

func testSnapshot() *Snapshot {
	a := ngram.NewAccumulator(nil)
	a.ProcessWord("the", 9)
	a.ProcessWord("cat", 4)
	a.ProcessPair("the", "cat", 2)
	return &Snapshot{
		RunID:      uuid.New().String(),
		Document:   report.FromAccumulator(a),
		YearStart:  1900,
		YearEnd:    2000,
		Stats:      pipeline.Stats{Lines: 3, Accepted: 3, PairRecords: 1},
		CapturedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

type fakeSortedSets struct {
	mu   sync.Mutex
	sets map[string][]redis.Member
	err  error
}

func (f *fakeSortedSets) ReplaceSortedSet(_ context.Context, key string, members []redis.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.sets == nil {
		f.sets = make(map[string][]redis.Member)
	}
	f.sets[key] = members
	return nil
}

type fakeEvents struct {
	events []kafka.Event
}

func (f *fakeEvents) Publish(_ context.Context, event kafka.Event) error {
	f.events = append(f.events, event)
	return nil
}

type flakySink struct {
	name     string
	failures int
	calls    int
}

func (s *flakySink) Name() string { return s.name }

func (s *flakySink) Publish(context.Context, *Snapshot) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("unavailable")
	}
	return nil
}

func TestRedisStorePublish(t *testing.T) {
	fake := &fakeSortedSets{}
	store := NewRedisStore(fake, "eng")
	snap := testSnapshot()

	if err := store.Publish(context.Background(), snap); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(fake.sets) != 3 {
		t.Fatalf("expected 3 sorted sets, got %d", len(fake.sets))
	}
	symbols := fake.sets["eng:1900-2000:symbols"]
	if len(symbols) != len(snap.Document.Symbols) {
		t.Fatalf("symbols set has %d members, want %d", len(symbols), len(snap.Document.Symbols))
	}
	first := snap.Document.Symbols[0]
	if symbols[0].Member != first.Key || symbols[0].Score != float64(first.Count) {
		t.Errorf("first member = %+v, want %+v", symbols[0], first)
	}
	if _, ok := fake.sets["eng:1900-2000:trigrams"]; !ok {
		t.Error("trigrams set missing")
	}
}

func TestRedisStorePropagatesError(t *testing.T) {
	store := NewRedisStore(&fakeSortedSets{err: errors.New("READONLY")}, "eng")
	if err := store.Publish(context.Background(), testSnapshot()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNotifierPublish(t *testing.T) {
	fake := &fakeEvents{}
	snap := testSnapshot()
	if err := NewNotifier(fake).Publish(context.Background(), snap); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(fake.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(fake.events))
	}
	ev := fake.events[0]
	if ev.Key != "1900-2000" {
		t.Errorf("key = %q", ev.Key)
	}
	computed, ok := ev.Value.(ComputedEvent)
	if !ok {
		t.Fatalf("unexpected value type %T", ev.Value)
	}
	if computed.RunID != snap.RunID {
		t.Errorf("run id = %q, want %q", computed.RunID, snap.RunID)
	}
	if computed.Type != EventComputed || computed.Trigrams != len(snap.Document.Trigrams) {
		t.Errorf("unexpected event: %+v", computed)
	}
	if len(computed.TopSymbols) > topN {
		t.Errorf("top symbols not truncated: %d", len(computed.TopSymbols))
	}

	raw, err := json.Marshal(computed)
	if err != nil {
		t.Fatalf("event does not marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if _, ok := decoded["top_trigrams"].(map[string]any); !ok {
		t.Errorf("top_trigrams should encode as an object: %s", raw)
	}
}

func TestPublisherRetriesAndIsolatesFailures(t *testing.T) {
	flaky := &flakySink{name: "flaky", failures: 1}
	dead := &flakySink{name: "dead", failures: 100}
	m := metrics.New()
	pub := NewPublisher(
		[]Sink{flaky, dead},
		resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
		time.Second,
		m,
	)

	err := pub.Publish(context.Background(), testSnapshot())
	if err == nil {
		t.Fatal("expected error from dead sink")
	}
	if flaky.calls != 2 {
		t.Errorf("flaky sink calls = %d, want 2", flaky.calls)
	}
	if dead.calls != 2 {
		t.Errorf("dead sink calls = %d, want 2", dead.calls)
	}
}

func TestPublisherNoSinks(t *testing.T) {
	pub := NewPublisher(nil, resilience.RetryConfig{}, time.Second, metrics.New())
	if err := pub.Publish(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	cfg := config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "charstats_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "charstats"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}
	db, err := postgres.New(context.Background(), cfg)
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	store := NewSnapshotStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	snap := testSnapshot()
	snap.YearStart, snap.YearEnd = -7, -7
	if _, err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	t.Cleanup(func() {
		db.DB.Exec(`DELETE FROM charstats_snapshots WHERE year_start = -7`)
	})

	got, err := store.LatestSnapshot(ctx, -7, -7)
	if err != nil {
		t.Fatalf("LatestSnapshot failed: %v", err)
	}
	if got == nil || len(got.Trigrams) != len(snap.Document.Trigrams) {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	for i, e := range snap.Document.Trigrams {
		if got.Trigrams[i] != e {
			t.Errorf("trigram %d = %+v, want %+v", i, got.Trigrams[i], e)
		}
	}

	missing, err := store.LatestSnapshot(ctx, -8, -8)
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for unknown range; got %v, %v", missing, err)
	}
}
