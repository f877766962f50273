package sink

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/charstats/internal/report"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/redis"
)

// SortedSetWriter is the subset of the Redis client the store needs.
type SortedSetWriter interface {
	ReplaceSortedSet(ctx context.Context, key string, members []redis.Member) error
}

// RedisStore keeps each table as a sorted set scored by count, under
// <prefix>:<yearStart>-<yearEnd>:<table>.
type RedisStore struct {
	client SortedSetWriter
	prefix string
}

func NewRedisStore(client SortedSetWriter, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) Publish(ctx context.Context, snap *Snapshot) error {
	tables := []struct {
		name  string
		table report.Table
	}{
		{"symbols", snap.Document.Symbols},
		{"bigrams", snap.Document.Bigrams},
		{"trigrams", snap.Document.Trigrams},
	}
	for _, t := range tables {
		key := r.Key(snap.YearStart, snap.YearEnd, t.name)
		if err := r.client.ReplaceSortedSet(ctx, key, members(t.table)); err != nil {
			return err
		}
	}
	return nil
}

func (r *RedisStore) Key(yearStart, yearEnd int, table string) string {
	return fmt.Sprintf("%s:%d-%d:%s", r.prefix, yearStart, yearEnd, table)
}

func members(t report.Table) []redis.Member {
	out := make([]redis.Member, len(t))
	for i, e := range t {
		out[i] = redis.Member{Score: float64(e.Count), Member: e.Key}
	}
	return out
}
