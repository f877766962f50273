package ngram

import "sort"

// Entry is one n-gram and its count.
type Entry struct {
	Key   string
	Count int64
}

// Table maps short character sequences to signed counts. It remembers the
// order in which keys were first seen so that sorting, and therefore the
// emitted document, is reproducible run to run.
type Table struct {
	index  map[string]int
	keys   []string
	counts []int64
}

func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Add adds n to key, starting from zero if key is new, and returns the new
// count.
func (t *Table) Add(key string, n int64) int64 {
	i, ok := t.index[key]
	if !ok {
		i = len(t.keys)
		t.index[key] = i
		t.keys = append(t.keys, key)
		t.counts = append(t.counts, 0)
	}
	t.counts[i] += n
	return t.counts[i]
}

// Sub subtracts n from key and returns the new count, which may be negative.
func (t *Table) Sub(key string, n int64) int64 {
	return t.Add(key, -n)
}

func (t *Table) Get(key string) int64 {
	if i, ok := t.index[key]; ok {
		return t.counts[i]
	}
	return 0
}

func (t *Table) Has(key string) bool {
	_, ok := t.index[key]
	return ok
}

func (t *Table) Len() int {
	return len(t.keys)
}

// Entries returns a copy of all entries in first-insertion order.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, len(t.keys))
	for i, key := range t.keys {
		entries[i] = Entry{Key: key, Count: t.counts[i]}
	}
	return entries
}

// Sorted returns the entries by descending count. Equal counts come out in
// reverse first-insertion order: indices are stable-sorted ascending and then
// walked backwards.
func (t *Table) Sorted() []Entry {
	idx := make([]int, len(t.keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.counts[idx[a]] < t.counts[idx[b]]
	})
	sorted := make([]Entry, 0, len(idx))
	for i := len(idx) - 1; i >= 0; i-- {
		sorted = append(sorted, Entry{Key: t.keys[idx[i]], Count: t.counts[idx[i]]})
	}
	return sorted
}
