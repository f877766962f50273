// Package ngram accumulates character symbol, bigram and trigram counts from
// word and word-pair frequencies, correcting for the spaces that punctuation
// and quotes swallow in real text.
package ngram

import (
	"log/slog"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/charstats/internal/spacing"
)

// none marks an empty window slot. It is not a valid rune, so no input
// character can be mistaken for it.
const none rune = -1

const space = ' '

// UnderflowFunc is called whenever a correction leaves an n-gram negative.
type UnderflowFunc func(ngram string, value int64)

// Accumulator owns the three frequency tables for a single pass.
type Accumulator struct {
	Symbols  *Table
	Bigrams  *Table
	Trigrams *Table

	pairs       int64
	underflows  int64
	onUnderflow UnderflowFunc
	logger      *slog.Logger
}

// NewAccumulator returns an empty Accumulator. onUnderflow may be nil.
func NewAccumulator(onUnderflow UnderflowFunc) *Accumulator {
	return &Accumulator{
		Symbols:     NewTable(),
		Bigrams:     NewTable(),
		Trigrams:    NewTable(),
		onUnderflow: onUnderflow,
		logger:      slog.Default().With("component", "accumulator"),
	}
}

// Pairs returns how many word-pair records have been applied, including
// estimated ones.
func (a *Accumulator) Pairs() int64 {
	return a.pairs
}

func (a *Accumulator) Underflows() int64 {
	return a.underflows
}

// ProcessWord counts every character window of word followed by one space.
// The window starts as [none, none, space]: the space before the word takes
// part in the first bigram and trigram but its symbol belongs to the
// preceding word's trailing space.
func (a *Accumulator) ProcessWord(word string, n int64) {
	w := [3]rune{none, none, space}
	step := func(c rune) {
		w[0], w[1], w[2] = w[1], w[2], c
		a.Symbols.Add(string(c), n)
		if w[1] != none {
			a.Bigrams.Add(string(w[1:]), n)
		}
		if w[0] != none {
			a.Trigrams.Add(string(w[:]), n)
		}
	}
	for _, c := range word {
		step(c)
	}
	step(space)
}

// ProcessPair corrects the tables for the boundary between word1 and word2,
// which occur together n times. Single-word processing already counted a
// space after word1 and before word2; when that space does not exist in
// running text its symbol and bigrams are taken back and the joined bigram
// and trigram are added instead. A lone quote keeps the space half the time.
func (a *Accumulator) ProcessPair(word1, word2 string, n int64) {
	if word1 == "" || word2 == "" {
		return
	}
	a.pairs++

	r1, r2 := []rune(word1), []rune(word2)
	last, first := r1[len(r1)-1], r2[0]
	bridge := string([]rune{last, space, first})

	switch {
	case spacing.DeleteSpaceBefore(word2):
		a.joinWords(last, first, n)
		a.Trigrams.Add(string(last)+head(r2), n)
	case n > 1 && spacing.DeleteSpaceBetween(word2):
		half := n / 2
		a.joinWords(last, first, half)
		a.Trigrams.Add(string(last)+head(r2), half)
		a.sub(a.Trigrams, string(space)+head(r2), half)
		a.Trigrams.Add(bridge, n-half)
	case n > 1 && spacing.DeleteSpaceBetween(word1):
		half := n / 2
		a.joinWords(last, first, half)
		a.Trigrams.Add(tail(r1)+string(first), half)
		a.sub(a.Trigrams, tail(r1)+string(space), half)
		a.Trigrams.Add(bridge, n-half)
	default:
		a.Trigrams.Add(bridge, n)
	}
}

// joinWords moves n occurrences of "last first" to "lastfirst".
func (a *Accumulator) joinWords(last, first rune, n int64) {
	a.sub(a.Symbols, string(space), n)
	a.sub(a.Bigrams, string([]rune{space, first}), n)
	a.sub(a.Bigrams, string([]rune{last, space}), n)
	a.Bigrams.Add(string([]rune{last, first}), n)
}

func (a *Accumulator) sub(t *Table, key string, n int64) {
	v := t.Sub(key, n)
	if v >= 0 {
		return
	}
	a.underflows++
	a.logger.Warn("n-gram count underflowed",
		"order", utf8.RuneCountInString(key),
		"ngram", key,
		"value", v,
	)
	if a.onUnderflow != nil {
		a.onUnderflow(key, v)
	}
}

// head returns the first two runes of r, right-padded with a space.
func head(r []rune) string {
	if len(r) >= 2 {
		return string(r[:2])
	}
	return string(r) + string(space)
}

// tail returns the last two runes of r, left-padded with a space.
func tail(r []rune) string {
	if len(r) >= 2 {
		return string(r[len(r)-2:])
	}
	return string(space) + string(r)
}
