package ngram

import (
	"math"
	"math/big"
	"math/bits"
	"strings"
)

// ApproximatePairs estimates word-pair boundaries for corpora that only
// carry single words. Assuming a word does not depend on its predecessor,
// the number of times word end e is followed by word start s is
// floor(count(e) * count(s) / total word ends). Word starts are the trigrams
// beginning with a space, word ends the bigrams ending in one. It returns the
// number of estimated pairs applied.
func (a *Accumulator) ApproximatePairs() int {
	var starts, ends []Entry
	for _, e := range a.Trigrams.Entries() {
		if strings.HasPrefix(e.Key, " ") {
			starts = append(starts, e)
		}
	}
	var total int64
	for _, e := range a.Bigrams.Entries() {
		r := []rune(e.Key)
		if len(r) == 2 && r[1] == space {
			ends = append(ends, e)
			total += e.Count
		}
	}
	if total <= 0 {
		a.logger.Warn("no word ends to approximate from", "word_ends", len(ends), "total", total)
		return 0
	}

	applied := 0
	for _, e := range ends {
		endRune := []rune(e.Key)[0]
		for _, s := range starts {
			count, ok := jointCount(e.Count, s.Count, total)
			if !ok || count <= 0 {
				continue
			}
			word2 := strings.TrimSpace(s.Key)
			if word2 == "" {
				continue
			}
			a.ProcessPair(string(endRune), word2, count)
			applied++
		}
	}
	a.logger.Info("approximated word pairs",
		"word_ends", len(ends),
		"word_starts", len(starts),
		"total_words", total,
		"pairs", applied,
	)
	return applied
}

// jointCount returns floor(end*start/total) for total > 0. Corpus-scale
// counts overflow int64 when multiplied, so the product is taken in 128 bits
// and falls back to math/big for negative inputs. ok is false when the
// quotient does not fit in an int64.
func jointCount(end, start, total int64) (count int64, ok bool) {
	if end >= 0 && start >= 0 {
		hi, lo := bits.Mul64(uint64(end), uint64(start))
		if hi < uint64(total) {
			q, _ := bits.Div64(hi, lo, uint64(total))
			if q > math.MaxInt64 {
				return 0, false
			}
			return int64(q), true
		}
	}
	p := new(big.Int).Mul(big.NewInt(end), big.NewInt(start))
	// Div is Euclidean, which equals floor division for a positive divisor.
	q := p.Div(p, big.NewInt(total))
	if !q.IsInt64() {
		return 0, false
	}
	return q.Int64(), true
}
