package ngram

import (
	"fmt"
	"strings"
	"testing"
)

func expectCounts(t *testing.T, name string, tbl *Table, want map[string]int64) {
	t.Helper()
	for key, count := range want {
		if got := tbl.Get(key); got != count {
			t.Errorf("%s[%q] = %d, want %d", name, key, got, count)
		}
	}
}

func snapshot(a *Accumulator) string {
	var b strings.Builder
	for _, tbl := range []*Table{a.Symbols, a.Bigrams, a.Trigrams} {
		fmt.Fprintln(&b, tbl.Entries())
	}
	return b.String()
}

func TestProcessWord(t *testing.T) {
	a := NewAccumulator(nil)
	a.ProcessWord("cat", 2)

	expectCounts(t, "symbols", a.Symbols, map[string]int64{"c": 2, "a": 2, "t": 2, " ": 2})
	expectCounts(t, "bigrams", a.Bigrams, map[string]int64{" c": 2, "ca": 2, "at": 2, "t ": 2})
	expectCounts(t, "trigrams", a.Trigrams, map[string]int64{" ca": 2, "cat": 2, "at ": 2})
	if a.Symbols.Len() != 4 || a.Bigrams.Len() != 4 || a.Trigrams.Len() != 3 {
		t.Errorf("unexpected table sizes: %d/%d/%d", a.Symbols.Len(), a.Bigrams.Len(), a.Trigrams.Len())
	}
}

func TestProcessWordSingleRune(t *testing.T) {
	a := NewAccumulator(nil)
	a.ProcessWord("a", 5)

	expectCounts(t, "symbols", a.Symbols, map[string]int64{"a": 5, " ": 5})
	expectCounts(t, "bigrams", a.Bigrams, map[string]int64{" a": 5, "a ": 5})
	expectCounts(t, "trigrams", a.Trigrams, map[string]int64{" a ": 5})
}

func TestProcessWordMultibyte(t *testing.T) {
	a := NewAccumulator(nil)
	a.ProcessWord("été", 1)

	expectCounts(t, "symbols", a.Symbols, map[string]int64{"é": 2, "t": 1, " ": 1})
	expectCounts(t, "bigrams", a.Bigrams, map[string]int64{" é": 1, "ét": 1, "té": 1, "é ": 1})
	expectCounts(t, "trigrams", a.Trigrams, map[string]int64{" ét": 1, "été": 1, "té ": 1})
}

func TestProcessWordRepeatedCharacters(t *testing.T) {
	a := NewAccumulator(nil)
	a.ProcessWord("aaa", 3)

	expectCounts(t, "symbols", a.Symbols, map[string]int64{"a": 9, " ": 3})
	expectCounts(t, "bigrams", a.Bigrams, map[string]int64{" a": 3, "aa": 6, "a ": 3})
	expectCounts(t, "trigrams", a.Trigrams, map[string]int64{" aa": 3, "aaa": 3, "aa ": 3})
}

func TestProcessPairOrdinary(t *testing.T) {
	a := NewAccumulator(nil)
	a.ProcessWord("the", 7)
	a.ProcessWord("cat", 7)
	before := snapshot(a)
	trigrams := a.Trigrams.Len()

	a.ProcessPair("the", "cat", 7)

	if got := a.Trigrams.Get("e c"); got != 7 {
		t.Errorf("trigram %q = %d, want 7", "e c", got)
	}
	if a.Trigrams.Len() != trigrams+1 {
		t.Errorf("expected exactly one new trigram")
	}
	a.Trigrams.Sub("e c", 7)
	if after := snapshot(a); strings.Replace(after, " {e c 0}", "", 1) != before {
		t.Errorf("ordinary pair touched other entries:\nbefore %s\nafter  %s", before, after)
	}
	if a.Pairs() != 1 {
		t.Errorf("Pairs = %d, want 1", a.Pairs())
	}
}

func TestProcessPairPunctuation(t *testing.T) {
	a := NewAccumulator(nil)
	a.ProcessWord("cat", 5)
	a.ProcessWord(",", 3)

	a.ProcessPair("cat", ",", 3)

	expectCounts(t, "symbols", a.Symbols, map[string]int64{" ": 5, ",": 3})
	expectCounts(t, "bigrams", a.Bigrams, map[string]int64{" ,": 0, "t ": 2, "t,": 3, ", ": 3})
	expectCounts(t, "trigrams", a.Trigrams, map[string]int64{"t, ": 3})
	if a.Trigrams.Has("t ,") {
		t.Error("space-preserving trigram must not be created")
	}
	if a.Underflows() != 0 {
		t.Errorf("unexpected underflows: %d", a.Underflows())
	}
}

func TestProcessPairApostrophe(t *testing.T) {
	a := NewAccumulator(nil)
	a.ProcessWord("don", 2)
	a.ProcessWord("'t", 2)

	a.ProcessPair("don", "'t", 2)

	expectCounts(t, "bigrams", a.Bigrams, map[string]int64{"n'": 2, "n ": 0, " '": 0})
	expectCounts(t, "trigrams", a.Trigrams, map[string]int64{"n't": 2})
	expectCounts(t, "symbols", a.Symbols, map[string]int64{" ": 2})
}

func TestProcessPairQuoteAfter(t *testing.T) {
	tests := []struct {
		n, half, rest int64
	}{
		{10, 5, 5},
		{11, 5, 6},
		{2, 1, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			a := NewAccumulator(nil)
			a.ProcessPair("end", `"`, tt.n)

			expectCounts(t, "symbols", a.Symbols, map[string]int64{" ": -tt.half})
			expectCounts(t, "bigrams", a.Bigrams, map[string]int64{
				` "`: -tt.half,
				"d ": -tt.half,
				`d"`: tt.half,
			})
			expectCounts(t, "trigrams", a.Trigrams, map[string]int64{
				`d" `: tt.half,
				` " `: -tt.half,
				`d "`: tt.rest,
			})
		})
	}
}

func TestProcessPairQuoteBefore(t *testing.T) {
	a := NewAccumulator(nil)
	a.ProcessPair(`"`, "he", 5)

	expectCounts(t, "symbols", a.Symbols, map[string]int64{" ": -2})
	expectCounts(t, "bigrams", a.Bigrams, map[string]int64{" h": -2, `" `: -2, `"h`: 2})
	expectCounts(t, "trigrams", a.Trigrams, map[string]int64{
		` "h`: 2,
		` " `: -2,
		`" h`: 3,
	})
}

func TestProcessPairQuoteSingleOccurrence(t *testing.T) {
	a := NewAccumulator(nil)
	a.ProcessPair("end", `"`, 1)

	if a.Symbols.Len() != 0 || a.Bigrams.Len() != 0 {
		t.Error("a single quoted occurrence must not correct symbols or bigrams")
	}
	expectCounts(t, "trigrams", a.Trigrams, map[string]int64{`d "`: 1})
}

func TestProcessPairUnderflow(t *testing.T) {
	var seen []string
	a := NewAccumulator(func(ngram string, value int64) {
		seen = append(seen, fmt.Sprintf("%s=%d", ngram, value))
	})
	a.ProcessPair("a", ".", 1)

	want := []string{" =-1", " .=-1", "a =-1"}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Errorf("underflows = %v, want %v", seen, want)
	}
	if a.Underflows() != 3 {
		t.Errorf("Underflows = %d, want 3", a.Underflows())
	}
	// Entries stay negative.
	if a.Symbols.Get(" ") != -1 {
		t.Errorf("underflowed symbol was repaired: %d", a.Symbols.Get(" "))
	}
}

func TestProcessPairEmptyWord(t *testing.T) {
	a := NewAccumulator(nil)
	a.ProcessPair("", "cat", 3)
	a.ProcessPair("cat", "", 3)
	if a.Pairs() != 0 || a.Trigrams.Len() != 0 {
		t.Error("empty words must be ignored")
	}
}

func TestHeadTail(t *testing.T) {
	if got := head([]rune(",")); got != ", " {
		t.Errorf("head = %q", got)
	}
	if got := head([]rune("abc")); got != "ab" {
		t.Errorf("head = %q", got)
	}
	if got := tail([]rune(`"`)); got != ` "` {
		t.Errorf("tail = %q", got)
	}
	if got := tail([]rune("abc")); got != "bc" {
		t.Errorf("tail = %q", got)
	}
}

func BenchmarkProcessWord(b *testing.B) {
	words := []string{"the", "of", "and", "distributed", "character", "frequency", "n't", "über"}
	a := NewAccumulator(nil)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, w := range words {
			a.ProcessWord(w, 1000)
		}
	}
}

func BenchmarkProcessPair(b *testing.B) {
	pairs := [][2]string{{"the", "cat"}, {"cat", ","}, {"end", `"`}, {`"`, "he"}, {"don", "'t"}}
	a := NewAccumulator(nil)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, p := range pairs {
			a.ProcessPair(p[0], p[1], 1000)
		}
	}
}
