package report

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/charstats/internal/ngram"
)

func TestEncodeLayout(t *testing.T) {
	doc := &Document{
		Symbols:  Table{{Key: " ", Count: 5}, {Key: "é", Count: 3}, {Key: "<", Count: 2}},
		Trigrams: Table{{Key: `d" `, Count: 1}, {Key: "t&a", Count: -2}},
	}
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := `{
  "symbols": {
    " ": 5,
    "é": 3,
    "<": 2
  },
  "bigrams": {},
  "trigrams": {
    "d\" ": 1,
    "t&a": -2
  }
}
`
	if buf.String() != want {
		t.Errorf("Encode output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestDecodePreservesOrder(t *testing.T) {
	a := ngram.NewAccumulator(nil)
	a.ProcessWord("banana", 3)
	a.ProcessWord("a", 1)
	doc := FromAccumulator(a)

	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(got, doc) {
		t.Errorf("decoded document differs:\n got %+v\nwant %+v", got, doc)
	}
	if got.Symbols[0].Key != "a" || got.Symbols[0].Count != 10 {
		t.Errorf("expected most frequent symbol a=10 first, got %+v", got.Symbols[0])
	}
}

func TestDecodeRejectsArray(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"symbols": [1, 2]}`)); err == nil {
		t.Fatal("expected error for non-object table")
	}
}

func TestFromAccumulatorSorted(t *testing.T) {
	a := ngram.NewAccumulator(nil)
	a.ProcessWord("ab", 1)
	a.ProcessWord("b", 4)
	doc := FromAccumulator(a)

	for name, tbl := range map[string]Table{"symbols": doc.Symbols, "bigrams": doc.Bigrams, "trigrams": doc.Trigrams} {
		for i := 1; i < len(tbl); i++ {
			if tbl[i-1].Count < tbl[i].Count {
				t.Errorf("%s not sorted descending at %d: %v", name, i, tbl)
			}
		}
	}
}
