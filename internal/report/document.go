// Package report encodes the finished frequency tables as the JSON document
// consumed by downstream layout evaluators: three objects keyed by n-gram,
// ordered by descending count.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/charstats/internal/ngram"
)

// Table is a sorted frequency table. It marshals as a JSON object whose keys
// keep the slice order.
type Table []ngram.Entry

// Document is the emitted snapshot.
type Document struct {
	Symbols  Table `json:"symbols"`
	Bigrams  Table `json:"bigrams"`
	Trigrams Table `json:"trigrams"`
}

// FromAccumulator sorts the accumulator's tables into a Document.
func FromAccumulator(a *ngram.Accumulator) *Document {
	return &Document{
		Symbols:  a.Symbols.Sorted(),
		Bigrams:  a.Bigrams.Sorted(),
		Trigrams: a.Trigrams.Sorted(),
	}
}

// Encode writes doc as two-space indented JSON with non-ASCII characters
// and HTML-significant characters left unescaped.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	return nil
}

// Decode reads a document written by Encode, preserving key order.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return &doc, nil
}

func (t Table) MarshalJSON() ([]byte, error) {
	var keyBuf bytes.Buffer
	keyEnc := json.NewEncoder(&keyBuf)
	keyEnc.SetEscapeHTML(false)

	out := make([]byte, 0, len(t)*12+2)
	out = append(out, '{')
	for i, e := range t {
		if i > 0 {
			out = append(out, ',')
		}
		keyBuf.Reset()
		if err := keyEnc.Encode(e.Key); err != nil {
			return nil, fmt.Errorf("encoding key %q: %w", e.Key, err)
		}
		out = append(out, bytes.TrimSuffix(keyBuf.Bytes(), []byte("\n"))...)
		out = append(out, ':')
		out = strconv.AppendInt(out, e.Count, 10)
	}
	return append(out, '}'), nil
}

func (t *Table) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("frequency table must be a JSON object, got %v", tok)
	}
	entries := Table{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", tok)
		}
		var count int64
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("decoding count for %q: %w", key, err)
		}
		entries = append(entries, ngram.Entry{Key: key, Count: count})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*t = entries
	return nil
}
