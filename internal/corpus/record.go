// Package corpus reads word n-gram frequency records (Google Books export
// format) and decides which of them contribute to character statistics.
package corpus

import (
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/charstats/pkg/errors"
)

// posTags are the grammatical-category suffixes the corpus appends to tokens
// (e.g. "run_VERB", "_START_"). Tagged records duplicate untagged ones and
// are skipped.
var posTags = map[string]struct{}{
	"NOUN": {}, "VERB": {}, "ADJ": {}, "ADV": {}, "PRON": {}, "DET": {},
	"ADP": {}, "NUM": {}, "CONJ": {}, "PRT": {}, ".": {}, "X": {},
	"START": {}, "END": {},
}

// Outcome classifies a line that produced no error.
type Outcome int

const (
	Accepted Outcome = iota
	Blank
	Reserved
	OutOfRange
	POSTagged
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Blank:
		return "blank"
	case Reserved:
		return "reserved"
	case OutOfRange:
		return "out_of_range"
	case POSTagged:
		return "pos_tagged"
	default:
		return "unknown"
	}
}

// Record is one accepted corpus line: one word or a pair of words,
// lowercased.
type Record struct {
	Field       string
	Words       []string
	Year        int
	Occurrences int64
}

// IsPair reports whether the record carries a word pair.
func (r Record) IsPair() bool {
	return len(r.Words) == 2
}

// Filter accepts records whose year lies in [YearStart, YearEnd].
type Filter struct {
	YearStart int
	YearEnd   int
}

// Parse decodes "words\tyear\toccurrences[\t...]". A non-nil error means the
// line is malformed; otherwise the Outcome says whether the record is used.
func (f Filter) Parse(line string) (Record, Outcome, error) {
	if line == "" {
		return Record{}, Blank, nil
	}
	fields := strings.SplitN(line, "\t", 4)
	if strings.HasPrefix(fields[0], " ") {
		return Record{}, Reserved, nil
	}
	if len(fields) < 3 {
		return Record{}, 0, apperrors.Newf(apperrors.ErrMalformedRecord,
			"expected at least 3 tab-separated fields, got %d", len(fields))
	}

	year, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return Record{}, 0, apperrors.Newf(apperrors.ErrInvalidYear, "cannot parse %q", fields[1])
	}
	if year < f.YearStart || year > f.YearEnd {
		return Record{}, OutOfRange, nil
	}

	words := strings.SplitN(fields[0], " ", 3)
	if len(words) > 2 {
		return Record{}, 0, apperrors.Newf(apperrors.ErrTooManyWords, "%q", words)
	}
	for _, w := range words {
		if w == "" {
			return Record{}, 0, apperrors.Newf(apperrors.ErrEmptyWord, "in %q", fields[0])
		}
	}
	if IsPOSTagged(words) {
		return Record{}, POSTagged, nil
	}

	occurrences, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
	if err != nil {
		return Record{}, 0, apperrors.Newf(apperrors.ErrInvalidCount, "cannot parse %q", fields[2])
	}

	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return Record{
		Field:       fields[0],
		Words:       words,
		Year:        year,
		Occurrences: occurrences,
	}, Accepted, nil
}

// IsPOSTagged reports whether any token carries a part-of-speech suffix in
// its last or second-to-last underscore-separated segment.
func IsPOSTagged(words []string) bool {
	for _, w := range words {
		parts := splitTag(w)
		if len(parts) > 1 && isTag(parts[1]) {
			return true
		}
		if len(parts) > 2 && isTag(parts[2]) {
			return true
		}
	}
	return false
}

// splitTag splits w on its last two underscores, from the right.
func splitTag(w string) []string {
	i := strings.LastIndexByte(w, '_')
	if i < 0 {
		return []string{w}
	}
	head, tag := w[:i], w[i+1:]
	j := strings.LastIndexByte(head, '_')
	if j < 0 {
		return []string{head, tag}
	}
	return []string{head[:j], head[j+1:], tag}
}

func isTag(s string) bool {
	_, ok := posTags[s]
	return ok
}
