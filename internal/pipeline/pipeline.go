// Package pipeline runs the single accumulation pass: corpus lines are
// filtered, folded into the n-gram tables, and, when the corpus holds no
// word pairs, word boundaries are estimated before the tables are sorted.
package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/charstats/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/charstats/internal/ngram"
	"github.com/Adithya-Monish-Kumar-K/charstats/internal/report"
	apperrors "github.com/Adithya-Monish-Kumar-K/charstats/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/metrics"
)

// Options configures a Pipeline.
type Options struct {
	YearStart     int
	YearEnd       int
	ProgressEvery int
	MaxLineBytes  int
}

// Stats summarises a finished pass.
type Stats struct {
	Lines          int64            `json:"lines"`
	Accepted       int64            `json:"accepted"`
	WordRecords    int64            `json:"word_records"`
	PairRecords    int64            `json:"pair_records"`
	Skipped        map[string]int64 `json:"skipped"`
	Underflows     int64            `json:"underflows"`
	Approximated   bool             `json:"approximated"`
	EstimatedPairs int              `json:"estimated_pairs"`
	Duration       time.Duration    `json:"duration_ns"`
}

// Pipeline owns the accumulator for one run. It is not safe for concurrent
// use.
type Pipeline struct {
	opts    Options
	filter  corpus.Filter
	acc     *ngram.Accumulator
	metrics *metrics.Metrics
	logger  *slog.Logger
	stats   Stats
	started time.Time
}

func New(opts Options, m *metrics.Metrics) *Pipeline {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 1_000_000
	}
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = 1024 * 1024
	}
	p := &Pipeline{
		opts:    opts,
		filter:  corpus.Filter{YearStart: opts.YearStart, YearEnd: opts.YearEnd},
		metrics: m,
		logger:  slog.Default().With("component", "pipeline"),
		stats:   Stats{Skipped: make(map[string]int64)},
		started: time.Now(),
	}
	p.acc = ngram.NewAccumulator(func(ngramKey string, _ int64) {
		m.UnderflowsTotal.WithLabelValues(strconv.Itoa(len([]rune(ngramKey)))).Inc()
	})
	return p
}

// Consume reads every line of src. Malformed records are logged and
// skipped; only read errors and cancellation stop the pass.
func (p *Pipeline) Consume(ctx context.Context, src *corpus.Source) error {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, min(64*1024, p.opts.MaxLineBytes)), p.opts.MaxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("consuming %s: %w", src.Name, err)
		}
		lineNo++
		p.stats.Lines++
		p.consumeLine(src.Name, lineNo, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s at line %d: %w", src.Name, lineNo+1, err)
	}
	p.logger.Info("source consumed", "source", src.Name, "lines", lineNo)
	return nil
}

func (p *Pipeline) consumeLine(source string, lineNo int, line string) {
	rec, outcome, err := p.filter.Parse(line)
	if err != nil {
		err = apperrors.AtLine(err, lineNo)
		reason := apperrors.Reason(err)
		p.stats.Skipped[reason]++
		p.metrics.RecordsTotal.WithLabelValues(reason).Inc()
		if errors.Is(err, apperrors.ErrTooManyWords) {
			p.logger.Error("too many words in record", "source", source, "error", err)
		} else {
			p.logger.Warn("skipping malformed record", "source", source, "error", err)
		}
		return
	}
	p.metrics.RecordsTotal.WithLabelValues(outcome.String()).Inc()
	if outcome != corpus.Accepted {
		p.stats.Skipped[outcome.String()]++
		return
	}

	if p.stats.Accepted%int64(p.opts.ProgressEvery) == 0 {
		p.logger.Info("progress",
			"records", p.stats.Accepted,
			"records_millions", p.stats.Accepted/1_000_000,
			"current", rec.Field,
		)
	}
	p.stats.Accepted++

	if rec.IsPair() {
		p.acc.ProcessPair(rec.Words[0], rec.Words[1], rec.Occurrences)
		p.stats.PairRecords++
		return
	}
	p.acc.ProcessWord(rec.Words[0], rec.Occurrences)
	p.stats.WordRecords++
}

// Finish estimates word pairs if none were seen, sorts the tables and
// returns the document. It must be called once, after every source has been
// consumed.
func (p *Pipeline) Finish() *report.Document {
	if p.stats.PairRecords == 0 {
		p.logger.Info("no word pairs in input, approximating word pairs")
		p.stats.Approximated = true
		p.stats.EstimatedPairs = p.acc.ApproximatePairs()
	}
	doc := report.FromAccumulator(p.acc)

	p.stats.Underflows = p.acc.Underflows()
	p.stats.Duration = time.Since(p.started)
	p.metrics.NgramEntries.WithLabelValues("1").Set(float64(len(doc.Symbols)))
	p.metrics.NgramEntries.WithLabelValues("2").Set(float64(len(doc.Bigrams)))
	p.metrics.NgramEntries.WithLabelValues("3").Set(float64(len(doc.Trigrams)))
	p.metrics.PassDuration.Set(p.stats.Duration.Seconds())

	p.logger.Info("pass complete",
		"lines", p.stats.Lines,
		"accepted", p.stats.Accepted,
		"pairs", p.stats.PairRecords,
		"underflows", p.stats.Underflows,
		"symbols", len(doc.Symbols),
		"bigrams", len(doc.Bigrams),
		"trigrams", len(doc.Trigrams),
		"duration", p.stats.Duration,
	)
	return doc
}

func (p *Pipeline) Stats() Stats {
	return p.stats
}
