package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/charstats/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/charstats/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/charstats/internal/report"
	"github.com/Adithya-Monish-Kumar-K/charstats/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/charstats/pkg/resilience"
	"github.com/google/uuid"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

var errUsage = errors.New("usage error")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	cfg, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "charstats: %v\n", err)
		return exitUsage
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	runID := uuid.New().String()
	slog.SetDefault(slog.Default().With("run_id", runID))
	slog.Info("starting charstats",
		"year_start", cfg.Years.Start,
		"year_end", cfg.Years.End,
		"inputs", len(cfg.Input.Files),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	p := pipeline.New(pipeline.Options{
		YearStart:     cfg.Years.Start,
		YearEnd:       cfg.Years.End,
		ProgressEvery: cfg.Input.ProgressEvery,
		MaxLineBytes:  cfg.Input.MaxLineBytes,
	}, m)

	if err := consumeAll(ctx, p, cfg.Input.Files); err != nil {
		slog.Error("accumulation failed", "error", err)
		return exitFail
	}
	doc := p.Finish()

	out := bufio.NewWriter(stdout)
	if err := report.Encode(out, doc); err != nil {
		slog.Error("writing document failed", "error", err)
		return exitFail
	}
	if err := out.Flush(); err != nil {
		slog.Error("writing document failed", "error", err)
		return exitFail
	}

	code := exitOK
	snap := &sink.Snapshot{
		RunID:      runID,
		Document:   doc,
		YearStart:  cfg.Years.Start,
		YearEnd:    cfg.Years.End,
		Stats:      p.Stats(),
		CapturedAt: time.Now(),
	}
	if err := publish(ctx, cfg, m, snap); err != nil {
		slog.Error("publishing results failed", "error", err)
		code = exitFail
	}

	m.LastCompletion.SetToCurrentTime()
	if cfg.Metrics.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			slog.Warn("metrics push failed", "error", err)
		}
	}

	slog.Info("charstats finished", "exit_code", code)
	return code
}

// parseArgs loads the config named by -config and applies -input and the
// optional positional year bounds on top of it.
func parseArgs(args []string) (*config.Config, error) {
	fs := flag.NewFlagSet("charstats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: charstats [-config file] [-input a.gz,b.tsv] [year_start] [year_end]")
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "path to config file")
	input := fs.String("input", "", "comma-separated corpus files (default: standard input)")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 2 {
		return nil, fmt.Errorf("%w: at most two positional arguments, got %d", errUsage, fs.NArg())
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if *input != "" {
		cfg.Input.Files = strings.Split(*input, ",")
	}
	if fs.NArg() >= 1 {
		if cfg.Years.Start, err = parseYear("year_start", fs.Arg(0)); err != nil {
			return nil, err
		}
	}
	if fs.NArg() == 2 {
		if cfg.Years.End, err = parseYear("year_end", fs.Arg(1)); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func parseYear(name, v string) (int, error) {
	year, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", errUsage, name, v)
	}
	return year, nil
}

func consumeAll(ctx context.Context, p *pipeline.Pipeline, files []string) error {
	if len(files) == 0 {
		return p.Consume(ctx, corpus.Stdin())
	}
	for _, path := range files {
		src, err := corpus.Open(path)
		if err != nil {
			return err
		}
		err = p.Consume(ctx, src)
		src.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// publish connects the enabled sinks and hands them the snapshot. A sink
// that cannot connect fails the run but does not stop the others.
func publish(ctx context.Context, cfg *config.Config, m *metrics.Metrics, snap *sink.Snapshot) error {
	var (
		sinks   []sink.Sink
		connErr error
	)

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			connErr = errors.Join(connErr, err)
		} else {
			defer db.Close()
			store := sink.NewSnapshotStore(db)
			if err := store.EnsureSchema(ctx); err != nil {
				connErr = errors.Join(connErr, err)
			} else {
				sinks = append(sinks, store)
			}
		}
	}
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			connErr = errors.Join(connErr, err)
		} else {
			defer client.Close()
			sinks = append(sinks, sink.NewRedisStore(client, cfg.Redis.KeyPrefix))
		}
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		sinks = append(sinks, sink.NewNotifier(producer))
	}
	if len(sinks) == 0 {
		return connErr
	}

	pub := sink.NewPublisher(sinks, resilience.RetryConfig{MaxAttempts: cfg.Sink.MaxAttempts}, cfg.Sink.Timeout, m)
	return errors.Join(connErr, pub.Publish(ctx, snap))
}
