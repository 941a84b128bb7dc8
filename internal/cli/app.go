package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/execfeed/bitflyer"
	"github.com/rustyeddy/execfeed/config"
	"github.com/rustyeddy/execfeed/crawl"
	"github.com/rustyeddy/execfeed/internal/profiling"
	"github.com/rustyeddy/execfeed/internal/slogx"
	"github.com/rustyeddy/execfeed/journal"
	"github.com/rustyeddy/execfeed/pipeline"
)

// app is the wiring shared by the commands that touch the feed or the journal.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	closers []func() error
}

func loadConfig(rc *RootConfig) (*config.Config, error) {
	if rc.ConfigPath != "" {
		return config.LoadFromFile(rc.ConfigPath)
	}
	cfg := config.Default()
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// newApp loads the config, lets mutate apply flag overrides, validates, and
// starts logging and profiling.
func newApp(cmd *cobra.Command, rc *RootConfig, mutate func(*config.Config)) (*app, error) {
	cfg, err := loadConfig(rc)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if rc.LogLevel != "" {
		cfg.Log.Level = rc.LogLevel
	}
	if rc.LogFile != "" {
		cfg.Log.File = rc.LogFile
	}
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, logCloser, err := slogx.OpenWriter(cmd.ErrOrStderr(), cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, closers: []func() error{logCloser.Close}}

	stop, err := profiling.Start(profiling.Config{
		ServerAddress: rc.Pyroscope,
		Tags:          map[string]string{"product_code": cfg.Crawl.ProductCode, "command": cmd.Name()},
	}, log)
	if err != nil {
		log.Warn("profiling disabled", "error", err)
	} else {
		a.closers = append([]func() error{stop}, a.closers...)
	}
	return a, nil
}

func (a *app) close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *app) crawler() *crawl.Crawler {
	client := bitflyer.NewClient(a.cfg.Feed.BaseURL, a.cfg.Timeout())
	fetcher := bitflyer.NewFetcher(client, a.cfg.Retry.MaxAttempts, a.cfg.Backoff(), a.log)
	return crawl.New(fetcher, a.cfg.CrawlOptions(), a.log)
}

func (a *app) journal() (journal.Journal, error) {
	j, err := journal.Open(a.cfg.Journal.Type, a.cfg.JournalPath())
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return j, nil
}

// runner wires a pipeline.Runner from the config. The journal is closed by
// a.close.
func (a *app) runner(executionsOnly bool) (*pipeline.Runner, error) {
	saver, err := a.cfg.Saver()
	if err != nil {
		return nil, err
	}
	j, err := a.journal()
	if err != nil {
		return nil, err
	}
	a.closers = append([]func() error{j.Close}, a.closers...)

	return &pipeline.Runner{
		Crawler:        a.crawler(),
		Saver:          saver,
		Journal:        j,
		ProductCode:    a.cfg.Crawl.ProductCode,
		OutputDir:      a.cfg.Output.Dir,
		Candles:        a.cfg.CandleOptions(),
		Seed:           a.cfg.Seed(),
		ExecutionsOnly: executionsOnly,
		Logger:         a.log,
	}, nil
}

func printReport(w io.Writer, rep pipeline.Report) {
	rec := rep.Record
	fmt.Fprintf(w, "Run %s: %s", rep.RunID, rec.Status)
	if rec.Reason != "" {
		fmt.Fprintf(w, " (%s)", rec.Reason)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Pages: %d  Requests: %d  Executions: %d\n", rec.Pages, rec.Requests, rec.Executions)
	if rec.Executions > 0 {
		fmt.Fprintf(w, "  IDs: %d .. %d\n", rec.OldestID, rec.NewestID)
	}
	if rep.ExecutionsPath != "" {
		fmt.Fprintf(w, "  Executions: %s\n", rep.ExecutionsPath)
	}
	if rep.CandlesPath != "" {
		cov := rep.Coverage
		fmt.Fprintf(w, "  Candles: %s (%d candles, %d missing minutes in %d gaps)\n",
			rep.CandlesPath, len(rep.Candles), cov.MissingBuckets, cov.GapCount)
	}
}
