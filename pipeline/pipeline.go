package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/execfeed/candles"
	"github.com/rustyeddy/execfeed/crawl"
	"github.com/rustyeddy/execfeed/journal"
	"github.com/rustyeddy/execfeed/market"
	"github.com/rustyeddy/execfeed/pkg/id"
	"github.com/rustyeddy/execfeed/sink"
)

// StatusFailed is journaled when the crawl finished but its output could not
// be written.
const StatusFailed = "failed"

// Crawler is satisfied by *crawl.Crawler.
type Crawler interface {
	Crawl(ctx context.Context) (crawl.Result, error)
}

// Runner runs one crawl session end to end.
type Runner struct {
	Crawler     Crawler
	Saver       sink.Saver
	Journal     journal.Journal
	ProductCode string
	OutputDir   string
	Candles     candles.Options
	// Seed overrides the carry-forward seed; nil uses the first price.
	Seed *decimal.Decimal
	// ExecutionsOnly skips aggregation.
	ExecutionsOnly bool
	Logger         *slog.Logger

	NewID func() string
	Now   func() time.Time
}

// Report is what Run produced.
type Report struct {
	RunID          string
	Crawl          crawl.Result
	Candles        []market.Candle
	Coverage       candles.GapStats
	ExecutionsPath string
	CandlesPath    string
	Record         journal.RunRecord
}

func (r *Runner) defaults() {
	if r.Logger == nil {
		r.Logger = slog.Default()
	}
	if r.Journal == nil {
		r.Journal = journal.Nop{}
	}
	if r.NewID == nil {
		r.NewID = id.New
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	if r.OutputDir == "" {
		r.OutputDir = "."
	}
}

// Run crawls, writes the executions, aggregates and writes the candles, then
// journals the outcome. An aborted crawl writes nothing. A cancelled crawl
// writes what it collected as a .partial file and returns the context error.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	r.defaults()
	if r.Crawler == nil || r.Saver == nil {
		return Report{}, errors.New("pipeline: crawler and saver are required")
	}

	rep := Report{RunID: r.NewID()}
	log := r.Logger.With("run_id", rep.RunID, "product_code", r.ProductCode)
	started := r.Now()

	res, crawlErr := r.Crawler.Crawl(ctx)
	rep.Crawl = res
	rec := journal.RunRecord{
		RunID:       rep.RunID,
		ProductCode: r.ProductCode,
		StartedAt:   started,
		Status:      string(res.Status),
		Reason:      string(res.Reason),
		Pages:       res.Pages,
		Requests:    res.Requests,
		Executions:  len(res.Executions),
	}
	rec.NewestID, _ = res.NewestID()
	rec.OldestID, _ = res.OldestID()

	runErr := crawlErr
	switch res.Status {
	case crawl.StatusAborted:
		log.Error("crawl aborted, no output written", "error", crawlErr)

	case crawl.StatusCancelled:
		if len(res.Executions) > 0 {
			path := r.path("executions", rep.RunID, ".partial")
			if err := r.savePartial(path, res.Executions); err != nil {
				runErr = errors.Join(crawlErr, fmt.Errorf("save partial executions: %w", err))
			} else {
				rep.ExecutionsPath = path
				log.Warn("crawl cancelled, partial executions saved", "path", path, "executions", len(res.Executions))
			}
		}

	case crawl.StatusCompleted:
		if err := r.writeOutputs(&rep, log); err != nil {
			rec.Status = StatusFailed
			runErr = err
		}
		rec.Candles = len(rep.Candles)

	default:
		if runErr == nil {
			runErr = fmt.Errorf("pipeline: unexpected crawl status %q", res.Status)
		}
	}

	rec.Output = strings.Join(nonEmpty(rep.ExecutionsPath, rep.CandlesPath), ",")
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	rec.FinishedAt = r.Now()
	rep.Record = rec

	if err := r.Journal.RecordRun(rec); err != nil {
		log.Error("journal run failed", "error", err)
		runErr = errors.Join(runErr, fmt.Errorf("journal: %w", err))
	}

	if runErr == nil {
		log.Info("run finished",
			"status", rec.Status, "reason", rec.Reason, "executions", rec.Executions,
			"candles", rec.Candles, "duration", rec.Duration().Round(time.Millisecond))
	}
	return rep, runErr
}

func (r *Runner) writeOutputs(rep *Report, log *slog.Logger) error {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}

	execPath := r.path("executions", rep.RunID, "")
	if err := r.Saver.SaveExecutions(execPath, rep.Crawl.Executions); err != nil {
		return fmt.Errorf("save executions: %w", err)
	}
	rep.ExecutionsPath = execPath
	log.Info("executions saved", "path", execPath, "count", len(rep.Crawl.Executions))

	if r.ExecutionsOnly {
		return nil
	}

	buckets := candles.Bucketize(rep.Crawl.Executions, r.Candles)
	rep.Coverage = candles.Coverage(buckets, r.Candles.Interval)
	rep.Candles = candles.Build(buckets, seedFor(buckets, r.Seed))
	if rep.Coverage.GapCount > 0 {
		log.Info("candle coverage has gaps",
			"buckets", rep.Coverage.TotalBuckets, "missing", rep.Coverage.MissingBuckets,
			"gaps", rep.Coverage.GapCount, "longest_gap", rep.Coverage.LongestGap,
			"filled", r.Candles.FillGaps)
	}

	candlePath := r.path("candles", rep.RunID, "")
	if err := r.Saver.SaveCandles(candlePath, rep.Candles); err != nil {
		return fmt.Errorf("save candles: %w", err)
	}
	rep.CandlesPath = candlePath
	log.Info("candles saved", "path", candlePath, "count", len(rep.Candles))
	return nil
}

func (r *Runner) savePartial(path string, execs []market.Execution) error {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return err
	}
	return r.Saver.SaveExecutions(path, execs)
}

func (r *Runner) path(kind, runID, suffix string) string {
	name := fmt.Sprintf("%s_%s%s.%s", kind, runID, suffix, r.Saver.Extension())
	return filepath.Join(r.OutputDir, name)
}

func seedFor(buckets []candles.Bucket, seed *decimal.Decimal) decimal.Decimal {
	if seed != nil {
		return *seed
	}
	first, _ := candles.InitialClose(buckets)
	return first
}

func nonEmpty(ss ...string) []string {
	var out []string
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
