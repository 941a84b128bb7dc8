package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/execfeed/bitflyer"
	"github.com/rustyeddy/execfeed/candles"
	"github.com/rustyeddy/execfeed/crawl"
	"github.com/rustyeddy/execfeed/internal/backoff"
	"github.com/rustyeddy/execfeed/internal/slogx"
	"github.com/rustyeddy/execfeed/journal"
	"github.com/rustyeddy/execfeed/market"
	"github.com/rustyeddy/execfeed/sink"
)

type stubCrawler struct {
	res crawl.Result
	err error
}

func (s stubCrawler) Crawl(context.Context) (crawl.Result, error) { return s.res, s.err }

func sampleExecs() []market.Execution {
	mk := func(id int64, price, size string, sec int) market.Execution {
		return market.Execution{
			ID: id, Side: market.Buy,
			Price: decimal.RequireFromString(price), Size: decimal.RequireFromString(size),
			Time: time.Date(2025, 6, 9, 11, 10, 0, 0, time.UTC).Add(time.Duration(sec) * time.Second),
		}
	}
	// newest first, as crawled
	return []market.Execution{mk(3, "120", "1.5", 65), mk(2, "110", "2", 50), mk(1, "100", "1", 10)}
}

func newRunner(t *testing.T, c Crawler) (*Runner, *journal.SQLite) {
	t.Helper()
	dir := t.TempDir()
	j, err := journal.NewSQLite(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	clock := time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)
	return &Runner{
		Crawler:     c,
		Saver:       sink.JSONSaver{},
		Journal:     j,
		ProductCode: "BTC_JPY",
		OutputDir:   filepath.Join(dir, "out"),
		Candles:     candles.DefaultOptions(),
		Logger:      slogx.Discard(),
		NewID:       func() string { return "RUN1" },
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	}, j
}

func TestRun_Completed(t *testing.T) {
	res := crawl.Result{Executions: sampleExecs(), Pages: 1, Requests: 2,
		Status: crawl.StatusCompleted, Reason: crawl.ReasonEmpty}
	r, j := newRunner(t, stubCrawler{res: res})

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "RUN1", rep.RunID)
	assert.Equal(t, filepath.Join(r.OutputDir, "executions_RUN1.json"), rep.ExecutionsPath)
	assert.Equal(t, filepath.Join(r.OutputDir, "candles_RUN1.json"), rep.CandlesPath)
	require.Len(t, rep.Candles, 2)
	assert.Equal(t, "106.67", rep.Candles[0].VWAP.StringFixed(2))

	got, err := sink.LoadCandles(rep.CandlesPath)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Start.Equal(rep.Candles[0].Start))

	execs, err := sink.LoadExecutions(rep.ExecutionsPath)
	require.NoError(t, err)
	assert.Len(t, execs, 3)

	run, err := j.GetRun("RUN1")
	require.NoError(t, err)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, "empty", run.Reason)
	assert.Equal(t, 3, run.Executions)
	assert.Equal(t, 2, run.Candles)
	assert.Equal(t, int64(3), run.NewestID)
	assert.Equal(t, int64(1), run.OldestID)
	assert.Equal(t, time.Second, run.Duration())
	assert.Empty(t, run.Error)
	assert.Contains(t, run.Output, "candles_RUN1.json")
}

func TestRun_Aborted(t *testing.T) {
	cause := fmt.Errorf("%w: page 2: %w", crawl.ErrAborted, bitflyer.ErrRetriesExhausted)
	res := crawl.Result{Executions: sampleExecs(), Pages: 1, Requests: 2, Status: crawl.StatusAborted}
	r, j := newRunner(t, stubCrawler{res: res, err: cause})

	rep, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, crawl.ErrAborted)
	assert.Empty(t, rep.ExecutionsPath)
	assert.Empty(t, rep.CandlesPath)

	_, statErr := os.Stat(r.OutputDir)
	assert.True(t, os.IsNotExist(statErr), "aborted run must not write files")

	run, err := j.GetRun("RUN1")
	require.NoError(t, err)
	assert.Equal(t, "aborted", run.Status)
	assert.Contains(t, run.Error, "retries exhausted")
	assert.Empty(t, run.Output)
}

func TestRun_Cancelled(t *testing.T) {
	res := crawl.Result{Executions: sampleExecs(), Pages: 1, Requests: 1, Status: crawl.StatusCancelled}
	r, j := newRunner(t, stubCrawler{res: res, err: context.Canceled})

	rep, err := r.Run(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, filepath.Join(r.OutputDir, "executions_RUN1.partial.json"), rep.ExecutionsPath)
	assert.Empty(t, rep.CandlesPath)

	execs, err := sink.LoadExecutions(rep.ExecutionsPath)
	require.NoError(t, err)
	assert.Len(t, execs, 3)

	run, err := j.GetRun("RUN1")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", run.Status)
}

func TestRun_ExecutionsOnly(t *testing.T) {
	res := crawl.Result{Executions: sampleExecs(), Pages: 1, Requests: 1,
		Status: crawl.StatusCompleted, Reason: crawl.ReasonSinglePage}
	r, _ := newRunner(t, stubCrawler{res: res})
	r.ExecutionsOnly = true

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, rep.ExecutionsPath)
	assert.Empty(t, rep.CandlesPath)
	assert.Empty(t, rep.Candles)
}

type failingJournal struct{}

func (failingJournal) RecordRun(journal.RunRecord) error { return errors.New("disk full") }
func (failingJournal) Close() error                      { return nil }

func TestRun_JournalFailureSurfaces(t *testing.T) {
	res := crawl.Result{Status: crawl.StatusCompleted, Reason: crawl.ReasonEmpty, Requests: 1}
	r, _ := newRunner(t, stubCrawler{res: res})
	r.Journal = failingJournal{}

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRun_RequiresSaver(t *testing.T) {
	_, err := (&Runner{Crawler: stubCrawler{}}).Run(context.Background())
	assert.Error(t, err)
}

// fakeVenue serves ids newest..1 through the real HTTP client.
func fakeVenue(t *testing.T, newest int64) *httptest.Server {
	t.Helper()
	base := time.Date(2025, 6, 9, 11, 0, 0, 0, time.UTC)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		count, _ := strconv.Atoi(q.Get("count"))
		top := newest
		if b := q.Get("before"); b != "" {
			v, _ := strconv.ParseInt(b, 10, 64)
			top = v - 1
		}
		var rows []string
		for id := top; id >= 1 && len(rows) < count; id-- {
			ts := base.Add(time.Duration(id) * 13 * time.Second).Format("2006-01-02T15:04:05")
			rows = append(rows, fmt.Sprintf(
				`{"id":%d,"side":"SELL","price":%d,"size":0.01,"exec_date":"%s"}`, id, 15_000_000+id, ts))
		}
		w.Write([]byte("[" + strings.Join(rows, ",") + "]"))
	}))
}

func TestRun_EndToEnd(t *testing.T) {
	server := fakeVenue(t, 250)
	defer server.Close()

	log := slogx.Discard()
	fetcher := bitflyer.NewFetcher(bitflyer.NewClient(server.URL, time.Second), 5, backoff.Default(), log)
	crawler := crawl.New(fetcher, crawl.Options{
		ProductCode: "BTC_JPY", PageSize: 100, Exhaustive: true,
	}, log)

	r, j := newRunner(t, crawler)
	r.Candles.FillGaps = true

	rep, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, crawl.ReasonEmpty, rep.Crawl.Reason)
	assert.Equal(t, 3, rep.Crawl.Pages)
	assert.Equal(t, 4, rep.Crawl.Requests)
	assert.Len(t, rep.Crawl.Executions, 250)

	// 13s spacing covers ids 1..250 over 54 minutes, every minute observed
	require.NotEmpty(t, rep.Candles)
	for i := 1; i < len(rep.Candles); i++ {
		assert.Equal(t, time.Minute, rep.Candles[i].Start.Sub(rep.Candles[i-1].Start))
	}
	total := 0
	for _, c := range rep.Candles {
		total += c.Trades
	}
	assert.Equal(t, 250, total)

	runs, err := j.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 250, runs[0].Executions)
}

func TestAggregateFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "executions_X.json")
	require.NoError(t, sink.JSONSaver{}.SaveExecutions(in, sampleExecs()))

	saver := sink.CSVSaver{}
	out := CandlesPathFor(in, saver)
	assert.Equal(t, filepath.Join(dir, "candles_X.csv"), out)

	got, err := AggregateFile(in, out, saver, candles.DefaultOptions(), nil)
	require.NoError(t, err)
	require.Len(t, got, 2)

	loaded, err := sink.LoadCandles(out)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.True(t, loaded[1].Close.Equal(decimal.NewFromInt(120)))

	_, err = AggregateFile(filepath.Join(dir, "missing.json"), out, saver, candles.DefaultOptions(), nil)
	assert.Error(t, err)
}

func TestCandlesPathFor(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "candles_R.json.xz"),
		CandlesPathFor(filepath.Join("out", "executions_R.json.xz"), sink.JSONSaver{Compress: true}))
	assert.Equal(t, "candles_trades.parquet", CandlesPathFor("trades.json", sink.ParquetSaver{}))
}
