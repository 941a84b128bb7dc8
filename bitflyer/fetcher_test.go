package bitflyer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/execfeed/internal/backoff"
	"github.com/rustyeddy/execfeed/market"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// scriptedGetter returns errs in order, then execs.
type scriptedGetter struct {
	errs  []error
	execs []market.Execution
	calls int
}

func (g *scriptedGetter) GetExecutions(ctx context.Context, req ExecutionsRequest) ([]market.Execution, error) {
	g.calls++
	if g.calls <= len(g.errs) {
		return nil, g.errs[g.calls-1]
	}
	return g.execs, nil
}

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func newTestFetcher(g ExecutionsGetter, attempts int) (*Fetcher, *sleepRecorder) {
	rec := &sleepRecorder{}
	f := NewFetcher(g, attempts, backoff.Default(), quiet)
	f.Sleep = rec.sleep
	return f, rec
}

func sampleExecs(ids ...int64) []market.Execution {
	out := make([]market.Execution, len(ids))
	for i, id := range ids {
		out[i] = market.Execution{
			ID:    id,
			Side:  market.Buy,
			Price: decimal.NewFromInt(100),
			Size:  decimal.NewFromInt(1),
			Time:  time.Date(2025, 6, 9, 11, 10, 0, 0, time.UTC),
		}
	}
	return out
}

var req = ExecutionsRequest{ProductCode: "BTC_JPY", Count: 100}

func TestFetch_Success(t *testing.T) {
	g := &scriptedGetter{execs: sampleExecs(30, 10, 20)}
	f, rec := newTestFetcher(g, 5)

	page, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, page.Executions, 3)
	require.NotNil(t, page.NextBefore)
	assert.Equal(t, int64(10), *page.NextBefore)
	assert.Equal(t, 1, g.calls)
	assert.Empty(t, rec.waits)
}

func TestFetch_EmptyPage(t *testing.T) {
	f, _ := newTestFetcher(&scriptedGetter{}, 5)
	page, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, page.Executions)
	assert.Nil(t, page.NextBefore)
}

func TestFetch_RecoversAfterFailures(t *testing.T) {
	boom := errors.New("connection reset")
	g := &scriptedGetter{
		errs:  []error{boom, &StatusError{Code: 503}, ErrMalformedPayload},
		execs: sampleExecs(5),
	}
	f, rec := newTestFetcher(g, 5)

	page, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, page.Executions, 1)
	assert.Equal(t, 4, g.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.waits)
}

func TestFetch_Exhausted(t *testing.T) {
	boom := errors.New("timeout")
	errs := make([]error, 10)
	for i := range errs {
		errs[i] = boom
	}
	g := &scriptedGetter{errs: errs}
	f, rec := newTestFetcher(g, 5)

	page, err := f.Fetch(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, page.Executions)
	assert.Equal(t, 5, g.calls)
	// no wait after the final attempt
	assert.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
	}, rec.waits)
}

func TestFetch_InvalidRequestNotRetried(t *testing.T) {
	g := &scriptedGetter{}
	f, _ := newTestFetcher(g, 5)

	_, err := f.Fetch(context.Background(), ExecutionsRequest{ProductCode: "BTC_JPY"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, 0, g.calls)

	g = &scriptedGetter{errs: []error{ErrInvalidRequest}}
	f, _ = newTestFetcher(g, 5)
	_, err = f.Fetch(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Equal(t, 1, g.calls)
}

func TestFetch_CancelledDuringBackoff(t *testing.T) {
	g := &scriptedGetter{errs: []error{errors.New("a"), errors.New("b"), errors.New("c")}}
	f := NewFetcher(g, 5, backoff.Default(), quiet)

	ctx, cancel := context.WithCancel(context.Background())
	f.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return backoff.Sleep(ctx, d)
	}

	_, err := f.Fetch(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 1, g.calls)
}

func TestFetch_DefaultAttempts(t *testing.T) {
	f := NewFetcher(&scriptedGetter{}, 0, backoff.Default(), nil)
	assert.Equal(t, DefaultMaxAttempts, f.MaxAttempts())
}

func TestFetch_AgainstServer(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	f, rec := newTestFetcher(NewClient(server.URL, time.Second), 5)
	page, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, page.Executions, 3)
	assert.Equal(t, int64(1), *page.NextBefore)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.waits)
}
