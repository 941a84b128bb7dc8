package bitflyer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/execfeed/internal/backoff"
	"github.com/rustyeddy/execfeed/market"
)

// DefaultMaxAttempts is how many times a page is tried before giving up.
const DefaultMaxAttempts = 5

// ErrRetriesExhausted is returned when every attempt for a page failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// ExecutionsGetter performs a single fetch attempt.
type ExecutionsGetter interface {
	GetExecutions(ctx context.Context, req ExecutionsRequest) ([]market.Execution, error)
}

// Page is one successfully fetched batch of executions.
type Page struct {
	Executions []market.Execution
	// NextBefore is the smallest id in the page, nil when the page is empty.
	NextBefore *int64
}

// NewPage wraps execs and computes the cursor for the next older page.
func NewPage(execs []market.Execution) Page {
	p := Page{Executions: execs}
	if id, ok := market.MinID(execs); ok {
		p.NextBefore = &id
	}
	return p
}

// Fetcher retries single-attempt fetches with exponential backoff.
type Fetcher struct {
	getter      ExecutionsGetter
	maxAttempts int
	backoff     backoff.Backoff
	logger      *slog.Logger

	// Sleep is swapped out in tests to record waits.
	Sleep backoff.Sleeper
}

// NewFetcher builds a Fetcher. maxAttempts below 1 selects DefaultMaxAttempts.
func NewFetcher(getter ExecutionsGetter, maxAttempts int, b backoff.Backoff, logger *slog.Logger) *Fetcher {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		getter:      getter,
		maxAttempts: maxAttempts,
		backoff:     b,
		logger:      logger,
		Sleep:       backoff.Sleep,
	}
}

// MaxAttempts returns the attempt budget per page.
func (f *Fetcher) MaxAttempts() int {
	return f.maxAttempts
}

// Fetch returns one page. Transport failures, non-2xx responses and
// malformed payloads are retried; invalid requests and cancellation are not.
func (f *Fetcher) Fetch(ctx context.Context, req ExecutionsRequest) (Page, error) {
	if err := req.Validate(); err != nil {
		return Page{}, err
	}

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}

		execs, err := f.getter.GetExecutions(ctx, req)
		if err == nil {
			f.logPage(req, execs)
			return NewPage(execs), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Page{}, ctxErr
		}
		if errors.Is(err, ErrInvalidRequest) {
			return Page{}, err
		}
		lastErr = err

		if attempt == f.maxAttempts {
			f.logger.Warn("fetch attempt failed",
				"attempt", attempt, "max_attempts", f.maxAttempts, "error", err)
			break
		}

		wait := f.backoff.Next(attempt)
		f.logger.Warn("fetch attempt failed",
			"attempt", attempt, "max_attempts", f.maxAttempts, "wait", wait, "error", err)
		if err := f.Sleep(ctx, wait); err != nil {
			return Page{}, err
		}
	}

	f.logger.Error("fetch gave up",
		"product_code", req.ProductCode, "attempts", f.maxAttempts, "error", lastErr)
	return Page{}, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, f.maxAttempts, lastErr)
}

func (f *Fetcher) logPage(req ExecutionsRequest, execs []market.Execution) {
	attrs := []any{"product_code", req.ProductCode, "count", len(execs)}
	if req.Before != nil {
		attrs = append(attrs, "before", *req.Before)
	}
	f.logger.Info("fetched executions", attrs...)

	if !f.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, e := range execs {
		f.logger.Debug("execution",
			"id", e.ID, "side", e.Side.String(), "price", e.Price.String(),
			"size", e.Size.String(), "exec_date", e.Time.Format(time.RFC3339Nano))
	}
}
