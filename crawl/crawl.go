package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/execfeed/bitflyer"
	"github.com/rustyeddy/execfeed/internal/backoff"
	"github.com/rustyeddy/execfeed/market"
)

const (
	DefaultPageSize     = 100
	DefaultPageLimit    = 20
	DefaultRequestDelay = time.Second
)

var (
	// ErrAborted wraps the fetch failure that stopped a crawl.
	ErrAborted = errors.New("crawl aborted")

	// ErrCursorStalled means the venue returned a page whose oldest id does
	// not move below the cursor that requested it.
	ErrCursorStalled = errors.New("cursor did not advance")
)

// Status is the terminal state of a crawl.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
	StatusCancelled Status = "cancelled"
)

// Reason says why a completed crawl stopped.
type Reason string

const (
	ReasonEmpty      Reason = "empty"
	ReasonSinglePage Reason = "single-page"
	ReasonPageLimit  Reason = "page-limit"
)

// PageFetcher returns one page of executions; *bitflyer.Fetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, req bitflyer.ExecutionsRequest) (bitflyer.Page, error)
}

// Options controls paging.
type Options struct {
	ProductCode string
	PageSize    int
	// PageLimit caps successful pages. Zero means no cap.
	PageLimit int
	// Exhaustive keeps paging until an empty page or the cap; otherwise the
	// crawl stops after one page.
	Exhaustive   bool
	RequestDelay time.Duration
}

// DefaultOptions crawls BTC_JPY exhaustively, 20 pages of 100.
func DefaultOptions() Options {
	return Options{
		ProductCode:  "BTC_JPY",
		PageSize:     DefaultPageSize,
		PageLimit:    DefaultPageLimit,
		Exhaustive:   true,
		RequestDelay: DefaultRequestDelay,
	}
}

// Result is what one crawl produced. Executions are in fetch order: pages
// most recent first, each page as delivered.
type Result struct {
	Executions []market.Execution
	Pages      int
	Requests   int
	// Cursor is the before-bound the next page would have used.
	Cursor *int64
	Status Status
	Reason Reason
}

// NewestID and OldestID bound the ids collected, ok=false when none were.
func (r Result) NewestID() (int64, bool) { return market.MaxID(r.Executions) }
func (r Result) OldestID() (int64, bool) { return market.MinID(r.Executions) }

// Crawler pages backward through the execution feed.
type Crawler struct {
	fetcher PageFetcher
	opts    Options
	logger  *slog.Logger

	// Sleep is swapped out in tests.
	Sleep backoff.Sleeper
}

// New builds a Crawler. A zero PageSize selects DefaultPageSize.
func New(f PageFetcher, opts Options, logger *slog.Logger) *Crawler {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{fetcher: f, opts: opts, logger: logger, Sleep: backoff.Sleep}
}

// Options returns the effective options.
func (c *Crawler) Options() Options {
	return c.opts
}

// Crawl runs until the feed is exhausted, the page cap is hit, a fetch fails
// or ctx ends. On cancellation the executions collected so far are returned
// alongside ctx.Err(). An aborted crawl always returns a non-nil error.
func (c *Crawler) Crawl(ctx context.Context) (Result, error) {
	var (
		res    Result
		cursor *int64
	)
	log := c.logger.With("product_code", c.opts.ProductCode)
	log.Info("crawl started",
		"page_size", c.opts.PageSize, "page_limit", c.opts.PageLimit,
		"exhaustive", c.opts.Exhaustive)

	finish := func(status Status, reason Reason, err error) (Result, error) {
		res.Status, res.Reason = status, reason
		res.Cursor = cursor
		attrs := []any{"status", status, "pages", res.Pages,
			"requests", res.Requests, "executions", len(res.Executions)}
		if reason != "" {
			attrs = append(attrs, "reason", reason)
		}
		if err != nil {
			log.Warn("crawl stopped", append(attrs, "error", err)...)
		} else {
			log.Info("crawl finished", attrs...)
		}
		return res, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return finish(StatusCancelled, "", err)
		}

		req := bitflyer.ExecutionsRequest{
			ProductCode: c.opts.ProductCode,
			Count:       c.opts.PageSize,
			Before:      cursor,
		}
		res.Requests++
		page, err := c.fetcher.Fetch(ctx, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return finish(StatusCancelled, "", ctxErr)
			}
			return finish(StatusAborted, "", fmt.Errorf("%w: page %d: %w", ErrAborted, res.Pages+1, err))
		}

		if len(page.Executions) == 0 {
			return finish(StatusCompleted, ReasonEmpty, nil)
		}

		next := page.NextBefore
		if next == nil {
			next = bitflyer.NewPage(page.Executions).NextBefore
		}
		if cursor != nil && *next >= *cursor {
			return finish(StatusAborted, "", fmt.Errorf("%w: %w: before=%d returned oldest id %d",
				ErrAborted, ErrCursorStalled, *cursor, *next))
		}

		res.Executions = append(res.Executions, page.Executions...)
		cursor = next
		res.Pages++
		log.Debug("page collected", "page", res.Pages, "count", len(page.Executions), "next_before", *cursor)

		if !c.opts.Exhaustive {
			return finish(StatusCompleted, ReasonSinglePage, nil)
		}
		if c.opts.PageLimit > 0 && res.Pages >= c.opts.PageLimit {
			return finish(StatusCompleted, ReasonPageLimit, nil)
		}

		if err := c.Sleep(ctx, c.opts.RequestDelay); err != nil {
			return finish(StatusCancelled, "", err)
		}
	}
}
