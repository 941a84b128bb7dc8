package backoff

import (
	"context"
	"math"
	"time"
)

// Backoff is an exponential wait schedule. The wait after failed attempt k
// (1-based) is Unit * Base^(k-1).
type Backoff struct {
	// Unit is the first wait. Zero means one second.
	Unit time.Duration
	// Base multiplies the wait for each further attempt. Values below 1 mean 2.
	Base float64
	// Max caps a single wait. Zero means no cap.
	Max time.Duration
}

// Default matches the venue guidance: 1s, 2s, 4s, 8s, ...
func Default() Backoff {
	return Backoff{Unit: time.Second, Base: 2.0}
}

// Next returns the wait that follows failed attempt n.
func (b Backoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	unit := b.Unit
	if unit <= 0 {
		unit = time.Second
	}
	base := b.Base
	if base < 1 {
		base = 2.0
	}

	wait := float64(unit) * math.Pow(base, float64(attempt-1))
	if b.Max > 0 && wait > float64(b.Max) {
		return b.Max
	}
	if wait > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(wait)
}

// Sleeper suspends for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep waits for d. It returns ctx.Err() if ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
