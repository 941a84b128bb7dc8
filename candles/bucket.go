package candles

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rustyeddy/execfeed/market"
)

// DefaultInterval is the bucket width.
const DefaultInterval = time.Minute

// Ordering decides member order inside a bucket, and therefore which
// execution is the open and which is the close.
type Ordering string

const (
	// OrderByID sorts members by ascending venue id. The result does not
	// depend on input order.
	OrderByID Ordering = "id"
	// OrderByArrival keeps members in the order they were handed in.
	OrderByArrival Ordering = "arrival"
)

// ParseOrdering accepts "id" or "arrival"; empty means OrderByID.
func ParseOrdering(s string) (Ordering, error) {
	switch Ordering(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderByID:
		return OrderByID, nil
	case OrderByArrival:
		return OrderByArrival, nil
	default:
		return "", fmt.Errorf("unknown ordering %q (want id or arrival)", s)
	}
}

// Options controls bucketing.
type Options struct {
	// Interval is the bucket width. Zero means DefaultInterval.
	Interval time.Duration
	Ordering Ordering
	// FillGaps inserts an empty bucket for every missing interval between
	// the first and last observed key.
	FillGaps bool
}

// DefaultOptions is one-minute buckets ordered by id, no gap filling.
func DefaultOptions() Options {
	return Options{Interval: DefaultInterval, Ordering: OrderByID}
}

func (o Options) interval() time.Duration {
	if o.Interval <= 0 {
		return DefaultInterval
	}
	return o.Interval
}

// Bucket is the executions that fall in [Start, Start+interval).
type Bucket struct {
	Start      time.Time
	Executions []market.Execution
}

// Empty reports whether the bucket has no members.
func (b Bucket) Empty() bool {
	return len(b.Executions) == 0
}

// Key truncates t to the bucket it belongs to, in UTC.
func Key(t time.Time, interval time.Duration) time.Time {
	return t.UTC().Truncate(interval)
}

// Bucketize groups execs by truncated timestamp and returns buckets in
// ascending key order. Input order is not assumed.
func Bucketize(execs []market.Execution, opts Options) []Bucket {
	if len(execs) == 0 {
		return []Bucket{}
	}
	interval := opts.interval()

	index := make(map[int64]int)
	var buckets []Bucket
	for _, e := range execs {
		k := Key(e.Time, interval)
		i, ok := index[k.UnixNano()]
		if !ok {
			i = len(buckets)
			index[k.UnixNano()] = i
			buckets = append(buckets, Bucket{Start: k})
		}
		buckets[i].Executions = append(buckets[i].Executions, e)
	}

	slices.SortFunc(buckets, func(a, b Bucket) int {
		return a.Start.Compare(b.Start)
	})
	if opts.Ordering != OrderByArrival {
		for _, b := range buckets {
			slices.SortStableFunc(b.Executions, func(x, y market.Execution) int {
				return cmp.Compare(x.ID, y.ID)
			})
		}
	}

	if opts.FillGaps {
		return FillGaps(buckets, interval)
	}
	return buckets
}

// FillGaps returns buckets with an empty bucket inserted for every missing
// interval between the first and last key. buckets must be ascending.
func FillGaps(buckets []Bucket, interval time.Duration) []Bucket {
	if len(buckets) < 2 {
		return buckets
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	span := buckets[len(buckets)-1].Start.Sub(buckets[0].Start)
	out := make([]Bucket, 0, int(span/interval)+1)
	for i, b := range buckets {
		if i > 0 {
			for t := out[len(out)-1].Start.Add(interval); t.Before(b.Start); t = t.Add(interval) {
				out = append(out, Bucket{Start: t})
			}
		}
		out = append(out, b)
	}
	return out
}
