package candles

import "time"

// Gap is a run of consecutive missing buckets.
type Gap struct {
	Start time.Time // first missing bucket
	Len   int       // number of missing intervals
}

// GapStats summarizes coverage between the first and last observed bucket.
type GapStats struct {
	TotalBuckets   int
	PresentBuckets int
	MissingBuckets int
	GapCount       int
	LongestGap     int
	Gaps           []Gap
}

// Coverage reports the holes in ascending buckets. Buckets that are present
// but empty count as missing.
func Coverage(buckets []Bucket, interval time.Duration) GapStats {
	var s GapStats
	if len(buckets) == 0 {
		return s
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	first := buckets[0].Start
	last := buckets[len(buckets)-1].Start
	s.TotalBuckets = int(last.Sub(first)/interval) + 1

	present := make(map[int64]bool, len(buckets))
	for _, b := range buckets {
		if !b.Empty() {
			present[b.Start.UnixNano()] = true
		}
	}
	s.PresentBuckets = len(present)
	s.MissingBuckets = s.TotalBuckets - s.PresentBuckets

	var cur *Gap
	for t := first; !t.After(last); t = t.Add(interval) {
		if present[t.UnixNano()] {
			cur = nil
			continue
		}
		if cur == nil {
			s.Gaps = append(s.Gaps, Gap{Start: t})
			cur = &s.Gaps[len(s.Gaps)-1]
		}
		cur.Len++
		if cur.Len > s.LongestGap {
			s.LongestGap = cur.Len
		}
	}
	s.GapCount = len(s.Gaps)
	return s
}
