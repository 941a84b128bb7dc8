package market

import (
	"fmt"
	"strings"
	"time"
)

// ExecTimeLayout is how execution timestamps are written: ISO-8601 with an
// explicit offset.
const ExecTimeLayout = "2006-01-02T15:04:05.999999999Z07:00"

// MinuteLayout is how candle bucket keys are written, e.g.
// 2025-06-09T11:10:00+00:00.
const MinuteLayout = "2006-01-02T15:04:05-07:00"

// layouts without a zone are read as UTC
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime reads an ISO-8601 timestamp. A timestamp with no offset is UTC,
// never local time. The result is always in UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrInvalidInput)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrInvalidInput, s)
}

// FormatExecTime renders t in UTC with an explicit offset.
func FormatExecTime(t time.Time) string {
	return t.UTC().Format(ExecTimeLayout)
}

// FormatMinute renders a bucket key in UTC with a +00:00 offset.
func FormatMinute(t time.Time) string {
	return t.UTC().Format(MinuteLayout)
}
