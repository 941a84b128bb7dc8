package journal

import (
	"fmt"
	"strings"
	"time"
)

// RunRecord is the outcome of one crawl session.
type RunRecord struct {
	RunID       string
	ProductCode string
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      string // completed, aborted, cancelled
	Reason      string // why a completed crawl stopped
	Pages       int
	Requests    int
	Executions  int
	Candles     int
	NewestID    int64 // 0 when nothing was collected
	OldestID    int64
	Error       string
	Output      string // files written, comma separated
}

// Duration is how long the run took.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

type Journal interface {
	RecordRun(RunRecord) error
	Close() error
}

// Nop discards every record.
type Nop struct{}

func (Nop) RecordRun(RunRecord) error { return nil }
func (Nop) Close() error              { return nil }

// Open builds the journal named by kind: sqlite, csv or none.
func Open(kind, path string) (Journal, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "sqlite":
		return NewSQLite(path)
	case "csv":
		return NewCSV(path)
	case "", "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q (use sqlite, csv or none)", kind)
	}
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}
