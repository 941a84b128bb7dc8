package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

var runHeader = []string{"run_id", "product_code", "started_at", "finished_at", "status", "reason",
	"pages", "requests", "executions", "candles", "newest_id", "oldest_id", "error", "output"}

// CSV appends one row per run. The header is written when the file is new.
type CSV struct {
	w *csv.Writer
	f *os.File
}

func NewCSV(path string) (*CSV, error) {
	if path == "" {
		return nil, fmt.Errorf("csv journal: runs file is required")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(runHeader); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return &CSV{w: w, f: f}, nil
}

func (j *CSV) RecordRun(r RunRecord) error {
	err := j.w.Write([]string{
		r.RunID,
		r.ProductCode,
		formatTime(r.StartedAt),
		formatTime(r.FinishedAt),
		r.Status,
		r.Reason,
		strconv.Itoa(r.Pages),
		strconv.Itoa(r.Requests),
		strconv.Itoa(r.Executions),
		strconv.Itoa(r.Candles),
		strconv.FormatInt(r.NewestID, 10),
		strconv.FormatInt(r.OldestID, 10),
		r.Error,
		r.Output,
	})
	if err != nil {
		return err
	}
	j.w.Flush()
	return j.w.Error()
}

func (j *CSV) Close() error {
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		j.f.Close()
		return err
	}
	return j.f.Close()
}
