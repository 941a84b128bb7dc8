package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `run_id, product_code, started_at, finished_at, status, reason, pages,
	requests, executions, candles, newest_id, oldest_id, error, output`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		rec              RunRecord
		started, finished string
	)
	err := s.Scan(
		&rec.RunID,
		&rec.ProductCode,
		&started,
		&finished,
		&rec.Status,
		&rec.Reason,
		&rec.Pages,
		&rec.Requests,
		&rec.Executions,
		&rec.Candles,
		&rec.NewestID,
		&rec.OldestID,
		&rec.Error,
		&rec.Output,
	)
	if err != nil {
		return RunRecord{}, err
	}
	if rec.StartedAt, err = parseTime(started); err != nil {
		return RunRecord{}, fmt.Errorf("run %s started_at: %w", rec.RunID, err)
	}
	if rec.FinishedAt, err = parseTime(finished); err != nil {
		return RunRecord{}, fmt.Errorf("run %s finished_at: %w", rec.RunID, err)
	}
	return rec, nil
}

// GetRun returns a single run by id.
func (j *SQLite) GetRun(runID string) (RunRecord, error) {
	row := j.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
		}
		return RunRecord{}, err
	}
	return rec, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (j *SQLite) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	return j.queryRuns(`SELECT `+runColumns+` FROM runs
		ORDER BY started_at DESC, run_id DESC LIMIT ?`, limit)
}

// ListRunsBetween returns runs whose started_at is within [start, end), oldest first.
func (j *SQLite) ListRunsBetween(start, end time.Time) ([]RunRecord, error) {
	return j.queryRuns(`SELECT `+runColumns+` FROM runs
		WHERE started_at >= ? AND started_at < ?
		ORDER BY started_at ASC`, formatTime(start), formatTime(end))
}

func (j *SQLite) queryRuns(query string, args ...any) ([]RunRecord, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
