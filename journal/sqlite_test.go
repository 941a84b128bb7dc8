package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func sampleRun(id string, started time.Time) RunRecord {
	return RunRecord{
		RunID:       id,
		ProductCode: "BTC_JPY",
		StartedAt:   started,
		FinishedAt:  started.Add(21 * time.Second),
		Status:      "completed",
		Reason:      "page-limit",
		Pages:       20,
		Requests:    20,
		Executions:  2000,
		Candles:     14,
		NewestID:    2_500_000_100,
		OldestID:    2_499_998_101,
		Output:      "out/executions_x.json,out/candles_x.json",
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='runs'`).Scan(&name)
	assert.NoError(t, err)
	assert.Equal(t, "runs", name)
}

func TestSQLiteRecordAndGetRun(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	started := time.Date(2025, 6, 9, 11, 10, 0, 123456789, time.UTC)
	rec := sampleRun("01JXA", started)
	require.NoError(t, j.RecordRun(rec))

	got, err := j.GetRun("01JXA")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.Equal(t, 21*time.Second, got.Duration())
}

func TestSQLiteRecordRunReplaces(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	rec := sampleRun("01JXB", time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC))
	require.NoError(t, j.RecordRun(rec))
	rec.Status = "aborted"
	rec.Reason = ""
	rec.Error = "crawl aborted: page 3: retries exhausted"
	require.NoError(t, j.RecordRun(rec))

	runs, err := j.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "aborted", runs[0].Status)
	assert.Equal(t, rec.Error, runs[0].Error)
}

func TestSQLiteGetRunMissing(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	_, err := j.GetRun("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLiteListRuns(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	base := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"R1", "R2", "R3", "R4"} {
		require.NoError(t, j.RecordRun(sampleRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	latest, err := j.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "R4", latest[0].RunID)
	assert.Equal(t, "R3", latest[1].RunID)

	all, err := j.ListRuns(0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	between, err := j.ListRunsBetween(base.Add(time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, between, 2)
	assert.Equal(t, "R2", between[0].RunID)
	assert.Equal(t, "R3", between[1].RunID)
}

func TestNewSQLiteRequiresPath(t *testing.T) {
	_, err := NewSQLite("")
	assert.Error(t, err)
}
