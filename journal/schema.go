package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	product_code TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	status TEXT NOT NULL,
	reason TEXT NOT NULL,
	pages INTEGER NOT NULL,
	requests INTEGER NOT NULL,
	executions INTEGER NOT NULL,
	candles INTEGER NOT NULL,
	newest_id INTEGER NOT NULL,
	oldest_id INTEGER NOT NULL,
	error TEXT NOT NULL,
	output TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`
