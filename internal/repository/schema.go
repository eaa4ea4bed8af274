package repository

// Schema definitions for the Harrier database.
// Compatible with both SQLite and PostgreSQL.

const schemaEvaluations = `
CREATE TABLE IF NOT EXISTS evaluations (
    id TEXT PRIMARY KEY,
    timestamp TIMESTAMP NOT NULL,
    decision TEXT NOT NULL,
    final_score INTEGER NOT NULL,
    dti_ratio REAL NOT NULL,
    dti_class TEXT NOT NULL,
    threshold INTEGER NOT NULL,
    valid INTEGER NOT NULL DEFAULT 1,
    process_ms INTEGER NOT NULL DEFAULT 0,
    payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evaluations_timestamp ON evaluations(timestamp);
CREATE INDEX IF NOT EXISTS idx_evaluations_decision ON evaluations(decision);
CREATE INDEX IF NOT EXISTS idx_evaluations_score ON evaluations(final_score);
`

const schemaBacktestReports = `
CREATE TABLE IF NOT EXISTS backtest_reports (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    report TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_backtest_reports_created ON backtest_reports(created_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaEvaluations,
		schemaBacktestReports,
	}
}
