package history

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the run history tables.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    rules_path TEXT NOT NULL,
    source TEXT NOT NULL,
    status TEXT NOT NULL,
    error TEXT,

    records INTEGER NOT NULL DEFAULT 0,
    field_violations INTEGER NOT NULL DEFAULT 0,
    group_violations INTEGER NOT NULL DEFAULT 0,
    type_mismatches INTEGER NOT NULL DEFAULT 0,

    report_json TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

const insertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?)`

const getSchemaVersion = `SELECT MAX(version) FROM schema_version`
