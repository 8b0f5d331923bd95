package store

// schemaVersion is the current schema version. Increment when adding migrations.
const schemaVersion = 2

// migrations maps version numbers to SQL statements that bring the schema
// from (version-1) to (version). Version 1 is the initial schema.
var migrations = map[int]string{
	1: `
-- One row per request handled by the host.
CREATE TABLE IF NOT EXISTS transfers (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	cmd            TEXT    NOT NULL,
	target         TEXT    NOT NULL DEFAULT '',
	strategy       TEXT    NOT NULL DEFAULT '',
	outcome        TEXT    NOT NULL,
	mount          TEXT    NOT NULL DEFAULT '',
	total_files    INTEGER NOT NULL DEFAULT 0,
	selected_files INTEGER NOT NULL DEFAULT 0,
	response_bytes INTEGER NOT NULL DEFAULT 0,
	chunks         INTEGER NOT NULL DEFAULT 0,
	message        TEXT    NOT NULL DEFAULT '',
	duration_ms    INTEGER NOT NULL DEFAULT 0,
	created_at     TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transfers_created ON transfers(created_at);
`,
	2: `
-- Failure classification, separate from the user-facing message.
ALTER TABLE transfers ADD COLUMN error_kind TEXT NOT NULL DEFAULT '';

CREATE INDEX IF NOT EXISTS idx_transfers_outcome ON transfers(outcome);
`,
}
