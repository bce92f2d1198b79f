// Package relational implements storage.Repository over a relational
// database (Postgres via jackc/pgx/v5's stdlib driver, or SQLite via
// modernc.org/sqlite), grounded on the platform's outbox worker's
// lease-batch query style (SELECT ... FOR UPDATE SKIP LOCKED) and the raw
// database/sql adapter conventions used for its SQLite storage backend.
package relational

// DDLPostgres creates the jobs table matching the Job data model (§3) and
// the processed_files inventory table from §6's persisted state layout.
const DDLPostgres = `
CREATE TABLE IF NOT EXISTS jobs (
	id                TEXT PRIMARY KEY,
	type              TEXT NOT NULL,
	source            TEXT NOT NULL,
	owner             TEXT NOT NULL,
	status            TEXT NOT NULL,
	priority          INTEGER NOT NULL DEFAULT 5,
	data              JSONB NOT NULL,
	results           JSONB,
	error             TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at        TIMESTAMPTZ,
	lock_expires_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_jobs_status_source ON jobs (status, source);
CREATE INDEX IF NOT EXISTS idx_jobs_owner ON jobs (owner);

CREATE TABLE IF NOT EXISTS processed_files (
	id               BIGSERIAL PRIMARY KEY,
	owner_email      TEXT NOT NULL,
	source_type      TEXT NOT NULL,
	original_filename TEXT NOT NULL,
	content_type     TEXT,
	size_bytes       BIGINT NOT NULL,
	r2_object_key    TEXT NOT NULL,
	status           TEXT NOT NULL,
	additional_data  JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DDLSQLite is the SQLite equivalent for local/dev deployments.
const DDLSQLite = `
CREATE TABLE IF NOT EXISTS jobs (
	id                TEXT PRIMARY KEY,
	type              TEXT NOT NULL,
	source            TEXT NOT NULL,
	owner             TEXT NOT NULL,
	status            TEXT NOT NULL,
	priority          INTEGER NOT NULL DEFAULT 5,
	data              TEXT NOT NULL,
	results           TEXT,
	error             TEXT,
	created_at        DATETIME NOT NULL,
	updated_at        DATETIME NOT NULL,
	expires_at        DATETIME,
	lock_expires_at   DATETIME
);
CREATE INDEX IF NOT EXISTS idx_jobs_status_source ON jobs (status, source);
CREATE INDEX IF NOT EXISTS idx_jobs_owner ON jobs (owner);

CREATE TABLE IF NOT EXISTS processed_files (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_email      TEXT NOT NULL,
	source_type      TEXT NOT NULL,
	original_filename TEXT NOT NULL,
	content_type     TEXT,
	size_bytes       INTEGER NOT NULL,
	r2_object_key    TEXT NOT NULL,
	status           TEXT NOT NULL,
	additional_data  TEXT,
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);
`
