package cache

// DDLPostgres creates the durable tier's cache_data table with an index on
// expires_at for efficient sweep-based eviction (§6 persisted state
// layout).
const DDLPostgres = `
CREATE TABLE IF NOT EXISTS cache_data (
	key         TEXT PRIMARY KEY,
	value       TEXT NOT NULL,
	expires_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_cache_data_expires_at ON cache_data (expires_at);
`

// DDLSQLite is the SQLite equivalent used by local/dev deployments.
const DDLSQLite = `
CREATE TABLE IF NOT EXISTS cache_data (
	key         TEXT PRIMARY KEY,
	value       TEXT NOT NULL,
	expires_at  DATETIME
);
CREATE INDEX IF NOT EXISTS idx_cache_data_expires_at ON cache_data (expires_at);
`
