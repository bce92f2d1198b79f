package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// SQLTier implements DurableTier over database/sql, targeting either
// Postgres (via jackc/pgx/v5's stdlib driver) or SQLite (via
// modernc.org/sqlite), matching the relational schema's cache_data(key,
// value, expires_at) table (§6 persisted state layout).
type SQLTier struct {
	db      *sql.DB
	dialect Dialect
}

// Dialect selects the placeholder syntax used when building queries.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

// NewSQLTier constructs a SQLTier. The caller is responsible for having run
// the cache_data DDL (see internal/cache/ddl.go).
func NewSQLTier(db *sql.DB, dialect Dialect) *SQLTier {
	return &SQLTier{db: db, dialect: dialect}
}

func (s *SQLTier) ph(n int) string {
	if s.dialect == DialectSQLite {
		return "?"
	}
	return "$" + itoa(int64(n))
}

func (s *SQLTier) Get(ctx context.Context, key string) (string, *time.Time, bool, error) {
	q := "SELECT value, expires_at FROM cache_data WHERE key = " + s.ph(1)
	var value string
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx, q, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, err
	}
	if expiresAt.Valid && expiresAt.Time.Before(time.Now()) {
		_ = s.Delete(ctx, key)
		return "", nil, false, nil
	}
	var exp *time.Time
	if expiresAt.Valid {
		exp = &expiresAt.Time
	}
	return value, exp, true, nil
}

func (s *SQLTier) Set(ctx context.Context, key, value string, expiresAt *time.Time) error {
	var q string
	if s.dialect == DialectSQLite {
		q = `INSERT INTO cache_data (key, value, expires_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`
	} else {
		q = `INSERT INTO cache_data (key, value, expires_at) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`
	}
	_, err := s.db.ExecContext(ctx, q, key, value, expiresAt)
	return err
}

func (s *SQLTier) Delete(ctx context.Context, key string) error {
	q := "DELETE FROM cache_data WHERE key = " + s.ph(1)
	_, err := s.db.ExecContext(ctx, q, key)
	return err
}

// SnapshotSortedSet serializes members as a JSON object and stores it under
// key with no expiry; it exists purely for forensic recovery and is never
// read back into the fast tier automatically.
func (s *SQLTier) SnapshotSortedSet(ctx context.Context, key string, members map[string]float64) error {
	raw, err := json.Marshal(members)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(raw), nil)
}

func (s *SQLTier) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
