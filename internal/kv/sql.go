package kv

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type dialect struct {
	driver string
	schema string
	get    string
	upsert string
	del    string
}

var (
	postgresDialect = dialect{
		driver: "pgx",
		schema: `CREATE TABLE IF NOT EXISTS kv_entries (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		get: `SELECT value FROM kv_entries WHERE key = $1`,
		upsert: `INSERT INTO kv_entries (key, value, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		del: `DELETE FROM kv_entries WHERE key = $1`,
	}

	sqliteDialect = dialect{
		driver: "sqlite3",
		schema: `CREATE TABLE IF NOT EXISTS kv_entries (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		get: `SELECT value FROM kv_entries WHERE key = ?`,
		upsert: `INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		del: `DELETE FROM kv_entries WHERE key = ?`,
	}
)

// SQL keeps the namespace in a single kv_entries table.
type SQL struct {
	db *sql.DB
	d  dialect
}

// NewPostgres opens a Postgres-backed store through pgx.
func NewPostgres(ctx context.Context, connString string) (*SQL, error) {
	db, err := sql.Open(postgresDialect.driver, connString)
	if err != nil {
		return nil, errors.Wrap(err, "opening postgres")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return newSQL(ctx, db, postgresDialect)
}

// NewSQLite opens (creating if needed) a SQLite file-backed store.
func NewSQLite(ctx context.Context, path string) (*SQL, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "creating sqlite dir")
		}
	}
	db, err := sql.Open(sqliteDialect.driver, path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite")
	}
	return newSQL(ctx, db, sqliteDialect)
}

func newSQL(ctx context.Context, db *sql.DB, d dialect) (*SQL, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "pinging %s", d.driver)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrating kv_entries")
	}
	return &SQL{db: db, d: d}, nil
}

func (s *SQL) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, s.d.get, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "selecting %q", key)
	}
	return v, true, nil
}

func (s *SQL) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.d.upsert, key, value, time.Now().UTC()); err != nil {
		return errors.Wrapf(err, "upserting %q", key)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.d.del, key); err != nil {
		return errors.Wrapf(err, "deleting %q", key)
	}
	return nil
}

// Close closes the underlying connection.
func (s *SQL) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
