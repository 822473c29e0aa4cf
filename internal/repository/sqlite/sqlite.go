// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// SQLite is an embedded database: it lives inside your Go binary as a single file.
// No separate database server to install, configure, or manage.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code, so no C compiler needed, works everywhere Go works.
//
// WHY sqlx ON TOP OF database/sql?
// sqlx keeps the database/sql connection pool and API, and adds struct scanning
// driven by the `db:"..."` tags on model.User (GetContext / SelectContext) plus
// named parameters (:name) for INSERT/UPDATE. Less hand-written Scan() plumbing,
// same SQL.
//
// SCHEMA SYNC:
// The table definitions live in migrations/*.sql, embedded into the binary and
// applied by goose when the store is opened. New() therefore blocks until the
// schema is current; the server must not accept traffic before that.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package-level state; serialize
// the set-and-run so two stores opened concurrently (tests) don't race.
var migrateMu sync.Mutex

// DB wraps a sqlx connection pool and provides repository methods.
// It implements repository.UserRepository (see user.go).
type DB struct {
	conn *sqlx.DB
}

// New opens the SQLite database at dbPath and brings its schema up to date.
//
// dbPath examples:
//   - "data/users.db"  → file-based database (persistent)
//   - ":memory:"       → in-memory database (lost on close)
//
// sql.Open() does NOT actually open a connection, it just creates a pool manager.
// We Ping to force an immediate connection so a bad path or permissions
// problem fails here, at startup, instead of on the first request.
func New(ctx context.Context, dbPath string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database.
	// Pin the pool to one connection so the schema we create is the one we query.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode lets reads proceed while a write is
	// in progress, which matters for a web server handling concurrent requests.
	// The setting is persistent for file databases.
	if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// SchemaVersion returns the latest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int64, error) {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, err
	}
	v, err := goose.GetDBVersionContext(ctx, db.conn.DB)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading schema version: %w", err)
	}
	return v, nil
}

// migrate applies every embedded migration that has not run yet.
// goose records applied versions in its own goose_db_version table, so
// this is safe to run on every startup.
func (db *DB) migrate(ctx context.Context) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db.conn.DB, "migrations"); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
