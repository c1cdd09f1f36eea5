// Package storage persists the car catalog in SQLite or Postgres.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/spherical-ai/spherical/libs/car-matcher/internal/config"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Common errors
var (
	ErrNotFound          = errors.New("record not found")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Open opens and pings a database. driver is "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	var sqlDriver string
	switch driver {
	case DriverSQLite:
		sqlDriver = "sqlite3"
	case DriverPostgres:
		sqlDriver = "postgres"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	// SQLite serializes writers and ":memory:" is per connection.
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, nil
}

// OpenFromConfig opens the configured database and applies pool settings.
func OpenFromConfig(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case DriverSQLite:
		dsn := cfg.SQLite.Path
		if cfg.SQLite.JournalMode != "" && dsn != ":memory:" {
			dsn += "?_journal_mode=" + cfg.SQLite.JournalMode
		}
		return Open(ctx, DriverSQLite, dsn)
	case DriverPostgres:
		db, err := Open(ctx, DriverPostgres, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		}
		if cfg.Postgres.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		}
		if cfg.Postgres.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, cfg.Driver)
	}
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS cars (
		id          TEXT PRIMARY KEY,
		sort_order  INTEGER NOT NULL,
		brand       TEXT NOT NULL,
		model       TEXT NOT NULL,
		trim_level  TEXT NOT NULL DEFAULT '',
		year        INTEGER NOT NULL DEFAULT 0,
		body        TEXT NOT NULL DEFAULT '',
		fuel        TEXT NOT NULL DEFAULT '',
		price_try   DOUBLE PRECISION NOT NULL DEFAULT 0,
		tags        TEXT NOT NULL DEFAULT '[]',
		specs       TEXT,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cars_body ON cars (body)`,
	`CREATE INDEX IF NOT EXISTS idx_cars_fuel ON cars (fuel)`,
	`CREATE INDEX IF NOT EXISTS idx_cars_sort_order ON cars (sort_order)`,
}

// Migrate creates the catalog schema. It is safe to run repeatedly.
func Migrate(ctx context.Context, db DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for Postgres.
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }
