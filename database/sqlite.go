package database

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver
)

// SQLite is the SQLite test database driver. Config.Database is a file path
// or ":memory:".
type SQLite struct {
	conn
}

var _ DB = (*SQLite)(nil)

// NewSQLite returns an unconfigured SQLite driver.
func NewSQLite(opts ...Option) *SQLite {
	return &SQLite{conn: newConn(sqliteDialect{}, opts...)}
}

var errSQLiteTimezone = errors.New("sqlite has no session timezone")

type sqliteDialect struct{}

func (sqliteDialect) name() string      { return DriverSQLite }
func (sqliteDialect) sqlDriver() string { return "sqlite" }

func (sqliteDialect) dsn(cfg Config) (string, error) {
	return cfg.Database, nil
}

func (sqliteDialect) quote(ident string) string { return quoteWith(ident, `"`) }

func (sqliteDialect) placeholder(int) string { return "?" }

func (sqliteDialect) setTimezone(context.Context, *sql.DB, string) error {
	return errSQLiteTimezone
}

func (sqliteDialect) objectsQuery() string {
	return `SELECT name FROM sqlite_master
		WHERE type = ? AND name NOT LIKE 'sqlite_%'
		ORDER BY name`
}

func (sqliteDialect) tableKind() string { return "table" }
func (sqliteDialect) viewKind() string  { return "view" }

func (d sqliteDialect) truncate(table string) string {
	return "DELETE FROM " + d.quote(table)
}
