// Package database provides the test database contract consumed by the
// fixture loader and the test helpers, together with MySQL, PostgreSQL and
// SQLite implementations built on database/sql.
//
// A DB moves through Unconfigured, Configured (after Setup), Connected (after
// Connect) and Closed (after Close). Connect is idempotent and may be called
// again after Close. Query and fixture operations require a connection and
// fail with ErrNotConnected otherwise.
package database

import (
	"context"
	"database/sql"

	"testhelper/fixture"
)

// State is the lifecycle state of a DB.
type State int

const (
	StateUnconfigured State = iota
	StateConfigured
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// DB is a test database handle.
type DB interface {
	// Setup stores the configuration used by Connect.
	Setup(cfg Config) error
	// Connect opens the connection. It is a no-op when already connected.
	Connect(ctx context.Context) error
	IsConnected() bool
	State() State
	Config() Config

	// RunQuery executes queries in order and stops at the first failure.
	// Statements executed before the failure are not rolled back. The result of
	// the last statement is returned.
	RunQuery(ctx context.Context, queries ...string) (sql.Result, error)
	// LoadFixture ingests a parsed fixture payload.
	LoadFixture(ctx context.Context, format fixture.Format, payload any) error

	CountRows(ctx context.Context, table string) (int64, error)
	TableNames(ctx context.Context) ([]string, error)
	ViewNames(ctx context.Context) ([]string, error)
	TableData(ctx context.Context, table string) ([]map[string]any, error)
	// TruncateTables empties the given tables, skipping ones that do not exist.
	TruncateTables(ctx context.Context, tables ...string) error
	DropTables(ctx context.Context, tables ...string) error
	DropViews(ctx context.Context, views ...string) error

	Close() error
}

var _ fixture.DB = DB(nil)
