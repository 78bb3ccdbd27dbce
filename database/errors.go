package database

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"testhelper/fixture"
)

var (
	// ErrNotConnected is returned by operations that need an open connection.
	ErrNotConnected = errors.New("database: not connected")
	// ErrNotConfigured is wrapped by the ConnectionError of a DB without Setup.
	ErrNotConfigured = errors.New("database: not configured")
)

// ConnectionError reports a failure to open or prepare a connection.
type ConnectionError struct {
	Driver string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection failed: %v", e.Driver, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError reports a statement the database rejected.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v\n  Statement: %s", e.Err, truncateSQL(e.Query))
}

func (e *QueryError) Unwrap() error { return e.Err }

// UnsupportedFixtureFormatError reports a fixture format a driver cannot ingest.
type UnsupportedFixtureFormatError struct {
	Driver string
	Format fixture.Format
}

func (e *UnsupportedFixtureFormatError) Error() string {
	return fmt.Sprintf("%s driver does not support %s fixtures", e.Driver, e.Format)
}

// UnknownDriverError reports a configuration naming an unregistered driver.
type UnknownDriverError struct {
	Name string
}

func (e *UnknownDriverError) Error() string {
	return fmt.Sprintf("unknown database driver name: %q", e.Name)
}

// InvalidFixtureDataError reports a payload whose shape does not match its format.
type InvalidFixtureDataError struct {
	Format fixture.Format
	Reason string
}

func (e *InvalidFixtureDataError) Error() string {
	return fmt.Sprintf("invalid %s fixture data: %s", e.Format, e.Reason)
}

func truncateSQL(stmt string) string {
	if len(stmt) <= 80 {
		return stmt
	}
	cut := 77
	for cut > 0 && !utf8.RuneStart(stmt[cut]) {
		cut--
	}
	return stmt[:cut] + "..."
}
