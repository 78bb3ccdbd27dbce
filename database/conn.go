package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"testhelper/fixture"
)

// dialect holds what differs between the supported SQL databases.
type dialect interface {
	name() string
	sqlDriver() string
	dsn(cfg Config) (string, error)
	quote(ident string) string
	placeholder(n int) string
	setTimezone(ctx context.Context, db *sql.DB, tz string) error
	// objectsQuery lists objects of one kind; its only argument is the kind.
	objectsQuery() string
	tableKind() string
	viewKind() string
	truncate(table string) string
}

// Option configures a driver.
type Option func(*conn)

// WithLogger sets the logger used for connection events and debug query logs.
func WithLogger(log zerolog.Logger) Option {
	return func(c *conn) {
		c.log = log
	}
}

// conn implements DB on top of database/sql. The pool is pinned to a single
// connection so session settings such as the timezone apply to every statement.
type conn struct {
	dialect dialect
	cfg     Config
	state   State
	db      *sql.DB
	log     zerolog.Logger
}

func newConn(d dialect, opts ...Option) conn {
	c := conn{
		dialect: d,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.log = c.log.With().Str("driver", d.name()).Logger()
	return c
}

func (c *conn) Setup(cfg Config) error {
	if c.state == StateConnected {
		return fmt.Errorf("%s: cannot change configuration of a connected database", c.dialect.name())
	}
	c.cfg = cfg
	c.state = StateConfigured
	return nil
}

func (c *conn) Config() Config { return c.cfg }

func (c *conn) State() State { return c.state }

func (c *conn) IsConnected() bool { return c.state == StateConnected }

// DB returns the underlying pool, or nil when not connected.
func (c *conn) DB() *sql.DB { return c.db }

func (c *conn) Connect(ctx context.Context) error {
	if c.state == StateConnected {
		return nil
	}
	if c.state == StateUnconfigured {
		return &ConnectionError{Driver: c.dialect.name(), Err: ErrNotConfigured}
	}

	dsn, err := c.dialect.dsn(c.cfg)
	if err != nil {
		return &ConnectionError{Driver: c.dialect.name(), Err: err}
	}
	db, err := sql.Open(c.dialect.sqlDriver(), dsn)
	if err != nil {
		return &ConnectionError{Driver: c.dialect.name(), Err: fmt.Errorf("failed to open database connection: %w", err)}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if pingErr := db.PingContext(ctx); pingErr != nil {
		return c.abortConnect(db, fmt.Errorf("failed to ping database: %w", pingErr))
	}

	if tz := c.cfg.Timezone; tz != "" {
		if tzErr := c.dialect.setTimezone(ctx, db, tz); tzErr != nil {
			return c.abortConnect(db, fmt.Errorf("setting timezone (%s) failed: %w", tz, tzErr))
		}
	}

	c.db = db
	c.state = StateConnected
	c.log.Debug().Str("database", c.cfg.Database).Msg("connected")
	return nil
}

func (c *conn) abortConnect(db *sql.DB, err error) error {
	if closeErr := db.Close(); closeErr != nil {
		err = fmt.Errorf("%w; additionally failed to close connection: %v", err, closeErr)
	}
	return &ConnectionError{Driver: c.dialect.name(), Err: err}
}

func (c *conn) Close() error {
	if c.state != StateConnected {
		return nil
	}
	c.state = StateClosed
	db := c.db
	c.db = nil
	return db.Close()
}

func (c *conn) requireConnected() error {
	if c.state != StateConnected {
		return ErrNotConnected
	}
	return nil
}

func (c *conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if c.cfg.Debug {
		c.log.Debug().Str("query", query).Int("args", len(args)).Msg("executing statement")
	}
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	return res, nil
}

func (c *conn) RunQuery(ctx context.Context, queries ...string) (sql.Result, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}

	var last sql.Result
	for _, q := range queries {
		res, err := c.exec(ctx, q)
		if err != nil {
			return nil, err
		}
		last = res
	}
	return last, nil
}

func (c *conn) LoadFixture(ctx context.Context, format fixture.Format, payload any) error {
	if err := c.requireConnected(); err != nil {
		return err
	}

	switch format {
	case fixture.FormatSQL:
		statements, ok := payload.([]string)
		if !ok {
			return &InvalidFixtureDataError{Format: format, Reason: fmt.Sprintf("expected []string, got %T", payload)}
		}
		_, err := c.RunQuery(ctx, statements...)
		return err
	case fixture.FormatJSON, fixture.FormatYAML:
		return c.insertRows(ctx, format, payload)
	default:
		return &UnsupportedFixtureFormatError{Driver: c.dialect.name(), Format: format}
	}
}

func (c *conn) CountRows(ctx context.Context, table string) (int64, error) {
	if err := c.requireConnected(); err != nil {
		return 0, err
	}

	query := "SELECT COUNT(1) FROM " + c.dialect.quote(table)
	var count int64
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, &QueryError{Query: query, Err: err}
	}
	return count, nil
}

func (c *conn) TableNames(ctx context.Context) ([]string, error) {
	return c.objectNames(ctx, c.dialect.tableKind())
}

func (c *conn) ViewNames(ctx context.Context) ([]string, error) {
	return c.objectNames(ctx, c.dialect.viewKind())
}

func (c *conn) objectNames(ctx context.Context, kind string) ([]string, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}

	query := c.dialect.objectsQuery()
	rows, err := c.db.QueryContext(ctx, query, kind)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan object name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *conn) TableData(ctx context.Context, table string) ([]map[string]any, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + c.dialect.quote(table)
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	data := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", table, err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		data = append(data, row)
	}
	return data, rows.Err()
}

func (c *conn) TruncateTables(ctx context.Context, tables ...string) error {
	if err := c.requireConnected(); err != nil {
		return err
	}

	existing, err := c.TableNames(ctx)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	for _, table := range tables {
		if !present[table] {
			continue
		}
		if _, err := c.exec(ctx, c.dialect.truncate(table)); err != nil {
			return err
		}
	}
	return nil
}

func (c *conn) DropTables(ctx context.Context, tables ...string) error {
	return c.dropAll(ctx, "TABLE", tables)
}

func (c *conn) DropViews(ctx context.Context, views ...string) error {
	return c.dropAll(ctx, "VIEW", views)
}

func (c *conn) dropAll(ctx context.Context, kind string, names []string) error {
	if err := c.requireConnected(); err != nil {
		return err
	}
	for _, name := range names {
		if _, err := c.exec(ctx, fmt.Sprintf("DROP %s IF EXISTS %s", kind, c.dialect.quote(name))); err != nil {
			return err
		}
	}
	return nil
}

func quoteWith(ident string, q string) string {
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// IsQueryError reports whether err is, or wraps, a QueryError.
func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
