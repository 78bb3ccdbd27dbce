package database

import (
	"context"
	"database/sql"
	"net"
	"net/url"
	"strconv"

	"github.com/lib/pq"
)

// Postgres is the PostgreSQL test database driver.
type Postgres struct {
	conn
}

var _ DB = (*Postgres)(nil)

// NewPostgres returns an unconfigured PostgreSQL driver.
func NewPostgres(opts ...Option) *Postgres {
	return &Postgres{conn: newConn(postgresDialect{}, opts...)}
}

type postgresDialect struct{}

func (postgresDialect) name() string      { return DriverPostgres }
func (postgresDialect) sqlDriver() string { return "postgres" }

func (postgresDialect) dsn(cfg Config) (string, error) {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   net.JoinHostPort(cfg.hostOr("127.0.0.1"), strconv.Itoa(cfg.portOr(5432))),
		Path:   "/" + cfg.Database,
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (postgresDialect) quote(ident string) string { return pq.QuoteIdentifier(ident) }

func (postgresDialect) placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) setTimezone(ctx context.Context, db *sql.DB, tz string) error {
	_, err := db.ExecContext(ctx, "SET TIME ZONE "+pq.QuoteLiteral(tz))
	return err
}

func (postgresDialect) objectsQuery() string {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = $1
		ORDER BY table_name`
}

func (postgresDialect) tableKind() string { return "BASE TABLE" }
func (postgresDialect) viewKind() string  { return "VIEW" }

// truncate cascades so tables referenced by foreign keys can be emptied in
// any order. Referencing tables are emptied with them.
func (d postgresDialect) truncate(table string) string {
	return "TRUNCATE TABLE " + d.quote(table) + " CASCADE"
}
