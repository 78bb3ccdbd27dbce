package database

import (
	"context"
	"database/sql"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

// MySQL is the MySQL/MariaDB test database driver.
type MySQL struct {
	conn
}

var _ DB = (*MySQL)(nil)

// NewMySQL returns an unconfigured MySQL driver.
func NewMySQL(opts ...Option) *MySQL {
	return &MySQL{conn: newConn(mysqlDialect{}, opts...)}
}

type mysqlDialect struct{}

func (mysqlDialect) name() string      { return DriverMySQL }
func (mysqlDialect) sqlDriver() string { return "mysql" }

func (mysqlDialect) dsn(cfg Config) (string, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.hostOr("127.0.0.1"), strconv.Itoa(cfg.portOr(3306)))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Collation = "utf8mb4_general_ci"
	return mc.FormatDSN(), nil
}

func (mysqlDialect) quote(ident string) string { return quoteWith(ident, "`") }

func (mysqlDialect) placeholder(int) string { return "?" }

func (mysqlDialect) setTimezone(ctx context.Context, db *sql.DB, tz string) error {
	_, err := db.ExecContext(ctx, "SET time_zone = "+quoteLiteral(tz))
	return err
}

func (mysqlDialect) objectsQuery() string {
	return `SELECT table_name FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = ?
		ORDER BY table_name`
}

func (mysqlDialect) tableKind() string { return "BASE TABLE" }
func (mysqlDialect) viewKind() string  { return "VIEW" }

func (d mysqlDialect) truncate(table string) string {
	return "TRUNCATE TABLE " + d.quote(table)
}
