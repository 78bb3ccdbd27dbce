package dbtest

import (
	"context"
	"testing"

	"testhelper/database"
)

// TruncateAll empties every table. Foreign key checks are suspended on MySQL
// for the duration and PostgreSQL truncates with CASCADE.
func TruncateAll(ctx context.Context, db database.DB) error {
	tables, err := db.TableNames(ctx)
	if err != nil {
		return err
	}
	return withoutForeignKeys(ctx, db, func() error {
		return db.TruncateTables(ctx, tables...)
	})
}

// DropAll drops every view, then every table.
func DropAll(ctx context.Context, db database.DB) error {
	views, err := db.ViewNames(ctx)
	if err != nil {
		return err
	}
	if err := db.DropViews(ctx, views...); err != nil {
		return err
	}

	tables, err := db.TableNames(ctx)
	if err != nil {
		return err
	}
	return withoutForeignKeys(ctx, db, func() error {
		return db.DropTables(ctx, tables...)
	})
}

// withoutForeignKeys runs fn with MySQL foreign key checks disabled. The
// setting is per session, which is why drivers pin a single connection.
func withoutForeignKeys(ctx context.Context, db database.DB, fn func() error) error {
	if db.Config().DriverName() != database.DriverMySQL {
		return fn()
	}
	if _, err := db.RunQuery(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return err
	}
	fnErr := fn()
	if _, err := db.RunQuery(ctx, "SET FOREIGN_KEY_CHECKS = 1"); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}

// AssertRowCount fails the test if the table doesn't have the expected row count.
func AssertRowCount(t testing.TB, db database.DB, table string, expected int64) {
	t.Helper()
	count, err := db.CountRows(context.Background(), table)
	if err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
		return
	}
	if count != expected {
		t.Errorf("table %s row count = %d, want %d", table, count, expected)
	}
}

// AssertTableEmpty fails the test if the table is not empty.
func AssertTableEmpty(t testing.TB, db database.DB, table string) {
	t.Helper()
	count, err := db.CountRows(context.Background(), table)
	if err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
		return
	}
	if count != 0 {
		t.Errorf("table %s is not empty: has %d rows", table, count)
	}
}
