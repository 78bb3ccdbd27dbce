package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"testhelper/fixture"
)

// insertRows loads a row document: an object mapping table names to arrays of
// row objects. Tables and columns are inserted in document order when the
// payload is ordered, and in sorted order otherwise.
func (c *conn) insertRows(ctx context.Context, format fixture.Format, payload any) error {
	tables, ok := fixture.Fields(payload)
	if !ok {
		return &InvalidFixtureDataError{Format: format, Reason: fmt.Sprintf("expected an object of tables, got %T", payload)}
	}

	for _, table := range tables {
		rows, ok := table.Value.([]any)
		if !ok {
			return &InvalidFixtureDataError{Format: format, Reason: fmt.Sprintf("table %q: expected an array of rows, got %T", table.Key, table.Value)}
		}
		for i, row := range rows {
			columns, ok := fixture.Fields(row)
			if !ok {
				return &InvalidFixtureDataError{Format: format, Reason: fmt.Sprintf("table %q row %d: expected an object, got %T", table.Key, i, row)}
			}
			if len(columns) == 0 {
				continue
			}
			query, args, err := c.insertStatement(table.Key, columns)
			if err != nil {
				return &InvalidFixtureDataError{Format: format, Reason: fmt.Sprintf("table %q row %d: %v", table.Key, i, err)}
			}
			if _, err := c.exec(ctx, query, args...); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *conn) insertStatement(table string, columns []fixture.Field) (string, []any, error) {
	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		v, err := columnValue(col.Value)
		if err != nil {
			return "", nil, fmt.Errorf("column %q: %w", col.Key, err)
		}
		names[i] = c.dialect.quote(col.Key)
		marks[i] = c.dialect.placeholder(i + 1)
		args[i] = v
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.dialect.quote(table), strings.Join(names, ", "), strings.Join(marks, ", "))
	return query, args, nil
}

// numberValue keeps integers that fit int64 and floats that survive a round
// trip through float64. Anything else, such as unsigned BIGINT or DECIMAL
// values, is passed as its decimal text for the database to convert.
func numberValue(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil && strconv.FormatFloat(f, 'g', -1, 64) == n.String() {
		return f
	}
	return n.String()
}

// columnValue converts a decoded fixture value to a database/sql argument.
// Nested objects and arrays are stored as their JSON encoding.
func columnValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int, int64, float64, time.Time:
		return val, nil
	case json.Number:
		return numberValue(val), nil
	case []any, map[string]any, *fixture.Object:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return fmt.Sprint(val), nil
	}
}
