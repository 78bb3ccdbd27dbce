package preflight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var classifyTests = []struct {
	name            string
	sql             string
	wantType        string
	wantDestructive bool
	wantCommit      bool
	wantLevel       Level
	wantFinding     bool
}{
	{
		name:     "INSERT is plain data",
		sql:      "INSERT INTO users (id, name) VALUES (1, 'ada');",
		wantType: "INSERT",
	},
	{
		name:     "REPLACE is plain data",
		sql:      "REPLACE INTO users (id) VALUES (1);",
		wantType: "REPLACE",
	},
	{
		name:     "SELECT",
		sql:      "SELECT * FROM users",
		wantType: "SELECT",
	},
	{
		name:     "UPDATE with WHERE",
		sql:      "UPDATE users SET name = 'x' WHERE id = 1",
		wantType: "UPDATE",
	},
	{
		name:        "UPDATE without WHERE warns",
		sql:         "UPDATE users SET name = 'x'",
		wantType:    "UPDATE",
		wantLevel:   LevelWarning,
		wantFinding: true,
	},
	{
		name:            "DELETE is destructive",
		sql:             "DELETE FROM users WHERE id = 1;",
		wantType:        "DELETE",
		wantDestructive: true,
		wantLevel:       LevelDanger,
		wantFinding:     true,
	},
	{
		name:            "TRUNCATE TABLE is destructive",
		sql:             "TRUNCATE TABLE users;",
		wantType:        "TRUNCATE TABLE",
		wantDestructive: true,
		wantCommit:      true,
		wantLevel:       LevelDanger,
		wantFinding:     true,
	},
	{
		name:            "DROP TABLE is destructive",
		sql:             "DROP TABLE IF EXISTS users;",
		wantType:        "DROP TABLE",
		wantDestructive: true,
		wantCommit:      true,
		wantLevel:       LevelDanger,
		wantFinding:     true,
	},
	{
		name:       "DROP VIEW is not destructive",
		sql:        "DROP VIEW user_names;",
		wantType:   "DROP VIEW",
		wantCommit: true,
	},
	{
		name:            "DROP DATABASE is destructive",
		sql:             "DROP DATABASE app;",
		wantType:        "DROP DATABASE",
		wantDestructive: true,
		wantCommit:      true,
		wantLevel:       LevelDanger,
		wantFinding:     true,
	},
	{
		name:       "CREATE TABLE commits implicitly",
		sql:        "CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(64));",
		wantType:   "CREATE TABLE",
		wantCommit: true,
	},
	{
		name:       "CREATE VIEW",
		sql:        "CREATE VIEW user_names AS SELECT name FROM users;",
		wantType:   "CREATE VIEW",
		wantCommit: true,
	},
	{
		name:       "CREATE INDEX",
		sql:        "CREATE INDEX idx_name ON users(name);",
		wantType:   "CREATE INDEX",
		wantCommit: true,
	},
	{
		name:            "ALTER TABLE DROP COLUMN is destructive",
		sql:             "ALTER TABLE users DROP COLUMN name;",
		wantType:        "ALTER TABLE",
		wantDestructive: true,
		wantCommit:      true,
		wantLevel:       LevelDanger,
		wantFinding:     true,
	},
	{
		name:        "ALTER TABLE DROP INDEX warns",
		sql:         "ALTER TABLE users DROP INDEX idx_name;",
		wantType:    "ALTER TABLE",
		wantCommit:  true,
		wantLevel:   LevelWarning,
		wantFinding: true,
	},
	{
		name:       "ALTER TABLE ADD COLUMN",
		sql:        "ALTER TABLE users ADD COLUMN email VARCHAR(255);",
		wantType:   "ALTER TABLE",
		wantCommit: true,
	},
	{
		name:     "SET",
		sql:      "SET FOREIGN_KEY_CHECKS = 0;",
		wantType: "SET",
	},
	{
		name:        "unparseable is an error",
		sql:         "INSERT INTO users VALUES (1, 'a'",
		wantType:    TypeUnparseable,
		wantLevel:   LevelError,
		wantFinding: true,
	},
}

func TestAnalyzeClassification(t *testing.T) {
	a := NewAnalyzer()
	for _, tt := range classifyTests {
		t.Run(tt.name, func(t *testing.T) {
			report := a.Analyze([]string{tt.sql})
			require.Len(t, report.Statements, 1)

			stmt := report.Statements[0]
			assert.Equal(t, tt.wantType, stmt.Type)
			assert.Equal(t, tt.wantDestructive, stmt.Destructive)
			assert.Equal(t, tt.wantCommit, stmt.ImplicitCommit)
			assert.Equal(t, tt.sql, stmt.SQL)

			if !tt.wantFinding {
				assert.Empty(t, report.Findings)
				return
			}
			require.Len(t, report.Findings, 1)
			assert.Equal(t, tt.wantLevel, report.Findings[0].Level)
			assert.Equal(t, 0, report.Findings[0].Index)
		})
	}
}

func TestLenientParsing(t *testing.T) {
	sql := "CREATE EXTENSION IF NOT EXISTS pgcrypto"

	strict := NewAnalyzer().Analyze([]string{sql})
	assert.True(t, strict.HasErrors())
	assert.True(t, strict.Blocked(true))

	lenient := NewAnalyzer(WithLenientParsing()).Analyze([]string{sql})
	require.Len(t, lenient.Findings, 1)
	assert.Equal(t, LevelWarning, lenient.Findings[0].Level)
	assert.False(t, lenient.HasErrors())
	assert.False(t, lenient.Blocked(false))
}

func TestReportBlocked(t *testing.T) {
	a := NewAnalyzer()

	clean := a.Analyze([]string{"INSERT INTO users VALUES (1)"})
	assert.False(t, clean.Blocked(false))
	assert.False(t, clean.HasDanger())

	danger := a.Analyze([]string{"INSERT INTO users VALUES (1)", "TRUNCATE TABLE users"})
	assert.True(t, danger.HasDanger())
	assert.False(t, danger.HasErrors())
	assert.True(t, danger.Blocked(false))
	assert.False(t, danger.Blocked(true))
	require.Len(t, danger.Findings, 1)
	assert.Equal(t, 1, danger.Findings[0].Index)
	assert.Equal(t, "[DANGER] statement 2: TRUNCATE TABLE will delete all rows from the table", danger.Findings[0].String())
}

func TestReportTables(t *testing.T) {
	report := NewAnalyzer().Analyze([]string{
		"CREATE TABLE users (id INT PRIMARY KEY)",
		"INSERT INTO users VALUES (1)",
		"INSERT INTO app.posts (id, user_id) SELECT 1, id FROM users",
		"SELECT 1",
	})

	assert.Equal(t, []string{"users"}, report.Statements[0].Tables)
	assert.Empty(t, report.Statements[3].Tables)
	assert.Equal(t, []string{"app.posts", "users"}, report.Tables())
}

func TestMultipleStatementsInOne(t *testing.T) {
	report := NewAnalyzer().Analyze([]string{"INSERT INTO a VALUES (1); INSERT INTO b VALUES (2);"})
	require.Len(t, report.Findings, 1)
	assert.Equal(t, LevelWarning, report.Findings[0].Level)
	assert.Contains(t, report.Findings[0].Message, "2 statements")
	assert.Equal(t, []string{"a", "b"}, report.Statements[0].Tables)
	assert.False(t, report.Blocked(false))
}

func TestDestructiveStatementAfterFirstOnOneLine(t *testing.T) {
	report := NewAnalyzer().Analyze([]string{"INSERT INTO t VALUES (1); DROP TABLE u;"})

	require.Len(t, report.Statements, 1)
	stmt := report.Statements[0]
	assert.Equal(t, "DROP TABLE", stmt.Type)
	assert.True(t, stmt.Destructive)
	assert.True(t, stmt.ImplicitCommit)
	assert.Equal(t, []string{"t", "u"}, stmt.Tables)

	require.Len(t, report.Findings, 2)
	assert.Equal(t, LevelWarning, report.Findings[0].Level)
	assert.Equal(t, LevelDanger, report.Findings[1].Level)
	assert.True(t, report.HasDanger())
	assert.True(t, report.Blocked(false))
	assert.False(t, report.Blocked(true))
}

func TestSummary(t *testing.T) {
	a := NewAnalyzer()
	assert.Equal(t, "1 statements, no findings", a.Analyze([]string{"SELECT 1"}).Summary())

	report := a.Analyze([]string{"DELETE FROM users", "UPDATE users SET a = 1", "nonsense here"})
	assert.Equal(t, "3 statements, 1 error, 1 danger, 1 warning", report.Summary())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARNING", LevelWarning.String())
	assert.Equal(t, "DANGER", LevelDanger.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(9).String())
}
