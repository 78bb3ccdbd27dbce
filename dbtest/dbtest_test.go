package dbtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testhelper/config"
	"testhelper/database"
	"testhelper/fixture"
)

type recordingTB struct {
	testing.TB
	fatals []string
	errors []string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.fatals = append(r.fatals, fmt.Sprintf(format, args...))
}

func (r *recordingTB) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func writeFixture(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newFixtureRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFixture(t, root, "schema.sql", strings.Join([]string{
		"-- schema",
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL);",
		"CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER, title TEXT);",
		"CREATE VIEW user_names AS SELECT name FROM users;",
		"",
	}, "\n"))
	writeFixture(t, root, "users.json", `-- two users
{"users": [{"id": 1, "name": "ada"}, {"id": 2, "name": "grace"}]}
`)
	writeFixture(t, root, "posts.yaml", "posts:\n  - id: 1\n    user_id: 1\n    title: hello\n")
	writeFixture(t, root, "broken.sql", "INSERT INTO nowhere VALUES (1);\n")
	return root
}

func newSQLiteSuite(t *testing.T, name string) *Suite {
	t.Helper()
	t.Setenv(config.EnvKey(name, "driver"), database.DriverSQLite)
	t.Setenv(config.EnvKey(name, "database"), filepath.Join(t.TempDir(), "test.db"))

	s := NewSuite(WithRoot(newFixtureRoot(t)))
	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})
	return s
}

func TestSuiteLoadFixtures(t *testing.T) {
	s := newSQLiteSuite(t, "main")

	s.LoadFixtures(t, "main", "schema.sql", "users.json", "posts.yaml")

	db := s.DB(t, "main")
	assert.True(t, db.IsConnected())
	AssertRowCount(t, db, "users", 2)
	AssertRowCount(t, db, "posts", 1)
	assert.Same(t, db, s.DB(t, "MAIN"), "names are case-insensitive and handles are shared")
	assert.Equal(t, 1, s.Registry().Len())
}

func TestSuiteTruncateAndDrop(t *testing.T) {
	s := newSQLiteSuite(t, "main")
	s.LoadFixtures(t, "main", "schema.sql", "users.json")
	db := s.DB(t, "main")

	s.TruncateAll(t, "main")
	AssertTableEmpty(t, db, "users")

	s.DropAllTables(t, "main")
	ctx := context.Background()
	tables, err := db.TableNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)
	views, err := db.ViewNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestSuiteLoaderAndFixtureData(t *testing.T) {
	s := newSQLiteSuite(t, "main")

	l := s.Loader(t, "main")
	require.NotNil(t, l)
	assert.True(t, l.IsDBSet())
	assert.Equal(t, s.Root(), l.Root())

	data := FixtureData(t, l, "users.json")
	tables, ok := fixture.Fields(data)
	require.True(t, ok)
	require.Len(t, tables, 1)
	assert.Equal(t, "users", tables[0].Key)

	statements := FixtureData(t, l, "schema.sql")
	assert.Len(t, statements, 3)
}

func TestSuiteFailures(t *testing.T) {
	s := newSQLiteSuite(t, "main")

	rec := &recordingTB{TB: t}
	assert.Nil(t, s.DB(rec, "unknown"))
	require.Len(t, rec.fatals, 1)
	assert.Contains(t, rec.fatals[0], "database is not configured")

	rec = &recordingTB{TB: t}
	s.LoadFixtures(rec, "main", "broken.sql")
	require.Len(t, rec.fatals, 1)
	assert.Contains(t, rec.fatals[0], "INSERT INTO nowhere")

	rec = &recordingTB{TB: t}
	l := s.Loader(t, "main")
	assert.Nil(t, FixtureData(rec, l, "missing.json"))
	require.Len(t, rec.fatals, 1)
}

func TestSuiteUnknownDriver(t *testing.T) {
	t.Setenv(config.EnvKey("odd", "driver"), "oracle")
	t.Setenv(config.EnvKey("odd", "database"), "x")

	s := NewSuite()
	rec := &recordingTB{TB: t}
	assert.Nil(t, s.DB(rec, "odd"))
	require.Len(t, rec.fatals, 1)
	assert.Contains(t, rec.fatals[0], `unknown database driver name: "oracle"`)
}

func TestSuiteRootFromConfig(t *testing.T) {
	t.Setenv(config.FixtureDirEnv, "")
	s := NewSuite(WithConfigFile(&config.File{FixturesDir: "/srv/fixtures"}))
	assert.Equal(t, "/srv/fixtures", s.Root())

	t.Setenv(config.FixtureDirEnv, "/from/env")
	assert.Equal(t, "/from/env", s.Root())

	assert.Equal(t, "/explicit", NewSuite(WithRoot("/explicit")).Root())
}

func TestAssertions(t *testing.T) {
	s := newSQLiteSuite(t, "main")
	s.LoadFixtures(t, "main", "schema.sql", "users.json")
	db := s.DB(t, "main")

	rec := &recordingTB{TB: t}
	AssertRowCount(rec, db, "users", 5)
	AssertTableEmpty(rec, db, "users")
	assert.Equal(t, []string{
		"table users row count = 2, want 5",
		"table users is not empty: has 2 rows",
	}, rec.errors)

	rec = &recordingTB{TB: t}
	AssertRowCount(rec, db, "missing", 0)
	require.Len(t, rec.fatals, 1)
	assert.Contains(t, rec.fatals[0], "failed to count rows in missing")
}

func TestOpenUsesDefaultSuite(t *testing.T) {
	t.Setenv(config.EnvKey("shared", "driver"), database.DriverSQLite)
	t.Setenv(config.EnvKey("shared", "database"), ":memory:")

	db := Open(t, "shared")
	assert.True(t, db.IsConnected())
	assert.Same(t, db, Open(t, "shared"))
	assert.Same(t, Default(), Default())
}
