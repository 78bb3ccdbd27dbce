// Package dbtest wires fixture loading and test databases into Go tests.
//
// A Suite resolves database configurations from TEST_DB_<NAME>_* variables
// (or a config file), keeps one handle per configuration and builds fixture
// loaders rooted at TEST_FIXTURE_DIRECTORY:
//
//	var suite = dbtest.NewSuite()
//
//	func TestMain(m *testing.M) {
//		code := m.Run()
//		_ = suite.Close()
//		os.Exit(code)
//	}
//
//	func TestUsers(t *testing.T) {
//		suite.LoadFixtures(t, "default", "schema.sql", "users.json")
//		dbtest.AssertRowCount(t, suite.DB(t, "default"), "users", 3)
//	}
//
// Helpers report failures with t.Fatalf, except the Assert functions which use
// t.Errorf.
package dbtest

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"testhelper/config"
	"testhelper/database"
	"testhelper/fixture"
)

// Suite shares database handles between tests.
type Suite struct {
	registry *database.Registry
	file     *config.File
	root     string
	log      zerolog.Logger
	decode   fixture.DecodeOptions
}

// Option configures a Suite.
type Option func(*Suite)

// WithRegistry replaces the default registry, which knows the MySQL,
// PostgreSQL and SQLite drivers.
func WithRegistry(r *database.Registry) Option {
	return func(s *Suite) {
		s.registry = r
	}
}

// WithConfigFile resolves databases and the fixture root from a loaded config
// file. Environment variables still take precedence.
func WithConfigFile(f *config.File) Option {
	return func(s *Suite) {
		s.file = f
	}
}

// WithRoot sets the fixture root, overriding TEST_FIXTURE_DIRECTORY.
func WithRoot(root string) Option {
	return func(s *Suite) {
		s.root = root
	}
}

// WithLogger sets the logger passed to loaders.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Suite) {
		s.log = log
	}
}

// WithDecodeOptions sets how loaders decode JSON and YAML fixtures.
func WithDecodeOptions(opts fixture.DecodeOptions) Option {
	return func(s *Suite) {
		s.decode = opts
	}
}

// NewSuite creates a suite.
func NewSuite(opts ...Option) *Suite {
	s := &Suite{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = database.NewRegistry(database.WithDefaultDrivers(), database.WithRegistryLogger(s.log))
	}
	return s
}

// Root returns the fixture root used by the suite's loaders.
func (s *Suite) Root() string {
	if s.root != "" {
		return s.root
	}
	return s.file.Fixtures()
}

// Registry returns the registry holding the suite's handles.
func (s *Suite) Registry() *database.Registry {
	return s.registry
}

// DB returns a connected handle for the named database.
func (s *Suite) DB(t testing.TB, name string) database.DB {
	t.Helper()

	cfg, err := s.file.Database(name)
	if err != nil {
		t.Fatalf("dbtest: %v", err)
		return nil
	}
	db, err := s.registry.Get(context.Background(), cfg)
	if err != nil {
		t.Fatalf("dbtest: open %s database: %v", name, err)
		return nil
	}
	if err := db.Connect(context.Background()); err != nil {
		t.Fatalf("dbtest: connect %s database: %v", name, err)
		return nil
	}
	return db
}

// Loader returns a fixture loader bound to the named database.
func (s *Suite) Loader(t testing.TB, name string) *fixture.Loader {
	t.Helper()

	db := s.DB(t, name)
	if db == nil {
		return nil
	}
	return fixture.NewLoader(s.Root(),
		fixture.WithDB(db),
		fixture.WithLogger(s.log),
		fixture.WithDecodeOptions(s.decode),
	)
}

// LoadFixtures loads fixtures into the named database in order.
func (s *Suite) LoadFixtures(t testing.TB, name string, paths ...string) {
	t.Helper()

	l := s.Loader(t, name)
	if l == nil {
		return
	}
	if err := l.LoadDBFixtures(context.Background(), paths...); err != nil {
		t.Fatalf("dbtest: %v", err)
	}
}

// DropAllTables drops every view and table of the named database.
func (s *Suite) DropAllTables(t testing.TB, name string) {
	t.Helper()

	db := s.DB(t, name)
	if db == nil {
		return
	}
	if err := DropAll(context.Background(), db); err != nil {
		t.Fatalf("dbtest: drop all tables: %v", err)
	}
}

// TruncateAll empties every table of the named database.
func (s *Suite) TruncateAll(t testing.TB, name string) {
	t.Helper()

	db := s.DB(t, name)
	if db == nil {
		return
	}
	if err := TruncateAll(context.Background(), db); err != nil {
		t.Fatalf("dbtest: truncate all tables: %v", err)
	}
}

// Close closes every handle the suite opened.
func (s *Suite) Close() error {
	return s.registry.CloseAll()
}

var (
	defaultSuite     *Suite
	defaultSuiteOnce sync.Once
)

// Default returns the package suite configured from the environment.
func Default() *Suite {
	defaultSuiteOnce.Do(func() {
		defaultSuite = NewSuite()
	})
	return defaultSuite
}

// Open returns a connected handle for the named database from the default
// suite. Handles are shared by every test in the binary.
func Open(t testing.TB, name string) database.DB {
	t.Helper()
	return Default().DB(t, name)
}

// FixtureData parses a fixture without touching any database.
func FixtureData(t testing.TB, l *fixture.Loader, path string) any {
	t.Helper()

	data, err := l.FixtureData(path)
	if err != nil {
		t.Fatalf("dbtest: %v", err)
		return nil
	}
	return data
}
