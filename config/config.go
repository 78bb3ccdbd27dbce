// Package config loads fixtool and test-suite settings from a TOML file, a
// .env file and TEST_DB_<NAME>_* environment variables.
//
// A config file looks like:
//
//	fixtures_dir = "testdata/fixtures"
//
//	[log]
//	level = "info"
//	format = "console"
//
//	[databases.DEFAULT]
//	driver = "mysql"
//	host = "127.0.0.1"
//	username = "root"
//	database = "app_test"
//
// Environment variables take precedence over the file for the database they
// name.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"testhelper/database"
	"testhelper/internal/logger"
)

// DefaultDatabase is the database name used when none is given.
const DefaultDatabase = "DEFAULT"

// ErrDatabaseNotConfigured is returned when neither the file nor the
// environment configure the requested database.
var ErrDatabaseNotConfigured = errors.New("database is not configured")

// File is the top-level TOML document.
type File struct {
	FixturesDir string                     `toml:"fixtures_dir"`
	Log         logger.Config              `toml:"log"`
	Databases   map[string]database.Config `toml:"databases"`
}

// Load reads and validates the config file at path. A relative fixtures_dir is
// resolved against the directory holding the file.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open file %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if cfg.FixturesDir != "" && !filepath.IsAbs(cfg.FixturesDir) {
		cfg.FixturesDir = filepath.Join(filepath.Dir(path), cfg.FixturesDir)
	}
	return cfg, nil
}

// Parse decodes and validates a TOML config document.
func Parse(r io.Reader) (*File, error) {
	var cfg File
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("decode error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	databases := make(map[string]database.Config, len(cfg.Databases))
	for name, db := range cfg.Databases {
		key := normalizeName(name)
		if _, dup := databases[key]; dup {
			return nil, fmt.Errorf("duplicate database %q after normalizing names", key)
		}
		databases[key] = db
	}
	cfg.Databases = databases

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the log settings and every database entry.
func (f *File) Validate() error {
	if f.Log.Level != "" || f.Log.Format != "" {
		l := f.Log
		l.ApplyDefaults()
		if err := l.Validate(); err != nil {
			return err
		}
	}

	var errs []error
	for _, name := range f.DatabaseNames() {
		if err := f.Databases[name].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("databases.%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// DatabaseNames returns the configured database names in sorted order.
func (f *File) DatabaseNames() []string {
	names := make([]string, 0, len(f.Databases))
	for name := range f.Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Database resolves the named database. Environment variables win over the
// file; a nil File consults the environment only.
func (f *File) Database(name string) (database.Config, error) {
	name = normalizeName(name)

	if HasEnv(name) {
		return FromEnv(name)
	}
	if f != nil {
		if db, ok := f.Databases[name]; ok {
			return db, nil
		}
	}
	return database.Config{}, fmt.Errorf("%w: %s", ErrDatabaseNotConfigured, name)
}

// Fixtures returns the fixture root: TEST_FIXTURE_DIRECTORY when set,
// otherwise fixtures_dir from the file.
func (f *File) Fixtures() string {
	if dir := FixturesDirFromEnv(); dir != "" {
		return dir
	}
	if f == nil {
		return ""
	}
	return f.FixturesDir
}

func normalizeName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return DefaultDatabase
	}
	return name
}
