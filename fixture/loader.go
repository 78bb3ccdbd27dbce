package fixture

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// DB is the database a Loader forwards parsed fixtures to.
type DB interface {
	Connect(ctx context.Context) error
	LoadFixture(ctx context.Context, format Format, payload any) error
}

// Builder produces the payload of a code fixture.
type Builder func() (any, error)

// Loader resolves fixture paths under a root directory, parses them, and
// optionally loads them into a database. A Loader is bound to at most one
// database for its whole lifetime.
type Loader struct {
	root     string
	db       DB
	builders map[string]Builder
	decode   DecodeOptions
	log      zerolog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithDB binds db to the loader.
func WithDB(db DB) Option {
	return func(l *Loader) {
		l.db = db
	}
}

// WithLogger sets the logger used for fixture load events.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

// WithDecodeOptions sets how JSON and YAML fixtures are decoded.
func WithDecodeOptions(opts DecodeOptions) Option {
	return func(l *Loader) {
		l.decode = opts
	}
}

// WithBuilder registers a code fixture builder for path.
func WithBuilder(path string, b Builder) Option {
	return func(l *Loader) {
		l.RegisterBuilder(path, b)
	}
}

// NewLoader returns a Loader for fixtures under root.
func NewLoader(root string, opts ...Option) *Loader {
	l := &Loader{
		root:     root,
		builders: make(map[string]Builder),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Root returns the fixtures root directory.
func (l *Loader) Root() string {
	return l.root
}

// IsDBSet reports whether a database is bound to the loader.
func (l *Loader) IsDBSet() bool {
	return l.db != nil
}

// SetDB binds db to a loader that has no database yet.
func (l *Loader) SetDB(db DB) error {
	if db == nil {
		return errors.New("fixture: cannot bind nil database")
	}
	if l.db != nil {
		return ErrAlreadyBound
	}
	l.db = db
	return nil
}

// RegisterBuilder registers the builder that produces the code fixture at path.
// A later registration for the same path replaces the earlier one.
func (l *Loader) RegisterBuilder(path string, b Builder) {
	l.builders[builderKey(path)] = b
}

// DetectFormat returns the format of the fixture at path.
func (l *Loader) DetectFormat(path string) (Format, error) {
	return DetectFormat(path)
}

// LoadFixtureData parses the fixture at path and returns its format and payload.
// It never touches the database.
func (l *Loader) LoadFixtureData(path string) (Format, any, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return "", nil, err
	}

	if format == FormatCode {
		payload, err := l.build(path)
		if err != nil {
			return "", nil, err
		}
		return format, payload, nil
	}

	fullPath, err := l.resolve(path)
	if err != nil {
		return "", nil, err
	}

	var payload any
	switch format {
	case FormatSQL:
		payload, err = ParseSQLFile(fullPath)
	case FormatJSON:
		var text string
		if text, err = ReadJSONFile(fullPath); err == nil {
			payload, err = DecodeJSON(text, l.decode)
		}
	case FormatYAML:
		var data []byte
		if data, err = readFixture(fullPath); err == nil {
			payload, err = DecodeYAML(data, l.decode)
		}
	case FormatTXT:
		var data []byte
		if data, err = readFixture(fullPath); err == nil {
			payload = string(data)
		}
	}
	if err != nil {
		return "", nil, fmt.Errorf("load fixture %s: %w", path, err)
	}

	l.log.Debug().Str("fixture", path).Str("format", string(format)).Msg("fixture parsed")
	return format, payload, nil
}

// FixtureData returns the parsed payload of the fixture at path.
func (l *Loader) FixtureData(path string) (any, error) {
	_, payload, err := l.LoadFixtureData(path)
	return payload, err
}

// FixtureRawData returns the unprocessed contents of the fixture at path.
func (l *Loader) FixtureRawData(path string) (string, error) {
	fullPath, err := l.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := readFixture(fullPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// LoadDBFixture parses the fixture at path and loads it into the bound
// database, connecting first if needed. Database errors are returned unchanged.
func (l *Loader) LoadDBFixture(ctx context.Context, path string) error {
	format, payload, err := l.LoadFixtureData(path)
	if err != nil {
		return err
	}
	if l.db == nil {
		return ErrNoDatabaseBound
	}

	// Connect is deferred until a fixture actually needs the database.
	if err := l.db.Connect(ctx); err != nil {
		return err
	}
	if err := l.db.LoadFixture(ctx, format, payload); err != nil {
		return err
	}

	l.log.Info().Str("fixture", path).Str("format", string(format)).Msg("fixture loaded")
	return nil
}

// LoadDBFixtures loads each fixture in order and stops at the first failure.
// Fixtures loaded before the failure stay loaded.
func (l *Loader) LoadDBFixtures(ctx context.Context, paths ...string) error {
	for _, path := range paths {
		if err := l.LoadDBFixture(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", &InvalidPathError{Path: path, Reason: "absolute paths are not allowed"}
	}
	clean := filepath.Clean(path)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", &InvalidPathError{Path: path, Reason: "path leaves the fixtures root"}
	}
	return filepath.Join(l.root, clean), nil
}

func (l *Loader) build(path string) (any, error) {
	b, ok := l.builders[builderKey(path)]
	if !ok {
		return nil, &BuilderNotFoundError{Path: path}
	}
	payload, err := b()
	if err != nil {
		return nil, fmt.Errorf("build code fixture %s: %w", path, err)
	}
	return payload, nil
}

func builderKey(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}
