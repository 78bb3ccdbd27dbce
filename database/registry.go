package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Factory creates an unconfigured driver.
type Factory func(opts ...Option) DB

// Registry creates database handles by driver name and caches them by
// configuration, so equal configurations share one handle. It is an explicit
// value; tests that need isolation create their own.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]DB
	log       zerolog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDriver registers factory under name.
func WithDriver(name string, factory Factory) RegistryOption {
	return func(r *Registry) {
		r.factories[NormalizeDriverName(name)] = factory
	}
}

// WithDefaultDrivers registers the MySQL, PostgreSQL and SQLite drivers.
func WithDefaultDrivers() RegistryOption {
	return func(r *Registry) {
		r.factories[DriverMySQL] = func(opts ...Option) DB { return NewMySQL(opts...) }
		r.factories[DriverPostgres] = func(opts ...Option) DB { return NewPostgres(opts...) }
		r.factories[DriverSQLite] = func(opts ...Option) DB { return NewSQLite(opts...) }
	}
}

// WithRegistryLogger sets the logger handed to every driver the registry creates.
func WithRegistryLogger(log zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.log = log
	}
}

// NewRegistry returns an empty registry configured by opts.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]DB),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces the factory for a driver name. Names are matched
// case-insensitively.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[NormalizeDriverName(name)] = factory
}

// Drivers returns the registered driver names in sorted order.
func (r *Registry) Drivers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the handle for cfg, creating and configuring it on first use.
// When cfg.Connect is set a new handle is connected before it is cached.
func (r *Registry) Get(ctx context.Context, cfg Config) (DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := cfg.Fingerprint()
	if db, ok := r.instances[key]; ok {
		return db, nil
	}

	factory, ok := r.factories[cfg.DriverName()]
	if !ok {
		return nil, &UnknownDriverError{Name: cfg.Driver}
	}

	db := factory(WithLogger(r.log))
	if err := db.Setup(cfg); err != nil {
		return nil, err
	}
	if cfg.Connect {
		if err := db.Connect(ctx); err != nil {
			return nil, err
		}
	}

	r.instances[key] = db
	r.log.Debug().Str("driver", cfg.DriverName()).Str("database", cfg.Database).Msg("database handle created")
	return db, nil
}

// Len returns the number of cached handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// CloseAll closes and forgets every cached handle.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, db := range r.instances {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s database %q: %w", db.Config().DriverName(), db.Config().Database, err))
		}
		delete(r.instances, key)
	}
	return errors.Join(errs...)
}
