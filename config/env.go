package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"testhelper/database"
)

// FixtureDirEnv names the variable holding the fixture root.
const FixtureDirEnv = "TEST_FIXTURE_DIRECTORY"

// LoadEnvFile loads variables from .env style files. Variables already set in
// the process environment are kept.
func LoadEnvFile(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("config: load env file: %w", err)
	}
	return nil
}

// EnvKey returns the variable name for one setting of a database,
// e.g. EnvKey("default", "host") is TEST_DB_DEFAULT_HOST.
func EnvKey(name, setting string) string {
	return "TEST_DB_" + normalizeName(name) + "_" + strings.ToUpper(setting)
}

// HasEnv reports whether the environment configures the named database.
func HasEnv(name string) bool {
	_, ok := os.LookupEnv(EnvKey(name, "driver"))
	return ok
}

// FromEnv builds a database configuration from TEST_DB_<NAME>_DRIVER, _HOST,
// _USERNAME, _PASSWORD, _DATABASE, _PORT, _TIMEZONE, _CONNECT and _DEBUG.
func FromEnv(name string) (database.Config, error) {
	if !HasEnv(name) {
		return database.Config{}, fmt.Errorf("%w: %s is not set", ErrDatabaseNotConfigured, EnvKey(name, "driver"))
	}

	cfg := database.Config{
		Driver:   os.Getenv(EnvKey(name, "driver")),
		Host:     os.Getenv(EnvKey(name, "host")),
		Username: os.Getenv(EnvKey(name, "username")),
		Password: os.Getenv(EnvKey(name, "password")),
		Database: os.Getenv(EnvKey(name, "database")),
		Timezone: os.Getenv(EnvKey(name, "timezone")),
	}

	var err error
	if cfg.Port, err = envInt(EnvKey(name, "port")); err != nil {
		return database.Config{}, err
	}
	if cfg.Connect, err = envBool(EnvKey(name, "connect")); err != nil {
		return database.Config{}, err
	}
	if cfg.Debug, err = envBool(EnvKey(name, "debug")); err != nil {
		return database.Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return database.Config{}, fmt.Errorf("config: %s: %w", normalizeName(name), err)
	}
	return cfg, nil
}

// FixturesDirFromEnv returns TEST_FIXTURE_DIRECTORY.
func FixturesDirFromEnv() string {
	return os.Getenv(FixtureDirEnv)
}

func envInt(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: invalid integer %q", key, v)
	}
	return n, nil
}

func envBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: invalid boolean %q", key, v)
	}
	return b, nil
}
