package database

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Supported driver names.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config describes how to reach a test database.
type Config struct {
	Driver   string `toml:"driver" json:"driver" yaml:"driver" validate:"required"`
	Host     string `toml:"host" json:"host" yaml:"host"`
	Username string `toml:"username" json:"username" yaml:"username"`
	Password string `toml:"password" json:"password" yaml:"password"`
	Database string `toml:"database" json:"database" yaml:"database" validate:"required"`
	Port     int    `toml:"port" json:"port" yaml:"port" validate:"gte=0,lte=65535"`
	// Connect makes Registry.Get connect right after Setup.
	Connect bool `toml:"connect" json:"connect" yaml:"connect"`
	// Timezone is applied to the session on connect. Empty keeps the server default.
	Timezone string `toml:"timezone" json:"timezone" yaml:"timezone"`
	// Debug logs every executed statement.
	Debug bool `toml:"debug" json:"debug" yaml:"debug"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks that the required fields are present and in range.
func (c Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid database config: %w", err)
	}
	return nil
}

// DriverName returns the normalized driver name.
func (c Config) DriverName() string {
	return NormalizeDriverName(c.Driver)
}

// NormalizeDriverName lowercases and trims a driver name. Registries and
// configurations compare driver names in this form.
func NormalizeDriverName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Fingerprint identifies the configuration by value. Equal configurations
// have equal fingerprints; driver names that normalize alike count as equal.
func (c Config) Fingerprint() string {
	c.Driver = c.DriverName()
	data, _ := json.Marshal(c)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (c Config) portOr(def int) int {
	if c.Port == 0 {
		return def
	}
	return c.Port
}

func (c Config) hostOr(def string) string {
	if c.Host == "" {
		return def
	}
	return c.Host
}
