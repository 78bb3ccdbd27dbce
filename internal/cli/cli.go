// Package cli implements the fixtool command tree. It uses cobra package for
// cli tool implementation.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"testhelper/config"
	"testhelper/database"
	"testhelper/fixture"
	"testhelper/internal/logger"
)

type app struct {
	configPath string
	envFile    string
	dbName     string
	root       string
	logLevel   string
	logFormat  string
	timeout    int

	file     *config.File
	log      zerolog.Logger
	registry *database.Registry
}

// NewRootCmd builds the fixtool command tree. Database handles opened by a
// command stay open until the process exits; use Execute to close them.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{log: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "fixtool",
		Short: "Inspect and load test fixtures",
		Long: `fixtool parses SQL, JSON, YAML and text fixtures the same way test suites do
and loads them into a configured test database.

Databases are configured in a TOML file (--config) or through
TEST_DB_<NAME>_DRIVER, _HOST, _USERNAME, _PASSWORD, _DATABASE, _PORT and
_TIMEZONE environment variables. The fixture root defaults to
TEST_FIXTURE_DIRECTORY.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to a TOML config file")
	flags.StringVar(&a.envFile, "env-file", "", "Load environment variables from a .env file")
	flags.StringVar(&a.dbName, "db", config.DefaultDatabase, "Name of the configured database")
	flags.StringVarP(&a.root, "root", "r", "", "Fixture root directory (default TEST_FIXTURE_DIRECTORY or fixtures_dir)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: trace, debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: console or json")
	flags.IntVar(&a.timeout, "timeout", 300, "Database operation timeout in seconds")

	rootCmd.AddCommand(
		a.showCmd(),
		a.rawCmd(),
		a.checkCmd(),
		a.loadCmd(),
		a.tablesCmd(),
		a.countCmd(),
		a.truncateCmd(),
		a.dropCmd(),
	)
	return rootCmd, a
}

// Execute runs the fixtool command and returns the process exit code.
func Execute() int {
	cmd, a := newRootCmd()
	err := cmd.Execute()
	if closeErr := a.close(); closeErr != nil {
		a.log.Error().Err(closeErr).Msg("failed to close database connections")
	}
	if err != nil {
		return 1
	}
	return 0
}

func (a *app) init(stderr io.Writer) error {
	if a.envFile != "" {
		if err := config.LoadEnvFile(a.envFile); err != nil {
			return err
		}
	}
	if a.configPath != "" {
		f, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.file = f
	}

	var logCfg logger.Config
	if a.file != nil {
		logCfg = a.file.Log
	}
	if a.logLevel != "" {
		logCfg.Level = a.logLevel
	}
	if a.logFormat != "" {
		logCfg.Format = a.logFormat
	}
	if logCfg.Level == "" {
		logCfg.Level = "warn"
	}
	log, err := logger.New(logCfg, stderr)
	if err != nil {
		return err
	}
	a.log = log

	a.registry = database.NewRegistry(database.WithDefaultDrivers(), database.WithRegistryLogger(a.log))
	return nil
}

func (a *app) close() error {
	if a.registry == nil {
		return nil
	}
	return a.registry.CloseAll()
}

func (a *app) fixtureRoot() string {
	if a.root != "" {
		return a.root
	}
	if root := a.file.Fixtures(); root != "" {
		return root
	}
	return "."
}

func (a *app) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(a.timeout)*time.Second)
}

// database returns the connected handle for --db.
func (a *app) database(ctx context.Context) (database.DB, error) {
	cfg, err := a.file.Database(a.dbName)
	if err != nil {
		return nil, err
	}
	db, err := a.registry.Get(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Connect(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

func (a *app) loader(db fixture.DB) *fixture.Loader {
	opts := []fixture.Option{fixture.WithLogger(a.log)}
	if db != nil {
		opts = append(opts, fixture.WithDB(db))
	}
	return fixture.NewLoader(a.fixtureRoot(), opts...)
}
