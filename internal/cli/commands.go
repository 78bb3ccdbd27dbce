package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"testhelper/database"
	"testhelper/dbtest"
	"testhelper/fixture"
	"testhelper/preflight"
)

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <fixture>",
		Short: "Print the parsed contents of a fixture as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, payload, err := a.loader(nil).LoadFixtureData(args[0])
			if err != nil {
				return err
			}
			a.log.Debug().Str("fixture", args[0]).Str("format", string(format)).Msg("showing fixture")

			data, err := json.MarshalIndent(payload, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format %s fixture: %w", format, err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}

func (a *app) rawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "raw <fixture>",
		Short: "Print a fixture file as is",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.loader(nil).FixtureRawData(args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), data)
			return err
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	var unsafe bool
	var lenient bool

	cmd := &cobra.Command{
		Use:   "check <fixture.sql>...",
		Short: "Run preflight checks on SQL fixtures",
		Long: `Check parses SQL fixtures and reports:
- statements the MySQL parser cannot read
- destructive statements (DELETE, TRUNCATE, DROP TABLE, etc.)

It fails when a statement cannot be parsed, or when a destructive statement
is found and --unsafe is not set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := a.loader(nil)
			analyzer := newAnalyzer(lenient)

			var blocked []string
			for _, path := range args {
				report, err := analyzeFixture(l, analyzer, path)
				if err != nil {
					return err
				}
				printReport(cmd.OutOrStdout(), path, report)
				if report.Blocked(unsafe) {
					blocked = append(blocked, path)
				}
			}
			if len(blocked) > 0 {
				return fmt.Errorf("preflight failed for %s; use --unsafe to allow destructive statements", strings.Join(blocked, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&unsafe, "unsafe", "u", false, "Allow destructive statements (DELETE, TRUNCATE, DROP, etc.)")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "Report unparseable statements as warnings")
	return cmd
}

func (a *app) loadCmd() *cobra.Command {
	var unsafe bool
	var skipCheck bool

	cmd := &cobra.Command{
		Use:   "load <fixture>...",
		Short: "Load fixtures into the configured database",
		Long: `Load parses each fixture and loads it into the database selected by --db,
stopping at the first failure. SQL fixtures are checked before loading;
destructive statements require --unsafe.

Examples:
  fixtool load schema.sql users.json
  fixtool --db reports --root testdata/fixtures load cleanup.sql --unsafe`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			db, err := a.database(ctx)
			if err != nil {
				return err
			}
			l := a.loader(db)
			// The MySQL parser only understands MySQL syntax.
			analyzer := newAnalyzer(db.Config().DriverName() != database.DriverMySQL)

			for _, path := range args {
				if !skipCheck {
					if err := checkBeforeLoad(cmd.OutOrStdout(), l, analyzer, path, unsafe); err != nil {
						return err
					}
				}
				if err := l.LoadDBFixture(ctx, path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&unsafe, "unsafe", "u", false, "Allow destructive statements in SQL fixtures")
	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "Skip preflight checks of SQL fixtures")
	return cmd
}

func (a *app) tablesCmd() *cobra.Command {
	var views bool

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			db, err := a.database(ctx)
			if err != nil {
				return err
			}
			names, err := db.TableNames(ctx)
			if views && err == nil {
				var viewNames []string
				viewNames, err = db.ViewNames(ctx)
				names = append(names, viewNames...)
			}
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&views, "views", false, "Include views")
	return cmd
}

func (a *app) countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count <table>",
		Short: "Print the number of rows in a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			db, err := a.database(ctx)
			if err != nil {
				return err
			}
			n, err := db.CountRows(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	}
}

func (a *app) truncateCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "truncate [table]...",
		Short: "Remove all rows from tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireTargets(args, all); err != nil {
				return err
			}
			ctx, cancel := a.context()
			defer cancel()

			db, err := a.database(ctx)
			if err != nil {
				return err
			}
			if all {
				return dbtest.TruncateAll(ctx, db)
			}
			return db.TruncateTables(ctx, args...)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Truncate every table")
	return cmd
}

func (a *app) dropCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "drop [table]...",
		Short: "Drop tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireTargets(args, all); err != nil {
				return err
			}
			ctx, cancel := a.context()
			defer cancel()

			db, err := a.database(ctx)
			if err != nil {
				return err
			}
			if all {
				return dbtest.DropAll(ctx, db)
			}
			return db.DropTables(ctx, args...)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Drop every view and table")
	return cmd
}

func requireTargets(args []string, all bool) error {
	switch {
	case all && len(args) > 0:
		return errors.New("table names cannot be combined with --all")
	case !all && len(args) == 0:
		return errors.New("no tables given; pass table names or --all")
	}
	return nil
}

func newAnalyzer(lenient bool) *preflight.Analyzer {
	if lenient {
		return preflight.NewAnalyzer(preflight.WithLenientParsing())
	}
	return preflight.NewAnalyzer()
}

// analyzeFixture runs preflight checks on a SQL fixture.
func analyzeFixture(l *fixture.Loader, analyzer *preflight.Analyzer, path string) (*preflight.Report, error) {
	format, payload, err := l.LoadFixtureData(path)
	if err != nil {
		return nil, err
	}
	statements, ok := payload.([]string)
	if format != fixture.FormatSQL || !ok {
		return nil, fmt.Errorf("%s is a %s fixture; only sql fixtures can be checked", path, format)
	}
	return analyzer.Analyze(statements), nil
}

func checkBeforeLoad(w io.Writer, l *fixture.Loader, analyzer *preflight.Analyzer, path string, unsafe bool) error {
	format, err := l.DetectFormat(path)
	if err != nil || format != fixture.FormatSQL {
		return nil
	}
	report, err := analyzeFixture(l, analyzer, path)
	if err != nil {
		return err
	}
	if report.Blocked(unsafe) {
		printReport(w, path, report)
		return fmt.Errorf("preflight failed for %s; use --unsafe to allow destructive statements", path)
	}
	return nil
}

func printReport(w io.Writer, path string, report *preflight.Report) {
	fmt.Fprintf(w, "%s: %s\n", path, report.Summary())
	for _, f := range report.Findings {
		marker := "!"
		if f.Level >= preflight.LevelDanger {
			marker = "✗"
		}
		fmt.Fprintf(w, "  %s %s\n", marker, f)
		fmt.Fprintf(w, "      SQL: %s\n", f.Statement)
	}
	if tables := report.Tables(); len(tables) > 0 {
		fmt.Fprintf(w, "  tables: %s\n", strings.Join(tables, ", "))
	}
}
