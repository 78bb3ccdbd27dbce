// Package preflight inspects SQL fixtures before they are loaded. Each
// statement is parsed with the TiDB MySQL parser and classified; statements
// that destroy data or do not parse are reported as findings.
package preflight

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver" // required to register TiDB parser driver implementations
)

// Level is the severity of a finding.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelDanger
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelDanger:
		return "DANGER"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// TypeUnparseable is the statement type of SQL the parser rejected.
const TypeUnparseable = "UNPARSEABLE"

// Statement is the classification of one SQL statement.
type Statement struct {
	Index       int
	SQL         string
	Type        string
	Tables      []string
	Destructive bool
	// ImplicitCommit is set for DDL that MySQL commits on its own.
	ImplicitCommit bool
}

// Finding is a problem attached to one statement.
type Finding struct {
	Level     Level
	Index     int
	Message   string
	Statement string
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] statement %d: %s", f.Level, f.Index+1, f.Message)
}

// Report is the result of analyzing a fixture.
type Report struct {
	Statements []Statement
	Findings   []Finding
}

// HasErrors reports whether any statement failed to parse in strict mode.
func (r *Report) HasErrors() bool { return r.maxLevel() >= LevelError }

// HasDanger reports whether any statement destroys data.
func (r *Report) HasDanger() bool { return r.maxLevel() >= LevelDanger }

// Blocked reports whether loading should be refused. Destructive statements
// block unless unsafe is set; errors always block.
func (r *Report) Blocked(unsafe bool) bool {
	if r.HasErrors() {
		return true
	}
	return r.HasDanger() && !unsafe
}

// Tables returns every table referenced by the fixture, sorted and without
// duplicates.
func (r *Report) Tables() []string {
	seen := make(map[string]bool)
	var tables []string
	for _, s := range r.Statements {
		for _, t := range s.Tables {
			if !seen[t] {
				seen[t] = true
				tables = append(tables, t)
			}
		}
	}
	sort.Strings(tables)
	return tables
}

func (r *Report) maxLevel() Level {
	highest := LevelInfo
	for _, f := range r.Findings {
		if f.Level > highest {
			highest = f.Level
		}
	}
	return highest
}

// Analyzer classifies SQL statements. It is not safe for concurrent use.
type Analyzer struct {
	parser  *parser.Parser
	lenient bool
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLenientParsing reports unparseable statements as warnings instead of
// errors. Fixtures written for PostgreSQL or SQLite often use syntax the MySQL
// parser rejects.
func WithLenientParsing() Option {
	return func(a *Analyzer) {
		a.lenient = true
	}
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{parser: parser.New()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze classifies statements in order.
func (a *Analyzer) Analyze(statements []string) *Report {
	report := &Report{}
	for i, sql := range statements {
		stmt, findings := a.analyzeStatement(i, sql)
		report.Statements = append(report.Statements, stmt)
		report.Findings = append(report.Findings, findings...)
	}
	return report
}

func (a *Analyzer) analyzeStatement(index int, sql string) (Statement, []Finding) {
	stmt := Statement{Index: index, SQL: sql}

	nodes, _, err := a.parser.Parse(sql, "", "")
	if err != nil || len(nodes) == 0 {
		stmt.Type = TypeUnparseable
		level := LevelError
		if a.lenient {
			level = LevelWarning
		}
		msg := "statement could not be parsed"
		if err != nil {
			msg = fmt.Sprintf("statement could not be parsed: %v", err)
		}
		return stmt, []Finding{{Level: level, Index: index, Message: msg, Statement: sql}}
	}

	var findings []Finding
	if len(nodes) > 1 {
		findings = append(findings, Finding{
			Level:     LevelWarning,
			Index:     index,
			Message:   fmt.Sprintf("%d statements on one line", len(nodes)),
			Statement: sql,
		})
	}

	// The entry takes the type of its most severe statement.
	tables := &tableCollector{seen: make(map[string]bool)}
	typeLevel := Level(-1)
	for _, node := range nodes {
		node.Accept(tables)

		c := classify(node)
		if c.level > typeLevel {
			stmt.Type = c.typ
			typeLevel = c.level
		}
		stmt.Destructive = stmt.Destructive || c.level == LevelDanger
		stmt.ImplicitCommit = stmt.ImplicitCommit || c.implicitCommit
		if c.message != "" {
			findings = append(findings, Finding{Level: c.level, Index: index, Message: c.message, Statement: sql})
		}
	}
	stmt.Tables = tables.tables
	return stmt, findings
}

type classification struct {
	typ            string
	level          Level
	message        string
	implicitCommit bool
}

func classify(node ast.StmtNode) classification {
	switch n := node.(type) {
	case *ast.InsertStmt:
		if n.IsReplace {
			return classification{typ: "REPLACE"}
		}
		return classification{typ: "INSERT"}
	case *ast.SelectStmt:
		return classification{typ: "SELECT"}
	case *ast.UpdateStmt:
		if n.Where == nil {
			return classification{typ: "UPDATE", level: LevelWarning, message: "UPDATE without WHERE changes every row"}
		}
		return classification{typ: "UPDATE"}
	case *ast.DeleteStmt:
		if n.Where == nil {
			return classification{typ: "DELETE", level: LevelDanger, message: "DELETE without WHERE removes every row from the table"}
		}
		return classification{typ: "DELETE", level: LevelDanger, message: "DELETE will remove rows from the table"}
	case *ast.TruncateTableStmt:
		return classification{typ: "TRUNCATE TABLE", level: LevelDanger, message: "TRUNCATE TABLE will delete all rows from the table", implicitCommit: true}
	case *ast.DropTableStmt:
		if n.IsView {
			return classification{typ: "DROP VIEW", implicitCommit: true}
		}
		return classification{typ: "DROP TABLE", level: LevelDanger, message: "DROP TABLE will permanently delete the table and all its data", implicitCommit: true}
	case *ast.DropDatabaseStmt:
		return classification{typ: "DROP DATABASE", level: LevelDanger, message: "DROP DATABASE will permanently delete the entire database", implicitCommit: true}
	case *ast.CreateTableStmt:
		return classification{typ: "CREATE TABLE", implicitCommit: true}
	case *ast.CreateViewStmt:
		return classification{typ: "CREATE VIEW", implicitCommit: true}
	case *ast.CreateIndexStmt:
		return classification{typ: "CREATE INDEX", implicitCommit: true}
	case *ast.CreateDatabaseStmt:
		return classification{typ: "CREATE DATABASE", level: LevelWarning, message: "fixture creates a database", implicitCommit: true}
	case *ast.AlterTableStmt:
		return classifyAlterTable(n)
	case *ast.RenameTableStmt:
		return classification{typ: "RENAME TABLE", implicitCommit: true}
	case *ast.SetStmt:
		return classification{typ: "SET"}
	default:
		return classification{typ: "OTHER"}
	}
}

func classifyAlterTable(n *ast.AlterTableStmt) classification {
	c := classification{typ: "ALTER TABLE", implicitCommit: true}
	for _, spec := range n.Specs {
		switch spec.Tp {
		case ast.AlterTableDropColumn:
			c.level = LevelDanger
			c.message = "DROP COLUMN will permanently delete the column and its data"
			return c
		case ast.AlterTableDropPrimaryKey, ast.AlterTableDropIndex, ast.AlterTableDropForeignKey:
			c.level = LevelWarning
			c.message = "ALTER TABLE drops a key or constraint"
		}
	}
	return c
}

type tableCollector struct {
	tables []string
	seen   map[string]bool
}

func (c *tableCollector) Enter(n ast.Node) (ast.Node, bool) {
	if t, ok := n.(*ast.TableName); ok {
		name := t.Name.O
		if t.Schema.O != "" {
			name = t.Schema.O + "." + name
		}
		if !c.seen[name] {
			c.seen[name] = true
			c.tables = append(c.tables, name)
		}
	}
	return n, false
}

func (c *tableCollector) Leave(n ast.Node) (ast.Node, bool) {
	return n, true
}

// Summary renders a one-line description of the report.
func (r *Report) Summary() string {
	counts := make(map[Level]int)
	for _, f := range r.Findings {
		counts[f.Level]++
	}
	var parts []string
	for _, l := range []Level{LevelError, LevelDanger, LevelWarning} {
		if counts[l] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[l], strings.ToLower(l.String())))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d statements, no findings", len(r.Statements))
	}
	return fmt.Sprintf("%d statements, %s", len(r.Statements), strings.Join(parts, ", "))
}
