package fixture

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
)

const commentPrefix = "--"

// ParseSQLFile reads the SQL fixture at path and returns its statements in
// file order.
func ParseSQLFile(path string) ([]string, error) {
	f, err := openFixture(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	statements, err := ParseSQL(f)
	if err != nil {
		return nil, &FixtureUnreadableError{Path: path, Err: err}
	}
	return statements, nil
}

// ParseSQL splits r into SQL statements.
//
// Lines starting with "--" are skipped wherever they appear. A statement ends
// on a line whose last character before the line terminator is ';'. Statements
// may span lines and keep their inner newlines; each one is trimmed of
// surrounding whitespace. Text left after the last terminated statement is
// returned as a final statement.
func ParseSQL(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)

	var statements []string
	var current strings.Builder
	for {
		line, err := br.ReadString('\n')
		if line != "" && !strings.HasPrefix(line, commentPrefix) {
			current.WriteString(line)
			if endsStatement(line) {
				statements = appendStatement(statements, current.String())
				current.Reset()
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	return appendStatement(statements, current.String()), nil
}

func endsStatement(line string) bool {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return strings.HasSuffix(line, ";")
}

func appendStatement(statements []string, stmt string) []string {
	if stmt = strings.TrimSpace(stmt); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}

func openFixture(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err == nil {
		return f, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &FixtureNotFoundError{Path: path}
	}
	return nil, &FixtureUnreadableError{Path: path, Err: err}
}

func readFixture(path string) ([]byte, error) {
	f, err := openFixture(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &FixtureUnreadableError{Path: path, Err: err}
	}
	return data, nil
}
