// Package fixture reads test fixture files and hands their parsed content to a
// database. A fixture's format is inferred from its file extension: SQL files
// become ordered statement lists, JSON and YAML files become decoded value
// trees, TXT files are returned verbatim, and code fixtures are produced by
// builder functions registered on the Loader.
package fixture

import (
	"path/filepath"
	"strings"
)

// Format identifies the parsing strategy for a fixture file.
type Format string

const (
	FormatJSON Format = "json"
	FormatSQL  Format = "sql"
	FormatTXT  Format = "txt"
	FormatYAML Format = "yaml"
	FormatCode Format = "code"
)

var extensionFormats = map[string]Format{
	"json": FormatJSON,
	"sql":  FormatSQL,
	"txt":  FormatTXT,
	"yaml": FormatYAML,
	"yml":  FormatYAML,
	"go":   FormatCode,
}

// Formats returns every supported format.
func Formats() []Format {
	return []Format{FormatJSON, FormatSQL, FormatTXT, FormatYAML, FormatCode}
}

// DetectFormat returns the fixture format for path based on its extension.
// It never touches the filesystem.
func DetectFormat(path string) (Format, error) {
	ext := extension(path)
	format, ok := extensionFormats[ext]
	if !ok {
		return "", &UnknownFormatError{Extension: ext}
	}
	return format, nil
}

func extension(path string) string {
	base := filepath.Base(path)
	idx := strings.LastIndexByte(base, '.')
	if idx < 0 {
		return ""
	}
	return base[idx+1:]
}
