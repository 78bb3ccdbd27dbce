package fixture

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrUnknownFormat is matched by every UnknownFormatError.
	ErrUnknownFormat = errors.New("unknown fixture format")
	// ErrNoDatabaseBound is returned by database operations on a Loader without a database.
	ErrNoDatabaseBound = errors.New("fixture: no database bound to loader")
	// ErrAlreadyBound is returned when SetDB is called on a Loader that already has a database.
	ErrAlreadyBound = errors.New("fixture: database already bound to loader")
)

// UnknownFormatError reports a fixture extension that maps to no Format.
type UnknownFormatError struct {
	Extension string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown fixture format: %q", e.Extension)
}

func (e *UnknownFormatError) Is(target error) bool {
	return target == ErrUnknownFormat
}

// FixtureNotFoundError reports a fixture file that does not exist.
type FixtureNotFoundError struct {
	Path string
}

func (e *FixtureNotFoundError) Error() string {
	return fmt.Sprintf("fixture %s does not exist", e.Path)
}

func (e *FixtureNotFoundError) Is(target error) bool {
	return target == fs.ErrNotExist
}

// FixtureUnreadableError reports a fixture file that exists but cannot be read.
type FixtureUnreadableError struct {
	Path string
	Err  error
}

func (e *FixtureUnreadableError) Error() string {
	return fmt.Sprintf("error reading fixture %s: %v", e.Path, e.Err)
}

func (e *FixtureUnreadableError) Unwrap() error { return e.Err }

// InvalidPathError reports a fixture path that is absolute or leaves the fixtures root.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid fixture path %q: %s", e.Path, e.Reason)
}

// BuilderNotFoundError reports a code fixture with no registered Builder.
type BuilderNotFoundError struct {
	Path string
}

func (e *BuilderNotFoundError) Error() string {
	return fmt.Sprintf("no builder registered for code fixture %s", e.Path)
}

// DecodeErrorKind classifies a DecodeError.
type DecodeErrorKind string

const (
	KindMaxDepthExceeded DecodeErrorKind = "MaxDepthExceeded"
	KindSyntaxError      DecodeErrorKind = "SyntaxError"
	KindUnknown          DecodeErrorKind = "Unknown"
)

// Decoder status codes carried by DecodeError. Every code except CodeDepth
// and CodeUnknown is reported with KindSyntaxError.
const (
	CodeUnknown       = 0
	CodeDepth         = 1
	CodeStateMismatch = 2
	CodeControlChar   = 3
	CodeSyntax        = 4
	CodeUTF8          = 5
)

// DecodeError reports a fixture document that could not be decoded.
type DecodeError struct {
	Kind DecodeErrorKind
	Code int
	Err  error
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case KindMaxDepthExceeded:
		return fmt.Sprintf("decode error: maximum depth exceeded (code %d)", e.Code)
	case KindSyntaxError:
		return fmt.Sprintf("decode error: syntax error (code %d): %v", e.Code, e.Err)
	default:
		return fmt.Sprintf("decode error: unknown error (code %d): %v", e.Code, e.Err)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }
