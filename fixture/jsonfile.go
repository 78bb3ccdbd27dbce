package fixture

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// DefaultMaxDepth is the nesting limit used when DecodeOptions.MaxDepth is zero.
const DefaultMaxDepth = 512

// DecodeOptions controls how JSON and YAML fixtures are decoded.
type DecodeOptions struct {
	Objects  ObjectMode
	MaxDepth int
}

func (o DecodeOptions) withDefaults() DecodeOptions {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}

var (
	errInvalidUTF8   = errors.New("malformed UTF-8 characters")
	errTrailingData  = errors.New("unexpected data after top-level value")
	errUnexpectedEnd = errors.New("unexpected end of JSON input")
)

// ReadJSONFile reads the JSON fixture at path and removes its comment header.
func ReadJSONFile(path string) (string, error) {
	data, err := readFixture(path)
	if err != nil {
		return "", err
	}
	return StripCommentHeader(string(data)), nil
}

// StripCommentHeader removes the leading run of lines starting with "--".
// The first line without the prefix ends the header; later "--" lines are
// part of the document and are kept. Text without a header is returned
// unchanged.
func StripCommentHeader(text string) string {
	for strings.HasPrefix(text, commentPrefix) {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			return ""
		}
		text = text[idx+1:]
	}
	return text
}

// DecodeJSON decodes a JSON document. Numbers are kept as json.Number, arrays
// become []any and objects follow opts.Objects.
func DecodeJSON(text string, opts DecodeOptions) (any, error) {
	opts = opts.withDefaults()
	if !utf8.ValidString(text) {
		return nil, &DecodeError{Kind: KindSyntaxError, Code: CodeUTF8, Err: errInvalidUTF8}
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	d := &jsonDecoder{dec: dec, opts: opts}

	tok, err := dec.Token()
	if err != nil {
		return nil, classifyJSONError(err)
	}
	v, err := d.value(tok, 0)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errTrailingData
		}
		return nil, classifyJSONError(err)
	}
	return v, nil
}

type jsonDecoder struct {
	dec  *json.Decoder
	opts DecodeOptions
}

func (d *jsonDecoder) value(tok json.Token, depth int) (any, error) {
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	depth++
	if depth > d.opts.MaxDepth {
		return nil, &DecodeError{
			Kind: KindMaxDepthExceeded,
			Code: CodeDepth,
			Err:  fmt.Errorf("nesting depth exceeds %d", d.opts.MaxDepth),
		}
	}

	switch delim {
	case '{':
		return d.object(depth)
	case '[':
		return d.array(depth)
	default:
		return nil, &DecodeError{Kind: KindSyntaxError, Code: CodeStateMismatch, Err: fmt.Errorf("unexpected %q", rune(delim))}
	}
}

func (d *jsonDecoder) object(depth int) (any, error) {
	obj := newObject(d.opts.Objects)
	for d.dec.More() {
		keyTok, err := d.dec.Token()
		if err != nil {
			return nil, classifyJSONError(err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, &DecodeError{Kind: KindSyntaxError, Code: CodeSyntax, Err: fmt.Errorf("object key %v is not a string", keyTok)}
		}
		v, err := d.next(depth)
		if err != nil {
			return nil, err
		}
		obj.set(key, v)
	}
	if err := d.closing(); err != nil {
		return nil, err
	}
	return obj.value(), nil
}

func (d *jsonDecoder) array(depth int) (any, error) {
	items := make([]any, 0)
	for d.dec.More() {
		v, err := d.next(depth)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if err := d.closing(); err != nil {
		return nil, err
	}
	return items, nil
}

func (d *jsonDecoder) next(depth int) (any, error) {
	tok, err := d.dec.Token()
	if err != nil {
		return nil, classifyJSONError(err)
	}
	return d.value(tok, depth)
}

func (d *jsonDecoder) closing() error {
	if _, err := d.dec.Token(); err != nil {
		return classifyJSONError(err)
	}
	return nil
}

func classifyJSONError(err error) error {
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return decErr
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &DecodeError{Kind: KindSyntaxError, Code: CodeSyntax, Err: errUnexpectedEnd}
	}
	if errors.Is(err, errTrailingData) {
		return &DecodeError{Kind: KindSyntaxError, Code: CodeSyntax, Err: err}
	}

	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return &DecodeError{Kind: KindUnknown, Code: CodeUnknown, Err: err}
	}

	msg := syntaxErr.Error()
	code := CodeSyntax
	switch {
	case strings.Contains(msg, "in string literal"):
		code = CodeControlChar
	case strings.HasPrefix(msg, "invalid character '}'"), strings.HasPrefix(msg, "invalid character ']'"):
		code = CodeStateMismatch
	}
	return &DecodeError{Kind: KindSyntaxError, Code: code, Err: err}
}
