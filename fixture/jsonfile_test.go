package fixture

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stripCommentHeaderTests = []struct {
	name  string
	input string
	want  string
}{
	{
		name:  "no header",
		input: "{\"a\": 1}\n",
		want:  "{\"a\": 1}\n",
	},
	{
		name:  "single header line",
		input: "-- users fixture\n{\"a\": 1}\n",
		want:  "{\"a\": 1}\n",
	},
	{
		name:  "multi line header",
		input: "-- one\n-- two\n--\n[1, 2]",
		want:  "[1, 2]",
	},
	{
		name:  "later comment lines are kept",
		input: "-- header\n{\n-- not stripped\n}",
		want:  "{\n-- not stripped\n}",
	},
	{
		name:  "only header",
		input: "-- a\n-- b",
		want:  "",
	},
	{
		name:  "indented dashes are not a header",
		input: " -- x\n{}",
		want:  " -- x\n{}",
	},
}

func TestStripCommentHeader(t *testing.T) {
	for _, tt := range stripCommentHeaderTests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripCommentHeader(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, StripCommentHeader(got), "stripping must be idempotent")
		})
	}
}

func TestReadJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "users.json", "-- generated\n-- do not edit\n{\"name\": \"-- kept\"}\n")

	text, err := ReadJSONFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"name\": \"-- kept\"}\n", text)

	_, err = ReadJSONFile(filepath.Join(dir, "missing.json"))
	var notFound *FixtureNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestDecodeJSONOrdered(t *testing.T) {
	v, err := DecodeJSON(`{"z": 1, "a": {"y": [true, null, "s"], "b": 2.5}, "m": []}`, DecodeOptions{})
	require.NoError(t, err)

	fields, ok := Fields(v)
	require.True(t, ok)
	require.Len(t, fields, 3)
	assert.Equal(t, "z", fields[0].Key)
	assert.Equal(t, json.Number("1"), fields[0].Value)
	assert.Equal(t, "a", fields[1].Key)
	assert.Equal(t, "m", fields[2].Key)
	assert.Equal(t, []any{}, fields[2].Value)

	inner, ok := Fields(fields[1].Value)
	require.True(t, ok)
	require.Len(t, inner, 2)
	assert.Equal(t, "y", inner[0].Key)
	assert.Equal(t, []any{true, nil, "s"}, inner[0].Value)
	assert.Equal(t, json.Number("2.5"), inner[1].Value)
}

func TestDecodeJSONMap(t *testing.T) {
	v, err := DecodeJSON(`{"b": [1, {"c": "d"}], "a": false}`, DecodeOptions{Objects: ObjectMap})
	require.NoError(t, err)

	want := map[string]any{
		"b": []any{json.Number("1"), map[string]any{"c": "d"}},
		"a": false,
	}
	assert.Equal(t, want, v)

	fields, ok := Fields(v)
	require.True(t, ok)
	assert.Equal(t, "a", fields[0].Key)
	assert.Equal(t, "b", fields[1].Key)
}

func TestDecodeJSONScalars(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{input: `"text"`, want: "text"},
		{input: `42`, want: json.Number("42")},
		{input: `null`, want: nil},
		{input: "  true  \n", want: true},
	}
	for _, tt := range tests {
		got, err := DecodeJSON(tt.input, DecodeOptions{})
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

var decodeJSONErrorTests = []struct {
	name     string
	input    string
	maxDepth int
	wantKind DecodeErrorKind
	wantCode int
}{
	{name: "unbalanced braces", input: `{"a": 1`, wantKind: KindSyntaxError, wantCode: CodeSyntax},
	{name: "empty input", input: ``, wantKind: KindSyntaxError, wantCode: CodeSyntax},
	{name: "garbage", input: `{"a": nope}`, wantKind: KindSyntaxError, wantCode: CodeSyntax},
	{name: "trailing data", input: `{"a": 1} {"b": 2}`, wantKind: KindSyntaxError, wantCode: CodeSyntax},
	{name: "mismatched closer", input: `[1, 2}`, wantKind: KindSyntaxError, wantCode: CodeStateMismatch},
	{name: "control character", input: "{\"a\": \"x\ny\"}", wantKind: KindSyntaxError, wantCode: CodeControlChar},
	{name: "invalid utf8", input: "{\"a\": \"\xff\"}", wantKind: KindSyntaxError, wantCode: CodeUTF8},
	{name: "too deep", input: `{"a": {"b": {"c": 1}}}`, maxDepth: 1, wantKind: KindMaxDepthExceeded, wantCode: CodeDepth},
	{name: "arrays count too", input: `[[[]]]`, maxDepth: 2, wantKind: KindMaxDepthExceeded, wantCode: CodeDepth},
}

func TestDecodeJSONErrors(t *testing.T) {
	for _, tt := range decodeJSONErrorTests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON(tt.input, DecodeOptions{MaxDepth: tt.maxDepth})
			var decErr *DecodeError
			require.ErrorAs(t, err, &decErr)
			assert.Equal(t, tt.wantKind, decErr.Kind)
			assert.Equal(t, tt.wantCode, decErr.Code)
			assert.Contains(t, err.Error(), "decode error")
		})
	}
}

func TestDecodeJSONDepthLimit(t *testing.T) {
	doc := `{"a": {"b": {"c": 1}}}`

	_, err := DecodeJSON(doc, DecodeOptions{MaxDepth: 3})
	assert.NoError(t, err, "depth equal to the limit is allowed")

	_, err = DecodeJSON(doc, DecodeOptions{MaxDepth: 2})
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, KindMaxDepthExceeded, decErr.Kind)

	v, err := DecodeJSON(doc, DecodeOptions{MaxDepth: DefaultMaxDepth, Objects: ObjectMap})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": map[string]any{"b": map[string]any{"c": json.Number("1")}}}, v)
}

func TestDecodeJSONDefaultDepth(t *testing.T) {
	within := strings.Repeat("[", DefaultMaxDepth) + strings.Repeat("]", DefaultMaxDepth)
	_, err := DecodeJSON(within, DecodeOptions{})
	require.NoError(t, err)

	beyond := "[" + within + "]"
	_, err = DecodeJSON(beyond, DecodeOptions{})
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, KindMaxDepthExceeded, decErr.Kind)
}
