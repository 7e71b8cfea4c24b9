package coverage_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/scovat/pkg/coverage"
)

const sampleIntermediate = `file:src/main.c
function:3,5,main
function:10,0,helper
branch:4,taken
branch:4,nottaken
branch:12,notexec
lcount:3,5
lcount:4,5
lcount:10,0
file:include/util.h
function:2,7,inline_add
lcount:2,7
`

func TestDecode_Sample(t *testing.T) {
	t.Parallel()

	doc, err := coverage.Decode(strings.NewReader(sampleIntermediate), "main.c.gcov")
	require.NoError(t, err)

	require.Equal(t, []string{"src/main.c", "include/util.h"}, doc.Names())

	main, ok := doc.Get("src/main.c")
	require.True(t, ok)

	assert.Equal(t, []coverage.Function{
		{Line: 3, Count: 5, Name: "main"},
		{Line: 10, Count: 0, Name: "helper"},
	}, main.Functions)
	assert.Equal(t, []coverage.Branch{
		{Line: 4, State: coverage.Taken},
		{Line: 4, State: coverage.NotTaken},
		{Line: 12, State: coverage.NotExecuted},
	}, main.Branches)
	assert.Equal(t, []coverage.Statement{
		{Line: 3, Count: 5},
		{Line: 4, Count: 5},
		{Line: 10, Count: 0},
	}, main.Statements)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	records := []*coverage.FileRecord{
		{
			Name:       "a/b.c",
			Functions:  []coverage.Function{{Line: 1, Count: 9, Name: "operator()(int, int)"}},
			Branches:   []coverage.Branch{{Line: 2, State: coverage.NotTaken}, {Line: 2, State: coverage.Taken}},
			Statements: []coverage.Statement{{Line: 5, Count: 0}, {Line: 1, Count: 9}},
		},
		{Name: `C:\build\x.cpp`},
		{
			Name:       "z.h",
			Statements: []coverage.Statement{{Line: 7, Count: 123456789012}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, coverage.Encode(&buf, coverage.NewDocument(records...)))

	decoded, err := coverage.Decode(&buf, "roundtrip")
	require.NoError(t, err)

	if diff := cmp.Diff(records, decoded.Records()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode_Order(t *testing.T) {
	t.Parallel()

	record := &coverage.FileRecord{
		Name:       "x.c",
		Statements: []coverage.Statement{{Line: 1, Count: 2}},
		Branches:   []coverage.Branch{{Line: 1, State: coverage.Taken}},
		Functions:  []coverage.Function{{Line: 1, Count: 2, Name: "f"}},
	}

	got := string(coverage.EncodeRecord(nil, record))

	assert.Equal(t, "file:x.c\nfunction:1,2,f\nbranch:1,taken\nlcount:1,2\n", got)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"data before file", "lcount:1,2\n", 1},
		{"non-integer line", "file:a\nlcount:x,2\n", 2},
		{"non-integer count", "file:a\nfunction:1,many,f\n", 2},
		{"negative count", "file:a\nlcount:1,-3\n", 2},
		{"unknown branch state", "file:a\nbranch:1,maybe\n", 2},
		{"missing separator", "file:a\nlcount\n", 2},
		{"wrong field count", "file:a\nlcount:1\n", 2},
		{"unknown token", "file:a\nversion:8\n", 2},
		{"duplicate file", "file:a\n\nfile:a\n", 3},
		{"empty file name", "file:\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := coverage.Decode(strings.NewReader(tt.input), "bad.gcov")
			require.Error(t, err)
			require.ErrorIs(t, err, coverage.ErrFormat)

			var formatErr *coverage.FormatError
			require.True(t, errors.As(err, &formatErr))
			assert.Equal(t, "bad.gcov", formatErr.Path)
			assert.Equal(t, tt.line, formatErr.Line)
			assert.Contains(t, err.Error(), "bad.gcov:")
		})
	}
}

func TestDecode_SkipUnknownTokens(t *testing.T) {
	t.Parallel()

	input := "version:8.3.0\nfile:a.c\ncwd:/tmp\r\nlcount:1,1\r\n"

	doc, err := coverage.Decode(strings.NewReader(input), "lenient", coverage.SkipUnknownTokens())
	require.NoError(t, err)

	record, ok := doc.Get("a.c")
	require.True(t, ok)
	assert.Equal(t, []coverage.Statement{{Line: 1, Count: 1}}, record.Statements)
}

func TestDecode_Empty(t *testing.T) {
	t.Parallel()

	doc, err := coverage.Decode(strings.NewReader(""), "empty")
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
}
