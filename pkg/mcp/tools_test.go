package mcp

import (
	"context"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePaths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		output  string
		inputs  []string
		wantErr error
	}{
		{"ok", "/tmp/out", []string{"/tmp/a"}, nil},
		{"empty output", "", []string{"/tmp/a"}, ErrEmptyOutput},
		{"no inputs", "/tmp/out", nil, ErrNoInputs},
		{"relative output", "out", []string{"/tmp/a"}, ErrPathNotAbsolute},
		{"relative input", "/tmp/out", []string{"/tmp/a", "b"}, ErrPathNotAbsolute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validatePaths(tt.output, tt.inputs)
			if tt.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHandleAnalyze_UnknownFormat(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	result, _, err := srv.handleAnalyze(context.Background(), &mcpsdk.CallToolRequest{}, AnalyzeInput{
		Format: "xml",
		Output: "/tmp/out",
		Inputs: []string{"/tmp/a", "/tmp/b"},
	})
	require.NoError(t, err)
	require.True(t, result.IsError)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "xml")
}

func TestHandleAnalyze_NeedsComparison(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerDeps{})

	result, _, err := srv.handleAnalyze(context.Background(), &mcpsdk.CallToolRequest{}, AnalyzeInput{
		Output: t.TempDir() + "/out",
		Inputs: []string{t.TempDir()},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
