package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/scovat/pkg/analysis"
	"github.com/Sumatoshi-tech/scovat/pkg/fold"
	"github.com/Sumatoshi-tech/scovat/pkg/merge"
	"github.com/Sumatoshi-tech/scovat/pkg/report"
)

// Tool name constants.
const (
	ToolNameMerge   = "scovat_merge"
	ToolNameAnalyze = "scovat_analyze"
)

// Sentinel errors for tool input validation.
var (
	// ErrEmptyOutput indicates the output parameter is empty.
	ErrEmptyOutput = errors.New("output parameter is required and must not be empty")
	// ErrNoInputs indicates the inputs parameter is empty.
	ErrNoInputs = errors.New("inputs parameter requires at least one directory")
	// ErrPathNotAbsolute indicates a directory parameter is not an absolute path.
	ErrPathNotAbsolute = errors.New("paths must be absolute")
)

// MergeInput is the input schema for the scovat_merge tool.
type MergeInput struct {
	Inputs    []string `json:"inputs"              jsonschema:"absolute paths of profile directories, folded left to right"`
	Operation string   `json:"operation"           jsonschema:"set operation: union, intersection or difference"`
	Output    string   `json:"output"              jsonschema:"absolute path of the output profile directory"`
	Overwrite bool     `json:"overwrite,omitempty" jsonschema:"replace an existing output directory"`
}

// AnalyzeInput is the input schema for the scovat_analyze tool.
type AnalyzeInput struct {
	Format    string   `json:"format,omitempty"    jsonschema:"report format: text, json, yaml, table or plot (default: json)"`
	Inputs    []string `json:"inputs"              jsonschema:"absolute paths; the first is the anchor, the rest are folded with union"`
	Output    string   `json:"output"              jsonschema:"absolute path receiving the folded comparison profile"`
	Overwrite bool     `json:"overwrite,omitempty" jsonschema:"replace an existing output directory"`
	Strict    bool     `json:"strict,omitempty"    jsonschema:"fail on the first misaligned record pair instead of skipping it"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleMerge(ctx context.Context, _ *mcpsdk.CallToolRequest, in MergeInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validatePaths(in.Output, in.Inputs)
	if err != nil {
		return errorResult(err)
	}

	op, err := merge.ParseOperation(in.Operation)
	if err != nil {
		return errorResult(err)
	}

	folder := &fold.Folder{
		Store:     s.deps.Store,
		Operation: op,
		Workers:   s.deps.Workers,
		Overwrite: in.Overwrite,
		Logger:    s.deps.Logger,
		Tracer:    s.deps.Tracer,
		Metrics:   s.deps.RunMetrics,
	}

	summary, err := folder.Fold(ctx, in.Output, in.Inputs)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(summary)
}

func (s *Server) handleAnalyze(ctx context.Context, _ *mcpsdk.CallToolRequest, in AnalyzeInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validatePaths(in.Output, in.Inputs)
	if err != nil {
		return errorResult(err)
	}

	format := report.FormatJSON
	if in.Format != "" {
		format, err = report.ParseFormat(in.Format)
		if err != nil {
			return errorResult(err)
		}
	}

	runner := &analysis.Runner{
		Store:     s.deps.Store,
		Workers:   s.deps.Workers,
		Strict:    in.Strict,
		Overwrite: in.Overwrite,
		Logger:    s.deps.Logger,
		Tracer:    s.deps.Tracer,
		Metrics:   s.deps.RunMetrics,
	}

	result, err := runner.Analyze(ctx, in.Output, in.Inputs)
	if err != nil {
		return errorResult(err)
	}

	var buf bytes.Buffer

	err = report.Render(&buf, result, format)
	if err != nil {
		return errorResult(err)
	}

	return textResult(buf.String())
}

func validatePaths(output string, inputs []string) error {
	if output == "" {
		return ErrEmptyOutput
	}

	if len(inputs) == 0 {
		return ErrNoInputs
	}

	for _, p := range append([]string{output}, inputs...) {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("%w: %q", ErrPathNotAbsolute, p)
		}
	}

	return nil
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func textResult(text string) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: text},
		},
	}, ToolOutput{Data: text}, nil
}
