// Package report renders analysis results as text, JSON, YAML, a terminal
// table or an HTML chart page.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/Sumatoshi-tech/scovat/pkg/analysis"
)

// Format selects a report renderer.
type Format string

// Supported formats.
const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
	FormatPlot  Format = "plot"
)

// reportPerm is the permission of written report files.
const reportPerm = 0o644

// ErrUnknownFormat is returned for an unsupported report format.
var ErrUnknownFormat = errors.New("unknown report format")

// Formats returns the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML, FormatTable, FormatPlot}
}

// ParseFormat parses a format name. The empty string selects text.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return FormatText, nil
	}

	f := Format(name)
	if !slices.Contains(Formats(), f) {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}

	return f, nil
}

// Render writes a in the given format.
func Render(w io.Writer, a *analysis.Analysis, format Format) error {
	switch format {
	case FormatText, "":
		return renderText(w, a)
	case FormatJSON:
		return renderJSON(w, a)
	case FormatYAML:
		return renderYAML(w, a)
	case FormatTable:
		return renderTable(w, a)
	case FormatPlot:
		return renderPlot(w, a)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteFile renders a into path. The file is replaced atomically, so a
// failed render never leaves a truncated report behind.
func WriteFile(path string, a *analysis.Analysis, format Format) error {
	var buf bytes.Buffer

	err := Render(&buf, a, format)
	if err != nil {
		return err
	}

	err = renameio.WriteFile(path, buf.Bytes(), reportPerm)
	if err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}

	return nil
}
