package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/scovat/pkg/coverage"
	"github.com/Sumatoshi-tech/scovat/pkg/merge"
)

// Diagnostic describes a record pair that was skipped because it could not
// be compared.
type Diagnostic struct {
	Entry  string
	Record string
	Err    error

	// Detail is a line-number diff of the misaligned sequence, one line per
	// entity prefixed with "-" (anchor only), "+" (other only) or " ".
	Detail string
}

func newDiagnostic(entry string, anchor, other *coverage.FileRecord, err error) Diagnostic {
	diag := Diagnostic{Entry: entry, Record: anchor.Name, Err: err}

	var alignErr *merge.AlignmentError
	if errors.As(err, &alignErr) {
		diag.Detail = lineDiff(lineListing(anchor, alignErr.Kind), lineListing(other, alignErr.Kind))
	}

	return diag
}

// lineListing renders the line numbers of one entity kind, one per line.
func lineListing(r *coverage.FileRecord, kind string) string {
	var sb strings.Builder

	switch kind {
	case merge.KindFunctions:
		for _, f := range r.Functions {
			fmt.Fprintf(&sb, "%s %d\n", coverage.TokenFunction, f.Line)
		}
	case merge.KindBranches:
		for _, b := range r.Branches {
			fmt.Fprintf(&sb, "%s %d\n", coverage.TokenBranch, b.Line)
		}
	case merge.KindStatements:
		for _, s := range r.Statements {
			fmt.Fprintf(&sb, "%s %d\n", coverage.TokenStatement, s.Line)
		}
	}

	return sb.String()
}

func lineDiff(anchor, other string) string {
	if anchor == "" && other == "" {
		return ""
	}

	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(anchor, other)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(src, dst, false), lines)

	var sb strings.Builder

	for _, d := range diffs {
		prefix := " "

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffEqual:
		}

		for line := range strings.Lines(d.Text) {
			sb.WriteString(prefix)
			sb.WriteString(line)
		}
	}

	return sb.String()
}
