package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Sumatoshi-tech/scovat/pkg/analysis"
)

const summaryHeader = "summary:"

func renderText(w io.Writer, a *analysis.Analysis) error {
	bw := bufio.NewWriter(w)

	for _, name := range a.Names() {
		rec := a.Files[name]

		fmt.Fprintf(bw, "analysis:%s\n", name)
		writeBlock(bw, rec.Coverage, rec.Jaccard, rec.Hamming)
	}

	fmt.Fprintln(bw, summaryHeader)
	writeBlock(bw, a.Coverage, a.Jaccard, a.Hamming)

	err := bw.Flush()
	if err != nil {
		return fmt.Errorf("write text report: %w", err)
	}

	return nil
}

func writeBlock(
	w io.Writer,
	cov analysis.Criteria[analysis.Ratio],
	jac analysis.Criteria[analysis.Similarity],
	ham analysis.Criteria[int64],
) {
	writeRatio(w, "functions", cov.Functions)
	writeRatio(w, "branches", cov.Branches)
	writeRatio(w, "statements", cov.Statements)

	fmt.Fprintf(w, "jaccard:%.2f,%.2f,%.2f\n",
		jac.Functions.Coefficient(), jac.Branches.Coefficient(), jac.Statements.Coefficient())
	fmt.Fprintf(w, "hamming:%d,%d,%d\n", ham.Functions, ham.Branches, ham.Statements)
}

// writeRatio omits criteria with nothing to measure.
func writeRatio(w io.Writer, label string, r analysis.Ratio) {
	if r.Total == 0 {
		return
	}

	fmt.Fprintf(w, "%s:%d,%d,%.2f%%\n", label, r.Hits, r.Total, r.Percent())
}
