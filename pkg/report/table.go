package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/scovat/pkg/analysis"
)

const (
	percentGood = 80
	percentFair = 60
)

var (
	colorGood = color.New(color.FgGreen)
	colorFair = color.New(color.FgYellow)
	colorPoor = color.New(color.FgRed)
)

func renderTable(w io.Writer, a *analysis.Analysis) error {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Format.Footer = text.FormatDefault

	tbl.AppendHeader(table.Row{
		"File", "Side", "Functions", "Branches", "Statements",
		"Jaccard fn", "Jaccard br", "Jaccard st", "Hamming",
	})

	for _, name := range a.Names() {
		rec := a.Files[name]
		tbl.AppendRow(tableRow(name, rec.Side.String(), rec.Coverage, rec.Jaccard, rec.Hamming))
	}

	tbl.AppendFooter(tableRow(
		fmt.Sprintf("Total: %s files", humanize.Comma(int64(len(a.Files)))), "",
		a.Coverage, a.Jaccard, a.Hamming,
	))

	tbl.Render()

	if len(a.Skipped) > 0 {
		_, err := fmt.Fprintf(w, "\n%s misaligned record pairs skipped\n", humanize.Comma(int64(len(a.Skipped))))
		if err != nil {
			return fmt.Errorf("write table report: %w", err)
		}
	}

	return nil
}

func tableRow(
	label, side string,
	cov analysis.Criteria[analysis.Ratio],
	jac analysis.Criteria[analysis.Similarity],
	ham analysis.Criteria[int64],
) table.Row {
	return table.Row{
		label, side,
		ratioCell(cov.Functions), ratioCell(cov.Branches), ratioCell(cov.Statements),
		fmt.Sprintf("%.2f", jac.Functions.Coefficient()),
		fmt.Sprintf("%.2f", jac.Branches.Coefficient()),
		fmt.Sprintf("%.2f", jac.Statements.Coefficient()),
		humanize.Comma(ham.Functions + ham.Branches + ham.Statements),
	}
}

func ratioCell(r analysis.Ratio) string {
	if r.Total == 0 {
		return "-"
	}

	pct := r.Percent()

	c := colorPoor

	switch {
	case pct >= percentGood:
		c = colorGood
	case pct >= percentFair:
		c = colorFair
	}

	return fmt.Sprintf("%s/%s %s", humanize.Comma(r.Hits), humanize.Comma(r.Total), c.Sprintf("%.2f%%", pct))
}
