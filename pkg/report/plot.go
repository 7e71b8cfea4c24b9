package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/scovat/pkg/analysis"
)

const (
	plotPageTitle  = "scovat analysis"
	plotWidth      = "100%"
	plotHeight     = "500px"
	labelRotate    = 30
	dataZoomEndPct = 100
)

// Criterion colors.
const (
	colorFunctions  = "#5470c6"
	colorBranches   = "#fac858"
	colorStatements = "#91cc75"
)

type barSeries struct {
	name  string
	color string
	data  []float64
}

func renderPlot(w io.Writer, a *analysis.Analysis) error {
	names := a.Names()

	jaccard := []barSeries{
		{name: "Functions", color: colorFunctions},
		{name: "Branches", color: colorBranches},
		{name: "Statements", color: colorStatements},
	}

	stmtCoverage := []barSeries{{name: "Statement coverage %", color: colorStatements}}

	for _, name := range names {
		rec := a.Files[name]

		jaccard[0].data = append(jaccard[0].data, rec.Jaccard.Functions.Coefficient())
		jaccard[1].data = append(jaccard[1].data, rec.Jaccard.Branches.Coefficient())
		jaccard[2].data = append(jaccard[2].data, rec.Jaccard.Statements.Coefficient())
		stmtCoverage[0].data = append(stmtCoverage[0].data, rec.Coverage.Statements.Percent())
	}

	page := components.NewPage()
	page.PageTitle = plotPageTitle

	page.AddCharts(
		buildBar(
			"Jaccard similarity",
			fmt.Sprintf("aggregate statements %.2f", a.Jaccard.Statements.Coefficient()),
			names, jaccard, "Jaccard",
		),
		buildBar(
			"Statement coverage",
			fmt.Sprintf("aggregate %.2f%%", a.Coverage.Statements.Percent()),
			names, stmtCoverage, "%",
		),
	)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render plot report: %w", err)
	}

	return nil
}

func buildBar(title, subtitle string, labels []string, series []barSeries, yAxis string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: plotWidth, Height: plotHeight}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "10%"}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "slider", Start: 0, End: dataZoomEndPct},
			opts.DataZoom{Type: "inside"},
		),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: labelRotate, Interval: "0"}}),
		charts.WithYAxisOpts(opts.YAxis{Name: yAxis}),
	)

	bar.SetXAxis(labels)

	for _, s := range series {
		data := make([]opts.BarData, len(s.data))
		for i, v := range s.data {
			data[i] = opts.BarData{Value: v}
		}

		bar.AddSeries(s.name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: s.color}))
	}

	return bar
}
