package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/scovat/pkg/analysis"
	"github.com/Sumatoshi-tech/scovat/pkg/observability"
	"github.com/Sumatoshi-tech/scovat/pkg/report"
)

// analyzeCommand compares an anchor profile against the union of others.
type analyzeCommand struct {
	root *rootOptions

	output     string
	force      bool
	workers    int
	reportPath string
	format     string
	strict     bool
}

func newAnalyzeCommand(root *rootOptions) *cobra.Command {
	ac := &analyzeCommand{root: root}

	cmd := &cobra.Command{
		Use:   "analyze -o OUT ANCHOR IN [IN...]",
		Short: "Compare an anchor profile against the union of the others",
		Long: `Fold IN... with union into OUT, then compare ANCHOR against OUT.

For every source file the report lists coverage of the anchor, the Hamming
distance and the Jaccard similarity of hits for functions, branches and
statements, followed by an aggregate summary. Record pairs whose line
numbers disagree are skipped with a diagnostic unless --strict is given.`,
		Args: cobra.MinimumNArgs(2), //nolint:mnd // anchor plus at least one comparison profile
		RunE: ac.run,
	}

	addOutputFlags(cmd, &ac.output, &ac.force, &ac.workers)
	cmd.Flags().StringVar(&ac.reportPath, "report", "", "write the report to this file instead of stdout")
	cmd.Flags().StringVar(&ac.format, "format", "", "report format: text, json, yaml, table, plot (default from config)")
	cmd.Flags().BoolVar(&ac.strict, "strict", false, "fail on the first misaligned record pair")

	return cmd
}

func (ac *analyzeCommand) run(cmd *cobra.Command, args []string) error {
	env, err := ac.root.setup(observability.ModeCLI, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.shutdown()

	workers, err := env.workers(cmd, ac.workers)
	if err != nil {
		return err
	}

	formatName := env.cfg.Analysis.Format
	if cmd.Flags().Changed("format") {
		formatName = ac.format
	}

	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	strict := env.cfg.Analysis.Strict
	if cmd.Flags().Changed("strict") {
		strict = ac.strict
	}

	runner := &analysis.Runner{
		Store:     env.store,
		Workers:   workers,
		Strict:    strict,
		Overwrite: env.overwrite(cmd, ac.force),
		Logger:    env.providers.Logger,
		Tracer:    env.providers.Tracer,
		Metrics:   env.metrics,
	}

	result, err := runner.Analyze(cmd.Context(), ac.output, args)
	if err != nil {
		return err
	}

	if ac.reportPath != "" {
		return report.WriteFile(ac.reportPath, result, format)
	}

	return report.Render(cmd.OutOrStdout(), result, format)
}
