package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/scovat/pkg/fold"
	"github.com/Sumatoshi-tech/scovat/pkg/merge"
	"github.com/Sumatoshi-tech/scovat/pkg/observability"
)

var operationShort = map[merge.Operation]string{
	merge.Union:        "Fold profiles keeping entities hit in any of them",
	merge.Intersection: "Fold profiles keeping entities hit in all of them",
	merge.Difference:   "Fold profiles keeping entities hit in the first but not the rest",
}

// mergeCommand folds profile directories with one set operation.
type mergeCommand struct {
	root *rootOptions
	op   merge.Operation

	output  string
	force   bool
	workers int
}

func newMergeCommand(root *rootOptions, op merge.Operation) *cobra.Command {
	mc := &mergeCommand{root: root, op: op}

	cmd := &cobra.Command{
		Use:   op.String() + " -o OUT IN [IN...]",
		Short: operationShort[op],
		Long: fmt.Sprintf(`Fold the profile directories IN... left to right with %s and write
the result to OUT. OUT must not exist unless --force is given.`, op),
		Args: cobra.MinimumNArgs(1),
		RunE: mc.run,
	}

	addOutputFlags(cmd, &mc.output, &mc.force, &mc.workers)

	return cmd
}

func (mc *mergeCommand) run(cmd *cobra.Command, args []string) error {
	env, err := mc.root.setup(observability.ModeCLI, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.shutdown()

	workers, err := env.workers(cmd, mc.workers)
	if err != nil {
		return err
	}

	folder := &fold.Folder{
		Store:     env.store,
		Operation: mc.op,
		Workers:   workers,
		Overwrite: env.overwrite(cmd, mc.force),
		Logger:    env.providers.Logger,
		Tracer:    env.providers.Tracer,
		Metrics:   env.metrics,
	}

	_, err = folder.Fold(cmd.Context(), mc.output, args)

	return err
}
