package analysis

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/scovat/pkg/coverage"
	"github.com/Sumatoshi-tech/scovat/pkg/fold"
	"github.com/Sumatoshi-tech/scovat/pkg/merge"
	"github.com/Sumatoshi-tech/scovat/pkg/observability"
	"github.com/Sumatoshi-tech/scovat/pkg/profile"
)

const tracerName = "scovat/analysis"

// Runner analyzes an anchor profile directory against another one.
type Runner struct {
	// Store reads entries. Nil uses a zero Store.
	Store *profile.Store

	// Workers bounds concurrent entry work. Zero means runtime.NumCPU().
	Workers int

	// Strict fails the run on the first misaligned pair instead of skipping it.
	Strict bool

	// Overwrite allows Analyze to replace an existing folded output.
	Overwrite bool

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.RunMetrics
}

type entryTask struct {
	entry string
	side  Side
}

// Run compares every entry of anchorDir with the entry of the same name in
// otherDir. Entries present on one side only are processed one-sided.
func (r *Runner) Run(ctx context.Context, anchorDir, otherDir string) (*Analysis, error) {
	ctx, span := r.tracer().Start(ctx, "scovat.analysis.run", trace.WithAttributes(
		attribute.String("scovat.anchor", anchorDir),
		attribute.String("scovat.other", otherDir),
		attribute.Bool("scovat.strict", r.Strict),
	))
	defer span.End()

	result, err := r.run(ctx, anchorDir, otherDir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("scovat.files", len(result.Files)),
		attribute.Int("scovat.skipped", len(result.Skipped)),
	)

	return result, nil
}

func (r *Runner) run(ctx context.Context, anchorDir, otherDir string) (*Analysis, error) {
	store := r.store()

	anchorEntries, err := store.List(anchorDir)
	if err != nil {
		return nil, err
	}

	otherEntries, err := store.List(otherDir)
	if err != nil {
		return nil, err
	}

	anchorOnly, otherOnly := lo.Difference(anchorEntries, otherEntries)
	matched := lo.Intersect(anchorEntries, otherEntries)
	slices.Sort(matched)

	tasks := make([]entryTask, 0, len(matched)+len(anchorOnly)+len(otherOnly))
	tasks = append(tasks, lo.Map(matched, func(e string, _ int) entryTask { return entryTask{e, SideBoth} })...)
	tasks = append(tasks, lo.Map(anchorOnly, func(e string, _ int) entryTask { return entryTask{e, SideAnchor} })...)
	tasks = append(tasks, lo.Map(otherOnly, func(e string, _ int) entryTask { return entryTask{e, SideOther} })...)

	r.logger().DebugContext(ctx, "analyzing", "anchor", anchorDir, "other", otherDir,
		"matched", len(matched), "anchor_only", len(anchorOnly), "other_only", len(otherOnly))

	engines := make([]*Engine, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())

	for i, task := range tasks {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			eng := NewEngine()
			engines[i] = eng

			return r.runEntry(gctx, eng, anchorDir, otherDir, task)
		})
	}

	err = g.Wait()
	if err != nil {
		return nil, err
	}

	result := New()

	var compared, oneSided int

	for _, eng := range engines {
		result.Merge(eng.Analysis())
		compared += eng.compared
		oneSided += eng.oneSided
	}

	slices.SortFunc(result.Skipped, func(a, b Diagnostic) int {
		return cmp.Or(cmp.Compare(a.Entry, b.Entry), cmp.Compare(a.Record, b.Record))
	})

	r.Metrics.RecordRecords(ctx, observability.RecordCompared, compared)
	r.Metrics.RecordRecords(ctx, observability.RecordOneSided, oneSided)
	r.Metrics.RecordSkipped(ctx, len(result.Skipped))

	return result, nil
}

func (r *Runner) runEntry(ctx context.Context, eng *Engine, anchorDir, otherDir string, task entryTask) error {
	switch task.side {
	case SideAnchor:
		return r.processEntry(eng, anchorDir, task)
	case SideOther:
		return r.processEntry(eng, otherDir, task)
	case SideBoth:
		return r.compareEntry(ctx, eng, anchorDir, otherDir, task.entry)
	}

	return nil
}

func (r *Runner) processEntry(eng *Engine, dir string, task entryTask) error {
	doc, err := r.store().Load(dir, task.entry)
	if err != nil {
		return err
	}

	for _, rec := range doc.Records() {
		eng.Process(rec, task.side)
	}

	return nil
}

func (r *Runner) compareEntry(ctx context.Context, eng *Engine, anchorDir, otherDir, entry string) error {
	store := r.store()

	anchor, err := store.Load(anchorDir, entry)
	if err != nil {
		return err
	}

	other, err := store.Load(otherDir, entry)
	if err != nil {
		return err
	}

	for _, rec := range anchor.Records() {
		peer, ok := other.Get(rec.Name)
		if !ok {
			eng.Process(rec, SideAnchor)

			continue
		}

		err = r.compare(ctx, eng, entry, rec, peer)
		if err != nil {
			return err
		}
	}

	for _, rec := range other.Records() {
		if !anchor.Has(rec.Name) {
			eng.Process(rec, SideOther)
		}
	}

	return nil
}

func (r *Runner) compare(ctx context.Context, eng *Engine, entry string, anchor, other *coverage.FileRecord) error {
	err := eng.Compare(anchor, other)
	if err == nil {
		return nil
	}

	if r.Strict {
		return fmt.Errorf("%s: %w", entry, err)
	}

	eng.Skip(newDiagnostic(entry, anchor, other, err))
	r.logger().WarnContext(ctx, "skipping misaligned record", "entry", entry, "record", anchor.Name, "error", err)

	return nil
}

// Analyze folds inputs[1:] with union into output and analyzes inputs[0]
// against the folded profile.
func (r *Runner) Analyze(ctx context.Context, output string, inputs []string) (*Analysis, error) {
	if len(inputs) < 2 { //nolint:mnd // anchor plus at least one comparison profile
		return nil, ErrNeedComparison
	}

	folder := &fold.Folder{
		Store:     r.Store,
		Operation: merge.Union,
		Workers:   r.Workers,
		Overwrite: r.Overwrite,
		Logger:    r.Logger,
		Tracer:    r.Tracer,
		Metrics:   r.Metrics,
	}

	_, err := folder.Fold(ctx, output, inputs[1:])
	if err != nil {
		return nil, err
	}

	return r.Run(ctx, inputs[0], output)
}

func (r *Runner) store() *profile.Store {
	if r.Store == nil {
		return &profile.Store{}
	}

	return r.Store
}

func (r *Runner) workers() int {
	if r.Workers <= 0 {
		return runtime.NumCPU()
	}

	return r.Workers
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return observability.Discard()
	}

	return r.Logger
}

func (r *Runner) tracer() trace.Tracer {
	if r.Tracer == nil {
		return otel.Tracer(tracerName)
	}

	return r.Tracer
}
