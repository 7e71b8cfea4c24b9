// Package fold combines a sequence of profile directories into one output
// profile with a set operation, as a strict left fold.
package fold

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/scovat/pkg/merge"
	"github.com/Sumatoshi-tech/scovat/pkg/observability"
	"github.com/Sumatoshi-tech/scovat/pkg/profile"
)

const tracerName = "scovat/fold"

// ErrNoInputs is returned when Fold is called without input profiles.
var ErrNoInputs = errors.New("at least one input profile is required")

// Folder folds input profiles into an output profile.
type Folder struct {
	// Store reads and writes entries. Nil uses a zero Store.
	Store *profile.Store

	// Operation is the set operation applied at every step.
	Operation merge.Operation

	// Workers bounds concurrent entry work within a step. Zero means runtime.NumCPU().
	Workers int

	// Overwrite allows replacing an existing non-empty output.
	Overwrite bool

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.RunMetrics
}

// StepSummary describes one fold step.
type StepSummary struct {
	Input       string        `json:"input" yaml:"input"`
	Matched     int           `json:"matched" yaml:"matched"`
	LeftOnly    int           `json:"left_only" yaml:"left_only"`
	RightOnly   int           `json:"right_only" yaml:"right_only"`
	Neutralized int           `json:"neutralized" yaml:"neutralized"`
	Duration    time.Duration `json:"duration_ns" yaml:"duration"`
}

// Summary describes a completed fold.
type Summary struct {
	Operation string        `json:"operation" yaml:"operation"`
	Inputs    []string      `json:"inputs" yaml:"inputs"`
	Output    string        `json:"output" yaml:"output"`
	Entries   int           `json:"entries" yaml:"entries"`
	Steps     []StepSummary `json:"steps" yaml:"steps"`
}

// Fold combines inputs left to right into output. The output is built in a
// staging directory and only appears once every step succeeded.
func (f *Folder) Fold(ctx context.Context, output string, inputs []string) (*Summary, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}

	if !f.Operation.Valid() {
		return nil, fmt.Errorf("%w: %s", merge.ErrUnknownOperation, f.Operation)
	}

	ctx, span := f.tracer().Start(ctx, "scovat.fold", trace.WithAttributes(
		attribute.String("scovat.operation", f.Operation.String()),
		attribute.Int("scovat.inputs", len(inputs)),
		attribute.String("scovat.output", output),
	))
	defer span.End()

	summary, err := f.fold(ctx, output, inputs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	return summary, nil
}

func (f *Folder) fold(ctx context.Context, output string, inputs []string) (summary *Summary, err error) {
	lock, err := profile.AcquireLock(output)
	if err != nil {
		return nil, err
	}

	defer func() {
		err = errors.Join(err, lock.Release())
	}()

	stage, err := profile.NewStage(output)
	if err != nil {
		return nil, err
	}

	defer func() {
		discardErr := stage.Discard()
		if discardErr != nil {
			f.logger().WarnContext(ctx, "staging cleanup failed", "dir", stage.Dir, "error", discardErr)
		}
	}()

	acc, err := f.copyFirst(ctx, stage.Dir, inputs[0])
	if err != nil {
		return nil, err
	}

	summary = &Summary{
		Operation: f.Operation.String(),
		Inputs:    slices.Clone(inputs),
		Output:    stage.Output(),
	}

	for _, input := range inputs[1:] {
		step, entries, stepErr := f.step(ctx, stage.Dir, acc, input)
		if stepErr != nil {
			return nil, stepErr
		}

		acc = entries
		summary.Steps = append(summary.Steps, step)
	}

	err = stage.Commit(f.Overwrite)
	if err != nil {
		return nil, err
	}

	summary.Entries = len(acc)

	f.logger().InfoContext(ctx, "fold complete",
		"operation", summary.Operation, "output", summary.Output,
		"inputs", len(inputs), "entries", summary.Entries)

	return summary, nil
}

func (f *Folder) copyFirst(ctx context.Context, dir, input string) ([]string, error) {
	store := f.store()

	entries, err := store.List(input)
	if err != nil {
		return nil, err
	}

	f.logger().DebugContext(ctx, "copying", "input", input, "entries", len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers())

	for _, entry := range entries {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			return store.Copy(input, dir, entry)
		})
	}

	err = g.Wait()
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// step folds one input into the accumulator directory and returns the new
// accumulator entry set.
func (f *Folder) step(ctx context.Context, dir string, acc []string, input string) (StepSummary, []string, error) {
	start := time.Now()
	op := f.Operation
	store := f.store()

	ctx, span := f.tracer().Start(ctx, "scovat.fold.step", trace.WithAttributes(
		attribute.String("scovat.input", input),
	))
	defer span.End()

	entries, err := store.List(input)
	if err != nil {
		return StepSummary{}, nil, err
	}

	leftOnly, rightOnly := lo.Difference(acc, entries)
	matched := lo.Intersect(acc, entries)
	slices.Sort(matched)

	f.logger().DebugContext(ctx, "processing", "input", input,
		"matched", len(matched), "left_only", len(leftOnly), "right_only", len(rightOnly))

	var neutralized atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers())

	for _, entry := range rightOnly {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			copyErr := store.Copy(input, dir, entry)
			if copyErr != nil || !op.NeutralizesRightUnmatched() {
				return copyErr
			}

			neutralized.Add(1)

			return f.neutralize(dir, entry)
		})
	}

	if op.NeutralizesLeftUnmatched() {
		for _, entry := range leftOnly {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}

				neutralized.Add(1)

				return f.neutralize(dir, entry)
			})
		}
	}

	for _, entry := range matched {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			return f.mergeEntry(dir, input, entry)
		})
	}

	err = g.Wait()
	if err != nil {
		span.RecordError(err)

		return StepSummary{}, nil, err
	}

	step := StepSummary{
		Input:       input,
		Matched:     len(matched),
		LeftOnly:    len(leftOnly),
		RightOnly:   len(rightOnly),
		Neutralized: int(neutralized.Load()),
		Duration:    time.Since(start),
	}

	f.recordStep(ctx, step)

	next := append(slices.Clone(acc), rightOnly...)
	slices.Sort(next)

	return step, next, nil
}

func (f *Folder) mergeEntry(dir, input, entry string) error {
	store := f.store()

	left, err := store.Load(dir, entry)
	if err != nil {
		return err
	}

	right, err := store.Load(input, entry)
	if err != nil {
		return err
	}

	err = merge.Documents(f.Operation, left, right)
	if err != nil {
		return fmt.Errorf("%s %s: %w", f.Operation, entry, err)
	}

	return store.Save(dir, entry, left)
}

func (f *Folder) neutralize(dir, entry string) error {
	store := f.store()

	doc, err := store.Load(dir, entry)
	if err != nil {
		return err
	}

	merge.NeutralizeDocument(doc)

	return store.Save(dir, entry, doc)
}

func (f *Folder) recordStep(ctx context.Context, step StepSummary) {
	op := f.Operation.String()

	f.Metrics.RecordEntries(ctx, op, observability.EntryMatched, step.Matched)
	f.Metrics.RecordEntries(ctx, op, observability.EntryLeftOnly, step.LeftOnly)
	f.Metrics.RecordEntries(ctx, op, observability.EntryRightOnly, step.RightOnly)
	f.Metrics.RecordEntries(ctx, op, observability.EntryNeutralized, step.Neutralized)
	f.Metrics.RecordStep(ctx, op, step.Duration)
}

func (f *Folder) store() *profile.Store {
	if f.Store == nil {
		return &profile.Store{}
	}

	return f.Store
}

func (f *Folder) workers() int {
	if f.Workers <= 0 {
		return runtime.NumCPU()
	}

	return f.Workers
}

func (f *Folder) logger() *slog.Logger {
	if f.Logger == nil {
		return observability.Discard()
	}

	return f.Logger
}

func (f *Folder) tracer() trace.Tracer {
	if f.Tracer == nil {
		return otel.Tracer(tracerName)
	}

	return f.Tracer
}
