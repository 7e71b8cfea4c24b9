package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFoldEntriesTotal     = "scovat.fold.entries.total"
	metricFoldStepDuration     = "scovat.fold.step.duration.seconds"
	metricAnalysisRecordsTotal = "scovat.analysis.records.total"
	metricAnalysisSkippedTotal = "scovat.analysis.skipped.total"

	attrOperation = "operation"
	attrKind      = "kind"
)

// Entry kinds recorded by fold steps.
const (
	EntryMatched     = "matched"
	EntryLeftOnly    = "left_only"
	EntryRightOnly   = "right_only"
	EntryNeutralized = "neutralized"
)

// Record modes recorded by analysis runs.
const (
	RecordCompared = "compared"
	RecordOneSided = "one_sided"
)

// RunMetrics holds OTel instruments for fold and analysis runs.
// All methods are safe to call on a nil receiver (no-op).
type RunMetrics struct {
	foldEntries     metric.Int64Counter
	foldStep        metric.Float64Histogram
	analysisRecords metric.Int64Counter
	analysisSkipped metric.Int64Counter
}

// NewRunMetrics creates run metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RunMetrics{
		foldEntries:     b.counter(metricFoldEntriesTotal, "Profile entries processed by fold steps", "{entry}"),
		foldStep:        b.histogram(metricFoldStepDuration, "Per-step fold duration in seconds", "s", durationBucketBoundaries...),
		analysisRecords: b.counter(metricAnalysisRecordsTotal, "Coverage records analyzed", "{record}"),
		analysisSkipped: b.counter(metricAnalysisSkippedTotal, "Misaligned record pairs skipped by analysis", "{record}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// RecordEntries counts n entries of the given kind handled by a fold step.
func (rm *RunMetrics) RecordEntries(ctx context.Context, operation, kind string, n int) {
	if rm == nil || n == 0 {
		return
	}

	rm.foldEntries.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrKind, kind),
	))
}

// RecordStep records the duration of one fold step.
func (rm *RunMetrics) RecordStep(ctx context.Context, operation string, d time.Duration) {
	if rm == nil {
		return
	}

	rm.foldStep.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(attrOperation, operation)))
}

// RecordRecords counts n records analyzed in the given mode.
func (rm *RunMetrics) RecordRecords(ctx context.Context, mode string, n int) {
	if rm == nil || n == 0 {
		return
	}

	rm.analysisRecords.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrMode, mode)))
}

// RecordSkipped counts n misaligned record pairs skipped by analysis.
func (rm *RunMetrics) RecordSkipped(ctx context.Context, n int) {
	if rm == nil || n == 0 {
		return
	}

	rm.analysisSkipped.Add(ctx, int64(n))
}
