package fold_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/scovat/pkg/coverage"
	"github.com/Sumatoshi-tech/scovat/pkg/fold"
	"github.com/Sumatoshi-tech/scovat/pkg/merge"
	"github.com/Sumatoshi-tech/scovat/pkg/profile"
)

// gcov renders one intermediate record with a function, a branch and one
// lcount line per count.
func gcov(name string, branch string, counts ...int64) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "file:%s\n", name)
	fmt.Fprintf(&sb, "function:1,%d,main\n", counts[0])
	fmt.Fprintf(&sb, "branch:1,%s\n", branch)

	for i, c := range counts {
		fmt.Fprintf(&sb, "lcount:%d,%d\n", i+1, c)
	}

	return sb.String()
}

func writeProfile(t *testing.T, entries map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	for name, content := range entries {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	return dir
}

func statements(t *testing.T, dir, entry, record string) []int64 {
	t.Helper()

	store := &profile.Store{}

	doc, err := store.Load(dir, entry)
	require.NoError(t, err)

	rec, ok := doc.Get(record)
	require.True(t, ok, "record %s missing from %s", record, entry)

	counts := make([]int64, 0, len(rec.Statements))
	for _, s := range rec.Statements {
		counts = append(counts, s.Count)
	}

	return counts
}

func branchState(t *testing.T, dir, entry, record string) coverage.BranchState {
	t.Helper()

	store := &profile.Store{}

	doc, err := store.Load(dir, entry)
	require.NoError(t, err)

	rec, ok := doc.Get(record)
	require.True(t, ok)
	require.Len(t, rec.Branches, 1)

	return rec.Branches[0].State
}

func outputPath(t *testing.T) string {
	t.Helper()

	return filepath.Join(t.TempDir(), "out")
}

func TestFold_NoInputs(t *testing.T) {
	t.Parallel()

	folder := &fold.Folder{Operation: merge.Union}

	_, err := folder.Fold(context.Background(), outputPath(t), nil)
	require.ErrorIs(t, err, fold.ErrNoInputs)
}

func TestFold_UnknownOperation(t *testing.T) {
	t.Parallel()

	p0 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "taken", 1)})
	folder := &fold.Folder{Operation: merge.Operation(42)}

	_, err := folder.Fold(context.Background(), outputPath(t), []string{p0})
	require.ErrorIs(t, err, merge.ErrUnknownOperation)
}

func TestFold_SingleInputCopies(t *testing.T) {
	t.Parallel()

	content := gcov("a.c", "taken", 3, 0)
	p0 := writeProfile(t, map[string]string{"a.gcov": content})
	out := outputPath(t)

	summary, err := (&fold.Folder{Operation: merge.Intersection}).Fold(context.Background(), out, []string{p0})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Entries)
	assert.Empty(t, summary.Steps)

	data, err := os.ReadFile(filepath.Join(out, "a.gcov"))
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestFold_UnionMatched(t *testing.T) {
	t.Parallel()

	p0 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "nottaken", 3, 0)})
	p1 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "taken", 2, 0)})
	out := outputPath(t)

	summary, err := (&fold.Folder{Operation: merge.Union, Workers: 2}).Fold(context.Background(), out, []string{p0, p1})
	require.NoError(t, err)

	assert.Equal(t, []int64{5, 0}, statements(t, out, "a.gcov", "a.c"))
	assert.Equal(t, coverage.Taken, branchState(t, out, "a.gcov", "a.c"))

	require.Len(t, summary.Steps, 1)
	assert.Equal(t, 1, summary.Steps[0].Matched)
	assert.Equal(t, "union", summary.Operation)
}

func TestFold_UnionIsOrderIndependent(t *testing.T) {
	t.Parallel()

	p0 := writeProfile(t, map[string]string{
		"a.gcov": gcov("a.c", "taken", 1, 0, 4),
		"b.gcov": gcov("b.c", "notexec", 0),
	})
	p1 := writeProfile(t, map[string]string{
		"a.gcov": gcov("a.c", "nottaken", 0, 2, 1),
		"c.gcov": gcov("c.c", "taken", 9),
	})
	p2 := writeProfile(t, map[string]string{
		"b.gcov": gcov("b.c", "taken", 6),
		"c.gcov": gcov("c.c", "nottaken", 1),
	})

	outA := outputPath(t)
	outB := outputPath(t)
	folder := &fold.Folder{Operation: merge.Union}

	_, err := folder.Fold(context.Background(), outA, []string{p0, p1, p2})
	require.NoError(t, err)

	_, err = folder.Fold(context.Background(), outB, []string{p1, p0, p2})
	require.NoError(t, err)

	store := &profile.Store{}

	docsA, err := store.LoadAll(outA)
	require.NoError(t, err)

	docsB, err := store.LoadAll(outB)
	require.NoError(t, err)

	assert.Equal(t, docsA, docsB)
	assert.Equal(t, []int64{1, 2, 5}, statements(t, outA, "a.gcov", "a.c"))
	assert.Equal(t, []int64{10}, statements(t, outA, "c.gcov", "c.c"))
}

func TestFold_DifferenceDependsOnOrder(t *testing.T) {
	t.Parallel()

	p0 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "taken", 5, 0)})
	p1 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "taken", 0, 4)})
	folder := &fold.Folder{Operation: merge.Difference}

	outA := outputPath(t)
	_, err := folder.Fold(context.Background(), outA, []string{p0, p1})
	require.NoError(t, err)

	outB := outputPath(t)
	_, err = folder.Fold(context.Background(), outB, []string{p1, p0})
	require.NoError(t, err)

	assert.Equal(t, []int64{5, 0}, statements(t, outA, "a.gcov", "a.c"))
	assert.Equal(t, []int64{0, 4}, statements(t, outB, "a.gcov", "a.c"))
}

func TestFold_RightUnmatched(t *testing.T) {
	t.Parallel()

	tests := []struct {
		op     merge.Operation
		want   []int64
		branch coverage.BranchState
	}{
		{merge.Union, []int64{7}, coverage.Taken},
		{merge.Intersection, []int64{0}, coverage.NotExecuted},
		{merge.Difference, []int64{0}, coverage.NotExecuted},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			t.Parallel()

			p0 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "taken", 1)})
			p1 := writeProfile(t, map[string]string{
				"a.gcov": gcov("a.c", "taken", 1),
				"b.gcov": gcov("b.c", "taken", 7),
			})
			out := outputPath(t)

			summary, err := (&fold.Folder{Operation: tt.op}).Fold(context.Background(), out, []string{p0, p1})
			require.NoError(t, err)

			assert.Equal(t, tt.want, statements(t, out, "b.gcov", "b.c"))
			assert.Equal(t, tt.branch, branchState(t, out, "b.gcov", "b.c"))
			assert.Equal(t, 2, summary.Entries)
			assert.Equal(t, 1, summary.Steps[0].RightOnly)
		})
	}
}

func TestFold_LeftUnmatched(t *testing.T) {
	t.Parallel()

	tests := []struct {
		op          merge.Operation
		want        []int64
		neutralized int
	}{
		{merge.Union, []int64{3}, 0},
		{merge.Intersection, []int64{0}, 1},
		{merge.Difference, []int64{3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			t.Parallel()

			p0 := writeProfile(t, map[string]string{
				"a.gcov": gcov("a.c", "taken", 1),
				"c.gcov": gcov("c.c", "taken", 3),
			})
			p1 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "taken", 1)})
			out := outputPath(t)

			summary, err := (&fold.Folder{Operation: tt.op}).Fold(context.Background(), out, []string{p0, p1})
			require.NoError(t, err)

			assert.Equal(t, tt.want, statements(t, out, "c.gcov", "c.c"))
			assert.Equal(t, tt.neutralized, summary.Steps[0].Neutralized)
			assert.Equal(t, 1, summary.Steps[0].LeftOnly)
		})
	}
}

func TestFold_CompressedEntries(t *testing.T) {
	t.Parallel()

	store := &profile.Store{}
	p0 := t.TempDir()
	p1 := t.TempDir()

	docA := coverage.NewDocument(&coverage.FileRecord{
		Name:       "a.c",
		Statements: []coverage.Statement{{Line: 1, Count: 2}},
	})
	docB := coverage.NewDocument(&coverage.FileRecord{
		Name:       "a.c",
		Statements: []coverage.Statement{{Line: 1, Count: 3}},
	})

	require.NoError(t, store.Save(p0, "a.gcov.lz4", docA))
	require.NoError(t, store.Save(p1, "a.gcov.lz4", docB))

	out := outputPath(t)

	_, err := (&fold.Folder{Store: store, Operation: merge.Union}).Fold(context.Background(), out, []string{p0, p1})
	require.NoError(t, err)

	assert.Equal(t, []int64{5}, statements(t, out, "a.gcov.lz4", "a.c"))
}

func TestFold_MisalignedLeavesNoOutput(t *testing.T) {
	t.Parallel()

	p0 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "taken", 1, 2)})
	p1 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "taken", 1)})
	out := outputPath(t)

	_, err := (&fold.Folder{Operation: merge.Union}).Fold(context.Background(), out, []string{p0, p1})
	require.ErrorIs(t, err, merge.ErrMisaligned)

	_, statErr := os.Stat(out)
	require.ErrorIs(t, statErr, os.ErrNotExist)

	assertNoStaging(t, filepath.Dir(out))
}

func TestFold_MalformedInput(t *testing.T) {
	t.Parallel()

	p0 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "taken", 1)})
	p1 := writeProfile(t, map[string]string{"a.gcov": "file:a.c\nlcount:one,1\n"})

	_, err := (&fold.Folder{Operation: merge.Union}).Fold(context.Background(), outputPath(t), []string{p0, p1})
	require.ErrorIs(t, err, coverage.ErrFormat)
	assert.Contains(t, err.Error(), "a.gcov")
}

func TestFold_MissingInput(t *testing.T) {
	t.Parallel()

	p0 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "taken", 1)})
	missing := filepath.Join(t.TempDir(), "missing")

	_, err := (&fold.Folder{Operation: merge.Union}).Fold(context.Background(), outputPath(t), []string{p0, missing})
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), missing)
}

func TestFold_ExistingOutput(t *testing.T) {
	t.Parallel()

	p0 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "taken", 1)})
	out := writeProfile(t, map[string]string{"old.gcov": gcov("old.c", "taken", 1)})

	_, err := (&fold.Folder{Operation: merge.Union}).Fold(context.Background(), out, []string{p0})
	require.ErrorIs(t, err, profile.ErrOutputExists)

	_, err = os.Stat(filepath.Join(out, "old.gcov"))
	require.NoError(t, err, "previous output must be untouched")

	_, err = (&fold.Folder{Operation: merge.Union, Overwrite: true}).Fold(context.Background(), out, []string{p0})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(out, "old.gcov"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Stat(filepath.Join(out, "a.gcov"))
	require.NoError(t, err)
}

func TestFold_LockedOutput(t *testing.T) {
	t.Parallel()

	p0 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "taken", 1)})
	out := outputPath(t)

	lock, err := profile.AcquireLock(out)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, lock.Release()) })

	_, err = (&fold.Folder{Operation: merge.Union}).Fold(context.Background(), out, []string{p0})
	require.ErrorIs(t, err, profile.ErrOutputLocked)
}

func TestFold_Cancelled(t *testing.T) {
	t.Parallel()

	p0 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "taken", 1)})
	out := outputPath(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&fold.Folder{Operation: merge.Union}).Fold(ctx, out, []string{p0})
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(out)
	require.ErrorIs(t, statErr, os.ErrNotExist)

	assertNoStaging(t, filepath.Dir(out))
}

func TestFold_LogsSteps(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p0 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "taken", 1)})
	p1 := writeProfile(t, map[string]string{"a.gcov": gcov("a.c", "taken", 1)})

	_, err := (&fold.Folder{Operation: merge.Union, Logger: logger}).Fold(context.Background(), outputPath(t), []string{p0, p1})
	require.NoError(t, err)

	logs := buf.String()
	assert.Contains(t, logs, "msg=copying")
	assert.Contains(t, logs, "msg=processing")
	assert.Contains(t, logs, "matched=1")
	assert.Contains(t, logs, `msg="fold complete"`)
}

func assertNoStaging(t *testing.T, parent string) {
	t.Helper()

	entries, err := os.ReadDir(parent)
	require.NoError(t, err)

	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".staging-", "staging directory left behind")
	}
}
