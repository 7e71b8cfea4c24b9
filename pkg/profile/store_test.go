package profile_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/scovat/pkg/coverage"
	"github.com/Sumatoshi-tech/scovat/pkg/profile"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func sampleDoc() *coverage.Document {
	return coverage.NewDocument(&coverage.FileRecord{
		Name:       "src/a.c",
		Functions:  []coverage.Function{{Line: 1, Count: 2, Name: "main"}},
		Branches:   []coverage.Branch{{Line: 2, State: coverage.Taken}},
		Statements: []coverage.Statement{{Line: 1, Count: 2}, {Line: 2, Count: 0}},
	})
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "b.c.gcov", "")
	writeFile(t, dir, "a.c.gcov", "")
	writeFile(t, dir, ".hidden", "")
	writeFile(t, dir, "x.lock", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	var store profile.Store

	names, err := store.List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.c.gcov", "b.c.gcov"}, names)
}

func TestStore_ListErrors(t *testing.T) {
	t.Parallel()

	var store profile.Store

	_, err := store.List(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)

	dir := t.TempDir()
	writeFile(t, dir, "file", "")

	_, err = store.List(filepath.Join(dir, "file"))
	require.ErrorIs(t, err, profile.ErrNotProfile)
}

func TestStore_SaveLoad(t *testing.T) {
	t.Parallel()

	for _, entry := range []string{"a.c.gcov", "a.c.gcov.lz4"} {
		t.Run(entry, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()

			var store profile.Store

			require.NoError(t, store.Save(dir, entry, sampleDoc()))

			loaded, err := store.Load(dir, entry)
			require.NoError(t, err)
			assert.Equal(t, sampleDoc().Records(), loaded.Records())

			raw, err := os.ReadFile(filepath.Join(dir, entry))
			require.NoError(t, err)
			assert.Equal(t, !profile.IsCompressed(entry), strings.HasPrefix(string(raw), "file:src/a.c"))
		})
	}
}

func TestStore_LoadAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "one", "file:one.c\nlcount:1,1\n")
	writeFile(t, dir, "two", "file:two.c\nlcount:1,0\n")

	var store profile.Store

	docs, err := store.LoadAll(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.True(t, docs["one"].Has("one.c"))
	assert.True(t, docs["two"].Has("two.c"))
}

func TestStore_LoadFormatError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "bad", "lcount:1,1\n")

	var store profile.Store

	_, err := store.Load(dir, "bad")
	require.ErrorIs(t, err, coverage.ErrFormat)
	assert.Contains(t, err.Error(), filepath.Join(dir, "bad"))
}

func TestStore_SkipUnknownTokens(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "v", "version:7\nfile:a.c\nlcount:1,1\n")

	strict := profile.Store{}
	_, err := strict.Load(dir, "v")
	require.ErrorIs(t, err, coverage.ErrFormat)

	lenient := profile.Store{SkipUnknownTokens: true}
	doc, err := lenient.Load(dir, "v")
	require.NoError(t, err)
	assert.True(t, doc.Has("a.c"))
}

func TestStore_MaxEntrySize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "big", "file:a.c\n"+strings.Repeat("lcount:1,1\n", 100))

	store := profile.Store{MaxEntrySize: 64}

	_, err := store.Load(dir, "big")
	require.ErrorIs(t, err, profile.ErrTooLarge)
	assert.Contains(t, err.Error(), "64 B")
}

func TestStore_Copy(t *testing.T) {
	t.Parallel()

	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, src, "e", "file:e.c\n")

	var store profile.Store

	require.NoError(t, store.Copy(src, dst, "e"))

	data, err := os.ReadFile(filepath.Join(dst, "e"))
	require.NoError(t, err)
	assert.Equal(t, "file:e.c\n", string(data))

	require.Error(t, store.Copy(src, dst, "missing"))
}
