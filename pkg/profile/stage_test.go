package profile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/scovat/pkg/profile"
)

func TestStage_CommitNewOutput(t *testing.T) {
	t.Parallel()

	output := filepath.Join(t.TempDir(), "nested", "out")

	stage, err := profile.NewStage(output)
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(output), filepath.Dir(stage.Dir))

	writeFile(t, stage.Dir, "entry", "file:a.c\n")
	require.NoError(t, stage.Commit(false))

	data, err := os.ReadFile(filepath.Join(output, "entry"))
	require.NoError(t, err)
	assert.Equal(t, "file:a.c\n", string(data))

	_, err = os.Stat(stage.Dir)
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, stage.Discard(), "discard after commit is a no-op")
	assert.DirExists(t, output)
}

func TestStage_ExistingOutput(t *testing.T) {
	t.Parallel()

	output := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.Mkdir(output, 0o755))
	writeFile(t, output, "old", "file:old.c\n")

	stage, err := profile.NewStage(output)
	require.NoError(t, err)
	writeFile(t, stage.Dir, "new", "file:new.c\n")

	require.ErrorIs(t, stage.Commit(false), profile.ErrOutputExists)
	assert.FileExists(t, filepath.Join(output, "old"), "refused commit must keep the previous output")

	require.NoError(t, stage.Commit(true))
	assert.FileExists(t, filepath.Join(output, "new"))
	assert.NoFileExists(t, filepath.Join(output, "old"))
}

func TestStage_EmptyOutputIsReplaced(t *testing.T) {
	t.Parallel()

	output := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.Mkdir(output, 0o755))

	stage, err := profile.NewStage(output)
	require.NoError(t, err)

	require.NoError(t, stage.Commit(false))
	assert.DirExists(t, output)
}

func TestStage_Discard(t *testing.T) {
	t.Parallel()

	output := filepath.Join(t.TempDir(), "out")

	stage, err := profile.NewStage(output)
	require.NoError(t, err)

	require.NoError(t, stage.Discard())
	assert.NoDirExists(t, stage.Dir)
	assert.NoDirExists(t, output)
}

func TestLock(t *testing.T) {
	t.Parallel()

	output := filepath.Join(t.TempDir(), "out")

	lock, err := profile.AcquireLock(output)
	require.NoError(t, err)

	_, err = profile.AcquireLock(output)
	require.ErrorIs(t, err, profile.ErrOutputLocked)

	require.NoError(t, lock.Release())

	again, err := profile.AcquireLock(output)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}
