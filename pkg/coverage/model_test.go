package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchState_Tokens(t *testing.T) {
	t.Parallel()

	for _, state := range []BranchState{NotExecuted, NotTaken, Taken} {
		parsed, ok := ParseBranchState(state.String())
		require.True(t, ok)
		assert.Equal(t, state, parsed)
	}

	_, ok := ParseBranchState("TAKEN")
	assert.False(t, ok)
	assert.Equal(t, "unknown", BranchState(StateCount).String())
}

func TestFileRecord_CloneIsDeep(t *testing.T) {
	t.Parallel()

	original := &FileRecord{
		Name:       "a.c",
		Functions:  []Function{{Line: 1, Count: 1, Name: "f"}},
		Branches:   []Branch{{Line: 1, State: Taken}},
		Statements: []Statement{{Line: 1, Count: 1}},
	}

	clone := original.Clone()
	clone.Functions[0].Count = 9
	clone.Branches[0].State = NotTaken
	clone.Statements[0].Count = 9

	assert.Equal(t, int64(1), original.Functions[0].Count)
	assert.Equal(t, Taken, original.Branches[0].State)
	assert.Equal(t, int64(1), original.Statements[0].Count)
}

func TestDocument_AddPut(t *testing.T) {
	t.Parallel()

	var doc Document

	require.True(t, doc.Add(&FileRecord{Name: "a"}))
	require.True(t, doc.Add(&FileRecord{Name: "b"}))
	assert.False(t, doc.Add(&FileRecord{Name: "a"}))

	replacement := &FileRecord{Name: "a", Statements: []Statement{{Line: 1}}}
	doc.Put(replacement)

	got, ok := doc.Get("a")
	require.True(t, ok)
	assert.Same(t, replacement, got)
	assert.Equal(t, []string{"a", "b"}, doc.Names())
	assert.True(t, doc.Has("b"))
	assert.False(t, doc.Has("c"))
	assert.Equal(t, 2, doc.Len())
}
