package pathresolve

import (
	"syscall"
	"testing"

	"github.com/marmos91/tc4client/internal/tc4/compound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMultiComponentPath(t *testing.T) {
	resolved, err := Build("/a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "c.txt", resolved.FinalName)
	require.Len(t, resolved.Ops, 3) // PUTROOTFH, LOOKUP a, LOOKUP b
	assert.Equal(t, compound.PutRootFH{}, resolved.Ops[0])
	assert.Equal(t, "a", resolved.Ops[1].(*compound.Lookup).Name)
	assert.Equal(t, "b", resolved.Ops[2].(*compound.Lookup).Name)
}

func TestBuildBareFilename(t *testing.T) {
	resolved, err := Build("file.txt")
	require.NoError(t, err)
	assert.Equal(t, "file.txt", resolved.FinalName)
	require.Len(t, resolved.Ops, 1)
}

func TestBuildRejectsDotDot(t *testing.T) {
	_, err := Build("/a/../b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "..")
	assert.ErrorIs(t, err, syscall.EACCES)
}

func TestBuildRejectsEmptyPath(t *testing.T) {
	_, err := Build("")
	require.Error(t, err)
}

func TestBuildToLeafIncludesFinalLookup(t *testing.T) {
	ops, err := BuildToLeaf("/a/b")
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, "b", ops[2].(*compound.Lookup).Name)
}
