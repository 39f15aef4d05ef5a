package planner

import (
	"syscall"
	"testing"

	"github.com/marmos91/tc4client/internal/protocol/nfs"
	"github.com/marmos91/tc4client/internal/tc4/compound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanBuildsOpenReadCloseForReadItems(t *testing.T) {
	items := []BatchItem{
		{Kind: KindRead, Path: "/a.txt", Length: 10},
		{Kind: KindRead, Path: "/b.txt", Length: 20},
	}

	ops, boundaryIndex, err := Plan(items, 42, []byte("owner"))
	require.NoError(t, err)
	require.Len(t, boundaryIndex, 2)

	// Last op is always the trailing CLOSE-no-state.
	_, isClose := ops[len(ops)-1].(*compound.Close)
	assert.True(t, isClose)

	for _, idx := range boundaryIndex {
		_, isRead := ops[idx].(*compound.Read)
		assert.True(t, isRead)
	}
}

func TestPlanInsertsCloseBeforeEachItemAfterTheFirst(t *testing.T) {
	items := []BatchItem{
		{Kind: KindRead, Path: "/a.txt", Length: 10},
		{Kind: KindRead, Path: "/b.txt", Length: 20},
		{Kind: KindRead, Path: "/c.txt", Length: 30},
	}

	ops, boundaryIndex, err := Plan(items, 42, []byte("owner"))
	require.NoError(t, err)

	// do_ktcread: no close before the first item, one close before every
	// subsequent non-reused item's lookup chain, plus one trailing close.
	closeCount := 0
	for _, op := range ops {
		if _, ok := op.(*compound.Close); ok {
			closeCount++
		}
	}
	assert.Equal(t, len(items), closeCount)

	// The op immediately after item 0's boundary (its READ) is the close
	// that brackets item 1's lookup chain, not item 1's own PUTROOTFH.
	_, isClose := ops[boundaryIndex[0]+1].(*compound.Close)
	assert.True(t, isClose)
}

func TestPlanNullPathReusesPreviousFilehandle(t *testing.T) {
	items := []BatchItem{
		{Kind: KindRead, Path: "/a.txt", Length: 10},
		{Kind: KindRead, Path: "", Length: 20}, // reuse /a.txt's open
	}

	ops, boundaryIndex, err := Plan(items, 42, []byte("owner"))
	require.NoError(t, err)
	require.Len(t, boundaryIndex, 2)

	// No CLOSE/PUTROOTFH/OPEN for the reused item: its boundary READ
	// follows item 0's boundary READ immediately.
	assert.Equal(t, boundaryIndex[0]+1, boundaryIndex[1])

	// do_ktcread: a null-path item contributes neither an OPEN nor a
	// CLOSE, so a 2-item batch with 1 reused item has exactly 1 OPEN and
	// 1 CLOSE (the trailing one).
	opens, closes := 0, 0
	for _, op := range ops {
		switch op.(type) {
		case *compound.Open:
			opens++
		case *compound.Close:
			closes++
		}
	}
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, closes)
}

func TestPlanRejectsNullPathOnFirstItem(t *testing.T) {
	items := []BatchItem{
		{Kind: KindRead, Length: 10}, // no Path, no Handle
	}

	_, _, err := Plan(items, 42, []byte("owner"))
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.EINVAL)
}

func TestApplyResultAllSucceed(t *testing.T) {
	items := []BatchItem{
		{Kind: KindRead, Path: "/a.txt", Length: 3},
	}
	ops, boundaryIndex, err := Plan(items, 42, []byte("owner"))
	require.NoError(t, err)

	ops[boundaryIndex[0]].(*compound.Read).Data = []byte("abc")
	ops[boundaryIndex[0]].(*compound.Read).EOF = true

	result := &compound.Result{Status: nfs.NFS4_OK, FailedOp: -1, ExecutedOps: len(ops)}
	ApplyResult(items, ops, boundaryIndex, result)

	assert.True(t, items[0].Completed)
	assert.Equal(t, []byte("abc"), items[0].Data)
	assert.True(t, items[0].EOF)
}

// TestApplyResultAttributesFailureToCorrectItem mirrors handle.c's
// fail_index walk: a compound covering two read items fails on the
// second item's READ op, so item 0 must show as completed and item 1 as
// failed with the mapped errno.
func TestApplyResultAttributesFailureToCorrectItem(t *testing.T) {
	items := []BatchItem{
		{Kind: KindRead, Path: "/a.txt", Length: 3},
		{Kind: KindRead, Path: "/missing.txt", Length: 3},
	}
	ops, boundaryIndex, err := Plan(items, 42, []byte("owner"))
	require.NoError(t, err)

	ops[boundaryIndex[0]].(*compound.Read).Data = []byte("abc")

	result := &compound.Result{
		Status:      nfs.NFS4ERR_NOENT,
		FailedOp:    boundaryIndex[1],
		ExecutedOps: boundaryIndex[1] + 1,
	}
	ApplyResult(items, ops, boundaryIndex, result)

	assert.True(t, items[0].Completed)
	assert.Equal(t, []byte("abc"), items[0].Data)

	assert.False(t, items[1].Completed)
	assert.Equal(t, nfs.MapNFS4ToErrno(nfs.NFS4ERR_NOENT), items[1].Errno)
}

func TestApplyResultSkipsItemsNotReached(t *testing.T) {
	items := []BatchItem{
		{Kind: KindRead, Path: "/missing.txt", Length: 3},
		{Kind: KindRead, Path: "/c.txt", Length: 3},
	}
	ops, boundaryIndex, err := Plan(items, 42, []byte("owner"))
	require.NoError(t, err)

	result := &compound.Result{
		Status:      nfs.NFS4ERR_NOENT,
		FailedOp:    boundaryIndex[0],
		ExecutedOps: boundaryIndex[0] + 1,
	}
	ApplyResult(items, ops, boundaryIndex, result)

	assert.False(t, items[0].Completed)
	assert.False(t, items[1].Completed)
	assert.Equal(t, syscall.Errno(0), items[1].Errno)
}
