package tc

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/tc4client/internal/tc4/handle"
	"github.com/marmos91/tc4client/internal/tc4/planner"
)

func TestBuildItemsAppliesFillAndResolvesPath(t *testing.T) {
	c := &Client{openFiles: map[uint64]*handle.Ref{}}
	iov := []IOVec{
		{File: PathRef{Path: "/a"}, Offset: 4, Length: 16},
		{File: PathRef{Path: "/b"}, Offset: 0, Length: 8},
	}

	items, err := c.buildItems(iov, planner.KindRead, func(item *planner.BatchItem, v *IOVec) {
		item.Offset = v.Offset
		item.Length = v.Length
	})

	assert.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "/a", items[0].Path)
	assert.Equal(t, uint64(4), items[0].Offset)
	assert.Equal(t, uint32(16), items[0].Length)
	assert.Equal(t, "/b", items[1].Path)
}

func TestBuildItemsRejectsNilFileRefOnFirstItem(t *testing.T) {
	c := &Client{openFiles: map[uint64]*handle.Ref{}}
	iov := []IOVec{{File: nil, Length: 16}}

	_, err := c.buildItems(iov, planner.KindRead, func(*planner.BatchItem, *IOVec) {})
	if assert.Error(t, err) {
		assert.ErrorIs(t, err, syscall.EINVAL)
	}
}

func TestBuildItemsTreatsNilFileRefAfterFirstAsReuse(t *testing.T) {
	c := &Client{openFiles: map[uint64]*handle.Ref{}}
	iov := []IOVec{
		{File: PathRef{Path: "/a"}, Length: 16},
		{File: nil, Length: 8},
	}

	items, err := c.buildItems(iov, planner.KindRead, func(*planner.BatchItem, *IOVec) {})
	assert.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "/a", items[0].Path)
	assert.Equal(t, "", items[1].Path)
	assert.True(t, items[1].Handle.IsZero())
}

func TestClampAndFilterReadsSettlesZeroLengthInPlace(t *testing.T) {
	iov := []IOVec{
		{File: PathRef{Path: "/a"}, Length: 0},
		{File: PathRef{Path: "/b"}, Length: 16},
	}

	active := clampAndFilterReads(iov, 0)
	assert.Equal(t, []int{1}, active)
	assert.True(t, iov[0].OK)
	assert.False(t, iov[0].IsEOF)
	assert.Nil(t, iov[0].Data)
}

func TestClampAndFilterReadsClampsOversizedLength(t *testing.T) {
	iov := []IOVec{{File: PathRef{Path: "/a"}, Length: 1 << 20}}

	active := clampAndFilterReads(iov, 4096)
	assert.Equal(t, []int{0}, active)
	assert.Equal(t, uint32(4096), iov[0].Length)
}

func TestClampAndFilterReadsUnboundedWhenMaxIsZero(t *testing.T) {
	iov := []IOVec{{File: PathRef{Path: "/a"}, Length: 1 << 20}}

	clampAndFilterReads(iov, 0)
	assert.Equal(t, uint32(1<<20), iov[0].Length)
}

func TestBuildItemsWrapsResolveErrorWithIndex(t *testing.T) {
	c := &Client{openFiles: map[uint64]*handle.Ref{}}
	iov := []IOVec{
		{File: PathRef{Path: "/ok"}},
		{File: DescriptorRef{id: 404}},
	}

	_, err := c.buildItems(iov, planner.KindRead, func(*planner.BatchItem, *IOVec) {})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "item 1")
	}
}
