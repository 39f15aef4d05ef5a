package tc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/tc4client/internal/protocol/nfs"
	"github.com/marmos91/tc4client/internal/tc4/handle"
)

func TestShareAccessForFlags(t *testing.T) {
	assert.Equal(t, uint32(nfs.OPEN4_SHARE_ACCESS_READ), shareAccessForFlags(ORDONLY))
	assert.Equal(t, uint32(nfs.OPEN4_SHARE_ACCESS_WRITE), shareAccessForFlags(OWRONLY))
	assert.Equal(t, uint32(nfs.OPEN4_SHARE_ACCESS_BOTH), shareAccessForFlags(ORDWR))
	// OCREAT is a modifier bit, not part of the access-mode low bits.
	assert.Equal(t, uint32(nfs.OPEN4_SHARE_ACCESS_WRITE), shareAccessForFlags(OWRONLY|OCREAT))
}

func TestTrackOpenAssignsIncrementingDescriptors(t *testing.T) {
	c := &Client{openFiles: make(map[uint64]*handle.Ref)}

	first := c.trackOpen(handle.NewHandle([]byte{1}), handle.Stateid{})
	second := c.trackOpen(handle.NewHandle([]byte{2}), handle.Stateid{})

	assert.Equal(t, DescriptorRef{id: 1}, first)
	assert.Equal(t, DescriptorRef{id: 2}, second)
	assert.Len(t, c.openFiles, 2)
}

func TestCloseFileRemovesTrackedDescriptor(t *testing.T) {
	c := &Client{openFiles: make(map[uint64]*handle.Ref)}
	ref := c.trackOpen(handle.NewHandle([]byte{1}), handle.Stateid{})

	assert.NoError(t, c.CloseFile(nil, ref))
	assert.Empty(t, c.openFiles)
}

func TestCloseFileRejectsNonDescriptor(t *testing.T) {
	c := &Client{openFiles: make(map[uint64]*handle.Ref)}
	err := c.CloseFile(nil, PathRef{Path: "/x"})
	assert.Error(t, err)
}
