package tc

import (
	"context"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marmos91/tc4client/internal/tc4/planner"
	"github.com/marmos91/tc4client/pkg/config"
)

func newTestClient(maxCompoundOps int) *Client {
	return &Client{
		cfg: &config.Config{
			Planner: config.PlannerConfig{MaxCompoundOps: maxCompoundOps},
		},
	}
}

func TestCheckBatchSizeNonTransactional(t *testing.T) {
	c := newTestClient(4)
	err := c.checkBatchSize(false, 1000)
	assert.NoError(t, err, "non-transactional batches are never size-checked")
}

func TestCheckBatchSizeWithinBudget(t *testing.T) {
	c := newTestClient(1000)
	err := c.checkBatchSize(true, 1)
	assert.NoError(t, err)
}

func TestCheckBatchSizeTooLarge(t *testing.T) {
	c := newTestClient(10)
	err := c.checkBatchSize(true, 5)
	if assert.Error(t, err) {
		var tooLarge *ErrBatchTooLarge
		assert.ErrorAs(t, err, &tooLarge)
		assert.Equal(t, 10, tooLarge.Max)
	}
}

func TestResultFromItemsAllOkay(t *testing.T) {
	items := []planner.BatchItem{
		{Completed: true},
		{Completed: true},
	}
	result := resultFromItems(items)
	assert.True(t, result.Okay)
	assert.Equal(t, -1, result.Index)
}

func TestResultFromItemsFirstFailure(t *testing.T) {
	items := []planner.BatchItem{
		{Completed: true},
		{Completed: false, Errno: syscall.ENOENT},
		{Completed: false, Errno: syscall.EACCES},
	}
	result := resultFromItems(items)
	assert.False(t, result.Okay)
	assert.Equal(t, 1, result.Index)
	assert.Equal(t, syscall.ENOENT, result.Errno)
}

func TestReadAllZeroLengthReturnsImmediatelyWithNoRPC(t *testing.T) {
	c := newTestClient(1000)
	iov := []IOVec{
		{File: PathRef{Path: "/a"}, Length: 0},
		{File: PathRef{Path: "/b"}, Length: 0},
	}

	// c.transport is nil: Read must not reach execute()/the transport for
	// an all-zero-length batch, or this would panic on a nil dereference.
	result, err := c.Read(context.Background(), iov, false)
	assert.NoError(t, err)
	assert.True(t, result.Okay)
	assert.Equal(t, -1, result.Index)

	for _, v := range iov {
		assert.True(t, v.OK)
		assert.False(t, v.IsEOF)
		assert.Nil(t, v.Data)
	}
}

func TestVerifierFromProcessIsDeterministicPerStamp(t *testing.T) {
	v1 := verifierFromProcess(42)
	v2 := verifierFromProcess(42)
	// The low 4 bytes are derived from stamp only, so they always match.
	assert.Equal(t, v1[:4], v2[:4])
}
