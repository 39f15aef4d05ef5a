package compound

import (
	"bytes"
	"testing"

	"github.com/marmos91/tc4client/internal/protocol/nfs"
	"github.com/marmos91/tc4client/internal/protocol/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildRawReply hand-assembles a COMPOUND4res body for however many ops
// the fake server decided to execute, stopping early (as a real server
// would) at firstFailureIndex if it is >= 0.
func buildRawReply(t *testing.T, tag string, ops []Op, firstFailureIndex int, failStatus uint32, encodeResult func(i int, buf *bytes.Buffer)) []byte {
	t.Helper()
	var buf bytes.Buffer

	executed := len(ops)
	if firstFailureIndex >= 0 {
		executed = firstFailureIndex + 1
	}

	overallStatus := nfs.NFS4_OK
	if firstFailureIndex >= 0 {
		overallStatus = failStatus
	}

	require.NoError(t, xdr.WriteUint32(&buf, overallStatus))
	require.NoError(t, xdr.WriteXDRString(&buf, tag))
	require.NoError(t, xdr.WriteUint32(&buf, uint32(executed)))

	for i := 0; i < executed; i++ {
		require.NoError(t, xdr.WriteUint32(&buf, ops[i].Code()))
		if firstFailureIndex >= 0 && i == firstFailureIndex {
			require.NoError(t, xdr.WriteUint32(&buf, failStatus))
			break
		}
		require.NoError(t, xdr.WriteUint32(&buf, nfs.NFS4_OK))
		if encodeResult != nil {
			encodeResult(i, &buf)
		}
	}

	return buf.Bytes()
}

func TestBuildArgsEncodesOpsInOrder(t *testing.T) {
	ops := []Op{&PutFH{Handle: []byte("handle")}, &Lookup{Name: "foo"}, &GetFH{}}
	args, err := BuildArgs("tc4", ops)
	require.NoError(t, err)

	r := bytes.NewReader(args)
	_, err = xdr.DecodeString(r) // tag
	require.NoError(t, err)
	_, err = xdr.DecodeUint32(r) // minorversion
	require.NoError(t, err)
	numops, err := xdr.DecodeUint32(r)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), numops)

	opCode, err := xdr.DecodeUint32(r)
	require.NoError(t, err)
	assert.Equal(t, uint32(nfs.OP_PUTFH), opCode)
}

func TestDecodeReplyAllOpsSucceed(t *testing.T) {
	ops := []Op{PutRootFH{}, &Lookup{Name: "a"}, &GetFH{}}
	body := buildRawReply(t, "tc4", ops, -1, 0, func(i int, buf *bytes.Buffer) {
		if i == 2 {
			_ = xdr.WriteXDROpaque(buf, []byte("fh-bytes"))
		}
	})

	result, err := DecodeReply(body, ops)
	require.NoError(t, err)
	assert.Equal(t, uint32(nfs.NFS4_OK), result.Status)
	assert.Equal(t, -1, result.FailedOp)
	assert.Equal(t, 3, result.ExecutedOps)
	assert.Equal(t, []byte("fh-bytes"), ops[2].(*GetFH).Handle)
}

func TestDecodeReplyStopsAtFirstFailure(t *testing.T) {
	ops := []Op{PutRootFH{}, &Lookup{Name: "missing"}, &GetFH{}}
	body := buildRawReply(t, "tc4", ops, 1, nfs.NFS4ERR_NOENT, nil)

	result, err := DecodeReply(body, ops)
	require.NoError(t, err)
	assert.Equal(t, uint32(nfs.NFS4ERR_NOENT), result.Status)
	assert.Equal(t, 1, result.FailedOp)
	assert.Equal(t, 2, result.ExecutedOps)
}

func TestDecodeReplyRejectsOpCodeMismatch(t *testing.T) {
	ops := []Op{PutRootFH{}, &Lookup{Name: "a"}}

	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, nfs.NFS4_OK)
	_ = xdr.WriteXDRString(&buf, "tc4")
	_ = xdr.WriteUint32(&buf, 1)
	_ = xdr.WriteUint32(&buf, nfs.OP_GETFH) // wrong: should be OP_PUTROOTFH
	_ = xdr.WriteUint32(&buf, nfs.NFS4_OK)

	_, err := DecodeReply(buf.Bytes(), ops)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}
