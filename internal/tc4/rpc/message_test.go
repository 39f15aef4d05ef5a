package rpc

import (
	"bytes"
	"testing"

	"github.com/marmos91/tc4client/internal/protocol/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCallLayout(t *testing.T) {
	hdr := CallHeader{
		XID:        0xABCD1234,
		Program:    100003,
		Version:    4,
		Procedure:  1,
		Credential: UnixAuth{Stamp: 1, MachineName: "host", UID: 1000, GID: 1000},
	}
	msg, err := EncodeCall(hdr, []byte("args"))
	require.NoError(t, err)

	r := bytes.NewReader(msg)
	xidVal, err := xdr.DecodeUint32(r)
	require.NoError(t, err)
	assert.Equal(t, hdr.XID, xidVal)

	msgType, err := xdr.DecodeUint32(r)
	require.NoError(t, err)
	assert.Equal(t, uint32(MsgTypeCall), msgType)

	rpcVers, err := xdr.DecodeUint32(r)
	require.NoError(t, err)
	assert.Equal(t, uint32(RPCVersion2), rpcVers)

	prog, err := xdr.DecodeUint32(r)
	require.NoError(t, err)
	assert.Equal(t, hdr.Program, prog)
}

func buildAcceptedReply(xid uint32, acceptStat uint32, result []byte) []byte {
	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, xid)
	_ = xdr.WriteUint32(&buf, MsgTypeReply)
	_ = xdr.WriteUint32(&buf, ReplyAccepted)
	_ = xdr.WriteUint32(&buf, AuthNull) // verifier flavor
	_ = xdr.WriteXDROpaque(&buf, nil)   // verifier body
	_ = xdr.WriteUint32(&buf, acceptStat)
	buf.Write(result)
	return buf.Bytes()
}

func TestDecodeReplyHeaderAccepted(t *testing.T) {
	record := buildAcceptedReply(42, AcceptSuccess, []byte("result-bytes"))

	hdr, body, err := DecodeReplyHeader(record)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), hdr.XID)
	assert.Equal(t, uint32(ReplyAccepted), hdr.Status)
	assert.Equal(t, []byte("result-bytes"), body)
}

func TestDecodeReplyHeaderProgMismatch(t *testing.T) {
	record := buildAcceptedReply(7, AcceptProgMismatch, nil)

	_, _, err := DecodeReplyHeader(record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accept_stat")
}

func TestDecodeReplyHeaderDenied(t *testing.T) {
	var buf bytes.Buffer
	_ = xdr.WriteUint32(&buf, 9)
	_ = xdr.WriteUint32(&buf, MsgTypeReply)
	_ = xdr.WriteUint32(&buf, ReplyDenied)
	_ = xdr.WriteUint32(&buf, RejectAuthError)

	_, _, err := DecodeReplyHeader(buf.Bytes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}
