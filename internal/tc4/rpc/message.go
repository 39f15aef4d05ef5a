package rpc

import (
	"bytes"
	"fmt"

	"github.com/marmos91/tc4client/internal/protocol/xdr"
)

// ONC-RPC version and message type constants (RFC 5531 Section 8).
const (
	RPCVersion2 = 2

	MsgTypeCall  = 0
	MsgTypeReply = 1
)

// Reply status and accept/reject status constants (RFC 5531 Section 8).
const (
	ReplyAccepted = 0
	ReplyDenied   = 1

	AcceptSuccess      = 0
	AcceptProgUnavail  = 1
	AcceptProgMismatch = 2
	AcceptProcUnavail  = 3
	AcceptGarbageArgs  = 4
	AcceptSystemErr    = 5

	RejectRPCMismatch = 0
	RejectAuthError   = 1
)

// CallHeader is the fixed portion of an RPC CALL message preceding the
// procedure-specific arguments.
type CallHeader struct {
	XID        uint32
	Program    uint32
	Version    uint32
	Procedure  uint32
	Credential UnixAuth
}

// EncodeCall builds a complete RPC CALL message (header + AUTH_UNIX
// credential + null verifier + procedure args), grounded on the teacher's
// BuildCBRPCCallMessage layout but using AUTH_UNIX instead of AUTH_NULL,
// since this client authenticates as a real uid/gid rather than as an
// anonymous callback dial-out.
func EncodeCall(hdr CallHeader, args []byte) ([]byte, error) {
	var buf bytes.Buffer

	if err := xdr.WriteUint32(&buf, hdr.XID); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, MsgTypeCall); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, RPCVersion2); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, hdr.Program); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, hdr.Version); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, hdr.Procedure); err != nil {
		return nil, err
	}

	credBody, err := EncodeUnixAuth(hdr.Credential)
	if err != nil {
		return nil, fmt.Errorf("encode credential: %w", err)
	}
	if err := xdr.WriteUint32(&buf, AuthUnix); err != nil {
		return nil, err
	}
	if err := xdr.WriteXDROpaque(&buf, credBody); err != nil {
		return nil, err
	}

	// AUTH_NULL verifier.
	if err := xdr.WriteUint32(&buf, AuthNull); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, 0); err != nil {
		return nil, err
	}

	buf.Write(args)
	return buf.Bytes(), nil
}

// ReplyHeader is the decoded fixed portion of an RPC REPLY message.
type ReplyHeader struct {
	XID     uint32
	Status  uint32 // one of ReplyAccepted / ReplyDenied
	Accept  uint32 // valid when Status == ReplyAccepted
}

// DecodeReplyHeader parses the RPC-level envelope of a REPLY message,
// returning the header and the remaining bytes (the procedure-specific
// result body, present only when Accept == AcceptSuccess).
func DecodeReplyHeader(record []byte) (ReplyHeader, []byte, error) {
	r := bytes.NewReader(record)

	xidVal, err := xdr.DecodeUint32(r)
	if err != nil {
		return ReplyHeader{}, nil, fmt.Errorf("decode xid: %w", err)
	}
	msgType, err := xdr.DecodeUint32(r)
	if err != nil {
		return ReplyHeader{}, nil, fmt.Errorf("decode msg_type: %w", err)
	}
	if msgType != MsgTypeReply {
		return ReplyHeader{}, nil, fmt.Errorf("expected REPLY (1), got msg_type %d", msgType)
	}

	replyStat, err := xdr.DecodeUint32(r)
	if err != nil {
		return ReplyHeader{}, nil, fmt.Errorf("decode reply_stat: %w", err)
	}

	hdr := ReplyHeader{XID: xidVal, Status: replyStat}

	switch replyStat {
	case ReplyAccepted:
		// verifier: flavor + opaque body
		if _, err := xdr.DecodeUint32(r); err != nil {
			return ReplyHeader{}, nil, fmt.Errorf("decode verf flavor: %w", err)
		}
		if _, err := xdr.DecodeOpaque(r); err != nil {
			return ReplyHeader{}, nil, fmt.Errorf("decode verf body: %w", err)
		}
		acceptStat, err := xdr.DecodeUint32(r)
		if err != nil {
			return ReplyHeader{}, nil, fmt.Errorf("decode accept_stat: %w", err)
		}
		hdr.Accept = acceptStat
		if acceptStat != AcceptSuccess {
			return hdr, nil, fmt.Errorf("rpc accept_stat %d", acceptStat)
		}
	case ReplyDenied:
		rejectStat, err := xdr.DecodeUint32(r)
		if err != nil {
			return ReplyHeader{}, nil, fmt.Errorf("decode reject_stat: %w", err)
		}
		return hdr, nil, fmt.Errorf("rpc call rejected, reject_stat %d", rejectStat)
	default:
		return hdr, nil, fmt.Errorf("unknown reply_stat %d", replyStat)
	}

	remaining := make([]byte, r.Len())
	if _, err := r.Read(remaining); err != nil && r.Len() > 0 {
		return hdr, nil, fmt.Errorf("read result body: %w", err)
	}
	return hdr, remaining, nil
}
