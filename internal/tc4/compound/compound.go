// Package compound builds and executes NFSv4 COMPOUND procedure calls: the
// client-side mirror of the teacher server's per-operation dispatch table,
// inverted to encode op arguments and decode op results instead of the
// other way around.
package compound

import (
	"bytes"
	"fmt"
	"io"

	"github.com/marmos91/tc4client/internal/protocol/nfs"
	"github.com/marmos91/tc4client/internal/protocol/xdr"
)

// Op is one operation in a COMPOUND's op array. Callers (pathresolve,
// handle, planner) implement this for each NFSv4 operation they need;
// compound only knows how to sequence encode/decode around the op code
// and per-op status, never the op-specific payload shape.
type Op interface {
	// Code returns the NFSv4 op code (OP_PUTFH, OP_LOOKUP, ...).
	Code() uint32
	// EncodeArgs writes this op's arguments (everything after the op code).
	EncodeArgs(buf *bytes.Buffer) error
	// DecodeResult reads this op's resok body. Only called when the
	// server reported NFS4_OK for this op.
	DecodeResult(r io.Reader) error
}

// NFSPROC4_COMPOUND is the sole v4.0 procedure number besides NULL.
const NFSPROC4_COMPOUND = 1

// Result describes the outcome of one COMPOUND call.
type Result struct {
	// Status is the overall nfsstat4 the server reported for the compound
	// (the status of the last op processed).
	Status uint32
	// Tag echoes the compound's tag field.
	Tag string
	// ExecutedOps is how many ops in the request ran before the server
	// stopped (either all of them, on success, or up to and including the
	// first failing op).
	ExecutedOps int
	// FailedOp is the index of the op that returned a non-NFS4_OK status,
	// or -1 if every op succeeded.
	FailedOp int
}

// BuildArgs encodes a COMPOUND4args body: tag, minorversion (always 0 for
// this v4.0-only client), numops, then each op's code + arguments in
// order.
func BuildArgs(tag string, ops []Op) ([]byte, error) {
	var buf bytes.Buffer

	if err := xdr.WriteXDRString(&buf, tag); err != nil {
		return nil, fmt.Errorf("encode tag: %w", err)
	}
	if err := xdr.WriteUint32(&buf, 0); err != nil { // minorversion
		return nil, fmt.Errorf("encode minorversion: %w", err)
	}
	if err := xdr.WriteUint32(&buf, uint32(len(ops))); err != nil {
		return nil, fmt.Errorf("encode numops: %w", err)
	}

	for i, op := range ops {
		if err := xdr.WriteUint32(&buf, op.Code()); err != nil {
			return nil, fmt.Errorf("encode op %d code: %w", i, err)
		}
		if err := op.EncodeArgs(&buf); err != nil {
			return nil, fmt.Errorf("encode op %d (%s) args: %w", i, nfs.OpName(op.Code()), err)
		}
	}

	return buf.Bytes(), nil
}

// DecodeReply decodes a COMPOUND4res body against the same ops slice that
// was passed to BuildArgs, calling DecodeResult on each op that the server
// actually executed. Per RFC 7530 Section 15.2, a COMPOUND stops at the
// first operation that does not return NFS4_OK, so the resarray may be
// shorter than len(ops); DecodeReply returns as soon as it hits that op
// (or the end of the array) rather than erroring.
func DecodeReply(body []byte, ops []Op) (*Result, error) {
	r := bytes.NewReader(body)

	status, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	tag, err := xdr.DecodeString(r)
	if err != nil {
		return nil, fmt.Errorf("decode tag: %w", err)
	}
	numres, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("decode numres: %w", err)
	}

	result := &Result{Status: status, Tag: tag, FailedOp: -1}

	for i := uint32(0); i < numres; i++ {
		if int(i) >= len(ops) {
			return nil, fmt.Errorf("server returned more results (%d) than ops requested (%d)", numres, len(ops))
		}
		op := ops[i]

		opCode, err := xdr.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("decode result %d op code: %w", i, err)
		}
		if opCode != op.Code() {
			return nil, fmt.Errorf("result %d op code mismatch: expected %s, got %s", i, nfs.OpName(op.Code()), nfs.OpName(opCode))
		}

		opStatus, err := xdr.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("decode result %d status: %w", i, err)
		}

		result.ExecutedOps = int(i) + 1

		if opStatus != nfs.NFS4_OK {
			result.FailedOp = int(i)
			result.Status = opStatus
			return result, nil
		}

		if err := op.DecodeResult(r); err != nil {
			return nil, fmt.Errorf("decode result %d (%s) body: %w", i, nfs.OpName(op.Code()), err)
		}
	}

	return result, nil
}
