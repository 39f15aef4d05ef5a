package compound

import (
	"bytes"
	"fmt"
	"io"

	xdr2 "github.com/rasky/go-xdr/xdr2"

	"github.com/marmos91/tc4client/internal/protocol/nfs"
)

// setClientID4args and setClientID4resok are fixed-shape enough (no
// op-stream-style discriminated heterogeneity) that reflection-based
// marshaling pulls its weight here, unlike the hand-rolled encode/decode
// the rest of this package uses for the COMPOUND op stream itself.

type setClientID4args struct {
	Verifier [8]byte
	ID       []byte
	CBProgram uint32
	CBNetID   string
	CBAddr    string
	CBIdent   uint32
}

type setClientID4resok struct {
	ClientID        uint64
	ConfirmVerifier [8]byte
}

// SetClientIDOp issues SETCLIENTID with no backchannel (cb_program 0, an
// empty netid/addr): this client never registers a callback channel since
// it requests no delegations (CLAIM_NULL-only opens, per open.go).
type SetClientIDOp struct {
	Verifier [8]byte
	OwnerName string

	ClientID        uint64 // populated by DecodeResult
	ConfirmVerifier [8]byte
}

func (o *SetClientIDOp) Code() uint32 { return nfs.OP_SETCLIENTID }

func (o *SetClientIDOp) EncodeArgs(buf *bytes.Buffer) error {
	args := setClientID4args{
		Verifier: o.Verifier,
		ID:       []byte(o.OwnerName),
	}
	_, err := xdr2.Marshal(buf, args)
	return err
}

func (o *SetClientIDOp) DecodeResult(r io.Reader) error {
	var resok setClientID4resok
	if _, err := xdr2.Unmarshal(r, &resok); err != nil {
		return fmt.Errorf("unmarshal setclientid4resok: %w", err)
	}
	o.ClientID = resok.ClientID
	o.ConfirmVerifier = resok.ConfirmVerifier
	return nil
}

// SetClientIDConfirmOp issues SETCLIENTID_CONFIRM, completing the
// handshake SetClientIDOp started.
type SetClientIDConfirmOp struct {
	ClientID        uint64
	ConfirmVerifier [8]byte
}

func (o *SetClientIDConfirmOp) Code() uint32 { return nfs.OP_SETCLIENTID_CONFIRM }

func (o *SetClientIDConfirmOp) EncodeArgs(buf *bytes.Buffer) error {
	args := struct {
		ClientID uint64
		Verifier [8]byte
	}{o.ClientID, o.ConfirmVerifier}
	_, err := xdr2.Marshal(buf, args)
	return err
}

func (o *SetClientIDConfirmOp) DecodeResult(io.Reader) error { return nil }

// RenewOp issues RENEW to keep the client's lease alive.
type RenewOp struct {
	ClientID uint64
}

func (o *RenewOp) Code() uint32 { return nfs.OP_RENEW }
func (o *RenewOp) EncodeArgs(buf *bytes.Buffer) error {
	_, err := xdr2.Marshal(buf, o.ClientID)
	return err
}
func (o *RenewOp) DecodeResult(io.Reader) error { return nil }
