package compound

import (
	"bytes"
	"fmt"
	"io"

	"github.com/marmos91/tc4client/internal/protocol/nfs"
	"github.com/marmos91/tc4client/internal/protocol/xdr"
)

// Open opens (optionally creating) Name relative to the current
// filehandle with CLAIM_NULL semantics, the only claim type a stateless
// batch client needs (no delegation reclaim across reboots).
type Open struct {
	SeqID       uint32
	ShareAccess uint32
	ShareDeny   uint32
	OwnerClientID uint64
	OwnerName     []byte
	Create        bool
	CreateMode    uint32 // UNCHECKED4, GUARDED4, EXCLUSIVE4
	CreateVerf    [8]byte
	CreateMask    nfs.Mask
	CreateAttrs   nfs.Attrs
	Name          string

	Stateid      [16]byte // populated by DecodeResult
	ResultFlags  uint32
	NeedsConfirm bool
}

func (o *Open) Code() uint32 { return nfs.OP_OPEN }

func (o *Open) EncodeArgs(buf *bytes.Buffer) error {
	if err := xdr.WriteUint32(buf, o.SeqID); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, o.ShareAccess); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, o.ShareDeny); err != nil {
		return err
	}

	// open_owner4
	if err := xdr.WriteUint64(buf, o.OwnerClientID); err != nil {
		return err
	}
	if err := xdr.WriteXDROpaque(buf, o.OwnerName); err != nil {
		return err
	}

	// openflag4
	if o.Create {
		if err := xdr.WriteUint32(buf, nfs.OPEN4_CREATE); err != nil {
			return err
		}
		if err := xdr.WriteUint32(buf, o.CreateMode); err != nil {
			return err
		}
		if o.CreateMode == nfs.EXCLUSIVE4 {
			if _, err := buf.Write(o.CreateVerf[:]); err != nil {
				return err
			}
		} else if err := nfs.EncodeSetAttrsFattr4(buf, o.CreateAttrs, o.CreateMask); err != nil {
			return err
		}
	} else if err := xdr.WriteUint32(buf, nfs.OPEN4_NOCREATE); err != nil {
		return err
	}

	// open_claim4: CLAIM_NULL + file name
	if err := xdr.WriteUint32(buf, nfs.CLAIM_NULL); err != nil {
		return err
	}
	return xdr.WriteXDRString(buf, o.Name)
}

func (o *Open) DecodeResult(r io.Reader) error {
	seqid, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("decode stateid seqid: %w", err)
	}
	_ = seqid
	var other [12]byte
	if _, err := io.ReadFull(r, other[:]); err != nil {
		return fmt.Errorf("decode stateid other: %w", err)
	}
	copy(o.Stateid[:4], []byte{0, 0, 0, 0})
	copy(o.Stateid[4:], other[:])

	if err := skipChangeInfo4(r); err != nil {
		return fmt.Errorf("decode cinfo: %w", err)
	}

	resultFlags, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("decode rflags: %w", err)
	}
	o.ResultFlags = resultFlags
	o.NeedsConfirm = resultFlags&nfs.OPEN4_RESULT_CONFIRM != 0

	if _, err := nfs.DecodeBitmap4(r); err != nil { // attrset
		return fmt.Errorf("decode attrset: %w", err)
	}

	// delegation4: discriminated union on delegation_type (OPEN_DELEGATE_NONE
	// has no further body, which is all this client ever requests: share
	// reservations give it the exclusion it needs without delegation
	// recall/callback plumbing).
	delegType, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("decode delegation type: %w", err)
	}
	if delegType != nfs.OPEN_DELEGATE_NONE {
		return fmt.Errorf("unexpected delegation type %d (client never sets a callback channel)", delegType)
	}

	return nil
}

// OpenConfirm confirms a stateid returned by Open with
// OPEN4_RESULT_CONFIRM set, per RFC 7530 Section 16.18 (the v4.0 path;
// this client speaks v4.0 only, so every fresh open-owner's first OPEN on
// a filehandle needs this unless the server omits the flag).
type OpenConfirm struct {
	Stateid [16]byte
	SeqID   uint32

	ResultStateid [16]byte
}

func (o *OpenConfirm) Code() uint32 { return nfs.OP_OPEN_CONFIRM }
func (o *OpenConfirm) EncodeArgs(buf *bytes.Buffer) error {
	if _, err := buf.Write(o.Stateid[:]); err != nil {
		return err
	}
	return xdr.WriteUint32(buf, o.SeqID)
}
func (o *OpenConfirm) DecodeResult(r io.Reader) error {
	var stateid [16]byte
	if _, err := io.ReadFull(r, stateid[:]); err != nil {
		return fmt.Errorf("decode confirmed stateid: %w", err)
	}
	o.ResultStateid = stateid
	return nil
}

// Close releases an open-owner's state on the current filehandle. Per
// spec.md's "CLOSE no-state optimization", the planner sends its CLOSEs
// with handle.NoStateSentinel (all 16 bytes 0xFF) as the Stateid instead
// of a server-issued stateid, since it does not track a stateid per item.
type Close struct {
	SeqID   uint32
	Stateid [16]byte

	ResultStateid [16]byte
}

func (o *Close) Code() uint32 { return nfs.OP_CLOSE }
func (o *Close) EncodeArgs(buf *bytes.Buffer) error {
	if err := xdr.WriteUint32(buf, o.SeqID); err != nil {
		return err
	}
	_, err := buf.Write(o.Stateid[:])
	return err
}
func (o *Close) DecodeResult(r io.Reader) error {
	var stateid [16]byte
	if _, err := io.ReadFull(r, stateid[:]); err != nil {
		return fmt.Errorf("decode close stateid: %w", err)
	}
	o.ResultStateid = stateid
	return nil
}
