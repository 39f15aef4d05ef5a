package compound

import (
	"bytes"
	"fmt"
	"io"

	"github.com/marmos91/tc4client/internal/protocol/nfs"
	"github.com/marmos91/tc4client/internal/protocol/xdr"
)

// ============================================================================
// PUTROOTFH
// ============================================================================

// PutRootFH sets the current filehandle to the server's pseudo-root, the
// starting point for every absolute path resolution (spec.md's path
// resolver always begins here; there is no separate MOUNT step in NFSv4).
type PutRootFH struct{}

func (PutRootFH) Code() uint32                  { return nfs.OP_PUTROOTFH }
func (PutRootFH) EncodeArgs(*bytes.Buffer) error { return nil }
func (PutRootFH) DecodeResult(io.Reader) error   { return nil }

// ============================================================================
// PUTFH
// ============================================================================

// PutFH sets the current filehandle to a previously obtained opaque handle.
type PutFH struct {
	Handle []byte
}

func (o *PutFH) Code() uint32 { return nfs.OP_PUTFH }
func (o *PutFH) EncodeArgs(buf *bytes.Buffer) error {
	return xdr.WriteXDROpaque(buf, o.Handle)
}
func (o *PutFH) DecodeResult(io.Reader) error { return nil }

// ============================================================================
// GETFH
// ============================================================================

// GetFH fetches the current filehandle as an opaque handle, used after
// LOOKUP/OPEN/CREATE to learn the handle of the object just addressed.
type GetFH struct {
	Handle []byte // populated by DecodeResult
}

func (o *GetFH) Code() uint32                  { return nfs.OP_GETFH }
func (o *GetFH) EncodeArgs(*bytes.Buffer) error { return nil }
func (o *GetFH) DecodeResult(r io.Reader) error {
	handle, err := xdr.DecodeOpaque(r)
	if err != nil {
		return fmt.Errorf("decode handle: %w", err)
	}
	o.Handle = handle
	return nil
}

// ============================================================================
// LOOKUP
// ============================================================================

// Lookup resolves one path component relative to the current filehandle.
type Lookup struct {
	Name string
}

func (o *Lookup) Code() uint32 { return nfs.OP_LOOKUP }
func (o *Lookup) EncodeArgs(buf *bytes.Buffer) error {
	return xdr.WriteXDRString(buf, o.Name)
}
func (o *Lookup) DecodeResult(io.Reader) error { return nil }

// ============================================================================
// GETATTR
// ============================================================================

// GetAttr fetches the attributes named by Mask for the current filehandle.
type GetAttr struct {
	Mask nfs.Mask

	Result nfs.Attrs // populated by DecodeResult
}

func (o *GetAttr) Code() uint32 { return nfs.OP_GETATTR }
func (o *GetAttr) EncodeArgs(buf *bytes.Buffer) error {
	return nfs.EncodeBitmap4(buf, nfs.RequestBitmap(o.Mask))
}
func (o *GetAttr) DecodeResult(r io.Reader) error {
	attrs, err := nfs.DecodeGetAttrsFattr4(r)
	if err != nil {
		return err
	}
	o.Result = attrs
	return nil
}

// ============================================================================
// SETATTR
// ============================================================================

// SetAttr applies Attrs (restricted to Mask's writable fields) to the
// current filehandle.
type SetAttr struct {
	Stateid [16]byte
	Attrs   nfs.Attrs
	Mask    nfs.Mask
}

func (o *SetAttr) Code() uint32 { return nfs.OP_SETATTR }
func (o *SetAttr) EncodeArgs(buf *bytes.Buffer) error {
	if _, err := buf.Write(o.Stateid[:]); err != nil {
		return err
	}
	return nfs.EncodeSetAttrsFattr4(buf, o.Attrs, o.Mask)
}
func (o *SetAttr) DecodeResult(r io.Reader) error {
	// resok is just the bitmap4 of attrs actually set; consumed and
	// discarded, since the caller already knows what it asked to set.
	_, err := nfs.DecodeBitmap4(r)
	return err
}

// ============================================================================
// READ
// ============================================================================

// Read reads Count bytes at Offset from the current filehandle's open
// state.
type Read struct {
	Stateid [16]byte
	Offset  uint64
	Count   uint32

	EOF  bool   // populated by DecodeResult
	Data []byte // populated by DecodeResult
}

func (o *Read) Code() uint32 { return nfs.OP_READ }
func (o *Read) EncodeArgs(buf *bytes.Buffer) error {
	if _, err := buf.Write(o.Stateid[:]); err != nil {
		return err
	}
	if err := xdr.WriteUint64(buf, o.Offset); err != nil {
		return err
	}
	return xdr.WriteUint32(buf, o.Count)
}
func (o *Read) DecodeResult(r io.Reader) error {
	eof, err := xdr.DecodeBool(r)
	if err != nil {
		return fmt.Errorf("decode eof: %w", err)
	}
	data, err := xdr.DecodeOpaque(r)
	if err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	o.EOF = eof
	o.Data = data
	return nil
}

// ============================================================================
// WRITE
// ============================================================================

// StableHow mirrors stable_how4 (RFC 7530 Section 3.3.15).
type StableHow = uint32

const (
	Unstable4 StableHow = 0
	DataSync4 StableHow = 1
	FileSync4 StableHow = 2
)

// Write writes Data at Offset to the current filehandle's open state.
type Write struct {
	Stateid [16]byte
	Offset  uint64
	Stable  StableHow
	Data    []byte

	Count    uint32 // populated by DecodeResult
	Verifier [8]byte
}

func (o *Write) Code() uint32 { return nfs.OP_WRITE }
func (o *Write) EncodeArgs(buf *bytes.Buffer) error {
	if _, err := buf.Write(o.Stateid[:]); err != nil {
		return err
	}
	if err := xdr.WriteUint64(buf, o.Offset); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, o.Stable); err != nil {
		return err
	}
	return xdr.WriteXDROpaque(buf, o.Data)
}
func (o *Write) DecodeResult(r io.Reader) error {
	count, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("decode count: %w", err)
	}
	stable, err := xdr.DecodeUint32(r)
	if err != nil {
		return fmt.Errorf("decode committed: %w", err)
	}
	_ = stable
	if _, err := io.ReadFull(r, o.Verifier[:]); err != nil {
		return fmt.Errorf("decode writeverf: %w", err)
	}
	o.Count = count
	return nil
}

// ============================================================================
// REMOVE
// ============================================================================

// Remove deletes Name from the current (directory) filehandle.
type Remove struct {
	Name string
}

func (o *Remove) Code() uint32 { return nfs.OP_REMOVE }
func (o *Remove) EncodeArgs(buf *bytes.Buffer) error {
	return xdr.WriteXDRString(buf, o.Name)
}
func (o *Remove) DecodeResult(r io.Reader) error {
	return skipChangeInfo4(r)
}

// ============================================================================
// RENAME
// ============================================================================

// Rename moves OldName (relative to the saved filehandle set by a
// preceding SaveFH) to NewName relative to the current filehandle.
type Rename struct {
	OldName string
	NewName string
}

func (o *Rename) Code() uint32 { return nfs.OP_RENAME }
func (o *Rename) EncodeArgs(buf *bytes.Buffer) error {
	if err := xdr.WriteXDRString(buf, o.OldName); err != nil {
		return err
	}
	return xdr.WriteXDRString(buf, o.NewName)
}
func (o *Rename) DecodeResult(r io.Reader) error {
	if err := skipChangeInfo4(r); err != nil {
		return err
	}
	return skipChangeInfo4(r)
}

// SaveFH saves the current filehandle so a later RESTOREFH (or, as here,
// RENAME's implicit saved-fh-as-source semantics) can use it.
type SaveFH struct{}

func (SaveFH) Code() uint32                  { return nfs.OP_SAVEFH }
func (SaveFH) EncodeArgs(*bytes.Buffer) error { return nil }
func (SaveFH) DecodeResult(io.Reader) error   { return nil }

// RestoreFH restores the filehandle previously stashed by SaveFH as the
// current filehandle.
type RestoreFH struct{}

func (RestoreFH) Code() uint32                  { return nfs.OP_RESTOREFH }
func (RestoreFH) EncodeArgs(*bytes.Buffer) error { return nil }
func (RestoreFH) DecodeResult(io.Reader) error   { return nil }

func skipChangeInfo4(r io.Reader) error {
	if _, err := xdr.DecodeBool(r); err != nil { // atomic
		return err
	}
	if _, err := xdr.DecodeUint64(r); err != nil { // before
		return err
	}
	if _, err := xdr.DecodeUint64(r); err != nil { // after
		return err
	}
	return nil
}

// ============================================================================
// CREATE (directories; spec.md's mkdirv)
// ============================================================================

// Create makes a new directory entry of the given NFSv4 file type
// relative to the current filehandle. Only NF4DIR is exercised by
// spec.md's mkdirv; other types are left available for completeness.
type Create struct {
	Type  uint32
	Name  string
	Mask  nfs.Mask
	Attrs nfs.Attrs
}

func (o *Create) Code() uint32 { return nfs.OP_CREATE }
func (o *Create) EncodeArgs(buf *bytes.Buffer) error {
	if err := xdr.WriteUint32(buf, o.Type); err != nil {
		return err
	}
	if err := xdr.WriteXDRString(buf, o.Name); err != nil {
		return err
	}
	return nfs.EncodeSetAttrsFattr4(buf, o.Attrs, o.Mask)
}
func (o *Create) DecodeResult(r io.Reader) error {
	if err := skipChangeInfo4(r); err != nil {
		return err
	}
	_, err := nfs.DecodeBitmap4(r) // attrset
	return err
}

// ============================================================================
// READDIR
// ============================================================================

// Readdir lists directory entries starting at Cookie, used by spec.md's
// listdir operation.
type Readdir struct {
	Cookie     uint64
	CookieVerf [8]byte
	DirCount   uint32
	MaxCount   uint32
	Mask       nfs.Mask

	Entries   []DirEntry // populated by DecodeResult
	EOF       bool
	NextVerf  [8]byte
}

// DirEntry is one READDIR entry with its requested attributes already
// decoded.
type DirEntry struct {
	Cookie uint64
	Name   string
	Attrs  nfs.Attrs
}

func (o *Readdir) Code() uint32 { return nfs.OP_READDIR }
func (o *Readdir) EncodeArgs(buf *bytes.Buffer) error {
	if err := xdr.WriteUint64(buf, o.Cookie); err != nil {
		return err
	}
	if _, err := buf.Write(o.CookieVerf[:]); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, o.DirCount); err != nil {
		return err
	}
	if err := xdr.WriteUint32(buf, o.MaxCount); err != nil {
		return err
	}
	return nfs.EncodeBitmap4(buf, nfs.RequestBitmap(o.Mask))
}
func (o *Readdir) DecodeResult(r io.Reader) error {
	if _, err := io.ReadFull(r, o.NextVerf[:]); err != nil {
		return fmt.Errorf("decode cookieverf: %w", err)
	}

	var entries []DirEntry
	for {
		hasEntry, err := xdr.DecodeBool(r)
		if err != nil {
			return fmt.Errorf("decode entry4 presence: %w", err)
		}
		if !hasEntry {
			break
		}

		cookie, err := xdr.DecodeUint64(r)
		if err != nil {
			return fmt.Errorf("decode entry cookie: %w", err)
		}
		name, err := xdr.DecodeString(r)
		if err != nil {
			return fmt.Errorf("decode entry name: %w", err)
		}
		attrs, err := nfs.DecodeGetAttrsFattr4(r)
		if err != nil {
			return fmt.Errorf("decode entry attrs: %w", err)
		}
		entries = append(entries, DirEntry{Cookie: cookie, Name: name, Attrs: attrs})
	}

	eof, err := xdr.DecodeBool(r)
	if err != nil {
		return fmt.Errorf("decode eof: %w", err)
	}

	o.Entries = entries
	o.EOF = eof
	return nil
}
