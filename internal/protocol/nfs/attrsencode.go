package nfs

import (
	"bytes"
	"fmt"
	"time"

	"github.com/marmos91/tc4client/internal/protocol/xdr"
)

// ============================================================================
// FATTR4 Attribute Bit Numbers (RFC 7530 Section 5)
// ============================================================================
//
// Only the subset of bits the TC client's tc_attrs surface exercises is
// defined here: tc_attrs_masks (tc_api.h) covers mode, size, nlink, uid,
// gid, rdev, atime, mtime, ctime.

const (
	FATTR4_SIZE            = 4  // uint64: file size in bytes
	FATTR4_FILEID          = 20 // uint64: unique file identifier
	FATTR4_MODE            = 33 // uint32: POSIX mode bits
	FATTR4_NUMLINKS        = 35 // uint32: number of hard links
	FATTR4_OWNER           = 36 // utf8str_mixed: owner name
	FATTR4_OWNER_GROUP     = 37 // utf8str_mixed: group owner name
	FATTR4_RAWDEV          = 41 // specdata4: major/minor device numbers
	FATTR4_SPACE_USED      = 45 // uint64: disk space used
	FATTR4_TIME_ACCESS     = 47 // nfstime4: last access time
	FATTR4_TIME_ACCESS_SET = 48 // settime4: set atime (writable)
	FATTR4_TIME_METADATA   = 52 // nfstime4: ctime-equivalent
	FATTR4_TIME_MODIFY     = 53 // nfstime4: last modify time
	FATTR4_TIME_MODIFY_SET = 54 // settime4: set mtime (writable)
)

// time_how4 constants for SETATTR timestamp setting (RFC 7530 Section 5.7).
const (
	SET_TO_SERVER_TIME4 = 0
	SET_TO_CLIENT_TIME4 = 1
)

// Mask selects which fields of Attrs are meaningful, mirroring
// tc_attrs_masks's bitfields one-for-one.
type Mask struct {
	Mode, Size, Nlink, UID, GID, Rdev, Atime, Mtime, Ctime bool
}

// Attrs is the generic attribute record the planner and public API exchange,
// independent of the wire bitmap representation.
type Attrs struct {
	Mode  uint32
	Size  uint64
	Nlink uint32
	UID   uint32
	GID   uint32
	Rdev  uint64 // major<<32 | minor
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

// RequestBitmap builds the FATTR4 bitmap for a GETATTR request from a Mask.
func RequestBitmap(mask Mask) []uint32 {
	var bitmap []uint32
	if mask.Mode {
		SetBit(&bitmap, FATTR4_MODE)
	}
	if mask.Size {
		SetBit(&bitmap, FATTR4_SIZE)
	}
	if mask.Nlink {
		SetBit(&bitmap, FATTR4_NUMLINKS)
	}
	if mask.UID {
		SetBit(&bitmap, FATTR4_OWNER)
	}
	if mask.GID {
		SetBit(&bitmap, FATTR4_OWNER_GROUP)
	}
	if mask.Rdev {
		SetBit(&bitmap, FATTR4_RAWDEV)
	}
	if mask.Atime {
		SetBit(&bitmap, FATTR4_TIME_ACCESS)
	}
	if mask.Mtime {
		SetBit(&bitmap, FATTR4_TIME_MODIFY)
	}
	if mask.Ctime {
		SetBit(&bitmap, FATTR4_TIME_METADATA)
	}
	return bitmap
}

// writableBits lists the attributes that can actually be carried in a
// SETATTR fattr4 per RFC 7530 Section 5.5. nlink, rdev and ctime are
// server-computed and never appear here.
var writableBits = []uint32{FATTR4_SIZE, FATTR4_MODE, FATTR4_OWNER, FATTR4_OWNER_GROUP, FATTR4_TIME_ACCESS_SET, FATTR4_TIME_MODIFY_SET}

// EncodeSetAttrsFattr4 encodes the fattr4 argument for a SETATTR operation,
// honoring only the mask bits that are writable. Non-writable bits set in
// mask (Nlink, Rdev, Ctime) are silently ignored: the server would reject
// them with NFS4ERR_ATTRNOTSUPP, and callers that need rdev/nlink semantics
// get them through CREATE/MKNOD instead of SETATTR.
func EncodeSetAttrsFattr4(buf *bytes.Buffer, attrs Attrs, mask Mask) error {
	var bitmap []uint32
	if mask.Size {
		SetBit(&bitmap, FATTR4_SIZE)
	}
	if mask.Mode {
		SetBit(&bitmap, FATTR4_MODE)
	}
	if mask.UID {
		SetBit(&bitmap, FATTR4_OWNER)
	}
	if mask.GID {
		SetBit(&bitmap, FATTR4_OWNER_GROUP)
	}
	if mask.Atime {
		SetBit(&bitmap, FATTR4_TIME_ACCESS_SET)
	}
	if mask.Mtime {
		SetBit(&bitmap, FATTR4_TIME_MODIFY_SET)
	}

	if err := EncodeBitmap4(buf, bitmap); err != nil {
		return fmt.Errorf("encode setattr bitmap: %w", err)
	}

	var vals bytes.Buffer
	maxBits := uint32(len(bitmap) * 32)
	for bit := uint32(0); bit < maxBits; bit++ {
		if !IsBitSet(bitmap, bit) {
			continue
		}
		if err := encodeWritableAttr(&vals, bit, attrs); err != nil {
			return fmt.Errorf("encode attr bit %d: %w", bit, err)
		}
	}

	return xdr.WriteXDROpaque(buf, vals.Bytes())
}

func encodeWritableAttr(buf *bytes.Buffer, bit uint32, attrs Attrs) error {
	switch bit {
	case FATTR4_SIZE:
		return xdr.WriteUint64(buf, attrs.Size)
	case FATTR4_MODE:
		return xdr.WriteUint32(buf, attrs.Mode&0o7777)
	case FATTR4_OWNER:
		return xdr.WriteXDRString(buf, formatOwner(attrs.UID))
	case FATTR4_OWNER_GROUP:
		return xdr.WriteXDRString(buf, formatGroup(attrs.GID))
	case FATTR4_TIME_ACCESS_SET:
		return encodeSetTime(buf, attrs.Atime)
	case FATTR4_TIME_MODIFY_SET:
		return encodeSetTime(buf, attrs.Mtime)
	default:
		return fmt.Errorf("bit %d is not writable", bit)
	}
}

func encodeSetTime(buf *bytes.Buffer, t time.Time) error {
	if err := xdr.WriteUint32(buf, SET_TO_CLIENT_TIME4); err != nil {
		return err
	}
	if err := xdr.WriteUint64(buf, uint64(t.Unix())); err != nil {
		return err
	}
	return xdr.WriteUint32(buf, uint32(t.Nanosecond()))
}

func formatOwner(uid uint32) string {
	if uid == 0 {
		return "root@localdomain"
	}
	return fmt.Sprintf("%d@localdomain", uid)
}

func formatGroup(gid uint32) string {
	if gid == 0 {
		return "wheel@localdomain"
	}
	return fmt.Sprintf("%d@localdomain", gid)
}
