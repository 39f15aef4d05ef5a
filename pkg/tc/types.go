package tc

import (
	"fmt"

	"github.com/marmos91/tc4client/internal/protocol/nfs"
	"github.com/marmos91/tc4client/internal/tc4/handle"
)

// AttrMask selects which Attrs fields a GetAttrs/SetAttrs call touches.
type AttrMask = nfs.Mask

// FileRef generalizes tc_api.h's tc_file union (TC_FILE_DESCRIPTOR,
// TC_FILE_PATH, TC_FILE_HANDLE): a file can be named by a path, an
// already-open descriptor, or a raw server filehandle. The interface is
// sealed to this package; PathRef, DescriptorRef, and HandleRef are the
// only implementations.
type FileRef interface {
	fmt.Stringer
	resolve(c *Client) (path string, h handle.Handle, err error)
}

// PathRef names a file by an absolute path from the server pseudo-root.
type PathRef struct {
	Path string
}

func (r PathRef) String() string { return r.Path }
func (r PathRef) resolve(*Client) (string, handle.Handle, error) {
	return r.Path, handle.Handle{}, nil
}

// HandleRef names a file directly by a previously obtained opaque NFSv4
// filehandle, skipping path resolution entirely (tc_api.h's
// TC_FILE_HANDLE).
type HandleRef struct {
	Handle handle.Handle
}

func (r HandleRef) String() string { return r.Handle.String() }
func (r HandleRef) resolve(*Client) (string, handle.Handle, error) {
	return "", r.Handle, nil
}

// DescriptorRef names a file previously returned by OpenByPath/
// OpenByHandle (tc_api.h's TC_FILE_DESCRIPTOR): an fd-like integer the
// client resolves back to its cached handle.
type DescriptorRef struct {
	id uint64
}

func (r DescriptorRef) String() string { return fmt.Sprintf("fd:%d", r.id) }
func (r DescriptorRef) resolve(c *Client) (string, handle.Handle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ref, ok := c.openFiles[r.id]
	if !ok {
		return "", handle.Handle{}, fmt.Errorf("tc4: descriptor %d is not open", r.id)
	}
	return "", ref.Handle, nil
}

// CWD and Abs are the two base-directory sentinels tc_api.h defines
// (TC_FD_CWD, TC_FD_ABS). This client has no separate mount/cwd notion of
// its own (there is no MOUNT step in NFSv4), so both resolve every path
// against the server's pseudo-root; they exist to keep call sites that
// mirror the C API's base-directory argument recognizable.
var (
	CWD = PathRef{Path: "."}
	Abs = PathRef{Path: "/"}
)

// OpenFlags mirrors the subset of POSIX open(2) flags tc_api.h's
// tc_open_flags documents: O_RDONLY/O_WRONLY/O_RDWR plus O_CREAT.
type OpenFlags uint32

const (
	ORDONLY OpenFlags = 0
	OWRONLY OpenFlags = 1
	ORDWR   OpenFlags = 2
	OCREAT  OpenFlags = 0o100
)

// IOVec is one element of a readv/writev batch, mirroring tc_iovec.
type IOVec struct {
	File   FileRef
	Offset uint64
	Length uint32 // Read: bytes requested
	Data   []byte // Write: bytes to send; Read result: bytes returned
	IsEOF  bool   // Read result

	Errno int32
	OK    bool
}

// Attrs is one element of a getattrsv/setattrsv batch.
type Attrs struct {
	File FileRef
	Mask AttrMask
	nfs.Attrs

	Errno int32
	OK    bool
}

// DirEntry is one entry returned by ListDir.
type DirEntry struct {
	Name  string
	Attrs nfs.Attrs
}

// FilePair is one element of a renamev batch (tc_file_pair).
type FilePair struct {
	Src FileRef
	Dst FileRef
}

// ExtentPair is one element of a copyv batch (tc_extent_pair): a byte
// range in Src copied to a byte range in Dst.
type ExtentPair struct {
	Src       FileRef
	Dst       FileRef
	SrcOffset uint64
	DstOffset uint64
	Length    uint64
}

// ADB describes one Application Data Block write (tc_adb, NFSv4.2 §18):
// a repeating Pattern rendered into a contiguous byte range starting at
// Offset. This client targets NFSv4.0 wire semantics (spec.md's
// Non-goals exclude NFSv4.2 features), so WriteADB renders the pattern
// client-side and issues an ordinary WRITE rather than an ADB-aware
// protocol operation.
type ADB struct {
	File          FileRef
	Offset        uint64
	PatternOffset uint64
	PatternSize   uint64
	Pattern       []byte
	BlockCount    uint64
}

// ErrBatchTooLarge is returned when txn is true and a batch would need
// more than Planner.MaxCompoundOps operations (by the client's estimate of
// MaxDirDepth+3 ops per item). Batches are never split across COMPOUNDs,
// so the call is refused before anything is sent.
type ErrBatchTooLarge struct {
	Requested int
	Max       int
}

func (e *ErrBatchTooLarge) Error() string {
	return fmt.Sprintf("tc4: batch needs %d ops but txn requires staying within %d", e.Requested, e.Max)
}
