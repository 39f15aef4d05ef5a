// Package planner implements the TC batch planner (spec.md's "transactional
// compound" core): it turns a vector of homogeneous read/write/getattr/
// setattr items into a single COMPOUND, brackets each non-reused item's
// access with an OPEN and CLOSE-no-state, and attributes a compound-level
// failure back to the one logical item that caused it.
//
// Grounded on the original tc_client's ktcread/do_ktcread (handle.c):
// PUTROOTFH + per-component LOOKUP + OPEN + READ per item (or, for an item
// with a null path, just READ against the filehandle the previous item
// left current), one trailing CLOSE with a sentinel "no state" stateid, and
// a fail_index walk that advances a logical item counter only at each
// item's boundary op.
package planner

import (
	"fmt"
	"syscall"

	"github.com/marmos91/tc4client/internal/protocol/nfs"
	"github.com/marmos91/tc4client/internal/tc4/compound"
	"github.com/marmos91/tc4client/internal/tc4/handle"
	"github.com/marmos91/tc4client/internal/tc4/pathresolve"
)

// Kind identifies what operation a BatchItem performs.
type Kind int

const (
	KindRead Kind = iota
	KindWrite
	KindGetAttr
	KindSetAttr
)

// MaxDirDepth mirrors the original's MAX_DIR_DEPTH op-array sizing
// constant; path depth is not checked against it. It is purely a
// capacity hint here (Go slices grow), kept to preserve the original's
// per-item op budget reasoning when callers want to presize a batch.
const MaxDirDepth = 32

// BatchItem is one element of a TC vector: a single file reference plus
// the operation to perform on it, and (after ApplyResult) the result of that
// operation.
type BatchItem struct {
	Kind Kind
	Path string

	// Handle, when non-zero, identifies the file directly by its opaque
	// NFSv4 filehandle (a PUTFH) instead of resolving Path (a PUTROOTFH +
	// LOOKUP chain). This realizes the FileRef union's "already resolved"
	// arm (tc_api.h's TC_FILE_HANDLE/TC_FILE_DESCRIPTOR members) without
	// the planner needing to know about pkg/tc's descriptor tracking.
	Handle handle.Handle

	// Read/Write fields.
	Offset uint64
	Length uint32 // KindRead: bytes requested
	Data   []byte // KindWrite: bytes to write; KindRead result: bytes returned
	EOF    bool   // KindRead result

	// GetAttr/SetAttr fields.
	Mask  nfs.Mask
	Attrs nfs.Attrs // KindSetAttr input; KindGetAttr result

	// Populated by ApplyResult.
	Errno     syscall.Errno
	Completed bool
}

func (item *BatchItem) boundaryOp() compound.Op {
	switch item.Kind {
	case KindRead:
		return &compound.Read{Offset: item.Offset, Count: item.Length}
	case KindWrite:
		return &compound.Write{Offset: item.Offset, Stable: compound.FileSync4, Data: item.Data}
	case KindGetAttr:
		return &compound.GetAttr{Mask: item.Mask}
	case KindSetAttr:
		return &compound.SetAttr{Attrs: item.Attrs, Mask: item.Mask}
	default:
		return nil
	}
}

// needsOpen reports whether this item's boundary op requires a prior OPEN
// (READ/WRITE do; GETATTR/SETATTR can act on a plain LOOKUP-resolved
// filehandle without one).
func (k Kind) needsOpen() bool {
	return k == KindRead || k == KindWrite
}

// Plan builds the op array for one batch: PUTROOTFH + LOOKUP chain (+ OPEN
// when needed) + the item's boundary op, for every item in order, followed
// by a single trailing CLOSE using the no-state sentinel. An item whose
// Path is "" and Handle is zero reuses the filehandle/open left behind by
// the previous item: the planner emits only its boundary op, with no
// PUTROOTFH/LOOKUP/OPEN/CLOSE of its own (do_ktcread: "file path is empty,
// so no need to send lookups, just send read as the current filehandle has
// the file"). The first item may not reuse anything (there is nothing to
// reuse yet): a null Path/Handle at index 0 fails with EINVAL before any op
// is planned, matching do_ktcread's "filepath for the first element should
// not be empty" check. Every non-reused item after the first is preceded by
// its own CLOSE-no-state, releasing whatever the previous item left open
// before starting a fresh PUTROOTFH/PUTFH (do_ktcread/do_ktcwrite: "no need
// to send close if its the first read request", otherwise CLOSE-no-state
// before the next item's lookup chain) — so a batch of N items with K
// reused (null-path) items emits exactly N-K OPENs and N-K CLOSEs. It
// returns the ops alongside the physical op index of each item's boundary
// op, so ApplyResult can translate a compound-level failure back to a logical
// item. ownerClientID/ownerName identify the open-owner every OPEN in this
// batch shares, per RFC 7530 Section 9.1.4 (one open-owner per client-id
// per distinct purpose; a batch client reuses a single owner for all of its
// OPENs, matching do_ktcread/do_ktcwrite's single "GANESHA/PROXY: pid=..."
// owner string).
func Plan(items []BatchItem, ownerClientID uint64, ownerName []byte) ([]compound.Op, []int, error) {
	ops := make([]compound.Op, 0, (MaxDirDepth+3)*len(items))
	boundaryIndex := make([]int, len(items))

	for i := range items {
		item := &items[i]
		reused := item.Path == "" && item.Handle.IsZero()

		if reused {
			if i == 0 {
				return nil, nil, fmt.Errorf("item 0: %w", syscall.EINVAL)
			}
			boundary := item.boundaryOp()
			ops = append(ops, boundary)
			boundaryIndex[i] = len(ops) - 1
			continue
		}

		if i > 0 {
			ops = append(ops, &compound.Close{Stateid: handle.NoStateSentinel})
		}

		if !item.Handle.IsZero() {
			// Already resolved to a filehandle (FileRef's TC_FILE_HANDLE/
			// TC_FILE_DESCRIPTOR arm): PUTFH it directly and skip LOOKUP/
			// OPEN, since the caller is expected to have opened it already.
			ops = append(ops, &compound.PutFH{Handle: item.Handle.Bytes()})
			boundary := item.boundaryOp()
			ops = append(ops, boundary)
			boundaryIndex[i] = len(ops) - 1
			continue
		}

		resolved, err := pathresolve.Build(item.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("item %d: %w", i, err)
		}
		ops = append(ops, resolved.Ops...)

		if item.Kind.needsOpen() {
			shareAccess := uint32(nfs.OPEN4_SHARE_ACCESS_READ)
			if item.Kind == KindWrite {
				shareAccess = nfs.OPEN4_SHARE_ACCESS_WRITE
			}
			ops = append(ops, &compound.Open{
				ShareAccess:   shareAccess,
				ShareDeny:     nfs.OPEN4_SHARE_DENY_NONE,
				OwnerClientID: ownerClientID,
				OwnerName:     ownerName,
				Name:          resolved.FinalName,
			})
		} else {
			ops = append(ops, &compound.Lookup{Name: resolved.FinalName})
		}

		boundary := item.boundaryOp()
		ops = append(ops, boundary)
		boundaryIndex[i] = len(ops) - 1
	}

	ops = append(ops, &compound.Close{Stateid: handle.NoStateSentinel})

	return ops, boundaryIndex, nil
}

// ApplyResult walks the compound.Result produced by executing Plan's ops
// against the same boundaryIndex slice, filling in each item's Errno,
// Completed flag, and (for reads/getattrs) its result fields. The failure
// is charged to the first item whose boundary op is at or after the failed
// op, i.e. the item whose own ops (its leading CLOSE, lookup chain, OPEN or
// boundary op) include it; items after that one are left Completed=false
// with no Errno, mirroring the original's "caller has to retry from
// fail_index" contract.
func ApplyResult(items []BatchItem, ops []compound.Op, boundaryIndex []int, result *compound.Result) {
	attributed := false
	for i := range items {
		item := &items[i]
		idx := boundaryIndex[i]

		if result.FailedOp >= 0 && idx >= result.FailedOp {
			if !attributed {
				item.Errno = nfs.MapNFS4ToErrno(result.Status)
				attributed = true
			}
			item.Completed = false
			continue // failed here, or not reached
		}

		item.Completed = true
		item.Errno = 0
		switch op := ops[idx].(type) {
		case *compound.Read:
			item.Data = op.Data
			item.EOF = op.EOF
		case *compound.GetAttr:
			item.Attrs = op.Result
		}
	}
}
