// Package handle defines the opaque NFSv4 filehandle type this client
// passes around instead of re-resolving a path on every operation, plus
// the small bundle of state (cached attributes, open stateid) the planner
// and public API attach to one.
package handle

import (
	"encoding/hex"

	"github.com/marmos91/tc4client/internal/protocol/nfs"
)

// Handle is an opaque NFSv4 filehandle (nfs_fh4). Per RFC 7530 Section 4,
// clients must treat its contents as opaque; only equality and size
// matter here, never interpretation.
type Handle struct {
	raw []byte
}

// NewHandle wraps raw filehandle bytes. It copies raw so the caller's
// buffer (often reused across COMPOUND replies) can't alias it.
func NewHandle(raw []byte) Handle {
	h := Handle{raw: make([]byte, len(raw))}
	copy(h.raw, raw)
	return h
}

// Bytes returns the handle's opaque wire representation.
func (h Handle) Bytes() []byte { return h.raw }

// IsZero reports whether this Handle carries no filehandle at all (the
// zero value, used as a sentinel for "not yet resolved").
func (h Handle) IsZero() bool { return len(h.raw) == 0 }

// Equal compares two handles by their opaque bytes.
func (h Handle) Equal(other Handle) bool {
	if len(h.raw) != len(other.raw) {
		return false
	}
	for i := range h.raw {
		if h.raw[i] != other.raw[i] {
			return false
		}
	}
	return true
}

// String renders the handle as hex for logging; the bytes themselves have
// no meaning to print.
func (h Handle) String() string {
	return hex.EncodeToString(h.raw)
}

// Stateid is the 16-byte NFSv4 stateid4 (4-byte seqid + 12-byte other)
// associated with one open-owner's OPEN on a Handle.
type Stateid [16]byte

// IsNoState reports whether this is the no-state optimization sentinel:
// all bits set, the stateid a CLOSE carries when no server-issued stateid
// is tracked for it (spec.md's CLOSE-no-state optimization).
func (s Stateid) IsNoState() bool {
	for _, b := range s {
		if b != 0xFF {
			return false
		}
	}
	return true
}

// NoStateSentinel is the Stateid value the planner's CLOSE-no-state ops
// carry in place of a server-issued stateid.
var NoStateSentinel = func() Stateid {
	var s Stateid
	for i := range s {
		s[i] = 0xFF
	}
	return s
}()

// Ref bundles a resolved Handle with the attributes fetched alongside it
// (so a batch item that already did GETATTR doesn't need to ask again)
// and, once opened, the stateid guarding subsequent READ/WRITE/SETATTR
// calls against that open.
type Ref struct {
	Handle  Handle
	Attrs   nfs.Attrs
	Stateid Stateid
}
