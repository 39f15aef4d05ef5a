// Package rpc implements the ONC-RPC v2 transport for the TC client: record
// marking framing, XID-based reply correlation, a persistent TCP connection
// with automatic reconnect, and the bounded call-context pool.
package rpc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/marmos91/tc4client/pkg/bufpool"
)

// lastFragmentBit marks the final fragment of an RPC record per RFC 5531
// Section 11 (record marking standard).
const lastFragmentBit = 1 << 31

// MaxFragmentSize rejects absurdly large fragments before allocating a
// buffer for them. (1<<20)+(1<<18) mirrors the limit used by NFS servers
// that cap a single COMPOUND reply well above the largest legitimate
// READ/READDIR payload this client requests.
const MaxFragmentSize = (1 << 20) + (1 << 18)

// FragmentHeader is the 4-byte record-marking header preceding every RPC
// fragment on the wire: a 31-bit length and a high "last fragment" bit.
type FragmentHeader struct {
	IsLast bool
	Length uint32
}

// ReadFragmentHeader reads and decodes one fragment header from r.
func ReadFragmentHeader(r io.Reader) (*FragmentHeader, error) {
	var raw [4]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, fmt.Errorf("read fragment header: %w", err)
	}
	word := binary.BigEndian.Uint32(raw[:])
	return &FragmentHeader{
		IsLast: word&lastFragmentBit != 0,
		Length: word &^ lastFragmentBit,
	}, nil
}

// WriteFragmentHeader encodes and writes a single-fragment (always "last")
// record marking header, since the client never splits an outgoing call
// across multiple fragments.
func WriteFragmentHeader(w io.Writer, length uint32) error {
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], length|lastFragmentBit)
	_, err := w.Write(raw[:])
	return err
}

// ValidateFragmentSize rejects fragments larger than the client is willing
// to buffer, so a misbehaving or compromised server cannot force unbounded
// allocation.
func ValidateFragmentSize(length uint32) error {
	if length > MaxFragmentSize {
		return fmt.Errorf("fragment size %d exceeds maximum %d", length, MaxFragmentSize)
	}
	return nil
}

// ReadRecord reads one full RPC record (possibly multiple fragments) from r,
// returning the concatenated payload.
func ReadRecord(r io.Reader) ([]byte, error) {
	var record []byte
	for {
		hdr, err := ReadFragmentHeader(r)
		if err != nil {
			return nil, err
		}
		if err := ValidateFragmentSize(hdr.Length); err != nil {
			return nil, err
		}

		frag := bufpool.Get(int(hdr.Length))
		_, err = io.ReadFull(r, frag)
		if err != nil {
			bufpool.Put(frag)
			return nil, fmt.Errorf("read fragment body: %w", err)
		}
		record = append(record, frag...)
		bufpool.Put(frag)

		if hdr.IsLast {
			return record, nil
		}
	}
}
