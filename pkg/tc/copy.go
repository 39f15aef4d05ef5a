package tc

import (
	"context"
	"fmt"
	"syscall"
)

// Copyv implements tc_copyv the way the original client did on NFSv4.0
// (no server-side OP_COPY until 4.2, which this client's wire protocol
// doesn't target): each extent is read from Src and written to Dst in
// chunks of at most SendBufferSize, via ordinary Read/Write batches.
// is_transaction only governs whether each extent's own read+write pair
// is checked against MaxCompoundOps; it is not atomic across extents,
// matching the original's per-extent read-then-write loop.
func (c *Client) Copyv(ctx context.Context, pairs []ExtentPair, txn bool) (Result, error) {
	chunkSize := uint64(c.cfg.Transport.SendBufferSize)
	if chunkSize == 0 {
		chunkSize = 1 << 20
	}

	for i, pair := range pairs {
		remaining := pair.Length
		srcOffset := pair.SrcOffset
		dstOffset := pair.DstOffset

		for remaining > 0 {
			length := chunkSize
			if length > remaining {
				length = remaining
			}

			readIov := []IOVec{{File: pair.Src, Offset: srcOffset, Length: uint32(length)}}
			if _, err := c.Read(ctx, readIov, txn); err != nil {
				return Result{}, fmt.Errorf("tc4: copyv pair %d: read: %w", i, err)
			}
			if !readIov[0].OK {
				return Result{Okay: false, Index: i, Errno: syscall.Errno(readIov[0].Errno)}, nil
			}

			writeIov := []IOVec{{File: pair.Dst, Offset: dstOffset, Data: readIov[0].Data}}
			if _, err := c.Write(ctx, writeIov, txn); err != nil {
				return Result{}, fmt.Errorf("tc4: copyv pair %d: write: %w", i, err)
			}
			if !writeIov[0].OK {
				return Result{Okay: false, Index: i, Errno: syscall.Errno(writeIov[0].Errno)}, nil
			}

			written := uint64(len(readIov[0].Data))
			if written == 0 {
				break // source EOF before the requested length was satisfied
			}
			remaining -= written
			srcOffset += written
			dstOffset += written
		}
	}

	return Result{Okay: true, Index: -1}, nil
}

// WriteADB implements tc_write_adb's call shape as a compatibility shim:
// Application Data Blocks (NFSv4.2 Section 18) are out of scope for this
// client's NFSv4.0 wire protocol, so each pattern is rendered into a
// plain byte buffer client-side and sent as an ordinary WRITE.
func (c *Client) WriteADB(ctx context.Context, patterns []ADB, txn bool) (Result, error) {
	iov := make([]IOVec, len(patterns))
	for i, p := range patterns {
		iov[i] = IOVec{File: p.File, Offset: p.Offset, Data: renderADB(p)}
	}
	return c.Write(ctx, iov, txn)
}

// renderADB repeats Pattern (starting PatternOffset bytes into the
// rendered buffer) BlockCount times across a buffer of PatternSize bytes
// per block, matching the layout tc_adb describes.
func renderADB(p ADB) []byte {
	if len(p.Pattern) == 0 || p.PatternSize == 0 || p.BlockCount == 0 {
		return nil
	}

	buf := make([]byte, p.PatternSize*p.BlockCount)
	for block := uint64(0); block < p.BlockCount; block++ {
		base := block*p.PatternSize + p.PatternOffset
		for i := 0; i < len(p.Pattern) && base+uint64(i) < uint64(len(buf)); i++ {
			buf[base+uint64(i)] = p.Pattern[i]
		}
	}
	return buf
}
