package tc

import (
	"context"
	"fmt"
	"syscall"

	"github.com/marmos91/tc4client/internal/tc4/handle"
	"github.com/marmos91/tc4client/internal/tc4/planner"
)

// resolveFile resolves f. A nil FileRef means "reuse the previous item's
// file" (spec.md §3/§4.7): do_ktcread/do_ktcwrite treat a null path as
// "just send read as the current filehandle has the file" for every item
// but the first, where a null path/handle is EINVAL since there is nothing
// yet to reuse. The empty ("", zero Handle) result is exactly what
// planner.Plan recognizes as a reused item.
func resolveFile(c *Client, f FileRef, index int) (string, handle.Handle, error) {
	if f == nil {
		if index == 0 {
			return "", handle.Handle{}, syscall.EINVAL
		}
		return "", handle.Handle{}, nil
	}
	return f.resolve(c)
}

// clampAndFilterReads settles every zero-length element of iov in place
// (read_amount=0, is_eof=false, no RPC) and clamps every other element's
// Length down to maxRead (0 meaning unbounded), returning the indices of
// the elements that still need to go into a COMPOUND.
func clampAndFilterReads(iov []IOVec, maxRead uint32) []int {
	active := make([]int, 0, len(iov))
	for i := range iov {
		if iov[i].Length == 0 {
			iov[i].OK = true
			iov[i].Errno = 0
			iov[i].Data = nil
			iov[i].IsEOF = false
			continue
		}
		if maxRead > 0 && iov[i].Length > maxRead {
			iov[i].Length = maxRead
		}
		active = append(active, i)
	}
	return active
}

// Read implements tc_readv: reads iov[i].Length bytes at iov[i].Offset
// from iov[i].File for every element, in one COMPOUND, and writes the
// data/EOF results back into iov in place.
//
// A zero-length element returns immediately (read_amount=0, is_eof=false)
// without occupying a slot in the COMPOUND; a length beyond the server's
// configured maximum read size is silently clamped, per spec.md §8's
// boundary behaviours.
func (c *Client) Read(ctx context.Context, iov []IOVec, txn bool) (Result, error) {
	if err := c.checkBatchSize(txn, len(iov)); err != nil {
		return Result{}, err
	}

	active := clampAndFilterReads(iov, uint32(c.cfg.Planner.MaxReadSize))
	if len(active) == 0 {
		return Result{Okay: true, Index: -1}, nil
	}

	activeIOV := make([]IOVec, len(active))
	for j, i := range active {
		activeIOV[j] = iov[i]
	}

	items, err := c.buildItems(activeIOV, planner.KindRead, func(item *planner.BatchItem, v *IOVec) {
		item.Offset = v.Offset
		item.Length = v.Length
	})
	if err != nil {
		return Result{}, err
	}

	result, err := c.runBatch(ctx, "read", items)
	if err != nil {
		return Result{}, err
	}

	for j, i := range active {
		iov[i].OK = items[j].Completed
		iov[i].Errno = int32(items[j].Errno)
		iov[i].Data = items[j].Data
		iov[i].IsEOF = items[j].EOF
	}
	if !result.Okay {
		result.Index = active[result.Index]
	}
	return result, nil
}

// Write implements tc_writev: writes iov[i].Data at iov[i].Offset to
// iov[i].File for every element, in one COMPOUND.
func (c *Client) Write(ctx context.Context, iov []IOVec, txn bool) (Result, error) {
	if err := c.checkBatchSize(txn, len(iov)); err != nil {
		return Result{}, err
	}

	items, err := c.buildItems(iov, planner.KindWrite, func(item *planner.BatchItem, v *IOVec) {
		item.Offset = v.Offset
		item.Data = v.Data
	})
	if err != nil {
		return Result{}, err
	}

	result, err := c.runBatch(ctx, "write", items)
	if err != nil {
		return Result{}, err
	}

	for i := range iov {
		iov[i].OK = items[i].Completed
		iov[i].Errno = int32(items[i].Errno)
	}
	return result, nil
}

// GetAttrs implements tc_getattrsv.
func (c *Client) GetAttrs(ctx context.Context, attrs []Attrs, txn bool) (Result, error) {
	if err := c.checkBatchSize(txn, len(attrs)); err != nil {
		return Result{}, err
	}

	items := make([]planner.BatchItem, len(attrs))
	for i := range attrs {
		path, h, err := resolveFile(c, attrs[i].File, i)
		if err != nil {
			return Result{}, fmt.Errorf("tc4: item %d: %w", i, err)
		}
		items[i] = planner.BatchItem{Kind: planner.KindGetAttr, Path: path, Handle: h, Mask: attrs[i].Mask}
	}

	result, err := c.runBatch(ctx, "getattrs", items)
	if err != nil {
		return Result{}, err
	}

	for i := range attrs {
		attrs[i].OK = items[i].Completed
		attrs[i].Errno = int32(items[i].Errno)
		attrs[i].Attrs = items[i].Attrs
	}
	return result, nil
}

// SetAttrs implements tc_setattrsv.
func (c *Client) SetAttrs(ctx context.Context, attrs []Attrs, txn bool) (Result, error) {
	if err := c.checkBatchSize(txn, len(attrs)); err != nil {
		return Result{}, err
	}

	items := make([]planner.BatchItem, len(attrs))
	for i := range attrs {
		path, h, err := resolveFile(c, attrs[i].File, i)
		if err != nil {
			return Result{}, fmt.Errorf("tc4: item %d: %w", i, err)
		}
		items[i] = planner.BatchItem{Kind: planner.KindSetAttr, Path: path, Handle: h, Mask: attrs[i].Mask, Attrs: attrs[i].Attrs}
	}

	result, err := c.runBatch(ctx, "setattrs", items)
	if err != nil {
		return Result{}, err
	}

	for i := range attrs {
		attrs[i].OK = items[i].Completed
		attrs[i].Errno = int32(items[i].Errno)
	}
	return result, nil
}

// buildItems resolves each IOVec's FileRef and applies fill to populate
// the kind-specific fields of the resulting BatchItem.
func (c *Client) buildItems(iov []IOVec, kind planner.Kind, fill func(item *planner.BatchItem, v *IOVec)) ([]planner.BatchItem, error) {
	items := make([]planner.BatchItem, len(iov))
	for i := range iov {
		path, h, err := resolveFile(c, iov[i].File, i)
		if err != nil {
			return nil, fmt.Errorf("tc4: item %d: %w", i, err)
		}
		items[i] = planner.BatchItem{Kind: kind, Path: path, Handle: h}
		fill(&items[i], &iov[i])
	}
	return items, nil
}

// runBatch plans items into one COMPOUND, executes it, and applies the
// result back into items, returning the tc_res-shaped overall Result.
func (c *Client) runBatch(ctx context.Context, tag string, items []planner.BatchItem) (Result, error) {
	ops, boundaryIndex, err := planner.Plan(items, c.clientIDOrZero(), c.ownerName)
	if err != nil {
		return Result{}, err
	}

	result, err := c.execute(ctx, tag, ops)
	if err != nil {
		return Result{}, err
	}

	planner.ApplyResult(items, ops, boundaryIndex, result)
	return resultFromItems(items), nil
}
