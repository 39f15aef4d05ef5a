package tc

import (
	"context"
	"fmt"

	"github.com/marmos91/tc4client/internal/protocol/nfs"
	"github.com/marmos91/tc4client/internal/tc4/compound"
	"github.com/marmos91/tc4client/internal/tc4/handle"
	"github.com/marmos91/tc4client/internal/tc4/pathresolve"
	"github.com/marmos91/tc4client/internal/tc4/planner"
)

// ListDir implements tc_listdir: resolves dir once, then pages through
// READDIR with the server-returned cookie/cookieverf until EOF or max
// entries have been collected.
func (c *Client) ListDir(ctx context.Context, dir string, mask AttrMask, max int) ([]DirEntry, error) {
	resolved, err := pathresolve.BuildToLeaf(dir)
	if err != nil {
		return nil, fmt.Errorf("tc4: resolve %q: %w", dir, err)
	}

	getfh := &compound.GetFH{}
	ops := append(resolved, compound.Op(getfh))
	if _, err := c.execute(ctx, "listdir_open", ops); err != nil {
		return nil, err
	}
	dirHandle := handle.NewHandle(getfh.Handle)

	var (
		entries    []DirEntry
		cookie     uint64
		cookieVerf [8]byte
	)

	for max <= 0 || len(entries) < max {
		readdir := &compound.Readdir{
			Cookie:     cookie,
			CookieVerf: cookieVerf,
			DirCount:   uint32(c.cfg.Transport.ReceiveBufferSize),
			MaxCount:   uint32(c.cfg.Transport.ReceiveBufferSize),
			Mask:       mask,
		}
		page := []compound.Op{&compound.PutFH{Handle: dirHandle.Bytes()}, readdir}
		if _, err := c.execute(ctx, "listdir_page", page); err != nil {
			return entries, err
		}

		for _, e := range readdir.Entries {
			entries = append(entries, DirEntry{Name: e.Name, Attrs: e.Attrs})
			if max > 0 && len(entries) >= max {
				return entries, nil
			}
		}

		if readdir.EOF || len(readdir.Entries) == 0 {
			break
		}
		cookie = readdir.Entries[len(readdir.Entries)-1].Cookie
		cookieVerf = readdir.NextVerf
	}

	return entries, nil
}

// Renamev implements tc_renamev: for each pair, resolves the source
// directory chain, SAVEFH, resolves the destination directory chain,
// then RENAMEs the saved (source) name to the destination name. Every
// pair shares one COMPOUND; RENAME needs no OPEN, so no CLOSE is added.
func (c *Client) Renamev(ctx context.Context, pairs []FilePair, txn bool) (Result, error) {
	if err := c.checkBatchSize(txn, len(pairs)); err != nil {
		return Result{}, err
	}

	var ops []compound.Op
	boundaryIndex := make([]int, len(pairs))

	for i, pair := range pairs {
		// Rename pairs are independent of each other: the null-path "reuse
		// the previous item's file" rule is a read/write-batch notion
		// (spec.md §4.7's planner loop), not applicable here, so index 0
		// is passed unconditionally to require a real ref for every pair.
		srcPath, _, err := resolveFile(c, pair.Src, 0)
		if err != nil {
			return Result{}, fmt.Errorf("tc4: pair %d src: %w", i, err)
		}
		dstPath, _, err := resolveFile(c, pair.Dst, 0)
		if err != nil {
			return Result{}, fmt.Errorf("tc4: pair %d dst: %w", i, err)
		}

		srcResolved, err := pathresolve.Build(srcPath)
		if err != nil {
			return Result{}, fmt.Errorf("tc4: pair %d src: %w", i, err)
		}
		dstResolved, err := pathresolve.Build(dstPath)
		if err != nil {
			return Result{}, fmt.Errorf("tc4: pair %d dst: %w", i, err)
		}

		ops = append(ops, srcResolved.Ops...)
		ops = append(ops, &compound.SaveFH{})
		ops = append(ops, dstResolved.Ops...)
		rename := &compound.Rename{OldName: srcResolved.FinalName, NewName: dstResolved.FinalName}
		ops = append(ops, rename)
		boundaryIndex[i] = len(ops) - 1
	}

	return c.executeGrouped(ctx, "renamev", ops, boundaryIndex)
}

// Removev implements tc_removev: one REMOVE per file, sharing a COMPOUND.
func (c *Client) Removev(ctx context.Context, files []FileRef, txn bool) (Result, error) {
	if err := c.checkBatchSize(txn, len(files)); err != nil {
		return Result{}, err
	}

	var ops []compound.Op
	boundaryIndex := make([]int, len(files))

	for i, f := range files {
		path, _, err := resolveFile(c, f, 0)
		if err != nil {
			return Result{}, fmt.Errorf("tc4: file %d: %w", i, err)
		}
		resolved, err := pathresolve.Build(path)
		if err != nil {
			return Result{}, fmt.Errorf("tc4: file %d: %w", i, err)
		}
		ops = append(ops, resolved.Ops...)
		remove := &compound.Remove{Name: resolved.FinalName}
		ops = append(ops, remove)
		boundaryIndex[i] = len(ops) - 1
	}

	return c.executeGrouped(ctx, "removev", ops, boundaryIndex)
}

// Mkdirv implements tc_mkdirv: one CREATE (NF4DIR) per directory, sharing
// a COMPOUND.
func (c *Client) Mkdirv(ctx context.Context, dirs []FileRef, modes []uint32, txn bool) (Result, error) {
	if len(modes) != len(dirs) {
		return Result{}, fmt.Errorf("tc4: mkdirv: %d dirs but %d modes", len(dirs), len(modes))
	}
	if err := c.checkBatchSize(txn, len(dirs)); err != nil {
		return Result{}, err
	}

	var ops []compound.Op
	boundaryIndex := make([]int, len(dirs))

	for i, d := range dirs {
		path, _, err := resolveFile(c, d, 0)
		if err != nil {
			return Result{}, fmt.Errorf("tc4: dir %d: %w", i, err)
		}
		resolved, err := pathresolve.Build(path)
		if err != nil {
			return Result{}, fmt.Errorf("tc4: dir %d: %w", i, err)
		}
		ops = append(ops, resolved.Ops...)
		create := &compound.Create{
			Type: nfs.NF4DIR,
			Name: resolved.FinalName,
			Mask: nfs.Mask{Mode: true},
			Attrs: nfs.Attrs{Mode: modes[i]},
		}
		ops = append(ops, create)
		boundaryIndex[i] = len(ops) - 1
	}

	return c.executeGrouped(ctx, "mkdirv", ops, boundaryIndex)
}

// executeGrouped runs ops as one COMPOUND and attributes FailedOp back to
// the logical item whose ops contain it, via planner.ApplyResult, the same
// scheme used for read/write batches.
func (c *Client) executeGrouped(ctx context.Context, tag string, ops []compound.Op, boundaryIndex []int) (Result, error) {
	result, err := c.execute(ctx, tag, ops)
	if err != nil {
		return Result{}, err
	}

	items := make([]planner.BatchItem, len(boundaryIndex))
	planner.ApplyResult(items, ops, boundaryIndex, result)
	return resultFromItems(items), nil
}
