// Package pathresolve turns a slash-separated path into the PUTROOTFH +
// LOOKUP chain a COMPOUND needs to reach the parent of the final
// component, grounded on the original tc_client's construct_lookup: it
// walks every component but the last with LOOKUP, leaving the last
// component's name for whatever operation (OPEN, REMOVE, RENAME, CREATE)
// needs to act on it directly.
package pathresolve

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/marmos91/tc4client/internal/tc4/compound"
)

// Resolved is the result of splitting a path into a lookup chain and a
// final component.
type Resolved struct {
	// Ops is PUTROOTFH followed by one LOOKUP per path component except
	// the last.
	Ops []compound.Op
	// FinalName is the last path component, the one the caller's own op
	// operates on directly (e.g. "file.txt" in "/a/b/file.txt").
	FinalName string
}

// Build splits path on "/" and produces the lookup chain plus the final
// component name. A bare filename with no "/" resolves to just
// PUTROOTFH with FinalName set to the whole string (the object is a
// direct child of the pseudo-root).
func Build(path string) (*Resolved, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}

	components := strings.Split(strings.Trim(path, "/"), "/")
	var clean []string
	for _, c := range components {
		if c == "" {
			continue
		}
		if c == ".." {
			// construct_lookup rejects ".." outright (handle.c): surfaced to
			// the caller as EACCES, matching spec's boundary behaviour, not
			// a generic parse error.
			return nil, fmt.Errorf("path %q contains a \"..\" component: %w", path, syscall.EACCES)
		}
		clean = append(clean, c)
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("path %q resolves to no components", path)
	}

	ops := []compound.Op{compound.PutRootFH{}}
	for _, name := range clean[:len(clean)-1] {
		ops = append(ops, &compound.Lookup{Name: name})
	}

	return &Resolved{Ops: ops, FinalName: clean[len(clean)-1]}, nil
}

// BuildToLeaf is like Build but also resolves the final component with
// LOOKUP, for operations (GETATTR, READDIR) that
// need the current filehandle to already BE the target rather than its
// parent.
func BuildToLeaf(path string) ([]compound.Op, error) {
	resolved, err := Build(path)
	if err != nil {
		return nil, err
	}
	return append(resolved.Ops, &compound.Lookup{Name: resolved.FinalName}), nil
}
