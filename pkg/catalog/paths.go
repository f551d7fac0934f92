package catalog

import (
	"fmt"
	"strings"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

// FindByPath resolves a "/"-separated path relative to the root. A trailing
// delimiter is ignored and the empty path resolves to the root.
func (c *Catalog) FindByPath(path string) (NodeID, bool) {
	cur := c.nodes[RootID]
	for _, part := range types.SplitPath(path) {
		if cur.kind != Directory {
			return NoNode, false
		}
		cur = c.childNamed(cur, part)
		if cur == nil {
			return NoNode, false
		}
	}
	return cur.id, true
}

// CreatePath creates the node named by an object key, creating any missing
// intermediate directories. A key with a trailing delimiter names a directory.
// It returns the id of the final node and the ids created, in creation order.
// An existing directory is returned as is; an existing file is a
// ErrDuplicateName.
func (c *Catalog) CreatePath(key string, size int64) (NodeID, []NodeID, error) {
	parts := types.SplitPath(key)
	if len(parts) == 0 {
		return RootID, nil, nil
	}
	isDir := strings.HasSuffix(key, types.Delimiter)

	var created []NodeID
	parent := RootID
	for i, part := range parts {
		last := i == len(parts)-1
		kind := Directory
		if last && !isDir {
			kind = File
		}

		if existing, ok := c.ChildNamed(parent, part); ok {
			e := c.get(existing)
			if e.kind == Directory && kind == Directory {
				parent = existing
				continue
			}
			if last {
				return existing, created, fmt.Errorf("%w: %q", ErrDuplicateName, key)
			}
			return NoNode, created, fmt.Errorf("%w: %q is a file", ErrInvalidParent, types.JoinPath(parts[:i+1]...))
		}

		id, err := c.Create(part, parent, size, kind)
		if err != nil {
			return NoNode, created, err
		}
		created = append(created, id)
		parent = id
	}
	return parent, created, nil
}

// FromListing builds a catalog from a flat object listing such as the one
// returned by a bucket list call. Entries that conflict with earlier ones
// (a key used both as a file and as a directory prefix, or a repeated file
// key) are skipped and returned.
func FromListing(entries []types.Entry) (*Catalog, []types.Entry) {
	c := New()
	var skipped []types.Entry
	for _, en := range entries {
		if _, _, err := c.CreatePath(en.Path, en.Size); err != nil {
			logger.Warn("skipping listing entry", "key", en.Path, "err", err)
			skipped = append(skipped, en)
		}
	}
	logger.Info("catalog built from listing", "entries", len(entries), "nodes", c.Len(), "skipped", len(skipped))
	return c, skipped
}

// Walk visits the visible subtrees rooted at ids depth-first, parents before
// children. Nested selections are visited once. An empty selection walks the
// root's children. Returning a non-nil error from fn stops the walk.
func (c *Catalog) Walk(ids []NodeID, fn func(Node) error) error {
	var roots []*entry
	if len(ids) == 0 {
		for _, id := range c.nodes[RootID].children {
			roots = append(roots, c.nodes[id])
		}
	} else {
		roots = c.outermost(ids)
	}

	var visit func(e *entry) error
	visit = func(e *entry) error {
		if !e.visible {
			return nil
		}
		if e.id != RootID {
			if err := fn(Node{c: c, e: e}); err != nil {
				return err
			}
		}
		for _, id := range e.children {
			if err := visit(c.nodes[id]); err != nil {
				return err
			}
		}
		return nil
	}

	for _, e := range roots {
		if err := visit(e); err != nil {
			return err
		}
	}
	return nil
}

// Collect returns the (path, size) pairs of a visible depth-first walk of
// ids. With fullPaths the path is the object key; otherwise it is the node
// name. Directory paths end in the delimiter either way.
func (c *Catalog) Collect(ids []NodeID, fullPaths bool) []types.Entry {
	var out []types.Entry
	_ = c.Walk(ids, func(n Node) error {
		p := n.Name()
		if fullPaths {
			p = n.FullPath()
		}
		if n.IsDir() {
			p += types.Delimiter
		}
		out = append(out, types.Entry{Path: p, Size: n.Size()})
		return nil
	})
	return out
}
