package catalog

import (
	"strings"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

// NodeID identifies a node within a Catalog. Ids are offsets into the
// catalog's node table.
type NodeID int

const (
	// RootID is the id of the root directory.
	RootID NodeID = 0

	// NoNode is the "no node" sentinel. It is the parent of the root.
	NoNode NodeID = -1
)

// Kind distinguishes directories from files.
type Kind int

const (
	Directory Kind = iota
	File
)

func (k Kind) String() string {
	switch k {
	case Directory:
		return "directory"
	case File:
		return "file"
	default:
		return "unknown"
	}
}

// char is the kind character used by the flat format.
func (k Kind) char() byte {
	if k == Directory {
		return 'd'
	}
	return 'f'
}

// entry is the arena record of a node. Relations are ids, never pointers.
type entry struct {
	id       NodeID
	name     string
	kind     Kind
	size     int64
	parent   NodeID
	children []NodeID
	visible  bool
}

// Node is a read-only handle to a catalog node. Handles stay valid until
// the node is deleted or the catalog is saved or loaded.
type Node struct {
	c *Catalog
	e *entry
}

// ID returns the node id.
func (n Node) ID() NodeID { return n.e.id }

// Name returns the node name. The root has an empty name.
func (n Node) Name() string { return n.e.name }

// Kind returns the node kind.
func (n Node) Kind() Kind { return n.e.kind }

// IsDir reports whether the node is a directory.
func (n Node) IsDir() bool { return n.e.kind == Directory }

// IsRoot reports whether the node is the catalog root.
func (n Node) IsRoot() bool { return n.e.id == RootID }

// Visible reports whether the node matches the active filter.
func (n Node) Visible() bool { return n.e.visible }

// Parent returns the parent id. The root has no parent.
func (n Node) Parent() (NodeID, bool) {
	return n.e.parent, n.e.parent != NoNode
}

// Children returns a snapshot of the ordered child ids, including children
// hidden by the filter.
func (n Node) Children() []NodeID {
	out := make([]NodeID, len(n.e.children))
	copy(out, n.e.children)
	return out
}

// FullPath returns the "/"-joined names from below the root down to the node.
func (n Node) FullPath() string {
	var names []string
	for e := n.e; e != nil && e.id != RootID; e = n.c.get(e.parent) {
		names = append(names, e.name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, types.Delimiter)
}

// Key returns the object key of the node: its full path, with a trailing
// delimiter for directories.
func (n Node) Key() string {
	p := n.FullPath()
	if n.IsDir() && p != "" {
		p += types.Delimiter
	}
	return p
}

// Size returns the visible size: the stored size of a visible file, 0 for a
// hidden one, and for a directory the sum over its visible children.
func (n Node) Size() int64 { return n.c.size(n.e) }

// TotalSize returns the size ignoring the filter.
func (n Node) TotalSize() int64 { return n.c.totalSize(n.e) }

// FileCount returns the number of visible files in the subtree.
func (n Node) FileCount() int { return n.c.fileCount(n.e) }

// DirectoryCount returns the number of visible directories in the subtree,
// the node itself included.
func (n Node) DirectoryCount() int { return n.c.directoryCount(n.e) }

// VisibleChildCount returns the number of immediate children that are visible.
func (n Node) VisibleChildCount() int {
	count := 0
	for _, id := range n.e.children {
		if child := n.c.get(id); child != nil && child.visible {
			count++
		}
	}
	return count
}

// Depth returns the distance from the root (root = 0).
func (n Node) Depth() int {
	depth := 0
	for e := n.c.get(n.e.parent); e != nil; e = n.c.get(e.parent) {
		depth++
	}
	return depth
}
