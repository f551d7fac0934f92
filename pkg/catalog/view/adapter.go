// Package view maps a catalog onto the row addressing used by hierarchical
// views: rows count only the visible children of a node. The Model wraps
// catalog mutations so views observing it see every structural change
// bracketed by begin and end notifications.
package view

import (
	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog"
)

// Position addresses a node as the row-th visible child of Parent. The root
// is at Position{Parent: catalog.NoNode, Row: 0}.
type Position struct {
	Parent catalog.NodeID
	Row    int
}

// Adapter is the row-addressing protocol a hierarchical view consumes.
// Passing catalog.NoNode as a node means the root.
type Adapter interface {
	RowCount(node catalog.NodeID) int
	ChildAt(node catalog.NodeID, row int) (catalog.NodeID, bool)
	PositionOf(node catalog.NodeID) (Position, bool)
}

// Observer is notified around every structural change made through a Model.
type Observer interface {
	BeginInsertRows(parent catalog.NodeID, first, last int)
	EndInsertRows()
	BeginRemoveRows(parent catalog.NodeID, first, last int)
	EndRemoveRows()
	// BeginReset and EndReset bracket changes too broad to describe as row
	// ranges, such as a new filter.
	BeginReset()
	EndReset()
}

// rows implements Adapter over a catalog.
type rows struct {
	cat *catalog.Catalog
}

// NewAdapter returns an Adapter reading c.
func NewAdapter(c *catalog.Catalog) Adapter {
	return rows{cat: c}
}

func (r rows) resolve(id catalog.NodeID) (catalog.Node, bool) {
	if id == catalog.NoNode {
		return r.cat.RootNode(), true
	}
	return r.cat.Node(id)
}

// RowCount returns the number of visible children of node.
func (r rows) RowCount(node catalog.NodeID) int {
	n, ok := r.resolve(node)
	if !ok || !n.Visible() {
		return 0
	}
	return n.VisibleChildCount()
}

// ChildAt returns the row-th visible child of node.
func (r rows) ChildAt(node catalog.NodeID, row int) (catalog.NodeID, bool) {
	n, ok := r.resolve(node)
	if !ok || row < 0 || !n.Visible() {
		return catalog.NoNode, false
	}
	for _, id := range n.Children() {
		child, _ := r.cat.Node(id)
		if !child.Visible() {
			continue
		}
		if row == 0 {
			return id, true
		}
		row--
	}
	return catalog.NoNode, false
}

// PositionOf returns the parent and visible row of node.
func (r rows) PositionOf(node catalog.NodeID) (Position, bool) {
	n, ok := r.resolve(node)
	if !ok {
		return Position{}, false
	}
	parent, hasParent := n.Parent()
	if !hasParent {
		return Position{Parent: catalog.NoNode, Row: 0}, true
	}
	if !n.Visible() {
		return Position{}, false
	}
	p, _ := r.cat.Node(parent)
	row := 0
	for _, id := range p.Children() {
		if id == n.ID() {
			return Position{Parent: parent, Row: row}, true
		}
		if child, _ := r.cat.Node(id); child.Visible() {
			row++
		}
	}
	return Position{}, false
}
