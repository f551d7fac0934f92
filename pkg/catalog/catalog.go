// Package catalog provides the in-memory tree mirroring the contents of a
// remote bucket.
//
// Nodes live in an arena indexed by NodeID. The Catalog is the only owner
// and mutator of the node graph; parent and child relations are stored as
// ids. A Catalog is not safe for concurrent use: exactly one goroutine may
// mutate it, and background workers hand their results back to that
// goroutine instead of touching the catalog themselves.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/logging"
)

var logger = logging.Get("catalog")

// Catalog owns every node of the tree.
type Catalog struct {
	// nodes is indexed by id. Deleted slots are nil until the next save.
	nodes []*entry
	live  int
	dirty bool

	filter string
	folded string
	fold   cases.Caser
}

// Change describes the structural effect of a mutation.
type Change struct {
	// Parent is the parent the removed subtree was detached from.
	Parent NodeID

	// Removed lists every removed id, the subtree root first.
	Removed []NodeID
}

// New returns a catalog holding only the synthetic root.
func New() *Catalog {
	c := &Catalog{fold: cases.Fold()}
	c.reset([]*entry{newRoot()})
	return c
}

func newRoot() *entry {
	return &entry{id: RootID, kind: Directory, parent: NoNode, visible: true}
}

func (c *Catalog) reset(nodes []*entry) {
	c.nodes = nodes
	c.live = len(nodes)
	c.dirty = false
}

// Root returns the root id.
func (c *Catalog) Root() NodeID { return RootID }

// Len returns the number of live nodes, the root included.
func (c *Catalog) Len() int { return c.live }

// IsDirty reports whether a node was created or deleted since the last
// successful load or save.
func (c *Catalog) IsDirty() bool { return c.dirty }

// Node returns a handle to the node with the given id.
func (c *Catalog) Node(id NodeID) (Node, bool) {
	e := c.get(id)
	if e == nil {
		return Node{}, false
	}
	return Node{c: c, e: e}, true
}

// RootNode returns a handle to the root.
func (c *Catalog) RootNode() Node {
	return Node{c: c, e: c.nodes[RootID]}
}

func (c *Catalog) get(id NodeID) *entry {
	if id < 0 || int(id) >= len(c.nodes) {
		return nil
	}
	return c.nodes[id]
}

// Create adds a node named name under parent and returns its id. Directory
// sizes are derived, so size is ignored for directories.
func (c *Catalog) Create(name string, parent NodeID, size int64, kind Kind) (NodeID, error) {
	if err := c.CheckCreate(name, parent, size, kind); err != nil {
		return NoNode, err
	}
	p := c.nodes[parent]
	if kind == Directory {
		size = 0
	}

	e := &entry{
		id:     NodeID(len(c.nodes)),
		name:   name,
		kind:   kind,
		size:   size,
		parent: NoNode,
	}
	c.nodes = append(c.nodes, e)
	c.live++
	c.setParent(e, p)
	c.addChild(p, e)
	if c.Matches(name) {
		c.setVisible(e, true)
	}
	c.dirty = true

	return e.id, nil
}

// CheckCreate reports the error Create would return for the same arguments,
// without changing the catalog.
func (c *Catalog) CheckCreate(name string, parent NodeID, size int64, kind Kind) error {
	p := c.get(parent)
	if p == nil || p.kind != Directory {
		return fmt.Errorf("%w: %d", ErrInvalidParent, parent)
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	if c.childNamed(p, name) != nil {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	if kind == File && size < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return nil
}

// Delete removes the node and its entire subtree.
func (c *Catalog) Delete(id NodeID) (Change, error) {
	if id == RootID {
		return Change{}, ErrCannotDeleteRoot
	}
	e := c.get(id)
	if e == nil {
		return Change{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	change := Change{Parent: e.parent}
	if p := c.get(e.parent); p != nil {
		c.removeChild(p, e)
	}

	stack := []*entry{e}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		change.Removed = append(change.Removed, cur.id)
		for i := len(cur.children) - 1; i >= 0; i-- {
			if child := c.get(cur.children[i]); child != nil {
				stack = append(stack, child)
			}
		}
		c.nodes[cur.id] = nil
		c.live--
	}
	c.dirty = true

	logger.Debug("deleted subtree", "id", id, "removed", len(change.Removed))
	return change, nil
}

// ValidateName reports whether name can be stored as a node name.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	case strings.Contains(name, "/"):
		return fmt.Errorf("%w: %q contains a delimiter", ErrInvalidName, name)
	case strings.ContainsAny(name, "\r\n"):
		return fmt.Errorf("%w: %q contains a line break", ErrInvalidName, name)
	}
	return nil
}

// ChildNamed returns the child of parent with exactly the given name.
func (c *Catalog) ChildNamed(parent NodeID, name string) (NodeID, bool) {
	p := c.get(parent)
	if p == nil {
		return NoNode, false
	}
	if e := c.childNamed(p, name); e != nil {
		return e.id, true
	}
	return NoNode, false
}

func (c *Catalog) childNamed(p *entry, name string) *entry {
	for _, id := range p.children {
		if e := c.get(id); e != nil && e.name == name {
			return e
		}
	}
	return nil
}

// less reports whether a sorts before b among siblings: directories first,
// then by case-sensitive name.
func less(a, b *entry) bool {
	if a.kind != b.kind {
		return a.kind == Directory
	}
	return a.name < b.name
}

// insertionIndex returns the index among the children of p at which target
// would be inserted.
func (c *Catalog) insertionIndex(p *entry, target *entry) int {
	return sort.Search(len(p.children), func(i int) bool {
		return !less(c.nodes[p.children[i]], target)
	})
}

func (c *Catalog) setParent(e, p *entry) {
	e.parent = p.id
}

func (c *Catalog) addChild(p, e *entry) {
	i := c.insertionIndex(p, e)
	p.children = append(p.children, NoNode)
	copy(p.children[i+1:], p.children[i:])
	p.children[i] = e.id
}

func (c *Catalog) removeChild(p, e *entry) {
	for i, id := range p.children {
		if id == e.id {
			p.children = append(p.children[:i], p.children[i+1:]...)
			return
		}
	}
}

func sortChildren(nodes []*entry, p *entry) {
	sort.Slice(p.children, func(i, j int) bool {
		return less(nodes[p.children[i]], nodes[p.children[j]])
	})
}

// PrecedingVisible returns how many visible children of parent would sort
// before a node with the given name and kind. It is the row such a node takes
// among the visible rows of parent.
func (c *Catalog) PrecedingVisible(parent NodeID, name string, kind Kind) int {
	p := c.get(parent)
	if p == nil {
		return 0
	}
	target := &entry{name: name, kind: kind}
	row := 0
	for _, id := range p.children {
		child := c.nodes[id]
		if !less(child, target) {
			break
		}
		if child.visible {
			row++
		}
	}
	return row
}

// compact renumbers live nodes densely, keeping table order. The root stays 0.
func (c *Catalog) compact() {
	if c.live == len(c.nodes) {
		return
	}
	remap := make([]NodeID, len(c.nodes))
	nodes := make([]*entry, 0, c.live)
	for i, e := range c.nodes {
		if e == nil {
			remap[i] = NoNode
			continue
		}
		remap[i] = NodeID(len(nodes))
		nodes = append(nodes, e)
	}
	for _, e := range nodes {
		e.id = remap[e.id]
		if e.parent != NoNode {
			e.parent = remap[e.parent]
		}
		for i, child := range e.children {
			e.children[i] = remap[child]
		}
	}
	logger.Debug("renumbered catalog", "before", len(c.nodes), "after", len(nodes))
	c.nodes = nodes
}
