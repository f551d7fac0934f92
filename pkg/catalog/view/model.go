package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

type bracket int

const (
	idle bracket = iota
	inserting
	removing
	resetting
)

func (b bracket) String() string {
	switch b {
	case inserting:
		return "insert"
	case removing:
		return "remove"
	case resetting:
		return "reset"
	default:
		return "idle"
	}
}

// Model exposes a catalog through the Adapter protocol and performs
// mutations with observer notifications around them. Like the catalog it
// wraps, a Model must only be used from the goroutine that owns it.
type Model struct {
	Adapter

	cat       *catalog.Catalog
	observers []Observer
	pending   bracket
}

// NewModel returns a Model over c.
func NewModel(c *catalog.Catalog) *Model {
	return &Model{Adapter: NewAdapter(c), cat: c}
}

// Catalog returns the wrapped catalog for read access. Mutating it directly
// bypasses observer notifications.
func (m *Model) Catalog() *catalog.Catalog { return m.cat }

// Subscribe registers o and returns a function that unregisters it.
func (m *Model) Subscribe(o Observer) func() {
	m.observers = append(m.observers, o)
	return func() {
		for i, existing := range m.observers {
			if existing == o {
				m.observers = append(m.observers[:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

func (m *Model) begin(b bracket) {
	if m.pending != idle {
		panic(fmt.Sprintf("view: %s started during %s", b, m.pending))
	}
	m.pending = b
}

func (m *Model) end(b bracket) {
	if m.pending != b {
		panic(fmt.Sprintf("view: end of %s during %s", b, m.pending))
	}
	m.pending = idle
}

// OnInsert announces that a row is about to appear at row under parent.
// It must be followed by OnInsertDone once the catalog has changed.
func (m *Model) OnInsert(parent catalog.NodeID, row int) {
	m.begin(inserting)
	for _, o := range m.observers {
		o.BeginInsertRows(parent, row, row)
	}
}

// OnInsertDone completes an OnInsert bracket.
func (m *Model) OnInsertDone() {
	m.end(inserting)
	for _, o := range m.observers {
		o.EndInsertRows()
	}
}

// OnRemove announces that the row at row under parent is about to go away.
// It must be followed by OnRemoveDone once the catalog has changed.
func (m *Model) OnRemove(parent catalog.NodeID, row int) {
	m.begin(removing)
	for _, o := range m.observers {
		o.BeginRemoveRows(parent, row, row)
	}
}

// OnRemoveDone completes an OnRemove bracket.
func (m *Model) OnRemoveDone() {
	m.end(removing)
	for _, o := range m.observers {
		o.EndRemoveRows()
	}
}

func (m *Model) beginReset() {
	m.begin(resetting)
	for _, o := range m.observers {
		o.BeginReset()
	}
}

func (m *Model) endReset() {
	m.end(resetting)
	for _, o := range m.observers {
		o.EndReset()
	}
}

// Insert creates a node under parent (catalog.NoNode means the root).
// Observers see a row insertion when the node is visible under a visible
// parent, a reset when the node drags hidden ancestors into view, and
// nothing when the filter hides it.
func (m *Model) Insert(name string, parent catalog.NodeID, size int64, kind catalog.Kind) (catalog.NodeID, error) {
	if parent == catalog.NoNode {
		parent = catalog.RootID
	}
	if err := m.cat.CheckCreate(name, parent, size, kind); err != nil {
		return catalog.NoNode, err
	}
	p, _ := m.cat.Node(parent)

	switch {
	case !m.cat.Matches(name):
		return m.cat.Create(name, parent, size, kind)
	case p.Visible():
		row := m.cat.PrecedingVisible(parent, name, kind)
		m.OnInsert(parent, row)
		defer m.OnInsertDone()
		return m.cat.Create(name, parent, size, kind)
	default:
		m.beginReset()
		defer m.endReset()
		return m.cat.Create(name, parent, size, kind)
	}
}

// InsertPath creates the node named by an object key and any missing
// directories on the way, notifying observers for each. A trailing
// delimiter names a directory. An existing directory is returned as is; an
// existing file is returned with catalog.ErrDuplicateName.
func (m *Model) InsertPath(key string, size int64) (catalog.NodeID, error) {
	parts := types.SplitPath(key)
	isDir := strings.HasSuffix(key, types.Delimiter)

	parent := catalog.RootID
	for i, part := range parts {
		last := i == len(parts)-1
		kind := catalog.Directory
		if last && !isDir {
			kind = catalog.File
		}

		if existing, ok := m.cat.ChildNamed(parent, part); ok {
			n, _ := m.cat.Node(existing)
			if n.IsDir() && kind == catalog.Directory {
				parent = existing
				continue
			}
			if last {
				return existing, fmt.Errorf("%w: %q", catalog.ErrDuplicateName, key)
			}
			return catalog.NoNode, fmt.Errorf("%w: %q is a file", catalog.ErrInvalidParent, types.JoinPath(parts[:i+1]...))
		}

		id, err := m.Insert(part, parent, size, kind)
		if err != nil {
			return catalog.NoNode, err
		}
		parent = id
	}
	return parent, nil
}

// Remove deletes the node and its subtree, bracketing the removal of its row
// when it is visible.
func (m *Model) Remove(id catalog.NodeID) (catalog.Change, error) {
	if id == catalog.RootID {
		return catalog.Change{}, catalog.ErrCannotDeleteRoot
	}
	pos, visible := m.PositionOf(id)
	if !visible {
		return m.cat.Delete(id)
	}
	m.OnRemove(pos.Parent, pos.Row)
	defer m.OnRemoveDone()
	return m.cat.Delete(id)
}

// SetFilter applies a new filter, bracketed by a reset when anything changes.
func (m *Model) SetFilter(text string) bool {
	if text == m.cat.Filter() {
		return false
	}
	m.beginReset()
	defer m.endReset()
	return m.cat.SetFilter(text)
}

// Load replaces the catalog contents, bracketed by a reset.
func (m *Model) Load(r io.Reader) error {
	m.beginReset()
	defer m.endReset()
	return m.cat.Load(r)
}

// Save writes the catalog. Saving renumbers ids, so observers holding ids
// see a reset around it.
func (m *Model) Save(w io.Writer) error {
	m.beginReset()
	defer m.endReset()
	return m.cat.Save(w)
}

// SaveFile writes the catalog to path, bracketed by a reset.
func (m *Model) SaveFile(path string) error {
	m.beginReset()
	defer m.endReset()
	return m.cat.SaveFile(path)
}
