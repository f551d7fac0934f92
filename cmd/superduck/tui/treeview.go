package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog"
	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog/view"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

// Tree view icons using Unicode symbols.
const (
	iconExpanded   = "▼" // Black down-pointing triangle
	iconCollapsed  = "▶" // Black right-pointing triangle
	iconSelected   = "●" // Black circle (filled)
	iconUnselected = "○" // White circle (outline)
)

// treeRow is one line of the flattened tree.
type treeRow struct {
	id    catalog.NodeID
	depth int
}

// TreeView displays the visible catalog as an expandable tree. It observes
// a view.Model and rebuilds its rows after every change. Expansion, the
// cursor and the selection are kept by path, so they survive resets that
// renumber node ids.
type TreeView struct {
	model *view.Model

	flat     []treeRow
	cursor   int
	offset   int
	height   int
	expanded map[string]bool
	selected map[string]bool

	// cursorPath is remembered across a change so the cursor can follow
	// its node.
	cursorPath string
}

// NewTreeView creates a TreeView over m and subscribes it to m's changes.
func NewTreeView(m *view.Model) *TreeView {
	tv := &TreeView{
		model:    m,
		height:   20,
		expanded: make(map[string]bool),
		selected: make(map[string]bool),
	}
	m.Subscribe(tv)
	tv.refresh()
	return tv
}

// BeginInsertRows implements view.Observer.
func (tv *TreeView) BeginInsertRows(catalog.NodeID, int, int) { tv.remember() }

// EndInsertRows implements view.Observer.
func (tv *TreeView) EndInsertRows() { tv.restore() }

// BeginRemoveRows implements view.Observer.
func (tv *TreeView) BeginRemoveRows(catalog.NodeID, int, int) { tv.remember() }

// EndRemoveRows implements view.Observer.
func (tv *TreeView) EndRemoveRows() { tv.restore() }

// BeginReset implements view.Observer.
func (tv *TreeView) BeginReset() { tv.remember() }

// EndReset implements view.Observer.
func (tv *TreeView) EndReset() { tv.restore() }

func (tv *TreeView) remember() {
	tv.cursorPath = ""
	if n, ok := tv.Current(); ok {
		tv.cursorPath = n.FullPath()
	}
}

// restore rebuilds the rows and puts the cursor back on the remembered
// node, or on its closest surviving ancestor.
func (tv *TreeView) restore() {
	tv.refresh()
	if tv.cursorPath == "" {
		return
	}
	c := tv.model.Catalog()
	p := tv.cursorPath
	for p != "" {
		if id, ok := c.FindByPath(p); ok {
			if i := tv.indexOf(id); i >= 0 {
				tv.cursor = i
				tv.ensureVisible()
				return
			}
		}
		parts := types.SplitPath(p)
		p = types.JoinPath(parts[:len(parts)-1]...)
	}
}

func (tv *TreeView) indexOf(id catalog.NodeID) int {
	for i, r := range tv.flat {
		if r.id == id {
			return i
		}
	}
	return -1
}

// refresh rebuilds the flat list from the model.
func (tv *TreeView) refresh() {
	tv.flat = tv.flat[:0]
	c := tv.model.Catalog()

	var walk func(parent catalog.NodeID, depth int)
	walk = func(parent catalog.NodeID, depth int) {
		for row := range tv.model.RowCount(parent) {
			id, ok := tv.model.ChildAt(parent, row)
			if !ok {
				continue
			}
			tv.flat = append(tv.flat, treeRow{id: id, depth: depth})
			n, _ := c.Node(id)
			if n.IsDir() && tv.expanded[n.FullPath()] {
				walk(id, depth+1)
			}
		}
	}
	walk(catalog.NoNode, 0)

	if tv.cursor >= len(tv.flat) {
		tv.cursor = len(tv.flat) - 1
	}
	if tv.cursor < 0 {
		tv.cursor = 0
	}
}

// Len returns the number of rows.
func (tv *TreeView) Len() int { return len(tv.flat) }

// Current returns the node under the cursor.
func (tv *TreeView) Current() (catalog.Node, bool) {
	if len(tv.flat) == 0 || tv.cursor < 0 || tv.cursor >= len(tv.flat) {
		return catalog.Node{}, false
	}
	return tv.model.Catalog().Node(tv.flat[tv.cursor].id)
}

// CurrentDir returns the path of the directory an action at the cursor
// applies to: the cursor node if it is a directory, otherwise its parent.
func (tv *TreeView) CurrentDir() string {
	n, ok := tv.Current()
	if !ok {
		return ""
	}
	if n.IsDir() {
		return n.FullPath()
	}
	parts := types.SplitPath(n.FullPath())
	return types.JoinPath(parts[:len(parts)-1]...)
}

// MoveUp moves the cursor up one position.
func (tv *TreeView) MoveUp() {
	if tv.cursor > 0 {
		tv.cursor--
		tv.ensureVisible()
	}
}

// MoveDown moves the cursor down one position.
func (tv *TreeView) MoveDown() {
	if tv.cursor < len(tv.flat)-1 {
		tv.cursor++
		tv.ensureVisible()
	}
}

// PageDown moves the cursor one screen down.
func (tv *TreeView) PageDown() {
	tv.cursor = min(tv.cursor+tv.height, max(len(tv.flat)-1, 0))
	tv.ensureVisible()
}

// PageUp moves the cursor one screen up.
func (tv *TreeView) PageUp() {
	tv.cursor = max(tv.cursor-tv.height, 0)
	tv.ensureVisible()
}

// Home moves to the first row.
func (tv *TreeView) Home() {
	tv.cursor = 0
	tv.ensureVisible()
}

// End moves to the last row.
func (tv *TreeView) End() {
	tv.cursor = max(len(tv.flat)-1, 0)
	tv.ensureVisible()
}

// Expand opens the directory under the cursor.
func (tv *TreeView) Expand() {
	n, ok := tv.Current()
	if !ok || !n.IsDir() {
		return
	}
	tv.expanded[n.FullPath()] = true
	tv.refresh()
}

// Collapse closes the directory under the cursor, or moves to the parent
// when it is already closed or is a file.
func (tv *TreeView) Collapse() {
	n, ok := tv.Current()
	if !ok {
		return
	}
	if n.IsDir() && tv.expanded[n.FullPath()] {
		delete(tv.expanded, n.FullPath())
		tv.refresh()
		return
	}
	parent, ok := n.Parent()
	if !ok || parent == catalog.RootID {
		return
	}
	if i := tv.indexOf(parent); i >= 0 {
		tv.cursor = i
		tv.ensureVisible()
	}
}

// ToggleExpand opens or closes the directory under the cursor.
func (tv *TreeView) ToggleExpand() {
	n, ok := tv.Current()
	if !ok || !n.IsDir() {
		return
	}
	if tv.expanded[n.FullPath()] {
		delete(tv.expanded, n.FullPath())
	} else {
		tv.expanded[n.FullPath()] = true
	}
	tv.refresh()
}

// ToggleSelect toggles selection of the node under the cursor.
func (tv *TreeView) ToggleSelect() {
	n, ok := tv.Current()
	if !ok {
		return
	}
	p := n.FullPath()
	if tv.selected[p] {
		delete(tv.selected, p)
	} else {
		tv.selected[p] = true
	}
}

// ClearSelection removes all selections.
func (tv *TreeView) ClearSelection() {
	tv.selected = make(map[string]bool)
}

// SelectionCount returns the number of selected paths.
func (tv *TreeView) SelectionCount() int { return len(tv.selected) }

// Targets returns the ids an action applies to: the selected nodes that
// still exist, or the cursor node when nothing is selected.
func (tv *TreeView) Targets() []catalog.NodeID {
	c := tv.model.Catalog()
	var ids []catalog.NodeID
	for p := range tv.selected {
		if id, ok := c.FindByPath(p); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		if n, ok := tv.Current(); ok {
			ids = append(ids, n.ID())
		}
	}
	return ids
}

func (tv *TreeView) ensureVisible() {
	visible := max(tv.height, 1)
	if tv.cursor < tv.offset {
		tv.offset = tv.cursor
	} else if tv.cursor >= tv.offset+visible {
		tv.offset = tv.cursor - visible + 1
	}
	if tv.offset < 0 {
		tv.offset = 0
	}
}

// View renders height rows of the tree, width columns wide.
func (tv *TreeView) View(width, height int) string {
	tv.height = max(height, 1)
	if len(tv.flat) == 0 {
		msg := dimStyle.Render("Nothing to display")
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, msg) + "\n" + strings.Repeat("\n", tv.height-1)
	}
	tv.ensureVisible()

	var b strings.Builder
	end := min(tv.offset+tv.height, len(tv.flat))
	for i := tv.offset; i < end; i++ {
		b.WriteString(tv.renderRow(tv.flat[i], width, i == tv.cursor))
		b.WriteString("\n")
	}
	for i := end - tv.offset; i < tv.height; i++ {
		b.WriteString("\n")
	}
	return b.String()
}

func (tv *TreeView) renderRow(r treeRow, width int, isCursor bool) string {
	n, ok := tv.model.Catalog().Node(r.id)
	if !ok {
		return ""
	}
	indent := strings.Repeat("  ", r.depth)
	isSelected := tv.selected[n.FullPath()]

	mark := iconUnselected
	markStyle := markOffStyle
	if isSelected {
		mark = iconSelected
		markStyle = markOnStyle
	}

	icon := "  "
	name := n.Name()
	sizeStr := types.FormatSize(n.Size())
	if n.IsDir() {
		icon = iconCollapsed + " "
		if tv.expanded[n.FullPath()] {
			icon = iconExpanded + " "
		}
		name += types.Delimiter
		sizeStr = dimStyle.Render(itemCount(n.VisibleChildCount())) + "  " + sizeStr
	}

	left := indent + mark + " " + icon + name
	padding := max(width-lipgloss.Width(left)-lipgloss.Width(sizeStr)-1, 1)

	if isCursor {
		return cursorRowStyle.Width(width).Render(left + strings.Repeat(" ", padding) + sizeStr)
	}

	var styled strings.Builder
	styled.WriteString(indent)
	styled.WriteString(markStyle.Render(mark))
	styled.WriteString(" ")
	styled.WriteString(icon)
	if n.IsDir() {
		styled.WriteString(dirNameStyle.Render(name))
	} else {
		styled.WriteString(name)
	}
	styled.WriteString(strings.Repeat(" ", padding))
	styled.WriteString(sizeStyle.Render(sizeStr))
	return rowStyle.Width(width).Render(styled.String())
}

func itemCount(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}
