package catalog

// Stats aggregates sizes and counts over a selection of nodes.
type Stats struct {
	Size        int64 `json:"size"`
	Files       int   `json:"files"`
	Directories int   `json:"directories"`
}

// Stats returns the visible statistics of the given nodes. Nodes nested
// under another selected node are counted once. An empty selection means
// the root.
func (c *Catalog) Stats(ids ...NodeID) Stats {
	if len(ids) == 0 {
		ids = []NodeID{RootID}
	}
	var s Stats
	for _, e := range c.outermost(ids) {
		s.Size += c.size(e)
		s.Files += c.fileCount(e)
		s.Directories += c.directoryCount(e)
	}
	return s
}

// outermost resolves ids, dropping unknown ids, duplicates and nodes that
// have a selected ancestor.
func (c *Catalog) outermost(ids []NodeID) []*entry {
	selected := make(map[NodeID]bool, len(ids))
	for _, id := range ids {
		if c.get(id) != nil {
			selected[id] = true
		}
	}

	var out []*entry
	seen := make(map[NodeID]bool, len(selected))
	for _, id := range ids {
		if !selected[id] || seen[id] {
			continue
		}
		seen[id] = true
		e := c.get(id)
		nested := false
		for p := c.get(e.parent); p != nil; p = c.get(p.parent) {
			if selected[p.id] {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, e)
		}
	}
	return out
}

func (c *Catalog) size(e *entry) int64 {
	if !e.visible {
		return 0
	}
	if e.kind == File {
		return e.size
	}
	var total int64
	for _, id := range e.children {
		total += c.size(c.nodes[id])
	}
	return total
}

func (c *Catalog) totalSize(e *entry) int64 {
	if e.kind == File {
		return e.size
	}
	var total int64
	for _, id := range e.children {
		total += c.totalSize(c.nodes[id])
	}
	return total
}

func (c *Catalog) fileCount(e *entry) int {
	if !e.visible {
		return 0
	}
	if e.kind == File {
		return 1
	}
	count := 0
	for _, id := range e.children {
		count += c.fileCount(c.nodes[id])
	}
	return count
}

func (c *Catalog) directoryCount(e *entry) int {
	if !e.visible || e.kind == File {
		return 0
	}
	count := 1
	for _, id := range e.children {
		count += c.directoryCount(c.nodes[id])
	}
	return count
}
