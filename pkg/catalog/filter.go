package catalog

import "strings"

// Filter returns the active filter text. Empty means unfiltered.
func (c *Catalog) Filter() string { return c.filter }

// SetFilter marks the nodes whose name contains text, compared
// case-insensitively, as visible together with all their ancestors; every
// other node becomes invisible. An empty text makes every node visible.
// SetFilter reports false when text equals the current filter.
func (c *Catalog) SetFilter(text string) bool {
	if text == c.filter {
		return false
	}
	c.filter = text
	c.folded = c.fold.String(text)
	c.refilter()

	logger.Debug("filter applied", "text", text)
	return true
}

// Matches reports whether a node with the given name would pass the active
// filter on its own.
func (c *Catalog) Matches(name string) bool {
	if c.folded == "" {
		return true
	}
	return strings.Contains(c.fold.String(name), c.folded)
}

func (c *Catalog) refilter() {
	if c.folded == "" {
		for _, e := range c.nodes {
			if e != nil {
				e.visible = true
			}
		}
		return
	}

	for _, e := range c.nodes {
		if e != nil {
			e.visible = false
		}
	}
	for _, e := range c.nodes {
		if e != nil && e.id != RootID && c.Matches(e.name) {
			c.setVisible(e, true)
		}
	}
}

// setVisible sets the flag on e. Making a node visible makes every ancestor
// visible too; hiding a node leaves its ancestors alone since siblings may
// still match.
func (c *Catalog) setVisible(e *entry, visible bool) {
	e.visible = visible
	if !visible {
		return
	}
	for p := c.get(e.parent); p != nil && !p.visible; p = c.get(p.parent) {
		p.visible = true
	}
}
