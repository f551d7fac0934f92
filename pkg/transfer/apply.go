package transfer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog"
	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog/view"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

// Applied summarizes the catalog changes made by Apply.
type Applied struct {
	Created []catalog.NodeID
	Removed []catalog.NodeID
	// Kept lists directories not removed because something beneath them
	// failed to delete.
	Kept []string
}

// Apply updates the catalog behind m with a finished Result. It must run on
// the goroutine that owns the catalog, after the Result has been received
// from the Dispatcher.
//
// Delete removes the node of every succeeded path. A succeeded directory that
// still has children afterwards is kept and listed in Applied.Kept. Upload
// creates a node for every succeeded item; a file replaces a file of the same
// name, and a file/directory clash is reported without touching the existing
// node. Download and CreateDirectory leave the catalog alone.
func Apply(m *view.Model, res Result) (Applied, error) {
	switch res.Request.Kind {
	case Delete:
		return applyDelete(m, res)
	case Upload:
		return applyUpload(m, res)
	default:
		return Applied{}, nil
	}
}

func depth(p string) int {
	return strings.Count(strings.Trim(p, types.Delimiter), types.Delimiter)
}

func applyDelete(m *view.Model, res Result) (Applied, error) {
	// directories holding a failed path stay
	pinned := make(map[string]bool)
	for failed := range res.Failed {
		parts := types.SplitPath(failed)
		for i := 1; i < len(parts); i++ {
			pinned[types.JoinPath(parts[:i]...)] = true
		}
	}

	items := make([]Item, len(res.Succeeded))
	copy(items, res.Succeeded)
	sort.SliceStable(items, func(i, j int) bool {
		return depth(items[i].Path) > depth(items[j].Path)
	})

	var applied Applied
	var errs []error
	for _, it := range items {
		trimmed := strings.Trim(it.Path, types.Delimiter)
		if it.IsDir() && pinned[trimmed] {
			applied.Kept = append(applied.Kept, it.Path)
			continue
		}
		id, ok := m.Catalog().FindByPath(trimmed)
		if !ok || id == catalog.RootID {
			continue
		}
		// children hidden by the filter were never sent, so they still
		// exist remotely
		if n, _ := m.Catalog().Node(id); n.IsDir() && len(n.Children()) > 0 {
			applied.Kept = append(applied.Kept, it.Path)
			continue
		}
		change, err := m.Remove(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("removing %s: %w", it.Path, err))
			continue
		}
		applied.Removed = append(applied.Removed, change.Removed...)
	}
	return applied, errors.Join(errs...)
}

func applyUpload(m *view.Model, res Result) (Applied, error) {
	var applied Applied
	var errs []error
	for _, it := range res.Succeeded {
		key := res.Request.Key(it)
		before := m.Catalog().Len()

		id, err := m.InsertPath(key, it.Size)
		if errors.Is(err, catalog.ErrDuplicateName) && !it.IsDir() && isFile(m, id) {
			change, rmErr := m.Remove(id)
			if rmErr != nil {
				errs = append(errs, fmt.Errorf("replacing %s: %w", key, rmErr))
				continue
			}
			applied.Removed = append(applied.Removed, change.Removed...)
			before = m.Catalog().Len()
			id, err = m.InsertPath(key, it.Size)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("adding %s: %w", key, err))
			continue
		}
		if m.Catalog().Len() > before {
			applied.Created = append(applied.Created, id)
		}
	}
	return applied, errors.Join(errs...)
}

func isFile(m *view.Model, id catalog.NodeID) bool {
	n, ok := m.Catalog().Node(id)
	return ok && !n.IsDir()
}

// PrepareCreateDirectory creates the directory name under parentPath in the
// catalog right away and returns the request that mirrors it remotely.
func PrepareCreateDirectory(m *view.Model, parentPath, name string) (Request, catalog.NodeID, error) {
	parent, ok := m.Catalog().FindByPath(parentPath)
	if !ok {
		return Request{}, catalog.NoNode, fmt.Errorf("%w: %q", catalog.ErrNotFound, parentPath)
	}
	id, err := m.Insert(name, parent, 0, catalog.Directory)
	if err != nil {
		return Request{}, catalog.NoNode, err
	}
	req := NewRequest(CreateDirectory, []Item{{Path: name + types.Delimiter}}, strings.Trim(parentPath, types.Delimiter))
	return req, id, nil
}

// DeleteRequest builds a Delete of the visible subtrees of ids.
func DeleteRequest(c *catalog.Catalog, ids []catalog.NodeID) Request {
	return NewRequest(Delete, ItemsFromEntries(c.Collect(ids, true)), "")
}

// DownloadRequest builds a Download of the visible subtrees of ids into the
// local directory dest.
func DownloadRequest(c *catalog.Catalog, ids []catalog.NodeID, dest string, fullPaths bool) Request {
	req := NewRequest(Download, ItemsFromEntries(c.Collect(ids, true)), dest)
	req.FullPaths = fullPaths
	return req
}
