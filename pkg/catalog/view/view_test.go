package view_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog"
	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog/view"
)

// recorder records observer calls and checks that the catalog has not
// changed yet when a Begin call arrives.
type recorder struct {
	cat    *catalog.Catalog
	events []string
	lenAt  []int
}

func (r *recorder) add(ev string) {
	r.events = append(r.events, ev)
	r.lenAt = append(r.lenAt, r.cat.Len())
}

func (r *recorder) BeginInsertRows(parent catalog.NodeID, first, last int) {
	r.add(fmt.Sprintf("begin-insert %d %d-%d", parent, first, last))
}
func (r *recorder) EndInsertRows() { r.add("end-insert") }
func (r *recorder) BeginRemoveRows(parent catalog.NodeID, first, last int) {
	r.add(fmt.Sprintf("begin-remove %d %d-%d", parent, first, last))
}
func (r *recorder) EndRemoveRows() { r.add("end-remove") }
func (r *recorder) BeginReset()    { r.add("begin-reset") }
func (r *recorder) EndReset()      { r.add("end-reset") }

func newModel(t *testing.T) (*view.Model, *recorder, map[string]catalog.NodeID) {
	t.Helper()
	c := catalog.New()
	ids := map[string]catalog.NodeID{}
	for _, key := range []string{"docs/a.txt", "docs/b.txt", "music/", "readme.md"} {
		_, _, err := c.CreatePath(key, 10)
		require.NoError(t, err)
	}
	for _, p := range []string{"docs", "docs/a.txt", "docs/b.txt", "music", "readme.md"} {
		id, ok := c.FindByPath(p)
		require.True(t, ok)
		ids[p] = id
	}
	m := view.NewModel(c)
	rec := &recorder{cat: c}
	m.Subscribe(rec)
	return m, rec, ids
}

func TestAdapter(t *testing.T) {
	m, _, ids := newModel(t)

	t.Run("row counts", func(t *testing.T) {
		assert.Equal(t, 3, m.RowCount(catalog.NoNode))
		assert.Equal(t, 3, m.RowCount(catalog.RootID))
		assert.Equal(t, 2, m.RowCount(ids["docs"]))
		assert.Equal(t, 0, m.RowCount(ids["readme.md"]))
		assert.Equal(t, 0, m.RowCount(99))
	})

	t.Run("child at", func(t *testing.T) {
		got, ok := m.ChildAt(catalog.NoNode, 0)
		require.True(t, ok)
		assert.Equal(t, ids["docs"], got)
		got, ok = m.ChildAt(catalog.NoNode, 2)
		require.True(t, ok)
		assert.Equal(t, ids["readme.md"], got)

		_, ok = m.ChildAt(catalog.NoNode, 3)
		assert.False(t, ok)
		_, ok = m.ChildAt(catalog.NoNode, -1)
		assert.False(t, ok)
		_, ok = m.ChildAt(ids["readme.md"], 0)
		assert.False(t, ok)
	})

	t.Run("position of", func(t *testing.T) {
		pos, ok := m.PositionOf(catalog.RootID)
		require.True(t, ok)
		assert.Equal(t, view.Position{Parent: catalog.NoNode, Row: 0}, pos)

		pos, ok = m.PositionOf(ids["docs/b.txt"])
		require.True(t, ok)
		assert.Equal(t, view.Position{Parent: ids["docs"], Row: 1}, pos)

		_, ok = m.PositionOf(99)
		assert.False(t, ok)
	})

	t.Run("round trip over every visible node", func(t *testing.T) {
		var walk func(parent catalog.NodeID)
		walk = func(parent catalog.NodeID) {
			for row := 0; row < m.RowCount(parent); row++ {
				child, ok := m.ChildAt(parent, row)
				require.True(t, ok)
				pos, ok := m.PositionOf(child)
				require.True(t, ok)
				wantParent := parent
				if parent == catalog.NoNode {
					wantParent = catalog.RootID
				}
				assert.Equal(t, view.Position{Parent: wantParent, Row: row}, pos)
				walk(child)
			}
		}
		walk(catalog.NoNode)
	})
}

func TestAdapterWithFilter(t *testing.T) {
	m, _, ids := newModel(t)
	m.SetFilter("b.")

	assert.Equal(t, 1, m.RowCount(catalog.NoNode))
	assert.Equal(t, 1, m.RowCount(ids["docs"]))
	assert.Equal(t, 0, m.RowCount(ids["music"]))

	got, ok := m.ChildAt(ids["docs"], 0)
	require.True(t, ok)
	assert.Equal(t, ids["docs/b.txt"], got)

	pos, ok := m.PositionOf(ids["docs/b.txt"])
	require.True(t, ok)
	assert.Equal(t, 0, pos.Row)

	_, ok = m.PositionOf(ids["docs/a.txt"])
	assert.False(t, ok, "hidden nodes have no position")

	m.SetFilter("nothing matches")
	assert.Equal(t, 0, m.RowCount(catalog.NoNode))
}

func TestModelInsert(t *testing.T) {
	t.Run("visible node brackets a row insertion", func(t *testing.T) {
		m, rec, ids := newModel(t)
		id, err := m.Insert("c.txt", ids["docs"], 5, catalog.File)
		require.NoError(t, err)

		assert.Equal(t, []string{fmt.Sprintf("begin-insert %d 2-2", ids["docs"]), "end-insert"}, rec.events)
		assert.Equal(t, rec.lenAt[0]+1, rec.lenAt[1], "the catalog changes between begin and end")
		pos, ok := m.PositionOf(id)
		require.True(t, ok)
		assert.Equal(t, 2, pos.Row)
	})

	t.Run("row accounts for directories first", func(t *testing.T) {
		m, rec, _ := newModel(t)
		_, err := m.Insert("zeta", catalog.NoNode, 0, catalog.Directory)
		require.NoError(t, err)
		assert.Equal(t, "begin-insert 0 2-2", rec.events[0])
	})

	t.Run("hidden node sends nothing", func(t *testing.T) {
		m, rec, ids := newModel(t)
		m.SetFilter("b.")
		rec.events = nil

		_, err := m.Insert("zzz.bin", ids["docs"], 1, catalog.File)
		require.NoError(t, err)
		assert.Empty(t, rec.events)
	})

	t.Run("row counts visible siblings only", func(t *testing.T) {
		m, rec, ids := newModel(t)
		m.SetFilter(".txt")
		rec.events = nil

		_, err := m.Insert("c.txt", ids["docs"], 1, catalog.File)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("begin-insert %d 2-2", ids["docs"]), rec.events[0])
	})

	t.Run("match under a hidden parent resets", func(t *testing.T) {
		m, rec, ids := newModel(t)
		m.SetFilter("song")
		rec.events = nil

		_, err := m.Insert("song.flac", ids["music"], 1, catalog.File)
		require.NoError(t, err)
		assert.Equal(t, []string{"begin-reset", "end-reset"}, rec.events)
		assert.Equal(t, 1, m.RowCount(catalog.NoNode))
	})

	t.Run("failed insert sends nothing", func(t *testing.T) {
		m, rec, ids := newModel(t)
		_, err := m.Insert("a.txt", ids["docs"], 1, catalog.File)
		assert.ErrorIs(t, err, catalog.ErrDuplicateName)
		_, err = m.Insert("x", ids["readme.md"], 1, catalog.File)
		assert.ErrorIs(t, err, catalog.ErrInvalidParent)
		assert.Empty(t, rec.events)
	})

	t.Run("insert path creates each missing level", func(t *testing.T) {
		m, rec, _ := newModel(t)
		id, err := m.InsertPath("music/live/2020/set.flac", 42)
		require.NoError(t, err)
		n, _ := m.Catalog().Node(id)
		assert.Equal(t, "music/live/2020/set.flac", n.FullPath())
		assert.Len(t, rec.events, 6)

		again, err := m.InsertPath("music/live/2020/set.flac", 42)
		assert.ErrorIs(t, err, catalog.ErrDuplicateName)
		assert.Equal(t, id, again)

		_, err = m.InsertPath("readme.md/x", 1)
		assert.ErrorIs(t, err, catalog.ErrInvalidParent)
	})
}

func TestModelRemove(t *testing.T) {
	t.Run("visible node brackets a row removal", func(t *testing.T) {
		m, rec, ids := newModel(t)
		change, err := m.Remove(ids["docs"])
		require.NoError(t, err)
		assert.Len(t, change.Removed, 3)
		assert.Equal(t, []string{"begin-remove 0 0-0", "end-remove"}, rec.events)
		assert.Equal(t, rec.lenAt[0]-3, rec.lenAt[1])
	})

	t.Run("hidden node sends nothing", func(t *testing.T) {
		m, rec, ids := newModel(t)
		m.SetFilter("b.")
		rec.events = nil
		_, err := m.Remove(ids["docs/a.txt"])
		require.NoError(t, err)
		assert.Empty(t, rec.events)
	})

	t.Run("root", func(t *testing.T) {
		m, rec, _ := newModel(t)
		_, err := m.Remove(catalog.RootID)
		assert.ErrorIs(t, err, catalog.ErrCannotDeleteRoot)
		assert.Empty(t, rec.events)
	})

	t.Run("unknown", func(t *testing.T) {
		m, _, _ := newModel(t)
		_, err := m.Remove(77)
		assert.ErrorIs(t, err, catalog.ErrNotFound)
	})
}

func TestModelResets(t *testing.T) {
	m, rec, _ := newModel(t)

	assert.True(t, m.SetFilter("a"))
	assert.False(t, m.SetFilter("a"))
	assert.Equal(t, []string{"begin-reset", "end-reset"}, rec.events)

	rec.events = nil
	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))
	require.NoError(t, m.Load(&buf))
	assert.Equal(t, []string{"begin-reset", "end-reset", "begin-reset", "end-reset"}, rec.events)
}

func TestBracketing(t *testing.T) {
	m, _, _ := newModel(t)

	assert.Panics(t, func() { m.OnInsertDone() })

	m.OnRemove(catalog.RootID, 0)
	assert.Panics(t, func() { m.OnInsert(catalog.RootID, 0) })
	assert.Panics(t, func() { m.OnInsertDone() })
	assert.NotPanics(t, func() { m.OnRemoveDone() })
}

func TestUnsubscribe(t *testing.T) {
	m, rec, _ := newModel(t)
	other := &recorder{cat: m.Catalog()}
	unsubscribe := m.Subscribe(other)
	unsubscribe()

	_, err := m.Insert("new", catalog.NoNode, 0, catalog.Directory)
	require.NoError(t, err)
	assert.Len(t, rec.events, 2)
	assert.Empty(t, other.events)
}
