package catalog_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog"
)

const exampleDump = `0 d "" 150
1 d "docs" 150
2 f "a.txt" 100
3 f "b.txt" 50
---
0 1
1 2:3
`

func TestSave(t *testing.T) {
	t.Run("example layout", func(t *testing.T) {
		c, _ := exampleCatalog(t)
		var buf bytes.Buffer
		require.NoError(t, c.Save(&buf))
		assert.Equal(t, exampleDump, buf.String())
		assert.False(t, c.IsDirty())
	})

	t.Run("after deleting everything only the root remains", func(t *testing.T) {
		c, ids := exampleCatalog(t)
		_, err := c.Delete(ids["docs"])
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, c.Save(&buf))
		assert.Equal(t, "0 d \"\" 0\n---\n", buf.String())
	})

	t.Run("renumbers densely after deletions", func(t *testing.T) {
		c, ids := exampleCatalog(t)
		_, err := c.Delete(ids["a.txt"])
		require.NoError(t, err)
		_, err = c.Create("c.txt", ids["docs"], 7, catalog.File)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, c.Save(&buf))
		assert.Equal(t, `0 d "" 57
1 d "docs" 57
2 f "b.txt" 50
3 f "c.txt" 7
---
0 1
1 2:3
`, buf.String())

		id, ok := c.FindByPath("docs/c.txt")
		require.True(t, ok)
		assert.Equal(t, catalog.NodeID(3), id)
	})

	t.Run("directory sizes ignore the filter", func(t *testing.T) {
		c, _ := exampleCatalog(t)
		c.SetFilter("a.")
		var buf bytes.Buffer
		require.NoError(t, c.Save(&buf))
		assert.Equal(t, exampleDump, buf.String())
	})

	t.Run("write failure keeps the catalog dirty", func(t *testing.T) {
		c, _ := exampleCatalog(t)
		err := c.Save(failingWriter{})
		require.Error(t, err)
		assert.True(t, c.IsDirty())
	})
}

func TestLoad(t *testing.T) {
	t.Run("example", func(t *testing.T) {
		c := catalog.New()
		require.NoError(t, c.Load(strings.NewReader(exampleDump)))

		assert.Equal(t, 4, c.Len())
		assert.False(t, c.IsDirty())
		id, ok := c.FindByPath("docs/b.txt")
		require.True(t, ok)
		n, _ := c.Node(id)
		assert.Equal(t, int64(50), n.Size())
		assert.Equal(t, int64(150), c.RootNode().Size())
	})

	t.Run("sorts children", func(t *testing.T) {
		c := catalog.New()
		dump := "0 d \"\" 0\n1 f \"z\" 1\n2 d \"m\" 0\n3 f \"a\" 1\n---\n0 1:2:3\n"
		require.NoError(t, c.Load(strings.NewReader(dump)))
		assert.Equal(t, []string{"m", "a", "z"}, childNames(t, c, c.Root()))
	})

	t.Run("accepts ids out of file order", func(t *testing.T) {
		c := catalog.New()
		dump := "1 f \"x\" 3\n0 d \"\" 3\n---\n0 1\n"
		require.NoError(t, c.Load(strings.NewReader(dump)))
		assert.Equal(t, int64(3), c.RootNode().Size())
	})

	t.Run("names with quotes", func(t *testing.T) {
		c := catalog.New()
		dump := "0 d \"\" 1\n1 f \"say \"hi\".txt\" 1\n---\n0 1\n"
		require.NoError(t, c.Load(strings.NewReader(dump)))
		_, ok := c.FindByPath(`say "hi".txt`)
		assert.True(t, ok)
	})

	t.Run("windows line endings and blank lines", func(t *testing.T) {
		c := catalog.New()
		dump := "0 d \"\" 1\r\n1 f \"x\" 1\r\n\r\n---\r\n0 1\r\n\r\n"
		require.NoError(t, c.Load(strings.NewReader(dump)))
		assert.Equal(t, 2, c.Len())
	})

	t.Run("replaces previous contents", func(t *testing.T) {
		c, _ := exampleCatalog(t)
		require.NoError(t, c.Load(strings.NewReader("0 d \"\" 0\n---\n")))
		assert.Equal(t, 1, c.Len())
		assert.False(t, c.IsDirty())
	})

	t.Run("reapplies the active filter", func(t *testing.T) {
		c := catalog.New()
		c.SetFilter("a.")
		require.NoError(t, c.Load(strings.NewReader(exampleDump)))
		id, _ := c.FindByPath("docs/b.txt")
		n, _ := c.Node(id)
		assert.False(t, n.Visible())
		assert.Equal(t, int64(100), c.RootNode().Size())
	})
}

func TestLoadFormatErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{"empty stream", "", 0},
		{"missing separator", "0 d \"\" 0\n", 1},
		{"no nodes", "---\n", 1},
		{"unparsable id", "x d \"\" 0\n---\n", 1},
		{"unknown kind", "0 d \"\" 0\n1 q \"a\" 0\n---\n0 1\n", 2},
		{"unterminated name", "0 d \"\" 0\n1 f \"a 0\n---\n0 1\n", 2},
		{"missing size", "0 d \"\" 0\n1 f \"a\"\n---\n0 1\n", 2},
		{"negative size", "0 d \"\" 0\n1 f \"a\" -4\n---\n0 1\n", 2},
		{"id out of range", "0 d \"\" 0\n5 f \"a\" 1\n---\n0 5\n", 2},
		{"duplicate id", "0 d \"\" 0\n1 f \"a\" 1\n1 f \"b\" 1\n---\n0 1\n", 3},
		{"root is a file", "0 f \"\" 0\n---\n", 1},
		{"root has a name", "0 d \"top\" 0\n---\n", 1},
		{"dangling child", "0 d \"\" 0\n1 f \"a\" 1\n---\n0 1:7\n", 4},
		{"dangling parent", "0 d \"\" 0\n1 f \"a\" 1\n---\n9 1\n", 4},
		{"malformed relation", "0 d \"\" 0\n1 f \"a\" 1\n---\n01\n", 4},
		{"file as parent", "0 d \"\" 0\n1 f \"a\" 1\n2 f \"b\" 1\n---\n0 1\n1 2\n", 6},
		{"root as child", "0 d \"\" 0\n1 d \"a\" 0\n---\n1 0\n", 4},
		{"self parent", "0 d \"\" 0\n1 d \"a\" 0\n---\n0 1\n1 1\n", 5},
		{"two parents", "0 d \"\" 0\n1 d \"a\" 0\n2 f \"b\" 1\n---\n0 1:2\n1 2\n", 6},
		{"second root", "0 d \"\" 0\n1 d \"a\" 0\n---\n", 2},
		{"detached cycle", "0 d \"\" 0\n1 d \"a\" 0\n2 d \"b\" 0\n---\n1 2\n2 1\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := exampleCatalog(t)
			err := c.Load(strings.NewReader(tt.input))
			require.Error(t, err)

			var fe *catalog.FormatError
			require.True(t, errors.As(err, &fe), "expected FormatError, got %v", err)
			assert.Equal(t, tt.wantLine, fe.Line)

			// the catalog is left untouched
			assert.Equal(t, 4, c.Len())
		})
	}
}

func TestRoundTrip(t *testing.T) {
	c := catalog.New()
	keys := []string{
		"photos/2019/beach.jpg",
		"photos/2019/city.jpg",
		"photos/2020/",
		"music/album/track01.flac",
		"music/album/track02.flac",
		"readme.md",
		"a b/with spaces.txt",
	}
	for i, k := range keys {
		_, _, err := c.CreatePath(k, int64(10*(i+1)))
		require.NoError(t, err)
	}

	var first bytes.Buffer
	require.NoError(t, c.Save(&first))

	loaded := catalog.New()
	require.NoError(t, loaded.Load(bytes.NewReader(first.Bytes())))

	var second bytes.Buffer
	require.NoError(t, loaded.Save(&second))
	assert.Equal(t, first.String(), second.String())

	assert.Equal(t, c.Collect(nil, true), loaded.Collect(nil, true))
	assert.Equal(t, c.Stats(), loaded.Stats())
}

func TestIsDatabase(t *testing.T) {
	assert.True(t, catalog.IsDatabase(strings.NewReader(exampleDump)))
	assert.True(t, catalog.IsDatabase(strings.NewReader("0 d \"\" 0")))
	assert.False(t, catalog.IsDatabase(strings.NewReader("photos/a.jpg\n")))
	assert.False(t, catalog.IsDatabase(strings.NewReader("")))
}

func TestFiles(t *testing.T) {
	t.Run("missing file yields a synthetic root", func(t *testing.T) {
		c, err := catalog.OpenFile(filepath.Join(t.TempDir(), "nope.txt"))
		require.NoError(t, err)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("save then open", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dbData.txt")
		c, _ := exampleCatalog(t)
		require.NoError(t, c.SaveFile(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, exampleDump, string(data))

		reopened, err := catalog.OpenFile(path)
		require.NoError(t, err)
		assert.Equal(t, 4, reopened.Len())
	})

	t.Run("failed rename keeps the catalog dirty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dbData.txt")
		require.NoError(t, os.MkdirAll(filepath.Join(path, "occupied"), 0o755))
		c, _ := exampleCatalog(t)
		require.True(t, c.IsDirty())

		err := c.SaveFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "renaming catalog")
		assert.True(t, c.IsDirty())

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp file should be cleaned up")
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dbData.txt")
		require.NoError(t, os.WriteFile(path, []byte("garbage\n"), 0o644))
		_, err := catalog.OpenFile(path)
		var fe *catalog.FormatError
		assert.ErrorAs(t, err, &fe)
	})
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }
