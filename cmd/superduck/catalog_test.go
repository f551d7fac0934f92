package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := catalog.New()
	for _, key := range []string{"docs/a.txt", "docs/sub/b.txt", "readme.md"} {
		_, _, err := c.CreatePath(key, 1)
		require.NoError(t, err)
	}
	return c
}

func TestResolvePaths(t *testing.T) {
	c := testCatalog(t)

	ids, err := resolvePaths(c, []string{"docs", "docs/sub/", "readme.md"})
	require.NoError(t, err)
	require.Len(t, ids, 3)
	n, _ := c.Node(ids[1])
	assert.Equal(t, "docs/sub", n.FullPath())

	_, err = resolvePaths(c, []string{"docs", "missing"})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestSelection(t *testing.T) {
	c := testCatalog(t)

	t.Run("no paths", func(t *testing.T) {
		ids, err := selection(c, nil)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("root means everything", func(t *testing.T) {
		ids, err := selection(c, []string{"docs", ""})
		require.NoError(t, err)
		assert.Nil(t, ids)
	})

	t.Run("paths", func(t *testing.T) {
		ids, err := selection(c, []string{"readme.md"})
		require.NoError(t, err)
		assert.Len(t, ids, 1)
	})
}

func TestDownloadDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "downloads")

	got, err := downloadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
