package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FelixdelasPozas/SuperDuck/pkg/catalog/view"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/config"
)

func TestCloseApp(t *testing.T) {
	newTestApp := func(t *testing.T, database string) *App {
		return &App{
			Config: &config.Config{Database: database},
			Model:  view.NewModel(testCatalog(t)),
		}
	}

	t.Run("saves the dirty catalog", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dbData.txt")
		app := newTestApp(t, path)

		var err error
		closeApp(app, &err)
		require.NoError(t, err)
		assert.FileExists(t, path)
	})

	t.Run("reports a failed save", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dbData.txt")
		require.NoError(t, os.MkdirAll(filepath.Join(path, "occupied"), 0o755))
		app := newTestApp(t, path)

		var err error
		closeApp(app, &err)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save catalog")
		assert.True(t, app.Catalog().IsDirty())
	})

	t.Run("keeps the command error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dbData.txt")
		require.NoError(t, os.MkdirAll(filepath.Join(path, "occupied"), 0o755))
		app := newTestApp(t, path)

		err := ErrDeleteDisabled
		closeApp(app, &err)
		assert.ErrorIs(t, err, ErrDeleteDisabled)
		assert.Contains(t, err.Error(), "failed to save catalog")
	})
}
