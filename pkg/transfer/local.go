package transfer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

// UploadRequest builds an Upload of local files and directories under the
// catalog prefix destination. Directories are expanded recursively and keep
// their own name as the first key component; symlinks are not followed.
func UploadRequest(locals []string, destination string) (Request, error) {
	var items []Item
	for _, local := range locals {
		abs, err := filepath.Abs(local)
		if err != nil {
			return Request{}, fmt.Errorf("resolving %s: %w", local, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return Request{}, fmt.Errorf("stat %s: %w", local, err)
		}
		if !info.IsDir() {
			items = append(items, Item{Path: filepath.Base(abs), Size: info.Size(), Local: abs})
			continue
		}
		expanded, err := expandDir(abs)
		if err != nil {
			return Request{}, err
		}
		items = append(items, expanded...)
	}
	return NewRequest(Upload, items, destination), nil
}

func expandDir(dir string) ([]Item, error) {
	base := filepath.Dir(dir)
	conf := fastwalk.Config{Follow: false}

	var (
		mu    sync.Mutex
		items []Item
	)
	err := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		var it Item
		switch {
		case d.IsDir():
			it = Item{Path: rel + types.Delimiter}
		case d.Type().IsRegular():
			info, err := d.Info()
			if err != nil {
				return err
			}
			it = Item{Path: rel, Size: info.Size(), Local: path}
		default:
			return nil
		}

		mu.Lock()
		items = append(items, it)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items, nil
}
