package export

import (
	"io"
	"path"
	"strings"

	"github.com/disiqueira/gotree/v3"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

// TreeFormatter renders rows as an indented tree. Rows are expected in
// depth-first order, as produced by a catalog walk.
type TreeFormatter struct{}

type treeBuilder struct {
	root gotree.Tree
	dirs map[string]gotree.Tree
}

func (b *treeBuilder) dir(p string) gotree.Tree {
	if p == "." || p == "" {
		return b.root
	}
	d, ok := b.dirs[p]
	if !ok {
		d = b.dir(path.Dir(p)).Add(path.Base(p) + types.Delimiter)
		b.dirs[p] = d
	}
	return d
}

// Format implements Formatter.
func (f *TreeFormatter) Format(w io.Writer, rows []types.Entry) error {
	b := &treeBuilder{root: gotree.New("."), dirs: make(map[string]gotree.Tree)}
	for _, r := range rows {
		p := strings.TrimSuffix(r.Path, types.Delimiter)
		if r.IsDir() {
			b.dir(p)
			continue
		}
		b.dir(path.Dir(p)).Add(path.Base(p) + " (" + r.HumanSize() + ")")
	}
	_, err := io.WriteString(w, b.root.Print())
	return err
}

func init() {
	Register("tree", func() Formatter { return &TreeFormatter{} })
}

var _ Formatter = (*TreeFormatter)(nil)
