// Package export writes lists of catalog entries in various formats (csv,
// tsv, json, yaml, pdf, tree).
//
// Formatters live in a registry and are selected by name at runtime:
//
//	f, err := export.Get("csv")
//	if err != nil {
//	    return err
//	}
//	return f.Format(w, rows)
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/logging"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

var logger = logging.Get("export")

// Formatter writes rows to w.
type Formatter interface {
	Format(w io.Writer, rows []types.Entry) error
}

// FormatterFactory creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds a formatter factory, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown export format: %s", name)
	}
	return factory(), nil
}

// Available returns the sorted names of all registered formatters.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}

// FormatForFile guesses a format from the extension of name. It returns ""
// when the extension is not a registered format.
func FormatForFile(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	switch ext {
	case "yml":
		ext = "yaml"
	case "txt":
		ext = "tree"
	}
	if _, err := Get(ext); err != nil {
		return ""
	}
	return ext
}

// Options controls which rows are exported.
type Options struct {
	// Include keeps only rows whose path matches one of these glob
	// patterns. "*" does not cross the delimiter; "**" does.
	Include []string
}

// Filter returns the rows matching opts.
func Filter(rows []types.Entry, opts Options) ([]types.Entry, error) {
	if len(opts.Include) == 0 {
		return rows, nil
	}
	globs := make([]glob.Glob, 0, len(opts.Include))
	for _, pattern := range opts.Include {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}

	var kept []types.Entry
	for _, row := range rows {
		p := strings.TrimSuffix(row.Path, types.Delimiter)
		for _, g := range globs {
			if g.Match(p) {
				kept = append(kept, row)
				break
			}
		}
	}
	return kept, nil
}

// Write filters rows with opts and writes them to w using format.
func Write(w io.Writer, format string, rows []types.Entry, opts Options) error {
	f, err := Get(format)
	if err != nil {
		return err
	}
	rows, err = Filter(rows, opts)
	if err != nil {
		return err
	}
	logger.Debug("exporting", "format", format, "rows", len(rows))
	return f.Format(w, rows)
}
