// Package types provides value types shared between the catalog, the
// transfer collaborator and the export writers, along with size helpers.
package types

import (
	"fmt"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
)

// Delimiter separates path components in object keys and catalog paths.
const Delimiter = "/"

// Entry is a (path, size) pair. A path ending in Delimiter names a directory.
type Entry struct {
	// Path is the object key or catalog path.
	Path string `json:"path" yaml:"path"`

	// Size is the size in bytes. For directories this is the aggregate size.
	Size int64 `json:"size" yaml:"size"`
}

// IsDir reports whether the entry names a directory.
func (e Entry) IsDir() bool {
	return strings.HasSuffix(e.Path, Delimiter)
}

// Name returns the last path component without any trailing delimiter.
func (e Entry) Name() string {
	return path.Base(strings.TrimSuffix(e.Path, Delimiter))
}

// HumanSize returns the size formatted with binary (IEC) units.
func (e Entry) HumanSize() string {
	return FormatSize(e.Size)
}

// String implements fmt.Stringer.
func (e Entry) String() string {
	return fmt.Sprintf("%s (%s)", e.Path, e.HumanSize())
}

// TotalSize sums the sizes of entries.
func TotalSize(entries []Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total
}

// FormatSize converts a size in bytes to a human-readable string.
//
// Examples:
//   - FormatSize(0) returns "0 B"
//   - FormatSize(1024) returns "1.0 KiB"
//   - FormatSize(1536*1024) returns "1.5 MiB"
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// ParseSize parses sizes such as "10MiB", "512 KB" or "2048".
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("invalid size: empty string")
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}

// JoinPath joins catalog path components, skipping empty ones.
func JoinPath(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		p = strings.Trim(p, Delimiter)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, Delimiter)
}

// SplitPath splits a catalog path into its non-empty components.
func SplitPath(p string) []string {
	var parts []string
	for _, part := range strings.Split(p, Delimiter) {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
