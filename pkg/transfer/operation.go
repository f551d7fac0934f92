// Package transfer runs remote bucket operations off the owning goroutine
// and applies their results back to the catalog.
//
// The catalog is never touched by a worker. A Dispatcher runs one Request
// at a time on a goroutine and hands back a Result over a channel; the
// owner then calls Apply with that Result.
package transfer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

// Kind is the operation a Request performs. Kinds are mutually exclusive.
type Kind int

const (
	Download Kind = iota
	Upload
	Delete
	CreateDirectory
)

func (k Kind) String() string {
	switch k {
	case Download:
		return "download"
	case Upload:
		return "upload"
	case Delete:
		return "delete"
	case CreateDirectory:
		return "mkdir"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses the String form of a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{Download, Upload, Delete, CreateDirectory} {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown operation kind %q", s)
}

// Item is one (path, size) pair of a Request.
//
// For Download and Delete, Path is the full object key. For Upload and
// CreateDirectory, Path is relative to the request Destination. Local is the
// source file of an Upload.
type Item struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Local string `json:"local,omitempty"`
}

// IsDir reports whether the item names a directory.
func (it Item) IsDir() bool {
	return strings.HasSuffix(it.Path, types.Delimiter)
}

// ItemsFromEntries converts catalog entries to request items.
func ItemsFromEntries(entries []types.Entry) []Item {
	items := make([]Item, len(entries))
	for i, e := range entries {
		items[i] = Item{Path: e.Path, Size: e.Size}
	}
	return items
}

// Request describes a remote operation.
type Request struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	Items []Item `json:"items"`

	// Destination is the local directory of a Download, or the catalog
	// prefix under which an Upload or CreateDirectory lands.
	Destination string `json:"destination"`

	// FullPaths makes a Download recreate each key's directories under
	// Destination instead of writing base names only.
	FullPaths bool `json:"full_paths,omitempty"`

	Created time.Time `json:"created"`
}

// NewRequest returns a request with a fresh id.
func NewRequest(kind Kind, items []Item, destination string) Request {
	return Request{
		ID:          uuid.NewString(),
		Kind:        kind,
		Items:       items,
		Destination: destination,
		Created:     time.Now(),
	}
}

// Key returns the object key an item of r refers to.
func (r Request) Key(it Item) string {
	switch r.Kind {
	case Upload, CreateDirectory:
		key := types.JoinPath(r.Destination, it.Path)
		if it.IsDir() {
			key += types.Delimiter
		}
		return key
	default:
		return it.Path
	}
}

// TotalBytes sums the item sizes of r.
func (r Request) TotalBytes() int64 {
	var total int64
	for _, it := range r.Items {
		total += it.Size
	}
	return total
}

// Result partitions the items of a Request into those that succeeded and
// those that failed. Items left out of both were not attempted because the
// operation was aborted.
type Result struct {
	Request   Request          `json:"request"`
	Succeeded []Item           `json:"succeeded"`
	Failed    map[string]error `json:"-"`
	Aborted   bool             `json:"aborted"`
	Finished  time.Time        `json:"finished"`
}

// OK reports whether every item succeeded.
func (r Result) OK() bool {
	return !r.Aborted && len(r.Failed) == 0
}

// Bytes sums the sizes of the succeeded items.
func (r Result) Bytes() int64 {
	var total int64
	for _, it := range r.Succeeded {
		total += it.Size
	}
	return total
}

func (r *Result) fail(it Item, err error) {
	if r.Failed == nil {
		r.Failed = make(map[string]error)
	}
	r.Failed[it.Path] = err
}

// Progress reports the state of a running operation.
type Progress struct {
	RequestID  string
	Kind       Kind
	Path       string
	Done       int
	Total      int
	Bytes      int64
	TotalBytes int64
}

// Fraction returns completion between 0 and 1, by bytes when known.
func (p Progress) Fraction() float64 {
	if p.TotalBytes > 0 {
		return float64(p.Bytes) / float64(p.TotalBytes)
	}
	if p.Total > 0 {
		return float64(p.Done) / float64(p.Total)
	}
	return 0
}
