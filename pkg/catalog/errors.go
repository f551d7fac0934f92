package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParent indicates that the requested parent does not exist or
	// is not a directory.
	ErrInvalidParent = errors.New("invalid parent")

	// ErrCannotDeleteRoot is returned when deleting node 0.
	ErrCannotDeleteRoot = errors.New("cannot delete the root node")

	// ErrNotFound indicates that a node id or path is not in the catalog.
	ErrNotFound = errors.New("node not found")

	// ErrInvalidName indicates a name that cannot be stored in the catalog.
	ErrInvalidName = errors.New("invalid name")

	// ErrDuplicateName indicates that a sibling with the same name exists.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrInvalidSize indicates a negative file size.
	ErrInvalidSize = errors.New("invalid size")
)

// FormatError describes a malformed serialized catalog. Any FormatError
// aborts the whole load.
type FormatError struct {
	// Line is the 1-based line number the problem was found on, or 0 when
	// the problem is not tied to a single line.
	Line int

	// Reason describes what is wrong.
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("catalog format error at line %d: %s", e.Line, e.Reason)
	}
	return "catalog format error: " + e.Reason
}

func formatErrorf(line int, format string, args ...any) *FormatError {
	return &FormatError{Line: line, Reason: fmt.Sprintf(format, args...)}
}
