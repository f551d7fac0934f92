package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Separator divides the state section from the relations section.
const Separator = "---"

// databaseMagic is the start of every serialized catalog: the root line.
const databaseMagic = `0 d "" `

const maxLineSize = 16 * 1024 * 1024

// Save renumbers the ids densely and writes the catalog in the flat format:
//
//	<id> <d|f> "<name>" <size>
//	---
//	<parent-id> <child-id>[:<child-id>...]
//
// Directory sizes are written as their unfiltered aggregate (TotalSize), not
// the filtered Size, so a save never depends on the active filter. Load
// recomputes directory sizes from the files. Parents with no children get no
// relation line. The dirty flag is cleared on success.
func (c *Catalog) Save(w io.Writer) error {
	c.compact()

	bw := bufio.NewWriter(w)
	for _, e := range c.nodes {
		fmt.Fprintf(bw, "%d %c \"%s\" %d\n", e.id, e.kind.char(), e.name, c.totalSize(e))
	}
	bw.WriteString(Separator + "\n")

	var sb strings.Builder
	for _, e := range c.nodes {
		if len(e.children) == 0 {
			continue
		}
		sb.Reset()
		sb.WriteString(strconv.Itoa(int(e.id)))
		for i, child := range e.children {
			if i == 0 {
				sb.WriteByte(' ')
			} else {
				sb.WriteByte(':')
			}
			sb.WriteString(strconv.Itoa(int(child)))
		}
		sb.WriteByte('\n')
		bw.WriteString(sb.String())
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	c.dirty = false

	logger.Debug("catalog saved", "nodes", len(c.nodes))
	return nil
}

// Load replaces the catalog contents with the serialized catalog read from r.
// On any malformed input the catalog is left untouched and a *FormatError is
// returned. The active filter is reapplied to the loaded nodes.
func (c *Catalog) Load(r io.Reader) error {
	nodes, err := parse(r)
	if err != nil {
		return err
	}
	c.reset(nodes)
	c.refilter()

	logger.Debug("catalog loaded", "nodes", len(nodes))
	return nil
}

// parsedLine remembers where a node was declared, for error reporting.
type parsedLine struct {
	e    *entry
	line int
}

func parse(r io.Reader) ([]*entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	var (
		declared  []parsedLine
		lineNo    int
		separated bool
	)

	// Pass 1: every node, parent-less.
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == Separator {
			separated = true
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, err := parseState(line)
		if err != nil {
			return nil, formatErrorf(lineNo, "%v", err)
		}
		declared = append(declared, parsedLine{e: e, line: lineNo})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	if !separated {
		return nil, formatErrorf(lineNo, "missing %q separator", Separator)
	}
	if len(declared) == 0 {
		return nil, formatErrorf(lineNo, "no root node")
	}

	nodes := make([]*entry, len(declared))
	lines := make([]int, len(declared))
	for _, d := range declared {
		id := int(d.e.id)
		if id >= len(nodes) {
			return nil, formatErrorf(d.line, "id %d out of range for %d nodes", id, len(nodes))
		}
		if nodes[id] != nil {
			return nil, formatErrorf(d.line, "duplicate id %d", id)
		}
		nodes[id] = d.e
		lines[id] = d.line
	}
	if root := nodes[RootID]; root.kind != Directory || root.name != "" {
		return nil, formatErrorf(lines[RootID], "node 0 must be the unnamed root directory")
	}

	// Pass 2: parent/child relations.
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := link(nodes, line); err != nil {
			return nil, formatErrorf(lineNo, "%v", err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	reached := make([]bool, len(nodes))
	reached[RootID] = true
	queue := []NodeID{RootID}
	for len(queue) > 0 {
		e := nodes[queue[0]]
		queue = queue[1:]
		for _, child := range e.children {
			reached[child] = true
			queue = append(queue, child)
		}
	}
	for id, ok := range reached {
		if ok {
			continue
		}
		if nodes[id].parent == NoNode {
			return nil, formatErrorf(lines[id], "node %d has no parent", id)
		}
		return nil, formatErrorf(lines[id], "node %d is not reachable from the root", id)
	}

	for _, e := range nodes {
		if len(e.children) > 1 {
			sortChildren(nodes, e)
		}
	}
	return nodes, nil
}

// parseState parses `<id> <d|f> "<name>" <size>`. The name runs up to the
// last quote on the line.
func parseState(line string) (*entry, error) {
	sp := strings.IndexByte(line, ' ')
	if sp <= 0 {
		return nil, errors.New("missing node id")
	}
	id, err := strconv.Atoi(line[:sp])
	if err != nil || id < 0 {
		return nil, fmt.Errorf("invalid node id %q", line[:sp])
	}

	rest := line[sp+1:]
	if len(rest) < 3 || rest[1] != ' ' || rest[2] != '"' {
		return nil, errors.New("malformed kind or name")
	}
	var kind Kind
	switch rest[0] {
	case 'd':
		kind = Directory
	case 'f':
		kind = File
	default:
		return nil, fmt.Errorf("unknown kind %q", rest[0])
	}

	rest = rest[3:]
	q := strings.LastIndexByte(rest, '"')
	if q < 0 {
		return nil, errors.New("unterminated name")
	}
	name := rest[:q]
	sizeField := rest[q+1:]
	if !strings.HasPrefix(sizeField, " ") {
		return nil, errors.New("missing size")
	}
	size, err := strconv.ParseInt(sizeField[1:], 10, 64)
	if err != nil || size < 0 {
		return nil, fmt.Errorf("invalid size %q", sizeField[1:])
	}
	if kind == Directory {
		// derived, not stored
		size = 0
	}

	return &entry{
		id:      NodeID(id),
		name:    name,
		kind:    kind,
		size:    size,
		parent:  NoNode,
		visible: true,
	}, nil
}

// link parses `<parent-id> <child-id>[:<child-id>...]` and wires the pairs.
func link(nodes []*entry, line string) error {
	sp := strings.IndexByte(line, ' ')
	if sp <= 0 {
		return errors.New("malformed relation line")
	}
	pid, err := strconv.Atoi(line[:sp])
	if err != nil || pid < 0 || pid >= len(nodes) {
		return fmt.Errorf("dangling parent reference %q", line[:sp])
	}
	p := nodes[pid]
	if p.kind != Directory {
		return fmt.Errorf("parent %d is not a directory", pid)
	}

	for _, field := range strings.Split(line[sp+1:], ":") {
		cid, err := strconv.Atoi(field)
		if err != nil || cid < 0 || cid >= len(nodes) {
			return fmt.Errorf("dangling child reference %q", field)
		}
		switch {
		case cid == int(RootID):
			return errors.New("root listed as a child")
		case cid == pid:
			return fmt.Errorf("node %d listed as its own child", cid)
		case nodes[cid].parent != NoNode:
			return fmt.Errorf("node %d has more than one parent", cid)
		}
		nodes[cid].parent = p.id
		p.children = append(p.children, NodeID(cid))
	}
	return nil
}

// IsDatabase reports whether r starts like a serialized catalog.
func IsDatabase(r io.Reader) bool {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	return strings.HasPrefix(line, databaseMagic)
}

// OpenFile loads the catalog stored at path. A missing file yields a catalog
// with only the synthetic root.
func OpenFile(path string) (*Catalog, error) {
	c := New()
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("no catalog database, starting empty", "path", path)
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	if err := c.Load(f); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return c, nil
}

// SaveFile writes the catalog to path atomically. The dirty flag is only
// cleared once the file is in place.
func (c *Catalog) SaveFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating catalog directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".catalog-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	dirty := c.dirty
	if err := c.Save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		c.dirty = dirty
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		c.dirty = dirty
		return fmt.Errorf("renaming catalog: %w", err)
	}
	return nil
}
