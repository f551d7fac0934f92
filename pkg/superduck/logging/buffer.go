package logging

import "sync"

// DefaultBufferSize is the number of entries kept for the TUI log pane.
const DefaultBufferSize = 100

// Buffer is a fixed-size ring of recent entries.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	start   int
	count   int
}

// NewBuffer returns a buffer holding at most size entries.
func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{entries: make([]Entry, size)}
}

// Add appends an entry, overwriting the oldest when full.
func (b *Buffer) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[(b.start+b.count)%len(b.entries)] = e
	if b.count < len(b.entries) {
		b.count++
	} else {
		b.start = (b.start + 1) % len(b.entries)
	}
}

// Last returns up to n of the newest entries, oldest first.
func (b *Buffer) Last(n int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.count {
		n = b.count
	}
	out := make([]Entry, n)
	offset := b.count - n
	for i := range out {
		out[i] = b.entries[(b.start+offset+i)%len(b.entries)]
	}
	return out
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
