package graph

import (
	"fmt"
	"io"
	"sync"
)

// Display is the element the API caller writes its result into. Each SetText
// replaces the previous text.
type Display interface {
	SetText(text string)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(text string)

// SetText calls f(text).
func (f DisplayFunc) SetText(text string) { f(text) }

// Result is an in-memory result element. It is safe for concurrent use; when
// calls overlap, the last SetText wins.
type Result struct {
	mu   sync.RWMutex
	text string
}

// SetText replaces the current text.
func (r *Result) SetText(text string) {
	r.mu.Lock()
	r.text = text
	r.mu.Unlock()
}

// Text returns the current text.
func (r *Result) Text() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.text
}

// WriterDisplay prints every text it is given, one per line.
type WriterDisplay struct {
	mu sync.Mutex
	W  io.Writer
}

// SetText writes text followed by a newline.
func (d *WriterDisplay) SetText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.W, text)
}
