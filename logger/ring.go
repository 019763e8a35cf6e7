package logger

import (
	"bytes"
	"sync"
)

// Ring is an io.Writer that keeps the last N complete lines written to it.
// The debug pane reads it while the gaze client goroutine writes to it.
type Ring struct {
	mu      sync.Mutex
	lines   []string
	max     int
	partial []byte
	total   int
}

// NewRing returns a Ring holding up to max lines.
func NewRing(max int) *Ring {
	if max < 1 {
		max = 1
	}
	return &Ring{max: max}
}

// Write splits p into lines. A trailing fragment without a newline is held
// until the rest of the line arrives.
func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := p
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			r.partial = append(r.partial, data...)
			break
		}
		line := string(r.partial) + string(data[:i])
		r.partial = r.partial[:0]
		r.push(line)
		data = data[i+1:]
	}
	return len(p), nil
}

func (r *Ring) push(line string) {
	r.lines = append(r.lines, line)
	if len(r.lines) > r.max {
		r.lines = r.lines[len(r.lines)-r.max:]
	}
	r.total++
}

// Lines returns a copy of the buffered lines, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Total returns how many lines have ever been written, including evicted ones.
func (r *Ring) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}
