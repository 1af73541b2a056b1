package manager

import (
	"sync"
	"time"
)

// DefaultLogCapacity is the number of child output lines retained.
const DefaultLogCapacity = 500

// LogBuffer is a fixed-capacity ring of output lines. The oldest line is
// evicted when a new one arrives at capacity.
type LogBuffer struct {
	mu    sync.RWMutex
	lines []LogLine
	start int // index of the oldest line
	n     int
	seq   uint64
}

// NewLogBuffer returns a ring holding at most capacity lines.
func NewLogBuffer(capacity int) *LogBuffer {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &LogBuffer{lines: make([]LogLine, capacity)}
}

// Append adds a line and returns the stored entry.
func (b *LogBuffer) Append(text string) LogLine {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	ln := LogLine{Seq: b.seq, Time: time.Now(), Text: text}
	if b.n < len(b.lines) {
		b.lines[(b.start+b.n)%len(b.lines)] = ln
		b.n++
		return ln
	}
	b.lines[b.start] = ln
	b.start = (b.start + 1) % len(b.lines)
	return ln
}

// Tail returns a copy of the most recent n lines, oldest first.
// n <= 0 or n larger than the buffer returns every retained line.
func (b *LogBuffer) Tail(n int) []LogLine {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 || n > b.n {
		n = b.n
	}
	out := make([]LogLine, n)
	first := b.start + b.n - n
	for i := 0; i < n; i++ {
		out[i] = b.lines[(first+i)%len(b.lines)]
	}
	return out
}

// Len returns the number of retained lines.
func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.n
}

// Cap returns the fixed capacity.
func (b *LogBuffer) Cap() int { return len(b.lines) }
