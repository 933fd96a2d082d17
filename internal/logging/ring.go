package logging

import (
	"strings"
	"sync"
)

// Ring is a bounded buffer of recent log lines. The broadcaster ships
// its tail to connected dashboards, so it never grows past its limit.
type Ring struct {
	mu    sync.Mutex
	lines []string
	limit int
}

// NewRing constructs a ring keeping at most limit lines.
func NewRing(limit int) *Ring {
	if limit <= 0 {
		limit = 200
	}
	return &Ring{lines: make([]string, 0, limit), limit: limit}
}

// Write implements io.Writer so the ring can sit behind io.MultiWriter.
func (r *Ring) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	if line == "" {
		return len(p), nil
	}
	r.mu.Lock()
	r.lines = append(r.lines, line)
	if len(r.lines) > r.limit {
		r.lines = r.lines[len(r.lines)-r.limit:]
	}
	r.mu.Unlock()
	return len(p), nil
}

// Tail returns up to n most recent lines, oldest first.
func (r *Ring) Tail(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.lines) {
		n = len(r.lines)
	}
	out := make([]string, n)
	copy(out, r.lines[len(r.lines)-n:])
	return out
}
