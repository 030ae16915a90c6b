package relay

import "sync"

// dedupeWindow remembers the most recent event ids so redelivered events
// (Slack retries on reconnect) are dropped. The window is bounded: once full,
// the oldest id is forgotten. Missing a duplicate is harmless — the cost is
// one duplicate reply, never a crash.
type dedupeWindow struct {
	mu   sync.Mutex
	seen map[string]struct{}
	ring []string
	next int
}

func newDedupeWindow(size int) *dedupeWindow {
	if size < 1 {
		size = 1
	}
	return &dedupeWindow{
		seen: make(map[string]struct{}, size),
		ring: make([]string, size),
	}
}

// Observe records id and reports whether it was seen for the first time.
func (w *dedupeWindow) Observe(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, dup := w.seen[id]; dup {
		return false
	}

	if old := w.ring[w.next]; old != "" {
		delete(w.seen, old)
	}
	w.ring[w.next] = id
	w.next = (w.next + 1) % len(w.ring)
	w.seen[id] = struct{}{}
	return true
}
