package navigation

import "sync"

// Entry is one recorded history push.
type Entry struct {
	Path  string
	State View
}

// MemoryHost records history pushes and scrolls. It backs server-side
// rendering of the controller and the tests.
type MemoryHost struct {
	mu      sync.Mutex
	entries []Entry
	scrolls int
}

// NewMemoryHost returns an empty host.
func NewMemoryHost() *MemoryHost {
	return &MemoryHost{}
}

// PushState appends a history entry.
func (h *MemoryHost) PushState(state View, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, Entry{Path: path, State: state})
}

// ScrollToTop counts viewport resets.
func (h *MemoryHost) ScrollToTop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scrolls++
}

// Entries returns a copy of the recorded history.
func (h *MemoryHost) Entries() []Entry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Scrolls returns how many times the viewport was reset.
func (h *MemoryHost) Scrolls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scrolls
}

// Last returns the most recent entry, if any.
func (h *MemoryHost) Last() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[len(h.entries)-1], true
}
