package playback

import "sync"

// History remembers the most recently started tracks of one session, newest
// first. It is in-memory only and intentionally outlives the controller, so
// a session torn down by the idle timeout keeps its history.
type History struct {
	mu      sync.Mutex
	entries []PlayRequest
	max     int
}

func NewHistory(max int) *History {
	if max <= 0 {
		max = 1
	}
	return &History{max: max}
}

// Record prepends a played request, dropping the oldest entry past the cap.
func (h *History) Record(req PlayRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append([]PlayRequest{req}, h.entries...)
	if len(h.entries) > h.max {
		h.entries = h.entries[:h.max]
	}
}

// Recent returns up to limit entries, newest first.
func (h *History) Recent(limit int) []PlayRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit > len(h.entries) || limit <= 0 {
		limit = len(h.entries)
	}
	out := make([]PlayRequest, limit)
	copy(out, h.entries[:limit])
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
