package warnings

import (
	"sync"
	"time"
)

// DefaultHistorySize bounds the in-memory warning history.
const DefaultHistorySize = 500

// History is a fixed-capacity ring of recent warnings. Once full, new
// entries overwrite the oldest.
type History struct {
	mu       sync.RWMutex
	entries  []Record
	size     int
	writePos int
	count    int
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		entries: make([]Record, size),
		size:    size,
	}
}

func (h *History) Add(rec Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.writePos] = rec
	h.writePos = (h.writePos + 1) % h.size
	if h.count < h.size {
		h.count++
	}
}

// Recent returns up to limit entries, newest first. A negative or zero
// category filters nothing when cat is nil.
func (h *History) Recent(limit int, cat *Category, since time.Duration) []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	var cutoff time.Time
	if since > 0 {
		cutoff = time.Now().Add(-since)
	}

	out := make([]Record, 0, limit)
	for i := 0; i < h.count && len(out) < limit; i++ {
		pos := (h.writePos - 1 - i + h.size) % h.size
		rec := h.entries[pos]
		if cat != nil && rec.Category != *cat {
			continue
		}
		if since > 0 && rec.Time.Before(cutoff) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
