package service

import (
	"sync"

	"github.com/askdocs/askdocs/internal/model"
)

// HistoryLog is a bounded append-only log of answered queries. Eviction is
// FIFO: once the limit is reached the oldest entry goes, regardless of how
// often newer entries were read.
type HistoryLog struct {
	mu      sync.Mutex
	limit   int
	entries []model.HistoryEntry
}

func NewHistoryLog(limit int) *HistoryLog {
	if limit <= 0 {
		limit = 50
	}
	return &HistoryLog{limit: limit}
}

func (h *HistoryLog) Append(entry model.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

// Entries returns a copy, newest first.
func (h *HistoryLog) Entries() []model.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]model.HistoryEntry, 0, len(h.entries))
	for i := len(h.entries) - 1; i >= 0; i-- {
		out = append(out, h.entries[i])
	}
	return out
}
