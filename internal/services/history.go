package services

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Riboost-Studio/traceability-label-bridge/internal/model"
)

// History keeps the most recent gateway invocations. The oldest entry is
// evicted once the size is reached.
type History struct {
	cache *lru.Cache[string, model.HistoryEntry]
}

func NewHistory(size int) (*History, error) {
	cache, err := lru.New[string, model.HistoryEntry](size)
	if err != nil {
		return nil, err
	}
	return &History{cache: cache}, nil
}

// Record stores entry under a fresh id and returns it.
func (h *History) Record(entry model.HistoryEntry) string {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	h.cache.Add(entry.ID, entry)
	return entry.ID
}

// Entries lists the recorded invocations, oldest first.
func (h *History) Entries() []model.HistoryEntry {
	return h.cache.Values()
}

func (h *History) Len() int {
	return h.cache.Len()
}
