package store

import (
	"context"
	"sync"
)

// MemoryLog keeps the last maxEntries entries of every chat in memory.
type MemoryLog struct {
	mu         sync.RWMutex
	chats      map[string][]Entry
	maxEntries int
}

func NewMemoryLog(maxEntries int) *MemoryLog {
	return &MemoryLog{
		chats:      make(map[string][]Entry),
		maxEntries: maxEntries,
	}
}

func (m *MemoryLog) Append(_ context.Context, e Entry) (Entry, error) {
	e = stamp(e)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[e.ChatKey] = append(m.chats[e.ChatKey], e)
	m.trimLocked(e.ChatKey)
	return e, nil
}

func (m *MemoryLog) Recent(_ context.Context, chatKey string, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.chats[chatKey]
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return reversed(entries), nil
}

func (m *MemoryLog) trimLocked(chatKey string) {
	if m.maxEntries <= 0 {
		return
	}
	entries := m.chats[chatKey]
	if len(entries) > m.maxEntries {
		m.chats[chatKey] = append([]Entry(nil), entries[len(entries)-m.maxEntries:]...)
	}
}
