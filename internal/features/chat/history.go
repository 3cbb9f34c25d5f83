// Package chat — history.go: хранилища истории диалогов.
package chat

import (
	"context"
	"sync"
)

// HistoryStore хранит историю по пользователям.
// Get для неизвестного пользователя возвращает пустой срез без ошибки.
type HistoryStore interface {
	Get(ctx context.Context, userID int64) ([]Message, error)
	Save(ctx context.Context, userID int64, history []Message) error
	Clear(ctx context.Context, userID int64) error
}

// MemoryHistory держит историю в памяти процесса. После перезапуска она теряется.
type MemoryHistory struct {
	mu      sync.RWMutex
	history map[int64][]Message
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{history: make(map[int64][]Message)}
}

var _ HistoryStore = (*MemoryHistory)(nil)

func (m *MemoryHistory) Get(_ context.Context, userID int64) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Message(nil), m.history[userID]...), nil
}

func (m *MemoryHistory) Save(_ context.Context, userID int64, history []Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[userID] = append([]Message(nil), history...)
	return nil
}

func (m *MemoryHistory) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, userID)
	return nil
}
