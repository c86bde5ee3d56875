package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/tutor/config"
)

// InMemoryStore keeps session history in process memory. Session lifetime
// is the process; there is no expiry.
type InMemoryStore struct {
	maxHistory int

	mu       sync.RWMutex
	sessions map[string][]Exchange
}

func NewInMemoryStore(cfg config.SessionConfig) *InMemoryStore {
	max := cfg.MaxHistory
	if max < 1 {
		max = 2
	}
	return &InMemoryStore{maxHistory: max, sessions: make(map[string][]Exchange)}
}

func (s *InMemoryStore) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = nil
	s.mu.Unlock()
	return id, nil
}

func (s *InMemoryStore) HistoryText(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FlattenExchanges(s.sessions[id]), nil
}

func (s *InMemoryStore) AddExchange(ctx context.Context, id, user, assistant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.sessions[id], Exchange{User: user, Assistant: assistant})
	if len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}
	s.sessions[id] = history
	return nil
}

func (s *InMemoryStore) Clear(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}
