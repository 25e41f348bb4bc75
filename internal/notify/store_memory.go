package notify

import (
	"context"
	"sync"
)

type InMemoryStore struct {
	mu            sync.RWMutex
	notifications map[Audience][]Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{notifications: make(map[Audience][]Notification)}
}

func (s *InMemoryStore) Append(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.Audience] = append(s.notifications[n.Audience], n)
	return nil
}

func (s *InMemoryStore) ListByAudience(_ context.Context, audience Audience) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Notification{}, s.notifications[audience]...), nil
}
