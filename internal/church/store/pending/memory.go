package pending

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"visita/internal/church/models"
	"visita/pkg/platform/sentinel"
)

// InMemory is the development and test implementation of the pending
// change-set store. It enforces the same one-open-set-per-church constraint
// the Postgres partial unique index does.
type InMemory struct {
	mu   sync.RWMutex
	sets map[uuid.UUID]*models.PendingChangeSet
}

func NewInMemory() *InMemory {
	return &InMemory{sets: make(map[uuid.UUID]*models.PendingChangeSet)}
}

func clone(cs *models.PendingChangeSet) *models.PendingChangeSet {
	copied := *cs
	copied.Fields = cs.Fields.Clone()
	if cs.ResolvedAt != nil {
		t := *cs.ResolvedAt
		copied.ResolvedAt = &t
	}
	return &copied
}

func (s *InMemory) Create(_ context.Context, cs *models.PendingChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sets[cs.ID]; exists {
		return sentinel.ErrConflict
	}
	if cs.IsOpen() {
		for _, existing := range s.sets {
			if existing.ChurchID == cs.ChurchID && existing.IsOpen() {
				return sentinel.ErrConflict
			}
		}
	}
	s.sets[cs.ID] = clone(cs)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.PendingChangeSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.sets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(cs), nil
}

func (s *InMemory) FindOpenByChurch(_ context.Context, churchID uuid.UUID) (*models.PendingChangeSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cs := range s.sets {
		if cs.ChurchID == churchID && cs.IsOpen() {
			return clone(cs), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Update(_ context.Context, cs *models.PendingChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sets[cs.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.sets[cs.ID] = clone(cs)
	return nil
}

func (s *InMemory) ListOpen(_ context.Context) ([]*models.PendingChangeSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PendingChangeSet
	for _, cs := range s.sets {
		if cs.IsOpen() {
			out = append(out, clone(cs))
		}
	}
	return out, nil
}
