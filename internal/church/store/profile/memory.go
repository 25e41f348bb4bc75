package profile

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"visita/internal/church/models"
	"visita/pkg/platform/sentinel"
)

// InMemory is the development and test implementation of the profile store.
// Profiles are deep-copied on the way in and out so callers can never mutate
// stored state through a shared FieldMap.
type InMemory struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]*models.ChurchProfile
	byParish map[string]uuid.UUID
}

func NewInMemory() *InMemory {
	return &InMemory{
		profiles: make(map[uuid.UUID]*models.ChurchProfile),
		byParish: make(map[string]uuid.UUID),
	}
}

func clone(p *models.ChurchProfile) *models.ChurchProfile {
	copied := *p
	copied.Fields = p.Fields.Clone()
	return &copied
}

// Create stores a new profile. Each parish has at most one profile.
func (s *InMemory) Create(_ context.Context, p *models.ChurchProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[p.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byParish[p.ParishID]; exists {
		return sentinel.ErrConflict
	}
	s.profiles[p.ID] = clone(p)
	s.byParish[p.ParishID] = p.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.ChurchProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

func (s *InMemory) FindByParish(_ context.Context, parishID string) (*models.ChurchProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byParish[parishID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.profiles[id]), nil
}

func (s *InMemory) Update(_ context.Context, p *models.ChurchProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.profiles[p.ID] = clone(p)
	return nil
}

func (s *InMemory) ListByStatus(_ context.Context, status models.ProfileStatus) ([]*models.ChurchProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ChurchProfile
	for _, p := range s.profiles {
		if p.Status == status {
			out = append(out, clone(p))
		}
	}
	return out, nil
}
