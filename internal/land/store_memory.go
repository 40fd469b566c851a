package land

import (
	"context"
	"sort"
	"sync"

	"landregistry/pkg/domain"
	"landregistry/pkg/platform/sentinel"
)

// InMemory keeps records in a map plus a sorted id slice so listings come
// back in ascending id order without re-sorting on every read.
type InMemory struct {
	mu      sync.RWMutex
	records map[domain.LandID]*Record
	ids     []domain.LandID
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[domain.LandID]*Record)}
}

func (s *InMemory) Create(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; ok {
		return sentinel.ErrConflict
	}
	stored := *record
	s.records[record.ID] = &stored

	i := sort.Search(len(s.ids), func(i int) bool { return s.ids[i] >= record.ID })
	s.ids = append(s.ids, 0)
	copy(s.ids[i+1:], s.ids[i:])
	s.ids[i] = record.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.LandID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.records[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Update(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; !ok {
		return sentinel.ErrNotFound
	}
	stored := *record
	s.records[record.ID] = &stored
	return nil
}

func (s *InMemory) ListIDs(_ context.Context) ([]domain.LandID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LandID, len(s.ids))
	copy(out, s.ids)
	return out, nil
}

func (s *InMemory) ListByStatus(_ context.Context, status Status) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for _, id := range s.ids {
		if r := s.records[id]; r.Status() == status {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemory) ListByOwner(_ context.Context, cred domain.Credential) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for _, id := range s.ids {
		if r := s.records[id]; r.CurrentOwner == cred {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}
