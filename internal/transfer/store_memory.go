package transfer

import (
	"context"
	"sort"
	"sync"

	"landregistry/pkg/domain"
	"landregistry/pkg/platform/sentinel"
)

// InMemory keeps the open request per land id plus the decided history.
type InMemory struct {
	mu      sync.RWMutex
	open    map[domain.LandID]*Request
	decided []*Request
}

func NewInMemory() *InMemory {
	return &InMemory{open: make(map[domain.LandID]*Request)}
}

func (s *InMemory) Create(_ context.Context, request *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.open[request.LandID]; ok {
		return sentinel.ErrConflict
	}
	stored := *request
	s.open[request.LandID] = &stored
	return nil
}

func (s *InMemory) FindOpen(_ context.Context, landID domain.LandID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.open[landID]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Resolve(_ context.Context, request *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.open[request.LandID]; !ok {
		return sentinel.ErrNotFound
	}
	if request.IsOpen() {
		return sentinel.ErrInvalidState
	}
	delete(s.open, request.LandID)
	stored := *request
	s.decided = append(s.decided, &stored)
	return nil
}

func (s *InMemory) ListDecided(_ context.Context, landID domain.LandID) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var history []*Request
	for _, r := range s.decided {
		if r.LandID == landID {
			copied := *r
			history = append(history, &copied)
		}
	}
	return history, nil
}

func (s *InMemory) ListOpenIDs(_ context.Context) ([]domain.LandID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]domain.LandID, 0, len(s.open))
	for id := range s.open {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
