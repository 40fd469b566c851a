package identity

import (
	"context"
	"sync"

	"landregistry/pkg/domain"
	"landregistry/pkg/platform/sentinel"
)

// InMemory keeps profiles in two maps: the primary keyed by credential and a
// secondary index keyed by national id, so transfer-target resolution never
// scans.
type InMemory struct {
	mu           sync.RWMutex
	byCredential map[domain.Credential]*Profile
	byNationalID map[domain.NationalID]*Profile
}

func NewInMemory() *InMemory {
	return &InMemory{
		byCredential: make(map[domain.Credential]*Profile),
		byNationalID: make(map[domain.NationalID]*Profile),
	}
}

func (s *InMemory) Create(_ context.Context, profile *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byCredential[profile.Credential]; ok {
		return ErrCredentialTaken
	}
	if _, ok := s.byNationalID[profile.NationalID]; ok {
		return ErrNationalIDTaken
	}
	stored := *profile
	s.byCredential[profile.Credential] = &stored
	s.byNationalID[profile.NationalID] = &stored
	return nil
}

func (s *InMemory) FindByCredential(_ context.Context, cred domain.Credential) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.byCredential[cred]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByNationalID(_ context.Context, nationalID domain.NationalID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.byNationalID[nationalID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, sentinel.ErrNotFound
}
