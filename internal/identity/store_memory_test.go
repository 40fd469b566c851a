package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landregistry/pkg/domain"
	"landregistry/pkg/platform/sentinel"
)

type IdentityStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *IdentityStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestIdentityStoreSuite(t *testing.T) {
	suite.Run(t, new(IdentityStoreSuite))
}

func (s *IdentityStoreSuite) newProfile(cred, nationalID string) *Profile {
	return &Profile{
		Credential:   domain.Credential(cred),
		Name:         "Asha Mwangi",
		NationalID:   domain.NationalID(nationalID),
		Role:         domain.RoleOwner,
		RegisteredAt: time.Now(),
	}
}

func (s *IdentityStoreSuite) TestCreateAndLookups() {
	s.Run("creates and finds by credential", func() {
		p := s.newProfile("0xaaa1", "ID-100")
		s.Require().NoError(s.store.Create(s.ctx, p))

		found, err := s.store.FindByCredential(s.ctx, "0xaaa1")
		s.Require().NoError(err)
		s.Equal(p.Name, found.Name)
		s.Equal(p.NationalID, found.NationalID)
	})

	s.Run("finds by national id", func() {
		p := s.newProfile("0xaaa2", "ID-200")
		s.Require().NoError(s.store.Create(s.ctx, p))

		found, err := s.store.FindByNationalID(s.ctx, "ID-200")
		s.Require().NoError(err)
		s.Equal(domain.Credential("0xaaa2"), found.Credential)
	})

	s.Run("returns ErrNotFound for unknown keys", func() {
		_, err := s.store.FindByCredential(s.ctx, "0xdead")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByNationalID(s.ctx, "ID-999")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *IdentityStoreSuite) TestUniqueness() {
	s.Run("rejects duplicate credential", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newProfile("0xbbb1", "ID-301")))

		err := s.store.Create(s.ctx, s.newProfile("0xbbb1", "ID-302"))
		s.Require().ErrorIs(err, ErrCredentialTaken)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("rejects duplicate national id under a different credential", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newProfile("0xccc1", "ID-400")))

		err := s.store.Create(s.ctx, s.newProfile("0xccc2", "ID-400"))
		s.Require().ErrorIs(err, ErrNationalIDTaken)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("failed create leaves the first profile untouched", func() {
		first := s.newProfile("0xddd1", "ID-500")
		s.Require().NoError(s.store.Create(s.ctx, first))
		s.Require().Error(s.store.Create(s.ctx, s.newProfile("0xddd1", "ID-501")))

		found, err := s.store.FindByCredential(s.ctx, "0xddd1")
		s.Require().NoError(err)
		s.Equal(domain.NationalID("ID-500"), found.NationalID)
	})
}

func (s *IdentityStoreSuite) TestReturnedProfilesAreCopies() {
	p := s.newProfile("0xeee1", "ID-600")
	s.Require().NoError(s.store.Create(s.ctx, p))

	found, err := s.store.FindByCredential(s.ctx, "0xeee1")
	s.Require().NoError(err)
	found.Role = domain.RoleGovernment

	again, err := s.store.FindByCredential(s.ctx, "0xeee1")
	s.Require().NoError(err)
	s.Equal(domain.RoleOwner, again.Role)
}
