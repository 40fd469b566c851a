//go:build integration

package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"landregistry/internal/identity"
	"landregistry/pkg/domain"
	"landregistry/pkg/platform/sentinel"
	"landregistry/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *identity.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T(), "../../migrations/001_init.sql")
	s.store = identity.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "identities"))
}

func newProfile(cred domain.Credential, nationalID domain.NationalID) *identity.Profile {
	return &identity.Profile{
		Credential:   cred,
		Name:         "Tester",
		NationalID:   nationalID,
		Role:         domain.RoleOwner,
		RegisteredAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	profile := newProfile("0xalice", "ID-100")
	s.Require().NoError(s.store.Create(ctx, profile))

	byCred, err := s.store.FindByCredential(ctx, "0xalice")
	s.Require().NoError(err)
	s.Equal(profile.NationalID, byCred.NationalID)
	s.Equal(profile.RegisteredAt, byCred.RegisteredAt.UTC())

	byNatID, err := s.store.FindByNationalID(ctx, "ID-100")
	s.Require().NoError(err)
	s.Equal(profile.Credential, byNatID.Credential)
}

func (s *PostgresStoreSuite) TestCredentialUnique() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newProfile("0xalice", "ID-100")))

	err := s.store.Create(ctx, newProfile("0xalice", "ID-101"))
	s.ErrorIs(err, identity.ErrCredentialTaken)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestNationalIDUnique() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newProfile("0xalice", "ID-100")))

	err := s.store.Create(ctx, newProfile("0xbob", "ID-100"))
	s.ErrorIs(err, identity.ErrNationalIDTaken)

	_, err = s.store.FindByCredential(ctx, "0xbob")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
