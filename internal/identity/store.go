package identity

import (
	"context"
	"fmt"

	"landregistry/pkg/domain"
	"landregistry/pkg/platform/sentinel"
)

// Store errors distinguish which uniqueness constraint a create collided
// with; the service maps them to the caller-facing codes.
var (
	ErrCredentialTaken = fmt.Errorf("credential already registered: %w", sentinel.ErrConflict)
	ErrNationalIDTaken = fmt.Errorf("national id already bound: %w", sentinel.ErrConflict)
)

// Store persists identity profiles. Lookups by national id must go through a
// secondary index, never a scan.
type Store interface {
	// Create stores a new profile. Fails with ErrCredentialTaken or
	// ErrNationalIDTaken when either key is already bound.
	Create(ctx context.Context, profile *Profile) error

	// FindByCredential returns the profile for a credential, or
	// sentinel.ErrNotFound.
	FindByCredential(ctx context.Context, cred domain.Credential) (*Profile, error)

	// FindByNationalID resolves a national id to a profile, or
	// sentinel.ErrNotFound. Used to resolve transfer targets at decision
	// time.
	FindByNationalID(ctx context.Context, nationalID domain.NationalID) (*Profile, error)
}
