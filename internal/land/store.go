package land

import (
	"context"

	"landregistry/pkg/domain"
)

// Store persists land records. List results are ordered by land id
// ascending; callers display decisions in audit order and an implementation
// that reorders on access is a correctness bug.
type Store interface {
	// Create stores a new pending record. Fails with sentinel.ErrConflict
	// when the id was ever used before; ids are not recycled.
	Create(ctx context.Context, record *Record) error

	// FindByID returns the record, or sentinel.ErrNotFound.
	FindByID(ctx context.Context, id domain.LandID) (*Record, error)

	// Update persists decision flags and owner changes. Fails with
	// sentinel.ErrNotFound for an unknown id.
	Update(ctx context.Context, record *Record) error

	// ListIDs returns every land id ever requested, ascending.
	ListIDs(ctx context.Context) ([]domain.LandID, error)

	// ListByStatus returns records in the given state, ascending by id.
	ListByStatus(ctx context.Context, status Status) ([]*Record, error)

	// ListByOwner returns records currently owned by cred, ascending by id.
	ListByOwner(ctx context.Context, cred domain.Credential) ([]*Record, error)
}
