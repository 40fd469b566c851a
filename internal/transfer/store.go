package transfer

import (
	"context"

	"landregistry/pkg/domain"
)

// Store persists transfer requests. Decided requests are kept as history;
// the open request, when one exists, is the only mutable row per land id.
type Store interface {
	// Create stores a new open request. Fails with sentinel.ErrConflict
	// when an open request already exists for the land id.
	Create(ctx context.Context, request *Request) error

	// FindOpen returns the open request for a land id, or
	// sentinel.ErrNotFound.
	FindOpen(ctx context.Context, landID domain.LandID) (*Request, error)

	// Resolve persists the decision on the open request for the land id.
	// Fails with sentinel.ErrNotFound when no open request exists.
	Resolve(ctx context.Context, request *Request) error

	// ListOpenIDs returns land ids with an open request, ascending.
	ListOpenIDs(ctx context.Context) ([]domain.LandID, error)

	// ListDecided returns the resolved requests for a land id in decision
	// order, oldest first. Empty when the parcel has no transfer history.
	ListDecided(ctx context.Context, landID domain.LandID) ([]*Request, error)
}
