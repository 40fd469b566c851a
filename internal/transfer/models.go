package transfer

import (
	"time"

	"landregistry/pkg/domain"
	dErrors "landregistry/pkg/domain-errors"
)

// Decision is the state of a transfer request.
type Decision string

const (
	DecisionOpen     Decision = "open"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Request is an ownership-transfer request for a parcel.
//
// Invariants:
//   - At most one Open request per land id at a time
//   - Only the parcel's current owner may open one
//   - Only a registered parcel may be transferred
//   - Decided exactly once, by a Government caller
//
// The proposed new owner is referenced by national id and resolved against
// the identity registry at decision time, not at request time, so the new
// owner's registration can happen after the request.
type Request struct {
	LandID            domain.LandID     `json:"land_id"`
	FromOwner         domain.Credential `json:"from_owner"`
	ToNationalID      domain.NationalID `json:"to_national_id"`
	ProposedOwnerName string            `json:"proposed_owner_name,omitempty"`
	Decision          Decision          `json:"decision"`
	RequestedAt       time.Time         `json:"requested_at"`
	DecidedAt         *time.Time        `json:"decided_at,omitempty"`
}

// NewRequest validates and constructs an open transfer request.
func NewRequest(landID domain.LandID, fromOwner domain.Credential, toNationalID domain.NationalID, proposedOwnerName string, now time.Time) (*Request, error) {
	if toNationalID.IsZero() {
		return nil, dErrors.New(dErrors.CodeMissingRequiredField, "proposed owner national id is required")
	}
	return &Request{
		LandID:            landID,
		FromOwner:         fromOwner,
		ToNationalID:      toNationalID,
		ProposedOwnerName: proposedOwnerName,
		Decision:          DecisionOpen,
		RequestedAt:       now,
	}, nil
}

// IsOpen reports whether the request still awaits a decision.
func (r *Request) IsOpen() bool {
	return r.Decision == DecisionOpen
}

// CanDecide checks that the request is still open.
func (r *Request) CanDecide() error {
	if !r.IsOpen() {
		return dErrors.New(dErrors.CodeAlreadyDecided, "transfer already decided for land "+r.LandID.String())
	}
	return nil
}

// ApplyApproval marks the request approved. Call CanDecide first; the caller
// is responsible for rewriting the land record's owner in the same commit.
func (r *Request) ApplyApproval(now time.Time) {
	r.Decision = DecisionApproved
	r.DecidedAt = &now
}

// ApplyRejection marks the request rejected, leaving ownership untouched.
// A fresh request may be opened for the same parcel afterward.
func (r *Request) ApplyRejection(now time.Time) {
	r.Decision = DecisionRejected
	r.DecidedAt = &now
}
