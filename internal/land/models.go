package land

import (
	"time"

	"landregistry/pkg/domain"
	dErrors "landregistry/pkg/domain-errors"
)

// Status is the registration state of a parcel record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusRegistered Status = "registered"
	StatusRejected   Status = "rejected"
)

var validStatuses = map[Status]bool{
	StatusPending:    true,
	StatusRegistered: true,
	StatusRejected:   true,
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !validStatuses[st] {
		return "", dErrors.New(dErrors.CodeValidation, "unknown status: "+s)
	}
	return st, nil
}

func (s Status) String() string {
	return string(s)
}

// Record is a parcel in the land ledger.
//
// Invariants:
//   - Exactly one of {pending, registered, rejected} holds at any time
//   - Once registered or rejected, the registration decision is final
//   - CurrentOwner is the requester's credential at creation and changes
//     only through an approved transfer
//   - Records are never deleted; land ids are never recycled
type Record struct {
	ID           domain.LandID     `json:"land_id"`
	OwnerName    string            `json:"owner_name"`
	NationalID   domain.NationalID `json:"national_id"`
	TitleNumber  string            `json:"title_number"`
	Location     string            `json:"location"`
	Size         int64             `json:"size"`
	LandType     string            `json:"land_type"`
	CurrentOwner domain.Credential `json:"current_owner"`
	Registered   bool              `json:"registered"`
	Rejected     bool              `json:"rejected"`
	RejectReason string            `json:"reject_reason,omitempty"`
	RequestedAt  time.Time         `json:"requested_at"`
	DecidedAt    *time.Time        `json:"decided_at,omitempty"`
}

// NewRecord validates and constructs a pending record owned by the
// requesting credential.
func NewRecord(id domain.LandID, requester domain.Credential, ownerName string, nationalID domain.NationalID, titleNumber, location string, size int64, landType string, now time.Time) (*Record, error) {
	if ownerName == "" {
		return nil, dErrors.New(dErrors.CodeMissingRequiredField, "owner name is required")
	}
	if nationalID.IsZero() {
		return nil, dErrors.New(dErrors.CodeMissingRequiredField, "national id is required")
	}
	if titleNumber == "" {
		return nil, dErrors.New(dErrors.CodeMissingRequiredField, "title number is required")
	}
	return &Record{
		ID:           id,
		OwnerName:    ownerName,
		NationalID:   nationalID,
		TitleNumber:  titleNumber,
		Location:     location,
		Size:         size,
		LandType:     landType,
		CurrentOwner: requester,
		RequestedAt:  now,
	}, nil
}

// Status derives the lifecycle state from the decision flags.
func (r *Record) Status() Status {
	switch {
	case r.Registered:
		return StatusRegistered
	case r.Rejected:
		return StatusRejected
	default:
		return StatusPending
	}
}

// CanDecide checks that the record still awaits a registration decision.
func (r *Record) CanDecide() error {
	if r.Registered || r.Rejected {
		return dErrors.New(dErrors.CodeAlreadyDecided, "registration already decided for land "+r.ID.String())
	}
	return nil
}

// ApplyApproval marks the record registered. Call CanDecide first.
func (r *Record) ApplyApproval(now time.Time) {
	r.Registered = true
	r.DecidedAt = &now
}

// ApplyRejection marks the record rejected with the mandatory reason,
// permanently excluding it from future approval. Call CanDecide first.
func (r *Record) ApplyRejection(reason string, now time.Time) {
	r.Rejected = true
	r.RejectReason = reason
	r.DecidedAt = &now
}

// ApplyOwnerChange rewrites the current owner. Only an approved transfer
// reaches this.
func (r *Record) ApplyOwnerChange(newOwner domain.Credential) {
	r.CurrentOwner = newOwner
}
