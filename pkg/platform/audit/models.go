package audit

import (
	"context"
	"time"

	"landregistry/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance: every state
	// transition of a land record or transfer request. These require long
	// retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted after a command commits. Keep it transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	Category  EventCategory     `json:"category"`
	Timestamp time.Time         `json:"timestamp"`
	Actor     domain.Credential `json:"actor"`
	Action    Action            `json:"action"`
	LandID    int64             `json:"land_id,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// Action names a committed state transition.
type Action string

const (
	ActionUserRegistered    Action = "user_registered"
	ActionLandRequested     Action = "land_registration_requested"
	ActionLandApproved      Action = "land_approved"
	ActionLandRejected      Action = "land_rejected"
	ActionTransferRequested Action = "transfer_requested"
	ActionTransferApproved  Action = "transfer_approved"
	ActionTransferRejected  Action = "transfer_rejected"
)

// Store persists audit events in commit order.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context) ([]Event, error)
}

// Publisher delivers events to an audit sink. Publishing is best-effort:
// a failed emit never fails the command that produced the event.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
