package handler

import (
	"time"

	"landregistry/internal/identity"
	"landregistry/internal/land"
	"landregistry/internal/transfer"
	"landregistry/pkg/domain"
)

type registerUserRequest struct {
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
	Role       string `json:"role"`
}

type requestLandRequest struct {
	LandID      int64  `json:"land_id"`
	OwnerName   string `json:"owner_name"`
	NationalID  string `json:"national_id"`
	TitleNumber string `json:"title_number"`
	Location    string `json:"location"`
	Size        int64  `json:"size"`
	LandType    string `json:"land_type"`
}

type rejectLandRequest struct {
	Reason string `json:"reason"`
}

type requestTransferRequest struct {
	ToNationalID      string `json:"to_national_id"`
	ProposedOwnerName string `json:"proposed_owner_name"`
}

type profileResponse struct {
	Credential   string    `json:"credential"`
	Name         string    `json:"name"`
	NationalID   string    `json:"national_id"`
	Role         string    `json:"role"`
	RegisteredAt time.Time `json:"registered_at"`
}

func toProfileResponse(p *identity.Profile) profileResponse {
	return profileResponse{
		Credential:   p.Credential.String(),
		Name:         p.Name,
		NationalID:   p.NationalID.String(),
		Role:         p.Role.String(),
		RegisteredAt: p.RegisteredAt,
	}
}

type landResponse struct {
	LandID       int64      `json:"land_id"`
	Status       string     `json:"status"`
	CurrentOwner string     `json:"current_owner"`
	OwnerName    string     `json:"owner_name"`
	NationalID   string     `json:"national_id"`
	TitleNumber  string     `json:"title_number"`
	Location     string     `json:"location,omitempty"`
	Size         int64      `json:"size,omitempty"`
	LandType     string     `json:"land_type,omitempty"`
	RejectReason string     `json:"reject_reason,omitempty"`
	RequestedAt  time.Time  `json:"requested_at"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
}

func toLandResponse(r *land.Record) landResponse {
	return landResponse{
		LandID:       r.ID.Int64(),
		Status:       string(r.Status()),
		CurrentOwner: r.CurrentOwner.String(),
		OwnerName:    r.OwnerName,
		NationalID:   r.NationalID.String(),
		TitleNumber:  r.TitleNumber,
		Location:     r.Location,
		Size:         r.Size,
		LandType:     r.LandType,
		RejectReason: r.RejectReason,
		RequestedAt:  r.RequestedAt,
		DecidedAt:    r.DecidedAt,
	}
}

func toLandResponses(records []*land.Record) []landResponse {
	out := make([]landResponse, 0, len(records))
	for _, r := range records {
		out = append(out, toLandResponse(r))
	}
	return out
}

type transferResponse struct {
	LandID            int64      `json:"land_id"`
	FromOwner         string     `json:"from_owner"`
	ToNationalID      string     `json:"to_national_id"`
	ProposedOwnerName string     `json:"proposed_owner_name,omitempty"`
	Decision          string     `json:"decision"`
	RequestedAt       time.Time  `json:"requested_at"`
	DecidedAt         *time.Time `json:"decided_at,omitempty"`
}

func toTransferResponse(r *transfer.Request) transferResponse {
	return transferResponse{
		LandID:            r.LandID.Int64(),
		FromOwner:         r.FromOwner.String(),
		ToNationalID:      r.ToNationalID.String(),
		ProposedOwnerName: r.ProposedOwnerName,
		Decision:          string(r.Decision),
		RequestedAt:       r.RequestedAt,
		DecidedAt:         r.DecidedAt,
	}
}

func toLandIDs(ids []domain.LandID) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Int64())
	}
	return out
}
