package identity

import (
	"time"

	"landregistry/pkg/domain"
	dErrors "landregistry/pkg/domain-errors"
)

// Profile is the registered identity behind a caller credential.
//
// Invariants:
//   - A credential registers at most once
//   - NationalID is unique across all profiles
//   - Role is immutable after registration (no self-promotion)
//
// Profiles are never deleted and never mutated after creation; the store
// exposes no update path.
type Profile struct {
	Credential   domain.Credential `json:"credential"`
	Name         string            `json:"name"`
	NationalID   domain.NationalID `json:"national_id"`
	Role         domain.Role       `json:"role"`
	RegisteredAt time.Time         `json:"registered_at"`
}

// NewProfile validates and constructs a profile.
func NewProfile(cred domain.Credential, name string, nationalID domain.NationalID, role domain.Role, now time.Time) (*Profile, error) {
	if cred.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "credential is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if nationalID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "national id is required")
	}
	return &Profile{
		Credential:   cred,
		Name:         name,
		NationalID:   nationalID,
		Role:         role,
		RegisteredAt: now,
	}, nil
}

// HasRole reports whether the profile carries the given role.
func (p *Profile) HasRole(role domain.Role) bool {
	return p.Role == role
}
