package domain

import (
	dErrors "landregistry/pkg/domain-errors"
)

// Role classifies a registered identity. The role is fixed at registration
// time; there is no promotion path.
type Role string

const (
	// RoleOwner may request parcel registrations and open transfers for
	// parcels it currently owns.
	RoleOwner Role = "owner"

	// RoleGovernment may approve or reject registrations and transfers.
	RoleGovernment Role = "government"
)

var validRoles = map[Role]bool{
	RoleOwner:      true,
	RoleGovernment: true,
}

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !validRoles[r] {
		return "", dErrors.New(dErrors.CodeValidation, "unknown role: "+s)
	}
	return r, nil
}

func (r Role) String() string {
	return string(r)
}
