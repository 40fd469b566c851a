// Package domain holds the primitive identifier types shared across the
// registry. Construct values via the Parse functions at trust boundaries;
// direct casting bypasses validation.
package domain

import (
	"strconv"
	"strings"

	dErrors "landregistry/pkg/domain-errors"
)

// Credential is the opaque identifier of an authenticated caller, the
// wallet-equivalent address. Credentials are case-normalized so two spellings
// of the same address cannot register twice.
type Credential string

// ParseCredential normalizes and validates a caller credential.
func ParseCredential(s string) (Credential, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "credential must not be empty")
	}
	return Credential(s), nil
}

func (c Credential) String() string {
	return string(c)
}

// IsZero reports whether the credential is unset.
func (c Credential) IsZero() bool {
	return c == ""
}

// NationalID is the externally issued identifier of a real person. It is
// human-assigned and unique across the identity registry.
type NationalID string

// ParseNationalID validates a national identifier.
func ParseNationalID(s string) (NationalID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "national id must not be empty")
	}
	return NationalID(s), nil
}

func (n NationalID) String() string {
	return string(n)
}

// IsZero reports whether the national id is unset.
func (n NationalID) IsZero() bool {
	return n == ""
}

// LandID is the caller-chosen key of a parcel record. Valid ids are strictly
// positive; ids are never recycled for the lifetime of the ledger.
type LandID int64

// ParseLandID validates a land identifier.
func ParseLandID(v int64) (LandID, error) {
	if v <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidID, "land id must be a positive integer")
	}
	return LandID(v), nil
}

func (l LandID) Int64() int64 {
	return int64(l)
}

func (l LandID) String() string {
	return strconv.FormatInt(int64(l), 10)
}
