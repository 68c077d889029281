package models

import (
	"strings"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

// CreateRequest carries the caller supplied fields of a new passport.
type CreateRequest struct {
	PackageKey  string
	MaterialID  string
	DataLocator string
	LabIdentity id.Identity
}

// Normalize trims the package key.
func (r *CreateRequest) Normalize() {
	r.PackageKey = strings.TrimSpace(r.PackageKey)
}

// Validate checks every field NewPassport checks, so a request that passes
// cannot fail after its package key is allocated. Key syntax is left to the
// identity ledger, which rejects before mapping.
func (r CreateRequest) Validate(creator id.Identity) error {
	if creator.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	if strings.TrimSpace(r.PackageKey) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "package key is required")
	}
	if err := ValidateLocator(r.DataLocator); err != nil {
		return err
	}
	if len(r.MaterialID) > maxFieldLength {
		return dErrors.New(dErrors.CodeInvalidInput, "material id is too long")
	}
	return nil
}
