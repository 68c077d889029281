package models

import (
	"strings"
	"time"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

// DefaultReputation is the median of the 0-1000 reputation scale. No
// operation changes a validator's score after registration.
const DefaultReputation = 500

const maxFieldLength = 256

// Validator is a registered third party entitled to attest to passports.
type Validator struct {
	Identity            id.Identity `json:"identity"`
	OrganizationName    string      `json:"organization_name"`
	CertificationNumber string      `json:"certification_number"`
	RegisteredAt        time.Time   `json:"registered_at"`
	ValidationCount     uint64      `json:"validation_count"`
	ReputationScore     int         `json:"reputation_score"`
	IsActive            bool        `json:"is_active"`
}

// NewValidator validates registration fields and returns an active validator.
func NewValidator(identity id.Identity, organization, certificationNumber string, now time.Time) (*Validator, error) {
	if identity.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "validator identity is required")
	}
	organization = strings.TrimSpace(organization)
	certificationNumber = strings.TrimSpace(certificationNumber)
	if organization == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "organization name is required")
	}
	if certificationNumber == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "certification number is required")
	}
	if len(organization) > maxFieldLength || len(certificationNumber) > maxFieldLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "validator field is too long")
	}
	return &Validator{
		Identity:            identity,
		OrganizationName:    organization,
		CertificationNumber: certificationNumber,
		RegisteredAt:        now,
		ReputationScore:     DefaultReputation,
		IsActive:            true,
	}, nil
}

// IsAuthorized reports whether the validator may submit validations.
func (v *Validator) IsAuthorized() bool {
	return v != nil && v.IsActive
}
