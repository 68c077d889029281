package models

import (
	"slices"
	"strings"
	"time"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

const (
	maxLocatorLength = 1024
	maxHashLength    = 256
	maxGradeLength   = 64
	maxFieldLength   = 256
)

// DerivedHashSlot names one of the fixed auxiliary verification hashes.
type DerivedHashSlot string

const (
	// SlotDesignIntent holds the machine instruction (print file) hash.
	SlotDesignIntent DerivedHashSlot = "design_intent"
	SlotMixDesign    DerivedHashSlot = "mix_design"
	SlotLabReport    DerivedHashSlot = "lab_report"
)

// DerivedHashSlots lists every slot in display order.
var DerivedHashSlots = []DerivedHashSlot{SlotDesignIntent, SlotMixDesign, SlotLabReport}

// ParseDerivedHashSlot validates a slot name.
func ParseDerivedHashSlot(s string) (DerivedHashSlot, error) {
	slot := DerivedHashSlot(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(DerivedHashSlots, slot) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown derived hash slot %q", s)
	}
	return slot, nil
}

// Passport is the per production unit identity and lifecycle record.
//
// Invariants:
//   - ID and PackageKey are fixed at creation and map 1:1
//   - Creator, CreatedAt and LabIdentity never change
//   - Version starts at 1 and grows by one per data locator update
//   - each derived hash slot is written at most once
//   - IsActive only goes true to false; IsFinalized only goes false to true
//   - finalization requires an active passport and freezes DataLocator,
//     DerivedHashes, MaterialCertHashes, FinalGrade and CertificationHash
type Passport struct {
	ID                 id.PassportID              `json:"id"`
	PackageKey         string                     `json:"package_key"`
	MaterialID         string                     `json:"material_id"`
	Owner              id.Identity                `json:"owner"`
	Creator            id.Identity                `json:"creator"`
	CreatedAt          time.Time                  `json:"created_at"`
	LabIdentity        id.Identity                `json:"lab_identity,omitempty"`
	DataLocator        string                     `json:"data_locator"`
	Version            uint64                     `json:"version"`
	DerivedHashes      map[DerivedHashSlot]string `json:"derived_hashes"`
	MaterialCertHashes []string                   `json:"material_cert_hashes"`
	IsActive           bool                       `json:"is_active"`
	IsFinalized        bool                       `json:"is_finalized"`
	FinalGrade         string                     `json:"final_grade,omitempty"`
	CertificationHash  string                     `json:"certification_hash,omitempty"`
	UpdatedAt          time.Time                  `json:"updated_at"`
	FinalizedAt        *time.Time                 `json:"finalized_at,omitempty"`
}

// NewPassport builds an active, unfinalized passport at version 1.
func NewPassport(passportID id.PassportID, packageKey, materialID, dataLocator string, creator, lab id.Identity, now time.Time) (*Passport, error) {
	if passportID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "passport id is required")
	}
	if strings.TrimSpace(packageKey) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "package key is required")
	}
	if err := ValidateLocator(dataLocator); err != nil {
		return nil, err
	}
	if creator.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "creator identity is required")
	}
	if len(materialID) > maxFieldLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "material id is too long")
	}
	return &Passport{
		ID:                 passportID,
		PackageKey:         packageKey,
		MaterialID:         materialID,
		Owner:              creator,
		Creator:            creator,
		CreatedAt:          now,
		LabIdentity:        lab,
		DataLocator:        dataLocator,
		Version:            1,
		DerivedHashes:      map[DerivedHashSlot]string{},
		MaterialCertHashes: []string{},
		IsActive:           true,
		UpdatedAt:          now,
	}, nil
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (p *Passport) Clone() *Passport {
	c := *p
	c.DerivedHashes = make(map[DerivedHashSlot]string, len(p.DerivedHashes))
	for k, v := range p.DerivedHashes {
		c.DerivedHashes[k] = v
	}
	c.MaterialCertHashes = append([]string{}, p.MaterialCertHashes...)
	if p.FinalizedAt != nil {
		t := *p.FinalizedAt
		c.FinalizedAt = &t
	}
	return &c
}

// canMutate applies the shared guard order: ownership, lock, activity.
func (p *Passport) canMutate(caller id.Identity) error {
	if caller.IsNil() || caller != p.Owner {
		return dErrors.New(dErrors.CodeForbidden, "caller is not the passport owner")
	}
	if p.IsFinalized {
		return dErrors.New(dErrors.CodeLocked, "passport is finalized")
	}
	if !p.IsActive {
		return dErrors.New(dErrors.CodeInactive, "passport is inactive")
	}
	return nil
}

// CanUpdateDataLocator checks that caller may point the passport at locator.
func (p *Passport) CanUpdateDataLocator(caller id.Identity, locator string) error {
	if err := p.canMutate(caller); err != nil {
		return err
	}
	return ValidateLocator(locator)
}

// ApplyDataLocator sets the locator and bumps the version.
func (p *Passport) ApplyDataLocator(locator string, now time.Time) {
	p.DataLocator = locator
	p.Version++
	p.UpdatedAt = now
}

// CanSetDerivedHash checks the write-once slot rule last.
func (p *Passport) CanSetDerivedHash(caller id.Identity, slot DerivedHashSlot, hash string) error {
	if err := p.canMutate(caller); err != nil {
		return err
	}
	if !slices.Contains(DerivedHashSlots, slot) {
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown derived hash slot %q", slot)
	}
	if err := ValidateHash(hash); err != nil {
		return err
	}
	if p.DerivedHashes[slot] != "" {
		return dErrors.Newf(dErrors.CodeAlreadySet, "derived hash %q is already set", slot)
	}
	return nil
}

func (p *Passport) ApplyDerivedHash(slot DerivedHashSlot, hash string, now time.Time) {
	if p.DerivedHashes == nil {
		p.DerivedHashes = map[DerivedHashSlot]string{}
	}
	p.DerivedHashes[slot] = hash
	p.UpdatedAt = now
}

func (p *Passport) CanAppendMaterialCertHash(caller id.Identity, hash string) error {
	if err := p.canMutate(caller); err != nil {
		return err
	}
	return ValidateHash(hash)
}

func (p *Passport) ApplyMaterialCertHash(hash string, now time.Time) {
	p.MaterialCertHashes = append(p.MaterialCertHashes, hash)
	p.UpdatedAt = now
}

// CanDeactivate allows the owner to retire an active, unfinalized passport.
func (p *Passport) CanDeactivate(caller id.Identity) error {
	if caller.IsNil() || caller != p.Owner {
		return dErrors.New(dErrors.CodeForbidden, "caller is not the passport owner")
	}
	if p.IsFinalized {
		return dErrors.New(dErrors.CodeLocked, "passport is finalized")
	}
	if !p.IsActive {
		return dErrors.New(dErrors.CodeAlreadyInactive, "passport is already inactive")
	}
	return nil
}

func (p *Passport) ApplyDeactivation(now time.Time) {
	p.IsActive = false
	p.UpdatedAt = now
}

func (p *Passport) CanFinalize(caller id.Identity, grade, certificationHash string) error {
	if err := p.canMutate(caller); err != nil {
		return err
	}
	grade = strings.TrimSpace(grade)
	if grade == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "final grade is required")
	}
	if len(grade) > maxGradeLength {
		return dErrors.New(dErrors.CodeInvalidInput, "final grade is too long")
	}
	return ValidateHash(certificationHash)
}

// ApplyFinalization sets grade, certification hash and the lock together.
func (p *Passport) ApplyFinalization(grade, certificationHash string, now time.Time) {
	p.FinalGrade = strings.TrimSpace(grade)
	p.CertificationHash = certificationHash
	p.IsFinalized = true
	p.FinalizedAt = &now
	p.UpdatedAt = now
}

// CanTransfer checks ownership only. Ownership is not frozen by finalization.
func (p *Passport) CanTransfer(caller, newOwner id.Identity) error {
	if caller.IsNil() || caller != p.Owner {
		return dErrors.New(dErrors.CodeForbidden, "caller is not the passport owner")
	}
	if newOwner.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "new owner is required")
	}
	return nil
}

func (p *Passport) ApplyTransfer(newOwner id.Identity, now time.Time) {
	p.Owner = newOwner
	p.UpdatedAt = now
}

// ValidateLocator checks a data locator. Locators are opaque; only presence
// and size are checked.
func ValidateLocator(locator string) error {
	if strings.TrimSpace(locator) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "data locator is required")
	}
	if len(locator) > maxLocatorLength {
		return dErrors.New(dErrors.CodeInvalidInput, "data locator is too long")
	}
	return nil
}

// ValidateHash checks an opaque hash value.
func ValidateHash(hash string) error {
	if strings.TrimSpace(hash) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "hash is required")
	}
	if len(hash) > maxHashLength {
		return dErrors.New(dErrors.CodeInvalidInput, "hash is too long")
	}
	return nil
}
