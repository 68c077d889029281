// Package models defines validation records, consensus status and lab test
// results.
package models

import (
	"time"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

// DefaultRequiredValidations is the number of distinct passing validators
// consensus needs unless configured otherwise.
const DefaultRequiredValidations = 3

const (
	maxLocatorLength   = 1024
	maxSignatureLength = 4096
)

// ValidationRecord is one validator's pass/fail attestation. The signature is
// stored as given and never verified.
type ValidationRecord struct {
	Seq               uint64        `json:"seq"`
	PassportID        id.PassportID `json:"passport_id"`
	ValidatorIdentity id.Identity   `json:"validator_identity"`
	Timestamp         time.Time     `json:"timestamp"`
	Passed            bool          `json:"passed"`
	ReportLocator     string        `json:"report_locator"`
	Signature         []byte        `json:"signature,omitempty"`
}

// SubmitRequest carries a validator's submission.
type SubmitRequest struct {
	Passed        bool
	ReportLocator string
	Signature     []byte
}

func (r SubmitRequest) Validate() error {
	if len(r.ReportLocator) > maxLocatorLength {
		return dErrors.New(dErrors.CodeInvalidInput, "report locator is too long")
	}
	if len(r.Signature) > maxSignatureLength {
		return dErrors.New(dErrors.CodeInvalidInput, "signature is too long")
	}
	return nil
}

// ConsensusStatus summarizes the submissions for one passport. Total counts
// every record; Passed counts validators whose latest submission passed.
type ConsensusStatus struct {
	PassportID id.PassportID `json:"passport_id"`
	Total      int           `json:"total"`
	Passed     int           `json:"passed"`
	Validators int           `json:"validators"`
	Required   int           `json:"required"`
	Reached    bool          `json:"reached"`
}

// Tally computes the consensus status from records in insertion order. Each
// validator contributes one vote, its most recent.
func Tally(passportID id.PassportID, records []ValidationRecord, required int) ConsensusStatus {
	latest := make(map[id.Identity]bool, len(records))
	for _, r := range records {
		latest[r.ValidatorIdentity] = r.Passed
	}
	passed := 0
	for _, ok := range latest {
		if ok {
			passed++
		}
	}
	return ConsensusStatus{
		PassportID: passportID,
		Total:      len(records),
		Passed:     passed,
		Validators: len(latest),
		Required:   required,
		Reached:    passed >= required,
	}
}
