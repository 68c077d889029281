// Package models defines the append-only provenance records attached to a
// passport.
package models

import (
	"strings"
	"time"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

const (
	maxFieldLength   = 256
	maxLocatorLength = 1024
)

// MaterialBatch is a raw material delivery used by the production run.
// ReceivedAt is the time the batch was recorded, ExpiryAt is caller supplied.
type MaterialBatch struct {
	Seq             uint64        `json:"seq"`
	PassportID      id.PassportID `json:"passport_id"`
	BatchNumber     string        `json:"batch_number"`
	MaterialType    string        `json:"material_type"`
	SupplierName    string        `json:"supplier_name"`
	CertificateHash string        `json:"certificate_hash"`
	ReceivedAt      time.Time     `json:"received_at"`
	ExpiryAt        *time.Time    `json:"expiry_at,omitempty"`
	RecordedBy      id.Identity   `json:"recorded_by,omitempty"`
}

// ProcessEvent is one step of the production process.
type ProcessEvent struct {
	Seq              uint64        `json:"seq"`
	PassportID       id.PassportID `json:"passport_id"`
	EventKind        string        `json:"event_kind"`
	OperatorIdentity id.Identity   `json:"operator_identity"`
	Timestamp        time.Time     `json:"timestamp"`
	DataLocator      string        `json:"data_locator"`
	ParametersHash   string        `json:"parameters_hash"`
}

// MaterialBatchRequest carries the caller supplied batch fields.
type MaterialBatchRequest struct {
	BatchNumber     string
	MaterialType    string
	SupplierName    string
	CertificateHash string
	ExpiryAt        *time.Time
}

// Validate trims the request and checks field sizes.
func (r *MaterialBatchRequest) Validate() error {
	r.BatchNumber = strings.TrimSpace(r.BatchNumber)
	r.MaterialType = strings.TrimSpace(r.MaterialType)
	r.SupplierName = strings.TrimSpace(r.SupplierName)
	r.CertificateHash = strings.TrimSpace(r.CertificateHash)

	if r.BatchNumber == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "batch number is required")
	}
	for name, v := range map[string]string{
		"batch number":     r.BatchNumber,
		"material type":    r.MaterialType,
		"supplier name":    r.SupplierName,
		"certificate hash": r.CertificateHash,
	} {
		if len(v) > maxFieldLength {
			return dErrors.Newf(dErrors.CodeInvalidInput, "%s is too long", name)
		}
	}
	return nil
}

// Batch builds the record stored for this request.
func (r MaterialBatchRequest) Batch(passportID id.PassportID, recordedBy id.Identity, now time.Time) MaterialBatch {
	return MaterialBatch{
		PassportID:      passportID,
		BatchNumber:     r.BatchNumber,
		MaterialType:    r.MaterialType,
		SupplierName:    r.SupplierName,
		CertificateHash: r.CertificateHash,
		ReceivedAt:      now,
		ExpiryAt:        r.ExpiryAt,
		RecordedBy:      recordedBy,
	}
}

// ProcessEventRequest carries the caller supplied event fields.
type ProcessEventRequest struct {
	EventKind      string
	DataLocator    string
	ParametersHash string
}

func (r *ProcessEventRequest) Validate() error {
	r.EventKind = strings.TrimSpace(r.EventKind)
	if r.EventKind == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "event kind is required")
	}
	if len(r.EventKind) > maxFieldLength || len(r.ParametersHash) > maxFieldLength {
		return dErrors.New(dErrors.CodeInvalidInput, "event field is too long")
	}
	if len(r.DataLocator) > maxLocatorLength {
		return dErrors.New(dErrors.CodeInvalidInput, "data locator is too long")
	}
	return nil
}

func (r ProcessEventRequest) Event(passportID id.PassportID, operator id.Identity, now time.Time) ProcessEvent {
	return ProcessEvent{
		PassportID:       passportID,
		EventKind:        r.EventKind,
		OperatorIdentity: operator,
		Timestamp:        now,
		DataLocator:      r.DataLocator,
		ParametersHash:   r.ParametersHash,
	}
}
