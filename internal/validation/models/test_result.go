package models

import (
	"strings"
	"time"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

const maxSummaryLength = 1024

// TestKind is the laboratory test performed.
type TestKind string

const (
	KindCompression   TestKind = "compression"
	KindFlexural      TestKind = "flexural"
	KindTensile       TestKind = "tensile"
	KindUltrasonic    TestKind = "ultrasonic"
	KindReboundHammer TestKind = "rebound_hammer"
	KindDurability    TestKind = "durability"
	KindChemical      TestKind = "chemical"
	KindOther         TestKind = "other"
)

var testKinds = []TestKind{
	KindCompression, KindFlexural, KindTensile, KindUltrasonic,
	KindReboundHammer, KindDurability, KindChemical, KindOther,
}

// ParseTestKind accepts snake_case or CamelCase names, case-insensitively.
func ParseTestKind(s string) (TestKind, error) {
	compact := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range testKinds {
		if strings.ReplaceAll(string(k), "_", "") == compact {
			return k, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown test kind %q", s)
}

// TestStatus is the review state of a test result.
type TestStatus string

const (
	StatusPending   TestStatus = "pending"
	StatusValidated TestStatus = "validated"
	StatusDisputed  TestStatus = "disputed"
	StatusRejected  TestStatus = "rejected"
)

// ParseOutcome parses a review outcome. Pending is not an outcome.
func ParseOutcome(s string) (TestStatus, error) {
	switch status := TestStatus(strings.ToLower(strings.TrimSpace(s))); status {
	case StatusValidated, StatusDisputed, StatusRejected:
		return status, nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid review outcome %q", s)
	}
}

// IsTerminal reports whether no further review is possible.
func (s TestStatus) IsTerminal() bool {
	return s == StatusValidated || s == StatusRejected
}

// TestResult is a lab test submitted against a passport and reviewed by a
// second lab.
type TestResult struct {
	ID                id.TestResultID `json:"id"`
	PassportID        id.PassportID   `json:"passport_id"`
	Kind              TestKind        `json:"kind"`
	DataLocator       string          `json:"data_locator"`
	LabIdentity       id.Identity     `json:"lab_identity"`
	SubmitterIdentity id.Identity     `json:"submitter_identity"`
	SubmittedAt       time.Time       `json:"submitted_at"`
	Status            TestStatus      `json:"status"`
	ValidatorIdentity id.Identity     `json:"validator_identity,omitempty"`
	ValidatedAt       *time.Time      `json:"validated_at,omitempty"`
	TestDate          time.Time       `json:"test_date"`
	CuringAgeDays     int             `json:"curing_age_days"`
	ResultSummary     string          `json:"result_summary"`
}

// TestResultRequest carries a lab's submission.
type TestResultRequest struct {
	Kind          string
	DataLocator   string
	TestDate      time.Time
	CuringAgeDays int
	ResultSummary string
}

// NewTestResult validates req against now and returns a pending result
// submitted by lab.
func NewTestResult(passportID id.PassportID, req TestResultRequest, lab id.Identity, now time.Time) (*TestResult, error) {
	kind, err := ParseTestKind(req.Kind)
	if err != nil {
		return nil, err
	}
	if err := validateLocator(req.DataLocator); err != nil {
		return nil, err
	}
	if req.TestDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "test date is required")
	}
	if req.TestDate.After(now) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "test date is in the future")
	}
	if req.CuringAgeDays < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "curing age cannot be negative")
	}
	if len(req.ResultSummary) > maxSummaryLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "result summary is too long")
	}
	return &TestResult{
		ID:                id.NewTestResultID(),
		PassportID:        passportID,
		Kind:              kind,
		DataLocator:       req.DataLocator,
		LabIdentity:       lab,
		SubmitterIdentity: lab,
		SubmittedAt:       now,
		Status:            StatusPending,
		TestDate:          req.TestDate,
		CuringAgeDays:     req.CuringAgeDays,
		ResultSummary:     req.ResultSummary,
	}, nil
}

func (t *TestResult) Clone() *TestResult {
	c := *t
	if t.ValidatedAt != nil {
		v := *t.ValidatedAt
		c.ValidatedAt = &v
	}
	return &c
}

// CanReview checks that reviewer may move the result to outcome. The caller
// has already established that reviewer is an authorized lab. A disputed
// result can be settled once more by a lab other than the submitter and the
// disputing lab.
func (t *TestResult) CanReview(reviewer id.Identity, outcome TestStatus) error {
	if reviewer == t.LabIdentity {
		return dErrors.New(dErrors.CodeForbidden, "a lab cannot review its own test result")
	}
	switch t.Status {
	case StatusPending:
	case StatusDisputed:
		if reviewer == t.ValidatorIdentity {
			return dErrors.New(dErrors.CodeForbidden, "the disputing lab cannot settle its own dispute")
		}
		if outcome == StatusDisputed {
			return dErrors.New(dErrors.CodeLocked, "test result is already disputed")
		}
	default:
		return dErrors.Newf(dErrors.CodeLocked, "test result is %s", t.Status)
	}
	if _, err := ParseOutcome(string(outcome)); err != nil {
		return err
	}
	return nil
}

func (t *TestResult) ApplyReview(reviewer id.Identity, outcome TestStatus, now time.Time) {
	t.Status = outcome
	t.ValidatorIdentity = reviewer
	t.ValidatedAt = &now
}

// CanUpdate allows the submitter to replace data while review is pending.
func (t *TestResult) CanUpdate(caller id.Identity, locator, summary string) error {
	if caller != t.SubmitterIdentity {
		return dErrors.New(dErrors.CodeForbidden, "only the submitter can update a test result")
	}
	if t.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeLocked, "test result is %s", t.Status)
	}
	if err := validateLocator(locator); err != nil {
		return err
	}
	if len(summary) > maxSummaryLength {
		return dErrors.New(dErrors.CodeInvalidInput, "result summary is too long")
	}
	return nil
}

func (t *TestResult) ApplyUpdate(locator, summary string) {
	t.DataLocator = locator
	t.ResultSummary = summary
}

func validateLocator(locator string) error {
	if strings.TrimSpace(locator) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "data locator is required")
	}
	if len(locator) > maxLocatorLength {
		return dErrors.New(dErrors.CodeInvalidInput, "data locator is too long")
	}
	return nil
}

// Lab is an identity authorized to submit and review test results.
type Lab struct {
	Identity     id.Identity `json:"identity"`
	AuthorizedBy id.Identity `json:"authorized_by"`
	AuthorizedAt time.Time   `json:"authorized_at"`
}
