package handler

import "time"

// SubmitValidationRequest is a validator's verdict. Signature is base64 in JSON.
type SubmitValidationRequest struct {
	Passed        bool   `json:"passed"`
	ReportLocator string `json:"report_locator"`
	Signature     []byte `json:"signature,omitempty"`
}

type SubmitTestResultRequest struct {
	Kind          string    `json:"kind"`
	DataLocator   string    `json:"data_locator"`
	TestDate      time.Time `json:"test_date"`
	CuringAgeDays int       `json:"curing_age_days"`
	ResultSummary string    `json:"result_summary"`
}

type UpdateTestResultRequest struct {
	DataLocator   string `json:"data_locator"`
	ResultSummary string `json:"result_summary"`
}

// ReviewTestResultRequest carries validated, disputed or rejected.
type ReviewTestResultRequest struct {
	Outcome string `json:"outcome"`
}

type AuthorizeLabRequest struct {
	Identity string `json:"identity"`
}
