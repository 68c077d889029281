package models

import (
	"fmt"
	"time"
)

// Class groups endpoints that share a request budget.
type Class string

const (
	ClassRead   Class = "read"
	ClassWrite  Class = "write"
	ClassUpload Class = "upload"
)

// Limit is a sliding window budget.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of one check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int
}

// Key namespaces a bucket by subject (caller identity or client address) and class.
func Key(subject string, class Class) string {
	return fmt.Sprintf("rl:%s:%s", class, subject)
}

// ExceededResponse is the 429 body.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}
