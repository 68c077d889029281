// Package sentinel holds the store level facts services translate into
// domain errors. Input validation uses pkg/domain-errors directly.
package sentinel

import "errors"

var (
	// ErrNotFound means no record exists under the key.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyUsed means a unique key (package key, validator or lab
	// identity, test result id) is taken.
	ErrAlreadyUsed = errors.New("already used")
)
