package domain

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"

	dErrors "provenant/pkg/domain-errors"
)

// PassportID is the sequential identifier of a passport. Zero is reserved as
// the "no such passport" sentinel and is never issued.
type PassportID uint64

// NoPassport is the reserved zero identifier.
const NoPassport PassportID = 0

// IsNil reports whether the id is the reserved sentinel.
func (p PassportID) IsNil() bool { return p == NoPassport }

func (p PassportID) String() string { return strconv.FormatUint(uint64(p), 10) }

// ParsePassportID parses a decimal passport id, rejecting the zero sentinel.
func ParsePassportID(s string) (PassportID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoPassport, dErrors.New(dErrors.CodeInvalidInput, "passport id is required")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return NoPassport, dErrors.New(dErrors.CodeInvalidInput, "invalid passport id")
	}
	if n == 0 {
		return NoPassport, dErrors.New(dErrors.CodeInvalidInput, "passport id 0 is reserved")
	}
	return PassportID(n), nil
}

// Identity is an authenticated caller identity (an account address or a
// principal name issued by the authentication layer). Identities compare
// case-insensitively and are stored lowercased.
type Identity string

const maxIdentityLength = 256

func (i Identity) String() string { return string(i) }

// IsNil reports whether the identity is unset.
func (i Identity) IsNil() bool { return i == "" }

// ParseIdentity normalizes and validates an identity.
func ParseIdentity(s string) (Identity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity is required")
	}
	if len(s) > maxIdentityLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identity is too long")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r > unicode.MaxASCII {
			return "", dErrors.New(dErrors.CodeInvalidInput, "identity contains invalid characters")
		}
	}
	return Identity(s), nil
}

// OptionalIdentity parses s when non-empty and returns the empty identity otherwise.
func OptionalIdentity(s string) (Identity, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return ParseIdentity(s)
}

// TestResultID identifies a lab test result.
type TestResultID uuid.UUID

func (t TestResultID) String() string { return uuid.UUID(t).String() }

// IsNil reports whether the id is the nil UUID.
func (t TestResultID) IsNil() bool { return uuid.UUID(t) == uuid.Nil }

// NewTestResultID returns a fresh random test result id.
func NewTestResultID() TestResultID { return TestResultID(uuid.New()) }

// ParseTestResultID parses a non-nil UUID.
func ParseTestResultID(s string) (TestResultID, error) {
	if s == "" {
		return TestResultID{}, dErrors.New(dErrors.CodeInvalidInput, "test result id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return TestResultID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid test result id")
	}
	if parsed == uuid.Nil {
		return TestResultID{}, dErrors.New(dErrors.CodeInvalidInput, "test result id cannot be nil")
	}
	return TestResultID(parsed), nil
}

// MarshalText lets typed ids appear as strings in JSON payloads.
func (t TestResultID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TestResultID) UnmarshalText(b []byte) error {
	parsed, err := ParseTestResultID(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
