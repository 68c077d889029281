// Package blob is the off-chain package store. Packages are addressed by the
// keccak256 digest of their bytes, so storing the same bytes twice yields the
// same locator and the registry can compare locators as plain strings.
package blob

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

const locatorScheme = "keccak256:"

var (
	ErrNotFound       = errors.New("blob not found")
	ErrTooLarge       = errors.New("blob exceeds size limit")
	ErrInvalidLocator = errors.New("invalid blob locator")
)

// Info describes a stored package.
type Info struct {
	Locator     string `json:"locator"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
}

// Store keeps content-addressed packages.
type Store interface {
	Put(ctx context.Context, data []byte, contentType string) (Info, error)
	Get(ctx context.Context, locator string) (Info, []byte, error)
	Exists(ctx context.Context, locator string) (bool, error)
}

// Locator returns the content address of data.
func Locator(data []byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return locatorScheme + hex.EncodeToString(h.Sum(nil))
}

// ParseLocator validates a locator and returns its hex digest.
func ParseLocator(locator string) (string, error) {
	digest, ok := strings.CutPrefix(locator, locatorScheme)
	if !ok || len(digest) != 64 {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	return strings.ToLower(digest), nil
}
