// Package service issues passport identities and resolves package keys.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/sentinel"
)

const maxPackageKeyLength = 128

var tracer = otel.Tracer("provenant/identity")

// Store persists the package key mapping. Implementations return
// sentinel.ErrAlreadyUsed and sentinel.ErrNotFound.
type Store interface {
	Allocate(ctx context.Context, key string) (id.PassportID, error)
	Resolve(ctx context.Context, key string) (id.PassportID, error)
}

// Ledger is the identity ledger. It has no delete or remap operation.
type Ledger struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{store: store}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allocate maps packageKey to the next sequential passport id.
func (l *Ledger) Allocate(ctx context.Context, packageKey string) (id.PassportID, error) {
	key, err := NormalizePackageKey(packageKey)
	if err != nil {
		return id.NoPassport, err
	}

	ctx, span := tracer.Start(ctx, "identity.Allocate")
	defer span.End()
	span.SetAttributes(attribute.String("package_key", key))

	passportID, err := l.store.Allocate(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return id.NoPassport, dErrors.Newf(dErrors.CodeDuplicateKey, "package key %q is already registered", key)
		}
		span.RecordError(err)
		return id.NoPassport, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate passport id")
	}

	if l.logger != nil {
		l.logger.InfoContext(ctx, "passport id allocated",
			"package_key", key,
			"passport_id", passportID,
		)
	}
	return passportID, nil
}

// Resolve returns the passport id mapped to packageKey.
func (l *Ledger) Resolve(ctx context.Context, packageKey string) (id.PassportID, error) {
	key, err := NormalizePackageKey(packageKey)
	if err != nil {
		return id.NoPassport, err
	}

	passportID, err := l.store.Resolve(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.NoPassport, dErrors.Newf(dErrors.CodeNotFound, "package key %q not found", key)
		}
		return id.NoPassport, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve package key")
	}
	return passportID, nil
}

// NormalizePackageKey trims surrounding whitespace and validates the key.
// Keys are case sensitive.
func NormalizePackageKey(packageKey string) (string, error) {
	key := strings.TrimSpace(packageKey)
	if key == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "package key is required")
	}
	if len(key) > maxPackageKeyLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "package key is too long")
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "package key contains control characters")
		}
	}
	return key, nil
}
