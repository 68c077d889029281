// Package service maintains the validator registry.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"provenant/internal/validator/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/sentinel"
	"provenant/pkg/requestcontext"
)

var tracer = otel.Tracer("provenant/validator")

// Store persists validators. Implementations return sentinel.ErrAlreadyUsed
// and sentinel.ErrNotFound.
type Store interface {
	Create(ctx context.Context, v *models.Validator) error
	FindByIdentity(ctx context.Context, identity id.Identity) (*models.Validator, error)
	IncrementValidationCount(ctx context.Context, identity id.Identity) (uint64, error)
	List(ctx context.Context) ([]models.Validator, error)
}

type Service struct {
	store   Store
	emitter audit.Emitter
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithEmitter(emitter audit.Emitter) Option {
	return func(s *Service) {
		s.emitter = emitter
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds an active validator with the default reputation.
func (s *Service) Register(ctx context.Context, identity id.Identity, organization, certificationNumber string) (*models.Validator, error) {
	ctx, span := tracer.Start(ctx, "validator.Register")
	defer span.End()
	span.SetAttributes(attribute.String("validator", string(identity)))

	v, err := models.NewValidator(identity, organization, certificationNumber, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, v); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Newf(dErrors.CodeAlreadyRegistered, "validator %s is already registered", identity)
		}
		return nil, wrapErr(err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "validator registered",
			"validator", v.Identity,
			"organization", v.OrganizationName,
		)
	}
	if s.emitter != nil {
		err := s.emitter.Emit(ctx, audit.Event{
			EntityKind: audit.EntityValidator,
			EntityID:   string(v.Identity),
			Action:     audit.ActionValidatorRegistered,
			ActorID:    string(requestcontext.Caller(ctx)),
			Fields: map[string]string{
				"organization_name":    v.OrganizationName,
				"certification_number": v.CertificationNumber,
			},
		})
		if err != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to emit validator notification", "validator", v.Identity, "error", err)
		}
	}
	return v, nil
}

// IsAuthorized reports whether identity is a registered, active validator.
func (s *Service) IsAuthorized(ctx context.Context, identity id.Identity) (bool, error) {
	v, err := s.store.FindByIdentity(ctx, identity)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr(err)
	}
	return v.IsAuthorized(), nil
}

func (s *Service) Get(ctx context.Context, identity id.Identity) (*models.Validator, error) {
	v, err := s.store.FindByIdentity(ctx, identity)
	if err != nil {
		return nil, wrapErr(err)
	}
	return v, nil
}

func (s *Service) List(ctx context.Context) ([]models.Validator, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, wrapErr(err)
	}
	if out == nil {
		out = []models.Validator{}
	}
	return out, nil
}

// IncrementValidationCount is called by the validation ledger for each
// accepted submission.
func (s *Service) IncrementValidationCount(ctx context.Context, identity id.Identity) (uint64, error) {
	n, err := s.store.IncrementValidationCount(ctx, identity)
	if err != nil {
		return 0, wrapErr(err)
	}
	return n, nil
}

func wrapErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "validator not found")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "validator operation aborted")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "validator store failure")
}
