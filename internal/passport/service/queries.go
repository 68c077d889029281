package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"provenant/internal/passport/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/sentinel"
)

// Get returns a snapshot of the passport.
func (s *Service) Get(ctx context.Context, passportID id.PassportID) (*models.Passport, error) {
	if passportID.IsNil() {
		return nil, dErrors.New(dErrors.CodeNotFound, "passport not found")
	}
	p, err := s.passports.FindByID(ctx, passportID)
	if err != nil {
		return nil, s.wrapErr(nil, err)
	}
	return p, nil
}

// GetByKey resolves the package key and returns the passport.
func (s *Service) GetByKey(ctx context.Context, packageKey string) (*models.Passport, error) {
	passportID, err := s.identities.Resolve(ctx, packageKey)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, passportID)
}

// Exists fails with NotFound when the passport is unknown.
func (s *Service) Exists(ctx context.Context, passportID id.PassportID) error {
	_, err := s.Get(ctx, passportID)
	return err
}

// ListByOwner returns ids currently owned by owner.
func (s *Service) ListByOwner(ctx context.Context, owner id.Identity) ([]id.PassportID, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "owner is required")
	}
	ids, err := s.passports.ListByOwner(ctx, owner)
	return nonNil(ids), s.wrapErr(nil, err)
}

// ListByLab returns ids produced by lab.
func (s *Service) ListByLab(ctx context.Context, lab id.Identity) ([]id.PassportID, error) {
	if lab.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "lab identity is required")
	}
	ids, err := s.passports.ListByLab(ctx, lab)
	return nonNil(ids), s.wrapErr(nil, err)
}

// ListByGrade returns ids finalized with grade.
func (s *Service) ListByGrade(ctx context.Context, grade string) ([]id.PassportID, error) {
	grade = strings.TrimSpace(grade)
	if grade == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "grade is required")
	}
	ids, err := s.passports.ListByGrade(ctx, grade)
	return nonNil(ids), s.wrapErr(nil, err)
}

func nonNil(ids []id.PassportID) []id.PassportID {
	if ids == nil {
		return []id.PassportID{}
	}
	return ids
}

// wrapErr maps store facts to coded errors. Coded errors pass through.
func (s *Service) wrapErr(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "passport not found")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "passport operation aborted")
	}
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "passport store failure")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "passport store failure")
}

func (s *Service) observe(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.Observe(operation, start, err)
	}
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

// notify emits after the change committed. A failed emit never undoes the
// change; it is logged for replay.
func (s *Service) notify(ctx context.Context, action audit.Action, passportID id.PassportID, actor id.Identity, fields map[string]string) {
	if s.emitter == nil {
		return
	}
	event := audit.Event{
		EntityKind: audit.EntityPassport,
		EntityID:   passportID.String(),
		Action:     action,
		ActorID:    string(actor),
		Fields:     fields,
	}
	if err := s.emitter.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit passport notification",
			"action", action,
			"passport_id", passportID,
			"error", err,
		)
	}
}
