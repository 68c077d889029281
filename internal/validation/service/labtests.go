package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"provenant/internal/validation/metrics"
	"provenant/internal/validation/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/sentinel"
	"provenant/pkg/requestcontext"
)

// TestResultStore persists test results. Execute serializes per result.
type TestResultStore interface {
	Create(ctx context.Context, r *models.TestResult) error
	FindByID(ctx context.Context, testID id.TestResultID) (*models.TestResult, error)
	Execute(ctx context.Context, testID id.TestResultID, validate func(*models.TestResult) error, mutate func(*models.TestResult)) (*models.TestResult, error)
	ListByPassport(ctx context.Context, passportID id.PassportID) ([]models.TestResult, error)
}

// LabStore persists the authorized lab roster.
type LabStore interface {
	Authorize(ctx context.Context, lab models.Lab) error
	Revoke(ctx context.Context, identity id.Identity, at time.Time) error
	IsAuthorized(ctx context.Context, identity id.Identity) (bool, error)
	List(ctx context.Context) ([]models.Lab, error)
}

// LabTests runs the lab-centric attestation workflow: authorized labs submit
// test results and a different authorized lab reviews them.
type LabTests struct {
	results   TestResultStore
	labs      LabStore
	passports Passports
	admin     id.Identity
	emitter   audit.Emitter
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type LabOption func(*LabTests)

// WithAdmin sets the registry admin identity allowed to manage labs.
func WithAdmin(admin id.Identity) LabOption {
	return func(l *LabTests) {
		l.admin = admin
	}
}

func WithLabLogger(logger *slog.Logger) LabOption {
	return func(l *LabTests) {
		l.logger = logger
	}
}

func WithLabEmitter(emitter audit.Emitter) LabOption {
	return func(l *LabTests) {
		l.emitter = emitter
	}
}

func WithLabMetrics(m *metrics.Metrics) LabOption {
	return func(l *LabTests) {
		l.metrics = m
	}
}

func NewLabTests(results TestResultStore, labs LabStore, passports Passports, opts ...LabOption) *LabTests {
	l := &LabTests{results: results, labs: labs, passports: passports}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AuthorizeLab adds lab to the roster. Only the registry admin may call it.
func (l *LabTests) AuthorizeLab(ctx context.Context, lab, caller id.Identity) (*models.Lab, error) {
	if err := l.requireAdmin(caller); err != nil {
		return nil, err
	}
	if lab.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "lab identity is required")
	}
	entry := models.Lab{Identity: lab, AuthorizedBy: caller, AuthorizedAt: requestcontext.Now(ctx)}
	if err := l.labs.Authorize(ctx, entry); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Newf(dErrors.CodeAlreadyRegistered, "lab %s is already authorized", lab)
		}
		return nil, wrapStoreErr(err)
	}
	l.logInfo(ctx, "lab authorized", "lab", lab, "admin", caller)
	l.notify(ctx, audit.EntityLab, string(lab), audit.ActionLabAuthorized, caller, nil)
	return &entry, nil
}

// RevokeLab removes lab from the roster. Results it already submitted or
// reviewed are unchanged.
func (l *LabTests) RevokeLab(ctx context.Context, lab, caller id.Identity) error {
	if err := l.requireAdmin(caller); err != nil {
		return err
	}
	if err := l.labs.Revoke(ctx, lab, requestcontext.Now(ctx)); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "lab %s is not authorized", lab)
		}
		return wrapStoreErr(err)
	}
	l.logInfo(ctx, "lab revoked", "lab", lab, "admin", caller)
	l.notify(ctx, audit.EntityLab, string(lab), audit.ActionLabRevoked, caller, nil)
	return nil
}

func (l *LabTests) Labs(ctx context.Context) ([]models.Lab, error) {
	labs, err := l.labs.List(ctx)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if labs == nil {
		labs = []models.Lab{}
	}
	return labs, nil
}

// IsAuthorizedLab reports whether identity is on the lab roster.
func (l *LabTests) IsAuthorizedLab(ctx context.Context, identity id.Identity) (bool, error) {
	if identity.IsNil() {
		return false, nil
	}
	ok, err := l.labs.IsAuthorized(ctx, identity)
	if err != nil {
		return false, wrapStoreErr(err)
	}
	return ok, nil
}

// SubmitTestResult records a pending test result by caller's lab.
func (l *LabTests) SubmitTestResult(ctx context.Context, passportID id.PassportID, req models.TestResultRequest, caller id.Identity) (*models.TestResult, error) {
	ctx, span := tracer.Start(ctx, "validation.SubmitTestResult")
	defer span.End()
	span.SetAttributes(attribute.Int64("passport_id", int64(passportID)))

	if err := l.passports.Exists(ctx, passportID); err != nil {
		return nil, err
	}
	if err := l.requireLab(ctx, caller); err != nil {
		return nil, err
	}
	result, err := models.NewTestResult(passportID, req, caller, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := l.results.Create(ctx, result); err != nil {
		return nil, wrapStoreErr(err)
	}

	l.observe(result.Status)
	l.logInfo(ctx, "test result submitted",
		"test_id", result.ID,
		"passport_id", passportID,
		"lab", caller,
		"kind", result.Kind,
	)
	l.notify(ctx, audit.EntityTestResult, result.ID.String(), audit.ActionTestResultSubmitted, caller, map[string]string{
		"passport_id":  passportID.String(),
		"kind":         string(result.Kind),
		"data_locator": result.DataLocator,
		"status":       string(result.Status),
	})
	return result, nil
}

// ValidateTestResult records another lab's review outcome.
func (l *LabTests) ValidateTestResult(ctx context.Context, testID id.TestResultID, outcome models.TestStatus, caller id.Identity) (*models.TestResult, error) {
	ctx, span := tracer.Start(ctx, "validation.ValidateTestResult")
	defer span.End()
	span.SetAttributes(attribute.String("test_id", testID.String()))

	now := requestcontext.Now(ctx)
	result, err := l.results.Execute(ctx, testID,
		func(r *models.TestResult) error {
			if err := l.requireLab(ctx, caller); err != nil {
				return err
			}
			return r.CanReview(caller, outcome)
		},
		func(r *models.TestResult) {
			r.ApplyReview(caller, outcome, now)
		},
	)
	if err != nil {
		return nil, wrapTestErr(err)
	}

	l.observe(result.Status)
	l.logInfo(ctx, "test result reviewed",
		"test_id", result.ID,
		"passport_id", result.PassportID,
		"status", result.Status,
		"reviewer", caller,
	)
	l.notify(ctx, audit.EntityTestResult, result.ID.String(), audit.ActionTestResultValidated, caller, map[string]string{
		"passport_id": result.PassportID.String(),
		"status":      string(result.Status),
	})
	return result, nil
}

// UpdateTestResult replaces data and summary while the result is pending.
func (l *LabTests) UpdateTestResult(ctx context.Context, testID id.TestResultID, locator, summary string, caller id.Identity) (*models.TestResult, error) {
	result, err := l.results.Execute(ctx, testID,
		func(r *models.TestResult) error {
			return r.CanUpdate(caller, locator, summary)
		},
		func(r *models.TestResult) {
			r.ApplyUpdate(locator, summary)
		},
	)
	if err != nil {
		return nil, wrapTestErr(err)
	}
	l.notify(ctx, audit.EntityTestResult, result.ID.String(), audit.ActionTestResultUpdated, caller, map[string]string{
		"passport_id":  result.PassportID.String(),
		"data_locator": result.DataLocator,
	})
	return result, nil
}

func (l *LabTests) GetTestResult(ctx context.Context, testID id.TestResultID) (*models.TestResult, error) {
	result, err := l.results.FindByID(ctx, testID)
	if err != nil {
		return nil, wrapTestErr(err)
	}
	return result, nil
}

// TestResults lists a passport's results in submission order.
func (l *LabTests) TestResults(ctx context.Context, passportID id.PassportID) ([]models.TestResult, error) {
	if err := l.passports.Exists(ctx, passportID); err != nil {
		return nil, err
	}
	results, err := l.results.ListByPassport(ctx, passportID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if results == nil {
		results = []models.TestResult{}
	}
	return results, nil
}

// HasValidatedTest reports whether any test result of the passport is validated.
func (l *LabTests) HasValidatedTest(ctx context.Context, passportID id.PassportID) (bool, error) {
	results, err := l.results.ListByPassport(ctx, passportID)
	if err != nil {
		return false, wrapStoreErr(err)
	}
	for _, r := range results {
		if r.Status == models.StatusValidated {
			return true, nil
		}
	}
	return false, nil
}

func (l *LabTests) requireAdmin(caller id.Identity) error {
	if l.admin.IsNil() || caller != l.admin {
		return dErrors.New(dErrors.CodeForbidden, "only the registry admin can manage labs")
	}
	return nil
}

func (l *LabTests) requireLab(ctx context.Context, caller id.Identity) error {
	ok, err := l.IsAuthorizedLab(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not an authorized lab")
	}
	return nil
}

func (l *LabTests) observe(status models.TestStatus) {
	if l.metrics != nil {
		l.metrics.TestResults.WithLabelValues(string(status)).Inc()
	}
}

func (l *LabTests) logInfo(ctx context.Context, msg string, args ...any) {
	if l.logger != nil {
		l.logger.InfoContext(ctx, msg, args...)
	}
}

func (l *LabTests) notify(ctx context.Context, kind audit.EntityKind, entityID string, action audit.Action, actor id.Identity, fields map[string]string) {
	if l.emitter == nil {
		return
	}
	err := l.emitter.Emit(ctx, audit.Event{
		EntityKind: kind,
		EntityID:   entityID,
		Action:     action,
		ActorID:    string(actor),
		Fields:     fields,
	})
	if err != nil && l.logger != nil {
		l.logger.ErrorContext(ctx, "failed to emit lab notification",
			"action", action,
			"entity_id", entityID,
			"error", err,
		)
	}
}

func wrapTestErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "test result not found")
	}
	return wrapStoreErr(err)
}
