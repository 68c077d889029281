// Package service implements the validation ledger and the lab test result
// workflow.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"provenant/internal/validation/metrics"
	"provenant/internal/validation/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/tx"
	"provenant/pkg/requestcontext"
)

var tracer = otel.Tracer("provenant/validation")

// RecordStore persists validation records in insertion order.
type RecordStore interface {
	Append(ctx context.Context, r models.ValidationRecord) (models.ValidationRecord, error)
	ListByPassport(ctx context.Context, passportID id.PassportID) ([]models.ValidationRecord, error)
}

// Passports reports whether a passport exists.
type Passports interface {
	Exists(ctx context.Context, passportID id.PassportID) error
}

// Validators is the validator registry capability the ledger needs.
type Validators interface {
	IsAuthorized(ctx context.Context, identity id.Identity) (bool, error)
	IncrementValidationCount(ctx context.Context, identity id.Identity) (uint64, error)
}

// Ledger records validator attestations and computes consensus.
type Ledger struct {
	records    RecordStore
	passports  Passports
	validators Validators
	tx         tx.Runner
	required   int
	emitter    audit.Emitter
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Ledger)

// WithRequiredValidations sets the consensus threshold.
func WithRequiredValidations(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.required = n
		}
	}
}

func WithTxRunner(runner tx.Runner) Option {
	return func(l *Ledger) {
		l.tx = runner
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func WithEmitter(emitter audit.Emitter) Option {
	return func(l *Ledger) {
		l.emitter = emitter
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

func NewLedger(records RecordStore, passports Passports, validators Validators, opts ...Option) *Ledger {
	l := &Ledger{
		records:    records,
		passports:  passports,
		validators: validators,
		tx:         tx.Direct,
		required:   models.DefaultRequiredValidations,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Required returns the consensus threshold.
func (l *Ledger) Required() int {
	return l.required
}

// Submit appends validator's attestation and bumps its validation count.
// Repeated submissions are kept; only the latest per validator is counted.
func (l *Ledger) Submit(ctx context.Context, passportID id.PassportID, validator id.Identity, req models.SubmitRequest) (*models.ValidationRecord, error) {
	ctx, span := tracer.Start(ctx, "validation.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("passport_id", int64(passportID)),
		attribute.String("validator", string(validator)),
	)

	if err := l.passports.Exists(ctx, passportID); err != nil {
		return nil, err
	}
	ok, err := l.validators.IsAuthorized(ctx, validator)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not an active validator")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	record := models.ValidationRecord{
		PassportID:        passportID,
		ValidatorIdentity: validator,
		Timestamp:         requestcontext.Now(ctx),
		Passed:            req.Passed,
		ReportLocator:     req.ReportLocator,
		Signature:         req.Signature,
	}
	var (
		stored models.ValidationRecord
		status models.ConsensusStatus
	)
	err = l.tx.RunInTx(ctx, func(ctx context.Context) error {
		// Under tx.Direct these writes are not atomic. The count goes first so
		// a failed increment leaves no uncounted record; Append on a known
		// passport does not fail in memory.
		if _, err := l.validators.IncrementValidationCount(ctx, validator); err != nil {
			return err
		}
		var err error
		if stored, err = l.records.Append(ctx, record); err != nil {
			return wrapStoreErr(err)
		}
		all, err := l.records.ListByPassport(ctx, passportID)
		if err != nil {
			return wrapStoreErr(err)
		}
		status = models.Tally(passportID, all, l.required)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if l.metrics != nil {
		l.metrics.IncrementSubmission(stored.Passed)
	}
	if stored.Passed && status.Passed == l.required {
		if l.metrics != nil {
			l.metrics.ConsensusReached.Inc()
		}
		if l.logger != nil {
			l.logger.InfoContext(ctx, "validation consensus reached",
				"passport_id", passportID,
				"passed", status.Passed,
				"required", status.Required,
			)
		}
	}
	l.notify(ctx, stored, status)
	return &stored, nil
}

// Status tallies submissions for a passport.
func (l *Ledger) Status(ctx context.Context, passportID id.PassportID) (models.ConsensusStatus, error) {
	records, err := l.Records(ctx, passportID)
	if err != nil {
		return models.ConsensusStatus{}, err
	}
	return models.Tally(passportID, records, l.required), nil
}

// IsConsensusReached reports whether enough distinct validators passed the passport.
func (l *Ledger) IsConsensusReached(ctx context.Context, passportID id.PassportID) (bool, error) {
	status, err := l.Status(ctx, passportID)
	if err != nil {
		return false, err
	}
	return status.Reached, nil
}

// Records returns every submission for the passport in insertion order.
func (l *Ledger) Records(ctx context.Context, passportID id.PassportID) ([]models.ValidationRecord, error) {
	if err := l.passports.Exists(ctx, passportID); err != nil {
		return nil, err
	}
	records, err := l.records.ListByPassport(ctx, passportID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if records == nil {
		records = []models.ValidationRecord{}
	}
	return records, nil
}

func (l *Ledger) notify(ctx context.Context, r models.ValidationRecord, status models.ConsensusStatus) {
	if l.emitter == nil {
		return
	}
	err := l.emitter.Emit(ctx, audit.Event{
		EntityKind: audit.EntityValidation,
		EntityID:   strconv.FormatUint(r.Seq, 10),
		Action:     audit.ActionValidationSubmitted,
		ActorID:    string(r.ValidatorIdentity),
		Fields: map[string]string{
			"passport_id":       r.PassportID.String(),
			"passed":            strconv.FormatBool(r.Passed),
			"report_locator":    r.ReportLocator,
			"passed_validators": strconv.Itoa(status.Passed),
			"consensus_reached": strconv.FormatBool(status.Reached),
		},
	})
	if err != nil && l.logger != nil {
		l.logger.ErrorContext(ctx, "failed to emit validation notification",
			"passport_id", r.PassportID,
			"validator", r.ValidatorIdentity,
			"error", err,
		)
	}
}

func wrapStoreErr(err error) error {
	var coded *dErrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "validation operation aborted")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "validation store failure")
}
