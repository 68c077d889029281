// Package service owns the passport lifecycle: creation, locator and hash
// updates, deactivation, finalization and ownership transfer.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"provenant/internal/passport/metrics"
	"provenant/internal/passport/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/sentinel"
	"provenant/pkg/platform/tx"
	"provenant/pkg/requestcontext"
)

var tracer = otel.Tracer("provenant/passport")

// Store persists passports. Implementations return sentinel.ErrNotFound and
// sentinel.ErrAlreadyUsed; Execute passes validate errors through unchanged.
type Store interface {
	Create(ctx context.Context, p *models.Passport) error
	FindByID(ctx context.Context, passportID id.PassportID) (*models.Passport, error)
	Execute(ctx context.Context, passportID id.PassportID, validate func(*models.Passport) error, mutate func(*models.Passport)) (*models.Passport, error)
	ListByOwner(ctx context.Context, owner id.Identity) ([]id.PassportID, error)
	ListByLab(ctx context.Context, lab id.Identity) ([]id.PassportID, error)
	ListByGrade(ctx context.Context, grade string) ([]id.PassportID, error)
}

// IdentityLedger issues passport ids for package keys.
type IdentityLedger interface {
	Allocate(ctx context.Context, packageKey string) (id.PassportID, error)
	Resolve(ctx context.Context, packageKey string) (id.PassportID, error)
}

// FinalizeGate decides whether a passport has the attestations finalization
// requires. It runs while the passport is locked.
type FinalizeGate interface {
	CheckFinalize(ctx context.Context, passportID id.PassportID) error
}

// Service orchestrates passport mutations.
type Service struct {
	passports  Store
	identities IdentityLedger
	tx         tx.Runner
	gate       FinalizeGate
	emitter    audit.Emitter
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithEmitter sets where post-commit notifications go.
func WithEmitter(emitter audit.Emitter) Option {
	return func(s *Service) {
		s.emitter = emitter
	}
}

// WithTxRunner makes multi-store operations atomic. Defaults to tx.Direct.
func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) {
		s.tx = runner
	}
}

// WithFinalizeGate requires gate approval before finalization.
func WithFinalizeGate(gate FinalizeGate) Option {
	return func(s *Service) {
		s.gate = gate
	}
}

func New(passports Store, identities IdentityLedger, opts ...Option) *Service {
	s := &Service{
		passports:  passports,
		identities: identities,
		tx:         tx.Direct,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create allocates an id for the package key and stores a new passport owned
// by creator.
func (s *Service) Create(ctx context.Context, req models.CreateRequest, creator id.Identity) (_ *models.Passport, err error) {
	start := time.Now()
	defer func() { s.observe("create", start, err) }()

	ctx, span := tracer.Start(ctx, "passport.Create")
	defer span.End()

	req.Normalize()
	if err := req.Validate(creator); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var created *models.Passport
	// The ledger mapping is permanent on stores that do not join the
	// transaction, so nothing after Allocate may reject the request.
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		passportID, err := s.identities.Allocate(ctx, req.PackageKey)
		if err != nil {
			return err
		}
		p, err := models.NewPassport(passportID, req.PackageKey, req.MaterialID, req.DataLocator, creator, req.LabIdentity, now)
		if err != nil {
			return err
		}
		if err := s.passports.Create(ctx, p); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.Newf(dErrors.CodeDuplicateKey, "package key %q is already registered", p.PackageKey)
			}
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		return nil, s.wrapErr(span, err)
	}

	span.SetAttributes(attribute.Int64("passport_id", int64(created.ID)))
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.logInfo(ctx, "passport created",
		"passport_id", created.ID,
		"package_key", created.PackageKey,
		"creator", created.Creator,
	)
	s.notify(ctx, audit.ActionPassportCreated, created.ID, creator, map[string]string{
		"package_key":  created.PackageKey,
		"material_id":  created.MaterialID,
		"data_locator": created.DataLocator,
		"lab_identity": string(created.LabIdentity),
	})
	return created, nil
}

// UpdateDataLocator points the passport at a new data package and bumps its version.
func (s *Service) UpdateDataLocator(ctx context.Context, passportID id.PassportID, locator string, caller id.Identity) (_ *models.Passport, err error) {
	start := time.Now()
	defer func() { s.observe("update_data_locator", start, err) }()

	now := requestcontext.Now(ctx)
	p, err := s.execute(ctx, "passport.UpdateDataLocator", passportID,
		func(_ context.Context, p *models.Passport) error {
			return p.CanUpdateDataLocator(caller, locator)
		},
		func(p *models.Passport) {
			p.ApplyDataLocator(locator, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, audit.ActionLocatorUpdated, p.ID, caller, map[string]string{
		"data_locator": p.DataLocator,
		"version":      strconv.FormatUint(p.Version, 10),
	})
	return p, nil
}

// SetDerivedHash writes a derived hash slot once.
func (s *Service) SetDerivedHash(ctx context.Context, passportID id.PassportID, slot models.DerivedHashSlot, hash string, caller id.Identity) (_ *models.Passport, err error) {
	start := time.Now()
	defer func() { s.observe("set_derived_hash", start, err) }()

	now := requestcontext.Now(ctx)
	p, err := s.execute(ctx, "passport.SetDerivedHash", passportID,
		func(_ context.Context, p *models.Passport) error {
			return p.CanSetDerivedHash(caller, slot, hash)
		},
		func(p *models.Passport) {
			p.ApplyDerivedHash(slot, hash, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, audit.ActionDerivedHashSet, p.ID, caller, map[string]string{
		"slot": string(slot),
		"hash": hash,
	})
	return p, nil
}

// AppendMaterialCertHash adds a material certificate hash.
func (s *Service) AppendMaterialCertHash(ctx context.Context, passportID id.PassportID, hash string, caller id.Identity) (_ *models.Passport, err error) {
	start := time.Now()
	defer func() { s.observe("append_material_cert_hash", start, err) }()

	now := requestcontext.Now(ctx)
	p, err := s.execute(ctx, "passport.AppendMaterialCertHash", passportID,
		func(_ context.Context, p *models.Passport) error {
			return p.CanAppendMaterialCertHash(caller, hash)
		},
		func(p *models.Passport) {
			p.ApplyMaterialCertHash(hash, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, audit.ActionCertHashAppended, p.ID, caller, map[string]string{
		"hash":  hash,
		"count": strconv.Itoa(len(p.MaterialCertHashes)),
	})
	return p, nil
}

// Deactivate retires the passport. There is no reactivation.
func (s *Service) Deactivate(ctx context.Context, passportID id.PassportID, caller id.Identity) (_ *models.Passport, err error) {
	start := time.Now()
	defer func() { s.observe("deactivate", start, err) }()

	now := requestcontext.Now(ctx)
	p, err := s.execute(ctx, "passport.Deactivate", passportID,
		func(_ context.Context, p *models.Passport) error {
			return p.CanDeactivate(caller)
		},
		func(p *models.Passport) {
			p.ApplyDeactivation(now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, "passport deactivated", "passport_id", p.ID, "caller", caller)
	s.notify(ctx, audit.ActionPassportDeactivated, p.ID, caller, nil)
	return p, nil
}

// Finalize fixes grade and certification hash and locks the passport. When a
// gate is configured it is consulted after the passport's own checks.
func (s *Service) Finalize(ctx context.Context, passportID id.PassportID, grade, certificationHash string, caller id.Identity) (_ *models.Passport, err error) {
	start := time.Now()
	defer func() { s.observe("finalize", start, err) }()

	now := requestcontext.Now(ctx)
	p, err := s.execute(ctx, "passport.Finalize", passportID,
		func(ctx context.Context, p *models.Passport) error {
			if err := p.CanFinalize(caller, grade, certificationHash); err != nil {
				return err
			}
			if s.gate != nil {
				return s.gate.CheckFinalize(ctx, p.ID)
			}
			return nil
		},
		func(p *models.Passport) {
			p.ApplyFinalization(grade, certificationHash, now)
		},
	)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementFinalized(p.FinalGrade)
	}
	s.logInfo(ctx, "passport finalized",
		"passport_id", p.ID,
		"grade", p.FinalGrade,
		"certification_hash", p.CertificationHash,
	)
	s.notify(ctx, audit.ActionPassportFinalized, p.ID, caller, map[string]string{
		"final_grade":        p.FinalGrade,
		"certification_hash": p.CertificationHash,
	})
	return p, nil
}

// Transfer reassigns ownership. The creator is unchanged.
func (s *Service) Transfer(ctx context.Context, passportID id.PassportID, newOwner, caller id.Identity) (_ *models.Passport, err error) {
	start := time.Now()
	defer func() { s.observe("transfer", start, err) }()

	now := requestcontext.Now(ctx)
	var previous id.Identity
	p, err := s.execute(ctx, "passport.Transfer", passportID,
		func(_ context.Context, p *models.Passport) error {
			if err := p.CanTransfer(caller, newOwner); err != nil {
				return err
			}
			previous = p.Owner
			return nil
		},
		func(p *models.Passport) {
			p.ApplyTransfer(newOwner, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, "passport transferred",
		"passport_id", p.ID,
		"from", previous,
		"to", p.Owner,
	)
	s.notify(ctx, audit.ActionPassportTransferred, p.ID, caller, map[string]string{
		"from": string(previous),
		"to":   string(p.Owner),
	})
	return p, nil
}

// Guard runs fn while holding the passport's lock without changing it. Other
// modules use it to serialize their appends with finalization; stores reached
// through the ctx handed to fn join the same unit of work.
func (s *Service) Guard(ctx context.Context, passportID id.PassportID, fn func(ctx context.Context, p models.Passport) error) error {
	_, err := s.execute(ctx, "passport.Guard", passportID,
		func(ctx context.Context, p *models.Passport) error {
			return fn(ctx, *p)
		},
		nil,
	)
	return err
}

// execute runs validate and mutate under the passport lock inside one unit of
// work. validate receives the unit of work's ctx.
func (s *Service) execute(ctx context.Context, spanName string, passportID id.PassportID, validate func(context.Context, *models.Passport) error, mutate func(*models.Passport)) (*models.Passport, error) {
	ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(attribute.Int64("passport_id", int64(passportID))))
	defer span.End()

	if passportID.IsNil() {
		return nil, dErrors.New(dErrors.CodeNotFound, "passport not found")
	}

	var result *models.Passport
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.passports.Execute(ctx, passportID,
			func(p *models.Passport) error { return validate(ctx, p) },
			mutate,
		)
		if err != nil {
			return err
		}
		result = p
		return nil
	})
	if err != nil {
		return nil, s.wrapErr(span, err)
	}
	return result, nil
}
