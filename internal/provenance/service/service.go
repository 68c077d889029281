// Package service appends material batches and process events to a
// passport's provenance log.
//
// Appends run under the passport's lock so they serialize with finalization.
// Any caller may append material batches so suppliers can attest their own
// deliveries.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	passportmodels "provenant/internal/passport/models"
	"provenant/internal/provenance/metrics"
	"provenant/internal/provenance/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/requestcontext"
)

var tracer = otel.Tracer("provenant/provenance")

const (
	kindMaterial = "material_batch"
	kindEvent    = "process_event"
)

// Store persists provenance records in insertion order.
type Store interface {
	AppendMaterial(ctx context.Context, batch models.MaterialBatch) (models.MaterialBatch, error)
	AppendEvent(ctx context.Context, event models.ProcessEvent) (models.ProcessEvent, error)
	ListMaterials(ctx context.Context, passportID id.PassportID) ([]models.MaterialBatch, error)
	ListEvents(ctx context.Context, passportID id.PassportID) ([]models.ProcessEvent, error)
}

// Passports is the passport capability provenance needs.
type Passports interface {
	Guard(ctx context.Context, passportID id.PassportID, fn func(ctx context.Context, p passportmodels.Passport) error) error
	Exists(ctx context.Context, passportID id.PassportID) error
}

type Service struct {
	store     Store
	passports Passports
	emitter   audit.Emitter
	logger    *slog.Logger
	metrics   *metrics.Metrics

	blockMaterialsAfterFinalize bool
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

func WithEmitter(emitter audit.Emitter) Option {
	return func(s *Service) {
		s.emitter = emitter
	}
}

// WithBlockMaterialsAfterFinalize rejects material batches on finalized
// passports with Locked.
func WithBlockMaterialsAfterFinalize(block bool) Option {
	return func(s *Service) {
		s.blockMaterialsAfterFinalize = block
	}
}

func New(store Store, passports Passports, opts ...Option) *Service {
	s := &Service{store: store, passports: passports}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddMaterialBatch appends a material batch. caller is recorded but not
// authorized.
func (s *Service) AddMaterialBatch(ctx context.Context, passportID id.PassportID, req models.MaterialBatchRequest, caller id.Identity) (_ *models.MaterialBatch, err error) {
	ctx, span := tracer.Start(ctx, "provenance.AddMaterialBatch")
	defer span.End()
	span.SetAttributes(attribute.Int64("passport_id", int64(passportID)))
	defer func() { s.reject(kindMaterial, err) }()

	if passportID.IsNil() {
		return nil, notFound()
	}

	now := requestcontext.Now(ctx)
	var stored models.MaterialBatch
	err = s.passports.Guard(ctx, passportID, func(ctx context.Context, p passportmodels.Passport) error {
		if s.blockMaterialsAfterFinalize && p.IsFinalized {
			return dErrors.New(dErrors.CodeLocked, "passport is finalized")
		}
		if err := req.Validate(); err != nil {
			return err
		}
		batch, err := s.store.AppendMaterial(ctx, req.Batch(passportID, caller, now))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "provenance store failure")
		}
		stored = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.appended(kindMaterial)
	s.notify(ctx, audit.EntityMaterial, audit.ActionMaterialBatchAdded, stored.Seq, caller, map[string]string{
		"passport_id":      passportID.String(),
		"batch_number":     stored.BatchNumber,
		"material_type":    stored.MaterialType,
		"supplier_name":    stored.SupplierName,
		"certificate_hash": stored.CertificateHash,
	})
	return &stored, nil
}

// RecordProcessEvent appends a process step performed by caller.
func (s *Service) RecordProcessEvent(ctx context.Context, passportID id.PassportID, req models.ProcessEventRequest, caller id.Identity) (_ *models.ProcessEvent, err error) {
	ctx, span := tracer.Start(ctx, "provenance.RecordProcessEvent")
	defer span.End()
	span.SetAttributes(attribute.Int64("passport_id", int64(passportID)))
	defer func() { s.reject(kindEvent, err) }()

	if passportID.IsNil() {
		return nil, notFound()
	}
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}

	now := requestcontext.Now(ctx)
	var stored models.ProcessEvent
	err = s.passports.Guard(ctx, passportID, func(ctx context.Context, _ passportmodels.Passport) error {
		if err := req.Validate(); err != nil {
			return err
		}
		event, err := s.store.AppendEvent(ctx, req.Event(passportID, caller, now))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "provenance store failure")
		}
		stored = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.appended(kindEvent)
	s.notify(ctx, audit.EntityProcess, audit.ActionProcessEventRecorded, stored.Seq, caller, map[string]string{
		"passport_id":     passportID.String(),
		"event_kind":      stored.EventKind,
		"data_locator":    stored.DataLocator,
		"parameters_hash": stored.ParametersHash,
	})
	return &stored, nil
}

// History returns process events in insertion order.
func (s *Service) History(ctx context.Context, passportID id.PassportID) ([]models.ProcessEvent, error) {
	if err := s.passports.Exists(ctx, passportID); err != nil {
		return nil, err
	}
	events, err := s.store.ListEvents(ctx, passportID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if events == nil {
		events = []models.ProcessEvent{}
	}
	return events, nil
}

// Materials returns material batches in insertion order.
func (s *Service) Materials(ctx context.Context, passportID id.PassportID) ([]models.MaterialBatch, error) {
	if err := s.passports.Exists(ctx, passportID); err != nil {
		return nil, err
	}
	batches, err := s.store.ListMaterials(ctx, passportID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if batches == nil {
		batches = []models.MaterialBatch{}
	}
	return batches, nil
}

func notFound() error {
	return dErrors.New(dErrors.CodeNotFound, "passport not found")
}

func wrapStoreErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "provenance read aborted")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "provenance store failure")
}

func (s *Service) appended(kind string) {
	if s.metrics != nil {
		s.metrics.Appended.WithLabelValues(kind).Inc()
	}
}

func (s *Service) reject(kind string, err error) {
	if err != nil && s.metrics != nil {
		s.metrics.Rejected.WithLabelValues(kind, string(dErrors.CodeOf(err))).Inc()
	}
}

func (s *Service) notify(ctx context.Context, kind audit.EntityKind, action audit.Action, seq uint64, actor id.Identity, fields map[string]string) {
	if s.emitter == nil {
		return
	}
	err := s.emitter.Emit(ctx, audit.Event{
		EntityKind: kind,
		EntityID:   strconv.FormatUint(seq, 10),
		Action:     action,
		ActorID:    string(actor),
		Fields:     fields,
	})
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit provenance notification",
			"action", action,
			"passport_id", fields["passport_id"],
			"error", err,
		)
	}
}
