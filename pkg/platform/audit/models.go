package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies notifications by their primary consumer.
type EventCategory string

const (
	// CategoryCompliance covers events that change the certification state of a
	// passport or who may attest to it. Indexers must not drop these.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine accumulation (provenance entries,
	// locator updates) useful for timelines and debugging.
	CategoryOperations EventCategory = "operations"
)

// EntityKind names the record a notification is about.
type EntityKind string

const (
	EntityPassport   EntityKind = "passport"
	EntityMaterial   EntityKind = "material_batch"
	EntityProcess    EntityKind = "process_event"
	EntityValidator  EntityKind = "validator"
	EntityValidation EntityKind = "validation"
	EntityTestResult EntityKind = "test_result"
	EntityLab        EntityKind = "lab"
)

// Action is the operation that produced the notification.
type Action string

const (
	ActionPassportCreated      Action = "passport_created"
	ActionLocatorUpdated       Action = "passport_locator_updated"
	ActionDerivedHashSet       Action = "passport_derived_hash_set"
	ActionCertHashAppended     Action = "passport_cert_hash_appended"
	ActionPassportDeactivated  Action = "passport_deactivated"
	ActionPassportFinalized    Action = "passport_finalized"
	ActionPassportTransferred  Action = "passport_transferred"
	ActionMaterialBatchAdded   Action = "material_batch_added"
	ActionProcessEventRecorded Action = "process_event_recorded"
	ActionValidatorRegistered  Action = "validator_registered"
	ActionValidationSubmitted  Action = "validation_submitted"
	ActionTestResultSubmitted  Action = "test_result_submitted"
	ActionTestResultUpdated    Action = "test_result_updated"
	ActionTestResultValidated  Action = "test_result_validated"
	ActionLabAuthorized        Action = "lab_authorized"
	ActionLabRevoked           Action = "lab_revoked"
)

var actionCategories = map[Action]EventCategory{
	ActionPassportCreated:     CategoryCompliance,
	ActionPassportDeactivated: CategoryCompliance,
	ActionPassportFinalized:   CategoryCompliance,
	ActionPassportTransferred: CategoryCompliance,
	ActionValidatorRegistered: CategoryCompliance,
	ActionValidationSubmitted: CategoryCompliance,
	ActionTestResultValidated: CategoryCompliance,
	ActionLabAuthorized:       CategoryCompliance,
	ActionLabRevoked:          CategoryCompliance,

	ActionLocatorUpdated:       CategoryOperations,
	ActionDerivedHashSet:       CategoryOperations,
	ActionCertHashAppended:     CategoryOperations,
	ActionMaterialBatchAdded:   CategoryOperations,
	ActionProcessEventRecorded: CategoryOperations,
	ActionTestResultSubmitted:  CategoryOperations,
	ActionTestResultUpdated:    CategoryOperations,
}

// Category returns the EventCategory for this action.
// Unknown actions default to CategoryOperations.
func (a Action) Category() EventCategory {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is a structured notification for external indexers, emitted after each
// successful state change. Fields holds the salient changed values as strings.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Category   EventCategory     `json:"category"`
	Timestamp  time.Time         `json:"timestamp"`
	EntityKind EntityKind        `json:"entity_kind"`
	EntityID   string            `json:"entity_id"`
	Action     Action            `json:"action"`
	ActorID    string            `json:"actor_id,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// Store persists notifications.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEntity(ctx context.Context, kind EntityKind, entityID string) ([]Event, error)
}

//go:generate mockgen -destination=mocks/mock_emitter.go -package=mocks provenant/pkg/platform/audit Emitter

// Emitter is what domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
