// Package attestation decides whether a passport carries the attestations
// finalization requires.
//
// Two kinds exist. ConsensusAttestation needs N distinct validators to pass
// the passport; LabTestAttestation needs a lab test result reviewed as
// validated by a second lab. A Gate requires every attestation it holds.
package attestation

import (
	"context"
	"fmt"

	"provenant/internal/validation/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

// Attestation checks one requirement. It returns a ConsensusNotReached error
// when the passport does not meet it.
type Attestation interface {
	Check(ctx context.Context, passportID id.PassportID) error
}

// ConsensusSource tallies validator submissions.
type ConsensusSource interface {
	Status(ctx context.Context, passportID id.PassportID) (models.ConsensusStatus, error)
}

// LabTestSource reports validated lab tests.
type LabTestSource interface {
	HasValidatedTest(ctx context.Context, passportID id.PassportID) (bool, error)
}

type ConsensusAttestation struct {
	source ConsensusSource
}

func NewConsensusAttestation(source ConsensusSource) *ConsensusAttestation {
	return &ConsensusAttestation{source: source}
}

func (a *ConsensusAttestation) Check(ctx context.Context, passportID id.PassportID) error {
	status, err := a.source.Status(ctx, passportID)
	if err != nil {
		return err
	}
	if !status.Reached {
		return dErrors.Newf(dErrors.CodeConsensusNotReached,
			"%d of %d required validations passed", status.Passed, status.Required)
	}
	return nil
}

type LabTestAttestation struct {
	source LabTestSource
}

func NewLabTestAttestation(source LabTestSource) *LabTestAttestation {
	return &LabTestAttestation{source: source}
}

func (a *LabTestAttestation) Check(ctx context.Context, passportID id.PassportID) error {
	ok, err := a.source.HasValidatedTest(ctx, passportID)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeConsensusNotReached, "no lab test result has been validated")
	}
	return nil
}

// Gate requires all of its attestations. An empty gate admits every passport.
type Gate struct {
	attestations []Attestation
}

func NewGate(attestations ...Attestation) *Gate {
	return &Gate{attestations: attestations}
}

// Mode names a gate configuration.
type Mode string

const (
	ModeConsensus Mode = "consensus"
	ModeLab       Mode = "lab"
	ModeBoth      Mode = "both"
	ModeNone      Mode = "none"
)

// NewGateForMode builds the gate a deployment selected.
func NewGateForMode(mode Mode, consensus ConsensusSource, labs LabTestSource) (*Gate, error) {
	switch mode {
	case ModeConsensus:
		return NewGate(NewConsensusAttestation(consensus)), nil
	case ModeLab:
		return NewGate(NewLabTestAttestation(labs)), nil
	case ModeBoth:
		return NewGate(NewConsensusAttestation(consensus), NewLabTestAttestation(labs)), nil
	case ModeNone:
		return NewGate(), nil
	default:
		return nil, fmt.Errorf("unknown finalize gate %q", mode)
	}
}

// CheckFinalize runs each attestation in order and returns the first failure.
func (g *Gate) CheckFinalize(ctx context.Context, passportID id.PassportID) error {
	for _, a := range g.attestations {
		if err := a.Check(ctx, passportID); err != nil {
			return err
		}
	}
	return nil
}
