package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

const (
	maximumOffendingIdentifiersConstant  = 5
	offendingIdentifierSeparatorConstant = ", "
	gateCannotJumpTemplateConstant       = "Cannot jump from %s to %s"
	gateMissingDocsMessageConstant       = "Phase gate failed: no documentation generated in docs/"
	gateMissingSeamsMessageConstant      = "Phase gate failed: seams.json does not exist"
	gateUnderstandPassedMessageConstant  = "Gate passed: docs generated and seams.json exists"
	gateFeaturesMissingMessageConstant   = "Phase gate failed: features.json not found"
	gateFeaturesInvalidTemplateConstant  = "Phase gate failed: features.json is invalid: %v"
	gateNoFeaturesMessageConstant        = "Phase gate failed: no features defined"
	gateFailingFeaturesTemplateConstant  = "Phase gate failed: %d characterization tests not passing (%s)"
	gateGuardrailPassedMessageConstant   = "Gate passed: all characterization tests pass"
	gatePlanMissingMessageConstant       = "Phase gate failed: migration-plan.json not found"
	gatePlanInvalidTemplateConstant      = "Phase gate failed: migration-plan.json is invalid: %v"
	gateIncompleteStepsTemplateConstant  = "Phase gate failed: %d steps not completed (%s)"
	gateMigratePassedMessageConstant     = "Gate passed: all migration steps completed"
	gateInspectionErrorTemplateConstant  = "%w: unable to inspect %s: %w"
)

// GateVerdict is the outcome of a phase gate check. Reason is suitable for end users verbatim.
type GateVerdict struct {
	Allowed              bool     `json:"allowed" yaml:"allowed"`
	Reason               string   `json:"reason" yaml:"reason"`
	OffendingIdentifiers []string `json:"offending_identifiers,omitempty" yaml:"offending_identifiers,omitempty"`
}

// GateValidator evaluates read-only preconditions between adjacent phases.
type GateValidator struct {
	layout   Layout
	features *FeatureRepository
	plans    *PlanRepository
}

// NewGateValidator constructs a validator reading the artifacts of layout.
func NewGateValidator(layout Layout, features *FeatureRepository, plans *PlanRepository) GateValidator {
	return GateValidator{layout: layout, features: features, plans: plans}
}

// Check evaluates the transition from fromPhase to toPhase. Errors are reserved for unknown
// phases and unreadable artifacts; unmet preconditions produce a negative verdict.
func (validator GateValidator) Check(fromPhase Phase, toPhase Phase) (GateVerdict, error) {
	fromIndex := phaseIndex(fromPhase)
	if fromIndex < 0 {
		return GateVerdict{}, fmt.Errorf(unknownPhaseTemplateConstant, ErrInvalidArgument, fromPhase)
	}
	toIndex := phaseIndex(toPhase)
	if toIndex < 0 {
		return GateVerdict{}, fmt.Errorf(unknownPhaseTemplateConstant, ErrInvalidArgument, toPhase)
	}
	if toIndex != fromIndex+1 {
		return GateVerdict{Reason: fmt.Sprintf(gateCannotJumpTemplateConstant, fromPhase, toPhase)}, nil
	}

	switch fromPhase {
	case PhaseUnderstand:
		return validator.checkUnderstandingArtifacts()
	case PhaseGuardrail:
		return validator.checkCharacterizationTests()
	default:
		return validator.checkPlanCompletion()
	}
}

func (validator GateValidator) checkUnderstandingArtifacts() (GateVerdict, error) {
	docsDirectory := validator.layout.DocsDirectory()
	documentationEntries, readError := os.ReadDir(docsDirectory)
	if readError != nil && !errors.Is(readError, fs.ErrNotExist) {
		return GateVerdict{}, fmt.Errorf(gateInspectionErrorTemplateConstant, ErrIOFailure, docsDirectory, readError)
	}
	if len(documentationEntries) == 0 {
		return GateVerdict{Reason: gateMissingDocsMessageConstant}, nil
	}

	seamsPath := validator.layout.SeamsPath()
	if _, statError := os.Stat(seamsPath); statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return GateVerdict{Reason: gateMissingSeamsMessageConstant}, nil
		}
		return GateVerdict{}, fmt.Errorf(gateInspectionErrorTemplateConstant, ErrIOFailure, seamsPath, statError)
	}

	return GateVerdict{Allowed: true, Reason: gateUnderstandPassedMessageConstant}, nil
}

func (validator GateValidator) checkCharacterizationTests() (GateVerdict, error) {
	features, loadError := validator.features.Load()
	switch {
	case errors.Is(loadError, ErrNotFound):
		return GateVerdict{Reason: gateFeaturesMissingMessageConstant}, nil
	case errors.Is(loadError, ErrCorrupt):
		return GateVerdict{Reason: fmt.Sprintf(gateFeaturesInvalidTemplateConstant, corruptionCause(loadError))}, nil
	case loadError != nil:
		return GateVerdict{}, loadError
	}

	if len(features) == 0 {
		return GateVerdict{Reason: gateNoFeaturesMessageConstant}, nil
	}

	var failingIdentifiers []string
	for _, feature := range features {
		if !feature.Passes {
			failingIdentifiers = append(failingIdentifiers, feature.ID)
		}
	}
	if len(failingIdentifiers) > 0 {
		reportedIdentifiers := truncateIdentifiers(failingIdentifiers)
		return GateVerdict{
			Reason:               fmt.Sprintf(gateFailingFeaturesTemplateConstant, len(failingIdentifiers), strings.Join(reportedIdentifiers, offendingIdentifierSeparatorConstant)),
			OffendingIdentifiers: reportedIdentifiers,
		}, nil
	}

	return GateVerdict{Allowed: true, Reason: gateGuardrailPassedMessageConstant}, nil
}

func (validator GateValidator) checkPlanCompletion() (GateVerdict, error) {
	plan, loadError := validator.plans.Load()
	switch {
	case errors.Is(loadError, ErrNotFound):
		return GateVerdict{Reason: gatePlanMissingMessageConstant}, nil
	case errors.Is(loadError, ErrCorrupt):
		return GateVerdict{Reason: fmt.Sprintf(gatePlanInvalidTemplateConstant, corruptionCause(loadError))}, nil
	case loadError != nil:
		return GateVerdict{}, loadError
	}

	var incompleteIdentifiers []string
	for _, step := range plan.Steps {
		if step.Status != StepStatusCompleted {
			incompleteIdentifiers = append(incompleteIdentifiers, step.ID)
		}
	}
	if len(incompleteIdentifiers) > 0 {
		reportedIdentifiers := truncateIdentifiers(incompleteIdentifiers)
		return GateVerdict{
			Reason:               fmt.Sprintf(gateIncompleteStepsTemplateConstant, len(incompleteIdentifiers), strings.Join(reportedIdentifiers, offendingIdentifierSeparatorConstant)),
			OffendingIdentifiers: reportedIdentifiers,
		}, nil
	}

	return GateVerdict{Allowed: true, Reason: gateMigratePassedMessageConstant}, nil
}

func truncateIdentifiers(identifiers []string) []string {
	if len(identifiers) > maximumOffendingIdentifiersConstant {
		return append([]string(nil), identifiers[:maximumOffendingIdentifiersConstant]...)
	}
	return identifiers
}

func corruptionCause(loadError error) error {
	var corruption CorruptDocumentError
	if errors.As(loadError, &corruption) && corruption.Cause != nil {
		return corruption.Cause
	}
	return loadError
}
