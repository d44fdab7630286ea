package migration

import (
	"fmt"
	"maps"
)

const (
	startPhaseRefusedTemplateConstant    = "%w: cannot start phase %q: status is %q, expected %q"
	startPhaseOutOfOrderTemplateConstant = "%w: cannot start phase %q before %q is completed"
	advancePhaseRefusedTemplateConstant  = "%w: cannot advance phase %q: status is %q, expected %q"
	currentPhaseNoneConstant             = "pending"
)

func phaseIndex(phase Phase) int {
	for index, candidate := range phaseOrder {
		if candidate == phase {
			return index
		}
	}
	return -1
}

// successorOf returns the phase following phase, or false for the terminal phase.
func successorOf(phase Phase) (Phase, bool) {
	index := phaseIndex(phase)
	if index < 0 || index+1 >= len(phaseOrder) {
		return "", false
	}
	return phaseOrder[index+1], true
}

func requireKnownPhase(phase Phase) error {
	if phaseIndex(phase) < 0 {
		return fmt.Errorf(unknownPhaseTemplateConstant, ErrInvalidArgument, phase)
	}
	return nil
}

func initialPhases(startedAt string) map[Phase]PhaseRecord {
	phases := make(map[Phase]PhaseRecord, len(phaseOrder))
	for _, phase := range phaseOrder {
		phases[phase] = PhaseRecord{Status: PhaseStatusPending}
	}
	phases[PhaseUnderstand] = PhaseRecord{Status: PhaseStatusInProgress, StartedAt: startedAt}
	return phases
}

// startTransition returns the manifest with phase moved to in_progress. changed is false when the
// phase was already in_progress. The input manifest is never modified.
func startTransition(manifest Manifest, phase Phase, timestamp string) (Manifest, bool, error) {
	currentStatus := manifest.PhaseStatus(phase)
	switch currentStatus {
	case PhaseStatusInProgress:
		return manifest, false, nil
	case PhaseStatusPending:
	default:
		return manifest, false, fmt.Errorf(startPhaseRefusedTemplateConstant, ErrIllegalStateTransition, phase, currentStatus, PhaseStatusPending)
	}

	for _, earlierPhase := range phaseOrder[:phaseIndex(phase)] {
		if manifest.PhaseStatus(earlierPhase) != PhaseStatusCompleted {
			return manifest, false, fmt.Errorf(startPhaseOutOfOrderTemplateConstant, ErrIllegalStateTransition, phase, earlierPhase)
		}
	}

	updatedManifest := manifest
	updatedManifest.Phases = clonePhases(manifest.Phases)
	record := updatedManifest.Phases[phase]
	record.Status = PhaseStatusInProgress
	record.StartedAt = timestamp
	updatedManifest.Phases[phase] = record
	return updatedManifest, true, nil
}

func requireInProgress(manifest Manifest, phase Phase) error {
	currentStatus := manifest.PhaseStatus(phase)
	if currentStatus != PhaseStatusInProgress {
		return fmt.Errorf(advancePhaseRefusedTemplateConstant, ErrIllegalStateTransition, phase, currentStatus, PhaseStatusInProgress)
	}
	return nil
}

// advanceTransition completes phase and starts its successor in one manifest value.
func advanceTransition(manifest Manifest, phase Phase, timestamp string) (Manifest, error) {
	if stateError := requireInProgress(manifest, phase); stateError != nil {
		return manifest, stateError
	}

	updatedManifest := manifest
	updatedManifest.Phases = clonePhases(manifest.Phases)

	completedRecord := updatedManifest.Phases[phase]
	completedRecord.Status = PhaseStatusCompleted
	completedRecord.CompletedAt = timestamp
	updatedManifest.Phases[phase] = completedRecord

	if nextPhase, hasSuccessor := successorOf(phase); hasSuccessor {
		startedRecord := updatedManifest.Phases[nextPhase]
		startedRecord.Status = PhaseStatusInProgress
		startedRecord.StartedAt = timestamp
		updatedManifest.Phases[nextPhase] = startedRecord
	}
	return updatedManifest, nil
}

func clonePhases(phases map[Phase]PhaseRecord) map[Phase]PhaseRecord {
	if phases == nil {
		return make(map[Phase]PhaseRecord, len(phaseOrder))
	}
	return maps.Clone(phases)
}

// OverallStatus derives a migration status with priority in_progress > completed > pending.
func OverallStatus(manifest Manifest) PhaseStatus {
	overallStatus, _, _ := summarizePhases(manifest)
	return overallStatus
}

// summarizePhases walks the phases in order and reports the overall status, the current phase
// (first in_progress, else last completed, else "pending") and the completed phases.
func summarizePhases(manifest Manifest) (PhaseStatus, string, []Phase) {
	overallStatus := PhaseStatusPending
	currentPhase := currentPhaseNoneConstant
	completedPhases := []Phase{}
	for _, phase := range phaseOrder {
		switch manifest.PhaseStatus(phase) {
		case PhaseStatusInProgress:
			return PhaseStatusInProgress, string(phase), completedPhases
		case PhaseStatusCompleted:
			overallStatus = PhaseStatusCompleted
			currentPhase = string(phase)
			completedPhases = append(completedPhases, phase)
		}
	}
	return overallStatus, currentPhase, completedPhases
}
