package migration

import "encoding/json"

// FeatureProgress counts passing characterization tests.
type FeatureProgress struct {
	Passing int `json:"passing" yaml:"passing"`
	Total   int `json:"total" yaml:"total"`
}

// StepProgress counts plan steps. Current is 1-based and zero when the plan has no steps.
type StepProgress struct {
	Current   int `json:"current" yaml:"current"`
	Completed int `json:"completed" yaml:"completed"`
	Total     int `json:"total" yaml:"total"`
}

// CheckpointReference identifies the most recent checkpoint. Timestamp is empty when the
// metadata file could not be read.
type CheckpointReference struct {
	Tag       string `json:"tag" yaml:"tag"`
	StepID    string `json:"step_id" yaml:"step_id"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

// ProgressReport is a read-only aggregate of the manifest and its artifacts.
type ProgressReport struct {
	MigrationID     string                `json:"migration_id" yaml:"migration_id"`
	Status          PhaseStatus           `json:"status" yaml:"status"`
	CurrentPhase    string                `json:"current_phase" yaml:"current_phase"`
	Phases          map[Phase]PhaseRecord `json:"phases" yaml:"phases"`
	CompletedPhases []Phase               `json:"completed_phases" yaml:"completed_phases"`
	Source          SourceInfo            `json:"source" yaml:"source"`
	Target          TargetInfo            `json:"target" yaml:"target"`
	CurrentStep     string                `json:"current_step,omitempty" yaml:"current_step,omitempty"`
	Features        FeatureProgress       `json:"features" yaml:"features"`
	Steps           StepProgress          `json:"steps" yaml:"steps"`
	LastCheckpoint  *CheckpointReference  `json:"last_checkpoint" yaml:"last_checkpoint"`
	CheckpointCount int                   `json:"checkpoints_count" yaml:"checkpoints_count"`
}

// Progress aggregates the migration state. Absent or unreadable features, plan and checkpoint
// metadata produce zeroed or partial sections; only manifest failures are returned.
func (pipeline *Pipeline) Progress() (ProgressReport, error) {
	pipeline.lock.Lock()
	defer pipeline.lock.Unlock()

	manifest, loadError := pipeline.manifests.Load()
	if loadError != nil {
		return ProgressReport{}, loadError
	}

	overallStatus, currentPhase, completedPhases := summarizePhases(manifest)
	report := ProgressReport{
		MigrationID:     pipeline.migrationID,
		Status:          overallStatus,
		CurrentPhase:    currentPhase,
		Phases:          manifest.Phases,
		CompletedPhases: completedPhases,
		Source:          manifest.SourceInfo,
		Target:          manifest.TargetInfo,
		CheckpointCount: len(manifest.Checkpoints),
	}

	if features, featuresError := pipeline.features.Load(); featuresError == nil {
		report.Features.Total = len(features)
		for _, feature := range features {
			if feature.Passes {
				report.Features.Passing++
			}
		}
	}

	if plan, planError := pipeline.plans.Load(); planError == nil {
		report.Steps, report.CurrentStep = summarizeSteps(plan.Steps)
	}

	if len(manifest.Checkpoints) > 0 {
		lastTag := manifest.Checkpoints[len(manifest.Checkpoints)-1]
		lastCheckpoint := pipeline.resolveCheckpoint(lastTag)
		report.LastCheckpoint = &lastCheckpoint
	}

	return report, nil
}

// summarizeSteps reports the first in_progress step as current; otherwise the step after the
// last completed one, capped at the total.
func summarizeSteps(steps []MigrationStep) (StepProgress, string) {
	progress := StepProgress{Total: len(steps)}
	currentStepID := ""
	for stepIndex, step := range steps {
		switch step.Status {
		case StepStatusCompleted:
			progress.Completed++
		case StepStatusInProgress:
			if len(currentStepID) == 0 {
				currentStepID = step.ID
				progress.Current = stepIndex + 1
			}
		}
	}
	if len(currentStepID) == 0 && progress.Total > 0 {
		progress.Current = min(progress.Completed+1, progress.Total)
	}
	return progress, currentStepID
}

func (pipeline *Pipeline) resolveCheckpoint(tagName string) CheckpointReference {
	stepID := stepIDFromTag(tagName)
	reference := CheckpointReference{Tag: tagName, StepID: stepID}
	if ValidateStepID(stepID) != nil {
		return reference
	}

	content, readError := readDocument(pipeline.layout.CheckpointMetadataPath(stepID))
	if readError != nil {
		return reference
	}
	var metadata CheckpointMetadata
	if decodeError := json.Unmarshal(content, &metadata); decodeError != nil {
		return reference
	}
	if len(metadata.Tag) > 0 {
		reference.Tag = metadata.Tag
	}
	if len(metadata.StepID) > 0 {
		reference.StepID = metadata.StepID
	}
	reference.Timestamp = metadata.CreatedAt
	return reference
}
