package migration

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
)

const (
	logFieldMigrationIDConstant           = "migration_id"
	logFieldPhaseConstant                 = "phase"
	logFieldNextPhaseConstant             = "next_phase"
	logFieldStepIDConstant                = "step_id"
	logFieldTagConstant                   = "tag"
	logFieldPathConstant                  = "path"
	logFieldCountConstant                 = "count"
	logFieldReasonConstant                = "reason"
	manifestCreatedMessageConstant        = "Created migration manifest"
	phaseStartedMessageConstant           = "Phase started"
	phaseCompletedMessageConstant         = "Phase completed"
	phaseGateBlockedMessageConstant       = "Phase gate blocked advancement"
	featuresSavedMessageConstant          = "Saved features"
	planSavedMessageConstant              = "Saved migration plan"
	seamsSavedMessageConstant             = "Saved seams"
	migrationDirectoryPermissionsConstant = os.FileMode(0o755)
	directoryCreationTemplateConstant     = "%w: unable to create %s: %w"
	manifestExistsTemplateConstant        = "%w: manifest already exists for %s"
	missingMigrationIDMessageConstant     = "migration id not configured"
	missingRootMessageConstant            = "migrations root not configured"
	missingWriterMessageConstant          = "document writer not configured"
	missingBackendMessageConstant         = "checkpoint backend not configured"
)

var (
	errMigrationIDMissing = errors.New(missingMigrationIDMessageConstant)
	errRootMissing        = errors.New(missingRootMessageConstant)
	errWriterMissing      = errors.New(missingWriterMessageConstant)
	errBackendMissing     = errors.New(missingBackendMessageConstant)
)

// PipelineDependencies describes the collaborators of a Pipeline.
type PipelineDependencies struct {
	Root         string
	MigrationID  string
	CodebasePath string
	Target       string
	Backend      CheckpointBackend
	Writer       DocumentWriter
	Clock        Clock
	Logger       *zap.Logger
}

// Pipeline drives one migration. Every exported method is safe for concurrent use; manifest
// read-modify-write sequences and artifact access hold the pipeline mutex for their whole duration.
type Pipeline struct {
	migrationID  string
	codebasePath string
	target       string
	layout       Layout
	manifests    *ManifestStore
	features     *FeatureRepository
	plans        *PlanRepository
	seams        *SeamRepository
	gates        GateValidator
	backend      CheckpointBackend
	writer       DocumentWriter
	clock        Clock
	logger       *zap.Logger
	lock         sync.Mutex
}

// NewPipeline constructs a Pipeline for an existing or yet to be created migration directory.
func NewPipeline(dependencies PipelineDependencies) (*Pipeline, error) {
	if len(dependencies.Root) == 0 {
		return nil, errRootMissing
	}
	if len(dependencies.MigrationID) == 0 {
		return nil, errMigrationIDMissing
	}
	if validationError := ValidateMigrationID(dependencies.MigrationID); validationError != nil {
		return nil, validationError
	}
	if dependencies.Writer == nil {
		return nil, errWriterMissing
	}
	if dependencies.Backend == nil {
		return nil, errBackendMissing
	}

	clock := dependencies.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	layout := NewLayout(dependencies.Root, dependencies.MigrationID)
	features := NewFeatureRepository(layout.FeaturesPath(), dependencies.Writer)
	plans := NewPlanRepository(layout.PlanPath(), dependencies.Writer)

	return &Pipeline{
		migrationID:  dependencies.MigrationID,
		codebasePath: dependencies.CodebasePath,
		target:       dependencies.Target,
		layout:       layout,
		manifests:    NewManifestStore(layout.ManifestPath(), dependencies.Writer),
		features:     features,
		plans:        plans,
		seams:        NewSeamRepository(layout.SeamsPath(), dependencies.Writer),
		gates:        NewGateValidator(layout, features, plans),
		backend:      dependencies.Backend,
		writer:       dependencies.Writer,
		clock:        clock,
		logger:       logger.With(zap.String(logFieldMigrationIDConstant, dependencies.MigrationID)),
	}, nil
}

// ID returns the migration identifier.
func (pipeline *Pipeline) ID() string {
	return pipeline.migrationID
}

// CodebasePath returns the working directory checkpoints operate on.
func (pipeline *Pipeline) CodebasePath() string {
	return pipeline.codebasePath
}

// Target returns the migration target.
func (pipeline *Pipeline) Target() string {
	return pipeline.target
}

// Directory returns the migration directory.
func (pipeline *Pipeline) Directory() string {
	return pipeline.layout.Directory()
}

// CreateManifest writes the initial manifest with understand in progress. It refuses to
// overwrite an existing manifest.
func (pipeline *Pipeline) CreateManifest(sourceType string, options map[string]any) (Manifest, error) {
	pipeline.lock.Lock()
	defer pipeline.lock.Unlock()

	if _, statError := os.Stat(pipeline.layout.ManifestPath()); statError == nil {
		return Manifest{}, fmt.Errorf(manifestExistsTemplateConstant, ErrIllegalStateTransition, pipeline.migrationID)
	}

	for _, directoryPath := range []string{pipeline.layout.DocsDirectory(), pipeline.layout.CheckpointsDirectory()} {
		if mkdirError := os.MkdirAll(directoryPath, migrationDirectoryPermissionsConstant); mkdirError != nil {
			return Manifest{}, fmt.Errorf(directoryCreationTemplateConstant, ErrIOFailure, directoryPath, mkdirError)
		}
	}

	targetOptions := map[string]any{}
	for optionKey, optionValue := range options {
		targetOptions[optionKey] = optionValue
	}
	if len(sourceType) == 0 {
		if configuredType, isString := targetOptions[sourceTypeOptionKeyConstant].(string); isString && len(configuredType) > 0 {
			sourceType = configuredType
		} else {
			sourceType = defaultSourceTypeConstant
		}
	}

	timestamp := formatTimestamp(pipeline.clock.Now())
	manifest := Manifest{
		ID:                pipeline.migrationID,
		CreatedAt:         timestamp,
		SourceInfo:        SourceInfo{Path: pipeline.codebasePath, Type: sourceType},
		TargetInfo:        TargetInfo{Target: pipeline.target, Options: targetOptions},
		Phases:            initialPhases(timestamp),
		FeatureListPath:   pipeline.layout.FeaturesPath(),
		MigrationPlanPath: pipeline.layout.PlanPath(),
		Checkpoints:       []string{},
	}
	if saveError := pipeline.manifests.Save(manifest); saveError != nil {
		return Manifest{}, saveError
	}

	pipeline.logger.Info(manifestCreatedMessageConstant, zap.String(logFieldPathConstant, pipeline.layout.ManifestPath()))
	return manifest, nil
}

// LoadManifest reads the current manifest.
func (pipeline *Pipeline) LoadManifest() (Manifest, error) {
	pipeline.lock.Lock()
	defer pipeline.lock.Unlock()
	return pipeline.manifests.Load()
}

// PhaseStatus reports the status of phase.
func (pipeline *Pipeline) PhaseStatus(phase Phase) (PhaseStatus, error) {
	if phaseError := requireKnownPhase(phase); phaseError != nil {
		return "", phaseError
	}
	manifest, loadError := pipeline.LoadManifest()
	if loadError != nil {
		return "", loadError
	}
	return manifest.PhaseStatus(phase), nil
}

// StartPhase moves a pending phase to in_progress. Starting an in_progress phase is a no-op that
// keeps its original start timestamp.
func (pipeline *Pipeline) StartPhase(phase Phase) error {
	if phaseError := requireKnownPhase(phase); phaseError != nil {
		return phaseError
	}

	pipeline.lock.Lock()
	defer pipeline.lock.Unlock()

	manifest, loadError := pipeline.manifests.Load()
	if loadError != nil {
		return loadError
	}

	updatedManifest, changed, transitionError := startTransition(manifest, phase, formatTimestamp(pipeline.clock.Now()))
	if transitionError != nil {
		return transitionError
	}
	if !changed {
		return nil
	}
	if saveError := pipeline.manifests.Save(updatedManifest); saveError != nil {
		return saveError
	}

	pipeline.logger.Info(phaseStartedMessageConstant, zap.String(logFieldPhaseConstant, string(phase)))
	return nil
}

// CheckPhaseGate evaluates the gate between two phases without mutating anything.
func (pipeline *Pipeline) CheckPhaseGate(fromPhase Phase, toPhase Phase) (GateVerdict, error) {
	pipeline.lock.Lock()
	defer pipeline.lock.Unlock()
	return pipeline.gates.Check(fromPhase, toPhase)
}

// AdvancePhase completes an in_progress phase and starts its successor in a single manifest
// write. A failed gate returns GateBlockedError and leaves the manifest untouched.
func (pipeline *Pipeline) AdvancePhase(phase Phase) (PhaseResult, error) {
	if phaseError := requireKnownPhase(phase); phaseError != nil {
		return PhaseResult{}, phaseError
	}

	pipeline.lock.Lock()
	defer pipeline.lock.Unlock()

	manifest, loadError := pipeline.manifests.Load()
	if loadError != nil {
		return PhaseResult{}, loadError
	}
	if stateError := requireInProgress(manifest, phase); stateError != nil {
		return PhaseResult{}, stateError
	}

	nextPhase, hasSuccessor := successorOf(phase)
	if hasSuccessor {
		verdict, gateError := pipeline.gates.Check(phase, nextPhase)
		if gateError != nil {
			return PhaseResult{}, gateError
		}
		if !verdict.Allowed {
			pipeline.logger.Warn(phaseGateBlockedMessageConstant,
				zap.String(logFieldPhaseConstant, string(phase)),
				zap.String(logFieldReasonConstant, verdict.Reason),
			)
			return PhaseResult{}, GateBlockedError{
				FromPhase:            phase,
				ToPhase:              nextPhase,
				Reason:               verdict.Reason,
				OffendingIdentifiers: verdict.OffendingIdentifiers,
			}
		}
	}

	timestamp := formatTimestamp(pipeline.clock.Now())
	updatedManifest, transitionError := advanceTransition(manifest, phase, timestamp)
	if transitionError != nil {
		return PhaseResult{}, transitionError
	}
	if saveError := pipeline.manifests.Save(updatedManifest); saveError != nil {
		return PhaseResult{}, saveError
	}

	pipeline.logger.Info(phaseCompletedMessageConstant,
		zap.String(logFieldPhaseConstant, string(phase)),
		zap.String(logFieldNextPhaseConstant, string(nextPhase)),
	)
	return PhaseResult{Phase: phase, Status: PhaseStatusCompleted, CompletedAt: timestamp, NextPhase: nextPhase}, nil
}

// LoadFeatures reads features.json.
func (pipeline *Pipeline) LoadFeatures() ([]Feature, error) {
	pipeline.lock.Lock()
	defer pipeline.lock.Unlock()
	return pipeline.features.Load()
}

// SaveFeatures replaces features.json.
func (pipeline *Pipeline) SaveFeatures(features []Feature) error {
	pipeline.lock.Lock()
	defer pipeline.lock.Unlock()
	if saveError := pipeline.features.Save(features); saveError != nil {
		return saveError
	}
	pipeline.logger.Info(featuresSavedMessageConstant, zap.Int(logFieldCountConstant, len(features)))
	return nil
}

// LoadPlan reads migration-plan.json.
func (pipeline *Pipeline) LoadPlan() (MigrationPlan, error) {
	pipeline.lock.Lock()
	defer pipeline.lock.Unlock()
	return pipeline.plans.Load()
}

// SavePlan replaces migration-plan.json.
func (pipeline *Pipeline) SavePlan(plan MigrationPlan) error {
	pipeline.lock.Lock()
	defer pipeline.lock.Unlock()
	if saveError := pipeline.plans.Save(plan); saveError != nil {
		return saveError
	}
	pipeline.logger.Info(planSavedMessageConstant, zap.Int(logFieldCountConstant, len(plan.Steps)))
	return nil
}

// LoadSeams reads seams.json.
func (pipeline *Pipeline) LoadSeams() ([]SeamInfo, error) {
	pipeline.lock.Lock()
	defer pipeline.lock.Unlock()
	return pipeline.seams.Load()
}

// SaveSeams replaces seams.json.
func (pipeline *Pipeline) SaveSeams(seams []SeamInfo) error {
	pipeline.lock.Lock()
	defer pipeline.lock.Unlock()
	if saveError := pipeline.seams.Save(seams); saveError != nil {
		return saveError
	}
	pipeline.logger.Info(seamsSavedMessageConstant, zap.Int(logFieldCountConstant, len(seams)))
	return nil
}
