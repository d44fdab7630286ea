package migration

import (
	"fmt"
	"strings"
	"time"
)

const (
	phaseUnderstandNameConstant = "understand"
	phaseGuardrailNameConstant  = "guardrail"
	phaseMigrateNameConstant    = "migrate"
	phaseVerifyNameConstant     = "verify"

	statusPendingConstant    = "pending"
	statusInProgressConstant = "in_progress"
	statusCompletedConstant  = "completed"
	statusFailedConstant     = "failed"

	defaultRiskConstant             = "low"
	defaultSeamPriorityConstant     = "medium"
	defaultPlanVersionConstant      = 1
	defaultPlanStrategyConstant     = "incremental"
	defaultRollbackStrategyConstant = "checkpoint"
	defaultSourceTypeConstant       = "unknown"

	unknownPhaseTemplateConstant = "%w: unknown phase %q"
)

// Phase names one of the four ordered migration stages.
type Phase string

// Supported phases in execution order.
const (
	PhaseUnderstand Phase = Phase(phaseUnderstandNameConstant)
	PhaseGuardrail  Phase = Phase(phaseGuardrailNameConstant)
	PhaseMigrate    Phase = Phase(phaseMigrateNameConstant)
	PhaseVerify     Phase = Phase(phaseVerifyNameConstant)
)

var phaseOrder = []Phase{PhaseUnderstand, PhaseGuardrail, PhaseMigrate, PhaseVerify}

// Phases returns the phases in execution order.
func Phases() []Phase {
	return append([]Phase(nil), phaseOrder...)
}

// ParsePhase converts a user supplied name into a Phase.
func ParsePhase(name string) (Phase, error) {
	candidate := Phase(strings.ToLower(strings.TrimSpace(name)))
	if phaseIndex(candidate) < 0 {
		return "", fmt.Errorf(unknownPhaseTemplateConstant, ErrInvalidArgument, name)
	}
	return candidate, nil
}

// PhaseStatus is the lifecycle state of a phase. Statuses only move forward.
type PhaseStatus string

// Phase statuses.
const (
	PhaseStatusPending    PhaseStatus = PhaseStatus(statusPendingConstant)
	PhaseStatusInProgress PhaseStatus = PhaseStatus(statusInProgressConstant)
	PhaseStatusCompleted  PhaseStatus = PhaseStatus(statusCompletedConstant)
)

// StepStatus is the lifecycle state of a plan step.
type StepStatus string

// Step statuses.
const (
	StepStatusPending    StepStatus = StepStatus(statusPendingConstant)
	StepStatusInProgress StepStatus = StepStatus(statusInProgressConstant)
	StepStatusCompleted  StepStatus = StepStatus(statusCompletedConstant)
	StepStatusFailed     StepStatus = StepStatus(statusFailedConstant)
)

// PhaseRecord tracks one phase inside the manifest. Unset timestamps are empty strings.
type PhaseRecord struct {
	Status      PhaseStatus `json:"status" yaml:"status"`
	StartedAt   string      `json:"started_at" yaml:"started_at"`
	CompletedAt string      `json:"completed_at" yaml:"completed_at"`
}

// SourceInfo describes the codebase being migrated.
type SourceInfo struct {
	Path string `json:"path" yaml:"path"`
	Type string `json:"type" yaml:"type"`
}

// TargetInfo describes the migration destination.
type TargetInfo struct {
	Target   string         `json:"target" yaml:"target"`
	Language string         `json:"language,omitempty" yaml:"language,omitempty"`
	Options  map[string]any `json:"options" yaml:"options"`
}

// ResolvedTarget returns the target name, falling back to the language recorded by older tooling.
func (info TargetInfo) ResolvedTarget() string {
	if len(info.Target) > 0 {
		return info.Target
	}
	return info.Language
}

// Manifest is the durable record of a migration.
type Manifest struct {
	ID                string                `json:"id" yaml:"id"`
	CreatedAt         string                `json:"created_at" yaml:"created_at"`
	SourceInfo        SourceInfo            `json:"source_info" yaml:"source_info"`
	TargetInfo        TargetInfo            `json:"target_info" yaml:"target_info"`
	Phases            map[Phase]PhaseRecord `json:"phases" yaml:"phases"`
	FeatureListPath   string                `json:"feature_list_path" yaml:"feature_list_path"`
	MigrationPlanPath string                `json:"migration_plan_path" yaml:"migration_plan_path"`
	Checkpoints       []string              `json:"checkpoints" yaml:"checkpoints"`
}

// PhaseStatus reports the status of phase, treating absent or blank records as pending.
func (manifest Manifest) PhaseStatus(phase Phase) PhaseStatus {
	record, exists := manifest.Phases[phase]
	if !exists || len(record.Status) == 0 {
		return PhaseStatusPending
	}
	return record.Status
}

// Feature is a behavior guarded by a characterization test.
type Feature struct {
	ID                   string   `json:"id"`
	Category             string   `json:"category"`
	Description          string   `json:"description"`
	VerificationSteps    []string `json:"verification_steps"`
	Passes               bool     `json:"passes"`
	CharacterizationTest string   `json:"characterization_test"`
	Risk                 string   `json:"risk"`
	Notes                string   `json:"notes"`
}

func newFeature() Feature {
	return Feature{Risk: defaultRiskConstant}
}

func (feature Feature) identifier() string {
	return feature.ID
}

func (feature Feature) normalized() Feature {
	feature.VerificationSteps = nonNilStrings(feature.VerificationSteps)
	return feature
}

// MigrationStep is one unit of work in a migration plan.
type MigrationStep struct {
	ID              string     `json:"id"`
	Description     string     `json:"description"`
	Type            string     `json:"type"`
	Files           []string   `json:"files"`
	TestsRequired   []string   `json:"tests_required"`
	EstimatedTokens int        `json:"estimated_tokens"`
	Risk            string     `json:"risk"`
	RollbackPoint   bool       `json:"rollback_point"`
	DependsOn       []string   `json:"depends_on"`
	AssignedAgent   string     `json:"assigned_agent"`
	Status          StepStatus `json:"status"`
}

func newMigrationStep() MigrationStep {
	return MigrationStep{Risk: defaultRiskConstant, Status: StepStatusPending}
}

func (step MigrationStep) identifier() string {
	return step.ID
}

func (step MigrationStep) normalized() MigrationStep {
	step.Files = nonNilStrings(step.Files)
	step.TestsRequired = nonNilStrings(step.TestsRequired)
	step.DependsOn = nonNilStrings(step.DependsOn)
	return step
}

// MigrationPlan is the ordered list of steps together with plan-level policy.
type MigrationPlan struct {
	Version          int             `json:"version"`
	Strategy         string          `json:"strategy"`
	Constraints      []string        `json:"constraints"`
	Steps            []MigrationStep `json:"steps"`
	RollbackStrategy string          `json:"rollback_strategy"`
	ExitCriteria     map[string]any  `json:"exit_criteria"`
}

// NewMigrationPlan returns an empty plan carrying the default policy.
func NewMigrationPlan() MigrationPlan {
	return MigrationPlan{
		Version:          defaultPlanVersionConstant,
		Strategy:         defaultPlanStrategyConstant,
		RollbackStrategy: defaultRollbackStrategyConstant,
	}.normalized()
}

func (plan MigrationPlan) normalized() MigrationPlan {
	plan.Constraints = nonNilStrings(plan.Constraints)
	normalizedSteps := make([]MigrationStep, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		normalizedSteps = append(normalizedSteps, step.normalized())
	}
	plan.Steps = normalizedSteps
	if plan.ExitCriteria == nil {
		plan.ExitCriteria = map[string]any{}
	}
	return plan
}

// SeamInfo describes a boundary in the source codebase relevant to planning.
type SeamInfo struct {
	ID                 string   `json:"id"`
	Description        string   `json:"description"`
	Type               string   `json:"type"`
	Location           string   `json:"location"`
	Name               string   `json:"name"`
	Priority           string   `json:"priority"`
	Files              []string `json:"files"`
	Dependencies       []string `json:"dependencies"`
	Complexity         string   `json:"complexity"`
	Confidence         float64  `json:"confidence"`
	SuggestedInterface string   `json:"suggested_interface"`
}

func newSeamInfo() SeamInfo {
	return SeamInfo{Priority: defaultSeamPriorityConstant}
}

func (seam SeamInfo) identifier() string {
	return seam.ID
}

func (seam SeamInfo) normalized() SeamInfo {
	seam.Files = nonNilStrings(seam.Files)
	seam.Dependencies = nonNilStrings(seam.Dependencies)
	return seam
}

// CheckpointMetadata is the per-step record written next to the manifest.
type CheckpointMetadata struct {
	StepID    string `json:"step_id"`
	Tag       string `json:"tag"`
	CreatedAt string `json:"created_at"`
}

// PhaseResult reports the outcome of AdvancePhase.
type PhaseResult struct {
	Phase       Phase       `json:"phase" yaml:"phase"`
	Status      PhaseStatus `json:"status" yaml:"status"`
	CompletedAt string      `json:"completed_at" yaml:"completed_at"`
	NextPhase   Phase       `json:"next_phase,omitempty" yaml:"next_phase,omitempty"`
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

func formatTimestamp(moment time.Time) string {
	return moment.UTC().Format(time.RFC3339)
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
