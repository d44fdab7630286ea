package migration

import (
	"encoding/json"
)

const (
	featuresWrapperKeyConstant = "features"
	seamsWrapperKeyConstant    = "seams"
)

// FeatureRepository reads and writes features.json.
type FeatureRepository struct {
	documentPath string
	writer       DocumentWriter
}

// NewFeatureRepository constructs a repository for documentPath.
func NewFeatureRepository(documentPath string, writer DocumentWriter) *FeatureRepository {
	return &FeatureRepository{documentPath: documentPath, writer: writer}
}

// Load accepts a bare array or {"features": [...]}.
func (repository *FeatureRepository) Load() ([]Feature, error) {
	content, readError := readDocument(repository.documentPath)
	if readError != nil {
		return nil, readError
	}
	features, decodeError := decodeCollection(content, featuresWrapperKeyConstant, newFeature)
	if decodeError != nil {
		return nil, corruptDocument(repository.documentPath, decodeError)
	}
	return features, nil
}

// Save writes the features as a bare array.
func (repository *FeatureRepository) Save(features []Feature) error {
	canonicalFeatures := make([]Feature, 0, len(features))
	for _, feature := range features {
		canonicalFeatures = append(canonicalFeatures, feature.normalized())
	}
	return writeDocument(repository.writer, repository.documentPath, canonicalFeatures)
}

// SeamRepository reads and writes seams.json.
type SeamRepository struct {
	documentPath string
	writer       DocumentWriter
}

// NewSeamRepository constructs a repository for documentPath.
func NewSeamRepository(documentPath string, writer DocumentWriter) *SeamRepository {
	return &SeamRepository{documentPath: documentPath, writer: writer}
}

// Load accepts a bare array or {"seams": [...]}.
func (repository *SeamRepository) Load() ([]SeamInfo, error) {
	content, readError := readDocument(repository.documentPath)
	if readError != nil {
		return nil, readError
	}
	seams, decodeError := decodeCollection(content, seamsWrapperKeyConstant, newSeamInfo)
	if decodeError != nil {
		return nil, corruptDocument(repository.documentPath, decodeError)
	}
	return seams, nil
}

// Save writes the seams as a bare array.
func (repository *SeamRepository) Save(seams []SeamInfo) error {
	canonicalSeams := make([]SeamInfo, 0, len(seams))
	for _, seam := range seams {
		canonicalSeams = append(canonicalSeams, seam.normalized())
	}
	return writeDocument(repository.writer, repository.documentPath, canonicalSeams)
}

// PlanRepository reads and writes migration-plan.json.
type PlanRepository struct {
	documentPath string
	writer       DocumentWriter
}

// NewPlanRepository constructs a repository for documentPath.
func NewPlanRepository(documentPath string, writer DocumentWriter) *PlanRepository {
	return &PlanRepository{documentPath: documentPath, writer: writer}
}

// planDocument mirrors MigrationPlan with steps left raw so each step receives its own defaults.
type planDocument struct {
	Version          int               `json:"version"`
	Strategy         string            `json:"strategy"`
	Constraints      []string          `json:"constraints"`
	Steps            []json.RawMessage `json:"steps"`
	RollbackStrategy string            `json:"rollback_strategy"`
	ExitCriteria     map[string]any    `json:"exit_criteria"`
}

// Load requires an object and rebuilds its steps from the flat steps array.
func (repository *PlanRepository) Load() (MigrationPlan, error) {
	content, readError := readDocument(repository.documentPath)
	if readError != nil {
		return MigrationPlan{}, readError
	}
	if shapeError := requireObject(content); shapeError != nil {
		return MigrationPlan{}, corruptDocument(repository.documentPath, shapeError)
	}

	document := planDocument{
		Version:          defaultPlanVersionConstant,
		Strategy:         defaultPlanStrategyConstant,
		RollbackStrategy: defaultRollbackStrategyConstant,
	}
	if decodeError := json.Unmarshal(content, &document); decodeError != nil {
		return MigrationPlan{}, corruptDocument(repository.documentPath, decodeError)
	}

	steps, stepsError := decodeItems(document.Steps, newMigrationStep)
	if stepsError != nil {
		return MigrationPlan{}, corruptDocument(repository.documentPath, stepsError)
	}

	return MigrationPlan{
		Version:          document.Version,
		Strategy:         document.Strategy,
		Constraints:      document.Constraints,
		Steps:            steps,
		RollbackStrategy: document.RollbackStrategy,
		ExitCriteria:     document.ExitCriteria,
	}.normalized(), nil
}

// Save writes the plan object.
func (repository *PlanRepository) Save(plan MigrationPlan) error {
	return writeDocument(repository.writer, repository.documentPath, plan.normalized())
}
