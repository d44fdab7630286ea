package migration

import "path/filepath"

const (
	manifestFileNameConstant         = "manifest.json"
	featuresFileNameConstant         = "features.json"
	planFileNameConstant             = "migration-plan.json"
	seamsFileNameConstant            = "seams.json"
	docsDirectoryNameConstant        = "docs"
	checkpointsDirectoryNameConstant = "checkpoints"
	checkpointMetadataSuffixConstant = ".json"
)

// Layout resolves the files belonging to one migration directory.
type Layout struct {
	directory string
}

// NewLayout returns the layout of <root>/<migrationID>.
func NewLayout(root string, migrationID string) Layout {
	return Layout{directory: filepath.Join(root, migrationID)}
}

// Directory returns the migration directory.
func (layout Layout) Directory() string {
	return layout.directory
}

// ManifestPath returns the manifest location.
func (layout Layout) ManifestPath() string {
	return filepath.Join(layout.directory, manifestFileNameConstant)
}

// FeaturesPath returns the features document location.
func (layout Layout) FeaturesPath() string {
	return filepath.Join(layout.directory, featuresFileNameConstant)
}

// PlanPath returns the migration plan location.
func (layout Layout) PlanPath() string {
	return filepath.Join(layout.directory, planFileNameConstant)
}

// SeamsPath returns the seams document location.
func (layout Layout) SeamsPath() string {
	return filepath.Join(layout.directory, seamsFileNameConstant)
}

// DocsDirectory returns the generated documentation directory.
func (layout Layout) DocsDirectory() string {
	return filepath.Join(layout.directory, docsDirectoryNameConstant)
}

// CheckpointsDirectory returns the directory holding per-step checkpoint metadata.
func (layout Layout) CheckpointsDirectory() string {
	return filepath.Join(layout.directory, checkpointsDirectoryNameConstant)
}

// CheckpointMetadataPath returns the metadata file for stepID. Callers validate stepID first.
func (layout Layout) CheckpointMetadataPath(stepID string) string {
	return filepath.Join(layout.CheckpointsDirectory(), stepID+checkpointMetadataSuffixConstant)
}
