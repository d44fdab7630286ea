package migration

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	checkpointCreatedMessageConstant            = "Created checkpoint"
	checkpointRolledBackMessageConstant         = "Rolled back to checkpoint"
	checkpointCompensationMessageConstant       = "Checkpoint recording failed; deleting tag"
	checkpointCompensationFailedMessageConstant = "Failed to delete orphaned checkpoint tag"
	manifestRestoreFailedMessageConstant        = "Failed to restore manifest after checkpoint metadata failure"
	snapshotCreationTemplateConstant            = "%w: unable to create tag %s: %w"
	snapshotRestoreTemplateConstant             = "%w: unable to reset to tag %s: %w"
	snapshotDeletionTemplateConstant            = "compensation failed: unable to delete tag %s: %w"
	manifestRestoreTemplateConstant             = "compensation failed: unable to restore manifest: %w"
)

// CheckpointBackend creates, deletes and restores named snapshots of a codebase.
// Implementations operate on repositoryPath only.
type CheckpointBackend interface {
	CreateSnapshot(executionContext context.Context, repositoryPath string, tagName string) error
	DeleteSnapshot(executionContext context.Context, repositoryPath string, tagName string) error
	RestoreSnapshot(executionContext context.Context, repositoryPath string, tagName string) error
}

// CreateCheckpoint tags the codebase as loki-migrate/<stepID>/pre, records the tag in the manifest
// and writes checkpoints/<stepID>.json. When recording fails after the tag exists the tag is
// deleted again and the manifest is left as it was. A second call for the same step fails because
// the tag already exists.
func (pipeline *Pipeline) CreateCheckpoint(executionContext context.Context, stepID string) (string, error) {
	if validationError := ValidateStepID(stepID); validationError != nil {
		return "", validationError
	}
	tagName := CheckpointTagName(stepID)
	stepLogger := pipeline.logger.With(zap.String(logFieldStepIDConstant, stepID), zap.String(logFieldTagConstant, tagName))

	if createError := pipeline.backend.CreateSnapshot(executionContext, pipeline.codebasePath, tagName); createError != nil {
		return "", fmt.Errorf(snapshotCreationTemplateConstant, ErrExternalToolFailure, tagName, createError)
	}

	pipeline.lock.Lock()
	defer pipeline.lock.Unlock()

	previousManifest, snapshotError := pipeline.manifests.snapshot()
	if snapshotError != nil {
		return "", pipeline.compensateTag(executionContext, stepLogger, tagName, snapshotError)
	}
	manifest, loadError := decodeManifest(pipeline.layout.ManifestPath(), previousManifest)
	if loadError != nil {
		return "", pipeline.compensateTag(executionContext, stepLogger, tagName, loadError)
	}

	manifest.Checkpoints = append(append([]string{}, manifest.Checkpoints...), tagName)
	if saveError := pipeline.manifests.Save(manifest); saveError != nil {
		return "", pipeline.compensateTag(executionContext, stepLogger, tagName, saveError)
	}

	metadata := CheckpointMetadata{StepID: stepID, Tag: tagName, CreatedAt: formatTimestamp(pipeline.clock.Now())}
	if metadataError := writeDocument(pipeline.writer, pipeline.layout.CheckpointMetadataPath(stepID), metadata); metadataError != nil {
		combinedError := metadataError
		if restoreError := pipeline.manifests.restore(previousManifest); restoreError != nil {
			stepLogger.Error(manifestRestoreFailedMessageConstant, zap.Error(restoreError))
			combinedError = multierr.Append(combinedError, fmt.Errorf(manifestRestoreTemplateConstant, restoreError))
		}
		return "", pipeline.compensateTag(executionContext, stepLogger, tagName, combinedError)
	}

	stepLogger.Info(checkpointCreatedMessageConstant)
	return tagName, nil
}

// RollbackToCheckpoint hard-resets the codebase working tree and HEAD to the step's tag.
// Uncommitted changes and commits made after the tag are discarded.
func (pipeline *Pipeline) RollbackToCheckpoint(executionContext context.Context, stepID string) error {
	if validationError := ValidateStepID(stepID); validationError != nil {
		return validationError
	}
	tagName := CheckpointTagName(stepID)

	if restoreError := pipeline.backend.RestoreSnapshot(executionContext, pipeline.codebasePath, tagName); restoreError != nil {
		return fmt.Errorf(snapshotRestoreTemplateConstant, ErrExternalToolFailure, tagName, restoreError)
	}

	pipeline.logger.Info(checkpointRolledBackMessageConstant, zap.String(logFieldStepIDConstant, stepID), zap.String(logFieldTagConstant, tagName))
	return nil
}

// compensateTag deletes a tag whose recording failed and returns cause, extended with any
// deletion failure.
func (pipeline *Pipeline) compensateTag(executionContext context.Context, stepLogger *zap.Logger, tagName string, cause error) error {
	stepLogger.Error(checkpointCompensationMessageConstant, zap.Error(cause))
	deleteError := pipeline.backend.DeleteSnapshot(executionContext, pipeline.codebasePath, tagName)
	if deleteError == nil {
		return cause
	}
	stepLogger.Error(checkpointCompensationFailedMessageConstant, zap.Error(deleteError))
	return multierr.Append(cause, fmt.Errorf(snapshotDeletionTemplateConstant, tagName, deleteError))
}
