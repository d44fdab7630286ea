package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	registryReadRootTemplateConstant = "%w: unable to list %s: %w"
	skippingMigrationMessageConstant = "Skipping unreadable migration"
)

// MigrationSummary describes one migration found under the migrations root.
type MigrationSummary struct {
	ID         string      `json:"id" yaml:"id"`
	CreatedAt  string      `json:"created_at" yaml:"created_at"`
	Source     SourceInfo  `json:"source" yaml:"source"`
	SourcePath string      `json:"source_path" yaml:"source_path"`
	Target     string      `json:"target" yaml:"target"`
	Status     PhaseStatus `json:"status" yaml:"status"`
}

// ListMigrations scans root for subdirectories holding a manifest, sorted by directory name.
// Unreadable or corrupt manifests are skipped with a warning. A missing root yields no entries.
func ListMigrations(root string, logger *zap.Logger) ([]MigrationSummary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	directoryEntries, readError := os.ReadDir(root)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return []MigrationSummary{}, nil
		}
		return nil, fmt.Errorf(registryReadRootTemplateConstant, ErrIOFailure, root, readError)
	}

	summaries := []MigrationSummary{}
	for _, directoryEntry := range directoryEntries {
		if !directoryEntry.IsDir() {
			continue
		}
		manifestPath := filepath.Join(root, directoryEntry.Name(), manifestFileNameConstant)
		content, manifestError := readDocument(manifestPath)
		if errors.Is(manifestError, ErrNotFound) {
			continue
		}
		if manifestError != nil {
			logger.Warn(skippingMigrationMessageConstant, zap.String(logFieldPathConstant, manifestPath), zap.Error(manifestError))
			continue
		}
		manifest, decodeError := decodeManifest(manifestPath, content)
		if decodeError != nil {
			logger.Warn(skippingMigrationMessageConstant, zap.String(logFieldPathConstant, manifestPath), zap.Error(decodeError))
			continue
		}

		migrationID := manifest.ID
		if len(migrationID) == 0 {
			migrationID = directoryEntry.Name()
		}
		summaries = append(summaries, MigrationSummary{
			ID:         migrationID,
			CreatedAt:  manifest.CreatedAt,
			Source:     manifest.SourceInfo,
			SourcePath: manifest.SourceInfo.Path,
			Target:     manifest.TargetInfo.ResolvedTarget(),
			Status:     OverallStatus(manifest),
		})
	}
	return summaries, nil
}
