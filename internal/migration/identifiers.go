package migration

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	migrationIdentifierPatternConstant         = `^mig_\d{8}_\d{6}_[a-zA-Z0-9_-]+$`
	stepIdentifierPatternConstant              = `^[a-zA-Z0-9_-]+$`
	unsafeNameCharacterPatternConstant         = `[^a-zA-Z0-9_-]`
	unsafeNameReplacementConstant              = "_"
	unnamedProjectConstant                     = "unnamed"
	migrationIdentifierTemplateConstant        = "mig_%s_%s"
	migrationIdentifierTimeLayoutConstant      = "20060102_150405"
	checkpointTagTemplateConstant              = "loki-migrate/%s/pre"
	checkpointTagSeparatorConstant             = "/"
	invalidMigrationIdentifierTemplateConstant = "%w: migration id %q must match ^mig_YYYYMMDD_HHMMSS_<name>$"
	invalidStepIdentifierTemplateConstant      = "%w: step id %q must match ^[a-zA-Z0-9_-]+$"
	underivableProjectNameTemplateConstant     = "%w: cannot derive project name from codebase path %q"
)

var (
	migrationIdentifierExpression = regexp.MustCompile(migrationIdentifierPatternConstant)
	stepIdentifierExpression      = regexp.MustCompile(stepIdentifierPatternConstant)
	unsafeNameCharacterExpression = regexp.MustCompile(unsafeNameCharacterPatternConstant)
)

// ValidateMigrationID rejects identifiers that could escape the migrations root.
func ValidateMigrationID(migrationID string) error {
	if !migrationIdentifierExpression.MatchString(migrationID) {
		return fmt.Errorf(invalidMigrationIdentifierTemplateConstant, ErrInvalidArgument, migrationID)
	}
	return nil
}

// ValidateStepID rejects step identifiers unsafe to embed in a tag name.
func ValidateStepID(stepID string) error {
	if !stepIdentifierExpression.MatchString(stepID) {
		return fmt.Errorf(invalidStepIdentifierTemplateConstant, ErrInvalidArgument, stepID)
	}
	return nil
}

// NewMigrationID builds mig_YYYYMMDD_HHMMSS_<name> from the base name of an absolute codebase path.
func NewMigrationID(codebasePath string, moment time.Time) (string, error) {
	projectName := filepath.Base(codebasePath)
	if len(codebasePath) == 0 || projectName == string(filepath.Separator) || projectName == "." {
		return "", fmt.Errorf(underivableProjectNameTemplateConstant, ErrInvalidArgument, codebasePath)
	}
	return fmt.Sprintf(migrationIdentifierTemplateConstant, moment.UTC().Format(migrationIdentifierTimeLayoutConstant), sanitizeProjectName(projectName)), nil
}

func sanitizeProjectName(projectName string) string {
	sanitized := unsafeNameCharacterExpression.ReplaceAllString(projectName, unsafeNameReplacementConstant)
	if len(sanitized) == 0 {
		return unnamedProjectConstant
	}
	return sanitized
}

// CheckpointTagName returns the version-control tag recorded for a step.
func CheckpointTagName(stepID string) string {
	return fmt.Sprintf(checkpointTagTemplateConstant, stepID)
}

// stepIDFromTag recovers the step id from loki-migrate/<step>/pre, returning "" for foreign tags.
func stepIDFromTag(tagName string) string {
	tagParts := strings.Split(tagName, checkpointTagSeparatorConstant)
	if len(tagParts) < 2 {
		return ""
	}
	return tagParts[1]
}
