package migrations

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/lokimigrate/internal/migration"
)

const (
	createUseConstant                  = "create <codebase-path>"
	createShortDescriptionConstant     = "Create a migration for a codebase"
	createLongDescriptionConstant      = "create records a new migration manifest for the codebase and starts the understand phase."
	createArgumentsUsageConstant       = "<codebase-path>"
	createTargetFlagNameConstant       = "target"
	createTargetFlagUsageConstant      = "Migration target (for example a language or framework)"
	createSourceTypeFlagNameConstant   = "source-type"
	createSourceTypeFlagUsageConstant  = "Source type recorded in the manifest"
	createOptionFlagNameConstant       = "option"
	createOptionFlagUsageConstant      = "Target option as key=value; values are parsed as YAML scalars (repeatable)"
	createFormatFlagUsageConstant      = "Output format for the created manifest (yaml or json)"
	createMissingTargetMessageConstant = "--target is required"
	optionKeyValueSeparatorConstant    = "="
	invalidOptionTemplateConstant      = "invalid --option %q: expected key=value"
	migrationCreatedMessageConstant    = "Migration created"
	logFieldMigrationIDConstant        = "migration_id"
	logFieldCodebasePathConstant       = "codebase_path"
)

var errCreateTargetMissing = errors.New(createMissingTargetMessageConstant)

// CreateCommandBuilder assembles the create command.
type CreateCommandBuilder struct {
	LoggerProvider    LoggerProvider
	WorkspaceProvider WorkspaceProvider
}

// Build constructs the create command.
func (builder *CreateCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   createUseConstant,
		Short: createShortDescriptionConstant,
		Long:  createLongDescriptionConstant,
		RunE:  builder.run,
	}

	command.Flags().String(createTargetFlagNameConstant, "", createTargetFlagUsageConstant)
	command.Flags().String(createSourceTypeFlagNameConstant, "", createSourceTypeFlagUsageConstant)
	command.Flags().StringArray(createOptionFlagNameConstant, nil, createOptionFlagUsageConstant)
	command.Flags().String(formatFlagNameConstant, outputFormatYAMLConstant, createFormatFlagUsageConstant)

	return command, nil
}

func (builder *CreateCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if argumentsError := requireArguments(command, arguments, 1, createArgumentsUsageConstant); argumentsError != nil {
		return argumentsError
	}

	createOptions, optionsError := builder.parseOptions(command, arguments[0])
	if optionsError != nil {
		return optionsError
	}
	outputFormat, formatError := parseOutputFormat(command, OutputFormatYAML, OutputFormatJSON)
	if formatError != nil {
		return formatError
	}

	workspace, workspaceError := resolveWorkspace(builder.WorkspaceProvider)
	if workspaceError != nil {
		return workspaceError
	}

	pipeline, manifest, createError := workspace.Create(createOptions)
	if createError != nil {
		return createError
	}

	resolveLogger(builder.LoggerProvider).Info(
		migrationCreatedMessageConstant,
		zap.String(logFieldMigrationIDConstant, pipeline.ID()),
		zap.String(logFieldCodebasePathConstant, pipeline.CodebasePath()),
	)
	return writeStructuredDocument(command.OutOrStdout(), outputFormat, manifest)
}

func (builder *CreateCommandBuilder) parseOptions(command *cobra.Command, codebasePath string) (migration.CreateOptions, error) {
	targetValue, _ := command.Flags().GetString(createTargetFlagNameConstant)
	trimmedTarget := strings.TrimSpace(targetValue)
	if len(trimmedTarget) == 0 {
		return migration.CreateOptions{}, errCreateTargetMissing
	}

	sourceTypeValue, _ := command.Flags().GetString(createSourceTypeFlagNameConstant)
	optionValues, _ := command.Flags().GetStringArray(createOptionFlagNameConstant)
	targetOptions, targetOptionsError := parseTargetOptions(optionValues)
	if targetOptionsError != nil {
		return migration.CreateOptions{}, targetOptionsError
	}

	return migration.CreateOptions{
		CodebasePath: codebasePath,
		Target:       trimmedTarget,
		SourceType:   strings.TrimSpace(sourceTypeValue),
		Options:      targetOptions,
	}, nil
}

// parseTargetOptions converts key=value pairs into typed option values. Values are decoded as YAML
// scalars so true, 3 and 1.5 become a bool, an int and a float; anything else stays a string.
func parseTargetOptions(rawOptions []string) (map[string]any, error) {
	targetOptions := map[string]any{}
	for _, rawOption := range rawOptions {
		optionKey, optionValue, hasSeparator := strings.Cut(rawOption, optionKeyValueSeparatorConstant)
		optionKey = strings.TrimSpace(optionKey)
		if !hasSeparator || len(optionKey) == 0 {
			return nil, fmt.Errorf(invalidOptionTemplateConstant, rawOption)
		}
		targetOptions[optionKey] = decodeOptionValue(strings.TrimSpace(optionValue))
	}
	return targetOptions, nil
}

func decodeOptionValue(rawValue string) any {
	if len(rawValue) == 0 {
		return rawValue
	}
	var decodedValue any
	if decodeError := yaml.Unmarshal([]byte(rawValue), &decodedValue); decodeError != nil {
		return rawValue
	}
	switch decodedValue.(type) {
	case bool, int, float64:
		return decodedValue
	default:
		return rawValue
	}
}
