package migrations

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/lokimigrate/internal/migration"
)

const (
	formatFlagNameConstant                = "format"
	outputFormatTableConstant             = "table"
	outputFormatJSONConstant              = "json"
	outputFormatYAMLConstant              = "yaml"
	outputFormatListSeparatorConstant     = ", "
	unsupportedFormatTemplateConstant     = "unsupported output format %q (expected one of %s)"
	argumentCountTemplateConstant         = "%s expects %d argument(s): %s"
	workspaceUnavailableMessageConstant   = "migration workspace not configured"
	jsonIndentConstant                    = "  "
	yamlIndentConstant                    = 2
	lineTerminatorConstant                = "\n"
	documentEncodingErrorTemplateConstant = "unable to render %s output: %w"
)

var errWorkspaceUnavailable = errors.New(workspaceUnavailableMessageConstant)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// WorkspaceProvider yields the migration workspace once configuration has been loaded.
type WorkspaceProvider func() (*migration.Workspace, error)

// OutputFormat selects how structured results are written.
type OutputFormat string

// Supported output formats.
const (
	OutputFormatTable OutputFormat = OutputFormat(outputFormatTableConstant)
	OutputFormatJSON  OutputFormat = OutputFormat(outputFormatJSONConstant)
	OutputFormatYAML  OutputFormat = OutputFormat(outputFormatYAMLConstant)
)

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveWorkspace(provider WorkspaceProvider) (*migration.Workspace, error) {
	if provider == nil {
		return nil, errWorkspaceUnavailable
	}
	workspace, workspaceError := provider()
	if workspaceError != nil {
		return nil, workspaceError
	}
	if workspace == nil {
		return nil, errWorkspaceUnavailable
	}
	return workspace, nil
}

func openPipeline(provider WorkspaceProvider, migrationID string) (*migration.Pipeline, error) {
	workspace, workspaceError := resolveWorkspace(provider)
	if workspaceError != nil {
		return nil, workspaceError
	}
	return workspace.Open(strings.TrimSpace(migrationID))
}

func requireArguments(command *cobra.Command, arguments []string, expectedCount int, usage string) error {
	if len(arguments) == expectedCount {
		return nil
	}
	return fmt.Errorf(argumentCountTemplateConstant, command.CommandPath(), expectedCount, usage)
}

func parseOutputFormat(command *cobra.Command, allowedFormats ...OutputFormat) (OutputFormat, error) {
	formatValue, _ := command.Flags().GetString(formatFlagNameConstant)
	requestedFormat := OutputFormat(strings.ToLower(strings.TrimSpace(formatValue)))
	if slices.Contains(allowedFormats, requestedFormat) {
		return requestedFormat, nil
	}

	allowedNames := make([]string, 0, len(allowedFormats))
	for _, allowedFormat := range allowedFormats {
		allowedNames = append(allowedNames, string(allowedFormat))
	}
	return "", fmt.Errorf(unsupportedFormatTemplateConstant, formatValue, strings.Join(allowedNames, outputFormatListSeparatorConstant))
}

func writeStructuredDocument(writer io.Writer, format OutputFormat, document any) error {
	switch format {
	case OutputFormatJSON:
		encodedDocument, encodingError := json.MarshalIndent(document, "", jsonIndentConstant)
		if encodingError != nil {
			return fmt.Errorf(documentEncodingErrorTemplateConstant, format, encodingError)
		}
		_, writeError := io.WriteString(writer, string(encodedDocument)+lineTerminatorConstant)
		return writeError
	default:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(yamlIndentConstant)
		if encodingError := encoder.Encode(document); encodingError != nil {
			return fmt.Errorf(documentEncodingErrorTemplateConstant, format, encodingError)
		}
		return encoder.Close()
	}
}

func writeLine(writer io.Writer, format string, values ...any) error {
	_, writeError := fmt.Fprintf(writer, format+lineTerminatorConstant, values...)
	return writeError
}
