package migrations

import (
	"github.com/spf13/cobra"
)

const (
	progressUseConstant              = "progress <migration-id>"
	progressShortDescriptionConstant = "Show migration progress"
	progressLongDescriptionConstant  = "progress reports phases, feature and step counts and the latest checkpoint of a migration."
	progressArgumentsUsageConstant   = "<migration-id>"
	progressFormatFlagUsageConstant  = "Output format (yaml or json)"
)

// ProgressCommandBuilder assembles the progress command.
type ProgressCommandBuilder struct {
	LoggerProvider    LoggerProvider
	WorkspaceProvider WorkspaceProvider
}

// Build constructs the progress command.
func (builder *ProgressCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   progressUseConstant,
		Short: progressShortDescriptionConstant,
		Long:  progressLongDescriptionConstant,
		RunE:  builder.run,
	}
	command.Flags().String(formatFlagNameConstant, outputFormatYAMLConstant, progressFormatFlagUsageConstant)
	return command, nil
}

func (builder *ProgressCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if argumentsError := requireArguments(command, arguments, 1, progressArgumentsUsageConstant); argumentsError != nil {
		return argumentsError
	}
	outputFormat, formatError := parseOutputFormat(command, OutputFormatYAML, OutputFormatJSON)
	if formatError != nil {
		return formatError
	}

	pipeline, pipelineError := openPipeline(builder.WorkspaceProvider, arguments[0])
	if pipelineError != nil {
		return pipelineError
	}
	report, progressError := pipeline.Progress()
	if progressError != nil {
		return progressError
	}
	return writeStructuredDocument(command.OutOrStdout(), outputFormat, report)
}
