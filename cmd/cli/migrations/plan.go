package migrations

import (
	"github.com/spf13/cobra"
)

const (
	planUseConstant              = "plan <migration-id>"
	planShortDescriptionConstant = "Summarize the migration plan"
	planLongDescriptionConstant  = "plan renders the steps, constraints and exit criteria of a migration plan."
	planArgumentsUsageConstant   = "<migration-id>"
)

// PlanCommandBuilder assembles the plan command.
type PlanCommandBuilder struct {
	LoggerProvider    LoggerProvider
	WorkspaceProvider WorkspaceProvider
}

// Build constructs the plan command.
func (builder *PlanCommandBuilder) Build() (*cobra.Command, error) {
	return &cobra.Command{
		Use:   planUseConstant,
		Short: planShortDescriptionConstant,
		Long:  planLongDescriptionConstant,
		RunE:  builder.run,
	}, nil
}

func (builder *PlanCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if argumentsError := requireArguments(command, arguments, 1, planArgumentsUsageConstant); argumentsError != nil {
		return argumentsError
	}
	pipeline, pipelineError := openPipeline(builder.WorkspaceProvider, arguments[0])
	if pipelineError != nil {
		return pipelineError
	}
	summary, summaryError := pipeline.PlanSummary()
	if summaryError != nil {
		return summaryError
	}
	return writeLine(command.OutOrStdout(), "%s", summary)
}
