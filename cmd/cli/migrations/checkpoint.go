package migrations

import (
	"github.com/spf13/cobra"

	"github.com/temirov/lokimigrate/internal/migration"
)

const (
	checkpointUseConstant                      = "checkpoint"
	checkpointShortDescriptionConstant         = "Create or roll back to step checkpoints"
	checkpointLongDescriptionConstant          = "checkpoint tags the codebase before a migration step and restores it on demand."
	checkpointCreateUseConstant                = "create <migration-id> <step-id>"
	checkpointCreateShortDescriptionConstant   = "Tag the codebase before a step"
	checkpointRollbackUseConstant              = "rollback <migration-id> <step-id>"
	checkpointRollbackShortDescriptionConstant = "Hard-reset the codebase to a step checkpoint, discarding later changes"
	checkpointArgumentsUsageConstant           = "<migration-id> <step-id>"
	checkpointCreatedTemplateConstant          = "Created checkpoint %s"
	checkpointRestoredTemplateConstant         = "Restored %s to %s"
)

// CheckpointCommandBuilder assembles the checkpoint command group.
type CheckpointCommandBuilder struct {
	LoggerProvider    LoggerProvider
	WorkspaceProvider WorkspaceProvider
}

// Build constructs the checkpoint command with its create and rollback subcommands.
func (builder *CheckpointCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   checkpointUseConstant,
		Short: checkpointShortDescriptionConstant,
		Long:  checkpointLongDescriptionConstant,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	command.AddCommand(
		&cobra.Command{
			Use:   checkpointCreateUseConstant,
			Short: checkpointCreateShortDescriptionConstant,
			RunE:  builder.runCreate,
		},
		&cobra.Command{
			Use:   checkpointRollbackUseConstant,
			Short: checkpointRollbackShortDescriptionConstant,
			RunE:  builder.runRollback,
		},
	)
	return command, nil
}

func (builder *CheckpointCommandBuilder) runCreate(command *cobra.Command, arguments []string) error {
	pipeline, pipelineError := builder.resolvePipeline(command, arguments)
	if pipelineError != nil {
		return pipelineError
	}
	tagName, checkpointError := pipeline.CreateCheckpoint(command.Context(), arguments[1])
	if checkpointError != nil {
		return checkpointError
	}
	return writeLine(command.OutOrStdout(), checkpointCreatedTemplateConstant, tagName)
}

func (builder *CheckpointCommandBuilder) runRollback(command *cobra.Command, arguments []string) error {
	pipeline, pipelineError := builder.resolvePipeline(command, arguments)
	if pipelineError != nil {
		return pipelineError
	}
	if rollbackError := pipeline.RollbackToCheckpoint(command.Context(), arguments[1]); rollbackError != nil {
		return rollbackError
	}
	return writeLine(command.OutOrStdout(), checkpointRestoredTemplateConstant, pipeline.CodebasePath(), migration.CheckpointTagName(arguments[1]))
}

func (builder *CheckpointCommandBuilder) resolvePipeline(command *cobra.Command, arguments []string) (*migration.Pipeline, error) {
	if argumentsError := requireArguments(command, arguments, 2, checkpointArgumentsUsageConstant); argumentsError != nil {
		return nil, argumentsError
	}
	return openPipeline(builder.WorkspaceProvider, arguments[0])
}
