package migrations

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/lokimigrate/internal/migration"
)

const (
	phaseUseConstant                     = "phase"
	phaseShortDescriptionConstant        = "Start or advance migration phases"
	phaseLongDescriptionConstant         = "phase moves a migration through understand, guardrail, migrate and verify."
	phaseStartUseConstant                = "start <migration-id> <phase>"
	phaseStartShortDescriptionConstant   = "Start a pending phase"
	phaseAdvanceUseConstant              = "advance <migration-id> <phase>"
	phaseAdvanceShortDescriptionConstant = "Complete an in-progress phase and start the next one"
	phaseArgumentsUsageConstant          = "<migration-id> <phase>"
	phaseAdvanceFormatFlagUsageConstant  = "Output format (yaml or json)"
	phaseStartedTemplateConstant         = "Phase %s is in progress for %s"
	phaseStartedLogMessageConstant       = "Phase start requested"
	logFieldPhaseConstant                = "phase"
)

// PhaseCommandBuilder assembles the phase command group.
type PhaseCommandBuilder struct {
	LoggerProvider    LoggerProvider
	WorkspaceProvider WorkspaceProvider
}

// Build constructs the phase command with its start and advance subcommands.
func (builder *PhaseCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   phaseUseConstant,
		Short: phaseShortDescriptionConstant,
		Long:  phaseLongDescriptionConstant,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	startCommand := &cobra.Command{
		Use:   phaseStartUseConstant,
		Short: phaseStartShortDescriptionConstant,
		RunE:  builder.runStart,
	}

	advanceCommand := &cobra.Command{
		Use:   phaseAdvanceUseConstant,
		Short: phaseAdvanceShortDescriptionConstant,
		RunE:  builder.runAdvance,
	}
	advanceCommand.Flags().String(formatFlagNameConstant, outputFormatYAMLConstant, phaseAdvanceFormatFlagUsageConstant)

	command.AddCommand(startCommand, advanceCommand)
	return command, nil
}

func (builder *PhaseCommandBuilder) runStart(command *cobra.Command, arguments []string) error {
	pipeline, phase, resolveError := builder.resolvePhaseTarget(command, arguments)
	if resolveError != nil {
		return resolveError
	}
	if startError := pipeline.StartPhase(phase); startError != nil {
		return startError
	}
	resolveLogger(builder.LoggerProvider).Debug(
		phaseStartedLogMessageConstant,
		zap.String(logFieldMigrationIDConstant, pipeline.ID()),
		zap.String(logFieldPhaseConstant, string(phase)),
	)
	return writeLine(command.OutOrStdout(), phaseStartedTemplateConstant, phase, pipeline.ID())
}

func (builder *PhaseCommandBuilder) runAdvance(command *cobra.Command, arguments []string) error {
	outputFormat, formatError := parseOutputFormat(command, OutputFormatYAML, OutputFormatJSON)
	if formatError != nil {
		return formatError
	}
	pipeline, phase, resolveError := builder.resolvePhaseTarget(command, arguments)
	if resolveError != nil {
		return resolveError
	}
	result, advanceError := pipeline.AdvancePhase(phase)
	if advanceError != nil {
		return advanceError
	}
	return writeStructuredDocument(command.OutOrStdout(), outputFormat, result)
}

func (builder *PhaseCommandBuilder) resolvePhaseTarget(command *cobra.Command, arguments []string) (*migration.Pipeline, migration.Phase, error) {
	if argumentsError := requireArguments(command, arguments, 2, phaseArgumentsUsageConstant); argumentsError != nil {
		return nil, "", argumentsError
	}
	phase, phaseError := migration.ParsePhase(arguments[1])
	if phaseError != nil {
		return nil, "", phaseError
	}
	pipeline, pipelineError := openPipeline(builder.WorkspaceProvider, arguments[0])
	if pipelineError != nil {
		return nil, "", pipelineError
	}
	return pipeline, phase, nil
}
