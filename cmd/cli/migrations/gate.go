package migrations

import (
	"github.com/spf13/cobra"

	"github.com/temirov/lokimigrate/internal/migration"
)

const (
	gateUseConstant              = "gate <migration-id> <from-phase> <to-phase>"
	gateShortDescriptionConstant = "Check whether a phase transition is allowed"
	gateLongDescriptionConstant  = "gate evaluates the preconditions between two phases without changing the migration. It fails when the gate is blocked."
	gateArgumentsUsageConstant   = "<migration-id> <from-phase> <to-phase>"
)

// GateCommandBuilder assembles the gate command.
type GateCommandBuilder struct {
	LoggerProvider    LoggerProvider
	WorkspaceProvider WorkspaceProvider
}

// Build constructs the gate command.
func (builder *GateCommandBuilder) Build() (*cobra.Command, error) {
	return &cobra.Command{
		Use:   gateUseConstant,
		Short: gateShortDescriptionConstant,
		Long:  gateLongDescriptionConstant,
		RunE:  builder.run,
	}, nil
}

func (builder *GateCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if argumentsError := requireArguments(command, arguments, 3, gateArgumentsUsageConstant); argumentsError != nil {
		return argumentsError
	}
	fromPhase, fromError := migration.ParsePhase(arguments[1])
	if fromError != nil {
		return fromError
	}
	toPhase, toError := migration.ParsePhase(arguments[2])
	if toError != nil {
		return toError
	}

	pipeline, pipelineError := openPipeline(builder.WorkspaceProvider, arguments[0])
	if pipelineError != nil {
		return pipelineError
	}
	verdict, gateError := pipeline.CheckPhaseGate(fromPhase, toPhase)
	if gateError != nil {
		return gateError
	}
	if !verdict.Allowed {
		return migration.GateBlockedError{
			FromPhase:            fromPhase,
			ToPhase:              toPhase,
			Reason:               verdict.Reason,
			OffendingIdentifiers: verdict.OffendingIdentifiers,
		}
	}
	return writeLine(command.OutOrStdout(), "%s", verdict.Reason)
}
