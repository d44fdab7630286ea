package execshell

import (
	"fmt"
	"slices"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

// checkpointOperation classifies the git invocations issued for migration checkpoints.
type checkpointOperation int

const (
	checkpointOperationUnknown checkpointOperation = iota
	checkpointOperationTagCreate
	checkpointOperationTagDelete
	checkpointOperationHardReset
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	defaultWorkingDirectoryLabelConstant    = "current directory"
	unknownValueLabelConstant               = "unknown"
	gitTagSubcommandNameConstant            = "tag"
	gitResetSubcommandNameConstant          = "reset"
	gitDeleteShortFlagConstant              = "-d"
	gitDeleteLongFlagConstant               = "--delete"
	gitHardFlagConstant                     = "--hard"
	gitFlagPrefixConstant                   = "-"
)

// stageTemplates holds one message per lifecycle stage. Every template receives the checkpoint
// subject (tag or revision) first and the working directory second; failure templates then
// receive the exit code and standard error suffix, execution failure templates the cause.
type stageTemplates struct {
	started         string
	succeeded       string
	failed          string
	executionFailed string
}

var checkpointMessageTemplates = map[checkpointOperation]stageTemplates{
	checkpointOperationTagCreate: {
		started:         "Creating tag %s in %s",
		succeeded:       "Created tag %s in %s",
		failed:          "Failed to create tag %s in %s (exit code %d%s)",
		executionFailed: "Unable to create tag %s in %s: %s",
	},
	checkpointOperationTagDelete: {
		started:         "Deleting tag %s in %s",
		succeeded:       "Deleted tag %s in %s",
		failed:          "Failed to delete tag %s in %s (exit code %d%s)",
		executionFailed: "Unable to delete tag %s in %s: %s",
	},
	checkpointOperationHardReset: {
		started:         "Resetting %[2]s to %[1]s",
		succeeded:       "%[2]s now matches %[1]s",
		failed:          "Failed to reset %[2]s to %[1]s (exit code %[3]d%[4]s)",
		executionFailed: "Unable to reset %[2]s to %[1]s: %[3]s",
	},
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events. Checkpoint
// tag and reset invocations get dedicated wording; everything else is described generically.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	operation, subject := classifyCheckpointCommand(command)
	templates, recognized := checkpointMessageTemplates[operation]
	if !recognized {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subject = formatter.ensureValue(subject)
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.started, subject, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(templates.succeeded, subject, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(templates.failed, subject, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(templates.executionFailed, subject, workingDirectory, formatter.describeFailure(failure))
	}
}

// classifyCheckpointCommand recognizes `git tag <name>`, `git tag -d <name>` and
// `git reset --hard <revision>` and returns the operation with its tag or revision.
func classifyCheckpointCommand(command ShellCommand) (checkpointOperation, string) {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return checkpointOperationUnknown, ""
	}

	arguments := trimArguments(command.Details.Arguments)
	subject := firstNonFlagArgument(arguments[1:])
	switch arguments[0] {
	case gitTagSubcommandNameConstant:
		if slices.Contains(arguments, gitDeleteShortFlagConstant) || slices.Contains(arguments, gitDeleteLongFlagConstant) {
			return checkpointOperationTagDelete, subject
		}
		return checkpointOperationTagCreate, subject
	case gitResetSubcommandNameConstant:
		if slices.Contains(arguments, gitHardFlagConstant) {
			return checkpointOperationHardReset, subject
		}
	}
	return checkpointOperationUnknown, ""
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := describeCommand(command)
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return commandLabel
	}
	return commandLabel + fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return ""
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	if len(value) == 0 {
		return unknownValueLabelConstant
	}
	return value
}

func trimArguments(arguments []string) []string {
	trimmedArguments := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		trimmedArguments = append(trimmedArguments, strings.TrimSpace(argument))
	}
	return trimmedArguments
}

func firstNonFlagArgument(arguments []string) string {
	for _, argument := range arguments {
		if len(argument) == 0 || strings.HasPrefix(argument, gitFlagPrefixConstant) {
			continue
		}
		return argument
	}
	return ""
}
