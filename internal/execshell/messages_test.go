package execshell

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testCheckpointTagConstant        = "loki-migrate/step-1/pre"
	testRepositoryDirectoryConstant  = "/workspace/repo"
	testMissingExecutableMessage     = "executable file not found"
	testTagNotFoundStandardErrorText = "error: tag not found\n"
)

func TestCommandMessageFormatterCheckpointMessages(t *testing.T) {
	tagCreation := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"tag", testCheckpointTagConstant}, WorkingDirectory: testRepositoryDirectoryConstant}}
	tagDeletion := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"tag", "-d", testCheckpointTagConstant}, WorkingDirectory: testRepositoryDirectoryConstant}}
	hardReset := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"reset", "--hard", testCheckpointTagConstant}, WorkingDirectory: testRepositoryDirectoryConstant}}
	hardResetWithoutDirectory := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"reset", "--hard", testCheckpointTagConstant}}}
	tagWithoutName := ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"tag"}, WorkingDirectory: testRepositoryDirectoryConstant}}

	formatter := CommandMessageFormatter{}
	testCases := []struct {
		name            string
		buildMessage    func() string
		expectedMessage string
	}{
		{
			name:            "tag_creation_started",
			buildMessage:    func() string { return formatter.BuildStartedMessage(tagCreation) },
			expectedMessage: "Creating tag loki-migrate/step-1/pre in /workspace/repo",
		},
		{
			name:            "tag_creation_succeeded",
			buildMessage:    func() string { return formatter.BuildSuccessMessage(tagCreation) },
			expectedMessage: "Created tag loki-migrate/step-1/pre in /workspace/repo",
		},
		{
			name: "tag_deletion_failed",
			buildMessage: func() string {
				return formatter.BuildFailureMessage(tagDeletion, ExecutionResult{ExitCode: 1, StandardError: testTagNotFoundStandardErrorText})
			},
			expectedMessage: "Failed to delete tag loki-migrate/step-1/pre in /workspace/repo (exit code 1: error: tag not found)",
		},
		{
			name:            "hard_reset_started_without_directory",
			buildMessage:    func() string { return formatter.BuildStartedMessage(hardResetWithoutDirectory) },
			expectedMessage: "Resetting current directory to loki-migrate/step-1/pre",
		},
		{
			name:            "hard_reset_succeeded",
			buildMessage:    func() string { return formatter.BuildSuccessMessage(hardReset) },
			expectedMessage: "/workspace/repo now matches loki-migrate/step-1/pre",
		},
		{
			name:            "hard_reset_failed",
			buildMessage:    func() string { return formatter.BuildFailureMessage(hardReset, ExecutionResult{ExitCode: 128}) },
			expectedMessage: "Failed to reset /workspace/repo to loki-migrate/step-1/pre (exit code 128)",
		},
		{
			name: "hard_reset_execution_failed",
			buildMessage: func() string {
				return formatter.BuildExecutionFailureMessage(hardReset, errors.New(testMissingExecutableMessage))
			},
			expectedMessage: "Unable to reset /workspace/repo to loki-migrate/step-1/pre: executable file not found",
		},
		{
			name:            "tag_without_name",
			buildMessage:    func() string { return formatter.BuildStartedMessage(tagWithoutName) },
			expectedMessage: "Creating tag unknown in /workspace/repo",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			require.Equal(t, testCase.expectedMessage, testCase.buildMessage())
		})
	}
}

func TestBuildMessagesForUnrecognizedCommandFallBackToGenericLabel(t *testing.T) {
	formatter := CommandMessageFormatter{}
	command := ShellCommand{
		Name: CommandGit,
		Details: CommandDetails{
			Arguments:        []string{"status", "--short"},
			WorkingDirectory: testRepositoryDirectoryConstant,
		},
	}

	require.Equal(t, "Running git status --short (in /workspace/repo)", formatter.BuildStartedMessage(command))
	require.Equal(t, "Completed git status --short (in /workspace/repo)", formatter.BuildSuccessMessage(command))
	require.Equal(t, "git status --short (in /workspace/repo) failed with exit code 2", formatter.BuildFailureMessage(command, ExecutionResult{ExitCode: 2}))
	require.Equal(t, "git status --short (in /workspace/repo) failed: unknown error", formatter.BuildExecutionFailureMessage(command, nil))
}

func TestClassifyCheckpointCommand(t *testing.T) {
	testCases := []struct {
		name              string
		command           ShellCommand
		expectedOperation checkpointOperation
		expectedSubject   string
	}{
		{name: "tag_create", command: ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{" tag ", testCheckpointTagConstant}}}, expectedOperation: checkpointOperationTagCreate, expectedSubject: testCheckpointTagConstant},
		{name: "tag_delete_long_flag", command: ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"tag", "--delete", testCheckpointTagConstant}}}, expectedOperation: checkpointOperationTagDelete, expectedSubject: testCheckpointTagConstant},
		{name: "hard_reset", command: ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"reset", "--hard", testCheckpointTagConstant}}}, expectedOperation: checkpointOperationHardReset, expectedSubject: testCheckpointTagConstant},
		{name: "soft_reset", command: ShellCommand{Name: CommandGit, Details: CommandDetails{Arguments: []string{"reset", "HEAD~1"}}}, expectedOperation: checkpointOperationUnknown},
		{name: "no_arguments", command: ShellCommand{Name: CommandGit}, expectedOperation: checkpointOperationUnknown},
		{name: "other_executable", command: ShellCommand{Name: CommandName("hg"), Details: CommandDetails{Arguments: []string{"tag", "x"}}}, expectedOperation: checkpointOperationUnknown},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			operation, subject := classifyCheckpointCommand(testCase.command)
			require.Equal(t, testCase.expectedOperation, operation)
			require.Equal(t, testCase.expectedSubject, subject)
		})
	}
}
