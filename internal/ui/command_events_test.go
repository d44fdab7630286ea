package ui_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/lokimigrate/internal/execshell"
	"github.com/temirov/lokimigrate/internal/ui"
)

const (
	testCommandWorkingDirectoryConstant    = "/tmp/project"
	testTagSubcommandConstant              = "tag"
	testTagNameConstant                    = "loki-migrate/extract-auth/pre"
	testExecutionFailureReasonConstant     = "execution failed"
	testStandardErrorMessageConstant       = "fatal: tag already exists"
	testStartMessageExpectationConstant    = "Creating tag " + testTagNameConstant + " in " + testCommandWorkingDirectoryConstant
	testSuccessMessageExpectationConstant  = "Created tag " + testTagNameConstant + " in " + testCommandWorkingDirectoryConstant
	testFailureMessageExpectationConstant  = "Failed to create tag " + testTagNameConstant + " in " + testCommandWorkingDirectoryConstant + " (exit code 128: " + testStandardErrorMessageConstant + ")"
	testExecutionFailureMessageExpectation = "Unable to create tag " + testTagNameConstant + " in " + testCommandWorkingDirectoryConstant + ": " + testExecutionFailureReasonConstant
)

func TestConsoleCommandEventLoggerEmitsMessages(testInstance *testing.T) {
	command := execshell.ShellCommand{
		Name: execshell.CommandGit,
		Details: execshell.CommandDetails{
			Arguments:        []string{testTagSubcommandConstant, testTagNameConstant},
			WorkingDirectory: testCommandWorkingDirectoryConstant,
		},
	}

	testCases := []struct {
		name             string
		invoke           func(logger *ui.ConsoleCommandEventLogger)
		expectedLevel    zapcore.Level
		expectedMarker   string
		expectedMessage  string
		expectedExitCode int64
	}{
		{
			name: "command_started",
			invoke: func(logger *ui.ConsoleCommandEventLogger) {
				logger.CommandStarted(command)
			},
			expectedLevel:   zapcore.InfoLevel,
			expectedMarker:  "→",
			expectedMessage: testStartMessageExpectationConstant,
		},
		{
			name: "command_completed_success",
			invoke: func(logger *ui.ConsoleCommandEventLogger) {
				logger.CommandCompleted(command, execshell.ExecutionResult{ExitCode: 0})
			},
			expectedLevel:   zapcore.InfoLevel,
			expectedMarker:  "✓",
			expectedMessage: testSuccessMessageExpectationConstant,
		},
		{
			name: "command_completed_failure",
			invoke: func(logger *ui.ConsoleCommandEventLogger) {
				logger.CommandCompleted(command, execshell.ExecutionResult{ExitCode: 128, StandardError: testStandardErrorMessageConstant})
			},
			expectedLevel:    zapcore.WarnLevel,
			expectedMarker:   "✗",
			expectedMessage:  testFailureMessageExpectationConstant,
			expectedExitCode: 128,
		},
		{
			name: "command_execution_failure",
			invoke: func(logger *ui.ConsoleCommandEventLogger) {
				logger.CommandExecutionFailed(command, errors.New(testExecutionFailureReasonConstant))
			},
			expectedLevel:   zapcore.ErrorLevel,
			expectedMarker:  "✗",
			expectedMessage: testExecutionFailureMessageExpectation,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			observerCore, observedLogs := observer.New(zapcore.DebugLevel)
			consoleLogger := zap.New(observerCore)
			eventLogger := ui.NewConsoleCommandEventLogger(consoleLogger)

			testCase.invoke(eventLogger)

			entries := observedLogs.All()
			require.Len(testInstance, entries, 1)
			require.Equal(testInstance, testCase.expectedLevel, entries[0].Level)
			require.True(testInstance, strings.HasSuffix(entries[0].Message, " "+testCase.expectedMessage))
			require.Contains(testInstance, entries[0].Message, testCase.expectedMarker)

			contextFields := entries[0].ContextMap()
			require.Equal(testInstance, testCommandWorkingDirectoryConstant, contextFields["working_directory"])
			if testCase.expectedExitCode != 0 {
				require.Equal(testInstance, testCase.expectedExitCode, contextFields["exit_code"])
			} else {
				require.NotContains(testInstance, contextFields, "exit_code")
			}
		})
	}
}

func TestNilConsoleCommandEventLoggerIgnoresEvents(testInstance *testing.T) {
	var eventLogger *ui.ConsoleCommandEventLogger
	require.NotPanics(testInstance, func() {
		eventLogger.CommandStarted(execshell.ShellCommand{Name: execshell.CommandGit})
		eventLogger.CommandCompleted(execshell.ShellCommand{Name: execshell.CommandGit}, execshell.ExecutionResult{})
		eventLogger.CommandExecutionFailed(execshell.ShellCommand{Name: execshell.CommandGit}, nil)
	})
}
