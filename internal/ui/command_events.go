package ui

import (
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/temirov/lokimigrate/internal/execshell"
)

const (
	startedMarkerConstant            = "→"
	succeededMarkerConstant          = "✓"
	failedMarkerConstant             = "✗"
	startedMarkerColorConstant       = "39"
	succeededMarkerColorConstant     = "42"
	failedMarkerColorConstant        = "203"
	markedMessageSeparatorConstant   = " "
	logFieldWorkingDirectoryConstant = "working_directory"
	logFieldExitCodeConstant         = "exit_code"
)

// ConsoleCommandEventLogger renders checkpoint git activity (tag creation, tag deletion and hard
// resets) as short console lines prefixed with a colored status marker.
type ConsoleCommandEventLogger struct {
	logger    *zap.Logger
	formatter execshell.CommandMessageFormatter
	started   string
	succeeded string
	failed    string
}

// NewConsoleCommandEventLogger constructs a console event logger backed by the provided zap logger.
// Markers are colored only when the terminal supports it.
func NewConsoleCommandEventLogger(logger *zap.Logger) *ConsoleCommandEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleCommandEventLogger{
		logger:    logger,
		formatter: execshell.CommandMessageFormatter{},
		started:   renderMarker(startedMarkerConstant, startedMarkerColorConstant),
		succeeded: renderMarker(succeededMarkerConstant, succeededMarkerColorConstant),
		failed:    renderMarker(failedMarkerConstant, failedMarkerColorConstant),
	}
}

// CommandStarted implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandStarted(command execshell.ShellCommand) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(
		markMessage(eventLogger.started, eventLogger.formatter.BuildStartedMessage(command)),
		workingDirectoryField(command),
	)
}

// CommandCompleted implements execshell.CommandEventObserver. Non-zero exits are logged as warnings.
func (eventLogger *ConsoleCommandEventLogger) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult) {
	if eventLogger == nil {
		return
	}
	if result.ExitCode == 0 {
		eventLogger.logger.Info(
			markMessage(eventLogger.succeeded, eventLogger.formatter.BuildSuccessMessage(command)),
			workingDirectoryField(command),
		)
		return
	}
	eventLogger.logger.Warn(
		markMessage(eventLogger.failed, eventLogger.formatter.BuildFailureMessage(command, result)),
		workingDirectoryField(command),
		zap.Int(logFieldExitCodeConstant, result.ExitCode),
	)
}

// CommandExecutionFailed implements execshell.CommandEventObserver.
func (eventLogger *ConsoleCommandEventLogger) CommandExecutionFailed(command execshell.ShellCommand, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Error(
		markMessage(eventLogger.failed, eventLogger.formatter.BuildExecutionFailureMessage(command, failure)),
		workingDirectoryField(command),
	)
}

func renderMarker(marker string, color string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(marker)
}

func markMessage(marker string, message string) string {
	return marker + markedMessageSeparatorConstant + message
}

func workingDirectoryField(command execshell.ShellCommand) zap.Field {
	return zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory)
}
