// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with zap logging, lifecycle observers, and
// typed failures so that callers can tell a tool that ran and exited non-zero
// (CommandFailedError) from a tool that could not be started at all
// (CommandExecutionError). OSCommandRunner is the default os/exec runner.
package execshell
