// Package ui renders checkpoint git activity for people watching a terminal.
//
// It is attached as an execshell observer only when console logging is
// selected; structured output keeps the executor's own debug records.
package ui
