// Package cli constructs the loki-migrate command-line interface, wiring the
// Cobra command hierarchy, configuration loader, structured logging and the
// migration workspace shared by every subcommand.
package cli
