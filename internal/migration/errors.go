package migration

import (
	"errors"
	"fmt"
)

const (
	notFoundMessageConstant               = "not found"
	corruptMessageConstant                = "corrupt document"
	invalidArgumentMessageConstant        = "invalid argument"
	illegalStateTransitionMessageConstant = "illegal state transition"
	gateBlockedMessageConstant            = "phase gate blocked"
	externalToolFailureMessageConstant    = "external tool failure"
	ioFailureMessageConstant              = "i/o failure"
	corruptDocumentTemplateConstant       = "%s %s: %v"
)

var (
	// ErrNotFound reports a required manifest, artifact or migration that does not exist.
	ErrNotFound = errors.New(notFoundMessageConstant)
	// ErrCorrupt reports a document that exists but fails to decode or type check.
	ErrCorrupt = errors.New(corruptMessageConstant)
	// ErrInvalidArgument reports a malformed migration id, step id or phase name.
	ErrInvalidArgument = errors.New(invalidArgumentMessageConstant)
	// ErrIllegalStateTransition reports a phase or manifest precondition violation.
	ErrIllegalStateTransition = errors.New(illegalStateTransitionMessageConstant)
	// ErrGateBlocked reports an unmet precondition for a phase transition.
	ErrGateBlocked = errors.New(gateBlockedMessageConstant)
	// ErrExternalToolFailure reports a failed version-control operation.
	ErrExternalToolFailure = errors.New(externalToolFailureMessageConstant)
	// ErrIOFailure reports a failed write, rename or sync.
	ErrIOFailure = errors.New(ioFailureMessageConstant)
)

// GateBlockedError carries the verdict of a failed phase gate. Error returns the reason verbatim.
type GateBlockedError struct {
	FromPhase            Phase
	ToPhase              Phase
	Reason               string
	OffendingIdentifiers []string
}

// Error returns the human readable gate reason.
func (blocked GateBlockedError) Error() string {
	return blocked.Reason
}

// Is matches ErrGateBlocked.
func (blocked GateBlockedError) Is(target error) bool {
	return target == ErrGateBlocked
}

// CorruptDocumentError reports a document that could not be decoded.
type CorruptDocumentError struct {
	DocumentName string
	Cause        error
}

// Error describes the corrupt document.
func (corruption CorruptDocumentError) Error() string {
	return fmt.Sprintf(corruptDocumentTemplateConstant, corruptMessageConstant, corruption.DocumentName, corruption.Cause)
}

// Is matches ErrCorrupt.
func (corruption CorruptDocumentError) Is(target error) bool {
	return target == ErrCorrupt
}

// Unwrap exposes the decoding failure.
func (corruption CorruptDocumentError) Unwrap() error {
	return corruption.Cause
}
