package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/lokimigrate/internal/execshell"
)

const (
	backendKindCommandConstant         = "git"
	backendKindObjectConstant          = "go-git"
	unsupportedBackendTemplateConstant = "unsupported checkpoint backend %q (expected %s or %s)"
	missingExecutorMessageConstant     = "git executor not configured"
	missingRepositoryPathMessage       = "repository path must be provided"
	missingTagNameMessageConstant      = "tag name must be provided"
)

// BackendKind selects a snapshot implementation.
type BackendKind string

// Supported backend kinds.
const (
	BackendKindCommand BackendKind = BackendKind(backendKindCommandConstant)
	BackendKindObject  BackendKind = BackendKind(backendKindObjectConstant)
)

var (
	// ErrExecutorNotConfigured indicates the command backend has no git executor.
	ErrExecutorNotConfigured = errors.New(missingExecutorMessageConstant)
	errRepositoryPathMissing = errors.New(missingRepositoryPathMessage)
	errTagNameMissing        = errors.New(missingTagNameMessageConstant)
)

// GitExecutor runs git subcommands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// SnapshotBackend creates, deletes and restores tag snapshots of a repository working tree.
type SnapshotBackend interface {
	CreateSnapshot(executionContext context.Context, repositoryPath string, tagName string) error
	DeleteSnapshot(executionContext context.Context, repositoryPath string, tagName string) error
	RestoreSnapshot(executionContext context.Context, repositoryPath string, tagName string) error
}

// ParseBackendKind converts a configured backend name. Blank input selects the git executable.
func ParseBackendKind(name string) (BackendKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", backendKindCommandConstant:
		return BackendKindCommand, nil
	case backendKindObjectConstant:
		return BackendKindObject, nil
	default:
		return "", fmt.Errorf(unsupportedBackendTemplateConstant, name, backendKindCommandConstant, backendKindObjectConstant)
	}
}

// UnmarshalText validates a configured backend name.
func (kind *BackendKind) UnmarshalText(text []byte) error {
	parsedKind, parseError := ParseBackendKind(string(text))
	if parseError != nil {
		return parseError
	}
	*kind = parsedKind
	return nil
}

// NewSnapshotBackend constructs the backend for kind. The executor is only used by the command backend.
func NewSnapshotBackend(kind BackendKind, executor GitExecutor) (SnapshotBackend, error) {
	switch kind {
	case BackendKindCommand:
		return NewCommandSnapshotBackend(executor)
	case BackendKindObject:
		return NewObjectSnapshotBackend(), nil
	default:
		return nil, fmt.Errorf(unsupportedBackendTemplateConstant, kind, backendKindCommandConstant, backendKindObjectConstant)
	}
}

func validateSnapshotRequest(repositoryPath string, tagName string) error {
	if len(strings.TrimSpace(repositoryPath)) == 0 {
		return errRepositoryPathMissing
	}
	if len(strings.TrimSpace(tagName)) == 0 {
		return errTagNameMissing
	}
	return nil
}
