package gitrepo

import (
	"context"

	"github.com/temirov/lokimigrate/internal/execshell"
)

const (
	gitTagSubcommandConstant   = "tag"
	gitDeleteFlagConstant      = "-d"
	gitResetSubcommandConstant = "reset"
	gitHardResetFlagConstant   = "--hard"
)

// CommandSnapshotBackend snapshots repositories by invoking the git executable.
type CommandSnapshotBackend struct {
	executor GitExecutor
}

// NewCommandSnapshotBackend constructs a backend around executor.
func NewCommandSnapshotBackend(executor GitExecutor) (*CommandSnapshotBackend, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &CommandSnapshotBackend{executor: executor}, nil
}

// CreateSnapshot runs git tag <tagName> at HEAD. An existing tag fails.
func (backend *CommandSnapshotBackend) CreateSnapshot(executionContext context.Context, repositoryPath string, tagName string) error {
	return backend.run(executionContext, repositoryPath, tagName, gitTagSubcommandConstant, tagName)
}

// DeleteSnapshot runs git tag -d <tagName>.
func (backend *CommandSnapshotBackend) DeleteSnapshot(executionContext context.Context, repositoryPath string, tagName string) error {
	return backend.run(executionContext, repositoryPath, tagName, gitTagSubcommandConstant, gitDeleteFlagConstant, tagName)
}

// RestoreSnapshot runs git reset --hard <tagName>, discarding uncommitted changes.
func (backend *CommandSnapshotBackend) RestoreSnapshot(executionContext context.Context, repositoryPath string, tagName string) error {
	return backend.run(executionContext, repositoryPath, tagName, gitResetSubcommandConstant, gitHardResetFlagConstant, tagName)
}

func (backend *CommandSnapshotBackend) run(executionContext context.Context, repositoryPath string, tagName string, arguments ...string) error {
	if requestError := validateSnapshotRequest(repositoryPath, tagName); requestError != nil {
		return requestError
	}
	_, executionError := backend.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repositoryPath,
	})
	return executionError
}
