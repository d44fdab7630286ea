package gitrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const (
	openRepositoryTemplateConstant = "unable to open repository %s: %w"
	resolveHeadTemplateConstant    = "unable to resolve HEAD in %s: %w"
	createTagTemplateConstant      = "unable to create tag %s in %s: %w"
	deleteTagTemplateConstant      = "unable to delete tag %s in %s: %w"
	resolveTagTemplateConstant     = "unable to resolve tag %s in %s: %w"
	openWorktreeTemplateConstant   = "unable to open worktree of %s: %w"
	resetWorktreeTemplateConstant  = "unable to reset %s to %s: %w"
)

// ObjectSnapshotBackend snapshots repositories in process with go-git.
type ObjectSnapshotBackend struct{}

// NewObjectSnapshotBackend constructs an ObjectSnapshotBackend.
func NewObjectSnapshotBackend() *ObjectSnapshotBackend {
	return &ObjectSnapshotBackend{}
}

// CreateSnapshot creates a lightweight tag at HEAD. An existing tag fails.
func (backend *ObjectSnapshotBackend) CreateSnapshot(executionContext context.Context, repositoryPath string, tagName string) error {
	repository, openError := openRepository(executionContext, repositoryPath, tagName)
	if openError != nil {
		return openError
	}

	headReference, headError := repository.Head()
	if headError != nil {
		return fmt.Errorf(resolveHeadTemplateConstant, repositoryPath, headError)
	}
	if _, tagError := repository.CreateTag(tagName, headReference.Hash(), nil); tagError != nil {
		return fmt.Errorf(createTagTemplateConstant, tagName, repositoryPath, tagError)
	}
	return nil
}

// DeleteSnapshot removes the tag.
func (backend *ObjectSnapshotBackend) DeleteSnapshot(executionContext context.Context, repositoryPath string, tagName string) error {
	repository, openError := openRepository(executionContext, repositoryPath, tagName)
	if openError != nil {
		return openError
	}
	if deleteError := repository.DeleteTag(tagName); deleteError != nil {
		return fmt.Errorf(deleteTagTemplateConstant, tagName, repositoryPath, deleteError)
	}
	return nil
}

// RestoreSnapshot hard-resets HEAD, index and working tree to the tagged commit.
func (backend *ObjectSnapshotBackend) RestoreSnapshot(executionContext context.Context, repositoryPath string, tagName string) error {
	repository, openError := openRepository(executionContext, repositoryPath, tagName)
	if openError != nil {
		return openError
	}

	commitHash, resolveError := resolveTaggedCommit(repository, tagName)
	if resolveError != nil {
		return fmt.Errorf(resolveTagTemplateConstant, tagName, repositoryPath, resolveError)
	}

	worktree, worktreeError := repository.Worktree()
	if worktreeError != nil {
		return fmt.Errorf(openWorktreeTemplateConstant, repositoryPath, worktreeError)
	}
	if resetError := worktree.Reset(&git.ResetOptions{Commit: commitHash, Mode: git.HardReset}); resetError != nil {
		return fmt.Errorf(resetWorktreeTemplateConstant, repositoryPath, tagName, resetError)
	}
	return nil
}

func openRepository(executionContext context.Context, repositoryPath string, tagName string) (*git.Repository, error) {
	if requestError := validateSnapshotRequest(repositoryPath, tagName); requestError != nil {
		return nil, requestError
	}
	if contextError := executionContext.Err(); contextError != nil {
		return nil, contextError
	}
	repository, openError := git.PlainOpen(repositoryPath)
	if openError != nil {
		return nil, fmt.Errorf(openRepositoryTemplateConstant, repositoryPath, openError)
	}
	return repository, nil
}

// resolveTaggedCommit peels annotated tags to their commit.
func resolveTaggedCommit(repository *git.Repository, tagName string) (plumbing.Hash, error) {
	tagReference, tagError := repository.Tag(tagName)
	if tagError != nil {
		return plumbing.ZeroHash, tagError
	}

	tagObject, objectError := repository.TagObject(tagReference.Hash())
	switch {
	case errors.Is(objectError, plumbing.ErrObjectNotFound):
		return tagReference.Hash(), nil
	case objectError != nil:
		return plumbing.ZeroHash, objectError
	}

	taggedCommit, commitError := tagObject.Commit()
	if commitError != nil {
		return plumbing.ZeroHash, commitError
	}
	return taggedCommit.Hash, nil
}
