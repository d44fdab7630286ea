package migration_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/lokimigrate/internal/atomicfile"
	"github.com/temirov/lokimigrate/internal/migration"
)

const (
	testCodebaseNameConstant        = "proj"
	testTargetConstant              = "rust"
	testExpectedMigrationIDConstant = "mig_20260223_143052_proj"
	testTagExistsMessageConstant    = "fatal: tag already exists"
	testUnknownTagMessageConstant   = "fatal: ambiguous argument"
)

var testCreationMoment = time.Date(2026, time.February, 23, 14, 30, 52, 0, time.UTC)

type fixedClock struct {
	mutex  sync.Mutex
	moment time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{moment: testCreationMoment}
}

func (clock *fixedClock) Now() time.Time {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	return clock.moment
}

func (clock *fixedClock) Advance(duration time.Duration) {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	clock.moment = clock.moment.Add(duration)
}

type stubCheckpointBackend struct {
	mutex           sync.Mutex
	tags            map[string]bool
	createError     error
	deleteError     error
	restoreError    error
	createdTags     []string
	deletedTags     []string
	restoredTags    []string
	repositoryPaths []string
}

func newStubCheckpointBackend() *stubCheckpointBackend {
	return &stubCheckpointBackend{tags: map[string]bool{}}
}

func (backend *stubCheckpointBackend) CreateSnapshot(executionContext context.Context, repositoryPath string, tagName string) error {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	backend.repositoryPaths = append(backend.repositoryPaths, repositoryPath)
	if backend.createError != nil {
		return backend.createError
	}
	if backend.tags[tagName] {
		return errors.New(testTagExistsMessageConstant)
	}
	backend.tags[tagName] = true
	backend.createdTags = append(backend.createdTags, tagName)
	return nil
}

func (backend *stubCheckpointBackend) DeleteSnapshot(executionContext context.Context, repositoryPath string, tagName string) error {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	backend.repositoryPaths = append(backend.repositoryPaths, repositoryPath)
	if backend.deleteError != nil {
		return backend.deleteError
	}
	delete(backend.tags, tagName)
	backend.deletedTags = append(backend.deletedTags, tagName)
	return nil
}

func (backend *stubCheckpointBackend) RestoreSnapshot(executionContext context.Context, repositoryPath string, tagName string) error {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	backend.repositoryPaths = append(backend.repositoryPaths, repositoryPath)
	if backend.restoreError != nil {
		return backend.restoreError
	}
	if !backend.tags[tagName] {
		return errors.New(testUnknownTagMessageConstant)
	}
	backend.restoredTags = append(backend.restoredTags, tagName)
	return nil
}

func (backend *stubCheckpointBackend) hasTag(tagName string) bool {
	backend.mutex.Lock()
	defer backend.mutex.Unlock()
	return backend.tags[tagName]
}

// failingDocumentWriter fails JSON writes whose target ends with failingSuffix.
type failingDocumentWriter struct {
	delegate      *atomicfile.Writer
	failingSuffix string
	failure       error
}

func (writer *failingDocumentWriter) WriteJSON(targetPath string, document any) error {
	if len(writer.failingSuffix) > 0 && strings.HasSuffix(targetPath, writer.failingSuffix) {
		return writer.failure
	}
	return writer.delegate.WriteJSON(targetPath, document)
}

func (writer *failingDocumentWriter) WriteFile(targetPath string, content []byte) error {
	return writer.delegate.WriteFile(targetPath, content)
}

type workspaceFixture struct {
	workspace    *migration.Workspace
	root         string
	codebasePath string
	backend      *stubCheckpointBackend
	writer       *failingDocumentWriter
	clock        *fixedClock
}

func newWorkspaceFixture(testInstance *testing.T, logger *zap.Logger) workspaceFixture {
	testInstance.Helper()

	baseDirectory := testInstance.TempDir()
	fixture := workspaceFixture{
		root:         filepath.Join(baseDirectory, "migrations"),
		codebasePath: filepath.Join(baseDirectory, testCodebaseNameConstant),
		backend:      newStubCheckpointBackend(),
		writer:       &failingDocumentWriter{delegate: atomicfile.NewWriter()},
		clock:        newFixedClock(),
	}
	require.NoError(testInstance, os.MkdirAll(fixture.codebasePath, 0o755))

	workspace, workspaceError := migration.NewWorkspace(migration.WorkspaceDependencies{
		Root:    fixture.root,
		Backend: fixture.backend,
		Writer:  fixture.writer,
		Clock:   fixture.clock,
		Logger:  logger,
	})
	require.NoError(testInstance, workspaceError)
	fixture.workspace = workspace
	return fixture
}

func (fixture workspaceFixture) createPipeline(testInstance *testing.T) *migration.Pipeline {
	testInstance.Helper()
	pipeline, _, createError := fixture.workspace.Create(migration.CreateOptions{
		CodebasePath: fixture.codebasePath,
		Target:       testTargetConstant,
	})
	require.NoError(testInstance, createError)
	return pipeline
}

func writeTestFile(testInstance *testing.T, filePath string, content string) {
	testInstance.Helper()
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(filePath), 0o755))
	require.NoError(testInstance, os.WriteFile(filePath, []byte(content), 0o644))
}

func readTestFile(testInstance *testing.T, filePath string) []byte {
	testInstance.Helper()
	content, readError := os.ReadFile(filePath)
	require.NoError(testInstance, readError)
	return content
}
