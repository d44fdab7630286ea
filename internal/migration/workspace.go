package migration

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const (
	sourceTypeOptionKeyConstant         = "source_type"
	missingTargetTemplateConstant       = "%w: target must be provided"
	codebasePathResolveTemplateConstant = "%w: unable to resolve codebase path %q: %v"
)

// WorkspaceDependencies describes the collaborators shared by every pipeline of a migrations root.
type WorkspaceDependencies struct {
	Root    string
	Backend CheckpointBackend
	Writer  DocumentWriter
	Clock   Clock
	Logger  *zap.Logger
}

// CreateOptions describes a new migration.
type CreateOptions struct {
	CodebasePath string
	Target       string
	SourceType   string
	Options      map[string]any
}

// Workspace is the registry of live pipelines for one migrations root. Pipelines are cached by
// migration id so concurrent callers of the same migration share one lock.
type Workspace struct {
	root      string
	backend   CheckpointBackend
	writer    DocumentWriter
	clock     Clock
	logger    *zap.Logger
	lock      sync.Mutex
	pipelines map[string]*Pipeline
}

// NewWorkspace constructs a Workspace.
func NewWorkspace(dependencies WorkspaceDependencies) (*Workspace, error) {
	if len(dependencies.Root) == 0 {
		return nil, errRootMissing
	}
	if dependencies.Writer == nil {
		return nil, errWriterMissing
	}
	if dependencies.Backend == nil {
		return nil, errBackendMissing
	}

	clock := dependencies.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Workspace{
		root:      dependencies.Root,
		backend:   dependencies.Backend,
		writer:    dependencies.Writer,
		clock:     clock,
		logger:    logger,
		pipelines: map[string]*Pipeline{},
	}, nil
}

// Root returns the migrations root.
func (workspace *Workspace) Root() string {
	return workspace.root
}

// Create starts a new migration for a codebase and writes its initial manifest. The codebase
// path is made absolute; its existence is not checked.
func (workspace *Workspace) Create(options CreateOptions) (*Pipeline, Manifest, error) {
	target := strings.TrimSpace(options.Target)
	if len(target) == 0 {
		return nil, Manifest{}, fmt.Errorf(missingTargetTemplateConstant, ErrInvalidArgument)
	}

	trimmedCodebasePath := strings.TrimRight(strings.TrimSpace(options.CodebasePath), string(filepath.Separator))
	if len(trimmedCodebasePath) == 0 {
		return nil, Manifest{}, fmt.Errorf(underivableProjectNameTemplateConstant, ErrInvalidArgument, options.CodebasePath)
	}
	codebasePath, absoluteError := filepath.Abs(trimmedCodebasePath)
	if absoluteError != nil {
		return nil, Manifest{}, fmt.Errorf(codebasePathResolveTemplateConstant, ErrInvalidArgument, options.CodebasePath, absoluteError)
	}

	migrationID, identifierError := NewMigrationID(codebasePath, workspace.clock.Now())
	if identifierError != nil {
		return nil, Manifest{}, identifierError
	}

	workspace.lock.Lock()
	defer workspace.lock.Unlock()

	pipeline, exists := workspace.pipelines[migrationID]
	if !exists {
		var constructionError error
		pipeline, constructionError = workspace.newPipeline(migrationID, codebasePath, target)
		if constructionError != nil {
			return nil, Manifest{}, constructionError
		}
	}

	manifest, createError := pipeline.CreateManifest(options.SourceType, options.Options)
	if createError != nil {
		return nil, Manifest{}, createError
	}
	workspace.pipelines[migrationID] = pipeline
	return pipeline, manifest, nil
}

// Open returns the pipeline of an existing migration, reconstructing the codebase path and
// target from its manifest. Malformed ids are rejected before touching the filesystem.
func (workspace *Workspace) Open(migrationID string) (*Pipeline, error) {
	if validationError := ValidateMigrationID(migrationID); validationError != nil {
		return nil, validationError
	}

	workspace.lock.Lock()
	defer workspace.lock.Unlock()

	if pipeline, exists := workspace.pipelines[migrationID]; exists {
		return pipeline, nil
	}

	layout := NewLayout(workspace.root, migrationID)
	manifest, loadError := NewManifestStore(layout.ManifestPath(), workspace.writer).Load()
	if loadError != nil {
		return nil, loadError
	}

	pipeline, constructionError := workspace.newPipeline(migrationID, manifest.SourceInfo.Path, manifest.TargetInfo.ResolvedTarget())
	if constructionError != nil {
		return nil, constructionError
	}
	workspace.pipelines[migrationID] = pipeline
	return pipeline, nil
}

// List summarizes every migration under the root.
func (workspace *Workspace) List() ([]MigrationSummary, error) {
	return ListMigrations(workspace.root, workspace.logger)
}

func (workspace *Workspace) newPipeline(migrationID string, codebasePath string, target string) (*Pipeline, error) {
	return NewPipeline(PipelineDependencies{
		Root:         workspace.root,
		MigrationID:  migrationID,
		CodebasePath: codebasePath,
		Target:       target,
		Backend:      workspace.backend,
		Writer:       workspace.writer,
		Clock:        workspace.clock,
		Logger:       workspace.logger,
	})
}
