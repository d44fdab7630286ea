package migration_test

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/lokimigrate/internal/migration"
)

const (
	testCreationTimestampConstant = "2026-02-23T14:30:52Z"
	testLaterTimestampConstant    = "2026-02-23T14:31:52Z"
)

func TestCreateManifestInitialState(testInstance *testing.T) {
	fixture := newWorkspaceFixture(testInstance, nil)

	pipeline, manifest, createError := fixture.workspace.Create(migration.CreateOptions{
		CodebasePath: fixture.codebasePath + string(filepath.Separator),
		Target:       testTargetConstant,
		Options:      map[string]any{"source_type": "python", "strict": true},
	})
	require.NoError(testInstance, createError)

	require.Regexp(testInstance, regexp.MustCompile(`^mig_\d{8}_\d{6}_proj$`), pipeline.ID())
	require.Equal(testInstance, testExpectedMigrationIDConstant, manifest.ID)
	require.Equal(testInstance, testCreationTimestampConstant, manifest.CreatedAt)
	require.Equal(testInstance, migration.SourceInfo{Path: fixture.codebasePath, Type: "python"}, manifest.SourceInfo)
	require.Equal(testInstance, testTargetConstant, manifest.TargetInfo.Target)
	require.Equal(testInstance, true, manifest.TargetInfo.Options["strict"])
	require.Equal(testInstance, []string{}, manifest.Checkpoints)
	require.Equal(testInstance, filepath.Join(pipeline.Directory(), "features.json"), manifest.FeatureListPath)
	require.Equal(testInstance, filepath.Join(pipeline.Directory(), "migration-plan.json"), manifest.MigrationPlanPath)

	require.Equal(testInstance, migration.PhaseRecord{Status: migration.PhaseStatusInProgress, StartedAt: testCreationTimestampConstant}, manifest.Phases[migration.PhaseUnderstand])
	for _, phase := range []migration.Phase{migration.PhaseGuardrail, migration.PhaseMigrate, migration.PhaseVerify} {
		require.Equal(testInstance, migration.PhaseRecord{Status: migration.PhaseStatusPending}, manifest.Phases[phase])
	}

	require.DirExists(testInstance, filepath.Join(pipeline.Directory(), "docs"))
	require.DirExists(testInstance, filepath.Join(pipeline.Directory(), "checkpoints"))

	var persisted map[string]any
	require.NoError(testInstance, json.Unmarshal(readTestFile(testInstance, filepath.Join(pipeline.Directory(), "manifest.json")), &persisted))
	require.Equal(testInstance, testExpectedMigrationIDConstant, persisted["id"])
	phases := persisted["phases"].(map[string]any)
	require.Equal(testInstance, "in_progress", phases["understand"].(map[string]any)["status"])
	require.Equal(testInstance, "", phases["guardrail"].(map[string]any)["started_at"])
}

func TestCreateManifestDefaultsSourceType(testInstance *testing.T) {
	fixture := newWorkspaceFixture(testInstance, nil)

	_, manifest, createError := fixture.workspace.Create(migration.CreateOptions{CodebasePath: fixture.codebasePath, Target: testTargetConstant})
	require.NoError(testInstance, createError)
	require.Equal(testInstance, "unknown", manifest.SourceInfo.Type)
	require.Equal(testInstance, map[string]any{}, manifest.TargetInfo.Options)
}

func TestCreateManifestRefusesExistingMigration(testInstance *testing.T) {
	fixture := newWorkspaceFixture(testInstance, nil)
	fixture.createPipeline(testInstance)

	_, _, createError := fixture.workspace.Create(migration.CreateOptions{CodebasePath: fixture.codebasePath, Target: testTargetConstant})
	require.ErrorIs(testInstance, createError, migration.ErrIllegalStateTransition)
}

func TestCreateRejectsInvalidInput(testInstance *testing.T) {
	testCases := []struct {
		name    string
		options migration.CreateOptions
	}{
		{name: "missing_target", options: migration.CreateOptions{CodebasePath: "/tmp/proj"}},
		{name: "root_path", options: migration.CreateOptions{CodebasePath: "/", Target: testTargetConstant}},
		{name: "empty_path", options: migration.CreateOptions{CodebasePath: "  ", Target: testTargetConstant}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newWorkspaceFixture(testInstance, nil)
			_, _, createError := fixture.workspace.Create(testCase.options)
			require.ErrorIs(testInstance, createError, migration.ErrInvalidArgument)
		})
	}
}

func TestStartPhaseIsIdempotentForInProgressPhase(testInstance *testing.T) {
	fixture := newWorkspaceFixture(testInstance, nil)
	pipeline := fixture.createPipeline(testInstance)
	manifestPath := filepath.Join(pipeline.Directory(), "manifest.json")
	before := readTestFile(testInstance, manifestPath)

	fixture.clock.Advance(time.Minute)
	require.NoError(testInstance, pipeline.StartPhase(migration.PhaseUnderstand))
	require.NoError(testInstance, pipeline.StartPhase(migration.PhaseUnderstand))

	manifest, loadError := pipeline.LoadManifest()
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, testCreationTimestampConstant, manifest.Phases[migration.PhaseUnderstand].StartedAt)
	require.Equal(testInstance, before, readTestFile(testInstance, manifestPath))
}

func TestStartPhaseRejections(testInstance *testing.T) {
	testCases := []struct {
		name          string
		prepare       func(testInstance *testing.T, fixture workspaceFixture, pipeline *migration.Pipeline)
		phase         migration.Phase
		expectedError error
	}{
		{
			name:          "unknown_phase",
			phase:         migration.Phase("deploy"),
			expectedError: migration.ErrInvalidArgument,
		},
		{
			name:          "pending_phase_out_of_order",
			phase:         migration.PhaseMigrate,
			expectedError: migration.ErrIllegalStateTransition,
		},
		{
			name: "completed_phase",
			prepare: func(testInstance *testing.T, fixture workspaceFixture, pipeline *migration.Pipeline) {
				writeUnderstandingArtifacts(testInstance, pipeline)
				_, advanceError := pipeline.AdvancePhase(migration.PhaseUnderstand)
				require.NoError(testInstance, advanceError)
			},
			phase:         migration.PhaseUnderstand,
			expectedError: migration.ErrIllegalStateTransition,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newWorkspaceFixture(testInstance, nil)
			pipeline := fixture.createPipeline(testInstance)
			if testCase.prepare != nil {
				testCase.prepare(testInstance, fixture, pipeline)
			}

			require.ErrorIs(testInstance, pipeline.StartPhase(testCase.phase), testCase.expectedError)
		})
	}
}

func TestAdvancePhaseLeavesManifestUnchangedOnFailure(testInstance *testing.T) {
	testCases := []struct {
		name          string
		phase         migration.Phase
		expectedError error
	}{
		{name: "gate_blocked", phase: migration.PhaseUnderstand, expectedError: migration.ErrGateBlocked},
		{name: "phase_pending", phase: migration.PhaseGuardrail, expectedError: migration.ErrIllegalStateTransition},
		{name: "unknown_phase", phase: migration.Phase("deploy"), expectedError: migration.ErrInvalidArgument},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newWorkspaceFixture(testInstance, nil)
			pipeline := fixture.createPipeline(testInstance)
			manifestPath := filepath.Join(pipeline.Directory(), "manifest.json")
			before := readTestFile(testInstance, manifestPath)

			fixture.clock.Advance(time.Minute)
			_, advanceError := pipeline.AdvancePhase(testCase.phase)
			require.ErrorIs(testInstance, advanceError, testCase.expectedError)
			require.Equal(testInstance, before, readTestFile(testInstance, manifestPath))
		})
	}
}

func TestAdvancePhaseGateBlockedCarriesReason(testInstance *testing.T) {
	fixture := newWorkspaceFixture(testInstance, nil)
	pipeline := fixture.createPipeline(testInstance)
	writeUnderstandingArtifacts(testInstance, pipeline)
	_, advanceError := pipeline.AdvancePhase(migration.PhaseUnderstand)
	require.NoError(testInstance, advanceError)

	writeTestFile(testInstance, filepath.Join(pipeline.Directory(), "features.json"), `[{"id":"f1","passes":false}]`)

	_, blockedError := pipeline.AdvancePhase(migration.PhaseGuardrail)
	var gateBlocked migration.GateBlockedError
	require.ErrorAs(testInstance, blockedError, &gateBlocked)
	require.Equal(testInstance, "Phase gate failed: 1 characterization tests not passing (f1)", blockedError.Error())
	require.Equal(testInstance, migration.PhaseGuardrail, gateBlocked.FromPhase)
	require.Equal(testInstance, migration.PhaseMigrate, gateBlocked.ToPhase)
	require.Equal(testInstance, []string{"f1"}, gateBlocked.OffendingIdentifiers)

	verdict, gateError := pipeline.CheckPhaseGate(migration.PhaseGuardrail, migration.PhaseMigrate)
	require.NoError(testInstance, gateError)
	require.Equal(testInstance, gateBlocked.Reason, verdict.Reason)
}

func TestAdvancePhaseMigrateToVerify(testInstance *testing.T) {
	fixture := newWorkspaceFixture(testInstance, nil)
	pipeline := fixture.createPipeline(testInstance)
	advanceThroughGuardrail(testInstance, pipeline)

	writeTestFile(testInstance, filepath.Join(pipeline.Directory(), "migration-plan.json"),
		`{"steps":[{"id":"s1","status":"completed"},{"id":"s2","status":"completed"}]}`)

	verdict, gateError := pipeline.CheckPhaseGate(migration.PhaseMigrate, migration.PhaseVerify)
	require.NoError(testInstance, gateError)
	require.True(testInstance, verdict.Allowed)

	fixture.clock.Advance(time.Minute)
	result, advanceError := pipeline.AdvancePhase(migration.PhaseMigrate)
	require.NoError(testInstance, advanceError)
	require.Equal(testInstance, migration.PhaseResult{
		Phase:       migration.PhaseMigrate,
		Status:      migration.PhaseStatusCompleted,
		CompletedAt: testLaterTimestampConstant,
		NextPhase:   migration.PhaseVerify,
	}, result)

	manifest, loadError := pipeline.LoadManifest()
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, migration.PhaseStatusCompleted, manifest.Phases[migration.PhaseMigrate].Status)
	require.Equal(testInstance, testLaterTimestampConstant, manifest.Phases[migration.PhaseMigrate].CompletedAt)
	require.Equal(testInstance, migration.PhaseStatusInProgress, manifest.Phases[migration.PhaseVerify].Status)
	require.Equal(testInstance, testLaterTimestampConstant, manifest.Phases[migration.PhaseVerify].StartedAt)
}

func TestAdvancePhaseCompletesTerminalPhase(testInstance *testing.T) {
	fixture := newWorkspaceFixture(testInstance, nil)
	pipeline := fixture.createPipeline(testInstance)
	advanceThroughGuardrail(testInstance, pipeline)
	writeTestFile(testInstance, filepath.Join(pipeline.Directory(), "migration-plan.json"), `{"steps":[]}`)
	_, migrateError := pipeline.AdvancePhase(migration.PhaseMigrate)
	require.NoError(testInstance, migrateError)

	result, verifyError := pipeline.AdvancePhase(migration.PhaseVerify)
	require.NoError(testInstance, verifyError)
	require.Equal(testInstance, migration.Phase(""), result.NextPhase)

	manifest, loadError := pipeline.LoadManifest()
	require.NoError(testInstance, loadError)
	for _, phase := range migration.Phases() {
		require.Equal(testInstance, migration.PhaseStatusCompleted, manifest.PhaseStatus(phase))
	}
	require.Equal(testInstance, migration.PhaseStatusCompleted, migration.OverallStatus(manifest))

	_, repeatError := pipeline.AdvancePhase(migration.PhaseVerify)
	require.ErrorIs(testInstance, repeatError, migration.ErrIllegalStateTransition)
}

func TestPhaseStatusesNeverRegress(testInstance *testing.T) {
	fixture := newWorkspaceFixture(testInstance, nil)
	pipeline := fixture.createPipeline(testInstance)
	writeUnderstandingArtifacts(testInstance, pipeline)
	_, advanceError := pipeline.AdvancePhase(migration.PhaseUnderstand)
	require.NoError(testInstance, advanceError)

	attempts := []func() error{
		func() error { return pipeline.StartPhase(migration.PhaseUnderstand) },
		func() error { _, err := pipeline.AdvancePhase(migration.PhaseUnderstand); return err },
		func() error { return pipeline.StartPhase(migration.PhaseVerify) },
		func() error { _, err := pipeline.AdvancePhase(migration.PhaseMigrate); return err },
	}
	for _, attempt := range attempts {
		require.Error(testInstance, attempt())
		status, statusError := pipeline.PhaseStatus(migration.PhaseUnderstand)
		require.NoError(testInstance, statusError)
		require.Equal(testInstance, migration.PhaseStatusCompleted, status)
	}

	status, statusError := pipeline.PhaseStatus(migration.PhaseGuardrail)
	require.NoError(testInstance, statusError)
	require.Equal(testInstance, migration.PhaseStatusInProgress, status)
}

func TestConcurrentAdvanceCompletesPhaseOnce(testInstance *testing.T) {
	fixture := newWorkspaceFixture(testInstance, nil)
	pipeline := fixture.createPipeline(testInstance)
	writeUnderstandingArtifacts(testInstance, pipeline)

	const callerCount = 8
	var waitGroup sync.WaitGroup
	results := make(chan error, callerCount)
	for callerIndex := 0; callerIndex < callerCount; callerIndex++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			samePipeline, openError := fixture.workspace.Open(pipeline.ID())
			if openError != nil {
				results <- openError
				return
			}
			_, advanceError := samePipeline.AdvancePhase(migration.PhaseUnderstand)
			results <- advanceError
		}()
	}
	waitGroup.Wait()
	close(results)

	successCount := 0
	for advanceError := range results {
		if advanceError == nil {
			successCount++
			continue
		}
		require.True(testInstance, errors.Is(advanceError, migration.ErrIllegalStateTransition))
	}
	require.Equal(testInstance, 1, successCount)
}

func TestArtifactAccessThroughPipeline(testInstance *testing.T) {
	fixture := newWorkspaceFixture(testInstance, nil)
	pipeline := fixture.createPipeline(testInstance)

	_, missingError := pipeline.LoadFeatures()
	require.ErrorIs(testInstance, missingError, migration.ErrNotFound)

	require.NoError(testInstance, pipeline.SaveFeatures([]migration.Feature{{ID: "f1", Passes: true, Risk: "low"}}))
	require.NoError(testInstance, pipeline.SaveSeams([]migration.SeamInfo{{ID: "s1", Priority: "high"}}))
	plan := migration.NewMigrationPlan()
	plan.Steps = []migration.MigrationStep{{ID: "step1", Status: migration.StepStatusCompleted, Risk: "low"}}
	require.NoError(testInstance, pipeline.SavePlan(plan))

	features, featuresError := pipeline.LoadFeatures()
	require.NoError(testInstance, featuresError)
	require.Len(testInstance, features, 1)

	seams, seamsError := pipeline.LoadSeams()
	require.NoError(testInstance, seamsError)
	require.Equal(testInstance, "high", seams[0].Priority)

	loadedPlan, planError := pipeline.LoadPlan()
	require.NoError(testInstance, planError)
	require.Equal(testInstance, "step1", loadedPlan.Steps[0].ID)
}

func TestArtifactSaveFailureReportsIOFailure(testInstance *testing.T) {
	fixture := newWorkspaceFixture(testInstance, nil)
	pipeline := fixture.createPipeline(testInstance)
	fixture.writer.failingSuffix = "features.json"
	fixture.writer.failure = errors.New("disk full")

	saveError := pipeline.SaveFeatures([]migration.Feature{{ID: "f1"}})
	require.ErrorIs(testInstance, saveError, migration.ErrIOFailure)
	require.NoFileExists(testInstance, filepath.Join(pipeline.Directory(), "features.json"))
}

func writeUnderstandingArtifacts(testInstance *testing.T, pipeline *migration.Pipeline) {
	testInstance.Helper()
	writeTestFile(testInstance, filepath.Join(pipeline.Directory(), "docs", "overview.md"), "# Overview")
	writeTestFile(testInstance, filepath.Join(pipeline.Directory(), "seams.json"), `{"seams":[{"id":"api"}]}`)
}

func advanceThroughGuardrail(testInstance *testing.T, pipeline *migration.Pipeline) {
	testInstance.Helper()
	writeUnderstandingArtifacts(testInstance, pipeline)
	_, understandError := pipeline.AdvancePhase(migration.PhaseUnderstand)
	require.NoError(testInstance, understandError)
	writeTestFile(testInstance, filepath.Join(pipeline.Directory(), "features.json"), `[{"id":"f1","passes":true}]`)
	_, guardrailError := pipeline.AdvancePhase(migration.PhaseGuardrail)
	require.NoError(testInstance, guardrailError)
}
