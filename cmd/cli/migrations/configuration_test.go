package migrations

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/lokimigrate/internal/gitrepo"
	pathutils "github.com/temirov/lokimigrate/internal/utils/path"
)

const (
	testHomeDirectoryConstant = "/home/migrator"
)

func TestConfigurationResolveRoot(testInstance *testing.T) {
	expander := pathutils.NewHomeExpanderWithProvider(func() (string, error) {
		return testHomeDirectoryConstant, nil
	})
	workingDirectory, workingDirectoryError := filepath.Abs(".")
	require.NoError(testInstance, workingDirectoryError)

	testCases := []struct {
		name          string
		configuration Configuration
		expectedRoot  string
	}{
		{
			name:          "defaults",
			configuration: DefaultConfiguration(),
			expectedRoot:  filepath.Join(testHomeDirectoryConstant, ".loki", "migrations"),
		},
		{
			name:          "blank_data_directory",
			configuration: Configuration{DataDirectory: "  "},
			expectedRoot:  filepath.Join(testHomeDirectoryConstant, ".loki", "migrations"),
		},
		{
			name:          "custom_data_directory",
			configuration: Configuration{DataDirectory: "/srv/loki"},
			expectedRoot:  "/srv/loki/migrations",
		},
		{
			name:          "explicit_root_wins",
			configuration: Configuration{DataDirectory: "/srv/loki", Root: "~/work/migrations"},
			expectedRoot:  filepath.Join(testHomeDirectoryConstant, "work", "migrations"),
		},
		{
			name:          "relative_root",
			configuration: Configuration{Root: "state"},
			expectedRoot:  filepath.Join(workingDirectory, "state"),
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			resolvedRoot, resolveError := testCase.configuration.ResolveRoot(expander)
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedRoot, resolvedRoot)
		})
	}
}

func TestDefaultConfigurationValues(testInstance *testing.T) {
	require.Equal(testInstance, map[string]any{
		"migrations.data_directory": "~/.loki",
		"migrations.root":           "",
	}, DefaultConfigurationValues("migrations"))

	require.Equal(testInstance, map[string]any{
		"checkpoints.backend": string(gitrepo.BackendKindCommand),
	}, DefaultCheckpointConfigurationValues("checkpoints"))
}
