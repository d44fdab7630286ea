package migrations

import (
	"path/filepath"
	"strings"

	"github.com/temirov/lokimigrate/internal/gitrepo"
	pathutils "github.com/temirov/lokimigrate/internal/utils/path"
)

const (
	dataDirectoryKeyConstant        = "data_directory"
	rootKeyConstant                 = "root"
	backendKeyConstant              = "backend"
	defaultDataDirectoryConstant    = "~/.loki"
	migrationsDirectoryNameConstant = "migrations"
)

// Configuration describes where migrations are stored.
type Configuration struct {
	DataDirectory string `mapstructure:"data_directory"`
	Root          string `mapstructure:"root"`
}

// CheckpointConfiguration selects the snapshot backend used for checkpoints.
type CheckpointConfiguration struct {
	Backend gitrepo.BackendKind `mapstructure:"backend"`
}

// DefaultConfiguration returns baseline storage values.
func DefaultConfiguration() Configuration {
	return Configuration{
		DataDirectory: defaultDataDirectoryConstant,
		Root:          "",
	}
}

// DefaultCheckpointConfiguration returns the baseline checkpoint backend.
func DefaultCheckpointConfiguration() CheckpointConfiguration {
	return CheckpointConfiguration{Backend: gitrepo.BackendKindCommand}
}

// DefaultConfigurationValues produces Viper defaults for the migrations section.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		rootKey + "." + dataDirectoryKeyConstant: defaults.DataDirectory,
		rootKey + "." + rootKeyConstant:          defaults.Root,
	}
}

// DefaultCheckpointConfigurationValues produces Viper defaults for the checkpoints section.
func DefaultCheckpointConfigurationValues(rootKey string) map[string]any {
	return map[string]any{
		rootKey + "." + backendKeyConstant: string(DefaultCheckpointConfiguration().Backend),
	}
}

// ResolveRoot returns the absolute migrations root: the explicit root when configured, otherwise
// <data_directory>/migrations. A leading ~ is expanded.
func (configuration Configuration) ResolveRoot(expander *pathutils.HomeExpander) (string, error) {
	if expander == nil {
		expander = pathutils.NewHomeExpander()
	}
	explicitRoot := strings.TrimSpace(configuration.Root)
	if len(explicitRoot) > 0 {
		return expander.ResolveAbsolute(explicitRoot)
	}

	dataDirectory := strings.TrimSpace(configuration.DataDirectory)
	if len(dataDirectory) == 0 {
		dataDirectory = defaultDataDirectoryConstant
	}
	return expander.ResolveAbsolute(filepath.Join(dataDirectory, migrationsDirectoryNameConstant))
}
