package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/lokimigrate/cmd/cli/migrations"
	"github.com/temirov/lokimigrate/internal/atomicfile"
	"github.com/temirov/lokimigrate/internal/execshell"
	"github.com/temirov/lokimigrate/internal/gitrepo"
	"github.com/temirov/lokimigrate/internal/migration"
	"github.com/temirov/lokimigrate/internal/ui"
	"github.com/temirov/lokimigrate/internal/utils"
	pathutils "github.com/temirov/lokimigrate/internal/utils/path"
)

const (
	applicationNameConstant                 = "loki-migrate"
	applicationShortDescriptionConstant     = "Phased, checkpointed codebase migrations"
	applicationLongDescriptionConstant      = "loki-migrate records migration manifests, enforces phase gates and tags checkpoints so every step can be rolled back."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	migrationsConfigurationKeyConstant      = "migrations"
	migrationsDataDirectoryKeyConstant      = migrationsConfigurationKeyConstant + ".data_directory"
	checkpointsConfigurationKeyConstant     = "checkpoints"
	environmentPrefixConstant               = "LOKIMIGRATE"
	dataDirectoryEnvironmentAliasConstant   = "LOKI_DATA_DIR"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	migrationsRootErrorTemplateConstant     = "unable to resolve migrations root: %w"
	checkpointBackendErrorTemplateConstant  = "unable to configure checkpoint backend: %w"
	workspaceReadyMessageConstant           = "migration workspace ready"
	logFieldMigrationsRootConstant          = "migrations_root"
	logFieldCheckpointBackendConstant       = "checkpoint_backend"
	defaultConfigurationSearchPathConstant  = "."
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common      ApplicationCommonConfiguration     `mapstructure:"common"`
	Migrations  migrations.Configuration           `mapstructure:"migrations"`
	Checkpoints migrations.CheckpointConfiguration `mapstructure:"checkpoints"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// CommandBuilder constructs one subcommand of the root command.
type CommandBuilder interface {
	Build() (*cobra.Command, error)
}

// Application wires the Cobra root command, configuration loader, structured logger and the
// migration workspace shared by every subcommand.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	homeExpander          *pathutils.HomeExpander
	logger                *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
	workspaceGuard        sync.Mutex
	workspace             *migration.Workspace
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())
	configurationLoader.AddEnvironmentAlias(migrationsDataDirectoryKeyConstant, dataDirectoryEnvironmentAliasConstant)

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(utils.WithComponentName(applicationNameConstant)),
		homeExpander:        pathutils.NewHomeExpander(),
		logger:              zap.NewNop(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)

	loggerProvider := func() *zap.Logger {
		return application.logger
	}

	commandBuilders := []CommandBuilder{
		&migrations.CreateCommandBuilder{LoggerProvider: loggerProvider, WorkspaceProvider: application.resolveWorkspace},
		&migrations.ListCommandBuilder{LoggerProvider: loggerProvider, WorkspaceProvider: application.resolveWorkspace},
		&migrations.ProgressCommandBuilder{LoggerProvider: loggerProvider, WorkspaceProvider: application.resolveWorkspace},
		&migrations.PhaseCommandBuilder{LoggerProvider: loggerProvider, WorkspaceProvider: application.resolveWorkspace},
		&migrations.GateCommandBuilder{LoggerProvider: loggerProvider, WorkspaceProvider: application.resolveWorkspace},
		&migrations.CheckpointCommandBuilder{LoggerProvider: loggerProvider, WorkspaceProvider: application.resolveWorkspace},
		&migrations.PlanCommandBuilder{LoggerProvider: loggerProvider, WorkspaceProvider: application.resolveWorkspace},
	}
	for _, commandBuilder := range commandBuilders {
		subcommand, buildError := commandBuilder.Build()
		if buildError == nil {
			cobraCommand.AddCommand(subcommand)
		}
	}

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}
	for configurationKey, configurationValue := range migrations.DefaultConfigurationValues(migrationsConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}
	for configurationKey, configurationValue := range migrations.DefaultCheckpointConfigurationValues(checkpointsConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

// resolveWorkspace builds the migration workspace on first use so that it observes the loaded
// configuration and logger.
func (application *Application) resolveWorkspace() (*migration.Workspace, error) {
	application.workspaceGuard.Lock()
	defer application.workspaceGuard.Unlock()

	if application.workspace != nil {
		return application.workspace, nil
	}

	migrationsRoot, rootError := application.configuration.Migrations.ResolveRoot(application.homeExpander)
	if rootError != nil {
		return nil, fmt.Errorf(migrationsRootErrorTemplateConstant, rootError)
	}

	backend, backendError := application.buildCheckpointBackend()
	if backendError != nil {
		return nil, fmt.Errorf(checkpointBackendErrorTemplateConstant, backendError)
	}

	workspace, workspaceError := migration.NewWorkspace(migration.WorkspaceDependencies{
		Root:    migrationsRoot,
		Backend: backend,
		Writer:  atomicfile.NewWriter(),
		Clock:   migration.SystemClock{},
		Logger:  application.logger,
	})
	if workspaceError != nil {
		return nil, workspaceError
	}

	application.logger.Debug(
		workspaceReadyMessageConstant,
		zap.String(logFieldMigrationsRootConstant, migrationsRoot),
		zap.String(logFieldCheckpointBackendConstant, string(application.checkpointBackendKind())),
	)
	application.workspace = workspace
	return workspace, nil
}

func (application *Application) buildCheckpointBackend() (gitrepo.SnapshotBackend, error) {
	backendKind := application.checkpointBackendKind()
	if backendKind != gitrepo.BackendKindCommand {
		return gitrepo.NewSnapshotBackend(backendKind, nil)
	}

	var observers []execshell.CommandEventObserver
	if application.humanReadableLoggingEnabled() {
		observers = append(observers, ui.NewConsoleCommandEventLogger(application.logger))
	}
	shellExecutor, executorError := execshell.NewShellExecutor(application.logger, execshell.NewOSCommandRunner(), observers...)
	if executorError != nil {
		return nil, executorError
	}
	return gitrepo.NewSnapshotBackend(backendKind, shellExecutor)
}

func (application *Application) checkpointBackendKind() gitrepo.BackendKind {
	if len(application.configuration.Checkpoints.Backend) == 0 {
		return gitrepo.BackendKindCommand
	}
	return application.configuration.Checkpoints.Backend
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) flushLogger() error {
	return application.syncLoggerInstance(application.logger)
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
