package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/scoreprep/internal/cli/config"
	"github.com/leapstack-labs/scoreprep/internal/cli/output"
	"github.com/leapstack-labs/scoreprep/internal/engine"
	"github.com/leapstack-labs/scoreprep/pkg/preprocess"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode, _ := output.ParseMode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, or the defaults when the
// command runs without the root command (tests, direct invocation).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{
			ArtifactsDir:  config.DefaultArtifactsDir,
			StatePath:     config.DefaultStateFile,
			Environment:   config.DefaultEnv,
			OutputFormat:  config.DefaultOutput,
			HandleUnknown: config.DefaultHandleUnknown,
		}
	}
	return cfg
}

// engineConfig converts the CLI configuration to an engine configuration.
func engineConfig(cfg *config.Config, logger *slog.Logger) engine.Config {
	return engine.Config{
		PreprocessorPath: cfg.PreprocessorPath,
		Schema:           cfg.Schema.Clone(),
		Source:           cfg.Source.AdapterConfig(),
		HandleUnknown:    preprocess.UnknownPolicy(cfg.HandleUnknown),
		StatePath:        cfg.StatePath,
		Environment:      cfg.Environment,
		Logger:           logger,
	}
}

func createEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	return engine.New(engineConfig(cfg, logger))
}
