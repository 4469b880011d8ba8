// Package config provides configuration management for the scoreprep CLI.
//
// This package extends the shared configuration types from internal/config
// with CLI-specific fields: output format, logging, environments and the
// resolved project root.
package config

import (
	sharedcfg "github.com/leapstack-labs/scoreprep/internal/config"
)

// SchemaConfig is an alias for the shared schema configuration.
type SchemaConfig = sharedcfg.SchemaConfig

// SourceConfig is an alias for the shared source configuration.
type SourceConfig = sharedcfg.SourceConfig

// Config holds all CLI configuration options.
type Config struct {
	ArtifactsDir     string               `koanf:"artifacts_dir"`
	PreprocessorPath string               `koanf:"preprocessor_path"`
	TrainPath        string               `koanf:"train_path"`
	TestPath         string               `koanf:"test_path"`
	HandleUnknown    string               `koanf:"handle_unknown"`
	StatePath        string               `koanf:"state_path"`
	Environment      string               `koanf:"environment"`
	Verbose          bool                 `koanf:"verbose"`
	OutputFormat     string               `koanf:"output"`
	LogLevel         string               `koanf:"log_level"`
	LogFormat        string               `koanf:"log_format"`
	Schema           SchemaConfig         `koanf:"schema"`
	Source           SourceConfig         `koanf:"source"`
	Environments     map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	ArtifactsDir     string        `koanf:"artifacts_dir"`
	PreprocessorPath string        `koanf:"preprocessor_path"`
	StatePath        string        `koanf:"state_path"`
	Source           *SourceConfig `koanf:"source"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultArtifactsDir  = sharedcfg.DefaultArtifactsDir
	DefaultStateFile     = ".scoreprep/state.db"
	DefaultEnv           = "dev"
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel      = "warn"
	DefaultLogFormat     = "text"
	DefaultHandleUnknown = sharedcfg.DefaultHandleUnknown
)

// Project returns the shared project view of the configuration.
func (c *Config) Project() sharedcfg.ProjectConfig {
	return sharedcfg.ProjectConfig{
		ArtifactsDir:     c.ArtifactsDir,
		PreprocessorPath: c.PreprocessorPath,
		TrainPath:        c.TrainPath,
		TestPath:         c.TestPath,
		HandleUnknown:    c.HandleUnknown,
		Schema:           c.Schema.Clone(),
		Source:           c.Source,
	}
}
