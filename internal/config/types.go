// Package config provides shared configuration types for scoreprep.
// This package is decoupled from CLI concerns so the engine and tests can
// load project configuration without pulling in cobra.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/scoreprep/pkg/adapter"
	"github.com/leapstack-labs/scoreprep/pkg/preprocess"
)

// SchemaConfig names the columns the preprocessor consumes.
type SchemaConfig struct {
	Numerical   []string `koanf:"numerical" yaml:"numerical"`
	Categorical []string `koanf:"categorical" yaml:"categorical"`
	Target      string   `koanf:"target" yaml:"target"`
}

// Validate checks that the schema has columns and no column is used twice.
func (s *SchemaConfig) Validate() error {
	if s.Target == "" {
		return fmt.Errorf("schema target is required")
	}
	if len(s.Numerical) == 0 {
		return fmt.Errorf("schema needs at least one numerical column")
	}
	if len(s.Categorical) == 0 {
		return fmt.Errorf("schema needs at least one categorical column")
	}
	seen := map[string]string{s.Target: "target"}
	for _, group := range []struct {
		name string
		cols []string
	}{{"numerical", s.Numerical}, {"categorical", s.Categorical}} {
		for _, c := range group.cols {
			if c == "" {
				return fmt.Errorf("schema %s column name is empty", group.name)
			}
			if prev, dup := seen[c]; dup {
				return fmt.Errorf("column %q is listed as both %s and %s", c, prev, group.name)
			}
			seen[c] = group.name
		}
	}
	return nil
}

// Clone returns a deep copy of the schema.
func (s SchemaConfig) Clone() SchemaConfig {
	return SchemaConfig{
		Numerical:   slices.Clone(s.Numerical),
		Categorical: slices.Clone(s.Categorical),
		Target:      s.Target,
	}
}

// SourceConfig selects and configures the adapter that reads the CSV inputs.
type SourceConfig struct {
	Type string `koanf:"type" yaml:"type"` // csv, duckdb

	// Database is the DuckDB database file; empty means in-memory.
	Database string `koanf:"database" yaml:"database,omitempty"`

	// Delimiter is the CSV field separator. Empty means ",".
	Delimiter string `koanf:"delimiter" yaml:"delimiter,omitempty"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options" yaml:"options,omitempty"`

	// Params holds adapter-specific configuration (e.g., DuckDB settings)
	Params map[string]any `koanf:"params" yaml:"params,omitempty"`
}

// Validate checks if the source configuration is valid.
// It uses the adapter registry to determine which adapter types are available.
func (s *SourceConfig) Validate() error {
	if s.Type == "" {
		return fmt.Errorf("source type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(s.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      s.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// AdapterConfig converts the source configuration to an adapter.Config.
func (s *SourceConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Type:      strings.ToLower(s.Type),
		Path:      s.Database,
		Delimiter: s.Delimiter,
		Options:   s.Options,
		Params:    s.Params,
	}
}

// ProjectConfig holds the project configuration found in scoreprep.yaml.
type ProjectConfig struct {
	ArtifactsDir     string       `koanf:"artifacts_dir" yaml:"artifacts_dir"`
	PreprocessorPath string       `koanf:"preprocessor_path" yaml:"preprocessor_path"`
	TrainPath        string       `koanf:"train_path" yaml:"train_path"`
	TestPath         string       `koanf:"test_path" yaml:"test_path"`
	HandleUnknown    string       `koanf:"handle_unknown" yaml:"handle_unknown"`
	Schema           SchemaConfig `koanf:"schema" yaml:"schema"`
	Source           SourceConfig `koanf:"source" yaml:"source"`
}

// ValidateHandleUnknown checks an unknown-category policy name.
func ValidateHandleUnknown(policy string) error {
	switch preprocess.UnknownPolicy(policy) {
	case preprocess.UnknownError, preprocess.UnknownIgnore:
		return nil
	default:
		return fmt.Errorf("handle_unknown must be %q or %q, got %q",
			preprocess.UnknownError, preprocess.UnknownIgnore, policy)
	}
}
