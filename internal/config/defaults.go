package config

import "path/filepath"

// Default configuration values.
const (
	DefaultArtifactsDir     = "artifacts"
	DefaultPreprocessorFile = "preprocessor.pkl"
	DefaultTrainFile        = "train.csv"
	DefaultTestFile         = "test.csv"
	DefaultTarget           = "math_score"
	DefaultSourceType       = "csv"
	DefaultHandleUnknown    = "error"
)

// DefaultNumerical returns the numerical feature columns of the student-score dataset.
func DefaultNumerical() []string {
	return []string{"writing_score", "reading_score"}
}

// DefaultCategorical returns the categorical feature columns of the student-score dataset.
func DefaultCategorical() []string {
	return []string{
		"gender",
		"race_ethnicity",
		"parental_level_of_education",
		"lunch",
		"test_preparation_course",
	}
}

// DefaultSchema returns the student-score schema.
func DefaultSchema() SchemaConfig {
	return SchemaConfig{
		Numerical:   DefaultNumerical(),
		Categorical: DefaultCategorical(),
		Target:      DefaultTarget,
	}
}

// DefaultPreprocessorPath is where the fitted preprocessor is written.
func DefaultPreprocessorPath() string {
	return filepath.Join(DefaultArtifactsDir, DefaultPreprocessorFile)
}

// ApplyDefaults fills unset fields of a ProjectConfig.
func ApplyDefaults(c *ProjectConfig) {
	if c == nil {
		return
	}
	if c.ArtifactsDir == "" {
		c.ArtifactsDir = DefaultArtifactsDir
	}
	if c.PreprocessorPath == "" {
		c.PreprocessorPath = filepath.Join(c.ArtifactsDir, DefaultPreprocessorFile)
	}
	if c.TrainPath == "" {
		c.TrainPath = filepath.Join(c.ArtifactsDir, DefaultTrainFile)
	}
	if c.TestPath == "" {
		c.TestPath = filepath.Join(c.ArtifactsDir, DefaultTestFile)
	}
	if c.HandleUnknown == "" {
		c.HandleUnknown = DefaultHandleUnknown
	}
	ApplySchemaDefaults(&c.Schema)
	if c.Source.Type == "" {
		c.Source.Type = DefaultSourceType
	}
}

// ApplySchemaDefaults fills the unset parts of a schema with the student-score columns.
func ApplySchemaDefaults(s *SchemaConfig) {
	if s == nil {
		return
	}
	if len(s.Numerical) == 0 {
		s.Numerical = DefaultNumerical()
	}
	if len(s.Categorical) == 0 {
		s.Categorical = DefaultCategorical()
	}
	if s.Target == "" {
		s.Target = DefaultTarget
	}
}
