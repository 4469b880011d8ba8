// Package engine builds, fits and applies the score preprocessor.
// It reads the train and test datasets through a source adapter, fits the
// column transformer on train only, and persists the fitted transformer.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/scoreprep/internal/config"
	"github.com/leapstack-labs/scoreprep/internal/state"
	"github.com/leapstack-labs/scoreprep/pkg/adapter"
	"github.com/leapstack-labs/scoreprep/pkg/core"
	"github.com/leapstack-labs/scoreprep/pkg/preprocess"
)

// Config holds engine configuration. It is copied by New and never mutated
// afterwards.
type Config struct {
	// PreprocessorPath is where the fitted preprocessor is written
	PreprocessorPath string
	// Schema names the numerical, categorical and target columns
	Schema config.SchemaConfig
	// Source configures the adapter that reads the input files
	Source adapter.Config
	// HandleUnknown is the encoder policy for categories unseen during fit
	HandleUnknown preprocess.UnknownPolicy
	// StatePath is the SQLite run history database (empty disables history)
	StatePath string
	// Environment labels recorded runs (dev, staging, prod)
	Environment string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// DefaultConfig returns the configuration for the student-score dataset.
func DefaultConfig() Config {
	return Config{
		PreprocessorPath: config.DefaultPreprocessorPath(),
		Schema:           config.DefaultSchema(),
		Source:           adapter.Config{Type: adapter.DefaultType},
		HandleUnknown:    preprocess.UnknownError,
		Environment:      "dev",
	}
}

// Engine orchestrates a transformation run.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	store  core.Store
}

// New validates cfg and creates an engine. When cfg.StatePath is set the run
// history store is opened and migrated.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cfg.Schema = cfg.Schema.Clone()
	if cfg.PreprocessorPath == "" {
		cfg.PreprocessorPath = config.DefaultPreprocessorPath()
	}
	if cfg.Source.Type == "" {
		cfg.Source.Type = adapter.DefaultType
	}
	if cfg.HandleUnknown == "" {
		cfg.HandleUnknown = preprocess.UnknownError
	}
	if cfg.Environment == "" {
		cfg.Environment = "dev"
	}

	if err := cfg.Schema.Validate(); err != nil {
		return nil, core.Wrap(core.ErrBuild, "validate schema", err)
	}
	if err := config.ValidateHandleUnknown(string(cfg.HandleUnknown)); err != nil {
		return nil, core.Wrap(core.ErrBuild, "validate config", err)
	}

	logger.Debug("initializing engine",
		"preprocessor_path", cfg.PreprocessorPath,
		"source", cfg.Source.Type,
		"environment", cfg.Environment,
	)

	e := &Engine{cfg: cfg, logger: logger}

	if cfg.StatePath != "" {
		store := state.NewSQLiteStore(logger)
		if err := store.Open(cfg.StatePath); err != nil {
			return nil, core.Wrap(core.ErrState, "open state store", err)
		}
		if err := store.InitSchema(); err != nil {
			_ = store.Close()
			return nil, core.Wrap(core.ErrState, "initialize state store", err)
		}
		e.store = store
	}

	return e, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.Schema = cfg.Schema.Clone()
	return cfg
}

// Store returns the run history store, or nil when history is disabled.
func (e *Engine) Store() core.Store {
	return e.store
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close state store: %w", err))
		}
		e.store = nil
	}
	return errors.Join(errs...)
}
