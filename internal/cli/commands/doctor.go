package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/scoreprep/internal/artifact"
	"github.com/leapstack-labs/scoreprep/internal/cli/config"
	"github.com/leapstack-labs/scoreprep/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/scoreprep/internal/config"
	"github.com/leapstack-labs/scoreprep/internal/engine"
	"github.com/leapstack-labs/scoreprep/internal/state"
	"github.com/leapstack-labs/scoreprep/pkg/adapter"
)

// Check statuses.
const (
	StatusPass  = "pass"
	StatusWarn  = "warn"
	StatusError = "error"
)

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	ConfigFile string        `json:"config_file,omitempty"`
	Checks     []HealthCheck `json:"checks"`
	Errors     int           `json:"errors"`
	Warnings   int           `json:"warnings"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "pass", "warn", "error"
	Message string `json:"message"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the project is ready to transform",
		Long: `Check the scoreprep project for problems before running a transformation.

The doctor command verifies that:
- scoreprep.yaml parses and its schema is valid
- the train and test files can be read by the configured source
- both files contain every configured column and a numeric target
- the saved preprocessor (if any) loads and matches the configured schema
- the state database can be opened (it is never created by this check)`,
		Example: `  # Run health check
  scoreprep doctor

  # Output as JSON
  scoreprep doctor -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			return runDoctor(cmd.Context(), cmdCtx)
		},
	}
	return cmd
}

func runDoctor(ctx context.Context, cmdCtx *CommandContext) error {
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	out := DoctorOutput{ConfigFile: config.GetConfigFileUsed()}
	out.Checks = append(out.Checks, checkConfig(cfg))
	out.Checks = append(out.Checks, checkInputs(ctx, cmdCtx)...)
	out.Checks = append(out.Checks, checkArtifact(cfg), checkState(cmdCtx))
	for _, c := range out.Checks {
		switch c.Status {
		case StatusError:
			out.Errors++
		case StatusWarn:
			out.Warnings++
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(out); err != nil {
			return err
		}
	} else {
		renderDoctor(r, out)
	}

	if out.Errors > 0 {
		return fmt.Errorf("%d check(s) failed", out.Errors)
	}
	return nil
}

func checkInputs(ctx context.Context, cmdCtx *CommandContext) []HealthCheck {
	cfg := cmdCtx.Cfg
	src, err := adapter.NewAdapter(cfg.Source.AdapterConfig(), cmdCtx.Logger)
	if err == nil {
		err = src.Connect(ctx, cfg.Source.AdapterConfig())
	}
	if err != nil {
		return []HealthCheck{{Name: "source", Status: StatusError, Message: err.Error()}}
	}
	defer func() { _ = src.Close() }()

	required := slices.Concat(cfg.Schema.Numerical, cfg.Schema.Categorical, []string{cfg.Schema.Target})
	checks := []HealthCheck{{Name: "source", Status: StatusPass, Message: cfg.Source.Type}}
	for _, in := range []struct{ name, path string }{{"train", cfg.TrainPath}, {"test", cfg.TestPath}} {
		t, err := src.ReadTable(ctx, in.name, in.path)
		if err != nil {
			checks = append(checks, HealthCheck{Name: in.name, Status: StatusError, Message: err.Error()})
			continue
		}
		if _, err := t.Select(required...); err != nil {
			checks = append(checks, HealthCheck{Name: in.name, Status: StatusError, Message: err.Error()})
			continue
		}
		target, _ := t.Column(cfg.Schema.Target)
		if _, err := target.AsFloats(); err != nil {
			checks = append(checks, HealthCheck{Name: in.name, Status: StatusError, Message: "target: " + err.Error()})
			continue
		}
		msg := fmt.Sprintf("%s (%d rows)", in.path, t.NumRows())
		checks = append(checks, HealthCheck{Name: in.name, Status: StatusPass, Message: msg})
	}
	return checks
}

func checkArtifact(cfg *config.Config) HealthCheck {
	name := "preprocessor"
	ct, err := engine.LoadPreprocessor(cfg.PreprocessorPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return HealthCheck{Name: name, Status: StatusWarn, Message: "not fitted yet: run 'scoreprep transform'"}
		}
		return HealthCheck{Name: name, Status: StatusError, Message: err.Error()}
	}
	want := slices.Concat(cfg.Schema.Numerical, cfg.Schema.Categorical)
	if !slices.Equal(ct.InputColumns(), want) {
		return HealthCheck{Name: name, Status: StatusWarn, Message: "fitted on different columns than the configured schema"}
	}
	sum, err := artifact.Checksum(cfg.PreprocessorPath)
	if err != nil {
		return HealthCheck{Name: name, Status: StatusError, Message: err.Error()}
	}
	return HealthCheck{Name: name, Status: StatusPass, Message: fmt.Sprintf("%d features, checksum %s", ct.Width(), sum)}
}

func checkConfig(cfg *config.Config) HealthCheck {
	name := "config"
	project, err := sharedcfg.LoadFromDir(cfg.ProjectRoot)
	if err != nil {
		return HealthCheck{Name: name, Status: StatusError, Message: err.Error()}
	}
	if project == nil {
		if used := config.GetConfigFileUsed(); used != "" {
			return HealthCheck{Name: name, Status: StatusPass, Message: used}
		}
		return HealthCheck{Name: name, Status: StatusWarn, Message: "no scoreprep.yaml found, using defaults: run 'scoreprep init'"}
	}
	if err := project.Schema.Validate(); err != nil {
		return HealthCheck{Name: name, Status: StatusError, Message: err.Error()}
	}
	return HealthCheck{Name: name, Status: StatusPass, Message: sharedcfg.FindConfigFile(cfg.ProjectRoot)}
}

// checkState inspects the run history without creating it.
func checkState(cmdCtx *CommandContext) HealthCheck {
	name := "state"
	statePath := cmdCtx.Cfg.StatePath
	if statePath == "" {
		return HealthCheck{Name: name, Status: StatusPass, Message: "history disabled"}
	}
	if statePath != ":memory:" {
		if _, err := os.Stat(statePath); errors.Is(err, os.ErrNotExist) {
			return HealthCheck{Name: name, Status: StatusWarn, Message: "no state database yet: run 'scoreprep transform'"}
		}
	}

	store := state.NewSQLiteStore(cmdCtx.Logger)
	if err := store.Open(statePath); err != nil {
		return HealthCheck{Name: name, Status: StatusError, Message: err.Error()}
	}
	defer func() { _ = store.Close() }()
	if err := store.InitSchema(); err != nil {
		return HealthCheck{Name: name, Status: StatusError, Message: err.Error()}
	}

	latest, err := store.GetLatestRun(cmdCtx.Cfg.Environment)
	switch {
	case err != nil:
		return HealthCheck{Name: name, Status: StatusError, Message: err.Error()}
	case latest == nil:
		return HealthCheck{Name: name, Status: StatusPass, Message: "no runs recorded"}
	default:
		return HealthCheck{Name: name, Status: StatusPass, Message: fmt.Sprintf("last run %s: %s", shortID(latest.ID), latest.Status)}
	}
}

func renderDoctor(r *output.Renderer, out DoctorOutput) {
	r.Header(1, "Project health")
	if out.ConfigFile != "" {
		r.KeyValue("Config", out.ConfigFile)
	} else {
		r.KeyValue("Config", "defaults (no scoreprep.yaml found)")
	}
	r.Println("")

	styles := r.Styles()
	rows := make([][]string, len(out.Checks))
	for i, c := range out.Checks {
		status := c.Status
		switch c.Status {
		case StatusPass:
			status = styles.Success.Render(c.Status)
		case StatusWarn:
			status = styles.Warning.Render(c.Status)
		case StatusError:
			status = styles.Error.Render(c.Status)
		}
		rows[i] = []string{c.Name, status, c.Message}
	}
	r.Table([]string{"check", "status", "details"}, rows)
	r.Printf("\n%d error(s), %d warning(s)\n", out.Errors, out.Warnings)
}
