package commands

import (
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/scoreprep/internal/artifact"
	"github.com/leapstack-labs/scoreprep/internal/cli/output"
	"github.com/leapstack-labs/scoreprep/internal/engine"
	"github.com/leapstack-labs/scoreprep/pkg/preprocess"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [artifact]",
		Short: "Show what a fitted preprocessor learned",
		Long: `Load a saved preprocessor and print, per branch and step, the statistics
learned during fit: imputation fill values, scaler means and scales, and the
categories of the one-hot encoder.

Defaults to preprocessor_path from the configuration.`,
		Example: `  # Inspect the default artifact
  scoreprep inspect

  # Inspect a specific file as JSON
  scoreprep inspect build/preprocessor.pkl -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			path := cmdCtx.Cfg.PreprocessorPath
			if len(args) > 0 {
				path = args[0]
			}
			return runInspect(cmdCtx.Renderer, path)
		},
	}
	return cmd
}

func runInspect(r *output.Renderer, path string) error {
	ct, err := engine.LoadPreprocessor(path)
	if err != nil {
		return err
	}
	sum, err := artifact.Checksum(path)
	if err != nil {
		return err
	}

	out := describePreprocessor(ct)
	out.Path = path
	out.Checksum = sum

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	default:
		renderInspect(r, out)
		return nil
	}
}

func describePreprocessor(ct *preprocess.ColumnTransformer) output.InspectOutput {
	out := output.InspectOutput{FeatureNames: ct.FeatureNames()}
	for _, b := range ct.Branches {
		bi := output.BranchInfo{Name: b.Name, Columns: b.Columns}
		for _, s := range b.Pipeline.Steps {
			si := output.StepInfo{Name: s.Name, Type: stepType(s.Step)}
			if d, ok := s.Step.(preprocess.Describer); ok {
				for _, st := range d.Stats() {
					si.Stats = append(si.Stats, output.StatInfo{Feature: st.Feature, Name: st.Name, Value: st.Value})
				}
			}
			bi.Steps = append(bi.Steps, si)
		}
		out.Branches = append(out.Branches, bi)
	}
	return out
}

func stepType(s preprocess.Step) string {
	t := reflect.TypeOf(s)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

func renderInspect(r *output.Renderer, out output.InspectOutput) {
	r.Header(1, "Preprocessor")
	r.KeyValue("Path", out.Path)
	r.KeyValue("Checksum", out.Checksum)
	r.KeyValue("Output features", fmt.Sprintf("%d", len(out.FeatureNames)))
	r.Println("")

	for _, b := range out.Branches {
		for _, s := range b.Steps {
			r.Header(2, fmt.Sprintf("%s / %s (%s)", b.Name, s.Name, s.Type))
			rows := make([][]string, len(s.Stats))
			for i, st := range s.Stats {
				rows[i] = []string{st.Feature, st.Name, st.Value}
			}
			r.Table([]string{"feature", "statistic", "value"}, rows)
			r.Println("")
		}
	}
}
