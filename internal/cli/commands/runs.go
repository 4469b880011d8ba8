package commands

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/scoreprep/internal/cli/output"
	"github.com/leapstack-labs/scoreprep/internal/state"
	"github.com/leapstack-labs/scoreprep/pkg/core"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent transformation runs",
		Long: `List the transformation runs recorded in the state database, newest first.

Each run records its inputs, row counts, the number of output features, the
saved preprocessor and its checksum, and the error of a failed run.`,
		Example: `  # Show the last 20 runs
  scoreprep runs

  # Show the last 5 runs as JSON
  scoreprep runs --limit 5 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			return runRuns(cmdCtx, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")

	return cmd
}

func runRuns(cmdCtx *CommandContext, limit int) error {
	r := cmdCtx.Renderer
	statePath := cmdCtx.Cfg.StatePath

	var runs []*core.Run
	if _, err := os.Stat(statePath); err == nil || statePath == ":memory:" {
		store := state.NewSQLiteStore(cmdCtx.Logger)
		if err := store.Open(statePath); err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		if err := store.InitSchema(); err != nil {
			return err
		}
		runs, err = store.ListRuns(limit)
		if err != nil {
			return err
		}
	}

	out := output.RunsOutput{Runs: make([]output.RunInfo, 0, len(runs))}
	for _, run := range runs {
		out.Runs = append(out.Runs, runInfo(run))
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	default:
		renderRuns(r, out)
		return nil
	}
}

func runInfo(run *core.Run) output.RunInfo {
	return output.RunInfo{
		ID:               run.ID,
		Environment:      run.Environment,
		Status:           string(run.Status),
		TrainPath:        run.TrainPath,
		TestPath:         run.TestPath,
		ArtifactPath:     run.ArtifactPath,
		ArtifactChecksum: run.ArtifactChecksum,
		TrainRows:        run.TrainRows,
		TestRows:         run.TestRows,
		FeatureCount:     run.FeatureCount,
		StartedAt:        run.StartedAt,
		CompletedAt:      run.CompletedAt,
		DurationMS:       run.Duration().Milliseconds(),
		Error:            run.Error,
	}
}

func renderRuns(r *output.Renderer, out output.RunsOutput) {
	r.Header(1, fmt.Sprintf("Runs (%d)", len(out.Runs)))
	if len(out.Runs) == 0 {
		r.Muted("No runs recorded yet. Use 'scoreprep transform' to create one.")
		return
	}

	rows := make([][]string, len(out.Runs))
	for i, run := range out.Runs {
		rows[i] = []string{
			shortID(run.ID),
			run.Environment,
			run.Status,
			run.StartedAt.Local().Format(time.DateTime),
			(time.Duration(run.DurationMS) * time.Millisecond).String(),
			strconv.Itoa(run.TrainRows),
			strconv.Itoa(run.TestRows),
			strconv.Itoa(run.FeatureCount),
			run.Error,
		}
	}
	r.Table([]string{"id", "env", "status", "started", "duration", "train", "test", "features", "error"}, rows)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
