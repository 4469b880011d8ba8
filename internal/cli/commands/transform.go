package commands

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/scoreprep/internal/cli/output"
	"github.com/leapstack-labs/scoreprep/internal/engine"
)

// Array file names written by --arrays-dir.
const (
	TrainArrayFile = "train_array.csv"
	TestArrayFile  = "test_array.csv"
)

// TransformOptions holds options for the transform command.
type TransformOptions struct {
	TrainPath  string
	TestPath   string
	ArraysDir  string
	JSONOutput bool
}

// NewTransformCommand creates the transform command.
func NewTransformCommand() *cobra.Command {
	opts := &TransformOptions{}

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Fit the preprocessor on train data and transform train and test",
		Long: `Fit the preprocessing pipeline on the train dataset and apply it to both
the train and test datasets.

Numerical columns are median-imputed and standardized. Categorical columns are
imputed with their most frequent value, one-hot encoded and scaled. Statistics
are learned from the train dataset only. The target column is appended
unchanged as the last column of each array.

The fitted preprocessor is saved to preprocessor_path (default
artifacts/preprocessor.pkl) for reuse at inference time.`,
		Example: `  # Transform the default artifacts/train.csv and artifacts/test.csv
  scoreprep transform

  # Transform explicit files and write the arrays as CSV
  scoreprep transform --train data/train.csv --test data/test.csv --arrays-dir out

  # Read through DuckDB and emit JSON for scripts
  scoreprep transform --source duckdb --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransform(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.TrainPath, "train", "", "Path to the train CSV (default: train_path from config)")
	cmd.Flags().StringVar(&opts.TestPath, "test", "", "Path to the test CSV (default: test_path from config)")
	cmd.Flags().StringVar(&opts.ArraysDir, "arrays-dir", "", "Write the transformed arrays as CSV files to this directory")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output as JSON (same as -o json)")

	return cmd
}

func runTransform(cmd *cobra.Command, opts *TransformOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	if opts.JSONOutput {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeJSON)
	}

	trainPath := opts.TrainPath
	if trainPath == "" {
		trainPath = cfg.TrainPath
	}
	testPath := opts.TestPath
	if testPath == "" {
		testPath = cfg.TestPath
	}

	eng, err := createEngine(cfg, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	res, err := eng.Run(cmd.Context(), trainPath, testPath)
	if err != nil {
		return err
	}

	out := output.TransformOutput{
		RunID:            res.RunID,
		TrainShape:       shapeOf(res.Train, len(res.Columns())),
		TestShape:        shapeOf(res.Test, len(res.Columns())),
		Columns:          res.Columns(),
		Target:           res.Target,
		ArtifactPath:     res.ArtifactPath,
		ArtifactChecksum: res.ArtifactChecksum,
		ArtifactSize:     res.ArtifactSize,
	}

	if opts.ArraysDir != "" {
		out.TrainArrayPath, out.TestArrayPath, err = writeArrays(opts.ArraysDir, res)
		if err != nil {
			return err
		}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	default:
		renderTransform(r, out)
		return nil
	}
}

func renderTransform(r *output.Renderer, out output.TransformOutput) {
	r.Header(1, "Transformation complete")
	if out.RunID != "" {
		r.KeyValue("Run", out.RunID)
	}
	r.KeyValue("Train array", fmt.Sprintf("%d x %d", out.TrainShape[0], out.TrainShape[1]))
	r.KeyValue("Test array", fmt.Sprintf("%d x %d", out.TestShape[0], out.TestShape[1]))
	r.KeyValue("Target", out.Target+" (last column)")
	r.KeyValue("Preprocessor", out.ArtifactPath)
	r.KeyValue("Checksum", out.ArtifactChecksum)
	if out.TrainArrayPath != "" {
		r.KeyValue("Train CSV", out.TrainArrayPath)
		r.KeyValue("Test CSV", out.TestArrayPath)
	}
	r.Println("")

	r.Header(2, "Columns")
	rows := make([][]string, len(out.Columns))
	for i, c := range out.Columns {
		rows[i] = []string{strconv.Itoa(i), c}
	}
	r.Table([]string{"#", "column"}, rows)
}

// writeArrays writes the train and test arrays with a header row.
func writeArrays(dir string, res *engine.Result) (string, string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", "", fmt.Errorf("failed to create arrays directory: %w", err)
	}
	trainPath := filepath.Join(dir, TrainArrayFile)
	if err := writeArrayCSV(trainPath, res.Columns(), res.Train); err != nil {
		return "", "", err
	}
	testPath := filepath.Join(dir, TestArrayFile)
	if err := writeArrayCSV(testPath, res.Columns(), res.Test); err != nil {
		return "", "", err
	}
	return trainPath, testPath, nil
}

func writeArrayCSV(path string, header []string, rows [][]float64) (err error) {
	f, err := os.Create(path) //nolint:gosec // path is user-provided
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record[:len(row)]); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func shapeOf(m [][]float64, cols int) [2]int {
	return [2]int{len(m), cols}
}
