package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/scoreprep/internal/config"
	"github.com/leapstack-labs/scoreprep/internal/testutil"
	"github.com/leapstack-labs/scoreprep/pkg/adapter"
	_ "github.com/leapstack-labs/scoreprep/pkg/adapters/csv"
	_ "github.com/leapstack-labs/scoreprep/pkg/adapters/duckdb"
	"github.com/leapstack-labs/scoreprep/pkg/core"
	"github.com/leapstack-labs/scoreprep/pkg/preprocess"
)

// Features of the default schema: 2 numerical + 2 genders + 5 groups +
// 6 education levels + 2 lunch + 2 course values.
const defaultWidth = 19

func newTestEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PreprocessorPath = filepath.Join(t.TempDir(), "artifacts", "preprocessor.pkl")
	cfg.Logger = testutil.NewTestLogger(t)
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		kind   core.ErrorKind
	}{
		{
			name:   "empty numerical columns",
			mutate: func(c *Config) { c.Schema.Numerical = nil },
			kind:   core.ErrBuild,
		},
		{
			name:   "duplicate column",
			mutate: func(c *Config) { c.Schema.Categorical = append(c.Schema.Categorical, "gender") },
			kind:   core.ErrBuild,
		},
		{
			name:   "bad unknown policy",
			mutate: func(c *Config) { c.HandleUnknown = "skip" },
			kind:   core.ErrBuild,
		},
		{
			name: "state path is a directory",
			mutate: func(c *Config) {
				c.StatePath = t.TempDir()
			},
			kind: core.ErrState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)
			require.Error(t, err)
			assert.Equal(t, tt.kind, core.KindOf(err))
		})
	}
}

func TestNew_CopiesConfig(t *testing.T) {
	cfg := DefaultConfig()
	e, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	cfg.Schema.Numerical[0] = "changed"
	assert.Equal(t, "writing_score", e.Config().Schema.Numerical[0])
	assert.Nil(t, e.Store())
}

func TestBuildTransformer(t *testing.T) {
	e := newTestEngine(t, nil)

	ct, err := e.BuildTransformer()
	require.NoError(t, err)
	assert.False(t, ct.Fitted)
	require.Len(t, ct.Branches, 2)

	num := ct.Branches[0]
	assert.Equal(t, NumericalBranch, num.Name)
	assert.Equal(t, config.DefaultNumerical(), num.Columns)
	imp, ok := num.Pipeline.Step(StepImputer)
	require.True(t, ok)
	assert.Equal(t, preprocess.StrategyMedian, imp.(*preprocess.SimpleImputer).Strategy)
	sc, ok := num.Pipeline.Step(StepScaler)
	require.True(t, ok)
	assert.True(t, sc.(*preprocess.StandardScaler).WithMean)

	cat := ct.Branches[1]
	assert.Equal(t, CategoricalBranch, cat.Name)
	assert.Equal(t, config.DefaultCategorical(), cat.Columns)
	require.Len(t, cat.Pipeline.Steps, 3)
	assert.Equal(t, StepImputer, cat.Pipeline.Steps[0].Name)
	assert.Equal(t, preprocess.StrategyMostFrequent, cat.Pipeline.Steps[0].Step.(*preprocess.SimpleImputer).Strategy)
	assert.Equal(t, StepEncoder, cat.Pipeline.Steps[1].Name)
	assert.Equal(t, preprocess.UnknownError, cat.Pipeline.Steps[1].Step.(*preprocess.OneHotEncoder).HandleUnknown)
	assert.Equal(t, StepScaler, cat.Pipeline.Steps[2].Name)
	assert.False(t, cat.Pipeline.Steps[2].Step.(*preprocess.StandardScaler).WithMean)

	// Each call returns a fresh, independent transformer.
	other, err := e.BuildTransformer()
	require.NoError(t, err)
	assert.NotSame(t, ct, other)
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	trainPath := testutil.WriteStudentCSV(t, dir, "train.csv", 100, 1)
	testPath := testutil.WriteStudentCSV(t, dir, "test.csv", 20, 2)

	e := newTestEngine(t, nil)
	res, err := e.Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)

	require.Len(t, res.Train, 100)
	require.Len(t, res.Test, 20)
	for _, row := range res.Train {
		assert.Len(t, row, defaultWidth+1)
	}
	for _, row := range res.Test {
		assert.Len(t, row, defaultWidth+1)
	}

	assert.Len(t, res.FeatureNames, defaultWidth)
	assert.Equal(t, "num_pipeline__writing_score", res.FeatureNames[0])
	assert.Equal(t, "num_pipeline__reading_score", res.FeatureNames[1])
	assert.Equal(t, "cat_pipeline__gender_female", res.FeatureNames[2])
	assert.Equal(t, "math_score", res.Columns()[defaultWidth])
	assert.Empty(t, res.RunID)

	// The target is carried through untransformed as the last column.
	rows := testutil.StudentRows(100, 1)
	assert.Equal(t, rows[0][5], formatTarget(res.Train[0][defaultWidth]))

	assert.Equal(t, e.Config().PreprocessorPath, res.ArtifactPath)
	assert.FileExists(t, res.ArtifactPath)
	assert.NotEmpty(t, res.ArtifactChecksum)
}

func TestRun_NoLeakage(t *testing.T) {
	dir := t.TempDir()
	trainPath := testutil.WriteStudentCSV(t, dir, "train.csv", 100, 1)

	// Two test sets with very different scores.
	low := testutil.StudentRows(20, 2)
	high := testutil.StudentRows(20, 2)
	for i := range high {
		high[i][6] = "1000"
		high[i][7] = "2000"
	}
	lowPath := testutil.WriteCSV(t, dir, "low.csv", testutil.Header, low)
	highPath := testutil.WriteCSV(t, dir, "high.csv", testutil.Header, high)

	e := newTestEngine(t, nil)
	a, err := e.Run(context.Background(), trainPath, lowPath)
	require.NoError(t, err)
	b, err := e.Run(context.Background(), trainPath, highPath)
	require.NoError(t, err)

	// Fitted state depends on train only.
	assert.Equal(t, a.ArtifactChecksum, b.ArtifactChecksum)
	assert.Equal(t, a.Train, b.Train)

	// Standardized train columns are centered; the shifted test set is not.
	var trainSum, testSum float64
	for i := range a.Train {
		trainSum += a.Train[i][0]
	}
	for i := range b.Test {
		testSum += b.Test[i][0]
	}
	assert.InDelta(t, 0, trainSum/float64(len(a.Train)), 1e-9)
	assert.Greater(t, testSum/float64(len(b.Test)), 10.0)
}

func TestRun_MedianImputationBeforeScaling(t *testing.T) {
	dir := t.TempDir()
	rows := [][]string{
		{"female", "group A", "high school", "standard", "none", "50", "10", "10"},
		{"male", "group B", "high school", "standard", "none", "60", "20", ""},
		{"female", "group A", "some college", "free/reduced", "completed", "70", "30", "30"},
		{"male", "group B", "some college", "standard", "none", "80", "40", "50"},
	}
	trainPath := testutil.WriteCSV(t, dir, "train.csv", testutil.Header, rows)
	testPath := testutil.WriteCSV(t, dir, "test.csv", testutil.Header, rows[1:2])

	e := newTestEngine(t, nil)
	res, err := e.Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)

	// writing_score: median of {10, 30, 50} is 30; imputed column {10, 30, 30, 50}
	// has mean 30, so the imputed row standardizes to exactly 0.
	assert.InDelta(t, 0, res.Train[1][0], 1e-12)
	assert.InDelta(t, 0, res.Test[0][0], 1e-12)
	assert.InDelta(t, -20/math.Sqrt(200), res.Train[0][0], 1e-9)
}

func TestRun_UnseenCategory(t *testing.T) {
	dir := t.TempDir()
	trainPath := testutil.WriteStudentCSV(t, dir, "train.csv", 30, 1)
	test := testutil.StudentRows(5, 2)
	test[3][0] = "nonbinary"
	testPath := testutil.WriteCSV(t, dir, "test.csv", testutil.Header, test)

	t.Run("error policy", func(t *testing.T) {
		e := newTestEngine(t, nil)
		res, err := e.Run(context.Background(), trainPath, testPath)
		require.Error(t, err)
		assert.Nil(t, res)
		assert.Equal(t, core.ErrTransform, core.KindOf(err))

		var unknown *preprocess.UnknownCategoryError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "gender", unknown.Feature)
		assert.Equal(t, "nonbinary", unknown.Category)
		assert.NoFileExists(t, e.Config().PreprocessorPath)
	})

	t.Run("ignore policy", func(t *testing.T) {
		e := newTestEngine(t, func(c *Config) { c.HandleUnknown = preprocess.UnknownIgnore })
		res, err := e.Run(context.Background(), trainPath, testPath)
		require.NoError(t, err)
		// Columns 2 and 3 are the gender indicators.
		assert.Equal(t, 0.0, res.Test[3][2])
		assert.Equal(t, 0.0, res.Test[3][3])
	})
}

func TestRun_ArtifactRoundTrip(t *testing.T) {
	dir := t.TempDir()
	trainPath := testutil.WriteStudentCSV(t, dir, "train.csv", 50, 1)
	testPath := testutil.WriteStudentCSV(t, dir, "test.csv", 12, 3)

	e := newTestEngine(t, nil)
	res, err := e.Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)

	ct, err := LoadPreprocessor(res.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, res.FeatureNames, ct.FeatureNames())

	tests := []struct {
		name string
		path string
		want [][]float64
	}{
		{name: "train features reproduce the train array", path: trainPath, want: res.Train},
		{name: "test features reproduce the test array", path: testPath, want: res.Test},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ct.Transform(readCSV(t, tt.path))
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range got {
				assert.InDeltaSlice(t, tt.want[i][:defaultWidth], got[i], 1e-12, "row %d", i)
			}
		})
	}
}

func TestRun_ExtraColumnsDropped(t *testing.T) {
	dir := t.TempDir()
	header := append([]string{"student_id"}, testutil.Header...)
	withID := func(rows [][]string) [][]string {
		out := make([][]string, len(rows))
		for i, r := range rows {
			out[i] = append([]string{strconv.Itoa(1000 + i)}, r...)
		}
		return out
	}
	trainPath := testutil.WriteCSV(t, dir, "train.csv", header, withID(testutil.StudentRows(30, 1)))
	testPath := testutil.WriteCSV(t, dir, "test.csv", header, withID(testutil.StudentRows(6, 2)))

	e := newTestEngine(t, nil)
	res, err := e.Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)

	assert.Len(t, res.FeatureNames, defaultWidth)
	for _, name := range res.FeatureNames {
		assert.NotContains(t, name, "student_id")
		assert.NotContains(t, name, "math_score")
	}
	assert.Len(t, res.Test[0], defaultWidth+1)
}

func TestRun_LogsFailureKind(t *testing.T) {
	dir := t.TempDir()
	testPath := testutil.WriteStudentCSV(t, dir, "test.csv", 5, 2)

	logger, logs := testutil.NewBufferLogger(slog.LevelInfo)
	e := newTestEngine(t, func(c *Config) { c.Logger = logger })
	_, err := e.Run(context.Background(), filepath.Join(dir, "nope.csv"), testPath)
	require.Error(t, err)

	out := logs.String()
	assert.Contains(t, out, `"msg":"transformation failed"`)
	assert.Contains(t, out, `"kind":"load"`)
	assert.NotContains(t, out, `"msg":"transformation completed"`)
}

// readCSV loads path through the csv source adapter.
func readCSV(t *testing.T, path string) *core.Table {
	t.Helper()
	cfg := adapter.Config{Type: "csv"}
	src, err := adapter.NewAdapter(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, src.Connect(context.Background(), cfg))
	t.Cleanup(func() { _ = src.Close() })
	tbl, err := src.ReadTable(context.Background(), "input", path)
	require.NoError(t, err)
	return tbl
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	trainPath := testutil.WriteStudentCSV(t, dir, "train.csv", 20, 1)
	testPath := testutil.WriteStudentCSV(t, dir, "test.csv", 5, 2)

	noLunch := testutil.StudentRows(5, 2)
	header := append([]string(nil), testutil.Header...)
	header[3] = "meal"
	noLunchPath := testutil.WriteCSV(t, dir, "no_lunch.csv", header, noLunch)

	badTarget := testutil.StudentRows(5, 2)
	badTarget[2][5] = "ninety"
	badTargetPath := testutil.WriteCSV(t, dir, "bad_target.csv", testutil.Header, badTarget)

	tests := []struct {
		name  string
		train string
		test  string
		kind  core.ErrorKind
		op    string
	}{
		{name: "missing train file", train: filepath.Join(dir, "nope.csv"), test: testPath, kind: core.ErrLoad, op: "read train"},
		{name: "missing test file", train: trainPath, test: filepath.Join(dir, "nope.csv"), kind: core.ErrLoad, op: "read test"},
		{name: "missing column in train", train: noLunchPath, test: testPath, kind: core.ErrSchema, op: "split train"},
		{name: "missing column in test", train: trainPath, test: noLunchPath, kind: core.ErrSchema, op: "split test"},
		{name: "non-numeric target", train: trainPath, test: badTargetPath, kind: core.ErrSchema, op: "split test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, nil)
			_, err := e.Run(context.Background(), tt.train, tt.test)
			require.Error(t, err)

			var ce *core.Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Equal(t, tt.op, ce.Op)
		})
	}

	t.Run("missing column is reported by name", func(t *testing.T) {
		e := newTestEngine(t, nil)
		_, err := e.Run(context.Background(), noLunchPath, testPath)
		var missing *core.MissingColumnsError
		require.ErrorAs(t, err, &missing)
		assert.Contains(t, missing.Columns, "lunch")
	})

	t.Run("unknown source type", func(t *testing.T) {
		e := newTestEngine(t, func(c *Config) { c.Source.Type = "parquet" })
		_, err := e.Run(context.Background(), trainPath, testPath)
		require.Error(t, err)
		assert.Equal(t, core.ErrLoad, core.KindOf(err))
		var unknown *adapter.UnknownAdapterError
		assert.ErrorAs(t, err, &unknown)
	})
}

func TestRun_PersistFailure(t *testing.T) {
	dir := t.TempDir()
	trainPath := testutil.WriteStudentCSV(t, dir, "train.csv", 20, 1)
	testPath := testutil.WriteStudentCSV(t, dir, "test.csv", 5, 2)

	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	e := newTestEngine(t, func(c *Config) {
		c.PreprocessorPath = filepath.Join(blocker, "preprocessor.pkl")
		c.StatePath = ":memory:"
	})

	res, err := e.Run(context.Background(), trainPath, testPath)
	require.Error(t, err)
	assert.Equal(t, core.ErrPersist, core.KindOf(err))

	// Arrays are still returned for inspection.
	require.NotNil(t, res)
	assert.Len(t, res.Train, 20)
	assert.Len(t, res.Test, 5)
	assert.Empty(t, res.ArtifactPath)
	require.NotEmpty(t, res.RunID)

	run, err := e.Store().GetRun(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, core.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "persist failed")
	assert.Equal(t, 20, run.TrainRows)
	assert.Empty(t, run.ArtifactPath)
}

func TestRun_RecordsHistory(t *testing.T) {
	dir := t.TempDir()
	trainPath := testutil.WriteStudentCSV(t, dir, "train.csv", 40, 1)
	testPath := testutil.WriteStudentCSV(t, dir, "test.csv", 10, 2)

	e := newTestEngine(t, func(c *Config) {
		c.StatePath = filepath.Join(dir, ".scoreprep", "state.db")
		c.Environment = "staging"
	})

	res, err := e.Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	run, err := e.Store().GetLatestRun("staging")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, res.RunID, run.ID)
	assert.Equal(t, core.RunStatusCompleted, run.Status)
	assert.Equal(t, trainPath, run.TrainPath)
	assert.Equal(t, testPath, run.TestPath)
	assert.Equal(t, 40, run.TrainRows)
	assert.Equal(t, 10, run.TestRows)
	assert.Equal(t, defaultWidth, run.FeatureCount)
	assert.Equal(t, res.ArtifactChecksum, run.ArtifactChecksum)
	assert.Empty(t, run.Error)
}

func TestRun_DuckDBSource(t *testing.T) {
	dir := t.TempDir()
	trainPath := testutil.WriteStudentCSV(t, dir, "train.csv", 100, 1)
	testPath := testutil.WriteStudentCSV(t, dir, "test.csv", 20, 2)

	csvEngine := newTestEngine(t, nil)
	want, err := csvEngine.Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)

	duck := newTestEngine(t, func(c *Config) { c.Source = adapter.Config{Type: "duckdb"} })
	got, err := duck.Run(context.Background(), trainPath, testPath)
	require.NoError(t, err)

	assert.Equal(t, want.FeatureNames, got.FeatureNames)
	require.Len(t, got.Train, len(want.Train))
	for i := range want.Train {
		assert.InDeltaSlice(t, want.Train[i], got.Train[i], 1e-9)
	}
}

func TestLoadPreprocessor_Errors(t *testing.T) {
	_, err := LoadPreprocessor(filepath.Join(t.TempDir(), "missing.pkl"))
	require.Error(t, err)
	assert.Equal(t, core.ErrLoad, core.KindOf(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func formatTarget(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
