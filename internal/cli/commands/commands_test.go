package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/scoreprep/internal/cli/config"
	"github.com/leapstack-labs/scoreprep/internal/cli/output"
	clitestutil "github.com/leapstack-labs/scoreprep/internal/cli/testutil"

	_ "github.com/leapstack-labs/scoreprep/pkg/adapters/csv"
	_ "github.com/leapstack-labs/scoreprep/pkg/adapters/duckdb"
)

// featureWidth is the number of encoded features of the default schema.
const featureWidth = 19

// setupProject creates a test project, makes it the working directory and
// resets the loaded configuration around the test.
func setupProject(t *testing.T) string {
	t.Helper()
	dir := clitestutil.SetupTestProject(t)
	clitestutil.Chdir(t, dir)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	return dir
}

// execute runs cmd with args and returns its stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewTransformCommand(t *testing.T) {
	cmd := NewTransformCommand()

	assert.Equal(t, "transform", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flags := []string{"train", "test", "arrays-dir", "json"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewInspectCommand(t *testing.T) {
	cmd := NewInspectCommand()

	assert.Equal(t, "inspect [artifact]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
}

func TestNewRunsCommand(t *testing.T) {
	cmd := NewRunsCommand()

	assert.Equal(t, "runs", cmd.Use)
	flag := cmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "20", flag.DefValue)
}

func TestNewDoctorCommand(t *testing.T) {
	cmd := NewDoctorCommand()

	assert.Equal(t, "doctor", cmd.Use)
	assert.NotEmpty(t, cmd.Long, "Long should not be empty")
}

func TestTransformCommand(t *testing.T) {
	dir := setupProject(t)

	out, err := execute(t, NewTransformCommand())
	require.NoError(t, err)

	clitestutil.AssertContains(t, out, "# Transformation complete")
	clitestutil.AssertContains(t, out, "- **Train array**: 40 x 20")
	clitestutil.AssertContains(t, out, "- **Test array**: 10 x 20")
	clitestutil.AssertContains(t, out, "num_pipeline__writing_score")
	clitestutil.AssertNoANSI(t, out)
	clitestutil.AssertValidMarkdown(t, out)

	assert.FileExists(t, filepath.Join(dir, "artifacts", "preprocessor.pkl"))
	assert.FileExists(t, filepath.Join(dir, ".scoreprep", "state.db"))
}

func TestTransformCommand_JSON(t *testing.T) {
	setupProject(t)

	out, err := execute(t, NewTransformCommand(), "--json")
	require.NoError(t, err)

	var got output.TransformOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, [2]int{clitestutil.TrainRows, featureWidth + 1}, got.TrainShape)
	assert.Equal(t, [2]int{clitestutil.TestRows, featureWidth + 1}, got.TestShape)
	assert.Equal(t, "math_score", got.Target)
	assert.Equal(t, "math_score", got.Columns[len(got.Columns)-1])
	assert.NotEmpty(t, got.RunID)
	assert.Len(t, got.ArtifactChecksum, 32)
	assert.Positive(t, got.ArtifactSize)
}

func TestTransformCommand_ArraysDir(t *testing.T) {
	dir := setupProject(t)
	arraysDir := filepath.Join(dir, "out")

	_, err := execute(t, NewTransformCommand(), "--arrays-dir", arraysDir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(arraysDir, TrainArrayFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, clitestutil.TrainRows+1)
	header := strings.Split(lines[0], ",")
	assert.Len(t, header, featureWidth+1)
	assert.Equal(t, "math_score", header[len(header)-1])

	data, err = os.ReadFile(filepath.Join(arraysDir, TestArrayFile))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), clitestutil.TestRows+1)
}

func TestTransformCommand_MissingInput(t *testing.T) {
	setupProject(t)

	_, err := execute(t, NewTransformCommand(), "--train", "missing.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read train")
}

func TestInspectCommand(t *testing.T) {
	setupProject(t)

	_, err := execute(t, NewTransformCommand())
	require.NoError(t, err)

	out, err := execute(t, NewInspectCommand())
	require.NoError(t, err)
	clitestutil.AssertContains(t, out, "# Preprocessor")
	clitestutil.AssertContains(t, out, "num_pipeline / imputer (SimpleImputer)")
	clitestutil.AssertContains(t, out, "cat_pipeline / onehotencoder (OneHotEncoder)")
	clitestutil.AssertContains(t, out, "- **Output features**: 19")
}

func TestInspectCommand_JSON(t *testing.T) {
	setupProject(t)

	_, err := execute(t, NewTransformCommand())
	require.NoError(t, err)

	tr := clitestutil.NewTestRendererJSON()
	require.NoError(t, runInspect(tr.Renderer, filepath.Join("artifacts", "preprocessor.pkl")))

	var got output.InspectOutput
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	assert.Len(t, got.FeatureNames, featureWidth)
	require.Len(t, got.Branches, 2)
	assert.Equal(t, "num_pipeline", got.Branches[0].Name)
	assert.Equal(t, []string{"writing_score", "reading_score"}, got.Branches[0].Columns)
	require.Len(t, got.Branches[0].Steps, 2)
	assert.Equal(t, "StandardScaler", got.Branches[0].Steps[1].Type)
	assert.Len(t, got.Branches[1].Steps, 3)
}

func TestInspectCommand_MissingArtifact(t *testing.T) {
	setupProject(t)

	_, err := execute(t, NewInspectCommand(), "nope.pkl")
	require.Error(t, err)
}

func TestRunsCommand(t *testing.T) {
	setupProject(t)

	out, err := execute(t, NewRunsCommand())
	require.NoError(t, err)
	clitestutil.AssertContains(t, out, "No runs recorded yet")

	_, err = execute(t, NewTransformCommand())
	require.NoError(t, err)
	_, err = execute(t, NewTransformCommand(), "--train", "missing.csv")
	require.Error(t, err)

	tr := clitestutil.NewTestRendererJSON()
	require.NoError(t, runRuns(&CommandContext{Cfg: getConfig(), Logger: nil, Renderer: tr.Renderer}, 0))

	var got output.RunsOutput
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	require.Len(t, got.Runs, 2)
	assert.Equal(t, "failed", got.Runs[0].Status)
	assert.NotEmpty(t, got.Runs[0].Error)
	assert.Equal(t, "completed", got.Runs[1].Status)
	assert.Equal(t, clitestutil.TrainRows, got.Runs[1].TrainRows)
	assert.Equal(t, featureWidth, got.Runs[1].FeatureCount)
}

func TestDoctorCommand(t *testing.T) {
	dir := setupProject(t)

	out, err := execute(t, NewDoctorCommand())
	require.NoError(t, err)
	clitestutil.AssertContains(t, out, "# Project health")
	clitestutil.AssertContains(t, out, "not fitted yet")
	clitestutil.AssertContains(t, out, "no state database yet")
	clitestutil.AssertContains(t, out, "0 error(s), 2 warning(s)")
	assert.NoFileExists(t, filepath.Join(dir, ".scoreprep", "state.db"), "doctor must not create the state database")
	assert.NoDirExists(t, filepath.Join(dir, ".scoreprep"))

	_, err = execute(t, NewTransformCommand())
	require.NoError(t, err)

	out, err = execute(t, NewDoctorCommand())
	require.NoError(t, err)
	clitestutil.AssertContains(t, out, "0 error(s), 0 warning(s)")
	clitestutil.AssertContains(t, out, "last run")
}

func TestDoctorCommand_Config(t *testing.T) {
	t.Run("no config file warns", func(t *testing.T) {
		clitestutil.Chdir(t, t.TempDir())
		config.ResetConfig()
		t.Cleanup(config.ResetConfig)

		check := checkConfig(getConfig())
		assert.Equal(t, StatusWarn, check.Status)
		assert.Contains(t, check.Message, "scoreprep init")
	})

	t.Run("project config passes", func(t *testing.T) {
		dir := setupProject(t)

		check := checkConfig(getConfig())
		assert.Equal(t, StatusPass, check.Status)
		assert.Equal(t, filepath.Join(dir, "scoreprep.yaml"), check.Message)
	})

	t.Run("overlapping schema is an error", func(t *testing.T) {
		dir := setupProject(t)
		cfg := getConfig()
		bad := "schema:\n  numerical: [lunch]\n  categorical: [lunch]\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "scoreprep.yaml"), []byte(bad), 0o600))

		check := checkConfig(cfg)
		assert.Equal(t, StatusError, check.Status)
		assert.Contains(t, check.Message, "lunch")
	})
}

func TestDoctorCommand_MissingColumn(t *testing.T) {
	dir := setupProject(t)
	csv := "gender,math_score\nfemale,70\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "artifacts", "test.csv"), []byte(csv), 0o600))

	tr := clitestutil.NewTestRendererJSON()
	err := runDoctor(t.Context(), &CommandContext{Cfg: getConfig(), Renderer: tr.Renderer})
	require.Error(t, err)

	var got DoctorOutput
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	assert.Equal(t, 1, got.Errors)
	var failed []string
	for _, c := range got.Checks {
		if c.Status == StatusError {
			failed = append(failed, c.Name)
		}
	}
	assert.Equal(t, []string{"test"}, failed)
}
