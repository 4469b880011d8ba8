package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/leapstack-labs/scoreprep/internal/artifact"
	"github.com/leapstack-labs/scoreprep/pkg/adapter"
	"github.com/leapstack-labs/scoreprep/pkg/core"
	"github.com/leapstack-labs/scoreprep/pkg/preprocess"
)

// Result is the output of a transformation run.
type Result struct {
	// Train and Test are row-major: transformed features, then the target.
	Train [][]float64
	Test  [][]float64

	// ArtifactPath is empty when the preprocessor could not be saved.
	ArtifactPath     string
	ArtifactChecksum string
	ArtifactSize     int64

	// FeatureNames names the feature columns of Train and Test, without the target.
	FeatureNames []string
	Target       string

	// RunID is empty when run history is disabled.
	RunID string
}

// Columns returns the names of every column of Train and Test.
func (r *Result) Columns() []string {
	return append(slices.Clone(r.FeatureNames), r.Target)
}

// Run fits the preprocessor on the train dataset, applies it to both
// datasets, appends the target, and saves the fitted preprocessor.
//
// Every failure is a *core.Error. When only saving fails, the returned
// Result still carries the arrays and an empty ArtifactPath.
func (e *Engine) Run(ctx context.Context, trainPath, testPath string) (*Result, error) {
	e.logger.Info("starting transformation", "train", trainPath, "test", testPath)

	var runID string
	if e.store != nil {
		run, err := e.store.CreateRun(e.cfg.Environment, core.RunInputs{TrainPath: trainPath, TestPath: testPath})
		if err != nil {
			return nil, core.Wrap(core.ErrState, "create run", err)
		}
		runID = run.ID
		e.logger.Debug("created run", "run_id", runID)
	}

	res, out, err := e.transform(ctx, trainPath, testPath)
	if res != nil {
		res.RunID = runID
	}

	if runID != "" {
		status, msg := core.RunStatusCompleted, ""
		if err != nil {
			status, msg = core.RunStatusFailed, err.Error()
		}
		if cerr := e.store.CompleteRun(runID, status, out, msg); cerr != nil {
			e.logger.Warn("failed to record run completion", "run_id", runID, "error", cerr)
		}
	}

	if err != nil {
		e.logger.Error("transformation failed", "run_id", runID, "kind", core.KindOf(err), "error", err)
		return res, err
	}

	e.logger.Info("transformation completed",
		"run_id", runID,
		"train_shape", shape(res.Train),
		"test_shape", shape(res.Test),
		"artifact", res.ArtifactPath,
	)
	return res, nil
}

func (e *Engine) transform(ctx context.Context, trainPath, testPath string) (*Result, core.RunOutputs, error) {
	var out core.RunOutputs

	src, err := e.openSource(ctx)
	if err != nil {
		return nil, out, err
	}
	defer func() { _ = src.Close() }()

	train, err := src.ReadTable(ctx, "train", trainPath)
	if err != nil {
		return nil, out, core.Wrap(core.ErrLoad, "read train", err)
	}
	test, err := src.ReadTable(ctx, "test", testPath)
	if err != nil {
		return nil, out, core.Wrap(core.ErrLoad, "read test", err)
	}
	out.TrainRows, out.TestRows = train.NumRows(), test.NumRows()
	e.logger.Debug("read datasets", "train_rows", out.TrainRows, "test_rows", out.TestRows)

	ct, err := e.BuildTransformer()
	if err != nil {
		return nil, out, err
	}

	trainX, trainY, err := e.split(train, ct.InputColumns())
	if err != nil {
		return nil, out, core.Wrap(core.ErrSchema, "split train", err)
	}
	testX, testY, err := e.split(test, ct.InputColumns())
	if err != nil {
		return nil, out, core.Wrap(core.ErrSchema, "split test", err)
	}

	// Statistics come from train only; test is transformed with them.
	trainArr, err := ct.FitTransform(trainX)
	if err != nil {
		return nil, out, core.Wrap(core.ErrFit, "fit train", err)
	}
	testArr, err := ct.Transform(testX)
	if err != nil {
		return nil, out, core.Wrap(core.ErrTransform, "transform test", err)
	}
	out.FeatureCount = ct.Width()

	res := &Result{
		Train:        appendTarget(trainArr, trainY),
		Test:         appendTarget(testArr, testY),
		FeatureNames: slices.Clone(ct.FeatureNames()),
		Target:       e.cfg.Schema.Target,
	}

	info, err := artifact.Save(e.cfg.PreprocessorPath, ct)
	if err != nil {
		return res, out, core.Wrap(core.ErrPersist, "save preprocessor", err)
	}
	res.ArtifactPath = info.Path
	res.ArtifactChecksum = info.Checksum
	res.ArtifactSize = info.Size
	out.ArtifactPath = info.Path
	out.ArtifactChecksum = info.Checksum
	e.logger.Info("saved preprocessor", "path", info.Path, "bytes", info.Size, "checksum", info.Checksum)

	return res, out, nil
}

func (e *Engine) openSource(ctx context.Context) (adapter.Adapter, error) {
	src, err := adapter.NewAdapter(e.cfg.Source, e.logger)
	if err != nil {
		return nil, core.Wrap(core.ErrLoad, "create source adapter", err)
	}
	if err := src.Connect(ctx, e.cfg.Source); err != nil {
		return nil, core.Wrap(core.ErrLoad, "connect source", err)
	}
	return src, nil
}

// split separates the target from the feature columns. Columns that are
// neither inputs nor the target are dropped.
func (e *Engine) split(t *core.Table, inputs []string) (*core.Table, []float64, error) {
	target := e.cfg.Schema.Target
	// Report every missing column at once.
	if _, err := t.Select(append(slices.Clone(inputs), target)...); err != nil {
		return nil, nil, err
	}
	rest, err := t.Drop(target)
	if err != nil {
		return nil, nil, err
	}
	features, err := rest.Select(inputs...)
	if err != nil {
		return nil, nil, err
	}
	col, _ := t.Column(target)
	y, err := col.AsFloats()
	if err != nil {
		return nil, nil, fmt.Errorf("target: %w", err)
	}
	return features, y, nil
}

// LoadPreprocessor reads a fitted preprocessor saved by Run.
func LoadPreprocessor(path string) (*preprocess.ColumnTransformer, error) {
	var ct preprocess.ColumnTransformer
	if err := artifact.Load(path, &ct); err != nil {
		return nil, core.Wrap(core.ErrLoad, "load preprocessor", err)
	}
	if !ct.Fitted {
		return nil, core.Wrap(core.ErrLoad, "load preprocessor", preprocess.ErrNotFitted)
	}
	return &ct, nil
}

func appendTarget(x [][]float64, y []float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		r := make([]float64, len(row)+1)
		copy(r, row)
		r[len(row)] = y[i]
		out[i] = r
	}
	return out
}

func shape(m [][]float64) string {
	if len(m) == 0 {
		return "0x0"
	}
	return fmt.Sprintf("%dx%d", len(m), len(m[0]))
}
