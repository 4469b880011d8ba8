package engine

import (
	"github.com/leapstack-labs/scoreprep/pkg/core"
	"github.com/leapstack-labs/scoreprep/pkg/preprocess"
)

// Branch and step names of the preprocessor. They prefix the output feature
// names and are what inspect reports.
const (
	NumericalBranch   = "num_pipeline"
	CategoricalBranch = "cat_pipeline"

	StepImputer = "imputer"
	StepScaler  = "scaler"
	StepEncoder = "onehotencoder"
)

// BuildTransformer returns the unfit preprocessor:
//
//	num_pipeline: median imputation, standard scaling
//	cat_pipeline: most-frequent imputation, one-hot encoding, scaling without centering
//
// Columns outside the schema are dropped.
func (e *Engine) BuildTransformer() (*preprocess.ColumnTransformer, error) {
	schema := e.cfg.Schema

	num, err := preprocess.NewPipeline(
		preprocess.NamedStep{Name: StepImputer, Step: preprocess.NewSimpleImputer(preprocess.StrategyMedian)},
		preprocess.NamedStep{Name: StepScaler, Step: preprocess.NewStandardScaler()},
	)
	if err != nil {
		return nil, core.Wrap(core.ErrBuild, "build "+NumericalBranch, err)
	}

	encoder := preprocess.NewOneHotEncoder()
	encoder.HandleUnknown = e.cfg.HandleUnknown

	cat, err := preprocess.NewPipeline(
		preprocess.NamedStep{Name: StepImputer, Step: preprocess.NewSimpleImputer(preprocess.StrategyMostFrequent)},
		preprocess.NamedStep{Name: StepEncoder, Step: encoder},
		preprocess.NamedStep{Name: StepScaler, Step: preprocess.NewStandardScalerWithoutMean()},
	)
	if err != nil {
		return nil, core.Wrap(core.ErrBuild, "build "+CategoricalBranch, err)
	}

	ct, err := preprocess.NewColumnTransformer(
		preprocess.Branch{Name: NumericalBranch, Pipeline: num, Columns: schema.Numerical},
		preprocess.Branch{Name: CategoricalBranch, Pipeline: cat, Columns: schema.Categorical},
	)
	if err != nil {
		return nil, core.Wrap(core.ErrBuild, "build column transformer", err)
	}

	e.logger.Debug("built preprocessor",
		"numerical", len(schema.Numerical),
		"categorical", len(schema.Categorical),
	)
	return ct, nil
}
