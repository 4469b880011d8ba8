// Package preprocess provides fit/transform preprocessing steps for tabular
// data: missing-value imputation, standardization and one-hot encoding, plus
// the Pipeline and ColumnTransformer that compose them.
//
// Every step learns its statistics in Fit and applies exactly those
// statistics in Transform. Fitted steps are plain exported structs, so a
// fitted ColumnTransformer can be persisted with encoding/gob and restored
// later.
package preprocess

import (
	"encoding/gob"
	"errors"
	"fmt"
	"slices"

	"github.com/leapstack-labs/scoreprep/pkg/core"
)

// ErrNotFitted is returned when Transform is called before Fit.
var ErrNotFitted = errors.New("transformer is not fitted")

// Step is a single fit/transform stage operating on a table.
type Step interface {
	// Fit learns the step's statistics from t.
	Fit(t *core.Table) error
	// Transform applies the learned statistics to t and returns a new table.
	Transform(t *core.Table) (*core.Table, error)
}

// Stat is one learned statistic of a fitted step.
type Stat struct {
	Feature string
	Name    string
	Value   string
}

// Describer is implemented by steps that can report their learned statistics.
type Describer interface {
	Stats() []Stat
}

func init() {
	gob.Register(&SimpleImputer{})
	gob.Register(&StandardScaler{})
	gob.Register(&OneHotEncoder{})
}

// checkFeatures verifies that t carries the columns seen during Fit, in order.
func checkFeatures(step string, fitted []string, t *core.Table) error {
	got := t.ColumnNames()
	if !slices.Equal(fitted, got) {
		return fmt.Errorf("%s: input columns %v do not match fitted columns %v", step, got, fitted)
	}
	return nil
}
