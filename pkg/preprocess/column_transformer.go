package preprocess

import (
	"fmt"

	"github.com/leapstack-labs/scoreprep/pkg/core"
)

// Branch applies a pipeline to a subset of the input columns.
type Branch struct {
	Name     string
	Pipeline *Pipeline
	Columns  []string
}

// ColumnTransformer applies each branch to its own columns and concatenates
// the outputs horizontally into a dense matrix. Columns not named by any
// branch are dropped.
type ColumnTransformer struct {
	Branches    []Branch
	OutputNames []string
	Fitted      bool
}

// NewColumnTransformer validates the branches and returns an unfit transformer.
func NewColumnTransformer(branches ...Branch) (*ColumnTransformer, error) {
	if len(branches) == 0 {
		return nil, fmt.Errorf("column transformer needs at least one branch")
	}
	names := make(map[string]struct{}, len(branches))
	for _, b := range branches {
		if b.Name == "" {
			return nil, fmt.Errorf("branch name is empty")
		}
		if _, dup := names[b.Name]; dup {
			return nil, fmt.Errorf("duplicate branch %q", b.Name)
		}
		names[b.Name] = struct{}{}
		if b.Pipeline == nil {
			return nil, fmt.Errorf("branch %q has no pipeline", b.Name)
		}
		if len(b.Columns) == 0 {
			return nil, fmt.Errorf("branch %q has no columns", b.Name)
		}
		cols := make(map[string]struct{}, len(b.Columns))
		for _, c := range b.Columns {
			if _, dup := cols[c]; dup {
				return nil, fmt.Errorf("branch %q lists column %q twice", b.Name, c)
			}
			cols[c] = struct{}{}
		}
	}
	return &ColumnTransformer{Branches: branches}, nil
}

// InputColumns returns every column consumed by a branch, in branch order.
func (ct *ColumnTransformer) InputColumns() []string {
	var out []string
	for _, b := range ct.Branches {
		out = append(out, b.Columns...)
	}
	return out
}

// Fit learns the statistics of every branch from t.
func (ct *ColumnTransformer) Fit(t *core.Table) error {
	_, err := ct.FitTransform(t)
	return err
}

// FitTransform fits every branch on t and returns the transformed matrix.
func (ct *ColumnTransformer) FitTransform(t *core.Table) ([][]float64, error) {
	outputs := make([]*core.Table, len(ct.Branches))
	for i, b := range ct.Branches {
		in, err := t.Select(b.Columns...)
		if err != nil {
			return nil, err
		}
		out, err := b.Pipeline.FitTransform(in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name, err)
		}
		outputs[i] = out
	}

	var names []string
	for i, out := range outputs {
		for _, c := range out.Columns {
			names = append(names, ct.Branches[i].Name+"__"+c.Name)
		}
	}
	m, err := hstack(t.NumRows(), outputs)
	if err != nil {
		return nil, err
	}
	ct.OutputNames = names
	ct.Fitted = true
	return m, nil
}

// Transform applies the fitted branches to t.
func (ct *ColumnTransformer) Transform(t *core.Table) ([][]float64, error) {
	if !ct.Fitted {
		return nil, ErrNotFitted
	}
	outputs := make([]*core.Table, len(ct.Branches))
	width := 0
	for i, b := range ct.Branches {
		in, err := t.Select(b.Columns...)
		if err != nil {
			return nil, err
		}
		out, err := b.Pipeline.Transform(in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name, err)
		}
		outputs[i] = out
		width += len(out.Columns)
	}
	if width != len(ct.OutputNames) {
		return nil, fmt.Errorf("transform produced %d features, fitted with %d", width, len(ct.OutputNames))
	}
	return hstack(t.NumRows(), outputs)
}

// FeatureNames returns the output column names as <branch>__<feature>.
func (ct *ColumnTransformer) FeatureNames() []string {
	return ct.OutputNames
}

// Width returns the number of output features of a fitted transformer.
func (ct *ColumnTransformer) Width() int {
	return len(ct.OutputNames)
}

// hstack joins the columns of every table into one row-major matrix.
func hstack(rows int, tables []*core.Table) ([][]float64, error) {
	var cols [][]float64
	for _, t := range tables {
		for _, c := range t.Columns {
			vals, err := c.AsFloats()
			if err != nil {
				return nil, err
			}
			if len(vals) != rows {
				return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, len(vals), rows)
			}
			cols = append(cols, vals)
		}
	}
	m := make([][]float64, rows)
	for r := range m {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c[r]
		}
		m[r] = row
	}
	return m, nil
}
