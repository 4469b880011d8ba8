package preprocess

import (
	"fmt"
	"math"
	"strconv"

	"github.com/montanaflynn/stats"

	"github.com/leapstack-labs/scoreprep/pkg/core"
)

// zeroScaleTolerance is the scale below which a column is treated as constant.
const zeroScaleTolerance = 10 * 2.220446049250313e-16

// StandardScaler standardizes columns by removing the mean and scaling to
// unit variance. Variance is the population variance of the observed values.
//
// WithMean=false keeps sparse one-hot output free of negative offsets.
type StandardScaler struct {
	WithMean bool
	WithStd  bool

	Features []string
	Mean     []float64
	Var      []float64
	Scale    []float64
	Fitted   bool
}

// NewStandardScaler creates a scaler that centers and scales.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{WithMean: true, WithStd: true}
}

// NewStandardScalerWithoutMean creates a scaler that only scales.
func NewStandardScalerWithoutMean() *StandardScaler {
	return &StandardScaler{WithMean: false, WithStd: true}
}

// Fit computes mean and scale of every column. NaN values are ignored.
func (s *StandardScaler) Fit(t *core.Table) error {
	n := len(t.Columns)
	mean := make([]float64, n)
	variance := make([]float64, n)
	scale := make([]float64, n)

	for i, col := range t.Columns {
		vals, err := col.AsFloats()
		if err != nil {
			return fmt.Errorf("scaler: %w", err)
		}
		observed := observedFloats(vals)
		if len(observed) == 0 {
			return fmt.Errorf("scaler: column %q has no observed values", col.Name)
		}
		if mean[i], err = stats.Mean(observed); err != nil {
			return fmt.Errorf("scaler: column %q: %w", col.Name, err)
		}
		if variance[i], err = stats.PopulationVariance(observed); err != nil {
			return fmt.Errorf("scaler: column %q: %w", col.Name, err)
		}
		scale[i] = 1
		if s.WithStd {
			if sd := math.Sqrt(variance[i]); sd >= zeroScaleTolerance {
				scale[i] = sd
			}
		}
	}

	s.Features = t.ColumnNames()
	s.Mean = mean
	s.Var = variance
	s.Scale = scale
	s.Fitted = true
	return nil
}

// Transform standardizes t with the fitted statistics.
func (s *StandardScaler) Transform(t *core.Table) (*core.Table, error) {
	if !s.Fitted {
		return nil, ErrNotFitted
	}
	if err := checkFeatures("scaler", s.Features, t); err != nil {
		return nil, err
	}

	cols := make([]core.Column, len(t.Columns))
	for i, col := range t.Columns {
		vals, err := col.AsFloats()
		if err != nil {
			return nil, fmt.Errorf("scaler: %w", err)
		}
		out := make([]float64, len(vals))
		for r, v := range vals {
			if s.WithMean {
				v -= s.Mean[i]
			}
			if s.WithStd {
				v /= s.Scale[i]
			}
			out[r] = v
		}
		cols[i] = core.NewNumericColumn(col.Name, out)
	}
	return &core.Table{Name: t.Name, Columns: cols}, nil
}

// Stats reports mean and scale of every column.
func (s *StandardScaler) Stats() []Stat {
	out := make([]Stat, 0, 2*len(s.Features))
	for i, f := range s.Features {
		if s.WithMean {
			out = append(out, Stat{Feature: f, Name: "mean", Value: formatFloat(s.Mean[i])})
		}
		out = append(out, Stat{Feature: f, Name: "scale", Value: formatFloat(s.Scale[i])})
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

var _ Step = (*StandardScaler)(nil)
