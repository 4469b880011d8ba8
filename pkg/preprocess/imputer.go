package preprocess

import (
	"cmp"
	"fmt"
	"math"
	"strconv"

	"github.com/montanaflynn/stats"

	"github.com/leapstack-labs/scoreprep/pkg/core"
)

// Strategy selects how SimpleImputer computes its fill value.
type Strategy string

// Imputation strategies.
const (
	StrategyMean         Strategy = "mean"
	StrategyMedian       Strategy = "median"
	StrategyMostFrequent Strategy = "most_frequent"
	StrategyConstant     Strategy = "constant"
)

// DefaultTextFill is the constant used for text columns when FillValue is empty.
const DefaultTextFill = "missing_value"

// Fill is the learned replacement for one column.
type Fill struct {
	IsText bool
	Number float64
	Text   string
}

func (f Fill) String() string {
	if f.IsText {
		return f.Text
	}
	return strconv.FormatFloat(f.Number, 'g', -1, 64)
}

// SimpleImputer replaces missing values with a per-column statistic.
type SimpleImputer struct {
	Strategy Strategy
	// FillValue is used by StrategyConstant. Numeric columns parse it as a
	// number and default to 0.
	FillValue string

	Features []string
	Fills    []Fill
	Fitted   bool
}

// NewSimpleImputer creates an imputer for the given strategy.
func NewSimpleImputer(strategy Strategy) *SimpleImputer {
	return &SimpleImputer{Strategy: strategy}
}

// Fit computes the fill value of every column of t.
func (s *SimpleImputer) Fit(t *core.Table) error {
	fills := make([]Fill, len(t.Columns))
	for i, col := range t.Columns {
		f, err := s.fitColumn(col)
		if err != nil {
			return fmt.Errorf("imputer: %w", err)
		}
		fills[i] = f
	}
	s.Features = t.ColumnNames()
	s.Fills = fills
	s.Fitted = true
	return nil
}

func (s *SimpleImputer) fitColumn(col core.Column) (Fill, error) {
	switch s.Strategy {
	case StrategyMean, StrategyMedian:
		vals, err := col.AsFloats()
		if err != nil {
			return Fill{}, fmt.Errorf("strategy %s requires numeric data: %w", s.Strategy, err)
		}
		observed := observedFloats(vals)
		if len(observed) == 0 {
			return Fill{}, fmt.Errorf("column %q has no observed values", col.Name)
		}
		var v float64
		if s.Strategy == StrategyMean {
			v, err = stats.Mean(observed)
		} else {
			v, err = stats.Median(observed)
		}
		if err != nil {
			return Fill{}, fmt.Errorf("column %q: %w", col.Name, err)
		}
		return Fill{Number: v}, nil

	case StrategyMostFrequent:
		if col.Kind == core.KindNumeric {
			observed := observedFloats(col.Floats)
			if len(observed) == 0 {
				return Fill{}, fmt.Errorf("column %q has no observed values", col.Name)
			}
			return Fill{Number: mostFrequent(observed)}, nil
		}
		var observed []string
		for i, v := range col.Strings {
			if col.Valid[i] {
				observed = append(observed, v)
			}
		}
		if len(observed) == 0 {
			return Fill{}, fmt.Errorf("column %q has no observed values", col.Name)
		}
		return Fill{IsText: true, Text: mostFrequent(observed)}, nil

	case StrategyConstant:
		if col.Kind == core.KindNumeric {
			if s.FillValue == "" {
				return Fill{}, nil
			}
			v, err := strconv.ParseFloat(s.FillValue, 64)
			if err != nil {
				return Fill{}, fmt.Errorf("column %q: fill value %q is not numeric", col.Name, s.FillValue)
			}
			return Fill{Number: v}, nil
		}
		fill := s.FillValue
		if fill == "" {
			fill = DefaultTextFill
		}
		return Fill{IsText: true, Text: fill}, nil

	default:
		return Fill{}, fmt.Errorf("unknown strategy %q", s.Strategy)
	}
}

// Transform replaces the missing values of t with the fitted fills.
func (s *SimpleImputer) Transform(t *core.Table) (*core.Table, error) {
	if !s.Fitted {
		return nil, ErrNotFitted
	}
	if err := checkFeatures("imputer", s.Features, t); err != nil {
		return nil, err
	}

	cols := make([]core.Column, len(t.Columns))
	for i, col := range t.Columns {
		fill := s.Fills[i]
		if fill.IsText {
			vals, valid := col.AsStrings()
			out := make([]string, len(vals))
			for r, v := range vals {
				if valid[r] {
					out[r] = v
				} else {
					out[r] = fill.Text
				}
			}
			cols[i] = core.NewTextColumn(col.Name, out, nil)
			continue
		}

		vals, err := col.AsFloats()
		if err != nil {
			return nil, fmt.Errorf("imputer: %w", err)
		}
		out := make([]float64, len(vals))
		for r, v := range vals {
			if math.IsNaN(v) {
				out[r] = fill.Number
			} else {
				out[r] = v
			}
		}
		cols[i] = core.NewNumericColumn(col.Name, out)
	}
	return &core.Table{Name: t.Name, Columns: cols}, nil
}

// Stats reports the fill value of every column.
func (s *SimpleImputer) Stats() []Stat {
	out := make([]Stat, len(s.Features))
	for i, f := range s.Features {
		out[i] = Stat{Feature: f, Name: "fill_" + string(s.Strategy), Value: s.Fills[i].String()}
	}
	return out
}

func observedFloats(vals []float64) stats.Float64Data {
	out := make(stats.Float64Data, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// mostFrequent returns the most common value; ties go to the smallest value.
func mostFrequent[T cmp.Ordered](vals []T) T {
	counts := make(map[T]int, len(vals))
	for _, v := range vals {
		counts[v]++
	}
	var best T
	bestCount := 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}

var _ Step = (*SimpleImputer)(nil)
