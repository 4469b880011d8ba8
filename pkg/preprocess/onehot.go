package preprocess

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/scoreprep/pkg/core"
)

// UnknownPolicy decides what OneHotEncoder does with a category it did not
// see during Fit.
type UnknownPolicy string

// Unknown category policies.
const (
	UnknownError  UnknownPolicy = "error"
	UnknownIgnore UnknownPolicy = "ignore"
)

// UnknownCategoryError is returned by Transform for an unseen category when
// the policy is UnknownError.
type UnknownCategoryError struct {
	Feature  string
	Category string
	Row      int
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("found unknown category %q in column %q during transform (row %d)", e.Category, e.Feature, e.Row)
}

// OneHotEncoder expands every column into one indicator column per category
// observed during Fit. Categories are sorted; numeric columns sort by value.
type OneHotEncoder struct {
	HandleUnknown UnknownPolicy

	Features   []string
	Categories [][]string
	Fitted     bool
}

// NewOneHotEncoder creates an encoder that rejects unknown categories.
func NewOneHotEncoder() *OneHotEncoder {
	return &OneHotEncoder{HandleUnknown: UnknownError}
}

// Fit collects the categories of every column. Missing values are rejected.
func (e *OneHotEncoder) Fit(t *core.Table) error {
	switch e.HandleUnknown {
	case "", UnknownError, UnknownIgnore:
	default:
		return fmt.Errorf("onehotencoder: unknown handle_unknown policy %q", e.HandleUnknown)
	}

	cats := make([][]string, len(t.Columns))
	for i, col := range t.Columns {
		if n := col.MissingCount(); n > 0 {
			return fmt.Errorf("onehotencoder: column %q has %d missing value(s)", col.Name, n)
		}
		cats[i] = categoriesOf(col)
	}

	e.Features = t.ColumnNames()
	e.Categories = cats
	e.Fitted = true
	return nil
}

func categoriesOf(col core.Column) []string {
	if col.Kind == core.KindNumeric {
		uniq := slices.Clone(col.Floats)
		slices.Sort(uniq)
		uniq = slices.Compact(uniq)
		out := make([]string, len(uniq))
		for i, f := range uniq {
			out[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return out
	}
	uniq := slices.Clone(col.Strings)
	sort.Strings(uniq)
	return slices.Compact(uniq)
}

// Transform produces the indicator columns for t.
func (e *OneHotEncoder) Transform(t *core.Table) (*core.Table, error) {
	if !e.Fitted {
		return nil, ErrNotFitted
	}
	if err := checkFeatures("onehotencoder", e.Features, t); err != nil {
		return nil, err
	}

	rows := t.NumRows()
	var cols []core.Column
	for i, col := range t.Columns {
		vals, valid := col.AsStrings()
		index := make(map[string]int, len(e.Categories[i]))
		block := make([][]float64, len(e.Categories[i]))
		for j, c := range e.Categories[i] {
			index[c] = j
			block[j] = make([]float64, rows)
		}

		for r, v := range vals {
			if !valid[r] {
				return nil, fmt.Errorf("onehotencoder: column %q row %d is missing", col.Name, r+1)
			}
			j, ok := index[v]
			if !ok {
				if e.HandleUnknown == UnknownIgnore {
					continue
				}
				return nil, &UnknownCategoryError{Feature: col.Name, Category: v, Row: r + 1}
			}
			block[j][r] = 1
		}

		for j, c := range e.Categories[i] {
			cols = append(cols, core.NewNumericColumn(col.Name+"_"+c, block[j]))
		}
	}
	return &core.Table{Name: t.Name, Columns: cols}, nil
}

// Stats reports the categories of every column.
func (e *OneHotEncoder) Stats() []Stat {
	out := make([]Stat, len(e.Features))
	for i, f := range e.Features {
		out[i] = Stat{Feature: f, Name: "categories", Value: strings.Join(e.Categories[i], ", ")}
	}
	return out
}

var _ Step = (*OneHotEncoder)(nil)
