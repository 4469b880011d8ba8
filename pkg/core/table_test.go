package core

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable(t *testing.T) {
	tests := []struct {
		name      string
		cols      []Column
		errSubstr string
	}{
		{
			name: "valid",
			cols: []Column{
				NewNumericColumn("a", []float64{1, 2}),
				NewTextColumn("b", []string{"x", "y"}, nil),
			},
		},
		{
			name: "length mismatch",
			cols: []Column{
				NewNumericColumn("a", []float64{1, 2}),
				NewNumericColumn("b", []float64{1}),
			},
			errSubstr: "has 1 rows, want 2",
		},
		{
			name: "duplicate name",
			cols: []Column{
				NewNumericColumn("a", []float64{1}),
				NewNumericColumn("a", []float64{2}),
			},
			errSubstr: "duplicate column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := NewTable("t", tt.cols...)
			if tt.errSubstr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2, tbl.NumRows())
		})
	}
}

func TestTable_DropAndSelect(t *testing.T) {
	tbl, err := NewTable("train",
		NewNumericColumn("math_score", []float64{70, 80}),
		NewNumericColumn("reading_score", []float64{60, 90}),
		NewTextColumn("gender", []string{"male", "female"}, nil),
	)
	require.NoError(t, err)

	features, err := tbl.Drop("math_score")
	require.NoError(t, err)
	assert.Equal(t, []string{"reading_score", "gender"}, features.ColumnNames())
	assert.Len(t, tbl.Columns, 3, "drop must not mutate the source table")

	_, err = tbl.Drop("nope")
	var mce *MissingColumnsError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, []string{"nope"}, mce.Columns)

	sel, err := tbl.Select("gender", "reading_score")
	require.NoError(t, err)
	assert.Equal(t, []string{"gender", "reading_score"}, sel.ColumnNames())

	_, err = tbl.Select("gender", "lunch", "writing_score")
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, []string{"lunch", "writing_score"}, mce.Columns)
}

func TestColumn_AsFloats(t *testing.T) {
	col := NewTextColumn("score", []string{"1.5", "NA", " 3 ", ""}, []bool{true, true, true, false})
	got, err := col.AsFloats()
	require.NoError(t, err)
	assert.Equal(t, 1.5, got[0])
	assert.True(t, math.IsNaN(got[1]))
	assert.Equal(t, 3.0, got[2])
	assert.True(t, math.IsNaN(got[3]))

	bad := NewTextColumn("score", []string{"1", "abc"}, nil)
	_, err = bad.AsFloats()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `row 2: value "abc" is not numeric`)
}

func TestColumn_AsStrings(t *testing.T) {
	col := NewNumericColumn("n", []float64{1, math.NaN(), 2.5})
	vals, valid := col.AsStrings()
	assert.Equal(t, []string{"1", "", "2.5"}, vals)
	assert.Equal(t, []bool{true, false, true}, valid)
	assert.Equal(t, 1, col.MissingCount())
}
