package cleaning

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustFrame(t *testing.T, cols ...*frame.Column) *frame.DataFrame {
	t.Helper()
	df, err := frame.New(cols...)
	require.NoError(t, err)
	return df
}

func TestClean_NoOpOnCleanData(t *testing.T) {
	df := mustFrame(t,
		frame.NewNumeric("x", []float64{1, 2, 3}),
		frame.NewCategorical("g", []string{"a", "b", "c"}, nil),
	)

	out, report, err := New(DefaultOptions(), testLogger()).Clean(df)
	require.NoError(t, err)

	assert.Equal(t, df.Records(-1), out.Records(-1))
	assert.Equal(t, 0, report.DuplicatesRemoved)
	assert.Empty(t, report.Imputed)
	assert.Equal(t, 3, report.RowsOut)
}

func TestClean_DuplicatesAndImputation(t *testing.T) {
	nan := math.NaN()
	df := mustFrame(t,
		frame.NewNumeric("x", []float64{1, 1, nan, 4}),
		frame.NewCategorical("g", []string{"a", "a", "b", ""}, []bool{true, true, true, false}),
	)

	out, report, err := New(DefaultOptions(), testLogger()).Clean(df)
	require.NoError(t, err)

	x, _ := out.Col("x")
	// Mean of {1, 4} after dropping the duplicate row.
	assert.Equal(t, []float64{1, 2.5, 4}, x.Floats)

	g, _ := out.Col("g")
	assert.True(t, g.IsMissing(2), "categorical missing values stay missing")

	assert.Equal(t, 1, report.DuplicatesRemoved)
	assert.Equal(t, map[string]int{"x": 1}, report.Imputed)
	assert.Equal(t, 4, report.RowsIn)
	assert.Equal(t, 3, report.RowsOut)

	// Input is untouched.
	orig, _ := df.Col("x")
	assert.True(t, math.IsNaN(orig.Floats[2]))
}

func TestClean_ImputationCreatedDuplicates(t *testing.T) {
	nan := math.NaN()
	df := mustFrame(t,
		frame.NewNumeric("k", []float64{1, 1, 1}),
		frame.NewNumeric("v", []float64{5, nan, 5}),
	)

	out, report, err := New(DefaultOptions(), testLogger()).Clean(df)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Len())
	assert.Equal(t, 2, report.DuplicatesRemoved)
}

func TestClean_Idempotent(t *testing.T) {
	nan := math.NaN()
	inputs := []*frame.DataFrame{
		mustFrame(t,
			frame.NewNumeric("a", []float64{1, nan, 3, 3, 100, nan}),
			frame.NewNumeric("b", []float64{2, 2, nan, nan, 1, 2}),
			frame.NewCategorical("c", []string{"x", "y", "z", "z", "", "y"}, []bool{true, true, true, true, false, true}),
		),
		mustFrame(t,
			frame.NewNumeric("a", []float64{0, 0.1, -0.1, 0.2, -0.2, 0.05, 0.3, -0.3, 0, 50}),
		),
	}

	for _, opts := range []Options{DefaultOptions(), {RemoveOutliers: true, ZScoreThreshold: 2}} {
		c := New(opts, testLogger())
		for _, df := range inputs {
			once, _, err := c.Clean(df)
			require.NoError(t, err)
			twice, report, err := c.Clean(once)
			require.NoError(t, err)

			assert.Equal(t, once.Records(-1), twice.Records(-1))
			assert.Equal(t, 0, report.DuplicatesRemoved)
			assert.Equal(t, 0, report.OutliersRemoved)
		}
	}
}

func TestClean_Outliers(t *testing.T) {
	values := []float64{10, 11, 9, 10, 12, 8, 10, 11, 9, 10, 10, 11, 9, 500}
	df := mustFrame(t, frame.NewNumeric("v", values))

	out, report, err := New(Options{RemoveOutliers: true, ZScoreThreshold: 3}, testLogger()).Clean(df)
	require.NoError(t, err)

	v, _ := out.Col("v")
	assert.NotContains(t, v.Floats, 500.0)
	assert.Equal(t, 1, report.OutliersRemoved)

	// Disabled by default.
	out, _, err = New(DefaultOptions(), testLogger()).Clean(df)
	require.NoError(t, err)
	assert.Equal(t, len(values), out.Len())
}

func TestClean_EmptyResult(t *testing.T) {
	df := mustFrame(t, frame.NewNumeric("x", []float64{1, 2}))

	opts := Options{RemoveOutliers: true, ZScoreThreshold: 0.5}
	_, report, err := New(opts, testLogger()).Clean(df)
	var empty *apierrors.EmptyResultError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, 2, empty.RowsIn)
	assert.Equal(t, 2, report.OutliersRemoved)
	assert.Equal(t, 0, report.RowsOut)
}

func TestClean_NoRows(t *testing.T) {
	df := mustFrame(t,
		frame.NewNumeric("x", []float64{}),
		frame.NewCategorical("g", []string{}, nil),
	)

	out, report, err := New(DefaultOptions(), testLogger()).Clean(df)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, []string{"x", "g"}, out.Names())
	assert.Equal(t, 0, report.RowsIn)
	assert.Equal(t, 0, report.RowsOut)
}

func TestProfileColumns(t *testing.T) {
	df := mustFrame(t,
		frame.NewNumeric("x", []float64{1, 1, math.NaN(), 2}),
	)

	profiles := ProfileColumns(df)
	require.Len(t, profiles, 1)
	assert.Equal(t, "numeric", profiles[0].Kind)
	assert.Equal(t, 1, profiles[0].NullCount)
	assert.Equal(t, 2, profiles[0].DistinctCount)
	assert.InDelta(t, 0.25, float64(profiles[0].NullRate), 1e-12)
}
