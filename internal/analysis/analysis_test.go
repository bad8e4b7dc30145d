package analysis

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

func newTestAnalyzer(cfg Config) *Analyzer {
	return NewAnalyzer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustFrame(t *testing.T, cols ...*frame.Column) *frame.DataFrame {
	t.Helper()
	df, err := frame.New(cols...)
	require.NoError(t, err)
	return df
}

func requireValidation(t *testing.T, err error) *apierrors.ValidationError {
	t.Helper()
	var verr *apierrors.ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	return verr
}

func TestRegression_Linear(t *testing.T) {
	a := newTestAnalyzer(DefaultConfig())
	df := mustFrame(t,
		frame.NewNumeric("x", []float64{1, 2, 3, 4, 5}),
		frame.NewNumeric("y", []float64{5, 7, 9, 11, 13}),
	)

	res, err := a.Regression(df, []string{"x"}, "y")
	require.NoError(t, err)
	assert.InDelta(t, 2, float64(res.Coefficients["x"]), 1e-9)
	assert.InDelta(t, 3, float64(res.Intercept), 1e-9)
	assert.InDelta(t, 1, float64(res.RSquared), 1e-9)
	assert.Equal(t, 5, res.Observations)
}

func TestRegression_MultiplePredictorsAndMissingRows(t *testing.T) {
	a := newTestAnalyzer(DefaultConfig())
	xa := []float64{1, 2, 3, 4, 5, 6, math.NaN()}
	xb := []float64{2, 1, 4, 3, 6, 5, 1}
	y := make([]float64, len(xa))
	for i := range y {
		y[i] = 1 + 2*xa[i] - xb[i]
	}
	y[len(y)-1] = 100
	df := mustFrame(t,
		frame.NewNumeric("a", xa),
		frame.NewNumeric("b", xb),
		frame.NewNumeric("y", y),
	)

	res, err := a.Regression(df, []string{"a", "b"}, "y")
	require.NoError(t, err)
	assert.Equal(t, 6, res.Observations, "rows with missing values are dropped")
	assert.InDelta(t, 2, float64(res.Coefficients["a"]), 1e-9)
	assert.InDelta(t, -1, float64(res.Coefficients["b"]), 1e-9)
	assert.InDelta(t, 1, float64(res.Intercept), 1e-9)
}

func TestRegression_Errors(t *testing.T) {
	a := newTestAnalyzer(DefaultConfig())
	df := mustFrame(t,
		frame.NewNumeric("x", []float64{1, 2, 3}),
		frame.NewNumeric("y", []float64{2, 4, 7}),
		frame.NewCategorical("c", []string{"a", "b", "c"}, nil),
	)

	tests := []struct {
		name    string
		x       []string
		y       string
		columns []string
	}{
		{name: "no predictors", y: "y"},
		{name: "no response", x: []string{"x"}},
		{name: "unknown column", x: []string{"x", "nope"}, y: "y", columns: []string{"nope"}},
		{name: "categorical column", x: []string{"c"}, y: "y", columns: []string{"c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Regression(df, tt.x, tt.y)
			verr := requireValidation(t, err)
			if tt.columns != nil {
				assert.Equal(t, tt.columns, verr.Columns)
			}
		})
	}

	single := mustFrame(t,
		frame.NewNumeric("x", []float64{1}),
		frame.NewNumeric("y", []float64{2}),
	)
	_, err := a.Regression(single, []string{"x"}, "y")
	var aerr *apierrors.AnalysisError
	assert.True(t, errors.As(err, &aerr))
}

func TestRegression_ObservationBoundary(t *testing.T) {
	a := newTestAnalyzer(DefaultConfig())

	// two rows fit a line with intercept exactly and leave no residual degrees of freedom
	exact := mustFrame(t,
		frame.NewNumeric("x", []float64{1, 2}),
		frame.NewNumeric("y", []float64{3, 5}),
	)
	_, err := a.Regression(exact, []string{"x"}, "y")
	var aerr *apierrors.AnalysisError
	require.ErrorAs(t, err, &aerr)
	assert.ErrorContains(t, err, "need more than 2")

	three := mustFrame(t,
		frame.NewNumeric("x", []float64{1, 2, 3}),
		frame.NewNumeric("y", []float64{3, 5, 7}),
	)
	res, err := a.Regression(three, []string{"x"}, "y")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Observations)
	assert.InDelta(t, 2, float64(res.Coefficients["x"]), 1e-9)
}

func TestRSquared_ConstantResponse(t *testing.T) {
	assert.Equal(t, 1.0, rSquared([]float64{4, 4, 4}, []float64{4, 4, 4}))
	assert.Equal(t, 0.0, rSquared([]float64{3, 4, 5}, []float64{4, 4, 4}))
}

func TestAggregate(t *testing.T) {
	a := newTestAnalyzer(DefaultConfig())
	df := mustFrame(t,
		frame.NewCategorical("g", []string{"A", "A", "B", ""}, []bool{true, true, true, false}),
		frame.NewCategorical("h", []string{"x", "y", "x", "x"}, nil),
		frame.NewNumeric("v", []float64{1, 3, 10, 99}),
	)

	tests := []struct {
		name    string
		groupBy []string
		fn      string
		want    map[string]float64
	}{
		{name: "count", groupBy: []string{"g"}, fn: AggCount, want: map[string]float64{"A": 2, "B": 1}},
		{name: "sum", groupBy: []string{"g"}, fn: AggSum, want: map[string]float64{"A": 4, "B": 10}},
		{name: "mean", groupBy: []string{"g"}, fn: AggMean, want: map[string]float64{"A": 2, "B": 10}},
		{name: "two keys", groupBy: []string{"g", "h"}, fn: AggSum, want: map[string]float64{"A, x": 1, "A, y": 3, "B, x": 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Aggregate(df, tt.groupBy, "v", tt.fn)
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for k, v := range tt.want {
				assert.InDelta(t, v, float64(got[k]), 1e-12, k)
			}
		})
	}
}

func TestAggregate_CountCategoricalAndEmptyMean(t *testing.T) {
	a := newTestAnalyzer(DefaultConfig())
	df := mustFrame(t,
		frame.NewNumeric("g", []float64{1, 1, 2}),
		frame.NewCategorical("label", []string{"p", "", "q"}, []bool{true, false, true}),
		frame.NewNumeric("v", []float64{math.NaN(), math.NaN(), 4}),
	)

	counts, err := a.Aggregate(df, []string{"g"}, "label", AggCount)
	require.NoError(t, err)
	assert.Equal(t, frame.Float(1), counts["1"])
	assert.Equal(t, frame.Float(1), counts["2"])

	means, err := a.Aggregate(df, []string{"g"}, "v", AggMean)
	require.NoError(t, err)
	b, err := json.Marshal(means)
	require.NoError(t, err)
	assert.JSONEq(t, `{"1": null, "2": 4}`, string(b))
}

func TestAggregate_Errors(t *testing.T) {
	a := newTestAnalyzer(DefaultConfig())
	df := mustFrame(t,
		frame.NewCategorical("g", []string{"A", "B"}, nil),
		frame.NewCategorical("label", []string{"p", "q"}, nil),
		frame.NewNumeric("v", []float64{1, 2}),
	)

	_, err := a.Aggregate(df, []string{"g"}, "v", "median")
	verr := requireValidation(t, err)
	assert.Equal(t, "aggFunc", verr.Field)

	_, err = a.Aggregate(df, []string{"missing"}, "v", AggSum)
	verr = requireValidation(t, err)
	assert.Equal(t, []string{"missing"}, verr.Columns)

	_, err = a.Aggregate(df, nil, "v", AggSum)
	requireValidation(t, err)

	_, err = a.Aggregate(df, []string{"g"}, "label", AggMean)
	verr = requireValidation(t, err)
	assert.Equal(t, []string{"label"}, verr.Columns)
}

func TestRescale_Normalize(t *testing.T) {
	a := newTestAnalyzer(DefaultConfig())
	df := mustFrame(t,
		frame.NewNumeric("x", []float64{3, -1, 7, math.NaN(), 5}),
		frame.NewNumeric("k", []float64{2, 2, 2, 2, 2}),
		frame.NewNumeric("other", []float64{1, 2, 3, 4, 5}),
	)

	out, err := a.Rescale(df, MethodNormalize, []string{"x", "k"})
	require.NoError(t, err)

	x, _ := out.Col("x")
	assert.Equal(t, 0.0, x.Floats[1])
	assert.Equal(t, 1.0, x.Floats[2])
	assert.True(t, math.IsNaN(x.Floats[3]))
	for _, v := range x.NonMissing() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	k, _ := out.Col("k")
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, k.Floats)

	other, _ := out.Col("other")
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, other.Floats)

	orig, _ := df.Col("x")
	assert.Equal(t, 3.0, orig.Floats[0], "input is not mutated")
}

func TestRescale_Standardize(t *testing.T) {
	a := newTestAnalyzer(DefaultConfig())
	df := mustFrame(t, frame.NewNumeric("x", []float64{2, 4, 4, 4, 5, 5, 7, 9}))

	out, err := a.Rescale(df, MethodStandardize, []string{"x"})
	require.NoError(t, err)
	x, _ := out.Col("x")

	var sum, sq float64
	for _, v := range x.Floats {
		sum += v
		sq += v * v
	}
	n := float64(len(x.Floats))
	assert.InDelta(t, 0, sum/n, 1e-12)
	assert.InDelta(t, 1, sq/n, 1e-12)
	assert.InDelta(t, -1.5, x.Floats[0], 1e-12)
}

func TestRescale_Errors(t *testing.T) {
	a := newTestAnalyzer(DefaultConfig())
	df := mustFrame(t,
		frame.NewNumeric("x", []float64{1, 2}),
		frame.NewCategorical("c", []string{"a", "b"}, nil),
	)

	_, err := a.Rescale(df, "log", []string{"x"})
	assert.Equal(t, "method", requireValidation(t, err).Field)

	_, err = a.Rescale(df, MethodNormalize, []string{"c"})
	assert.Equal(t, []string{"c"}, requireValidation(t, err).Columns)

	_, err = a.Rescale(df, MethodNormalize, []string{"nope"})
	assert.Equal(t, []string{"nope"}, requireValidation(t, err).Columns)

	_, err = a.Rescale(df, MethodNormalize, nil)
	requireValidation(t, err)
}

func TestPacfToCoefficients(t *testing.T) {
	assert.Nil(t, pacfToCoefficients(nil, -1))
	assert.InDelta(t, math.Tanh(0.5), pacfToCoefficients([]float64{1}, -1)[0], 1e-15)

	// AR(2) from partial autocorrelations r1, r2: phi1 = r1(1 - r2), phi2 = r2.
	r1, r2 := math.Tanh(0.4), math.Tanh(-0.3)
	ar := pacfToCoefficients([]float64{0.8, -0.6}, -1)
	assert.InDelta(t, r1*(1-r2), ar[0], 1e-12)
	assert.InDelta(t, r2, ar[1], 1e-12)
}

func TestFitARIMA_LinearExtrapolation(t *testing.T) {
	y := make([]float64, 10)
	for i := range y {
		y[i] = 3*float64(i) + 5
	}

	m, err := FitARIMA(y, Order{P: 0, D: 2, Q: 0})
	require.NoError(t, err)
	mean, lower, upper := m.Forecast(3)
	assert.InDeltaSlice(t, []float64{35, 38, 41}, mean, 1e-9)
	assert.InDeltaSlice(t, mean, lower, 1e-9)
	assert.InDeltaSlice(t, mean, upper, 1e-9)
}

func TestFitARIMA_RandomWalkIntervals(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	y := make([]float64, 50)
	for i := 1; i < len(y); i++ {
		y[i] = y[i-1] + rng.NormFloat64()
	}

	m, err := FitARIMA(y, Order{P: 0, D: 1, Q: 0})
	require.NoError(t, err)
	require.Greater(t, m.Sigma2, 0.0)

	mean, _, upper := m.Forecast(4)
	for i := range mean {
		assert.InDelta(t, y[len(y)-1], mean[i], 1e-12)
		assert.InDelta(t, ci95*math.Sqrt(m.Sigma2*float64(i+1)), upper[i]-mean[i], 1e-9)
	}
}

func TestFitARIMA_RecoversAR1(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	y := make([]float64, 600)
	for i := 1; i < len(y); i++ {
		y[i] = 0.6*y[i-1] + rng.NormFloat64()
	}
	for i := range y {
		y[i] += 10
	}

	m, err := FitARIMA(y, Order{P: 1, D: 0, Q: 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, m.AR[0], 0.1)
	assert.InDelta(t, 10, m.Mean, 0.5)
	assert.InDelta(t, 1, m.Sigma2, 0.2)
	assert.Less(t, math.Abs(m.AR[0]), 1.0)
}

func TestFitARIMA_TooShort(t *testing.T) {
	_, err := FitARIMA([]float64{1, 2, 3, 4, 5}, Order{P: 1, D: 1, Q: 1})
	assert.ErrorContains(t, err, "need at least 6")
}

func TestDecompose_RecoversComponents(t *testing.T) {
	pattern := []float64{1, -1, 2, -2}
	y := make([]float64, 16)
	for i := range y {
		y[i] = 0.5*float64(i) + pattern[i%4]
	}

	d, err := Decompose(y, 4)
	require.NoError(t, err)

	for i := range y {
		assert.InDelta(t, pattern[i%4], d.Seasonal[i], 1e-12)
		if i < 2 || i >= 14 {
			assert.True(t, math.IsNaN(d.Trend[i]), "trend edge %d", i)
			assert.True(t, math.IsNaN(d.Residual[i]))
			continue
		}
		assert.InDelta(t, 0.5*float64(i), d.Trend[i], 1e-12)
		assert.InDelta(t, 0, d.Residual[i], 1e-12)
	}

	_, err = Decompose(y[:7], 4)
	assert.Error(t, err)
}

func TestDecompose_OddPeriod(t *testing.T) {
	y := []float64{1, 2, 3, 1, 2, 3, 1, 2, 3}
	d, err := Decompose(y, 3)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(d.Trend[0]))
	assert.InDelta(t, 2, d.Trend[1], 1e-12)
	assert.InDelta(t, -1, d.Seasonal[0], 1e-12)
	assert.InDelta(t, 1, d.Seasonal[2], 1e-12)
}

func TestTimeSeries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Order = Order{P: 0, D: 1, Q: 0}
	cfg.SeasonalPeriod = 4
	a := newTestAnalyzer(cfg)

	values := make([]float64, 12)
	for i := range values {
		values[i] = float64(i%4) + float64(i)
	}
	df := mustFrame(t, frame.NewNumeric("sales", values))

	res, err := a.TimeSeries(df, "sales", 3, nil)
	require.NoError(t, err)
	assert.Len(t, res.Forecast, 3)
	assert.Len(t, res.ConfidenceInterval, 3)
	assert.Equal(t, 4, res.Period)
	assert.Len(t, res.Trend, 12)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Nil(t, decoded["trend"].([]interface{})[0])

	off := false
	res, err = a.TimeSeries(df, "sales", 1, &off)
	require.NoError(t, err)
	assert.Nil(t, res.Trend)
	assert.Zero(t, res.Period)
}

func TestTimeSeries_Errors(t *testing.T) {
	a := newTestAnalyzer(DefaultConfig())
	df := mustFrame(t,
		frame.NewNumeric("v", []float64{1, 2, 3, 4, 5, 6, 7, 8}),
		frame.NewCategorical("c", []string{"a", "b", "c", "d", "e", "f", "g", "h"}, nil),
	)

	_, err := a.TimeSeries(df, "v", 0, nil)
	assert.Equal(t, "periods", requireValidation(t, err).Field)

	_, err = a.TimeSeries(df, "v", 1001, nil)
	requireValidation(t, err)

	_, err = a.TimeSeries(df, "nope", 1, nil)
	assert.Equal(t, []string{"nope"}, requireValidation(t, err).Columns)

	_, err = a.TimeSeries(df, "c", 1, nil)
	assert.Equal(t, []string{"c"}, requireValidation(t, err).Columns)

	var aerr *apierrors.AnalysisError
	on := true
	_, err = a.TimeSeries(df, "v", 1, &on)
	assert.True(t, errors.As(err, &aerr), "decomposition of a short series fails")

	short := mustFrame(t, frame.NewNumeric("v", []float64{1, 2, 3}))
	_, err = a.TimeSeries(short, "v", 1, nil)
	assert.True(t, errors.As(err, &aerr))
}
