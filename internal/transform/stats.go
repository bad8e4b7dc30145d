package transform

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"dataviz-backend/internal/frame"
)

// Statistics is the descriptive statistics bundle for the numeric columns of a frame.
type Statistics struct {
	Mean        map[string]frame.Float            `json:"mean"`
	Median      map[string]frame.Float            `json:"median"`
	Std         map[string]frame.Float            `json:"std"`
	Skewness    map[string]frame.Float            `json:"skewness"`
	Kurtosis    map[string]frame.Float            `json:"kurtosis"`
	Correlation map[string]map[string]frame.Float `json:"correlation"`
}

// Describe computes mean, median, sample standard deviation, bias-corrected
// skewness and excess kurtosis per numeric column, plus the pairwise Pearson
// correlation matrix. Missing values are skipped; categorical columns are ignored.
func Describe(df *frame.DataFrame) *Statistics {
	s := &Statistics{
		Mean:        make(map[string]frame.Float),
		Median:      make(map[string]frame.Float),
		Std:         make(map[string]frame.Float),
		Skewness:    make(map[string]frame.Float),
		Kurtosis:    make(map[string]frame.Float),
		Correlation: make(map[string]map[string]frame.Float),
	}

	numeric := df.NumericNames()
	for _, name := range numeric {
		col, _ := df.Col(name)
		x := col.NonMissing()
		s.Mean[name] = frame.Float(Mean(x))
		s.Median[name] = frame.Float(Median(x))
		s.Std[name] = frame.Float(StdDev(x))
		s.Skewness[name] = frame.Float(Skewness(x))
		s.Kurtosis[name] = frame.Float(Kurtosis(x))
	}

	for _, a := range numeric {
		row := make(map[string]frame.Float, len(numeric))
		ca, _ := df.Col(a)
		for _, b := range numeric {
			cb, _ := df.Col(b)
			row[b] = frame.Float(Correlation(ca.Floats, cb.Floats))
		}
		s.Correlation[a] = row
	}
	return s
}

// Mean returns the arithmetic mean, NaN for no values.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// Median returns the middle value, averaging the two middle values for even counts.
func Median(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// StdDev returns the sample (n-1) standard deviation, NaN below two values.
func StdDev(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.StdDev(x, nil)
}

// Skewness returns the bias-corrected sample skewness, NaN below three values.
func Skewness(x []float64) float64 {
	if len(x) < 3 {
		return math.NaN()
	}
	if isConstant(x) {
		return 0
	}
	return stat.Skew(x, nil)
}

// Kurtosis returns the bias-corrected excess kurtosis, NaN below four values.
func Kurtosis(x []float64) float64 {
	if len(x) < 4 {
		return math.NaN()
	}
	if isConstant(x) {
		return 0
	}
	return stat.ExKurtosis(x, nil)
}

// Correlation returns the Pearson correlation over rows where both values are
// present, NaN when fewer than two such rows exist or either side is constant.
func Correlation(a, b []float64) float64 {
	var x, y []float64
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	if len(x) < 2 || isConstant(x) || isConstant(y) {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

func isConstant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}
