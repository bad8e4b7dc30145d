package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

// Rescaling methods.
const (
	MethodStandardize = "standardize"
	MethodNormalize   = "normalize"
)

// Rescale returns a copy of df with the named columns rescaled. standardize maps a
// column to zero mean and unit population standard deviation; normalize maps it
// onto [0, 1]. Constant columns become all zeros. Missing values stay missing and
// other columns are untouched.
func (a *Analyzer) Rescale(df *frame.DataFrame, method string, columns []string) (*frame.DataFrame, error) {
	if len(columns) == 0 {
		return nil, apierrors.Validation("columns", "at least one column is required")
	}
	switch method {
	case MethodStandardize, MethodNormalize:
	default:
		return nil, apierrors.Validation("method", "unsupported method %q, expected standardize or normalize", method)
	}
	if err := df.RequireNumeric(columns...); err != nil {
		return nil, err
	}

	out := df
	for _, name := range columns {
		col, _ := out.Col(name)
		present := col.NonMissing()
		if len(present) == 0 {
			continue
		}

		var shift, scale float64
		switch method {
		case MethodStandardize:
			shift, scale = stat.PopMeanStdDev(present, nil)
		case MethodNormalize:
			shift = floats.Min(present)
			scale = floats.Max(present) - shift
		}

		next := make([]float64, len(col.Floats))
		for i, v := range col.Floats {
			switch {
			case math.IsNaN(v):
				next[i] = v
			case scale == 0:
				next[i] = 0
			default:
				next[i] = (v - shift) / scale
			}
		}
		out = out.Replace(frame.NewNumeric(name, next))
	}
	return out, nil
}
