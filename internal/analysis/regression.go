package analysis

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

// RegressionResult is an ordinary least squares fit with intercept.
type RegressionResult struct {
	Coefficients map[string]frame.Float `json:"coefficients"`
	Intercept    frame.Float            `json:"intercept"`
	RSquared     frame.Float            `json:"r_squared"`
	Observations int                    `json:"n_observations"`
}

// Regression fits yCol on xCols by ordinary least squares. Rows with a
// missing value in any used column are dropped.
func (a *Analyzer) Regression(df *frame.DataFrame, xCols []string, yCol string) (*RegressionResult, error) {
	if len(xCols) == 0 {
		return nil, apierrors.Validation("xColumns", "at least one predictor is required")
	}
	if yCol == "" {
		return nil, apierrors.Validation("yColumn", "is required")
	}
	used := append(append([]string(nil), xCols...), yCol)
	if err := df.RequireNumeric(used...); err != nil {
		return nil, err
	}

	cols := make([]*frame.Column, len(used))
	for i, name := range used {
		cols[i], _ = df.Col(name)
	}

	var rows []int
	for i := 0; i < df.Len(); i++ {
		complete := true
		for _, c := range cols {
			if c.IsMissing(i) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, i)
		}
	}

	n, k := len(rows), len(xCols)+1
	if n <= k {
		return nil, apierrors.Analysis("regression", fmt.Errorf("need more than %d complete observations, got %d", k, n))
	}

	design := mat.NewDense(n, k, nil)
	y := make([]float64, n)
	for r, i := range rows {
		design.Set(r, 0, 1)
		for j := 0; j < len(xCols); j++ {
			design.Set(r, j+1, cols[j].Floats[i])
		}
		y[r] = cols[len(xCols)].Floats[i]
	}

	var beta mat.VecDense
	if err := beta.SolveVec(design, mat.NewVecDense(n, y)); err != nil {
		return nil, apierrors.Analysis("regression", fmt.Errorf("design matrix is singular: %w", err))
	}

	var fitted mat.VecDense
	fitted.MulVec(design, &beta)

	result := &RegressionResult{
		Coefficients: make(map[string]frame.Float, len(xCols)),
		Intercept:    frame.Float(beta.AtVec(0)),
		RSquared:     frame.Float(rSquared(fitted.RawVector().Data, y)),
		Observations: n,
	}
	for j, name := range xCols {
		result.Coefficients[name] = frame.Float(beta.AtVec(j + 1))
	}

	a.logger.Debug("regression fitted",
		slog.String("y", yCol),
		slog.Any("x", xCols),
		slog.Int("observations", n),
		slog.Float64("r_squared", float64(result.RSquared)),
	)
	return result, nil
}

// rSquared is the coefficient of determination. A constant response scores 1
// when it is fitted exactly and 0 otherwise.
func rSquared(estimates, values []float64) float64 {
	constant := true
	for _, v := range values[1:] {
		if v != values[0] {
			constant = false
			break
		}
	}
	if !constant {
		return stat.RSquaredFrom(estimates, values, nil)
	}
	for i := range values {
		if math.Abs(estimates[i]-values[i]) > 1e-9*math.Max(1, math.Abs(values[i])) {
			return 0
		}
	}
	return 1
}
