package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// z-score of a two-sided 95% interval.
const ci95 = 1.959963984540054

// ARIMA is a fitted ARIMA(p, d, q) model estimated by conditional sum of squares.
type ARIMA struct {
	Order  Order
	AR     []float64
	MA     []float64
	Mean   float64
	Sigma2 float64

	levels [][]float64 // levels[k] is the series differenced k times
	z      []float64   // demeaned stationary series
	resid  []float64
}

// MinObservations returns the shortest series FitARIMA accepts for an order.
func MinObservations(o Order) int {
	return o.P + o.D + o.Q + 3
}

// FitARIMA fits an ARIMA model to y. The AR and MA polynomials are kept
// stationary and invertible by optimizing over partial autocorrelations.
func FitARIMA(y []float64, order Order) (*ARIMA, error) {
	if order.P < 0 || order.D < 0 || order.Q < 0 {
		return nil, fmt.Errorf("invalid order (%d,%d,%d)", order.P, order.D, order.Q)
	}
	if need := MinObservations(order); len(y) < need {
		return nil, fmt.Errorf("series too short: need at least %d observations, got %d", need, len(y))
	}
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("series contains missing or infinite values")
		}
	}

	m := &ARIMA{Order: order}
	m.levels = make([][]float64, order.D+1)
	m.levels[0] = y
	for k := 1; k <= order.D; k++ {
		m.levels[k] = difference(m.levels[k-1])
	}
	w := m.levels[order.D]
	if order.D == 0 {
		m.Mean = stat.Mean(w, nil)
	}
	m.z = make([]float64, len(w))
	for i, v := range w {
		m.z[i] = v - m.Mean
	}

	nParams := order.P + order.Q
	params := make([]float64, nParams)
	if nParams > 0 {
		problem := optimize.Problem{
			Func: func(x []float64) float64 {
				ar, ma := m.unpack(x)
				sse := cssResiduals(m.z, ar, ma, nil)
				if math.IsNaN(sse) || math.IsInf(sse, 0) {
					return math.MaxFloat64
				}
				return sse
			},
		}
		settings := &optimize.Settings{
			MajorIterations: 5000,
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-12,
				Relative:   1e-10,
				Iterations: 200,
			},
		}
		res, err := optimize.Minimize(problem, params, settings, &optimize.NelderMead{})
		if res == nil {
			return nil, fmt.Errorf("optimizer failed: %w", err)
		}
		params = res.X
	}

	m.AR, m.MA = m.unpack(params)
	m.resid = make([]float64, len(m.z))
	sse := cssResiduals(m.z, m.AR, m.MA, m.resid)
	effective := len(m.z) - order.P
	m.Sigma2 = sse / float64(effective)
	if math.IsNaN(m.Sigma2) || math.IsInf(m.Sigma2, 0) {
		return nil, errors.New("model fit did not converge")
	}
	return m, nil
}

func (m *ARIMA) unpack(x []float64) (ar, ma []float64) {
	ar = pacfToCoefficients(x[:m.Order.P], -1)
	ma = pacfToCoefficients(x[m.Order.P:], 1)
	return ar, ma
}

// Forecast returns h point forecasts with lower and upper bounds of the 95%
// prediction interval.
func (m *ARIMA) Forecast(h int) (mean, lower, upper []float64) {
	if h <= 0 {
		return nil, nil, nil
	}
	p, q := m.Order.P, m.Order.Q
	n := len(m.z)

	ext := make([]float64, n, n+h)
	copy(ext, m.z)
	shocks := make([]float64, n+h)
	copy(shocks, m.resid)

	diffed := make([]float64, h)
	for t := n; t < n+h; t++ {
		var v float64
		for i := 1; i <= p; i++ {
			if t-i >= 0 {
				v += m.AR[i-1] * ext[t-i]
			}
		}
		for j := 1; j <= q; j++ {
			if t-j >= 0 {
				v += m.MA[j-1] * shocks[t-j]
			}
		}
		ext = append(ext, v)
		diffed[t-n] = v + m.Mean
	}

	mean = diffed
	for k := m.Order.D - 1; k >= 0; k-- {
		level := m.levels[k]
		last := level[len(level)-1]
		undiffed := make([]float64, h)
		for i := range mean {
			last += mean[i]
			undiffed[i] = last
		}
		mean = undiffed
	}

	psi := m.psiWeights(h)
	lower = make([]float64, h)
	upper = make([]float64, h)
	var acc float64
	for i := 0; i < h; i++ {
		acc += psi[i] * psi[i]
		half := ci95 * math.Sqrt(m.Sigma2*acc)
		lower[i] = mean[i] - half
		upper[i] = mean[i] + half
	}
	return mean, lower, upper
}

// psiWeights returns the first h coefficients of the MA(inf) representation of
// the integrated model.
func (m *ARIMA) psiWeights(h int) []float64 {
	// phi(B) * (1-B)^d as a polynomial in B with constant term 1.
	poly := make([]float64, 1+len(m.AR))
	poly[0] = 1
	for i, c := range m.AR {
		poly[i+1] = -c
	}
	for k := 0; k < m.Order.D; k++ {
		next := make([]float64, len(poly)+1)
		for i, c := range poly {
			next[i] += c
			next[i+1] -= c
		}
		poly = next
	}

	psi := make([]float64, h)
	psi[0] = 1
	for j := 1; j < h; j++ {
		var v float64
		if j <= len(m.MA) {
			v = m.MA[j-1]
		}
		for i := 1; i < len(poly) && i <= j; i++ {
			v -= poly[i] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}

// cssResiduals computes the one-step residuals of an ARMA model conditional on
// the first p observations and zero pre-sample shocks, writing them into resid
// when it is non-nil, and returns their sum of squares.
func cssResiduals(z, ar, ma, resid []float64) float64 {
	p := len(ar)
	if resid == nil {
		resid = make([]float64, len(z))
	}
	var sse float64
	for t := range z {
		if t < p {
			resid[t] = 0
			continue
		}
		e := z[t]
		for i := 1; i <= p; i++ {
			e -= ar[i-1] * z[t-i]
		}
		for j := 1; j <= len(ma) && t-j >= 0; j++ {
			e -= ma[j-1] * resid[t-j]
		}
		resid[t] = e
		sse += e * e
	}
	return sse
}

// pacfToCoefficients maps unconstrained values onto the coefficients of a
// stationary (sign -1) or invertible (sign +1) lag polynomial through the
// Durbin-Levinson recursion on tanh-squashed partial autocorrelations.
func pacfToCoefficients(x []float64, sign float64) []float64 {
	k := len(x)
	if k == 0 {
		return nil
	}
	r := make([]float64, k)
	for i, v := range x {
		r[i] = math.Tanh(v / 2)
	}
	coef := append([]float64(nil), r...)
	work := make([]float64, k)
	for j := 1; j < k; j++ {
		a := coef[j]
		copy(work[:j], coef[:j])
		for i := 0; i < j; i++ {
			coef[i] = work[i] + sign*a*work[j-i-1]
		}
	}
	return coef
}

func difference(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	floats.SubTo(out, x[1:], x[:len(x)-1])
	return out
}
