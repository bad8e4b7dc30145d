package analysis

import (
	"fmt"
	"math"
)

// Decomposition is a classical additive decomposition y = trend + seasonal + residual.
// Trend and residual are NaN where the centred moving average is undefined.
type Decomposition struct {
	Period   int
	Trend    []float64
	Seasonal []float64
	Residual []float64
}

// Decompose splits y into trend, seasonal and residual components with a
// centred moving average of the given period. y needs two full periods.
func Decompose(y []float64, period int) (*Decomposition, error) {
	if period < 2 {
		return nil, fmt.Errorf("period must be at least 2, got %d", period)
	}
	if len(y) < 2*period {
		return nil, fmt.Errorf("decomposition needs at least %d observations, got %d", 2*period, len(y))
	}
	n := len(y)

	weights := make([]float64, 0, period+1)
	if period%2 == 0 {
		weights = append(weights, 0.5/float64(period))
		for i := 1; i < period; i++ {
			weights = append(weights, 1/float64(period))
		}
		weights = append(weights, 0.5/float64(period))
	} else {
		for i := 0; i < period; i++ {
			weights = append(weights, 1/float64(period))
		}
	}
	half := len(weights) / 2

	trend := make([]float64, n)
	for t := range trend {
		if t < half || t >= n-half {
			trend[t] = math.NaN()
			continue
		}
		var v float64
		for i, w := range weights {
			v += w * y[t-half+i]
		}
		trend[t] = v
	}

	means := make([]float64, period)
	for i := 0; i < period; i++ {
		var sum float64
		var count int
		for t := i; t < n; t += period {
			if math.IsNaN(trend[t]) {
				continue
			}
			sum += y[t] - trend[t]
			count++
		}
		means[i] = sum / float64(count)
	}
	var grand float64
	for _, v := range means {
		grand += v
	}
	grand /= float64(period)

	seasonal := make([]float64, n)
	resid := make([]float64, n)
	for t := range seasonal {
		seasonal[t] = means[t%period] - grand
		resid[t] = y[t] - trend[t] - seasonal[t]
	}
	return &Decomposition{Period: period, Trend: trend, Seasonal: seasonal, Residual: resid}, nil
}
