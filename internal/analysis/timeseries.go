package analysis

import (
	"fmt"
	"log/slog"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

// Interval is a 95% prediction interval.
type Interval struct {
	Lower frame.Float `json:"lower"`
	Upper frame.Float `json:"upper"`
}

// TimeSeriesResult holds forecasts and, when requested, the decomposition of
// the observed series. Component values are null where undefined.
type TimeSeriesResult struct {
	Column             string       `json:"column"`
	Order              Order        `json:"order"`
	Observations       int          `json:"n_observations"`
	Forecast           frame.Floats `json:"forecast"`
	ConfidenceInterval []Interval   `json:"confidence_interval"`
	Sigma2             frame.Float  `json:"sigma2"`
	Period             int          `json:"period,omitempty"`
	Trend              frame.Floats `json:"trend,omitempty"`
	Seasonal           frame.Floats `json:"seasonal,omitempty"`
	Residual           frame.Floats `json:"residual,omitempty"`
}

// TimeSeries forecasts the next periods values of column, taking rows in their
// given order and dropping missing values. decompose nil decomposes whenever the
// series holds two seasonal periods; true makes the decomposition mandatory.
func (a *Analyzer) TimeSeries(df *frame.DataFrame, column string, periods int, decompose *bool) (*TimeSeriesResult, error) {
	if column == "" {
		return nil, apierrors.Validation("column", "is required")
	}
	if periods < 1 || periods > a.cfg.MaxForecastPeriods {
		return nil, apierrors.Validation("periods", "must be between 1 and %d, got %d", a.cfg.MaxForecastPeriods, periods)
	}
	if err := df.RequireNumeric(column); err != nil {
		return nil, err
	}

	col, _ := df.Col(column)
	series := col.NonMissing()

	model, err := FitARIMA(series, a.cfg.Order)
	if err != nil {
		return nil, apierrors.Analysis("time_series", err)
	}
	mean, lower, upper := model.Forecast(periods)

	result := &TimeSeriesResult{
		Column:             column,
		Order:              a.cfg.Order,
		Observations:       len(series),
		Forecast:           frame.Floats(mean),
		ConfidenceInterval: make([]Interval, periods),
		Sigma2:             frame.Float(model.Sigma2),
	}
	for i := range mean {
		result.ConfidenceInterval[i] = Interval{Lower: frame.Float(lower[i]), Upper: frame.Float(upper[i])}
	}

	period := a.cfg.SeasonalPeriod
	wanted := len(series) >= 2*period
	if decompose != nil {
		wanted = *decompose
	}
	if wanted {
		d, err := Decompose(series, period)
		if err != nil {
			return nil, apierrors.Analysis("decompose", fmt.Errorf("seasonal period %d: %w", period, err))
		}
		result.Period = d.Period
		result.Trend = d.Trend
		result.Seasonal = d.Seasonal
		result.Residual = d.Residual
	}

	a.logger.Debug("time series forecast",
		slog.String("column", column),
		slog.Int("observations", len(series)),
		slog.Int("periods", periods),
		slog.Bool("decomposed", wanted),
	)
	return result, nil
}
