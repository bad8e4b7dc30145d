// Package analysis implements the four independent analysis operations:
// linear regression, ARIMA forecasting with seasonal decomposition, grouped
// aggregation and column rescaling.
//
// Every operation validates its inputs first and reports problems as
// *errors.ValidationError; numeric fitting failures are *errors.AnalysisError.
package analysis

import (
	"log/slog"
)

// Order is an ARIMA (p, d, q) order.
type Order struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`
}

// Config holds the model hyper-parameters.
type Config struct {
	Order              Order
	SeasonalPeriod     int
	MaxForecastPeriods int
}

// DefaultConfig returns ARIMA(1,1,1), seasonal period 12 and at most 1000 forecast steps.
func DefaultConfig() Config {
	return Config{
		Order:              Order{P: 1, D: 1, Q: 1},
		SeasonalPeriod:     12,
		MaxForecastPeriods: 1000,
	}
}

// Analyzer runs analysis operations with a fixed configuration.
type Analyzer struct {
	cfg    Config
	logger *slog.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(cfg Config, logger *slog.Logger) *Analyzer {
	def := DefaultConfig()
	if cfg.SeasonalPeriod < 2 {
		cfg.SeasonalPeriod = def.SeasonalPeriod
	}
	if cfg.MaxForecastPeriods <= 0 {
		cfg.MaxForecastPeriods = def.MaxForecastPeriods
	}
	return &Analyzer{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "analyzer")),
	}
}

// Config returns the analyzer's configuration.
func (a *Analyzer) Config() Config {
	return a.cfg
}
