package config

import (
	"log/slog"
	"strings"

	"dataviz-backend/internal/analysis"
	"dataviz-backend/internal/cleaning"
	"dataviz-backend/internal/viz"
)

// AnalysisConfig returns the model settings for analysis.NewAnalyzer.
func (c *Config) AnalysisConfig() analysis.Config {
	return analysis.Config{
		Order:              analysis.Order{P: c.Analysis.ARIMAP, D: c.Analysis.ARIMAD, Q: c.Analysis.ARIMAQ},
		SeasonalPeriod:     c.Analysis.SeasonalPeriod,
		MaxForecastPeriods: c.Analysis.MaxForecastPeriods,
	}
}

// CleaningOptions returns the cleaning pipeline options.
func (c *Config) CleaningOptions() cleaning.Options {
	return cleaning.Options{
		RemoveOutliers:  c.Analysis.RemoveOutliers,
		ZScoreThreshold: c.Analysis.ZScoreThreshold,
	}
}

// VizConfig returns the chart renderer settings.
func (c *Config) VizConfig() viz.Config {
	return viz.Config{
		Width:                   c.Chart.Width,
		Height:                  c.Chart.Height,
		FontPath:                c.Chart.FontPath,
		ScatterMatrixMaxColumns: c.Chart.ScatterMatrixMaxColumns,
		DendrogramMaxLeaves:     c.Chart.DendrogramMaxLeaves,
	}
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
