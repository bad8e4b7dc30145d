// Package cleaning removes duplicate rows, imputes missing numeric values and
// optionally drops statistical outliers.
//
// The policy is fixed and applied in this order:
//
//  1. drop exact duplicate rows, keeping the first occurrence
//  2. fill missing numeric values with the column mean
//  3. drop duplicates again, since imputation can create new ones
//  4. when enabled, drop rows whose |z-score| exceeds the threshold in any
//     numeric column, repeating until no row is removed
//
// Categorical missing values are left missing. The result is a fixed point:
// cleaning it again changes nothing.
package cleaning

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

// Options configures the cleaner.
type Options struct {
	RemoveOutliers  bool
	ZScoreThreshold float64
}

// DefaultOptions returns mean imputation without outlier removal, threshold 3.
func DefaultOptions() Options {
	return Options{ZScoreThreshold: 3}
}

// Cleaner applies the cleaning policy.
type Cleaner struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Cleaner.
func New(opts Options, logger *slog.Logger) *Cleaner {
	if opts.ZScoreThreshold <= 0 {
		opts.ZScoreThreshold = DefaultOptions().ZScoreThreshold
	}
	return &Cleaner{
		opts:   opts,
		logger: logger.With(slog.String("component", "cleaner")),
	}
}

// Clean returns a cleaned copy of df and a report of what changed.
func (c *Cleaner) Clean(df *frame.DataFrame) (*frame.DataFrame, *Report, error) {
	report := &Report{
		RowsIn:  df.Len(),
		Imputed: make(map[string]int),
		Columns: ProfileColumns(df),
	}

	out, dropped := dropDuplicates(df)
	report.DuplicatesRemoved += dropped

	out = imputeMeans(out, report.Imputed)

	out, dropped = dropDuplicates(out)
	report.DuplicatesRemoved += dropped

	if c.opts.RemoveOutliers {
		for {
			var removed int
			out, removed = dropOutliers(out, c.opts.ZScoreThreshold)
			if removed == 0 {
				break
			}
			report.OutliersRemoved += removed
		}
	}

	report.RowsOut = out.Len()
	c.logger.Debug("dataset cleaned",
		slog.Int("rows_in", report.RowsIn),
		slog.Int("rows_out", report.RowsOut),
		slog.Int("duplicates_removed", report.DuplicatesRemoved),
		slog.Int("outliers_removed", report.OutliersRemoved),
	)

	if report.RowsIn > 0 && out.Len() == 0 {
		return nil, report, &apierrors.EmptyResultError{RowsIn: report.RowsIn}
	}
	return out, report, nil
}

func dropDuplicates(df *frame.DataFrame) (*frame.DataFrame, int) {
	seen := make(map[string]bool, df.Len())
	keep := make([]int, 0, df.Len())
	for i := 0; i < df.Len(); i++ {
		key := df.RowKey(i)
		if seen[key] {
			continue
		}
		seen[key] = true
		keep = append(keep, i)
	}
	return df.Subset(keep), df.Len() - len(keep)
}

func imputeMeans(df *frame.DataFrame, imputed map[string]int) *frame.DataFrame {
	out := df
	for _, col := range df.Columns {
		if col.Kind != frame.Numeric {
			continue
		}
		present := col.NonMissing()
		if len(present) == len(col.Floats) || len(present) == 0 {
			continue
		}
		mean := stat.Mean(present, nil)
		filled := col.Clone()
		for i, v := range filled.Floats {
			if math.IsNaN(v) {
				filled.Floats[i] = mean
			}
		}
		imputed[col.Name] = len(col.Floats) - len(present)
		out = out.Replace(filled)
	}
	return out
}

// dropOutliers removes rows with |z| > threshold in any numeric column, using
// the population standard deviation. Missing values never count as outliers.
func dropOutliers(df *frame.DataFrame, threshold float64) (*frame.DataFrame, int) {
	outlier := make([]bool, df.Len())
	for _, col := range df.Columns {
		if col.Kind != frame.Numeric {
			continue
		}
		present := col.NonMissing()
		if len(present) < 2 {
			continue
		}
		mean, std := stat.PopMeanStdDev(present, nil)
		if std == 0 {
			continue
		}
		for i, v := range col.Floats {
			if !math.IsNaN(v) && math.Abs((v-mean)/std) > threshold {
				outlier[i] = true
			}
		}
	}

	keep := make([]int, 0, df.Len())
	for i, o := range outlier {
		if !o {
			keep = append(keep, i)
		}
	}
	if len(keep) == df.Len() {
		return df, 0
	}
	return df.Subset(keep), df.Len() - len(keep)
}
