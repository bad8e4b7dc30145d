package analysis

import (
	"log/slog"
	"math"
	"strings"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

// Aggregation functions.
const (
	AggMean  = "mean"
	AggSum   = "sum"
	AggCount = "count"
)

// GroupKeySeparator joins the key parts of a multi-column grouping.
const GroupKeySeparator = ", "

// Aggregate groups df by groupBy and reduces aggCol in each group with aggFunc.
// Rows with a missing group key are skipped. count counts the present values of
// aggCol, so it also accepts categorical columns; mean and sum require a numeric one.
// A group whose values are all missing has a null mean.
func (a *Analyzer) Aggregate(df *frame.DataFrame, groupBy []string, aggCol, aggFunc string) (map[string]frame.Float, error) {
	if len(groupBy) == 0 {
		return nil, apierrors.Validation("groupBy", "at least one grouping column is required")
	}
	if aggCol == "" {
		return nil, apierrors.Validation("aggColumn", "is required")
	}
	switch aggFunc {
	case AggMean, AggSum, AggCount:
	default:
		return nil, apierrors.Validation("aggFunc", "unsupported aggregation function %q, expected one of mean, sum, count", aggFunc)
	}
	if missing := df.Missing(append(append([]string(nil), groupBy...), aggCol)...); len(missing) > 0 {
		return nil, apierrors.InvalidColumns("columns not found", missing...)
	}
	if aggFunc != AggCount {
		if err := df.RequireNumeric(aggCol); err != nil {
			return nil, err
		}
	}

	keys := make([]*frame.Column, len(groupBy))
	for i, name := range groupBy {
		keys[i], _ = df.Col(name)
	}
	target, _ := df.Col(aggCol)

	type acc struct {
		sum   float64
		count int
	}
	groups := make(map[string]*acc)
	parts := make([]string, len(keys))
	for i := 0; i < df.Len(); i++ {
		skip := false
		for j, k := range keys {
			if k.IsMissing(i) {
				skip = true
				break
			}
			parts[j] = k.Key(i)
		}
		if skip {
			continue
		}
		key := strings.Join(parts, GroupKeySeparator)
		g, ok := groups[key]
		if !ok {
			g = &acc{}
			groups[key] = g
		}
		if target.IsMissing(i) {
			continue
		}
		g.count++
		if target.Kind == frame.Numeric {
			g.sum += target.Floats[i]
		}
	}

	out := make(map[string]frame.Float, len(groups))
	for key, g := range groups {
		switch aggFunc {
		case AggCount:
			out[key] = frame.Float(g.count)
		case AggSum:
			out[key] = frame.Float(g.sum)
		case AggMean:
			if g.count == 0 {
				out[key] = frame.Float(math.NaN())
			} else {
				out[key] = frame.Float(g.sum / float64(g.count))
			}
		}
	}

	a.logger.Debug("aggregated",
		slog.Any("group_by", groupBy),
		slog.String("column", aggCol),
		slog.String("func", aggFunc),
		slog.Int("groups", len(out)),
	)
	return out, nil
}
