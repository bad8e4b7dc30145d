package cleaning

import (
	"dataviz-backend/internal/frame"
)

// ColumnProfile holds quality metrics for a column, measured before cleaning.
type ColumnProfile struct {
	Name          string      `json:"name"`
	Kind          string      `json:"kind"`
	NullCount     int         `json:"null_count"`
	NullRate      frame.Float `json:"null_rate"`
	DistinctCount int         `json:"distinct_count"`
}

// Report describes what a Clean call changed.
type Report struct {
	RowsIn            int             `json:"rows_in"`
	RowsOut           int             `json:"rows_out"`
	DuplicatesRemoved int             `json:"duplicates_removed"`
	OutliersRemoved   int             `json:"outliers_removed"`
	Imputed           map[string]int  `json:"imputed"`
	Columns           []ColumnProfile `json:"columns"`
}

// ProfileColumns counts missing and distinct values per column.
func ProfileColumns(df *frame.DataFrame) []ColumnProfile {
	profiles := make([]ColumnProfile, len(df.Columns))
	for j, col := range df.Columns {
		distinct := make(map[string]struct{})
		nulls := 0
		for i := 0; i < col.Len(); i++ {
			if col.IsMissing(i) {
				nulls++
				continue
			}
			distinct[col.Key(i)] = struct{}{}
		}

		rate := 0.0
		if col.Len() > 0 {
			rate = float64(nulls) / float64(col.Len())
		}
		profiles[j] = ColumnProfile{
			Name:          col.Name,
			Kind:          col.Kind.String(),
			NullCount:     nulls,
			NullRate:      frame.Float(rate),
			DistinctCount: len(distinct),
		}
	}
	return profiles
}
