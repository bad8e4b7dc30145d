package transform

import "dataviz-backend/internal/frame"

// DefaultPreviewRows is the preview length used when none is configured.
const DefaultPreviewRows = 5

// Preview returns at most n leading rows of df as records.
func Preview(df *frame.DataFrame, n int) []map[string]interface{} {
	if n <= 0 {
		return []map[string]interface{}{}
	}
	return df.Records(n)
}
