package ingest

import (
	"math"
	"strconv"
	"strings"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

// missingTokens are cell contents treated as a missing value.
var missingTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

func isMissing(cell string) bool {
	return missingTokens[strings.TrimSpace(cell)]
}

// buildFrame infers a type for each column and assembles the DataFrame.
// A column is numeric when every non-missing cell parses as a float.
func buildFrame(headers []string, rows [][]string) (*frame.DataFrame, error) {
	seen := make(map[string]bool, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, apierrors.Parse(1, errEmptyHeader(i))
		}
		if seen[h] {
			return nil, apierrors.Parse(1, errDuplicateHeader(h))
		}
		seen[h] = true
		headers[i] = h
	}

	cols := make([]*frame.Column, len(headers))
	for j, name := range headers {
		cols[j] = inferColumn(name, rows, j)
	}
	return frame.New(cols...)
}

func inferColumn(name string, rows [][]string, j int) *frame.Column {
	floats := make([]float64, len(rows))
	numeric := true
	for i, row := range rows {
		cell := cellAt(row, j)
		if isMissing(cell) {
			floats[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			numeric = false
			break
		}
		floats[i] = f
	}
	if numeric {
		return frame.NewNumeric(name, floats)
	}

	values := make([]string, len(rows))
	valid := make([]bool, len(rows))
	for i, row := range rows {
		cell := cellAt(row, j)
		if isMissing(cell) {
			continue
		}
		values[i], valid[i] = cell, true
	}
	return frame.NewCategorical(name, values, valid)
}

func cellAt(row []string, j int) string {
	if j < len(row) {
		return row[j]
	}
	return ""
}
