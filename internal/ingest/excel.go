package ingest

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

// ParseExcel reads the first sheet of an XLSX workbook; its first row is the header.
func ParseExcel(data []byte) (*frame.DataFrame, error) {
	if len(data) == 0 {
		return nil, apierrors.Parse(0, errEmptyInput)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apierrors.Parse(0, fmt.Errorf("failed to open workbook: %w", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apierrors.Parse(0, errors.New("workbook has no sheets"))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apierrors.Parse(0, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err))
	}
	if len(rows) == 0 {
		return nil, apierrors.Parse(1, errors.New("missing header row"))
	}

	headers := rows[0]
	body := rows[1:]
	for i, row := range body {
		if len(row) > len(headers) {
			// +2: 1-based, and the header occupies the first line.
			return nil, apierrors.Parse(i+2, fmt.Errorf("row has %d fields, header has %d", len(row), len(headers)))
		}
	}

	return buildFrame(headers, body)
}
