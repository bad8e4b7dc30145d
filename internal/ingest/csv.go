package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

var errEmptyInput = errors.New("input is empty")

func errEmptyHeader(i int) error {
	return fmt.Errorf("header %d is empty", i+1)
}

func errDuplicateHeader(name string) error {
	return fmt.Errorf("duplicate header %q", name)
}

// ParseCSV parses delimited text with a header row into a DataFrame.
func ParseCSV(data []byte) (*frame.DataFrame, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, apierrors.Parse(0, errEmptyInput)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = false

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apierrors.Parse(1, errors.New("missing header row"))
		}
		return nil, apierrors.Parse(lineOf(err), err)
	}

	rows := [][]string{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// csv.Reader enforces the header's field count on every row.
			return nil, apierrors.Parse(lineOf(err), err)
		}
		rows = append(rows, record)
	}

	return buildFrame(headers, rows)
}

// detectDelimiter falls back to ';' when the header has semicolons but no commas.
func detectDelimiter(data []byte) rune {
	header, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	if !strings.Contains(header, ",") && strings.Contains(header, ";") {
		return ';'
	}
	return ','
}

func lineOf(err error) int {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return pe.Line
	}
	return 0
}

// Parse dispatches on the file extension: .xlsx goes to ParseExcel, anything else to ParseCSV.
func Parse(filename string, data []byte) (*frame.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ParseExcel(data)
	default:
		return ParseCSV(data)
	}
}
