package ingest

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

func TestParseCSV(t *testing.T) {
	input := "name,age,score\nalice,30,1.5\nbob,NA,2.5\n carol ,41,\n"

	df, err := ParseCSV([]byte(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age", "score"}, df.Names())
	assert.Equal(t, 3, df.Len())

	name, _ := df.Col("name")
	assert.Equal(t, frame.Categorical, name.Kind)

	age, _ := df.Col("age")
	assert.Equal(t, frame.Numeric, age.Kind)
	assert.Equal(t, 30.0, age.Floats[0])
	assert.True(t, math.IsNaN(age.Floats[1]))

	score, _ := df.Col("score")
	assert.Equal(t, frame.Numeric, score.Kind)
	assert.True(t, score.IsMissing(2))
}

func TestParseCSV_SemicolonAndBOM(t *testing.T) {
	df, err := ParseCSV([]byte("\xef\xbb\xbfa;b\n1;x\n2;y\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, df.Names())
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{"empty", "", 0},
		{"whitespace only", "  \n\n", 0},
		{"ragged row", "a,b\n1,2\n3\n", 3},
		{"duplicate header", "a,a\n1,2\n", 1},
		{"empty header", "a,\n1,2\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV([]byte(tt.input))
			var pe *apierrors.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantLine, pe.Line)
		})
	}
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	df, err := ParseCSV([]byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, df.Len())
	assert.Equal(t, []string{"a", "b"}, df.Names())
}

func TestParseExcel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"region", "revenue"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"north", 10}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"south"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	df, err := Parse("report.XLSX", buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "revenue"}, df.Names())
	revenue, _ := df.Col("revenue")
	assert.Equal(t, frame.Numeric, revenue.Kind)
	assert.Equal(t, 10.0, revenue.Floats[0])
	assert.True(t, revenue.IsMissing(1))
}

func TestParseExcel_Garbage(t *testing.T) {
	_, err := ParseExcel([]byte("definitely not a zip"))
	var pe *apierrors.ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParse_DispatchesOnExtension(t *testing.T) {
	df, err := Parse("data.csv", []byte("x\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, df.Len())
}

func TestTableQuery(t *testing.T) {
	q, err := TableQuery("public.sales", 100)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "public"."sales" LIMIT 100`, q)

	for _, bad := range []string{"sales; DROP TABLE x", "1abc", "a.b.c", ""} {
		_, err := TableQuery(bad, 10)
		assert.True(t, apierrors.IsValidation(err), bad)
	}

	_, err = TableQuery("sales", 0)
	assert.True(t, apierrors.IsValidation(err))
}

func TestPostgresConfig_DSN(t *testing.T) {
	dsn := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p'w", DBName: "x"}.DSN()
	assert.True(t, strings.Contains(dsn, `password='p\'w'`), dsn)
	assert.Contains(t, dsn, "sslmode='disable'")
}

func TestFrameFromSQL(t *testing.T) {
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	df, err := frameFromSQL(
		[]string{"id", "amount", "created", "note"},
		[][]interface{}{
			{int64(1), []byte("10.50"), ts, nil},
			{int64(2), nil, ts, []byte("ok")},
		},
	)
	require.NoError(t, err)

	amount, _ := df.Col("amount")
	assert.Equal(t, frame.Numeric, amount.Kind)
	assert.Equal(t, 10.5, amount.Floats[0])
	assert.True(t, amount.IsMissing(1))

	created, _ := df.Col("created")
	assert.Equal(t, frame.Categorical, created.Kind)
	assert.Equal(t, "2024-01-02T00:00:00Z", created.Values[0])

	note, _ := df.Col("note")
	assert.Equal(t, frame.Categorical, note.Kind)
	assert.True(t, note.IsMissing(0))
}
