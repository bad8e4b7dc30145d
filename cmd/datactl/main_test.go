package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const sample = "x,y,g\n1,5,A\n2,7,B\n3,9,A\n4,11,B\n4,11,B\n"

func TestStats(t *testing.T) {
	out, err := execute(t, "stats", writeCSV(t, sample), "--rows", "2")
	require.NoError(t, err)

	var body struct {
		Rows     int                      `json:"rows"`
		Preview  []map[string]interface{} `json:"preview"`
		Cleaning struct {
			DuplicatesRemoved int `json:"duplicates_removed"`
		} `json:"cleaning"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, 4, body.Rows)
	assert.Len(t, body.Preview, 2)
	assert.Equal(t, 1, body.Cleaning.DuplicatesRemoved)
}

func TestStats_NoClean(t *testing.T) {
	out, err := execute(t, "stats", writeCSV(t, sample), "--no-clean")
	require.NoError(t, err)
	assert.Contains(t, out, `"rows": 5`)
}

func TestRegress(t *testing.T) {
	out, err := execute(t, "regress", writeCSV(t, sample), "--x", "x", "--y", "y")
	require.NoError(t, err)

	var body struct {
		Coefficients map[string]float64 `json:"coefficients"`
		Intercept    float64            `json:"intercept"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.InDelta(t, 2, body.Coefficients["x"], 1e-9)
	assert.InDelta(t, 3, body.Intercept, 1e-9)
}

func TestAggregate(t *testing.T) {
	out, err := execute(t, "aggregate", writeCSV(t, sample), "-g", "g", "-c", "y", "-f", "sum")
	require.NoError(t, err)

	var body map[string]float64
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, map[string]float64{"A": 14, "B": 18}, body)
}

func TestChart(t *testing.T) {
	out := filepath.Join(t.TempDir(), "hist.png")
	_, err := execute(t, "chart", writeCSV(t, sample), "-t", "histogram", "--column", "x", "-o", out)
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	assert.NoError(t, err)
}

func TestChart_Errors(t *testing.T) {
	_, err := execute(t, "chart", writeCSV(t, sample), "-t", "radar")
	assert.ErrorContains(t, err, "radar")

	_, err = execute(t, "chart", "-t", "pie", "--column", "g")
	assert.ErrorContains(t, err, "needs a data file")
}

func TestRescaleAndForecastErrors(t *testing.T) {
	_, err := execute(t, "rescale", writeCSV(t, sample), "-m", "zscore", "-c", "x")
	assert.Error(t, err)

	_, err = execute(t, "forecast", writeCSV(t, sample), "-c", "y", "-n", "2")
	assert.ErrorContains(t, err, "too short")
}
