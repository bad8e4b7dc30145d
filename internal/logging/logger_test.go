package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataviz-backend/internal/config"
	apierrors "dataviz-backend/internal/errors"
)

func TestNew_ConsoleJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(config.LoggingConfig{Level: "warn", Output: "console"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("dropped")
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	logger.WarnContext(ctx, "kept", "rows", 3)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, float64(3), rec["rows"])
	assert.Contains(t, rec, "source")
}

func TestNew_Both(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	logger, closer, err := New(config.LoggingConfig{Level: "info", Output: "both", FilePath: path, MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	logger.With("component", "test").Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Equal(t, string(data), buf.String())
}

func TestNew_FileWithoutPath(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Output: "file"}, nil)
	assert.Error(t, err)
}

func TestNew_ErrorHandlerRequestIDOnce(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(config.LoggingConfig{Level: "info", Output: "console"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/regression", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-2"))
	rec := httptest.NewRecorder()
	apierrors.NewErrorHandler(logger).HandleError(rec, req, apierrors.Validation("yColumn", "is required"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	line := bytes.TrimSpace(buf.Bytes())
	assert.Equal(t, 1, bytes.Count(line, []byte(`"request_id"`)), string(line))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(line, &entry))
	assert.Equal(t, "req-2", entry["request_id"])
	assert.Equal(t, "error_handler", entry["component"])
}
