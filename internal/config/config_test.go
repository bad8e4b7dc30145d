package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "admin", cfg.Auth.Username)
	assert.Equal(t, 5, cfg.Analysis.PreviewRows)
	assert.False(t, cfg.Database.ImportEnabled)
	assert.Equal(t, ":5000", cfg.Server.Addr())
}

func TestLoadFile_Precedence(t *testing.T) {
	path := writeFile(t, `
server:
  port: 8080
  read_timeout: 5s
analysis:
  arima_p: 2
  seasonal_period: 4
chart:
  width: 800
`)
	t.Setenv("DATAVIZ_SERVER_PORT", "9090")
	t.Setenv("DATAVIZ_CHART_HEIGHT", "300")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	// env beats file
	assert.Equal(t, 9090, cfg.Server.Port)
	// file beats defaults
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2, cfg.Analysis.ARIMAP)
	assert.Equal(t, 4, cfg.Analysis.SeasonalPeriod)
	assert.Equal(t, 800, cfg.Chart.Width)
	assert.Equal(t, 300, cfg.Chart.Height)
	// untouched fields keep their defaults
	assert.Equal(t, 1, cfg.Analysis.ARIMAD)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoadFile_EnvOnly(t *testing.T) {
	t.Setenv("DATAVIZ_CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("DATAVIZ_DATABASE_IMPORT_ENABLED", "true")
	t.Setenv("DATAVIZ_AUTH_TOKEN_TTL", "30m")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Database.ImportEnabled)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = LoadFile(writeFile(t, "server: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse config file")

	t.Setenv("DATAVIZ_SERVER_PORT", "not-a-number")
	_, err = LoadFile("")
	assert.ErrorContains(t, err, "failed to load config from env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"origins", func(c *Config) { c.CORS.AllowedOrigins = nil }, "cors.allowed_origins"},
		{"secret", func(c *Config) { c.Auth.JWTSecret = "" }, "auth.jwt_secret"},
		{"rate", func(c *Config) { c.RateLimit.RPS = 0 }, "rate_limit.rps"},
		{"level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"output", func(c *Config) { c.Logging.Output = "syslog" }, "logging.output"},
		{"file path", func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" }, "logging.file_path"},
		{"order", func(c *Config) { c.Analysis.ARIMAD = 3 }, "ARIMA order"},
		{"period", func(c *Config) { c.Analysis.SeasonalPeriod = 1 }, "analysis.seasonal_period"},
		{"chart size", func(c *Config) { c.Chart.Width = 10 }, "chart size"},
		{"db rows", func(c *Config) { c.Database.ImportEnabled = true; c.Database.MaxRows = 0 }, "database.max_rows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	cfg := Default()
	cfg.RateLimit = RateLimitConfig{Enabled: false}
	assert.NoError(t, cfg.Validate(), "limits are ignored when rate limiting is off")
}

func TestConverters(t *testing.T) {
	cfg := Default()
	cfg.Analysis.ARIMAP, cfg.Analysis.ARIMAQ = 2, 0
	cfg.Analysis.RemoveOutliers = true
	cfg.Chart.FontPath = "/fonts/x.ttf"

	a := cfg.AnalysisConfig()
	assert.Equal(t, 2, a.Order.P)
	assert.Equal(t, 1, a.Order.D)
	assert.Equal(t, 0, a.Order.Q)
	assert.Equal(t, 12, a.SeasonalPeriod)

	o := cfg.CleaningOptions()
	assert.True(t, o.RemoveOutliers)
	assert.Equal(t, 3.0, o.ZScoreThreshold)

	v := cfg.VizConfig()
	assert.Equal(t, 1000, v.Width)
	assert.Equal(t, "/fonts/x.ttf", v.FontPath)
	assert.Equal(t, 8, v.ScatterMatrixMaxColumns)

	assert.Equal(t, slog.LevelDebug, LoggingConfig{Level: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LoggingConfig{Level: ""}.SlogLevel())
}
