// Package config loads the server configuration.
//
// Values are resolved in order: built-in defaults, an optional YAML file named
// by DATAVIZ_CONFIG_FILE, then DATAVIZ_* environment variables. A .env file in
// the working directory is loaded into the environment first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "DATAVIZ"

// FileEnvVar names the YAML configuration file.
const FileEnvVar = "DATAVIZ_CONFIG_FILE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	CORS      CORSConfig      `yaml:"cors" envconfig:"CORS"`
	Auth      AuthConfig      `yaml:"auth" envconfig:"AUTH"`
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Chart     ChartConfig     `yaml:"chart" envconfig:"CHART"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CORSConfig contains cross-origin configuration
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	MaxAge         int      `yaml:"max_age" envconfig:"MAX_AGE"`
}

// AuthConfig contains login and token configuration
type AuthConfig struct {
	Username     string        `yaml:"username" envconfig:"USERNAME"`
	Password     string        `yaml:"password" envconfig:"PASSWORD"`
	JWTSecret    string        `yaml:"jwt_secret" envconfig:"JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" envconfig:"TOKEN_TTL"`
	RequireToken bool          `yaml:"require_token" envconfig:"REQUIRE_TOKEN"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" envconfig:"LEVEL"`
	Output     string `yaml:"output" envconfig:"OUTPUT"`
	FilePath   string `yaml:"file_path" envconfig:"FILE_PATH"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" envconfig:"MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" envconfig:"MAX_AGE_DAYS"`
}

// AnalysisConfig contains cleaning and model hyper-parameters
type AnalysisConfig struct {
	PreviewRows        int     `yaml:"preview_rows" envconfig:"PREVIEW_ROWS"`
	RemoveOutliers     bool    `yaml:"remove_outliers" envconfig:"REMOVE_OUTLIERS"`
	ZScoreThreshold    float64 `yaml:"zscore_threshold" envconfig:"ZSCORE_THRESHOLD"`
	ARIMAP             int     `yaml:"arima_p" envconfig:"ARIMA_P"`
	ARIMAD             int     `yaml:"arima_d" envconfig:"ARIMA_D"`
	ARIMAQ             int     `yaml:"arima_q" envconfig:"ARIMA_Q"`
	SeasonalPeriod     int     `yaml:"seasonal_period" envconfig:"SEASONAL_PERIOD"`
	MaxForecastPeriods int     `yaml:"max_forecast_periods" envconfig:"MAX_FORECAST_PERIODS"`
}

// ChartConfig contains rendering configuration
type ChartConfig struct {
	Width                   int    `yaml:"width" envconfig:"WIDTH"`
	Height                  int    `yaml:"height" envconfig:"HEIGHT"`
	FontPath                string `yaml:"font_path" envconfig:"FONT_PATH"`
	ScatterMatrixMaxColumns int    `yaml:"scatter_matrix_max_columns" envconfig:"SCATTER_MATRIX_MAX_COLUMNS"`
	DendrogramMaxLeaves     int    `yaml:"dendrogram_max_leaves" envconfig:"DENDROGRAM_MAX_LEAVES"`
}

// DatabaseConfig controls the Postgres table import endpoint
type DatabaseConfig struct {
	ImportEnabled  bool          `yaml:"import_enabled" envconfig:"IMPORT_ENABLED"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"CONNECT_TIMEOUT"`
	MaxRows        int           `yaml:"max_rows" envconfig:"MAX_ROWS"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            5000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
			MaxAge:         300,
		},
		Auth: AuthConfig{
			Username:  "admin",
			Password:  "password",
			JWTSecret: "change-me",
			TokenTTL:  time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     50,
			Burst:   100,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     "console",
			FilePath:   "logs/app.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Analysis: AnalysisConfig{
			PreviewRows:        5,
			ZScoreThreshold:    3,
			ARIMAP:             1,
			ARIMAD:             1,
			ARIMAQ:             1,
			SeasonalPeriod:     12,
			MaxForecastPeriods: 1000,
		},
		Chart: ChartConfig{
			Width:                   1000,
			Height:                  600,
			ScatterMatrixMaxColumns: 8,
			DendrogramMaxLeaves:     2000,
		},
		Database: DatabaseConfig{
			ConnectTimeout: 10 * time.Second,
			MaxRows:        100000,
		},
	}
}

// Load loads configuration from .env, the optional YAML file and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFile(os.Getenv(FileEnvVar))
}

// LoadFile loads configuration from the given YAML file (skipped when empty)
// and the environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.Server.Port > 0 && c.Server.Port <= 65535, "server.port must be in 1..65535, got %d", c.Server.Port)
	check(c.Server.ReadTimeout > 0, "server.read_timeout must be positive")
	check(c.Server.WriteTimeout > 0, "server.write_timeout must be positive")
	check(c.Server.ShutdownTimeout > 0, "server.shutdown_timeout must be positive")
	check(c.Server.MaxUploadBytes > 0, "server.max_upload_bytes must be positive")

	check(len(c.CORS.AllowedOrigins) > 0, "cors.allowed_origins must not be empty")

	check(c.Auth.Username != "", "auth.username is required")
	check(c.Auth.Password != "", "auth.password is required")
	check(c.Auth.JWTSecret != "", "auth.jwt_secret is required")
	check(c.Auth.TokenTTL > 0, "auth.token_ttl must be positive")

	if c.RateLimit.Enabled {
		check(c.RateLimit.RPS > 0, "rate_limit.rps must be positive")
		check(c.RateLimit.Burst > 0, "rate_limit.burst must be positive")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		check(false, "logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Output {
	case "console":
	case "file", "both":
		check(c.Logging.FilePath != "", "logging.file_path is required for %s output", c.Logging.Output)
	default:
		check(false, "logging.output must be one of console, file, both, got %q", c.Logging.Output)
	}

	a := c.Analysis
	check(a.PreviewRows >= 0, "analysis.preview_rows must not be negative")
	check(a.ZScoreThreshold > 0, "analysis.zscore_threshold must be positive")
	check(a.ARIMAP >= 0 && a.ARIMAD >= 0 && a.ARIMAQ >= 0, "analysis ARIMA order must not be negative")
	check(a.ARIMAP+a.ARIMAQ <= 10 && a.ARIMAD <= 2, "analysis ARIMA order (%d,%d,%d) is too large", a.ARIMAP, a.ARIMAD, a.ARIMAQ)
	check(a.SeasonalPeriod >= 2, "analysis.seasonal_period must be at least 2")
	check(a.MaxForecastPeriods >= 1, "analysis.max_forecast_periods must be at least 1")

	ch := c.Chart
	check(ch.Width >= 100 && ch.Height >= 100, "chart size must be at least 100x100, got %dx%d", ch.Width, ch.Height)
	check(ch.ScatterMatrixMaxColumns >= 1, "chart.scatter_matrix_max_columns must be at least 1")
	check(ch.DendrogramMaxLeaves >= 2, "chart.dendrogram_max_leaves must be at least 2")

	if c.Database.ImportEnabled {
		check(c.Database.ConnectTimeout > 0, "database.connect_timeout must be positive")
		check(c.Database.MaxRows > 0, "database.max_rows must be positive")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
