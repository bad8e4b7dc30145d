package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"dataviz-backend/internal/analysis"
	"dataviz-backend/internal/cleaning"
	"dataviz-backend/internal/config"
	"dataviz-backend/internal/frame"
	"dataviz-backend/internal/ingest"
)

// cli carries state shared by all subcommands.
type cli struct {
	cfgFile string
	debug   bool
	noClean bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "datactl",
		Short:         "Clean, describe, analyze and chart CSV/XLSX datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "YAML config file (default $DATAVIZ_CONFIG_FILE)")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "log pipeline steps to stderr")
	root.PersistentFlags().BoolVar(&c.noClean, "no-clean", false, "skip duplicate removal and imputation")

	root.AddCommand(
		c.statsCmd(),
		c.chartCmd(),
		c.regressCmd(),
		c.forecastCmd(),
		c.aggregateCmd(),
		c.rescaleCmd(),
	)
	return root
}

func (c *cli) init(stderr io.Writer) error {
	path := c.cfgFile
	if path == "" {
		path = os.Getenv(config.FileEnvVar)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level := slog.LevelWarn
	if c.debug {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// load parses path and, unless --no-clean is set, runs the cleaning pipeline.
func (c *cli) load(path string) (*frame.DataFrame, *cleaning.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	df, err := ingest.Parse(path, data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if c.noClean {
		return df, nil, nil
	}
	return cleaning.New(c.cfg.CleaningOptions(), c.logger).Clean(df)
}

func (c *cli) analyzer() *analysis.Analyzer {
	return analysis.NewAnalyzer(c.cfg.AnalysisConfig(), c.logger)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
